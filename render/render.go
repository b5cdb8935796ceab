// Package render remaps Standard MIDI Files offline. Each track is one block:
// event offsets are absolute ticks, so dropping an event never moves the ones
// after it.
package render

import (
	"fmt"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"pitch-velocity/debug"
	"pitch-velocity/midi"
	"pitch-velocity/velocity"
)

// Stats summarizes a render
type Stats struct {
	Tracks   int
	Events   int // channel events seen
	Remapped int
	Dropped  int
}

// File reads in, remaps every track and writes out
func File(in, out string, p velocity.Params) (Stats, error) {
	if err := p.Validate(); err != nil {
		return Stats{}, err
	}

	s, err := smf.ReadFile(in)
	if err != nil {
		return Stats{}, fmt.Errorf("read %s: %w", in, err)
	}

	st := Transform(s, p)

	if err := s.WriteFile(out); err != nil {
		return st, fmt.Errorf("write %s: %w", out, err)
	}
	debug.Log("render", "%s -> %s tracks=%d events=%d remapped=%d dropped=%d",
		in, out, st.Tracks, st.Events, st.Remapped, st.Dropped)
	return st, nil
}

// Transform remaps s in place. Meta and sysex events are container data and
// are kept as they are; channel events go through the router.
func Transform(s *smf.SMF, p velocity.Params) Stats {
	st := Stats{Tracks: len(s.Tracks)}
	for i, tr := range s.Tracks {
		s.Tracks[i] = transformTrack(tr, p, &st)
	}
	return st
}

func transformTrack(tr smf.Track, p velocity.Params, st *Stats) smf.Track {
	out := make(smf.Track, 0, len(tr))
	var abs, lastKept int64

	for _, ev := range tr {
		abs += int64(ev.Delta)

		msg := ev.Message
		if isChannelMessage(msg) {
			st.Events++
			e := midi.FromMessage(gomidi.Message(msg), abs)
			routed, ok := velocity.Route(e, p)
			if !ok {
				st.Dropped++
				continue
			}
			if !p.Bypass && routed.Kind == midi.NoteOn {
				st.Remapped++
			}
			msg = smf.Message(routed.Message())
		}

		out = append(out, smf.Event{
			Delta:   uint32(abs - lastKept),
			Message: msg,
		})
		lastKept = abs
	}
	return out
}

func isChannelMessage(msg smf.Message) bool {
	return len(msg) > 0 && msg[0] >= 0x80 && msg[0] < 0xF0
}
