package velocity

import "pitch-velocity/midi"

// Route applies the remap policy to a single event.
// It returns false when the event is dropped.
func Route(e midi.Event, p Params) (midi.Event, bool) {
	if p.Bypass {
		return e, true
	}

	switch e.Kind {
	case midi.NoteOn:
		v := Clamp(Map(int(e.Note), p.MinVelocity, p.MaxVelocity, p.Curve))
		return midi.NewNoteOn(e.Channel, e.Note, uint8(v), e.Offset), true
	case midi.NoteOff, midi.ControlChange, midi.PitchBend, midi.ChannelPressure, midi.PolyPressure:
		return e, true
	default:
		return e, false
	}
}

// Process routes one block. Order and offsets of kept events are preserved and
// the input slice is never modified. With bypass set the input is returned as is.
func Process(events []midi.Event, p Params) []midi.Event {
	if p.Bypass {
		return events
	}

	out := make([]midi.Event, 0, len(events))
	for _, e := range events {
		if routed, ok := Route(e, p); ok {
			out = append(out, routed)
		}
	}
	return out
}
