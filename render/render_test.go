package render

import (
	"path/filepath"
	"testing"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"pitch-velocity/midi"
	"pitch-velocity/velocity"
)

func testSMF(t *testing.T) *smf.SMF {
	t.Helper()
	s := smf.New()
	s.TimeFormat = smf.MetricTicks(480)

	var tr smf.Track
	tr.Add(0, smf.MetaTrackSequenceName("piano"))
	tr.Add(0, smf.MetaTempo(120))
	tr.Add(0, gomidi.NoteOn(0, 63, 100))
	tr.Add(240, gomidi.ProgramChange(0, 4))
	tr.Add(240, gomidi.NoteOff(0, 63))
	tr.Add(0, gomidi.ControlChange(0, 64, 127))
	tr.Add(480, gomidi.NoteOn(0, 127, 1))
	tr.Close(480)

	if err := s.Add(tr); err != nil {
		t.Fatalf("add track: %v", err)
	}
	return s
}

type absEvent struct {
	tick int64
	msg  smf.Message
}

func absolute(tr smf.Track) []absEvent {
	var abs int64
	out := make([]absEvent, 0, len(tr))
	for _, ev := range tr {
		abs += int64(ev.Delta)
		out = append(out, absEvent{tick: abs, msg: ev.Message})
	}
	return out
}

func isMeta(msg smf.Message, typ byte) bool {
	return len(msg) > 1 && msg[0] == 0xFF && msg[1] == typ
}

func TestTransformKeepsTiming(t *testing.T) {
	s := testSMF(t)
	before := absolute(s.Tracks[0])

	st := Transform(s, velocity.DefaultParams())
	if st.Tracks != 1 || st.Events != 5 || st.Remapped != 2 || st.Dropped != 1 {
		t.Errorf("Unexpected stats %+v", st)
	}

	after := absolute(s.Tracks[0])
	if len(after) != len(before)-1 {
		t.Fatalf("Expected %d events, got %d", len(before)-1, len(after))
	}

	// note off keeps its absolute tick even though the program change before it is gone
	var offTick int64 = -1
	for _, ev := range after {
		var ch, key, vel uint8
		if gomidi.Message(ev.msg).GetNoteOff(&ch, &key, &vel) {
			offTick = ev.tick
		}
	}
	if offTick != 480 {
		t.Errorf("Expected note off at tick 480, got %d", offTick)
	}

	// end of track stays last, at the original position
	last := after[len(after)-1]
	if !isMeta(last.msg, 0x2F) {
		t.Errorf("Expected end of track last, got %v", last.msg)
	}
	if last.tick != before[len(before)-1].tick {
		t.Errorf("Expected end of track at %d, got %d", before[len(before)-1].tick, last.tick)
	}

	// meta events untouched
	if !isMeta(after[0].msg, 0x03) || !isMeta(after[1].msg, 0x51) {
		t.Errorf("Meta events not preserved: %v %v", after[0].msg, after[1].msg)
	}
}

func TestTransformRemapsVelocities(t *testing.T) {
	s := testSMF(t)
	Transform(s, velocity.Params{MinVelocity: 10, MaxVelocity: 127, Curve: 1})

	var vels []uint8
	for _, ev := range s.Tracks[0] {
		e := midi.FromMessage(gomidi.Message(ev.Message), 0)
		if e.Kind == midi.NoteOn {
			vels = append(vels, e.Velocity)
		}
	}
	if len(vels) != 2 || vels[0] != 68 || vels[1] != 127 {
		t.Errorf("Expected velocities [68 127], got %v", vels)
	}
}

func TestTransformBypass(t *testing.T) {
	s := testSMF(t)
	before := absolute(s.Tracks[0])

	st := Transform(s, velocity.Params{MinVelocity: 1, MaxVelocity: 1, Curve: 1, Bypass: true})
	if st.Dropped != 0 || st.Remapped != 0 {
		t.Errorf("Bypass should not drop or remap, got %+v", st)
	}

	after := absolute(s.Tracks[0])
	if len(after) != len(before) {
		t.Fatalf("Expected %d events, got %d", len(before), len(after))
	}
	for i := range after {
		if after[i].tick != before[i].tick || string(after[i].msg) != string(before[i].msg) {
			t.Errorf("event %d changed: %v@%d -> %v@%d", i, before[i].msg, before[i].tick, after[i].msg, after[i].tick)
		}
	}
}

func TestFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.mid")
	out := filepath.Join(dir, "out.mid")

	if err := testSMF(t).WriteFile(in); err != nil {
		t.Fatalf("write input: %v", err)
	}

	st, err := File(in, out, velocity.Params{MinVelocity: 127, MaxVelocity: 10, Curve: 1})
	if err != nil {
		t.Fatalf("File: %v", err)
	}
	if st.Remapped != 2 {
		t.Errorf("Expected 2 remapped, got %+v", st)
	}

	s, err := smf.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if tf, ok := s.TimeFormat.(smf.MetricTicks); !ok || tf.Resolution() != 480 {
		t.Errorf("Expected 480 ticks per quarter, got %v", s.TimeFormat)
	}

	var vels []uint8
	for _, ev := range s.Tracks[0] {
		var ch, key, vel uint8
		if gomidi.Message(ev.Message).GetNoteStart(&ch, &key, &vel) {
			vels = append(vels, vel)
		}
	}
	// inverted range: low note loud, high note soft
	if len(vels) != 2 || vels[0] != 68 || vels[1] != 10 {
		t.Errorf("Expected velocities [68 10], got %v", vels)
	}
}

func TestFileRejectsInvalidParams(t *testing.T) {
	_, err := File("unused.mid", "unused-out.mid", velocity.Params{MinVelocity: 10, MaxVelocity: 127, Curve: 0})
	if err == nil {
		t.Error("Expected validation error")
	}
}

func TestFileMissingInput(t *testing.T) {
	dir := t.TempDir()
	_, err := File(filepath.Join(dir, "missing.mid"), filepath.Join(dir, "out.mid"), velocity.DefaultParams())
	if err == nil {
		t.Error("Expected read error")
	}
}
