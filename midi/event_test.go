package midi

import (
	"bytes"
	"testing"

	gomidi "gitlab.com/gomidi/midi/v2"
)

func TestFromMessage(t *testing.T) {
	tests := []struct {
		name    string
		msg     gomidi.Message
		kind    Kind
		channel uint8
		note    uint8
		vel     uint8
		value   int16
	}{
		{"note on", gomidi.NoteOn(0, 60, 100), NoteOn, 1, 60, 100, 0},
		{"note on ch16", gomidi.NoteOn(15, 21, 5), NoteOn, 16, 21, 5, 0},
		{"note off", gomidi.NoteOff(2, 61), NoteOff, 3, 61, 0, 0},
		{"note off velocity", gomidi.NoteOffVelocity(2, 61, 40), NoteOff, 3, 61, 40, 0},
		{"note on zero velocity", gomidi.NoteOn(0, 62, 0), NoteOff, 1, 62, 0, 0},
		{"control change", gomidi.ControlChange(4, 7, 99), ControlChange, 5, 0, 0, 99},
		{"pitch bend", gomidi.Pitchbend(1, -1000), PitchBend, 2, 0, 0, -1000},
		{"channel pressure", gomidi.AfterTouch(9, 45), ChannelPressure, 10, 0, 0, 45},
		{"poly pressure", gomidi.PolyAfterTouch(9, 36, 12), PolyPressure, 10, 36, 0, 12},
		{"program change", gomidi.ProgramChange(0, 3), Other, 0, 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := FromMessage(tt.msg, 42)
			if e.Kind != tt.kind {
				t.Errorf("Expected kind %v, got %v", tt.kind, e.Kind)
			}
			if e.Channel != tt.channel {
				t.Errorf("Expected channel %d, got %d", tt.channel, e.Channel)
			}
			if e.Note != tt.note {
				t.Errorf("Expected note %d, got %d", tt.note, e.Note)
			}
			if e.Velocity != tt.vel {
				t.Errorf("Expected velocity %d, got %d", tt.vel, e.Velocity)
			}
			if e.Value != tt.value {
				t.Errorf("Expected value %d, got %d", tt.value, e.Value)
			}
			if e.Offset != 42 {
				t.Errorf("Expected offset 42, got %d", e.Offset)
			}
			if !bytes.Equal(e.Message(), tt.msg) {
				t.Errorf("Expected raw % X, got % X", []byte(tt.msg), []byte(e.Message()))
			}
		})
	}
}

func TestFromMessageCopiesBytes(t *testing.T) {
	buf := []byte(gomidi.NoteOn(0, 60, 100))
	e := FromMessage(buf, 0)
	buf[2] = 1
	if e.Raw[2] != 100 {
		t.Errorf("Event aliases the driver buffer")
	}
}

func TestMessageFromFields(t *testing.T) {
	tests := []struct {
		name     string
		event    Event
		expected gomidi.Message
	}{
		{"note on", Event{Kind: NoteOn, Channel: 1, Note: 60, Velocity: 90}, gomidi.NoteOn(0, 60, 90)},
		{"cc", Event{Kind: ControlChange, Channel: 2, Controller: 1, Value: 64}, gomidi.ControlChange(1, 1, 64)},
		{"bend", Event{Kind: PitchBend, Channel: 3, Value: 512}, gomidi.Pitchbend(2, 512)},
		{"pressure", Event{Kind: ChannelPressure, Channel: 4, Value: 10}, gomidi.AfterTouch(3, 10)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.event.Message(); !bytes.Equal(got, tt.expected) {
				t.Errorf("Expected % X, got % X", []byte(tt.expected), []byte(got))
			}
		})
	}

	if msg := (Event{Kind: Other}).Message(); msg != nil {
		t.Errorf("Expected nil message for empty Other, got % X", []byte(msg))
	}
}

func TestConstructors(t *testing.T) {
	on := NewNoteOn(10, 38, 77, 5)
	if !bytes.Equal(on.Raw, gomidi.NoteOn(9, 38, 77)) {
		t.Errorf("Unexpected note on bytes % X", []byte(on.Raw))
	}
	off := NewNoteOff(10, 38, 6)
	if off.Kind != NoteOff || off.Offset != 6 {
		t.Errorf("Unexpected note off %v", off)
	}
	cc := NewControlChange(1, 64, 127, 7)
	if got := FromMessage(cc.Raw, 7); got.Controller != 64 || got.Value != 127 {
		t.Errorf("Unexpected cc decode %v", got)
	}
}

func TestEventString(t *testing.T) {
	e := NewNoteOn(1, 60, 64, 100)
	expected := "NoteOn{ch:1, note:C4, vel:64, offset:100}"
	if e.String() != expected {
		t.Errorf("Expected %s, got %s", expected, e.String())
	}

	cc := NewControlChange(2, 1, 100, 50)
	expected = "CC{ch:2, ctrl:1, val:100, offset:50}"
	if cc.String() != expected {
		t.Errorf("Expected %s, got %s", expected, cc.String())
	}
}

func TestNoteName(t *testing.T) {
	tests := []struct {
		note     uint8
		expected string
	}{
		{0, "C-1"},
		{21, "A0"},
		{60, "C4"},
		{69, "A4"},
		{127, "G9"},
	}
	for _, tt := range tests {
		if got := NoteName(tt.note); got != tt.expected {
			t.Errorf("NoteName(%d) = %s, expected %s", tt.note, got, tt.expected)
		}
	}
}

func TestMatchName(t *testing.T) {
	if !MatchName("Keystation 49 MIDI 1", "keystation") {
		t.Error("Expected case-insensitive substring match")
	}
	if MatchName("IAC Bus 1", "") {
		t.Error("Empty want must not match")
	}
	if MatchName("IAC Bus 1", "Launchpad") {
		t.Error("Unexpected match")
	}
}
