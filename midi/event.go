package midi

import (
	"fmt"

	gomidi "gitlab.com/gomidi/midi/v2"
)

// Kind classifies an event for routing
type Kind uint8

const (
	Other Kind = iota
	NoteOn
	NoteOff
	ControlChange
	PitchBend
	ChannelPressure
	PolyPressure // polyphonic aftertouch
)

func (k Kind) String() string {
	switch k {
	case NoteOn:
		return "NoteOn"
	case NoteOff:
		return "NoteOff"
	case ControlChange:
		return "CC"
	case PitchBend:
		return "PitchBend"
	case ChannelPressure:
		return "ChanPressure"
	case PolyPressure:
		return "PolyPressure"
	default:
		return "Other"
	}
}

// Event is one MIDI message inside a block.
// Channel is 1-16. Offset is the position inside the block (samples, ms or ticks,
// whatever the host uses) and is never rewritten by routing.
type Event struct {
	Kind       Kind
	Channel    uint8
	Note       uint8 // NoteOn, NoteOff, PolyPressure
	Velocity   uint8 // NoteOn, NoteOff
	Controller uint8 // ControlChange
	Value      int16 // CC value, pressure, or relative pitch bend
	Offset     int64
	Raw        gomidi.Message
}

// FromMessage decodes a wire message. A note-on with velocity 0 is a NoteOff.
// The raw bytes are copied so the event outlives the driver's buffer.
func FromMessage(msg gomidi.Message, offset int64) Event {
	e := Event{
		Offset: offset,
		Raw:    append(gomidi.Message(nil), msg...),
	}

	var ch, key, vel, ctrl, val uint8
	var rel int16
	var abs uint16

	switch {
	case msg.GetNoteStart(&ch, &key, &vel):
		e.Kind, e.Note, e.Velocity = NoteOn, key, vel
	case msg.GetNoteOff(&ch, &key, &vel):
		e.Kind, e.Note, e.Velocity = NoteOff, key, vel
	case msg.GetNoteEnd(&ch, &key):
		// note-on with velocity 0
		e.Kind, e.Note = NoteOff, key
	case msg.GetControlChange(&ch, &ctrl, &val):
		e.Kind, e.Controller, e.Value = ControlChange, ctrl, int16(val)
	case msg.GetPitchBend(&ch, &rel, &abs):
		e.Kind, e.Value = PitchBend, rel
	case msg.GetAfterTouch(&ch, &val):
		e.Kind, e.Value = ChannelPressure, int16(val)
	case msg.GetPolyAfterTouch(&ch, &key, &val):
		e.Kind, e.Note, e.Value = PolyPressure, key, int16(val)
	default:
		return e
	}

	e.Channel = ch + 1
	return e
}

// NewNoteOn builds a note-on event (channel 1-16)
func NewNoteOn(channel, note, velocity uint8, offset int64) Event {
	return Event{
		Kind:     NoteOn,
		Channel:  channel,
		Note:     note,
		Velocity: velocity,
		Offset:   offset,
		Raw:      gomidi.NoteOn(channel-1, note, velocity),
	}
}

// NewNoteOff builds a note-off event (channel 1-16)
func NewNoteOff(channel, note uint8, offset int64) Event {
	return Event{
		Kind:    NoteOff,
		Channel: channel,
		Note:    note,
		Offset:  offset,
		Raw:     gomidi.NoteOff(channel-1, note),
	}
}

// NewControlChange builds a CC event (channel 1-16)
func NewControlChange(channel, controller, value uint8, offset int64) Event {
	return Event{
		Kind:       ControlChange,
		Channel:    channel,
		Controller: controller,
		Value:      int16(value),
		Offset:     offset,
		Raw:        gomidi.ControlChange(channel-1, controller, value),
	}
}

// Message returns the wire form. Raw wins when present so pass-through is byte exact.
func (e Event) Message() gomidi.Message {
	if len(e.Raw) > 0 {
		return e.Raw
	}
	ch := e.Channel - 1
	switch e.Kind {
	case NoteOn:
		return gomidi.NoteOn(ch, e.Note, e.Velocity)
	case NoteOff:
		return gomidi.NoteOffVelocity(ch, e.Note, e.Velocity)
	case ControlChange:
		return gomidi.ControlChange(ch, e.Controller, uint8(e.Value))
	case PitchBend:
		return gomidi.Pitchbend(ch, e.Value)
	case ChannelPressure:
		return gomidi.AfterTouch(ch, uint8(e.Value))
	case PolyPressure:
		return gomidi.PolyAfterTouch(ch, e.Note, uint8(e.Value))
	}
	return nil
}

func (e Event) String() string {
	switch e.Kind {
	case NoteOn, NoteOff:
		return fmt.Sprintf("%s{ch:%d, note:%s, vel:%d, offset:%d}",
			e.Kind, e.Channel, NoteName(e.Note), e.Velocity, e.Offset)
	case ControlChange:
		return fmt.Sprintf("CC{ch:%d, ctrl:%d, val:%d, offset:%d}",
			e.Channel, e.Controller, e.Value, e.Offset)
	case Other:
		return fmt.Sprintf("Other{% X, offset:%d}", []byte(e.Raw), e.Offset)
	default:
		return fmt.Sprintf("%s{ch:%d, val:%d, offset:%d}", e.Kind, e.Channel, e.Value, e.Offset)
	}
}

var noteNames = []string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// NoteName converts a MIDI note number to a name like C4 (middle C = 60)
func NoteName(note uint8) string {
	octave := int(note)/12 - 1
	return fmt.Sprintf("%s%d", noteNames[note%12], octave)
}
