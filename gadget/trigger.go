package gadget

import (
	"fmt"
	"strconv"
	"strings"

	"gitlab.com/gomidi/midi/v2"
)

// Kind is the message type a Trigger matches.
type Kind int

const (
	NoteOn Kind = iota
	NoteOff
	ControlChange
)

// Trigger matches incoming MIDI messages.
type Trigger struct {
	Kind Kind
	// Channel is zero based and ignored when Omni is set.
	Channel uint8
	Omni    bool
	// Number is the note or controller number.
	Number uint8
	// Value is the controller value. Unused for notes.
	Value uint8
}

// ParseTrigger parses "control_change <controller> <value>",
// "note_on <note>" or "note_off <note>". channel is one based.
func ParseTrigger(s string, channel uint8, omni bool) (Trigger, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return Trigger{}, fmt.Errorf("empty message")
	}

	t := Trigger{Omni: omni}
	if !omni {
		if channel < 1 || channel > 16 {
			return Trigger{}, fmt.Errorf("channel %d out of range 1-16", channel)
		}
		t.Channel = channel - 1
	}

	want := 2
	switch fields[0] {
	case "control_change":
		t.Kind = ControlChange
		want = 3
	case "note_on":
		t.Kind = NoteOn
	case "note_off":
		t.Kind = NoteOff
	default:
		return Trigger{}, fmt.Errorf("message type not supported: %s", fields[0])
	}
	if len(fields) != want {
		return Trigger{}, fmt.Errorf("%s takes %d numbers, got %q", fields[0], want-1, s)
	}

	data := make([]uint8, 0, 2)
	for _, f := range fields[1:] {
		n, err := strconv.ParseUint(f, 10, 7)
		if err != nil {
			return Trigger{}, fmt.Errorf("%s: invalid data byte %q", fields[0], f)
		}
		data = append(data, uint8(n))
	}
	t.Number = data[0]
	if t.Kind == ControlChange {
		t.Value = data[1]
	}
	return t, nil
}

// Match reports whether msg triggers t. Note on with velocity zero counts as
// note off.
func (t Trigger) Match(msg midi.Message) bool {
	var ch, num, val uint8
	var ok bool
	switch t.Kind {
	case ControlChange:
		ok = msg.GetControlChange(&ch, &num, &val) && val == t.Value
	case NoteOn:
		ok = msg.GetNoteStart(&ch, &num, &val)
	case NoteOff:
		ok = msg.GetNoteEnd(&ch, &num)
	}
	return ok && num == t.Number && (t.Omni || ch == t.Channel)
}

// Message returns the MIDI message t matches, on channel 1 when omni.
func (t Trigger) Message() midi.Message {
	switch t.Kind {
	case ControlChange:
		return midi.ControlChange(t.Channel, t.Number, t.Value)
	case NoteOn:
		return midi.NoteOn(t.Channel, t.Number, 127)
	}
	return midi.NoteOff(t.Channel, t.Number)
}
