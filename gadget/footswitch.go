// Package gadget turns raw MIDI from simple hardware into gestures, and maps
// gestures to facade calls from a YAML file.
package gadget

import (
	"time"

	"gitlab.com/gomidi/midi/v2"
)

// State is a footswitch gesture.
type State int

const (
	Pressed State = iota
	Released
	ReleasedSlow
	PressedTwice
)

var stateNames = map[State]string{
	Pressed:      "pressed",
	Released:     "released",
	ReleasedSlow: "released_slow",
	PressedTwice: "pressed_twice",
}

func (s State) String() string {
	return stateNames[s]
}

// ParseState accepts the names returned by State.String.
func ParseState(name string) (State, bool) {
	for s, n := range stateNames {
		if n == name {
			return s, true
		}
	}
	return 0, false
}

const (
	// PressTwiceWindow is the longest gap between two presses that still
	// counts as a double press.
	PressTwiceWindow = 300 * time.Millisecond
	// SlowReleaseThreshold is the shortest hold reported as ReleasedSlow.
	SlowReleaseThreshold = time.Second
)

type mapping struct {
	trigger Trigger
	press   bool
}

// Footswitch detects gestures on a single switch. A short tap reports
// Pressed, then Released once the double press window has passed without a
// second press. A second press inside the window reports PressedTwice
// instead. Holding longer than the window reports Released on release, or
// ReleasedSlow past SlowReleaseThreshold.
//
// Not safe for concurrent use.
type Footswitch struct {
	Name string

	now       func() time.Time
	mappings  []mapping
	callbacks map[State]func()

	down     bool
	second   bool
	pressT   time.Time
	tapT     time.Time
	tapDue   bool
	pending  []State
	lastSeen State
	seen     bool
}

func NewFootswitch(name string) *Footswitch {
	return &Footswitch{Name: name, now: time.Now, callbacks: make(map[State]func())}
}

// MapPress makes messages matching t press the switch.
func (f *Footswitch) MapPress(t Trigger) {
	f.mappings = append(f.mappings, mapping{trigger: t, press: true})
}

// MapRelease makes messages matching t release the switch.
func (f *Footswitch) MapRelease(t Trigger) {
	f.mappings = append(f.mappings, mapping{trigger: t})
}

// On sets the callback for s, replacing any previous one.
func (f *Footswitch) On(s State, fn func()) {
	f.callbacks[s] = fn
}

func (f *Footswitch) Press() {
	now := f.now()
	if f.down {
		return
	}
	f.down = true
	f.pressT = now

	if f.tapDue && now.Sub(f.tapT) < PressTwiceWindow {
		f.tapDue = false
		f.second = true
		f.emit(PressedTwice)
		return
	}
	f.flushTap(now)
	f.second = false
	f.emit(Pressed)
}

func (f *Footswitch) Release() {
	if !f.down {
		return
	}
	now := f.now()
	f.down = false
	if f.second {
		f.second = false
		return
	}

	held := now.Sub(f.pressT)
	switch {
	case held >= SlowReleaseThreshold:
		f.emit(ReleasedSlow)
	case held >= PressTwiceWindow:
		f.emit(Released)
	default:
		f.tapDue = true
		f.tapT = f.pressT
	}
}

// Add feeds one MIDI message to the switch.
func (f *Footswitch) Add(msg midi.Message) {
	for _, m := range f.mappings {
		if !m.trigger.Match(msg) {
			continue
		}
		if m.press {
			f.Press()
		} else {
			f.Release()
		}
	}
}

// Poll returns the gestures completed since the previous poll, oldest first.
func (f *Footswitch) Poll() []State {
	f.flushTap(f.now())
	out := f.pending
	f.pending = nil
	return out
}

// State returns the most recent gesture. ok is false until the first one.
func (f *Footswitch) State() (s State, ok bool) {
	return f.lastSeen, f.seen
}

// Process feeds a host callback batch and runs the callbacks of the
// resulting gestures.
func (f *Footswitch) Process(batch [][]byte) {
	for _, b := range batch {
		f.Add(midi.Message(b))
	}
	for _, s := range f.Poll() {
		if fn, ok := f.callbacks[s]; ok {
			fn()
		}
	}
}

func (f *Footswitch) flushTap(now time.Time) {
	if f.tapDue && now.Sub(f.tapT) >= PressTwiceWindow {
		f.tapDue = false
		f.emit(Released)
	}
}

func (f *Footswitch) emit(s State) {
	f.pending = append(f.pending, s)
	f.lastSeen = s
	f.seen = true
}
