package gadget

import (
	"strings"
	"testing"
	"time"

	"github.com/Conceptual-Machines/dawscript-go/host"
	"github.com/Conceptual-Machines/dawscript-go/host/hosttest"
	"github.com/Conceptual-Machines/dawscript-go/metrics"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/gomidi/midi/v2"
)

type clock struct{ t time.Time }

func newClock() *clock { return &clock{t: time.Unix(1000, 0)} }

func (c *clock) now() time.Time { return c.t }

func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func footswitch(c *clock) *Footswitch {
	f := NewFootswitch("fs")
	f.now = c.now
	return f
}

func TestFootswitchGestures(t *testing.T) {
	type step struct {
		after time.Duration
		press bool
	}
	tests := []struct {
		name  string
		steps []step
		want  []State
	}{
		{"tap", []step{{0, true}, {50 * time.Millisecond, false}}, []State{Pressed, Released}},
		{"double press", []step{{0, true}, {50 * time.Millisecond, false}, {100 * time.Millisecond, true}, {50 * time.Millisecond, false}}, []State{Pressed, PressedTwice}},
		{"two slow taps", []step{{0, true}, {50 * time.Millisecond, false}, {400 * time.Millisecond, true}, {50 * time.Millisecond, false}}, []State{Pressed, Released, Pressed, Released}},
		{"hold", []step{{0, true}, {500 * time.Millisecond, false}}, []State{Pressed, Released}},
		{"long hold", []step{{0, true}, {1500 * time.Millisecond, false}}, []State{Pressed, ReleasedSlow}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newClock()
			f := footswitch(c)
			var got []State
			for _, s := range tt.steps {
				c.advance(s.after)
				if s.press {
					f.Press()
				} else {
					f.Release()
				}
				got = append(got, f.Poll()...)
			}
			c.advance(PressTwiceWindow)
			got = append(got, f.Poll()...)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFootswitchTapWaitsForWindow(t *testing.T) {
	c := newClock()
	f := footswitch(c)
	f.Press()
	c.advance(20 * time.Millisecond)
	f.Release()
	assert.Equal(t, []State{Pressed}, f.Poll())

	c.advance(100 * time.Millisecond)
	assert.Empty(t, f.Poll())
	c.advance(PressTwiceWindow)
	assert.Equal(t, []State{Released}, f.Poll())

	s, ok := f.State()
	assert.True(t, ok)
	assert.Equal(t, Released, s)
}

func TestParseTrigger(t *testing.T) {
	tests := []struct {
		in      string
		channel uint8
		omni    bool
		want    Trigger
		wantErr string
	}{
		{in: "control_change 64 127", channel: 2, want: Trigger{Kind: ControlChange, Channel: 1, Number: 64, Value: 127}},
		{in: "note_on 36", omni: true, want: Trigger{Kind: NoteOn, Omni: true, Number: 36}},
		{in: "note_off 36", channel: 16, want: Trigger{Kind: NoteOff, Channel: 15, Number: 36}},
		{in: "pitch_bend 1", channel: 1, wantErr: "not supported"},
		{in: "control_change 64", channel: 1, wantErr: "takes 2 numbers"},
		{in: "note_on 200", channel: 1, wantErr: "invalid data byte"},
		{in: "note_on 1", channel: 17, wantErr: "out of range"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTrigger(tt.in, tt.channel, tt.omni)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTriggerMatch(t *testing.T) {
	cc := Trigger{Kind: ControlChange, Channel: 0, Number: 64, Value: 127}
	assert.True(t, cc.Match(midi.ControlChange(0, 64, 127)))
	assert.False(t, cc.Match(midi.ControlChange(0, 64, 0)))
	assert.False(t, cc.Match(midi.ControlChange(1, 64, 127)))
	assert.True(t, cc.Match(cc.Message()))

	off := Trigger{Kind: NoteOff, Omni: true, Number: 36}
	assert.True(t, off.Match(midi.NoteOff(9, 36)))
	assert.True(t, off.Match(midi.NoteOn(3, 36, 0)), "note on with zero velocity")
	assert.False(t, off.Match(midi.NoteOn(3, 36, 100)))
}

const gadgetFile = `
- footswitch:
    name: Drums mute
    midi:
      port: FCB1010
      channel: 1
      press: control_change 64 127
      release: control_change 64 0
    gestures:
      pressed: toggle_track_mute_by_name, Drums
      released_slow: log, held
- footswitch:
    midi:
      press: note_on 36
      release: note_off 36
    gestures:
      pressed_twice: display, twice
`

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig(strings.NewReader(gadgetFile))
	require.NoError(t, err)
	require.Len(t, cfg.Gadgets, 2)
	assert.Len(t, cfg.Bindings, 3)
	assert.Equal(t, []string{"FCB1010"}, cfg.MIDIInputs)
	assert.Equal(t, "Drums mute", cfg.Gadgets[0].Name)
}

func TestParseConfigErrors(t *testing.T) {
	tests := []struct{ doc, want string }{
		{"- pedal: {}", "type not supported"},
		{"- footswitch: {midi: {press: note_on 1, channel: 0}}", "channel must be 1-16"},
		{"- footswitch: {midi: {press: foo 1}}", "press"},
		{"- footswitch: {midi: {press: note_on 1}, gestures: {tapped: log}}", "unknown gesture"},
	}
	for _, tt := range tests {
		_, err := ParseConfig(strings.NewReader(tt.doc))
		assert.ErrorContains(t, err, tt.want, tt.doc)
	}

	cfg, err := ParseConfig(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, cfg.Gadgets)
}

func TestParseAction(t *testing.T) {
	a, err := ParseAction(" set_track_volume , Drums, -6.5 ")
	require.NoError(t, err)
	assert.Equal(t, Action{Func: "set_track_volume", Args: []any{"Drums", -6.5}}, a)

	_, err = ParseAction(" , x")
	assert.Error(t, err)
}

func TestControllerRunsActions(t *testing.T) {
	cfg, err := ParseConfig(strings.NewReader(gadgetFile))
	require.NoError(t, err)
	log, _ := test.NewNullLogger()

	backend := hosttest.NewBackend()
	drums := backend.AddTrack("Drums", host.TrackAudio)
	ctrl := NewController(cfg, log)
	s := host.NewSession(backend, ctrl, host.WithLogger(log), host.WithMetrics(metrics.Disabled()))
	d := host.NewDriver(s)
	s.Start()
	defer s.Teardown()

	assert.Equal(t, []string{"FCB1010"}, s.Config().MIDIInputs)

	backend.PushMIDI(0xb0, 64, 127)
	d.Tick()
	assert.True(t, drums.Mute())

	backend.PushMIDI(0xb1, 64, 127)
	d.Tick()
	assert.True(t, drums.Mute(), "other channels are ignored")

	backend.PushMIDI(0xb0, 64, 0)
	backend.PushMIDI(0xb0, 64, 127)
	d.Tick()
	assert.True(t, drums.Mute(), "a quick second press is a double press")
}
