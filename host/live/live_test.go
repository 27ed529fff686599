package live

import (
	"context"
	"math"
	"testing"

	"github.com/Conceptual-Machines/dawscript-go/host"
	"github.com/Conceptual-Machines/dawscript-go/metrics"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type listeners struct {
	next int
	fns  map[int]func()
}

func (l *listeners) add(fn func()) func() {
	if l.fns == nil {
		l.fns = map[int]func(){}
	}
	l.next++
	id := l.next
	l.fns[id] = fn
	return func() { delete(l.fns, id) }
}

func (l *listeners) fire() {
	for _, fn := range l.fns {
		fn()
	}
}

type fakeParam struct {
	name      string
	value     float64
	min, max  float64
	listeners listeners
}

func (p *fakeParam) Name() string                      { return p.name }
func (p *fakeParam) Value() float64                    { return p.value }
func (p *fakeParam) Min() float64                      { return p.min }
func (p *fakeParam) Max() float64                      { return p.max }
func (p *fakeParam) AddValueListener(fn func()) func() { return p.listeners.add(fn) }

func (p *fakeParam) SetValue(v float64) {
	p.value = v
	p.listeners.fire()
}

type fakeDevice struct {
	name   string
	params []*fakeParam
}

func (d *fakeDevice) Name() string { return d.name }

func (d *fakeDevice) Parameters() []DeviceParameter {
	params := make([]DeviceParameter, len(d.params))
	for i, p := range d.params {
		params[i] = p
	}
	return params
}

type fakeMixer struct {
	volume, panning *fakeParam
}

func (m *fakeMixer) Volume() DeviceParameter  { return m.volume }
func (m *fakeMixer) Panning() DeviceParameter { return m.panning }

type fakeTrack struct {
	name      string
	midi      bool
	foldable  bool
	mute      bool
	mixer     *fakeMixer
	devices   []*fakeDevice
	listeners listeners
}

func newTrack(name string) *fakeTrack {
	return &fakeTrack{
		name:  name,
		mixer: &fakeMixer{volume: &fakeParam{name: "Track Volume", value: 0.85, max: 1}, panning: &fakeParam{name: "Track Panning", min: -1, max: 1}},
	}
}

func (t *fakeTrack) Name() string                     { return t.name }
func (t *fakeTrack) HasMIDIInput() bool               { return t.midi }
func (t *fakeTrack) IsFoldable() bool                 { return t.foldable }
func (t *fakeTrack) Mute() bool                       { return t.mute }
func (t *fakeTrack) AddMuteListener(fn func()) func() { return t.listeners.add(fn) }
func (t *fakeTrack) MixerDevice() MixerDevice         { return t.mixer }

func (t *fakeTrack) SetMute(mute bool) {
	t.mute = mute
	t.listeners.fire()
}

func (t *fakeTrack) Devices() []Device {
	devices := make([]Device, len(t.devices))
	for i, d := range t.devices {
		devices[i] = d
	}
	return devices
}

type fakeSong struct {
	tracks, returns []*fakeTrack
}

func (s *fakeSong) Tracks() []Track       { return toTracks(s.tracks) }
func (s *fakeSong) ReturnTracks() []Track { return toTracks(s.returns) }

func toTracks(in []*fakeTrack) []Track {
	out := make([]Track, len(in))
	for i, t := range in {
		out[i] = t
	}
	return out
}

type fakeApp struct {
	song     *fakeSong
	logs     []string
	messages []string
}

func (a *fakeApp) Song() Song           { return a.song }
func (a *fakeApp) LogMessage(m string)  { a.logs = append(a.logs, m) }
func (a *fakeApp) ShowMessage(m string) { a.messages = append(a.messages, m) }

func newApp() (*fakeApp, *fakeTrack) {
	synth := newTrack("Synth")
	synth.midi = true
	synth.devices = []*fakeDevice{{
		name: "Wavetable",
		params: []*fakeParam{
			{name: "Device On", value: 1, max: 1},
			{name: "Filter Freq", value: 0.5, max: 1},
		},
	}}
	group := newTrack("Group")
	group.foldable = true
	return &fakeApp{song: &fakeSong{
		tracks:  []*fakeTrack{synth, newTrack("Vox"), group},
		returns: []*fakeTrack{newTrack("Reverb")},
	}}, synth
}

type controller struct {
	events []string
	midi   [][][]byte
	f      *host.Facade
}

func (c *controller) OnScriptStart(f *host.Facade) error {
	c.f = f
	return nil
}

func (c *controller) OnProjectLoad() error {
	c.events = append(c.events, "project")
	return nil
}

func (c *controller) HostCallback(midi [][]byte) error {
	c.midi = append(c.midi, midi)
	return nil
}

func opts() []host.SessionOption {
	log, _ := test.NewNullLogger()
	return []host.SessionOption{host.WithLogger(log), host.WithMetrics(metrics.Disabled())}
}

func TestTrackTypes(t *testing.T) {
	app, _ := newApp()
	cs := NewControlSurface(app, nil, opts()...)
	f := cs.Session().Facade()

	tracks, err := f.Tracks()
	require.NoError(t, err)
	require.Len(t, tracks, 4)

	var types []host.TrackType
	for _, tr := range tracks {
		typ, err := f.TrackType(tr)
		require.NoError(t, err)
		types = append(types, typ)
	}
	assert.Equal(t, []host.TrackType{host.TrackMIDI, host.TrackAudio, host.TrackOther, host.TrackOther}, types)
}

func TestDeviceOnBacksPluginEnabled(t *testing.T) {
	app, synth := newApp()
	f := NewControlSurface(app, nil, opts()...).Session().Facade()

	plugin, err := f.TrackPluginByName(synth, "wavetable")
	require.NoError(t, err)

	params, err := f.PluginParameters(plugin)
	require.NoError(t, err)
	require.Len(t, params, 1)
	name, err := f.ParameterName(params[0])
	require.NoError(t, err)
	assert.Equal(t, "Filter Freq", name)

	enabled, err := f.IsPluginEnabled(plugin)
	require.NoError(t, err)
	assert.True(t, enabled)

	require.NoError(t, f.SetPluginEnabled(plugin, false))
	assert.Zero(t, synth.devices[0].params[0].value)
}

func TestVolumeConversion(t *testing.T) {
	app, synth := newApp()
	f := NewControlSurface(app, nil, opts()...).Session().Facade()

	db, err := f.TrackVolume(synth)
	require.NoError(t, err)
	assert.InDelta(t, 0, db, 1e-9)

	require.NoError(t, f.SetTrackVolume(synth, math.Inf(-1)))
	assert.Zero(t, synth.mixer.volume.value)
}

func TestListenersDeferredToDisplayUpdate(t *testing.T) {
	app, synth := newApp()
	c := &controller{}
	cs := NewControlSurface(app, c, opts()...)
	require.NotNil(t, c.f)

	var got []bool
	_, err := c.f.AddTrackMuteListener(synth, func(m bool) { got = append(got, m) })
	require.NoError(t, err)
	_, err = c.f.AddTrackMuteListener(synth, func(bool) {})
	require.NoError(t, err)
	assert.Len(t, synth.listeners.fns, 1, "one native listener per property")

	synth.SetMute(true)
	assert.Empty(t, got)

	cs.ReceiveMIDI([]byte{0x90, 60, 100})
	cs.UpdateDisplay()
	assert.Equal(t, []bool{true}, got)
	assert.Equal(t, [][]byte{{0x90, 60, 100}}, c.midi[0])
	assert.Len(t, c.events, 1)

	cs.UpdateDisplay()
	assert.Len(t, c.events, 1, "project load fires once per surface")

	cs.Disconnect()
	assert.Empty(t, synth.listeners.fns)
	_, err = c.f.Tracks()
	assert.ErrorIs(t, err, host.ErrStaleHandle)
}

func TestEachSurfaceIsANewProject(t *testing.T) {
	app, _ := newApp()
	c := &controller{}

	first := NewControlSurface(app, c, opts()...)
	first.UpdateDisplay()
	first.Disconnect()

	second := NewControlSurface(app, c, opts()...)
	second.UpdateDisplay()
	assert.Len(t, c.events, 2)
}

type fakeBinding struct {
	app     *fakeApp
	surface Surface
}

func (b *fakeBinding) Serve(ctx context.Context, newSurface func(Application) Surface) error {
	b.surface = newSurface(b.app)
	b.surface.UpdateDisplay()
	<-ctx.Done()
	b.surface.Disconnect()
	return nil
}

func TestRunServesRegisteredBinding(t *testing.T) {
	Register(nil)
	assert.ErrorIs(t, Probe(), host.ErrIncompatibleEnvironment)

	app, _ := newApp()
	b := &fakeBinding{app: app}
	Register(b)
	defer Register(nil)
	require.NoError(t, Probe())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := &controller{}
	require.NoError(t, Run(ctx, c, opts()...))
	assert.Len(t, c.events, 1)
	assert.Equal(t, host.StateTornDown, b.surface.(*ControlSurface).Session().State())
}
