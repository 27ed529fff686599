package host_test

import (
	"errors"
	"testing"

	"github.com/Conceptual-Machines/dawscript-go/host"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingController struct {
	events  []string
	batches [][][]byte
	config  host.Config
	failOn  string
	panicOn string
}

func (c *recordingController) hook(name string) error {
	c.events = append(c.events, name)
	if c.panicOn == name {
		panic(name + " exploded")
	}
	if c.failOn == name {
		return errors.New(name + " failed")
	}
	return nil
}

func (c *recordingController) Config() host.Config { return c.config }

func (c *recordingController) OnScriptStart(*host.Facade) error { return c.hook("start") }

func (c *recordingController) OnScriptStop() error { return c.hook("stop") }

func (c *recordingController) OnProjectLoad() error { return c.hook("project") }

func (c *recordingController) HostCallback(midi [][]byte) error {
	c.batches = append(c.batches, midi)
	return c.hook("midi")
}

func TestSessionLifecycle(t *testing.T) {
	c := &recordingController{config: host.Config{MIDIInputs: []string{"FCB"}}}
	f := newFixture(t, c)
	assert.Equal(t, host.StateCompatible, f.session.State())

	f.start()
	assert.Equal(t, host.StateActive, f.session.State())
	assert.Equal(t, []string{"FCB"}, f.session.Config().MIDIInputs)

	f.session.Teardown()
	f.session.Teardown()
	assert.Equal(t, host.StateTornDown, f.session.State())
	assert.Equal(t, []string{"start", "stop"}, c.events)
}

func TestControllerWithoutHooks(t *testing.T) {
	f := newFixture(t, struct{}{}).start()
	f.backend.PushMIDI(0x90, 60, 100)
	f.backend.LoadProject("a.als")

	assert.NotPanics(t, f.driver.Tick)
	assert.Equal(t, host.AllMIDIInputs, f.session.Config())
	f.session.Teardown()
}

func TestTickDeliversMIDIBatchEveryTick(t *testing.T) {
	c := &recordingController{}
	f := newFixture(t, c).start()

	f.backend.PushMIDI(0xb0, 64, 127)
	f.backend.PushMIDI(0x90, 60, 100)
	f.driver.Tick()
	f.driver.Tick()

	require.Len(t, c.batches, 2)
	assert.Equal(t, [][]byte{{0xb0, 64, 127}, {0x90, 60, 100}}, c.batches[0])
	assert.NotNil(t, c.batches[1])
	assert.Empty(t, c.batches[1])
}

func TestProjectLoadFiresOncePerTransition(t *testing.T) {
	c := &recordingController{}
	f := newFixture(t, c).start()
	track := f.backend.AddTrack("Drums", host.TrackAudio)

	f.driver.Tick()
	assert.NotContains(t, c.events, "project")

	f.backend.LoadProject("one")
	f.driver.Tick()
	f.driver.Tick()
	_, err := f.facade.StableID(track)
	require.NoError(t, err)
	assert.Equal(t, 1, f.session.Registry().Len())

	f.backend.LoadProject("two")
	f.driver.Tick()
	assert.Zero(t, f.session.Registry().Len(), "handles from the previous project must be dropped")

	var loads int
	for _, e := range c.events {
		if e == "project" {
			loads++
		}
	}
	assert.Equal(t, 2, loads)
}

func TestProjectLoadDropsListenersAndHandles(t *testing.T) {
	f := newFixture(t, nil).start()
	drums := f.backend.AddTrack("Drums", host.TrackAudio)
	f.backend.LoadProject("one")
	f.driver.Tick()

	tracks, err := f.facade.Tracks()
	require.NoError(t, err)
	old := tracks[0]
	var got []bool
	id, err := f.facade.AddTrackMuteListener(old, func(m bool) { got = append(got, m) })
	require.NoError(t, err)
	require.Equal(t, 1, f.session.Reconciler().Len())

	f.backend.RemoveTrack(drums)
	f.backend.LoadProject("two")
	f.driver.Tick()

	assert.Zero(t, f.session.Reconciler().Len(), "subscriptions of the old project are dropped")
	_, err = f.facade.IsTrackMute(old)
	assert.ErrorIs(t, err, host.ErrStaleHandle)
	assert.NoError(t, f.facade.RemoveTrackMuteListener(old, id), "late removal is ignored")

	bass := f.backend.AddTrack("Bass", host.TrackAudio)
	tracks, err = f.facade.Tracks()
	require.NoError(t, err)
	assert.Equal(t, []host.Track{bass}, tracks)
	_, err = f.facade.AddTrackMuteListener(bass, func(bool) {})
	require.NoError(t, err)
	assert.Equal(t, 1, f.session.Reconciler().Len())

	f.driver.Tick()
	assert.Empty(t, got)
}

func TestTickSurvivesControllerFailures(t *testing.T) {
	c := &recordingController{panicOn: "midi"}
	f := newFixture(t, c).start()
	track := f.backend.AddTrack("Drums", host.TrackAudio)

	var fired int
	_, err := f.facade.AddTrackMuteListener(track, func(bool) { panic("listener bug") })
	require.NoError(t, err)
	_, err = f.facade.AddTrackMuteListener(track, func(bool) { fired++ })
	require.NoError(t, err)

	track.SetMute(true)
	assert.NotPanics(t, f.driver.Tick)
	assert.Equal(t, 1, fired)

	c.panicOn = ""
	c.failOn = "midi"
	assert.NotPanics(t, f.driver.Tick)
	assert.Len(t, c.batches, 2)
}

func TestMIDIOrderRelativeToListeners(t *testing.T) {
	for _, tc := range []struct {
		name  string
		order host.MIDIOrder
		want  []string
	}{
		{"after", host.MIDIAfterReconcile, []string{"listener", "midi"}},
		{"before", host.MIDIBeforeReconcile, []string{"midi", "listener"}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			var seen []string
			c := &orderController{seen: &seen}
			f := newFixture(t, c)
			d := host.NewDriver(f.session, host.WithMIDIOrder(tc.order))
			f.start()

			track := f.backend.AddTrack("Drums", host.TrackAudio)
			_, err := f.facade.AddTrackMuteListener(track, func(bool) { seen = append(seen, "listener") })
			require.NoError(t, err)

			track.SetMute(true)
			d.Tick()
			assert.Equal(t, tc.want, seen)
		})
	}
}

type orderController struct {
	seen *[]string
}

func (c *orderController) HostCallback([][]byte) error {
	*c.seen = append(*c.seen, "midi")
	return nil
}

func TestPreTickHooksRunFirst(t *testing.T) {
	f := newFixture(t, nil).start()
	var ran int
	f.driver.OnTick(func() { ran++ })
	f.driver.OnTick(func() { panic("drain failed") })

	assert.NotPanics(t, f.driver.Tick)
	assert.Equal(t, 1, ran)

	f.session.Teardown()
	f.driver.Tick()
	assert.Equal(t, 1, ran, "torn down sessions do not tick")
}
