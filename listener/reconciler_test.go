package listener

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type value struct {
	v any
}

func (v *value) get() (any, error) { return v.v, nil }

type nativeSource struct {
	attached int
	notify   []func()
}

func (n *nativeSource) attach(notify func()) (func(), error) {
	n.attached++
	n.notify = append(n.notify, notify)
	return func() { n.attached-- }, nil
}

type clock struct {
	t time.Time
}

func (c *clock) now() time.Time { return c.t }

func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

var muteKeyTrack = Key{Target: "03f3d56d_0", Prop: "track_mute"}

func TestReconciler_PollFiresOncePerChange(t *testing.T) {
	r := New()
	mute := &value{v: false}
	var got []any

	_, err := r.Add(muteKeyTrack, Local, mute.get, nil, func(v any) { got = append(got, v) })
	require.NoError(t, err)

	r.Tick()
	assert.Empty(t, got, "no change, no callback")

	mute.v = true
	r.Tick()
	assert.Equal(t, []any{true}, got)

	r.Tick()
	assert.Equal(t, []any{true}, got, "baseline updated, no second callback")
}

func TestReconciler_CallbacksFireInRegistrationOrder(t *testing.T) {
	r := New()
	mute := &value{v: false}
	var order []string

	for _, name := range []string{"first", "second", "third"} {
		name := name
		_, err := r.Add(muteKeyTrack, Local, mute.get, nil, func(any) { order = append(order, name) })
		require.NoError(t, err)
	}

	mute.v = true
	r.Tick()

	assert.Equal(t, []string{"first", "second", "third"}, order)
	assert.Equal(t, 3, r.Subscribers(muteKeyTrack))
}

func TestReconciler_NativeRegistrationCountFollowsSubscribers(t *testing.T) {
	r := New()
	mute := &value{v: false}
	src := &nativeSource{}
	noop := func(any) {}

	a, err := r.Add(muteKeyTrack, Local, mute.get, src.attach, noop)
	require.NoError(t, err)
	assert.Equal(t, 1, src.attached)

	b, err := r.Add(muteKeyTrack, "client-1", mute.get, src.attach, noop)
	require.NoError(t, err)
	assert.Equal(t, 1, src.attached, "second subscriber reuses the native registration")

	require.NoError(t, r.Remove(muteKeyTrack, a))
	assert.Equal(t, 1, src.attached)

	require.NoError(t, r.Remove(muteKeyTrack, b))
	assert.Equal(t, 0, src.attached)
	assert.Equal(t, 0, r.Len())

	assert.ErrorIs(t, r.Remove(muteKeyTrack, b), ErrListenerNotRegistered)
	assert.Equal(t, 0, src.attached, "teardown is idempotent")
}

func TestReconciler_PushedChangesAreDeferredToTick(t *testing.T) {
	r := New()
	vol := &value{v: 0.0}
	src := &nativeSource{}
	var got []any

	_, err := r.Add(Key{Target: "t", Prop: "track_volume"}, Local, vol.get, src.attach, func(v any) { got = append(got, v) })
	require.NoError(t, err)

	vol.v = -6.0
	src.notify[0]()
	src.notify[0]()
	assert.Empty(t, got, "native callback never dispatches synchronously")

	r.Tick()
	assert.Equal(t, []any{-6.0}, got)

	src.notify[0]()
	r.Tick()
	assert.Equal(t, []any{-6.0}, got, "notification without value change is deduplicated")
}

func TestReconciler_PushedKeysAreNotPolled(t *testing.T) {
	r := New()
	vol := &value{v: 0.0}
	src := &nativeSource{}
	calls := 0

	_, err := r.Add(Key{Target: "t", Prop: "track_volume"}, Local, vol.get, src.attach, func(any) { calls++ })
	require.NoError(t, err)

	vol.v = 3.0
	r.Tick()
	assert.Equal(t, 0, calls)
}

func TestReconciler_EchoSuppressedOnlyForOriginatingClient(t *testing.T) {
	c := &clock{t: time.Unix(0, 0)}
	r := New(WithClock(c.now))
	param := &value{v: 0.25}
	key := Key{Target: "p", Prop: "parameter_value"}
	var a, b []any

	_, err := r.Add(key, "client-a", param.get, nil, func(v any) { a = append(a, v) })
	require.NoError(t, err)
	_, err = r.Add(key, "client-b", param.get, nil, func(v any) { b = append(b, v) })
	require.NoError(t, err)

	param.v = 0.75
	r.Mute(key, "client-a")
	c.advance(10 * time.Millisecond)
	r.Tick()

	assert.Empty(t, a, "writer does not hear its own echo")
	assert.Equal(t, []any{0.75}, b)

	param.v = 0.5
	c.advance(10 * time.Millisecond)
	r.Tick()

	assert.Equal(t, []any{0.5}, a, "window is consumed by the first suppressed change")
	assert.Equal(t, []any{0.75, 0.5}, b)
}

func TestReconciler_EchoWindowExpires(t *testing.T) {
	c := &clock{t: time.Unix(0, 0)}
	r := New(WithClock(c.now), WithEchoWindow(50*time.Millisecond))
	param := &value{v: 0.0}
	key := Key{Target: "p", Prop: "parameter_value"}
	var got []any

	_, err := r.Add(key, "client-a", param.get, nil, func(v any) { got = append(got, v) })
	require.NoError(t, err)

	r.Mute(key, "client-a")
	c.advance(80 * time.Millisecond)
	param.v = 1.0
	r.Tick()

	assert.Equal(t, []any{1.0}, got)
}

func TestReconciler_RemoveUnknownDoesNotDisturbOthers(t *testing.T) {
	r := New()
	mute := &value{v: false}
	calls := 0

	_, err := r.Add(muteKeyTrack, Local, mute.get, nil, func(any) { calls++ })
	require.NoError(t, err)

	err = r.Remove(muteKeyTrack, 999)
	assert.ErrorIs(t, err, ErrListenerNotRegistered)
	err = r.Remove(Key{Target: "other", Prop: "track_mute"}, 1)
	assert.ErrorIs(t, err, ErrListenerNotRegistered)

	mute.v = true
	r.Tick()
	assert.Equal(t, 1, calls)
}

func TestReconciler_RemoveDuringDispatch(t *testing.T) {
	r := New()
	mute := &value{v: false}
	var second ID
	calls := 0

	_, err := r.Add(muteKeyTrack, Local, mute.get, nil, func(any) {
		calls++
		require.NoError(t, r.Remove(muteKeyTrack, second))
	})
	require.NoError(t, err)
	second, err = r.Add(muteKeyTrack, Local, mute.get, nil, func(any) { calls++ })
	require.NoError(t, err)

	mute.v = true
	assert.NotPanics(t, r.Tick)
	assert.Equal(t, 1, calls, "listener removed mid-dispatch is skipped")
}

func TestReconciler_RemoveClient(t *testing.T) {
	r := New()
	mute := &value{v: false}
	src := &nativeSource{}
	noop := func(any) {}

	_, err := r.Add(muteKeyTrack, "client-a", mute.get, src.attach, noop)
	require.NoError(t, err)
	_, err = r.Add(Key{Target: "p", Prop: "parameter_value"}, "client-a", mute.get, nil, noop)
	require.NoError(t, err)
	_, err = r.Add(muteKeyTrack, Local, mute.get, src.attach, noop)
	require.NoError(t, err)

	assert.Equal(t, 2, r.RemoveClient("client-a"))
	assert.Equal(t, 1, r.Len())
	assert.Equal(t, 1, src.attached)
}

func TestReconciler_PanickingListenerDoesNotStopOthers(t *testing.T) {
	r := New()
	mute := &value{v: false}
	called := false

	_, err := r.Add(muteKeyTrack, Local, mute.get, nil, func(any) { panic("boom") })
	require.NoError(t, err)
	_, err = r.Add(muteKeyTrack, Local, mute.get, nil, func(any) { called = true })
	require.NoError(t, err)

	mute.v = true
	assert.NotPanics(t, r.Tick)
	assert.True(t, called)
}

func TestReconciler_AddFailures(t *testing.T) {
	r := New()
	failing := func() (any, error) { return nil, errors.New("gone") }

	_, err := r.Add(muteKeyTrack, Local, failing, nil, func(any) {})
	require.Error(t, err)
	assert.Equal(t, 0, r.Len())

	ok := &value{v: true}
	_, err = r.Add(muteKeyTrack, Local, ok.get, func(func()) (func(), error) {
		return nil, errors.New("bridge down")
	}, func(any) {})
	require.Error(t, err)
	assert.Equal(t, 0, r.Len())
}

func TestReconciler_Close(t *testing.T) {
	r := New()
	mute := &value{v: false}
	src := &nativeSource{}

	_, err := r.Add(muteKeyTrack, Local, mute.get, src.attach, func(any) {})
	require.NoError(t, err)

	r.Close()
	assert.Equal(t, 0, src.attached)

	_, err = r.Add(muteKeyTrack, Local, mute.get, nil, func(any) {})
	assert.Error(t, err)
}

func TestReconciler_ResetKeepsAcceptingRegistrations(t *testing.T) {
	r := New()
	mute := &value{v: false}
	src := &nativeSource{}
	var got []any

	id, err := r.Add(muteKeyTrack, Local, mute.get, src.attach, func(v any) { got = append(got, v) })
	require.NoError(t, err)

	r.Reset()
	assert.Equal(t, 0, src.attached)
	assert.Equal(t, 0, r.Len())
	assert.ErrorIs(t, r.Remove(muteKeyTrack, id), ErrListenerNotRegistered)

	mute.v = true
	r.Tick()
	assert.Empty(t, got, "dropped registrations never fire")

	_, err = r.Add(muteKeyTrack, Local, mute.get, nil, func(any) {})
	require.NoError(t, err)
	assert.Equal(t, 1, r.Len())
}
