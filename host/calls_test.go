package host_test

import (
	"testing"

	"github.com/Conceptual-Machines/dawscript-go/host"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCallByName(t *testing.T) {
	f := newFixture(t, nil).start()
	drums := f.backend.AddTrack("Drums", host.TrackAudio)
	comp := drums.AddPlugin("Comp")
	ratio := comp.AddParameter("Ratio", 1, 20, 4)

	got, err := f.facade.Call("get_tracks")
	require.NoError(t, err)
	assert.Equal(t, []any{drums}, got)

	got, err = f.facade.Call("get_track_by_name", "drums")
	require.NoError(t, err)
	assert.Same(t, drums, got)

	_, err = f.facade.Call("set_track_mute", drums, true)
	require.NoError(t, err)
	assert.True(t, drums.Mute())

	_, err = f.facade.Call("toggle_track_mute_by_name", "Drums")
	require.NoError(t, err)
	assert.False(t, drums.Mute())

	got, err = f.facade.Call("get_plugin_parameter_by_name", comp, "ratio")
	require.NoError(t, err)
	assert.Same(t, ratio, got)

	got, err = f.facade.Call("get_parameter_range", ratio)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 20}, got)

	_, err = f.facade.Call("set_parameter_value", ratio, 8)
	require.NoError(t, err)
	assert.Equal(t, 8.0, ratio.Value())

	_, err = f.facade.Call("log", "hello")
	require.NoError(t, err)
	assert.Equal(t, []string{"hello"}, f.backend.Logs)
}

func TestCallErrors(t *testing.T) {
	f := newFixture(t, nil).start()
	drums := f.backend.AddTrack("Drums", host.TrackAudio)

	_, err := f.facade.Call("explode")
	var unknown *host.UnknownFunctionError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "explode", unknown.Name)

	tests := []struct {
		name string
		fn   string
		args []any
		want string
	}{
		{"missing handle", "get_track_name", nil, "get_track_name: missing argument 0 (a handle)"},
		{"missing value", "set_track_mute", []any{drums}, "set_track_mute: missing argument 1 (a boolean)"},
		{"wrong type", "set_track_volume", []any{drums, "loud"}, "set_track_volume: argument 1 must be a number, got string"},
		{"name not a string", "get_track_by_name", []any{3.0}, "get_track_by_name: argument 0 must be a string, got float64"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.facade.Call(tt.fn, tt.args...)
			var argErr *host.ArgumentError
			require.ErrorAs(t, err, &argErr)
			assert.EqualError(t, err, tt.want)
		})
	}
}

func TestCallableAndSetters(t *testing.T) {
	names := host.Callable()
	assert.IsIncreasing(t, names)
	assert.Contains(t, names, "get_tracks")
	assert.Contains(t, names, "set_parameter_value")

	prop, ok := host.SetterProperty("set_track_volume")
	assert.True(t, ok)
	assert.Equal(t, host.TrackVolume, prop)

	_, ok = host.SetterProperty("get_track_volume")
	assert.False(t, ok)
}
