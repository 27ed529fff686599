// Package cli runs a controller outside of any DAW. It only provides MIDI
// input; every other facade call is logged as a stub and returns a zero
// value so partially written controllers can be tried on the command line.
package cli

import (
	"fmt"
	"io"

	"github.com/Conceptual-Machines/dawscript-go/handle"
	"github.com/Conceptual-Machines/dawscript-go/host"
)

// Backend is the stub host.
type Backend struct {
	out    io.Writer
	inputs *Inputs
}

var (
	_ host.Backend    = (*Backend)(nil)
	_ host.Watcher    = (*Backend)(nil)
	_ host.MIDISource = (*Backend)(nil)
)

func NewBackend(out io.Writer, inputs *Inputs) *Backend {
	return &Backend{out: out, inputs: inputs}
}

func (b *Backend) stub(format string, args ...any) {
	b.Log("stub: " + fmt.Sprintf(format, args...))
}

func (b *Backend) Name() string { return "cli" }

func (b *Backend) Log(message string) {
	fmt.Fprintln(b.out, message)
}

func (b *Backend) Display(message string) {
	b.Log(message)
}

func (b *Backend) Identify(h any) (string, error) {
	return fmt.Sprintf("%08x", handle.Hash(fmt.Sprint(h))), nil
}

func (b *Backend) Tracks() ([]host.Track, error) {
	b.stub("get_tracks()")
	return []host.Track{}, nil
}

func (b *Backend) TrackName(t host.Track) (string, error) {
	b.stub("get_track_name( %v )", t)
	return "", nil
}

func (b *Backend) TrackType(t host.Track) (host.TrackType, error) {
	b.stub("get_track_type( %v )", t)
	return host.TrackOther, nil
}

func (b *Backend) TrackPlugins(t host.Track) ([]host.Plugin, error) {
	b.stub("get_track_plugins( %v )", t)
	return []host.Plugin{}, nil
}

func (b *Backend) PluginName(p host.Plugin) (string, error) {
	b.stub("get_plugin_name( %v )", p)
	return "", nil
}

func (b *Backend) PluginParameters(p host.Plugin) ([]host.Parameter, error) {
	b.stub("get_plugin_parameters( %v )", p)
	return []host.Parameter{}, nil
}

func (b *Backend) ParameterName(p host.Parameter) (string, error) {
	b.stub("get_parameter_name( %v )", p)
	return "", nil
}

func (b *Backend) ParameterRange(p host.Parameter) (float64, float64, error) {
	b.stub("get_parameter_range( %v )", p)
	return 0, 1, nil
}

func (b *Backend) Get(target any, prop host.Property) (any, error) {
	b.stub("get_%s( %v )", prop, target)
	switch prop {
	case host.TrackMute, host.PluginEnabled:
		return false, nil
	}
	return 0.0, nil
}

func (b *Backend) Set(target any, prop host.Property, value any) error {
	b.stub("set_%s( %v, %v )", prop, target, value)
	return nil
}

// Watch accepts the registration but never notifies.
func (b *Backend) Watch(target any, prop host.Property, _ func()) (func(), error) {
	b.stub("add_%s_listener( %v )", prop, target)
	return func() { b.stub("remove_%s_listener( %v )", prop, target) }, nil
}

func (b *Backend) ReadMIDI() [][]byte {
	if b.inputs == nil {
		return nil
	}
	return b.inputs.Drain()
}
