package host

// Backend is what every host adapter implements against its native API.
// The Facade builds the full capability surface on top of it.
//
// Get and Set exchange facade units: bool for TrackMute and PluginEnabled,
// float64 decibels for TrackVolume, float64 in [-1, 1] for TrackPan and
// float64 for ParameterValue.
type Backend interface {
	Name() string
	Log(message string)
	Display(message string)

	// Identify returns the host identity of a track, plugin or parameter.
	Identify(h any) (string, error)

	Tracks() ([]Track, error)
	TrackName(t Track) (string, error)
	TrackType(t Track) (TrackType, error)
	TrackPlugins(t Track) ([]Plugin, error)
	PluginName(p Plugin) (string, error)
	PluginParameters(p Plugin) ([]Parameter, error)
	ParameterName(p Parameter) (string, error)
	ParameterRange(p Parameter) (min, max float64, err error)

	Get(target any, prop Property) (any, error)
	Set(target any, prop Property, value any) error
}

// Watcher is implemented by backends whose host pushes change notifications.
// notify may be called from the host's own call stack but always on the
// control goroutine; the Reconciler defers the actual dispatch to the next
// tick. Backends return ErrNotSupported for properties they cannot watch, in
// which case the facade polls them.
type Watcher interface {
	Watch(target any, prop Property, notify func()) (cancel func(), err error)
}

// PluginFinder is implemented by backends with a native by-name plugin lookup.
type PluginFinder interface {
	FindTrackPlugin(t Track, name string) (Plugin, error)
}

// ProjectTracker is implemented by backends that can tell which project is
// loaded. ok is false while no user project is open.
type ProjectTracker interface {
	ProjectKey() (key string, ok bool)
}

// MIDISource is implemented by backends that buffer incoming MIDI between
// ticks. ReadMIDI drains the buffer.
type MIDISource interface {
	ReadMIDI() [][]byte
}
