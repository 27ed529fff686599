package host

// A controller is the user script driven by dawscript. Every hook is optional:
// a controller implements only the interfaces below it cares about, and a
// missing hook is a no-op.

// ConfigProvider returns the controller configuration. Called once per
// script start.
type ConfigProvider interface {
	Config() Config
}

// ScriptStarter is called once the adapter is active.
type ScriptStarter interface {
	OnScriptStart(f *Facade) error
}

// ScriptStopper is called before the session is torn down.
type ScriptStopper interface {
	OnScriptStop() error
}

// ProjectLoader is called exactly once per project load transition.
type ProjectLoader interface {
	OnProjectLoad() error
}

// MIDIHandler receives the MIDI messages collected since the previous tick
// as one batch, which may be empty.
type MIDIHandler interface {
	HostCallback(midi [][]byte) error
}
