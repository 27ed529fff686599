// Package live adapts Ableton Live's object model. Live pushes property
// changes through listeners, but forbids touching the model from inside
// one, so changes are only marked there and dispatched on the next display
// update.
package live

import (
	"context"
	"sync"

	"github.com/Conceptual-Machines/dawscript-go/host"
)

// Application is the running Live instance as seen by a control surface.
type Application interface {
	Song() Song
	LogMessage(message string)
	ShowMessage(message string)
}

type Song interface {
	Tracks() []Track
	ReturnTracks() []Track
}

// Track is a Live track. Listener registration returns the function that
// removes the listener again.
type Track interface {
	Name() string
	HasMIDIInput() bool
	IsFoldable() bool
	Mute() bool
	SetMute(mute bool)
	AddMuteListener(fn func()) (remove func())
	MixerDevice() MixerDevice
	Devices() []Device
}

type MixerDevice interface {
	Volume() DeviceParameter
	Panning() DeviceParameter
}

type Device interface {
	Name() string
	Parameters() []DeviceParameter
}

type DeviceParameter interface {
	Name() string
	Value() float64
	SetValue(value float64)
	Min() float64
	Max() float64
	AddValueListener(fn func()) (remove func())
}

// Surface is what Live calls into: MIDI forwarded to the script, the
// periodic display update and disconnection.
type Surface interface {
	ReceiveMIDI(msg []byte)
	UpdateDisplay()
	Disconnect()
}

// Binding bridges Live's control surface lifecycle into Go. Live creates a
// new control surface at startup and on every project load.
type Binding interface {
	// Serve calls newSurface for every control surface Live instantiates
	// and blocks until ctx is done or Live unloads the script.
	Serve(ctx context.Context, newSurface func(app Application) Surface) error
}

var (
	bindingMu sync.Mutex
	binding   Binding
)

// Register makes the Live binding available to Probe and Run.
func Register(b Binding) {
	bindingMu.Lock()
	defer bindingMu.Unlock()
	binding = b
}

func registered() Binding {
	bindingMu.Lock()
	defer bindingMu.Unlock()
	return binding
}

// Probe reports whether dawscript is loaded as a Live control surface.
func Probe() error {
	if registered() == nil {
		return host.ErrIncompatibleEnvironment
	}
	return nil
}

// Run serves controller on every control surface instance until ctx is done.
func Run(ctx context.Context, controller any, opts ...host.SessionOption) error {
	b := registered()
	if b == nil {
		return host.ErrIncompatibleEnvironment
	}
	return b.Serve(ctx, func(app Application) Surface {
		return NewControlSurface(app, controller, opts...)
	})
}
