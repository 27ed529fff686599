package live

import (
	"fmt"
	"sync/atomic"

	"github.com/Conceptual-Machines/dawscript-go/host"
)

var instances atomic.Int64

// ControlSurface is one instantiation of the dawscript control surface. It
// owns a whole session: Live discards the surface, and with it every
// handle, when another project is loaded.
type ControlSurface struct {
	backend *Backend
	session *host.Session
	driver  *host.Driver
}

var _ Surface = (*ControlSurface)(nil)

// NewControlSurface starts controller against app.
func NewControlSurface(app Application, controller any, opts ...host.SessionOption) *ControlSurface {
	backend := &Backend{
		app:      app,
		instance: fmt.Sprintf("surface-%d", instances.Add(1)),
	}
	session := host.NewSession(backend, controller, opts...)
	cs := &ControlSurface{
		backend: backend,
		session: session,
		driver:  host.NewDriver(session, host.WithMIDIOrder(host.MIDIBeforeReconcile)),
	}
	session.Start()
	return cs
}

// Session returns the surface's session.
func (cs *ControlSurface) Session() *host.Session {
	return cs.session
}

// ReceiveMIDI buffers a message until the next display update.
func (cs *ControlSurface) ReceiveMIDI(msg []byte) {
	cs.backend.midi = append(cs.backend.midi, append([]byte(nil), msg...))
}

// UpdateDisplay is Live's periodic callback and the surface's tick.
func (cs *ControlSurface) UpdateDisplay() {
	cs.driver.Tick()
}

// Disconnect stops the controller and removes every Live listener.
func (cs *ControlSurface) Disconnect() {
	cs.session.Teardown()
}
