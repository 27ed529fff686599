package reaper

import (
	"context"

	"github.com/Conceptual-Machines/dawscript-go/host"
)

// Run starts controller inside REAPER. It returns once the first tick has
// run; from then on REAPER's defer loop drives the session until the script
// is stopped, which REAPER signals through the at-exit hook.
func Run(_ context.Context, controller any, opts ...host.SessionOption) error {
	api := registered()
	if api == nil {
		return host.ErrIncompatibleEnvironment
	}
	start(api, controller, opts...)
	return nil
}

func start(api API, controller any, opts ...host.SessionOption) *host.Session {
	backend := NewBackend(api)
	session := host.NewSession(backend, controller, opts...)
	driver := host.NewDriver(session, host.WithMIDIOrder(host.MIDIAfterReconcile))

	api.AtExit(session.Teardown)
	session.Start()
	backend.SetConfig(session.Config())

	// REAPER runs a deferred function once; the tick has to schedule the
	// next one itself or polling stops for good.
	var tick func()
	tick = func() {
		driver.Tick()
		if session.State() == host.StateActive {
			api.Defer(tick)
		}
	}
	tick()
	return session
}
