package host

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// MIDIOrder says whether a tick delivers MIDI before or after reconciling
// listeners. The order is adapter specific.
type MIDIOrder int

const (
	MIDIAfterReconcile MIDIOrder = iota
	MIDIBeforeReconcile
)

// Driver performs one tick of the event loop each time the host's scheduler
// calls it: run the pre-tick hooks, reconcile listeners, detect project
// loads and deliver buffered MIDI to the controller. A tick never panics.
type Driver struct {
	session     *Session
	order       MIDIOrder
	pre         []func()
	project     string
	projectSeen bool
	log         logrus.FieldLogger
}

// DriverOption configures a Driver.
type DriverOption func(*Driver)

// WithMIDIOrder sets when MIDI is delivered within a tick.
func WithMIDIOrder(order MIDIOrder) DriverOption {
	return func(d *Driver) { d.order = order }
}

// NewDriver creates a driver for s.
func NewDriver(s *Session, opts ...DriverOption) *Driver {
	d := &Driver{
		session: s,
		log:     s.log.WithField("component", "driver"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// OnTick registers fn to run at the start of every tick, before listeners
// are reconciled. Adapters use it to drain queues filled by other
// goroutines.
func (d *Driver) OnTick(fn func()) {
	d.pre = append(d.pre, fn)
}

// Session returns the driven session.
func (d *Driver) Session() *Session {
	return d.session
}

// Tick runs one pass of the event loop.
func (d *Driver) Tick() {
	defer func() {
		if p := recover(); p != nil {
			d.log.Errorf("tick panicked: %v", p)
		}
	}()

	if d.session.State() != StateActive {
		return
	}

	for _, fn := range d.pre {
		d.session.CallHook("tick", func() error {
			fn()
			return nil
		})
	}

	if d.order == MIDIBeforeReconcile {
		d.deliverMIDI()
	}
	d.session.reconciler.Tick()
	d.checkProject()
	if d.order == MIDIAfterReconcile {
		d.deliverMIDI()
	}
}

func (d *Driver) checkProject() {
	tracker, ok := d.session.backend.(ProjectTracker)
	if !ok {
		return
	}
	key, ok := tracker.ProjectKey()
	if !ok || (d.projectSeen && key == d.project) {
		return
	}

	// Subscriptions and handles of the previous project die with it.
	if d.projectSeen {
		d.session.reconciler.Reset()
		d.session.registry.Reset()
	}
	d.project = key
	d.projectSeen = true
	d.log.WithField("project", key).Info("project loaded")

	if c, ok := d.session.controller.(ProjectLoader); ok {
		d.session.CallHook("on_project_load", c.OnProjectLoad)
	}
}

func (d *Driver) deliverMIDI() {
	batch := [][]byte{}
	if src, ok := d.session.backend.(MIDISource); ok {
		if msgs := src.ReadMIDI(); msgs != nil {
			batch = msgs
		}
	}

	if c, ok := d.session.controller.(MIDIHandler); ok {
		d.session.CallHook("host_callback", func() error {
			if err := c.HostCallback(batch); err != nil {
				return fmt.Errorf("%d messages: %w", len(batch), err)
			}
			return nil
		})
	}
}
