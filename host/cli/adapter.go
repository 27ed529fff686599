package cli

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/Conceptual-Machines/dawscript-go/host"
	"github.com/sirupsen/logrus"
	"gitlab.com/gomidi/midi/v2/drivers"
)

// DefaultTick is the fixed rate of the command line loop.
const DefaultTick = time.Second / 30

// Adapter is the fallback used when no DAW is detected. It is always
// compatible.
type Adapter struct {
	drv  drivers.Driver
	tick time.Duration
	out  io.Writer
	log  logrus.FieldLogger
}

// NewAdapter creates the command line adapter. drv may be nil, in which
// case no MIDI is received.
func NewAdapter(drv drivers.Driver, tick time.Duration, log logrus.FieldLogger) *Adapter {
	if tick <= 0 {
		tick = DefaultTick
	}
	return &Adapter{drv: drv, tick: tick, out: os.Stdout, log: log.WithField("component", "cli")}
}

// SetOutput redirects the host log, stdout by default.
func (a *Adapter) SetOutput(w io.Writer) {
	a.out = w
}

func (a *Adapter) Name() string { return "cli" }

func (a *Adapter) Probe(context.Context) error { return nil }

// Run ticks controller until ctx is done.
func (a *Adapter) Run(ctx context.Context, controller any, opts ...host.SessionOption) error {
	var inputs *Inputs
	if a.drv != nil {
		inputs = NewInputs(a.drv, a.log)
		defer inputs.Close()
	}

	backend := NewBackend(a.out, inputs)
	session := host.NewSession(backend, controller, opts...)
	driver := host.NewDriver(session, host.WithMIDIOrder(host.MIDIBeforeReconcile))
	if inputs != nil {
		driver.OnTick(inputs.Rescan)
	}

	session.Start()
	defer session.Teardown()
	if inputs != nil {
		inputs.SetConfig(session.Config())
	}

	ticker := time.NewTicker(a.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			driver.Tick()
		}
	}
}
