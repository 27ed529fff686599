package bitwig

import (
	"context"
	"fmt"
	"time"

	"github.com/Conceptual-Machines/dawscript-go/host"
	"github.com/sirupsen/logrus"
)

const probeTimeout = 2 * time.Second

// Adapter connects to the extension on probe and drives the session on a
// fixed tick until the context ends or the connection drops.
type Adapter struct {
	addr   string
	tick   time.Duration
	log    logrus.FieldLogger
	client *Client
}

func NewAdapter(addr string, tick time.Duration, log logrus.FieldLogger) *Adapter {
	return &Adapter{addr: addr, tick: tick, log: log.WithField("component", "bitwig")}
}

func (a *Adapter) Name() string { return "bitwig" }

// Probe connects to the extension. No extension listening means Bitwig is
// not running dawscript.
func (a *Adapter) Probe(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	client, err := Dial(ctx, a.addr, a.log)
	if err != nil {
		return fmt.Errorf("%w: bitwig bridge at %s: %v", host.ErrIncompatibleEnvironment, a.addr, err)
	}
	a.client = client
	return nil
}

// Run starts controller and ticks until ctx is done or the bridge is lost.
func (a *Adapter) Run(ctx context.Context, controller any, opts ...host.SessionOption) error {
	if a.client == nil {
		if err := a.Probe(ctx); err != nil {
			return err
		}
	}
	defer a.client.Close()

	backend := NewBackend(ctx, a.client, a.log)
	session := host.NewSession(backend, controller, opts...)
	driver := host.NewDriver(session, host.WithMIDIOrder(host.MIDIAfterReconcile))
	driver.OnTick(backend.Dispatch)

	session.Start()
	defer session.Teardown()
	if err := backend.SendConfig(session.Config()); err != nil {
		a.log.WithError(err).Warn("send config failed")
	}

	ticker := time.NewTicker(a.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-a.client.Done():
			return a.client.Err()
		case <-ticker.C:
			driver.Tick()
		}
	}
}
