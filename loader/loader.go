// Package loader detects which host dawscript is running in by probing the
// adapters in priority order.
package loader

import (
	"context"
	"errors"
	"fmt"

	"github.com/Conceptual-Machines/dawscript-go/host"
	"github.com/Conceptual-Machines/dawscript-go/metrics"
	"github.com/sirupsen/logrus"
)

// Adapter is a host integration that can be probed and run.
type Adapter interface {
	Name() string
	// Probe returns an error wrapping host.ErrIncompatibleEnvironment when
	// the host is not present.
	Probe(ctx context.Context) error
	Run(ctx context.Context, controller any, opts ...host.SessionOption) error
}

// Func adapts package level probe and run functions to Adapter.
type Func struct {
	AdapterName string
	ProbeFunc   func() error
	RunFunc     func(ctx context.Context, controller any, opts ...host.SessionOption) error
}

func (f Func) Name() string { return f.AdapterName }

func (f Func) Probe(context.Context) error { return f.ProbeFunc() }

func (f Func) Run(ctx context.Context, controller any, opts ...host.SessionOption) error {
	return f.RunFunc(ctx, controller, opts...)
}

// Loader picks the first compatible adapter.
type Loader struct {
	candidates []Adapter
	fallback   Adapter
	states     map[string]host.State
	metrics    *metrics.SentryMetrics
	log        logrus.FieldLogger
}

func New(fallback Adapter, m *metrics.SentryMetrics, log logrus.FieldLogger, candidates ...Adapter) *Loader {
	l := &Loader{
		candidates: candidates,
		fallback:   fallback,
		states:     make(map[string]host.State),
		metrics:    m,
		log:        log.WithField("component", "loader"),
	}
	for _, a := range candidates {
		l.states[a.Name()] = host.StateUnprobed
	}
	if fallback != nil {
		l.states[fallback.Name()] = host.StateUnprobed
	}
	return l
}

// State returns what the last Detect learned about the named adapter:
// unprobed, compatible or incompatible. Once a session runs, its own State
// takes over.
func (l *Loader) State(name string) host.State {
	return l.states[name]
}

// Detect probes every candidate in order and returns the first compatible
// one, or the fallback. Incompatibility is expected and only logged at debug
// level; any other probe failure aborts detection.
func (l *Loader) Detect(ctx context.Context) (Adapter, error) {
	for _, a := range l.candidates {
		err := a.Probe(ctx)
		l.metrics.RecordProbe(a.Name(), err)
		if errors.Is(err, host.ErrIncompatibleEnvironment) {
			l.states[a.Name()] = host.StateIncompatible
		} else {
			l.states[a.Name()] = host.StateCompatible
		}
		if err == nil {
			l.log.WithField("host", a.Name()).Info("host detected")
			return a, nil
		}
		if !errors.Is(err, host.ErrIncompatibleEnvironment) {
			return nil, fmt.Errorf("probe %s: %w", a.Name(), err)
		}
		l.log.WithError(err).WithField("host", a.Name()).Debug("host not present")
	}

	if l.fallback == nil {
		return nil, host.ErrIncompatibleEnvironment
	}
	l.states[l.fallback.Name()] = host.StateCompatible
	l.log.WithField("host", l.fallback.Name()).Info("no DAW detected, using fallback")
	return l.fallback, nil
}

// Run detects the host and runs controller on it.
func (l *Loader) Run(ctx context.Context, controller any, opts ...host.SessionOption) error {
	a, err := l.Detect(ctx)
	if err != nil {
		return err
	}
	return a.Run(ctx, controller, opts...)
}
