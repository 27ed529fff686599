package host

import (
	"fmt"
	"time"

	"github.com/Conceptual-Machines/dawscript-go/handle"
	"github.com/Conceptual-Machines/dawscript-go/listener"
	"github.com/Conceptual-Machines/dawscript-go/metrics"
	"github.com/sirupsen/logrus"
)

// Session owns the state of one script activation: the handle registry, the
// listener subscriptions and the controller lifecycle. It is created when an
// adapter becomes active and discarded on script stop, or on every project
// load for hosts that recreate their scripting context.
type Session struct {
	backend    Backend
	controller any
	registry   *handle.Registry
	reconciler *listener.Reconciler
	facade     *Facade
	config     Config
	state      State
	metrics    *metrics.SentryMetrics
	log        logrus.FieldLogger
}

type sessionOptions struct {
	echoWindow time.Duration
	clock      func() time.Time
	metrics    *metrics.SentryMetrics
	log        logrus.FieldLogger
}

// SessionOption configures a Session.
type SessionOption func(*sessionOptions)

// WithEchoWindow sets how long a remote write suppresses its own echo.
func WithEchoWindow(d time.Duration) SessionOption {
	return func(o *sessionOptions) { o.echoWindow = d }
}

// WithClock replaces time.Now for echo windows.
func WithClock(now func() time.Time) SessionOption {
	return func(o *sessionOptions) { o.clock = now }
}

// WithMetrics sets the error reporter.
func WithMetrics(m *metrics.SentryMetrics) SessionOption {
	return func(o *sessionOptions) { o.metrics = m }
}

// WithLogger sets the session logger.
func WithLogger(log logrus.FieldLogger) SessionOption {
	return func(o *sessionOptions) { o.log = log }
}

// NewSession creates a session for backend driving controller. controller
// may be nil.
func NewSession(backend Backend, controller any, opts ...SessionOption) *Session {
	o := sessionOptions{
		echoWindow: listener.DefaultEchoWindow,
		clock:      time.Now,
		metrics:    metrics.NewSentryMetrics(),
		log:        logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	log := o.log.WithField("host", backend.Name())
	registry := handle.NewRegistry(backend.Identify)
	registry.SetLogger(log.WithField("component", "handle"))

	s := &Session{
		backend:    backend,
		controller: controller,
		registry:   registry,
		reconciler: listener.New(
			listener.WithEchoWindow(o.echoWindow),
			listener.WithClock(o.clock),
			listener.WithLogger(log.WithField("component", "reconciler")),
		),
		config:  AllMIDIInputs,
		state:   StateCompatible,
		metrics: o.metrics,
		log:     log,
	}
	s.facade = &Facade{backend: backend, session: s}
	return s
}

// Facade returns the capability surface bound to this session.
func (s *Session) Facade() *Facade {
	return s.facade
}

// Backend returns the host backend.
func (s *Session) Backend() Backend {
	return s.backend
}

// Registry returns the session's handle registry.
func (s *Session) Registry() *handle.Registry {
	return s.registry
}

// Reconciler returns the session's listener reconciler.
func (s *Session) Reconciler() *listener.Reconciler {
	return s.reconciler
}

// State returns the lifecycle state.
func (s *Session) State() State {
	return s.state
}

// Config returns the controller configuration read at Start.
func (s *Session) Config() Config {
	return s.config
}

// Start reads the controller config and runs its start hook.
func (s *Session) Start() {
	if s.state != StateCompatible {
		return
	}
	s.state = StateActive

	if c, ok := s.controller.(ConfigProvider); ok {
		s.CallHook("get_config", func() error {
			s.config = c.Config()
			return nil
		})
	}
	if c, ok := s.controller.(ScriptStarter); ok {
		s.CallHook("on_script_start", func() error { return c.OnScriptStart(s.facade) })
	}
	s.log.Info("script started")
}

// Teardown runs the controller stop hook, detaches every native listener and
// invalidates all handles. Safe to call more than once.
func (s *Session) Teardown() {
	if s.state == StateTornDown {
		return
	}
	if s.state == StateActive {
		if c, ok := s.controller.(ScriptStopper); ok {
			s.CallHook("on_script_stop", c.OnScriptStop)
		}
	}
	s.reconciler.Close()
	s.registry.Close()
	s.state = StateTornDown
	s.log.Info("script stopped")
}

// CallHook runs fn, turning a returned error or panic into a logged
// HookError. It reports whether fn completed without error.
func (s *Session) CallHook(name string, fn func() error) (ok bool) {
	defer func() {
		if p := recover(); p != nil {
			s.hookFailed(&HookError{Hook: name, Err: fmt.Errorf("panic: %v", p)})
			ok = false
		}
	}()
	if err := fn(); err != nil {
		s.hookFailed(&HookError{Hook: name, Err: err})
		return false
	}
	return true
}

func (s *Session) hookFailed(err *HookError) {
	s.log.WithError(err).Error("controller hook failed")
	s.metrics.RecordHookError(s.backend.Name(), err.Hook, err)
}

func (s *Session) checkActive() error {
	if s.state == StateTornDown {
		return ErrStaleHandle
	}
	return nil
}
