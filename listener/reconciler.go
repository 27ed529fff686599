// Package listener turns host change signals, pushed or polled, into the
// uniform "add/remove listener, fires on change" contract.
//
// A Reconciler is not safe for concurrent use. Hosts that deliver native
// notifications on foreign threads must hand them to the control goroutine
// before calling Notify.
package listener

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrListenerNotRegistered is returned by Remove for ids that are not
// registered on the given key.
var ErrListenerNotRegistered = errors.New("listener not registered")

// DefaultEchoWindow bounds how long a write suppresses its own echo.
const DefaultEchoWindow = 100 * time.Millisecond

// Local is the client id of listeners registered by the controller itself.
const Local = ""

// Key identifies a subscription: one property of one target.
type Key struct {
	Target string
	Prop   string
}

func (k Key) String() string {
	return k.Target + "_" + k.Prop
}

// ID identifies one listener registration.
type ID uint64

// Getter reads the current value of a subscribed property.
type Getter func() (any, error)

// Attach registers a native change callback for a key and returns the
// function that unregisters it. A nil Attach puts the key in the poll set.
type Attach func(notify func()) (detach func(), err error)

// Callback receives the new value of a property.
type Callback func(value any)

type registration struct {
	id     ID
	client string
	fn     Callback
}

type subscription struct {
	key      Key
	get      Getter
	detach   func()
	polled   bool
	baseline any
	regs     []registration
}

type muteKey struct {
	key    Key
	client string
}

// Reconciler owns every subscription of one session.
type Reconciler struct {
	subs   map[Key]*subscription
	order  []Key
	owners map[ID]Key
	dirty  []Key
	queued map[Key]bool
	mutes  map[muteKey]time.Time
	window time.Duration
	now    func() time.Time
	nextID ID
	closed bool
	log    logrus.FieldLogger
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithEchoWindow sets the echo suppression window.
func WithEchoWindow(d time.Duration) Option {
	return func(r *Reconciler) {
		if d > 0 {
			r.window = d
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) { r.now = now }
}

// WithLogger replaces the default logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(r *Reconciler) { r.log = log }
}

// New creates an empty Reconciler.
func New(opts ...Option) *Reconciler {
	r := &Reconciler{
		subs:   make(map[Key]*subscription),
		owners: make(map[ID]Key),
		queued: make(map[Key]bool),
		mutes:  make(map[muteKey]time.Time),
		window: DefaultEchoWindow,
		now:    time.Now,
		log:    logrus.WithField("component", "reconciler"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Add registers fn for changes of key on behalf of client. The first
// registration for a key captures the baseline value and attaches the native
// callback, or joins the poll set when attach is nil.
func (r *Reconciler) Add(key Key, client string, get Getter, attach Attach, fn Callback) (ID, error) {
	if r.closed {
		return 0, errors.New("reconciler closed")
	}

	sub, ok := r.subs[key]
	if !ok {
		baseline, err := get()
		if err != nil {
			return 0, fmt.Errorf("read baseline of %s: %w", key, err)
		}
		sub = &subscription{key: key, get: get, baseline: baseline}

		if attach == nil {
			sub.polled = true
		} else {
			detach, err := attach(func() { r.Notify(key) })
			if err != nil {
				return 0, fmt.Errorf("attach native listener for %s: %w", key, err)
			}
			sub.detach = detach
		}

		r.subs[key] = sub
		r.order = append(r.order, key)
	}

	r.nextID++
	id := r.nextID
	sub.regs = append(sub.regs, registration{id: id, client: client, fn: fn})
	r.owners[id] = key
	return id, nil
}

// Remove drops one registration. Removing the last registration of a key
// detaches its native callback and drops it from the poll set.
func (r *Reconciler) Remove(key Key, id ID) error {
	owner, ok := r.owners[id]
	if !ok || owner != key {
		return fmt.Errorf("%w: %s #%d", ErrListenerNotRegistered, key, id)
	}
	r.drop(key, id)
	return nil
}

// RemoveClient drops every registration owned by client and returns how many
// were removed.
func (r *Reconciler) RemoveClient(client string) int {
	var ids []ID
	var keys []Key
	for _, key := range r.order {
		for _, reg := range r.subs[key].regs {
			if reg.client == client {
				ids = append(ids, reg.id)
				keys = append(keys, key)
			}
		}
	}
	for i, id := range ids {
		r.drop(keys[i], id)
	}
	for mk := range r.mutes {
		if mk.client == client {
			delete(r.mutes, mk)
		}
	}
	return len(ids)
}

func (r *Reconciler) drop(key Key, id ID) {
	delete(r.owners, id)
	sub := r.subs[key]

	regs := sub.regs[:0]
	for _, reg := range sub.regs {
		if reg.id != id {
			regs = append(regs, reg)
		}
	}
	sub.regs = regs

	if len(sub.regs) > 0 {
		return
	}

	if sub.detach != nil {
		sub.detach()
	}
	delete(r.subs, key)
	delete(r.queued, key)
	for i, k := range r.order {
		if k == key {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Notify marks key as changed by the host. The value is read and dispatched
// on the next Tick, never from inside the native callback.
func (r *Reconciler) Notify(key Key) {
	if _, ok := r.subs[key]; !ok || r.queued[key] {
		return
	}
	r.queued[key] = true
	r.dirty = append(r.dirty, key)
}

// Mute arms echo suppression for a write client just issued to key.
func (r *Reconciler) Mute(key Key, client string) {
	r.mutes[muteKey{key: key, client: client}] = r.now()
}

// Tick runs one reconciliation pass: pushed keys in notification order, then
// every polled key in subscription order.
func (r *Reconciler) Tick() {
	now := r.now()
	for mk, at := range r.mutes {
		if now.Sub(at) > r.window {
			delete(r.mutes, mk)
		}
	}

	dirty := r.dirty
	r.dirty = nil
	for _, key := range dirty {
		delete(r.queued, key)
		if sub, ok := r.subs[key]; ok {
			r.check(sub)
		}
	}

	for _, key := range append([]Key(nil), r.order...) {
		if sub, ok := r.subs[key]; ok && sub.polled {
			r.check(sub)
		}
	}
}

func (r *Reconciler) check(sub *subscription) {
	value, err := sub.get()
	if err != nil {
		r.log.WithError(err).WithField("key", sub.key.String()).Warn("read failed")
		return
	}
	if equal(value, sub.baseline) {
		return
	}
	sub.baseline = value

	muted := make(map[string]bool)
	for _, reg := range append([]registration(nil), sub.regs...) {
		if _, ok := r.owners[reg.id]; !ok {
			continue
		}
		skip, seen := muted[reg.client]
		if !seen {
			skip = r.suppress(sub.key, reg.client)
			muted[reg.client] = skip
		}
		if skip {
			continue
		}
		r.call(sub.key, reg, value)
	}
}

func (r *Reconciler) suppress(key Key, client string) bool {
	mk := muteKey{key: key, client: client}
	at, ok := r.mutes[mk]
	if !ok {
		return false
	}
	delete(r.mutes, mk)
	return r.now().Sub(at) <= r.window
}

func (r *Reconciler) call(key Key, reg registration, value any) {
	defer func() {
		if p := recover(); p != nil {
			r.log.WithField("key", key.String()).Errorf("listener panicked: %v", p)
		}
	}()
	reg.fn(value)
}

// Close detaches every native callback and refuses new registrations.
func (r *Reconciler) Close() {
	r.Reset()
	r.closed = true
}

// Reset detaches every native callback and drops every registration. Later
// removals of the dropped ids report ErrListenerNotRegistered.
func (r *Reconciler) Reset() {
	for _, key := range r.order {
		if sub := r.subs[key]; sub.detach != nil {
			sub.detach()
		}
	}
	r.subs = make(map[Key]*subscription)
	r.owners = make(map[ID]Key)
	r.queued = make(map[Key]bool)
	r.mutes = make(map[muteKey]time.Time)
	r.order = nil
	r.dirty = nil
}

// Subscribers returns the number of registrations on key.
func (r *Reconciler) Subscribers(key Key) int {
	if sub, ok := r.subs[key]; ok {
		return len(sub.regs)
	}
	return 0
}

// Len returns the number of keys with at least one registration.
func (r *Reconciler) Len() int {
	return len(r.subs)
}

func equal(a, b any) bool {
	fa, okA := a.(float64)
	fb, okB := b.(float64)
	if okA && okB {
		return fa == fb || (math.IsNaN(fa) && math.IsNaN(fb))
	}
	defer func() { recover() }()
	return a == b
}
