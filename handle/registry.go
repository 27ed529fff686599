// Package handle turns host-native object references into short StableIds
// that can be used as map keys across polling ticks or sent over the wire,
// and resolves those ids back to the original references.
package handle

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/sirupsen/logrus"
)

// ErrStaleHandle is returned for handles of a torn-down session and for
// handles issued before the host reloaded its project.
var ErrStaleHandle = errors.New("stale handle")

// UnknownHandleError is returned by Resolve for ids that were never issued in
// the current session or were invalidated by a Reset.
type UnknownHandleError struct {
	ID string
}

func (e *UnknownHandleError) Error() string {
	return fmt.Sprintf("unknown handle %q", e.ID)
}

// Identifier derives the host-computed identity of a handle. Two handles the
// host considers the same object must yield the same string.
type Identifier func(h any) (string, error)

// reprKey keys handles whose dynamic value cannot be used as a map key.
type reprKey string

// Registry caches StableIds by raw handle and maps issued ids back to handles.
// It is owned by one session and mutated only from the control goroutine.
type Registry struct {
	identify Identifier
	ids      map[any]string
	handles  map[string]any
	// issued maps every handle seen to the generation it was seen in.
	issued map[any]int
	gen    int
	closed bool
	log    logrus.FieldLogger
}

// NewRegistry creates an empty registry using identify to derive ids.
func NewRegistry(identify Identifier) *Registry {
	return &Registry{
		identify: identify,
		ids:      make(map[any]string),
		handles:  make(map[string]any),
		issued:   make(map[any]int),
		log:      logrus.WithField("component", "handle"),
	}
}

// SetLogger replaces the registry logger.
func (r *Registry) SetLogger(log logrus.FieldLogger) {
	r.log = log
}

// StableID returns the id for h, deriving and caching it on first use.
func (r *Registry) StableID(h any) (string, error) {
	if r.closed {
		return "", ErrStaleHandle
	}
	if h == nil {
		return "", errors.New("nil handle")
	}

	key := rawKey(h)
	if g, ok := r.issued[key]; ok && g != r.gen {
		return "", ErrStaleHandle
	}
	if id, ok := r.ids[key]; ok {
		return id, nil
	}

	id, err := r.identify(h)
	if err != nil {
		return "", fmt.Errorf("identify handle: %w", err)
	}

	if prev, ok := r.handles[id]; ok && rawKey(prev) != key {
		r.log.WithField("id", id).Warn("stable id collision, newest handle wins")
		delete(r.ids, rawKey(prev))
	}

	r.ids[key] = id
	r.handles[id] = h
	r.issued[key] = r.gen
	return id, nil
}

// Issue records that the host handed out h in the current generation. A
// handle issued before a Reset is stale until the host hands it out again.
func (r *Registry) Issue(h any) {
	if r.closed || h == nil {
		return
	}
	r.issued[rawKey(h)] = r.gen
}

// Check returns ErrStaleHandle when h belongs to a previous generation or the
// registry is closed. Handles the registry has never seen pass.
func (r *Registry) Check(h any) error {
	if r.closed {
		return ErrStaleHandle
	}
	if h == nil {
		return nil
	}
	if g, ok := r.issued[rawKey(h)]; ok && g != r.gen {
		return ErrStaleHandle
	}
	return nil
}

// Resolve returns the handle a previously issued id refers to.
func (r *Registry) Resolve(id string) (any, error) {
	if r.closed {
		return nil, ErrStaleHandle
	}
	h, ok := r.handles[id]
	if !ok {
		return nil, &UnknownHandleError{ID: id}
	}
	return h, nil
}

// Reset drops every issued id and starts a new generation. Used when the host
// reloads its project and the handles it handed out before may no longer be
// valid.
func (r *Registry) Reset() {
	r.ids = make(map[any]string)
	r.handles = make(map[string]any)
	r.gen++
}

// Close resets the registry and makes every later call fail with
// ErrStaleHandle.
func (r *Registry) Close() {
	r.Reset()
	r.issued = make(map[any]int)
	r.closed = true
}

// Closed reports whether Close has been called.
func (r *Registry) Closed() bool {
	return r.closed
}

// Len returns the number of ids issued since the last reset.
func (r *Registry) Len() int {
	return len(r.handles)
}

func rawKey(h any) any {
	if reflect.ValueOf(h).Comparable() {
		return h
	}
	return reprKey(fmt.Sprintf("%T:%#v", h, h))
}
