package host

import (
	"errors"
	"fmt"

	"github.com/Conceptual-Machines/dawscript-go/handle"
	"github.com/Conceptual-Machines/dawscript-go/listener"
)

var (
	// ErrIncompatibleEnvironment is returned by a probe when its host is not
	// present. The loader recovers from it by trying the next adapter.
	ErrIncompatibleEnvironment = errors.New("incompatible environment")

	// ErrStaleHandle is returned for calls made after the session ended or
	// with a handle from a previous project.
	ErrStaleHandle = handle.ErrStaleHandle

	// ErrListenerNotRegistered is logged and swallowed by the facade.
	ErrListenerNotRegistered = listener.ErrListenerNotRegistered

	// ErrNotSupported is returned by backends for capabilities their host
	// does not offer, such as native change notifications.
	ErrNotSupported = errors.New("not supported by host")
)

// UnknownHandleError is returned when resolving an id that was never issued.
type UnknownHandleError = handle.UnknownHandleError

// NotFoundError is returned by name lookups with no case-insensitive match.
type NotFoundError struct {
	Kind string
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with name %q does not exist", e.Kind, e.Name)
}

// HookError wraps an error returned, or a panic raised, by a controller hook.
type HookError struct {
	Hook string
	Err  error
}

func (e *HookError) Error() string {
	return fmt.Sprintf("controller hook %s: %v", e.Hook, e.Err)
}

func (e *HookError) Unwrap() error {
	return e.Err
}

// TypeError is returned when a backend reports a value of an unexpected type.
type TypeError struct {
	Prop  Property
	Value any
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("%s: unexpected value %v (%T)", e.Prop, e.Value, e.Value)
}
