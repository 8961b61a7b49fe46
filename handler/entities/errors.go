package entities

import (
	"errors"
	"fmt"

	"github.com/inlay-dev/inlay-core/handler/values"
)

// Sentinel errors for the lifecycle manager's typed failures. Each supports
// errors.Is via the sentinel and errors.As via its struct form.
var (
	// ErrHandlerNotFound is returned when a handler exists in no kind
	// directory and the remote registry does not know it either.
	ErrHandlerNotFound = errors.New("handler not found")

	// ErrGateRejected is returned when the usage gate refuses a handler
	// name. Fatal for the requesting tag.
	ErrGateRejected = errors.New("handler use rejected")

	// ErrIncompatible is returned when an installed handler declares a
	// protocol version different from the runtime's. The code is never
	// loaded.
	ErrIncompatible = errors.New("handler protocol incompatible")

	// ErrUpdateDeclined marks a recoverable condition: an update exists but
	// was not downloaded (no consent, non-interactive run). Processing
	// continues with the installed version.
	ErrUpdateDeclined = errors.New("handler update not downloaded")
)

// NotFoundError carries the name that could not be resolved anywhere.
type NotFoundError struct {
	Name values.Name
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("handler not found: %s", e.Name)
}

// Is implements matching for errors.Is(err, ErrHandlerNotFound).
func (e *NotFoundError) Is(target error) bool {
	return target == ErrHandlerNotFound
}

// GateRejectedError indicates the usage gate refused this handler.
type GateRejectedError struct {
	Reason error
	Name   values.Name
}

func (e *GateRejectedError) Error() string {
	return fmt.Sprintf("handler %s rejected by usage gate: %v", e.Name, e.Reason)
}

func (e *GateRejectedError) Is(target error) bool {
	return target == ErrGateRejected
}

func (e *GateRejectedError) Unwrap() error {
	return e.Reason
}

// IncompatibleError reports a protocol version mismatch between an installed
// handler and the runtime.
type IncompatibleError struct {
	Name     values.Name
	Declared values.Version
	Required values.Version
}

func (e *IncompatibleError) Error() string {
	return fmt.Sprintf("handler %s declares protocol %s, runtime requires %s",
		e.Name, e.Declared, e.Required)
}

func (e *IncompatibleError) Is(target error) bool {
	return target == ErrIncompatible
}

// UpdateDeclinedError records an available but undownloaded update.
type UpdateDeclinedError struct {
	Name      values.Name
	Available values.Version
	Kind      values.UpdateKind
}

func (e *UpdateDeclinedError) Error() string {
	return fmt.Sprintf("%s update %s available for handler %s but not downloaded",
		e.Kind, e.Available, e.Name)
}

func (e *UpdateDeclinedError) Is(target error) bool {
	return target == ErrUpdateDeclined
}
