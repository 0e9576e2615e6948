package discovery

import (
	"errors"
	"fmt"
)

// ErrorKind represents the category of a discovery failure
type ErrorKind int

const (
	// ErrKindTransportUnavailable indicates the scan could not be started
	ErrKindTransportUnavailable ErrorKind = iota
	// ErrKindStopBusy indicates stop was refused because callbacks are still in flight
	ErrKindStopBusy
	// ErrKindStopFatal indicates stop failed for a reason retrying will not fix
	ErrKindStopFatal
)

// String returns a human-readable name for the error kind
func (k ErrorKind) String() string {
	switch k {
	case ErrKindTransportUnavailable:
		return "Transport Unavailable"
	case ErrKindStopBusy:
		return "Stop Busy"
	case ErrKindStopFatal:
		return "Stop Failed"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

var (
	// ErrStopBusy is returned by Transport.Stop while the transport is still
	// processing discovery callbacks. Callers retry.
	ErrStopBusy = &Error{Kind: ErrKindStopBusy, Op: "stop"}

	// ErrTransportUnavailable is returned by Transport.Start when the
	// underlying network facility cannot be used.
	ErrTransportUnavailable = &Error{Kind: ErrKindTransportUnavailable, Op: "start"}

	// ErrScanInProgress is returned when a scan is requested while another
	// scan on the same engine has not finished.
	ErrScanInProgress = errors.New("discovery: scan already in progress")
)

// Error is a classified transport failure.
type Error struct {
	Kind ErrorKind
	Op   string // "start" or "stop"
	Err  error  // underlying cause, may be nil
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("discovery %s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("discovery %s: %s", e.Op, e.Kind)
}

// Unwrap returns the underlying error for error chain inspection
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so wrapped causes still compare
// equal to the ErrStopBusy and ErrTransportUnavailable sentinels.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Transient reports whether the operation should be retried.
func (e *Error) Transient() bool {
	return e.Kind == ErrKindStopBusy
}

// NewStartError wraps a start failure as ErrKindTransportUnavailable.
func NewStartError(err error) *Error {
	return &Error{Kind: ErrKindTransportUnavailable, Op: "start", Err: err}
}

// NewStopError wraps a stop failure. Busy failures are transient.
func NewStopError(err error, busy bool) *Error {
	kind := ErrKindStopFatal
	if busy {
		kind = ErrKindStopBusy
	}
	return &Error{Kind: kind, Op: "stop", Err: err}
}

// IsTransientStopError is the default stop classifier: only ErrStopBusy
// (or an error wrapping it) is transient.
func IsTransientStopError(err error) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Transient()
	}
	return false
}
