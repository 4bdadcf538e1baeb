package remote

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// Class partitions remote failures into the two recovery categories the
// orchestrator cares about. Both leave staged data in place so the next
// sync cycle retries; the distinction is surfaced to users and drives
// the scheduler's backoff.
type Class int

const (
	// ClassUnavailable is a transient failure: timeout, connection
	// reset, remote temporarily down.
	ClassUnavailable Class = iota

	// ClassRejected is a non-transient rejection: validation failure,
	// constraint violation, permission denied.
	ClassRejected
)

// String returns a human-readable representation of the class.
func (c Class) String() string {
	switch c {
	case ClassUnavailable:
		return "remote unavailable"
	case ClassRejected:
		return "remote rejected"
	default:
		return "unknown"
	}
}

// Error wraps a remote store failure with its classification and the
// operation that produced it.
type Error struct {
	Class Class
	Op    string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Class, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// unavailable wraps err as a transient remote failure.
func unavailable(op string, err error) error {
	return &Error{Class: ClassUnavailable, Op: op, Err: err}
}

// rejected wraps err as a remote rejection.
func rejected(op string, err error) error {
	return &Error{Class: ClassRejected, Op: op, Err: err}
}

// classify wraps a raw driver error, mapping it to the unavailable or
// rejected class. Timeouts, cancellations, and network errors are
// transient; constraint and parse errors are rejections. Unknown errors
// default to unavailable so they are retried rather than dropped.
func classify(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return unavailable(op, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return unavailable(op, err)
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "constraint"),
		strings.Contains(msg, "syntax error"),
		strings.Contains(msg, "no such table"),
		strings.Contains(msg, "datatype mismatch"):
		return rejected(op, err)
	}
	return unavailable(op, err)
}

// IsUnavailable reports whether err is a transient remote failure.
func IsUnavailable(err error) bool {
	var re *Error
	return errors.As(err, &re) && re.Class == ClassUnavailable
}

// IsRejected reports whether err is a remote rejection.
func IsRejected(err error) bool {
	var re *Error
	return errors.As(err, &re) && re.Class == ClassRejected
}
