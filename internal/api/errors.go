package api

import (
	"context"
	"errors"
	"fmt"
	"net"
)

var (
	// ErrRejected matches every RejectedError.
	ErrRejected = errors.New("rejected by server")
	// ErrTimeout matches a TransportError caused by a deadline.
	ErrTimeout = errors.New("request timed out")
)

// RejectedError is a 4xx answer: the server understood the command and
// refused it (slot full, duplicate booking, venue closed, unknown entity).
type RejectedError struct {
	Path   string
	Status int
	Reason string
}

func (e *RejectedError) Error() string {
	if e.Reason != "" {
		return e.Reason
	}
	return fmt.Sprintf("api %s returned status %d", e.Path, e.Status)
}

func (e *RejectedError) Is(target error) bool {
	return target == ErrRejected
}

// TransportError covers everything that prevented an answer: dial and read
// failures, deadlines, 5xx responses and undecodable bodies.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Is matches ErrTimeout when the underlying failure was a deadline.
func (e *TransportError) Is(target error) bool {
	return target == ErrTimeout && e.Timeout()
}

// Timeout reports whether the request ran out of time.
func (e *TransportError) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(e.Err, &netErr) && netErr.Timeout()
}
