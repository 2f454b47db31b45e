package product

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"syscall"
)

// Kind classifies a failure for retry/dead-letter routing and, when surfaced
// synchronously, for the HTTP status.
type Kind string

const (
	// KindInvalidMessage marks malformed or unprocessable input. Never
	// retried; routed to the dead-letter sink.
	KindInvalidMessage Kind = "invalid_message"
	// KindConflict marks a business-rule violation such as a duplicate
	// create or a stale version. Never retried.
	KindConflict Kind = "conflict"
	// KindNotFound marks an update or delete for an entity that does not
	// exist. Never retried.
	KindNotFound Kind = "not_found"
	// KindExternalDependency marks connectivity failures talking to the
	// store or the transport. Retryable.
	KindExternalDependency Kind = "external_dependency"
	// KindPersistence marks store-level operational failures distinct from
	// connectivity. Retryable.
	KindPersistence Kind = "persistence"
	// KindProcessing marks unclassified failures, treated conservatively as
	// retryable with a cap.
	KindProcessing Kind = "processing"
)

// Retryable reports whether the transport should retry a failure of this
// kind before dead-lettering it.
func (k Kind) Retryable() bool {
	switch k {
	case KindExternalDependency, KindPersistence, KindProcessing:
		return true
	default:
		return false
	}
}

// HTTPStatus maps the kind to the status used when the failure surfaces on
// the read API.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindInvalidMessage, KindConflict, KindNotFound:
		return http.StatusBadRequest
	case KindExternalDependency, KindPersistence:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Error is a classified domain failure.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func NewError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func WrapError(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Classify maps an arbitrary error onto exactly one Kind. Already-classified
// errors pass through unchanged; connectivity failures become
// KindExternalDependency; anything else is KindProcessing.
func Classify(err error) *Error {
	var derr *Error
	if errors.As(err, &derr) {
		return derr
	}

	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return WrapError(KindExternalDependency, "operation cancelled or timed out", err)
	case errors.As(err, &netErr),
		errors.Is(err, io.EOF),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.EPIPE):
		return WrapError(KindExternalDependency, "external dependency failure", err)
	}

	return WrapError(KindProcessing, "processing failure", err)
}

// WrapStoreError classifies a store adapter failure: connectivity problems
// stay KindExternalDependency, everything else becomes KindPersistence.
func WrapStoreError(message string, err error) *Error {
	var derr *Error
	if errors.As(err, &derr) {
		return derr
	}
	if c := Classify(err); c.Kind == KindExternalDependency {
		return WrapError(KindExternalDependency, message, err)
	}
	return WrapError(KindPersistence, message, err)
}
