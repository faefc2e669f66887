package session

import (
	"context"
	"errors"

	"github.com/kalambet/filesearch/internal/backend"
)

// Kind classifies session errors for display.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindNetwork
	KindRejected
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNetwork:
		return "network"
	case KindRejected:
		return "rejected"
	case KindNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// Validation errors. They are returned before any backend call is made.
var (
	ErrEmptyPrompt   = errors.New("prompt is empty")
	ErrNoStore       = errors.New("no store selected")
	ErrQueryInFlight = errors.New("a query is already in flight")
	ErrStoreBusy     = errors.New("store is syncing or uploading")
)

// ErrStoreNotFound reports that a store is not in the current listing.
var ErrStoreNotFound = errors.New("store not found")

// QueryError is a failed backend call. Message is always human-readable.
type QueryError struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *QueryError) Error() string { return e.Message }

func (e *QueryError) Unwrap() error { return e.Err }

// KindOf reports the Kind of err.
func KindOf(err error) Kind {
	var qe *QueryError
	switch {
	case err == nil:
		return KindUnknown
	case errors.As(err, &qe):
		return qe.Kind
	case errors.Is(err, ErrEmptyPrompt), errors.Is(err, ErrNoStore),
		errors.Is(err, ErrQueryInFlight), errors.Is(err, ErrStoreBusy):
		return KindValidation
	case errors.Is(err, ErrStoreNotFound):
		return KindNotFound
	default:
		return KindUnknown
	}
}

// backendError wraps a failed backend call, extracting the message with def
// as the fallback.
func backendError(err error, def string) *QueryError {
	return &QueryError{
		Kind:    classify(err),
		Message: backend.ErrorMessage(err, def),
		Err:     err,
	}
}

func classify(err error) Kind {
	var apiErr *backend.APIError
	switch {
	case errors.As(err, &apiErr):
		if apiErr.Structured() {
			return KindRejected
		}
		return KindUnknown
	case errors.Is(err, backend.ErrUnreachable),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return KindNetwork
	default:
		return KindUnknown
	}
}
