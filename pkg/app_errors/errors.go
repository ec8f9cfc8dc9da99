package apperrors

import "errors"

// business rules
var (
	ErrEventNotFound        = errors.New("event not found")
	ErrEventFull            = errors.New("event is already full")
	ErrAlreadyRegistered    = errors.New("already registered for this event")
	ErrNotRegistered        = errors.New("not registered for this event")
	ErrInvalidInput         = errors.New("invalid input")
	ErrUnsupportedMediaType = errors.New("unsupported media type")
	ErrForbidden            = errors.New("forbidden")
	ErrUnauthorized         = errors.New("unauthorized")
)

// transient infrastructure
var (
	ErrLabelServiceUnavailable     = errors.New("label service unavailable")
	ErrRelevanceServiceUnavailable = errors.New("relevance service unavailable")
	// ErrStoreConflict is returned by a store when a conditional write did not
	// apply and the current state does not explain why. Callers retry it.
	ErrStoreConflict = errors.New("store write conflict")
	// ErrStoreContention is ErrStoreConflict after the retry budget is spent.
	ErrStoreContention = errors.New("store contention, try again later")
)

var (
	ErrInvariantViolation  = errors.New("event invariant violated")
	ErrInternalServerError = errors.New("internal server error")
)

// IsRetryable reports whether err is a transient failure the client should retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrLabelServiceUnavailable) ||
		errors.Is(err, ErrRelevanceServiceUnavailable) ||
		errors.Is(err, ErrStoreContention)
}
