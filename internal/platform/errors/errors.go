package apperrors

import "errors"

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrNotFound         = errors.New("not found")
	ErrUnauthenticated  = errors.New("unauthenticated: no signed-in user")
	ErrValidationFailed = errors.New("validation failed")
	ErrConflict         = errors.New("session conflict: retry the request")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrUniqueViolation  = errors.New("unique constraint violated")
)

// Retryable reports whether repeating the same request may succeed.
func Retryable(err error) bool {
	return errors.Is(err, ErrConflict) || errors.Is(err, ErrStoreUnavailable)
}

// Kind maps an error to a stable label for metrics and transport mapping.
func Kind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrUnauthenticated):
		return "unauthenticated"
	case errors.Is(err, ErrValidationFailed):
		return "validation_failed"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrStoreUnavailable):
		return "store_unavailable"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrUniqueViolation):
		return "unique_violation"
	default:
		return "internal"
	}
}
