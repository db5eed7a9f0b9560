// Package httpx holds the gin plumbing shared by module HTTP handlers.
package httpx

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "habitkit/internal/platform/errors"
	"habitkit/internal/platform/identity"
)

// UserHeader carries the caller's user id. Authentication happens upstream
// (reverse proxy or gateway); an absent header means signed out.
const UserHeader = "X-User-ID"

type ErrorResponse struct {
	Error     string `json:"error"`
	Kind      string `json:"kind"`
	Retryable bool   `json:"retryable"`
}

// Identify copies the user header into the request context.
func Identify() gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID := c.GetHeader(UserHeader); userID != "" {
			c.Request = c.Request.WithContext(identity.WithUserID(c.Request.Context(), userID))
		}
		c.Next()
	}
}

func Status(err error) int {
	switch {
	case errors.Is(err, apperrors.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, apperrors.ErrValidationFailed):
		return http.StatusUnprocessableEntity
	case errors.Is(err, apperrors.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperrors.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, apperrors.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Abort writes err as JSON with its mapped status. Retryable errors carry a
// Retry-After hint.
func Abort(c *gin.Context, err error) {
	status := Status(err)
	retryable := apperrors.Retryable(err)
	if retryable {
		c.Header("Retry-After", "1")
	}
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, ErrorResponse{Error: msg, Kind: apperrors.Kind(err), Retryable: retryable})
}
