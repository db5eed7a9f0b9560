package identity

import (
	"context"
	"strings"
)

type contextKey struct{}

// WithUserID returns a context carrying the signed-in user.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, contextKey{}, strings.TrimSpace(userID))
}

// FromContext returns the user stored by WithUserID.
func FromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(contextKey{}).(string)
	if !ok || userID == "" {
		return "", false
	}
	return userID, true
}

// Resolver answers "who is signed in" for a request: the request context
// wins, otherwise the configured local user (CLI mode). An empty fallback
// means signed out.
type Resolver struct {
	fallback string
}

func NewResolver(fallbackUserID string) Resolver {
	return Resolver{fallback: strings.TrimSpace(fallbackUserID)}
}

func (r Resolver) CurrentUserID(ctx context.Context) (string, bool) {
	if userID, ok := FromContext(ctx); ok {
		return userID, true
	}
	if r.fallback == "" {
		return "", false
	}
	return r.fallback, true
}
