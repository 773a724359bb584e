// Package requestctx binds the auth provider request context of the
// original *http.Request to its context.Context.
package requestctx

import (
	"context"
	"errors"
	"net/http"

	"github.com/openkcm/admin-console/internal/authprovider"
)

// Using an unexported type prevents key collisions from other packages.
type contextKey string

// RequestContextKey is the context key for the *authprovider.RequestContext.
const RequestContextKey contextKey = "auth-request-context"

var ErrNotFound = errors.New("request context not found in context")

// Middleware is an http.Handler middleware that builds the request context
// from the response writer and the request and injects it into the context.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rc := authprovider.NewRequestContext(w, r)
		next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), rc)))
	})
}

func NewContext(ctx context.Context, rc *authprovider.RequestContext) context.Context {
	return context.WithValue(ctx, RequestContextKey, rc)
}

// FromContext retrieves the request context injected by Middleware.
func FromContext(ctx context.Context) (*authprovider.RequestContext, error) {
	rc, ok := ctx.Value(RequestContextKey).(*authprovider.RequestContext)
	if !ok || rc == nil {
		return nil, ErrNotFound
	}

	return rc, nil
}
