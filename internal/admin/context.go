package admin

import (
	"context"

	"github.com/openkcm/admin-console/internal/authprovider"
)

type contextKey string

const sessionKey contextKey = "admin-session"

// WithSession returns a copy of ctx carrying the session of the signed-in
// administrator.
func WithSession(ctx context.Context, s authprovider.Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

// SessionFromContext returns the session stored by the session gate.
func SessionFromContext(ctx context.Context) (authprovider.Session, bool) {
	s, ok := ctx.Value(sessionKey).(authprovider.Session)
	return s, ok
}
