// Package authprovider defines the contract between the service and the
// external identity provider that owns user sessions.
//
// A Client is never shared between requests: it is built by a Factory from
// the RequestContext of the request it serves, so every cookie it reads or
// writes is explicit.
package authprovider

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNoSession is returned by GetSession when the request carries no
	// session the provider recognises, and by SignOut when there was
	// nothing to invalidate.
	ErrNoSession = errors.New("no active session")
	// ErrUnavailable marks transient failures: the provider could not be
	// reached, timed out or failed internally.
	ErrUnavailable = errors.New("auth provider unavailable")
	// ErrRejected marks requests the provider refused for a reason other
	// than the session being already invalid.
	ErrRejected = errors.New("auth provider rejected the request")
)

// Session is the provider's view of an authenticated user session.
type Session struct {
	ID      string
	Subject string
	Email   string
	Expiry  time.Time
}

// DisplayName returns the most readable identifier of the session owner.
func (s Session) DisplayName() string {
	if s.Email != "" {
		return s.Email
	}

	return s.Subject
}

// Client talks to the auth provider on behalf of a single request.
type Client interface {
	// GetSession returns the current session or ErrNoSession.
	GetSession(ctx context.Context) (Session, error)
	// SignOut invalidates the current session and clears the session
	// cookies. When there is no session to invalidate the cookies are
	// still cleared and ErrNoSession is returned.
	SignOut(ctx context.Context) error
}

// Factory builds a Client bound to the given request context.
type Factory func(ctx context.Context, rc *RequestContext) (Client, error)
