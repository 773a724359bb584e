// Package sessionstore implements an auth provider client on top of a
// session repository shared with the service that issues the sessions.
// The session cookie carries the session ID.
package sessionstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/admin-console/internal/authprovider"
	"github.com/openkcm/admin-console/internal/config"
	"github.com/openkcm/admin-console/internal/serviceerr"
)

// Repository stores sessions by ID. Missing sessions are reported with
// serviceerr.ErrNotFound.
type Repository interface {
	LoadSession(ctx context.Context, sessionID string) (authprovider.Session, error)
	StoreSession(ctx context.Context, s authprovider.Session) error
	DeleteSession(ctx context.Context, sessionID string) error
}

type Client struct {
	sessions Repository
	rc       *authprovider.RequestContext
	cookie   config.CookieTemplate
	now      func() time.Time
}

var _ authprovider.Client = (*Client)(nil)

// NewFactory returns a factory building clients over sessions.
func NewFactory(sessions Repository, cookie config.CookieTemplate) authprovider.Factory {
	return func(_ context.Context, rc *authprovider.RequestContext) (authprovider.Client, error) {
		if rc == nil {
			return nil, errors.New("request context is nil")
		}

		return &Client{
			sessions: sessions,
			rc:       rc,
			cookie:   cookie,
			now:      time.Now,
		}, nil
	}
}

func (c *Client) GetSession(ctx context.Context) (authprovider.Session, error) {
	sessionID, ok := c.rc.Cookie(c.cookie.Name)
	if !ok {
		return authprovider.Session{}, authprovider.ErrNoSession
	}

	s, err := c.sessions.LoadSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, serviceerr.ErrNotFound) {
			return authprovider.Session{}, authprovider.ErrNoSession
		}

		return authprovider.Session{}, errors.Join(authprovider.ErrUnavailable, fmt.Errorf("loading session: %w", err))
	}

	if !s.Expiry.IsZero() && c.now().After(s.Expiry) {
		return authprovider.Session{}, authprovider.ErrNoSession
	}

	return s, nil
}

// SignOut deletes the session record and clears the session cookie.
// Without a cookie, or when the record is already gone, the cookie is still
// cleared and ErrNoSession is returned.
func (c *Client) SignOut(ctx context.Context) error {
	invalidated := false

	sessionID, ok := c.rc.Cookie(c.cookie.Name)
	if ok {
		err := c.sessions.DeleteSession(ctx, sessionID)
		switch {
		case errors.Is(err, serviceerr.ErrNotFound):
			slogctx.Debug(ctx, "Session already gone from the store")
		case err != nil:
			return errors.Join(authprovider.ErrUnavailable, fmt.Errorf("deleting session: %w", err))
		default:
			invalidated = true
		}
	}

	c.rc.SetCookie(c.cookie.ToExpiredCookie())

	if !invalidated {
		return authprovider.ErrNoSession
	}

	return nil
}
