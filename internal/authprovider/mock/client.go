// Package providermock provides an in-memory auth provider client that
// records how it was used.
package providermock

import (
	"context"
	"sync"

	"github.com/openkcm/admin-console/internal/authprovider"
)

type ClientOption func(*Client)

// WithSession makes GetSession return s.
func WithSession(s authprovider.Session) ClientOption {
	return func(c *Client) { c.session = &s }
}

func WithGetSessionError(err error) ClientOption {
	return func(c *Client) { c.getSessionErr = err }
}

func WithSignOutError(err error) ClientOption {
	return func(c *Client) { c.signOutErr = err }
}

// Client is safe for concurrent use so one instance can back a Factory
// shared by parallel requests.
type Client struct {
	mu sync.Mutex

	session       *authprovider.Session
	getSessionErr error
	signOutErr    error

	getSessionCalls int
	signOutCalls    int
}

var _ authprovider.Client = (*Client)(nil)

func NewClient(opts ...ClientOption) *Client {
	c := &Client{}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	return c
}

func (c *Client) GetSession(_ context.Context) (authprovider.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.getSessionCalls++
	if c.getSessionErr != nil {
		return authprovider.Session{}, c.getSessionErr
	}
	if c.session == nil {
		return authprovider.Session{}, authprovider.ErrNoSession
	}

	return *c.session, nil
}

func (c *Client) SignOut(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.signOutCalls++
	if c.signOutErr != nil {
		return c.signOutErr
	}
	if c.session == nil {
		return authprovider.ErrNoSession
	}
	c.session = nil

	return nil
}

func (c *Client) GetSessionCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.getSessionCalls
}

func (c *Client) SignOutCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.signOutCalls
}

// Factory returns a factory that hands out c for every request and counts
// how many clients were built.
func (c *Client) Factory(built *int) authprovider.Factory {
	var mu sync.Mutex

	return func(context.Context, *authprovider.RequestContext) (authprovider.Client, error) {
		if built != nil {
			mu.Lock()
			*built++
			mu.Unlock()
		}

		return c, nil
	}
}
