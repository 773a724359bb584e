// Package signout terminates the caller's session at the auth provider.
package signout

import (
	"context"
	"errors"
	"fmt"

	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/admin-console/internal/authprovider"
	"github.com/openkcm/admin-console/internal/serviceerr"
)

// Outcome classifies a finished sign-out for metrics and logs.
type Outcome string

const (
	OutcomeSignedOut   Outcome = "signed_out"
	OutcomeNoSession   Outcome = "no_session"
	OutcomeUnavailable Outcome = "unavailable"
	OutcomeRejected    Outcome = "rejected"
	OutcomeFailed      Outcome = "failed"
)

type Option func(*Terminator)

// WithObserver registers fn to be called with the outcome of every sign-out.
func WithObserver(fn func(ctx context.Context, outcome Outcome)) Option {
	return func(t *Terminator) {
		if fn != nil {
			t.observe = fn
		}
	}
}

type Terminator struct {
	newClient authprovider.Factory
	observe   func(ctx context.Context, outcome Outcome)
}

func NewTerminator(factory authprovider.Factory, opts ...Option) *Terminator {
	t := &Terminator{
		newClient: factory,
		observe:   func(context.Context, Outcome) {},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(t)
		}
	}

	return t
}

// SignOut builds a client for rc and asks it to sign out exactly once.
// A request without a session succeeds. Failures are returned joined with
// the *serviceerr.Error they are reported as.
func (t *Terminator) SignOut(ctx context.Context, rc *authprovider.RequestContext) error {
	client, err := t.newClient(ctx, rc)
	if err != nil {
		t.finish(ctx, OutcomeFailed, err)
		return errors.Join(serviceerr.ErrServerError, fmt.Errorf("creating auth provider client: %w", err))
	}

	err = client.SignOut(ctx)
	switch {
	case err == nil:
		t.finish(ctx, OutcomeSignedOut, nil)
		return nil
	case errors.Is(err, authprovider.ErrNoSession):
		t.finish(ctx, OutcomeNoSession, nil)
		return nil
	case errors.Is(err, authprovider.ErrUnavailable):
		t.finish(ctx, OutcomeUnavailable, err)
		return errors.Join(serviceerr.ErrProviderUnavailable, err)
	case errors.Is(err, authprovider.ErrRejected):
		t.finish(ctx, OutcomeRejected, err)
		return errors.Join(serviceerr.ErrProviderRejected, err)
	default:
		t.finish(ctx, OutcomeFailed, err)
		return errors.Join(serviceerr.ErrServerError, err)
	}
}

func (t *Terminator) finish(ctx context.Context, outcome Outcome, err error) {
	if err != nil {
		slogctx.Error(ctx, "Failed to sign out", "outcome", outcome, "error", err)
	} else {
		slogctx.Info(ctx, "Signed out", "outcome", outcome)
	}

	t.observe(ctx, outcome)
}
