// Package sessionvalkey stores sessions in Valkey under
// "<prefix>:session:<id>" as JSON with a TTL matching the session expiry.
package sessionvalkey

import (
	"context"
	"errors"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/openkcm/admin-console/internal/authprovider"
	"github.com/openkcm/admin-console/internal/authprovider/sessionstore"
)

const objectTypeSession ObjectType = "session"

var (
	ErrGetSession    = errors.New("getting session from store")
	ErrStoreSession  = errors.New("setting session into storage")
	ErrDeleteSession = errors.New("deleting session from store")

	errExpired = errors.New("session already expired")
)

type record struct {
	ID      string    `json:"id"`
	Subject string    `json:"subject"`
	Email   string    `json:"email,omitempty"`
	Expiry  time.Time `json:"expiry"`
}

type Repository struct {
	store *store
}

var _ = sessionstore.Repository(&Repository{})

func NewRepository(valkeyClient valkey.Client, prefix string) *Repository {
	return &Repository{
		store: newStore(valkeyClient, prefix),
	}
}

func (r *Repository) LoadSession(ctx context.Context, sessionID string) (authprovider.Session, error) {
	var rec record
	if err := r.store.Get(ctx, objectTypeSession, sessionID, &rec); err != nil {
		return authprovider.Session{}, errors.Join(ErrGetSession, err)
	}

	return authprovider.Session{
		ID:      rec.ID,
		Subject: rec.Subject,
		Email:   rec.Email,
		Expiry:  rec.Expiry,
	}, nil
}

// StoreSession stores s until its expiry. Sessions without expiry are kept
// until deleted.
func (r *Repository) StoreSession(ctx context.Context, s authprovider.Session) error {
	var ttl time.Duration
	if !s.Expiry.IsZero() {
		ttl = time.Until(s.Expiry)
		if ttl <= 0 {
			return errors.Join(ErrStoreSession, errExpired)
		}
	}

	rec := record{
		ID:      s.ID,
		Subject: s.Subject,
		Email:   s.Email,
		Expiry:  s.Expiry,
	}
	if err := r.store.Set(ctx, objectTypeSession, s.ID, rec, ttl); err != nil {
		return errors.Join(ErrStoreSession, err)
	}

	return nil
}

func (r *Repository) DeleteSession(ctx context.Context, sessionID string) error {
	if err := r.store.Destroy(ctx, objectTypeSession, sessionID); err != nil {
		return errors.Join(ErrDeleteSession, err)
	}

	return nil
}
