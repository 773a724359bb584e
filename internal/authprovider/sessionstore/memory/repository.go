// Package sessionmemory keeps sessions in process memory. It serves single
// instance deployments and local development.
package sessionmemory

import (
	"context"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/openkcm/admin-console/internal/authprovider"
	"github.com/openkcm/admin-console/internal/authprovider/sessionstore"
	"github.com/openkcm/admin-console/internal/serviceerr"
)

type Repository struct {
	// mu makes the lookup and removal in DeleteSession atomic.
	mu    sync.Mutex
	cache *cache.Cache
}

var _ = sessionstore.Repository(&Repository{})

// NewRepository returns an empty repository that evicts expired sessions
// every cleanupInterval.
func NewRepository(cleanupInterval time.Duration) *Repository {
	return &Repository{
		cache: cache.New(cache.NoExpiration, cleanupInterval),
	}
}

func (r *Repository) LoadSession(_ context.Context, sessionID string) (authprovider.Session, error) {
	v, ok := r.cache.Get(sessionID)
	if !ok {
		return authprovider.Session{}, serviceerr.ErrNotFound
	}

	//nolint:forcetypeassert
	return v.(authprovider.Session), nil
}

func (r *Repository) StoreSession(_ context.Context, s authprovider.Session) error {
	ttl := cache.NoExpiration
	if !s.Expiry.IsZero() {
		ttl = time.Until(s.Expiry)
		if ttl <= 0 {
			return nil
		}
	}

	r.cache.Set(s.ID, s, ttl)

	return nil
}

func (r *Repository) DeleteSession(_ context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.cache.Get(sessionID); !ok {
		return serviceerr.ErrNotFound
	}

	r.cache.Delete(sessionID)

	return nil
}
