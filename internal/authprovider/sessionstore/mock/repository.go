package sessionmock

import (
	"context"
	"sync"

	"github.com/openkcm/admin-console/internal/authprovider"
	"github.com/openkcm/admin-console/internal/authprovider/sessionstore"
	"github.com/openkcm/admin-console/internal/serviceerr"
)

type RepositoryOption func(*Repository)

func WithSession(s authprovider.Session) RepositoryOption {
	return func(r *Repository) { r.sessions[s.ID] = s }
}
func WithLoadSessionError(err error) RepositoryOption {
	return func(r *Repository) { r.loadSessionErr = err }
}
func WithStoreSessionError(err error) RepositoryOption {
	return func(r *Repository) { r.storeSessionErr = err }
}
func WithDeleteSessionError(err error) RepositoryOption {
	return func(r *Repository) { r.deleteSessionErr = err }
}

type Repository struct {
	mu       sync.Mutex
	sessions map[string]authprovider.Session
	deleted  []string

	loadSessionErr, storeSessionErr, deleteSessionErr error
}

var _ = sessionstore.Repository(&Repository{})

func NewInMemRepository(opts ...RepositoryOption) *Repository {
	r := &Repository{
		sessions: make(map[string]authprovider.Session),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

func (r *Repository) LoadSession(_ context.Context, sessionID string) (authprovider.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.loadSessionErr != nil {
		return authprovider.Session{}, r.loadSessionErr
	}
	if s, ok := r.sessions[sessionID]; ok {
		return s, nil
	}
	return authprovider.Session{}, serviceerr.ErrNotFound
}

func (r *Repository) StoreSession(_ context.Context, s authprovider.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.storeSessionErr != nil {
		return r.storeSessionErr
	}
	r.sessions[s.ID] = s
	return nil
}

func (r *Repository) DeleteSession(_ context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.deleted = append(r.deleted, sessionID)
	if r.deleteSessionErr != nil {
		return r.deleteSessionErr
	}
	if _, ok := r.sessions[sessionID]; !ok {
		return serviceerr.ErrNotFound
	}
	delete(r.sessions, sessionID)
	return nil
}

// Deleted returns every session ID DeleteSession was called with.
func (r *Repository) Deleted() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]string(nil), r.deleted...)
}

// Has reports whether the repository holds sessionID.
func (r *Repository) Has(sessionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.sessions[sessionID]
	return ok
}
