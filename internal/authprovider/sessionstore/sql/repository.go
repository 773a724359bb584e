// Package sessionsql stores sessions in the admin_sessions table.
package sessionsql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/openkcm/admin-console/internal/authprovider"
	"github.com/openkcm/admin-console/internal/authprovider/sessionstore"
	"github.com/openkcm/admin-console/internal/serviceerr"
)

type Repository struct {
	db *pgxpool.Pool
}

var _ = sessionstore.Repository(&Repository{})

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{
		db: db,
	}
}

func (r *Repository) LoadSession(ctx context.Context, sessionID string) (authprovider.Session, error) {
	var (
		s      authprovider.Session
		expiry *time.Time
	)

	if err := r.db.QueryRow(ctx, `SELECT id, subject, email, expiry
FROM admin_sessions
WHERE id = $1;`,
		sessionID,
	).
		Scan(&s.ID, &s.Subject, &s.Email, &expiry); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return authprovider.Session{}, serviceerr.ErrNotFound
		}

		return authprovider.Session{}, fmt.Errorf("selecting from admin_sessions: %w", err)
	}

	if expiry != nil {
		s.Expiry = *expiry
	}

	return s, nil
}

func (r *Repository) StoreSession(ctx context.Context, s authprovider.Session) error {
	var expiry *time.Time
	if !s.Expiry.IsZero() {
		expiry = &s.Expiry
	}

	if _, err := r.db.Exec(
		ctx, `INSERT INTO admin_sessions (id, subject, email, expiry)
VALUES ($1, $2, $3, $4)
	ON CONFLICT (id)
	DO UPDATE SET (subject, email, expiry) =
		(EXCLUDED.subject, EXCLUDED.email, EXCLUDED.expiry);`,
		s.ID, s.Subject, s.Email, expiry,
	); err != nil {
		return fmt.Errorf("inserting into admin_sessions: %w", err)
	}

	return nil
}

func (r *Repository) DeleteSession(ctx context.Context, sessionID string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM admin_sessions WHERE id = $1;`, sessionID)
	if err != nil {
		return fmt.Errorf("deleting from admin_sessions: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return serviceerr.ErrNotFound
	}

	return nil
}

// DeleteExpired removes the sessions that expired before the given time and
// returns how many were removed. Sessions without expiry are kept.
func (r *Repository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM admin_sessions WHERE expiry IS NOT NULL AND expiry < $1;`, before)
	if err != nil {
		return 0, fmt.Errorf("deleting expired from admin_sessions: %w", err)
	}

	return tag.RowsAffected(), nil
}
