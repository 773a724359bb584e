package business

import (
	"context"
	"errors"
	"fmt"
	"time"

	slogctx "github.com/veqryn/slog-context"

	sessionsql "github.com/openkcm/admin-console/internal/authprovider/sessionstore/sql"
	"github.com/openkcm/admin-console/internal/config"
)

var ErrHousekeeperProvider = errors.New("housekeeping is only supported for the sql auth provider")

type expiredDeleter interface {
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// HousekeeperMain purges expired sessions until ctx is done.
func HousekeeperMain(ctx context.Context, cfg *config.Config) error {
	if cfg.AuthProvider.Type != config.ProviderSQL {
		return fmt.Errorf("%w: %q", ErrHousekeeperProvider, cfg.AuthProvider.Type)
	}

	if cfg.Housekeeper.TriggerInterval <= 0 {
		return fmt.Errorf("%w: %s", config.ErrInvalidTriggerPeriod, cfg.Housekeeper.TriggerInterval)
	}

	db, err := newDBPool(ctx, cfg.AuthProvider.Database)
	if err != nil {
		return fmt.Errorf("failed to initialise the session repository: %w", err)
	}
	defer db.Close()

	runHousekeeping(ctx, sessionsql.NewRepository(db), cfg.Housekeeper.TriggerInterval, time.Now)

	return nil
}

func runHousekeeping(ctx context.Context, repo expiredDeleter, interval time.Duration, now func() time.Time) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		deleted, err := repo.DeleteExpired(ctx, now())
		if err != nil {
			slogctx.Error(ctx, "Error during session housekeeping", "error", err)
		} else if deleted > 0 {
			slogctx.Info(ctx, "Purged expired sessions", "count", deleted)
		}

		select {
		case <-ticker.C:
			continue
		case <-ctx.Done():
			return
		}
	}
}
