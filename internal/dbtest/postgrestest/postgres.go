package postgrestest

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pressly/goose/v3"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	// Register pgx driver
	_ "github.com/jackc/pgx/v5/stdlib"

	slogctx "github.com/veqryn/slog-context"

	migrations "github.com/openkcm/admin-console/sql"
)

const (
	DBHost     = "localhost"
	DBUser     = "postgres"
	DBPassword = "secret"
	DBName     = "admin_console"
	DBSSLMode  = "disable"
)

// ExpiryTime is the expiry of the pre-inserted sessions. Postgres keeps
// microseconds, so the value is truncated to survive a round trip.
//
//nolint:gosmopolitan
var ExpiryTime = time.Now().Add(30 * 24 * time.Hour).Truncate(time.Microsecond).Local()

// Start runs a migrated database and returns a connection pool, the mapped
// port and a termination function.
//
// Database credentials are available as exported constants. The database
// contains the sessions inserted in prepareDB.
func Start(ctx context.Context) (*pgxpool.Pool, nat.Port, func(ctx context.Context)) {
	pgContainer, err := postgres.Run(
		ctx,
		"postgres:17-alpine",
		postgres.WithDatabase(DBName),
		postgres.WithUsername(DBUser),
		postgres.WithPassword(DBPassword),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		slogctx.Error(ctx, "Failed to start PostgreSQL", slog.String("error", err.Error()))
		panic(err)
	}

	port, err := pgContainer.MappedPort(ctx, nat.Port("5432"))
	if err != nil {
		slogctx.Error(ctx, "Failed to get mapped port for the PostgreSQL container", slog.String("error", err.Error()))
		panic(err)
	}

	connStr := ConnStr(port)

	if err := migrateDB(ctx, connStr); err != nil {
		panic(err)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		panic(err)
	}

	prepareDB(ctx, pool)

	terminate := func(ctx context.Context) {
		pool.Close()
		if err := pgContainer.Terminate(ctx); err != nil {
			slogctx.Error(ctx, "Failed to terminate PostgreSQL container", slog.String("error", err.Error()))
			panic(err)
		}
	}

	return pool, port, terminate
}

func ConnStr(port nat.Port) string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		DBHost, DBUser, DBPassword, DBName, port.Port(), DBSSLMode)
}

func migrateDB(ctx context.Context, connStr string) error {
	db, err := sql.Open("pgx", connStr)
	if err != nil {
		return err
	}
	defer db.Close()

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}

	return goose.UpContext(ctx, db, ".")
}

func prepareDB(ctx context.Context, pool *pgxpool.Pool) {
	b := new(pgx.Batch)
	b.Queue(`INSERT INTO admin_sessions (id, subject, email, expiry) VALUES ('sessionid-one', 'user-one', 'one@example.com', $1);`, ExpiryTime)
	b.Queue(`INSERT INTO admin_sessions (id, subject, email, expiry) VALUES ('sessionid-two', 'user-two', '', NULL);`)

	res := pool.SendBatch(ctx, b)
	if err := res.Close(); err != nil {
		panic(err)
	}
}
