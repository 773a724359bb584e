package business

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/exaring/otelpgx"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/openkcm/common-sdk/pkg/commoncfg"
	"github.com/valkey-io/valkey-go"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/admin-console/internal/authprovider"
	"github.com/openkcm/admin-console/internal/authprovider/gotrue"
	"github.com/openkcm/admin-console/internal/authprovider/sessionstore"
	sessionmemory "github.com/openkcm/admin-console/internal/authprovider/sessionstore/memory"
	sessionsql "github.com/openkcm/admin-console/internal/authprovider/sessionstore/sql"
	sessionvalkey "github.com/openkcm/admin-console/internal/authprovider/sessionstore/valkey"
	"github.com/openkcm/admin-console/internal/business/server"
	"github.com/openkcm/admin-console/internal/config"
)

// Main starts the public HTTP server and blocks until ctx is done.
func Main(ctx context.Context, cfg *config.Config) error {
	factory, closeFn, err := initAuthProviderFactory(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initialising the auth provider: %w", err)
	}

	defer closeFn()

	slogctx.Info(ctx, "Auth provider initialised", "type", cfg.AuthProvider.Type)

	return server.StartHTTPServer(ctx, cfg, factory)
}

// initAuthProviderFactory builds the client factory of the configured auth
// provider. closeFn releases the shared connections.
func initAuthProviderFactory(ctx context.Context, cfg *config.Config) (_ authprovider.Factory, closeFn func(), _ error) {
	ap := cfg.AuthProvider

	switch ap.Type {
	case config.ProviderGoTrue:
		factory, err := initGoTrue(ap)
		if err != nil {
			return nil, nil, err
		}

		return factory, func() {}, nil
	case config.ProviderValKey:
		valkeyClient, err := newValkeyClient(ap.ValKey)
		if err != nil {
			return nil, nil, err
		}

		repo := sessionvalkey.NewRepository(valkeyClient, ap.ValKey.Prefix)

		return sessionstore.NewFactory(repo, ap.SessionCookie), valkeyClient.Close, nil
	case config.ProviderSQL:
		db, err := newDBPool(ctx, ap.Database)
		if err != nil {
			return nil, nil, err
		}

		return sessionstore.NewFactory(sessionsql.NewRepository(db), ap.SessionCookie), db.Close, nil
	case config.ProviderMemory:
		slogctx.Warn(ctx, "Sessions are kept in memory and are lost on restart")

		repo := sessionmemory.NewRepository(ap.Memory.CleanupInterval)
		if err := seedSessions(ctx, repo, ap.Memory.Sessions, time.Now()); err != nil {
			return nil, nil, err
		}

		return sessionstore.NewFactory(repo, ap.SessionCookie), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("%w: %q", config.ErrUnknownProvider, ap.Type)
	}
}

// seedSessions stores the configured sessions. A zero TTL never expires.
func seedSessions(ctx context.Context, repo sessionstore.Repository, sessions []config.MemorySession, now time.Time) error {
	for _, s := range sessions {
		session := authprovider.Session{
			ID:      s.ID,
			Subject: s.Subject,
			Email:   s.Email,
		}
		if s.TTL > 0 {
			session.Expiry = now.Add(s.TTL)
		}

		if err := repo.StoreSession(ctx, session); err != nil {
			return fmt.Errorf("storing session %q: %w", s.Subject, err)
		}
	}

	if len(sessions) > 0 {
		slogctx.Info(ctx, "Seeded in-memory sessions", "count", len(sessions))
	}

	return nil
}

func initGoTrue(ap config.AuthProvider) (authprovider.Factory, error) {
	baseURL, err := commoncfg.LoadValueFromSourceRef(ap.GoTrue.URL)
	if err != nil {
		return nil, fmt.Errorf("loading gotrue url: %w", err)
	}

	apiKey, err := commoncfg.LoadValueFromSourceRef(ap.GoTrue.APIKey)
	if err != nil {
		return nil, fmt.Errorf("loading gotrue api key: %w", err)
	}

	httpClient, err := loadHTTPClient(ap.GoTrue)
	if err != nil {
		return nil, fmt.Errorf("loading http client: %w", err)
	}

	return gotrue.NewFactory(httpClient, gotrue.Options{
		BaseURL:       strings.TrimSpace(string(baseURL)),
		APIKey:        strings.TrimSpace(string(apiKey)),
		SessionCookie: ap.SessionCookie,
		RefreshCookie: ap.RefreshCookie,
	})
}

// loadHTTPClient returns the traced client used to call the auth server.
func loadHTTPClient(cfg config.GoTrue) (*http.Client, error) {
	var base http.RoundTripper = http.DefaultTransport

	if cfg.MTLS != nil {
		tlsConfig, err := commoncfg.LoadMTLSConfig(cfg.MTLS)
		if err != nil {
			return nil, fmt.Errorf("loading mTLS config: %w", err)
		}

		transport, ok := http.DefaultTransport.(*http.Transport)
		if !ok {
			transport = &http.Transport{}
		}
		transport = transport.Clone()
		transport.TLSClientConfig = tlsConfig
		base = transport
	}

	return &http.Client{
		Timeout:   cfg.Timeout,
		Transport: otelhttp.NewTransport(base),
	}, nil
}

func newValkeyClient(cfg config.ValKey) (valkey.Client, error) {
	valkeyHost, err := commoncfg.LoadValueFromSourceRef(cfg.Host)
	if err != nil {
		return nil, fmt.Errorf("loading valkey host: %w", err)
	}

	valkeyUsername, err := commoncfg.LoadValueFromSourceRef(cfg.User)
	if err != nil {
		return nil, fmt.Errorf("loading valkey username: %w", err)
	}

	valkeyPassword, err := commoncfg.LoadValueFromSourceRef(cfg.Password)
	if err != nil {
		return nil, fmt.Errorf("loading valkey password: %w", err)
	}

	valkeyOpts := valkey.ClientOption{
		InitAddress: []string{string(valkeyHost)},
		Username:    string(valkeyUsername),
		Password:    string(valkeyPassword),
	}

	if cfg.SecretRef.Type == commoncfg.MTLSSecretType {
		tlsConfig, err := commoncfg.LoadMTLSConfig(&cfg.SecretRef.MTLS)
		if err != nil {
			return nil, fmt.Errorf("loading valkey mTLS config from secret ref: %w", err)
		}

		valkeyOpts.TLSConfig = tlsConfig
	}

	valkeyClient, err := valkey.NewClient(valkeyOpts)
	if err != nil {
		return nil, fmt.Errorf("creating a new valkey client: %w", err)
	}

	return valkeyClient, nil
}

// newDBPool opens a traced connection pool.
func newDBPool(ctx context.Context, cfg config.Database) (*pgxpool.Pool, error) {
	connStr, err := config.MakeConnStr(cfg)
	if err != nil {
		return nil, fmt.Errorf("making dsn from config: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("parsing pgxpool config: %w", err)
	}

	poolCfg.ConnConfig.Tracer = otelpgx.NewTracer()

	db, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("initialising pgxpool connection: %w", err)
	}

	if err := otelpgx.RecordStats(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("recording pgxpool stats: %w", err)
	}

	return db, nil
}
