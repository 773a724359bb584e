package business

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/openkcm/common-sdk/pkg/commoncfg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openkcm/admin-console/internal/authprovider"
	sessionmemory "github.com/openkcm/admin-console/internal/authprovider/sessionstore/memory"
	"github.com/openkcm/admin-console/internal/config"
)

var sessionCookie = config.CookieTemplate{Name: "__Host-Http-SESSION", Path: "/"}

func embedded(v string) commoncfg.SourceRef {
	return commoncfg.SourceRef{Source: "embedded", Value: v}
}

func TestLoadHTTPClient(t *testing.T) {
	t.Run("plain transport with timeout", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}))
		defer server.Close()

		client, err := loadHTTPClient(config.GoTrue{Timeout: 3 * time.Second})
		require.NoError(t, err)
		assert.Equal(t, 3*time.Second, client.Timeout)
		assert.NotNil(t, client.Transport)

		req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, server.URL, nil)
		require.NoError(t, err)

		resp, err := client.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	})

	t.Run("mTLS with missing certificates", func(t *testing.T) {
		_, err := loadHTTPClient(config.GoTrue{
			MTLS: &commoncfg.MTLS{
				Cert:    commoncfg.SourceRef{File: commoncfg.CredentialFile{Path: "/nonexistent/cert.pem"}},
				CertKey: commoncfg.SourceRef{File: commoncfg.CredentialFile{Path: "/nonexistent/key.pem"}},
			},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "loading mTLS config")
	})
}

func TestInitAuthProviderFactory(t *testing.T) {
	missing := commoncfg.SourceRef{Source: "file", File: commoncfg.CredentialFile{Path: "/nonexistent/file"}}

	tests := []struct {
		name    string
		ap      config.AuthProvider
		wantErr string
	}{
		{
			name: "memory",
			ap:   config.AuthProvider{Type: config.ProviderMemory, SessionCookie: sessionCookie, Memory: config.Memory{CleanupInterval: time.Minute}},
		},
		{
			name: "gotrue",
			ap: config.AuthProvider{
				Type:          config.ProviderGoTrue,
				SessionCookie: sessionCookie,
				RefreshCookie: config.CookieTemplate{Name: "refresh"},
				GoTrue:        config.GoTrue{URL: embedded("https://auth.example.com "), APIKey: embedded("anon")},
			},
		},
		{
			name: "gotrue without url",
			ap: config.AuthProvider{
				Type:          config.ProviderGoTrue,
				SessionCookie: sessionCookie,
				GoTrue:        config.GoTrue{URL: embedded(""), APIKey: embedded("anon")},
			},
			wantErr: "gotrue url",
		},
		{
			name:    "gotrue with unreadable api key",
			ap:      config.AuthProvider{Type: config.ProviderGoTrue, GoTrue: config.GoTrue{URL: embedded("https://auth.example.com"), APIKey: missing}},
			wantErr: "loading gotrue api key",
		},
		{
			name:    "valkey with unreadable host",
			ap:      config.AuthProvider{Type: config.ProviderValKey, ValKey: config.ValKey{Host: missing}},
			wantErr: "loading valkey host",
		},
		{
			name:    "sql with unreadable host",
			ap:      config.AuthProvider{Type: config.ProviderSQL, Database: config.Database{Host: missing}},
			wantErr: "making dsn from config",
		},
		{
			name:    "unknown",
			ap:      config.AuthProvider{Type: "ldap"},
			wantErr: config.ErrUnknownProvider.Error(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			factory, closeFn, err := initAuthProviderFactory(t.Context(), &config.Config{AuthProvider: tt.ap})
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, factory)
			defer closeFn()

			rc := authprovider.NewRequestContext(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/admin", nil))
			client, err := factory(t.Context(), rc)
			require.NoError(t, err)
			assert.NotNil(t, client)
		})
	}
}

func TestInitAuthProviderFactory_MemorySessions(t *testing.T) {
	cfg := &config.Config{AuthProvider: config.AuthProvider{
		Type:          config.ProviderMemory,
		SessionCookie: sessionCookie,
		Memory: config.Memory{
			CleanupInterval: time.Minute,
			Sessions:        []config.MemorySession{{ID: "dev-session", Subject: "developer", Email: "dev@example.com"}},
		},
	}}

	factory, closeFn, err := initAuthProviderFactory(t.Context(), cfg)
	require.NoError(t, err)
	defer closeFn()

	getSession := func(cookieValue string) (authprovider.Session, error) {
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		req.AddCookie(&http.Cookie{Name: sessionCookie.Name, Value: cookieValue})

		client, err := factory(t.Context(), authprovider.NewRequestContext(httptest.NewRecorder(), req))
		require.NoError(t, err)

		return client.GetSession(t.Context())
	}

	session, err := getSession("dev-session")
	require.NoError(t, err)
	assert.Equal(t, "developer", session.Subject)
	assert.Equal(t, "dev@example.com", session.DisplayName())

	_, err = getSession("other")
	assert.ErrorIs(t, err, authprovider.ErrNoSession)
}

func TestSeedSessions(t *testing.T) {
	now := time.Now()
	repo := sessionmemory.NewRepository(time.Minute)

	err := seedSessions(t.Context(), repo, []config.MemorySession{
		{ID: "forever", Subject: "a"},
		{ID: "hour", Subject: "b", TTL: time.Hour},
	}, now)
	require.NoError(t, err)

	forever, err := repo.LoadSession(t.Context(), "forever")
	require.NoError(t, err)
	assert.True(t, forever.Expiry.IsZero())

	hour, err := repo.LoadSession(t.Context(), "hour")
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Hour), hour.Expiry)
}

func TestBusinessMain_MemorySessions(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	// t.TempDir paths can exceed the unix socket path limit.
	dir, err := os.MkdirTemp("", "ac")
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(dir) })

	socket := filepath.Join(dir, "http.sock")
	cfg := &config.Config{
		HTTP:  config.HTTPServer{Address: "unix://" + socket, ShutdownTimeout: time.Second},
		Admin: config.Admin{Prefix: "/admin", Title: "Admin", LoginURL: "/login", AssetsMaxAge: time.Hour},
		AuthProvider: config.AuthProvider{
			Type:          config.ProviderMemory,
			SessionCookie: sessionCookie,
			Memory: config.Memory{
				CleanupInterval: time.Minute,
				Sessions:        []config.MemorySession{{ID: "dev-session", Subject: "developer", Email: "dev@example.com"}},
			},
		},
	}
	require.NoError(t, cfg.Validate())

	errChan := make(chan error, 1)
	go func() {
		errChan <- Main(ctx, cfg)
	}()

	client := &http.Client{
		Transport: &http.Transport{
			DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
				return new(net.Dialer).DialContext(ctx, "unix", socket)
			},
		},
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	do := func(method, path string) (*http.Response, string, error) {
		req, err := http.NewRequestWithContext(t.Context(), method, "http://unix"+path, nil)
		if err != nil {
			return nil, "", err
		}
		req.AddCookie(&http.Cookie{Name: sessionCookie.Name, Value: "dev-session"})

		resp, err := client.Do(req)
		if err != nil {
			return nil, "", err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)

		return resp, string(body), err
	}

	require.EventuallyWithT(t, func(c *assert.CollectT) {
		resp, body, err := do(http.MethodGet, "/admin")
		if !assert.NoError(c, err) {
			return
		}
		assert.Equal(c, http.StatusOK, resp.StatusCode)
		assert.Contains(c, body, "dev@example.com")
	}, 5*time.Second, 50*time.Millisecond)

	resp, body, err := do(http.MethodPost, "/auth/signout")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"ok":true}`, body)

	resp, _, err = do(http.MethodGet, "/admin")
	require.NoError(t, err)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)

	cancel()
	assert.NoError(t, <-errChan)
}
