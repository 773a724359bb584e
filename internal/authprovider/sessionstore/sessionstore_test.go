package sessionstore_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openkcm/admin-console/internal/authprovider"
	"github.com/openkcm/admin-console/internal/authprovider/sessionstore"
	sessionmock "github.com/openkcm/admin-console/internal/authprovider/sessionstore/mock"
	"github.com/openkcm/admin-console/internal/config"
)

const cookieName = "__Host-Http-SESSION"

var cookieTemplate = config.CookieTemplate{
	Name:     cookieName,
	Path:     "/",
	Secure:   true,
	HTTPOnly: true,
	SameSite: config.CookieSameSiteLax,
}

func newClient(t *testing.T, repo sessionstore.Repository, sessionID string) (authprovider.Client, *authprovider.RequestContext, *httptest.ResponseRecorder) {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/auth/signout", nil)
	if sessionID != "" {
		req.AddCookie(&http.Cookie{Name: cookieName, Value: sessionID})
	}
	rec := httptest.NewRecorder()
	rc := authprovider.NewRequestContext(rec, req)

	client, err := sessionstore.NewFactory(repo, cookieTemplate)(t.Context(), rc)
	require.NoError(t, err)

	return client, rc, rec
}

func TestNewFactory_NilRequestContext(t *testing.T) {
	_, err := sessionstore.NewFactory(sessionmock.NewInMemRepository(), cookieTemplate)(t.Context(), nil)
	assert.Error(t, err)
}

func TestClient_GetSession(t *testing.T) {
	active := authprovider.Session{
		ID:      "session-1",
		Subject: "user-1",
		Email:   "user@example.com",
		Expiry:  time.Now().Add(time.Hour),
	}
	expired := authprovider.Session{
		ID:     "session-2",
		Expiry: time.Now().Add(-time.Minute),
	}

	tests := []struct {
		name      string
		repo      *sessionmock.Repository
		sessionID string
		want      authprovider.Session
		wantErr   error
	}{
		{
			name:      "active session",
			repo:      sessionmock.NewInMemRepository(sessionmock.WithSession(active)),
			sessionID: active.ID,
			want:      active,
		},
		{
			name:    "no cookie",
			repo:    sessionmock.NewInMemRepository(sessionmock.WithSession(active)),
			wantErr: authprovider.ErrNoSession,
		},
		{
			name:      "unknown session",
			repo:      sessionmock.NewInMemRepository(),
			sessionID: "unknown",
			wantErr:   authprovider.ErrNoSession,
		},
		{
			name:      "expired session",
			repo:      sessionmock.NewInMemRepository(sessionmock.WithSession(expired)),
			sessionID: expired.ID,
			wantErr:   authprovider.ErrNoSession,
		},
		{
			name:      "repository failure",
			repo:      sessionmock.NewInMemRepository(sessionmock.WithLoadSessionError(errors.New("connection refused"))),
			sessionID: active.ID,
			wantErr:   authprovider.ErrUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _, _ := newClient(t, tt.repo, tt.sessionID)

			got, err := client.GetSession(t.Context())
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClient_SignOut(t *testing.T) {
	active := authprovider.Session{ID: "session-1", Expiry: time.Now().Add(time.Hour)}

	t.Run("deletes the session and clears the cookie", func(t *testing.T) {
		repo := sessionmock.NewInMemRepository(sessionmock.WithSession(active))
		client, _, rec := newClient(t, repo, active.ID)

		require.NoError(t, client.SignOut(t.Context()))

		assert.False(t, repo.Has(active.ID))
		assert.Equal(t, []string{active.ID}, repo.Deleted())

		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, cookieName, cookies[0].Name)
		assert.Empty(t, cookies[0].Value)
		assert.Equal(t, -1, cookies[0].MaxAge)

		_, err := client.GetSession(t.Context())
		assert.ErrorIs(t, err, authprovider.ErrNoSession, "a terminated session must not be valid")
	})

	t.Run("reports no session without a cookie", func(t *testing.T) {
		repo := sessionmock.NewInMemRepository()
		client, rc, _ := newClient(t, repo, "")

		require.ErrorIs(t, client.SignOut(t.Context()), authprovider.ErrNoSession)

		assert.Empty(t, repo.Deleted())
		assert.Len(t, rc.SetCookies(), 1)
	})

	t.Run("reports no session when the record is already gone", func(t *testing.T) {
		repo := sessionmock.NewInMemRepository()
		client, _, rec := newClient(t, repo, "stale")

		require.ErrorIs(t, client.SignOut(t.Context()), authprovider.ErrNoSession)
		assert.Equal(t, []string{"stale"}, repo.Deleted())
		assert.Len(t, rec.Result().Cookies(), 1, "the stale cookie is cleared")
	})

	t.Run("keeps the cookie when the store fails", func(t *testing.T) {
		repo := sessionmock.NewInMemRepository(
			sessionmock.WithSession(active),
			sessionmock.WithDeleteSessionError(errors.New("i/o timeout")),
		)
		client, rc, _ := newClient(t, repo, active.ID)

		err := client.SignOut(t.Context())

		require.ErrorIs(t, err, authprovider.ErrUnavailable)
		assert.Empty(t, rc.SetCookies())
		assert.True(t, repo.Has(active.ID))
	})
}
