package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/openkcm/common-sdk/pkg/commoncfg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openkcm/admin-console/internal/config"
	"github.com/openkcm/admin-console/internal/signout"
)

func metricsConfig() *config.Config {
	return &config.Config{
		BaseConfig: commoncfg.BaseConfig{
			Application: commoncfg.Application{
				Name:        "test-app",
				Environment: "test",
			},
		},
	}
}

func TestInitMeters(t *testing.T) {
	err := initMeters(t.Context(), metricsConfig())
	assert.NoError(t, err)
}

func TestNewTraceMiddleware(t *testing.T) {
	cfg := metricsConfig()
	require.NoError(t, initMeters(context.Background(), cfg))

	middleware := newTraceMiddleware(cfg)

	t.Run("wraps handler function correctly", func(t *testing.T) {
		handlerCalled := false
		expectedResponse := map[string]string{"status": "ok"}

		mockHandler := func(ctx context.Context, w http.ResponseWriter, r *http.Request, request any) (any, error) {
			handlerCalled = true
			return expectedResponse, nil
		}

		wrappedHandler := middleware(mockHandler, "TestOperation")
		require.NotNil(t, wrappedHandler)

		req := httptest.NewRequest(http.MethodPost, "/auth/signout", nil)
		req.Header.Set("User-Agent", "test-agent")

		response, err := wrappedHandler(context.Background(), httptest.NewRecorder(), req, nil)

		require.NoError(t, err)
		assert.True(t, handlerCalled)
		assert.Equal(t, expectedResponse, response)
	})

	t.Run("propagates handler errors", func(t *testing.T) {
		expectedError := errors.New("handler error")

		mockHandler := func(ctx context.Context, w http.ResponseWriter, r *http.Request, request any) (any, error) {
			return nil, expectedError
		}

		req := httptest.NewRequest(http.MethodPost, "/auth/signout", nil)
		response, err := middleware(mockHandler, "ErrorOperation")(context.Background(), httptest.NewRecorder(), req, nil)

		assert.Equal(t, expectedError, err)
		assert.Nil(t, response)
	})
}

func TestTraceHandler(t *testing.T) {
	cfg := metricsConfig()
	require.NoError(t, initMeters(context.Background(), cfg))

	var called bool
	h := traceHandler(cfg, "Admin", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.True(t, called)
}

func TestRecorders(t *testing.T) {
	cfg := metricsConfig()
	require.NoError(t, initMeters(context.Background(), cfg))

	assert.NotPanics(t, func() {
		recordRender(cfg)(t.Context(), "dashboard", nil)
		recordRender(cfg)(t.Context(), "dashboard", errors.New("broken"))
		recordSignOut(cfg)(t.Context(), signout.OutcomeSignedOut)
	})
}
