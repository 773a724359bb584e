package cmdutils

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/openkcm/common-sdk/pkg/commoncfg"
	"github.com/openkcm/common-sdk/pkg/health"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openkcm/admin-console/internal/config"
)

func passthrough(ctx context.Context, fn BusinessFunc, cfg *config.Config) error {
	return fn(ctx, cfg)
}

func TestCobraCommand(t *testing.T) {
	t.Run("creates command with correct properties", func(t *testing.T) {
		businessFunc := func(context.Context, *config.Config) error { return nil }

		cmd := CobraCommand("test-cmd", "short desc", "long description", "v1.0.0", passthrough, businessFunc)

		assert.Equal(t, "test-cmd", cmd.Use)
		assert.Equal(t, "short desc", cmd.Short)
		assert.Equal(t, "long description", cmd.Long)
		assert.NotNil(t, cmd.RunE)
	})

	t.Run("RunE returns error when config loading fails", func(t *testing.T) {
		called := false
		businessFunc := func(context.Context, *config.Config) error {
			called = true
			return nil
		}

		cmd := CobraCommand("test", "short", "long", "v1.0.0", passthrough, businessFunc)
		cmd.SetArgs([]string{})

		// No config file exists in the package directory
		err := cmd.Execute()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "loading config")
		assert.False(t, called)
	})
}

func TestHealthOptions(t *testing.T) {
	t.Run("no database check for non sql providers", func(t *testing.T) {
		cfg := &config.Config{AuthProvider: config.AuthProvider{Type: config.ProviderValKey}}

		opts, err := healthOptions(cfg)
		require.NoError(t, err)
		assert.Len(t, opts, 3)
	})

	t.Run("database check for the sql provider", func(t *testing.T) {
		cfg := &config.Config{AuthProvider: config.AuthProvider{
			Type: config.ProviderSQL,
			Database: config.Database{
				Host:     commoncfg.SourceRef{Source: "embedded", Value: "localhost"},
				User:     commoncfg.SourceRef{Source: "embedded", Value: "user"},
				Password: commoncfg.SourceRef{Source: "embedded", Value: "pass"},
				Name:     "admin_console",
				Port:     "5432",
			},
		}}

		opts, err := healthOptions(cfg)
		require.NoError(t, err)
		assert.Len(t, opts, 4)
	})
}

func TestStatusListener(t *testing.T) {
	tests := []struct {
		name  string
		state health.State
	}{
		{
			name:  "empty state",
			state: health.State{Status: "up", CheckState: map[string]health.CheckState{}},
		},
		{
			name: "multiple check states",
			state: health.State{
				Status: "degraded",
				CheckState: map[string]health.CheckState{
					"database": {Status: "up"},
					"cache":    {Status: "down", Result: errors.New("connection refused")},
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				statusListener(t.Context(), tt.state)
			})
		})
	}
}

func TestStartStatusServer(t *testing.T) {
	t.Run("returns error when connection string creation fails", func(t *testing.T) {
		cfg := &config.Config{
			AuthProvider: config.AuthProvider{
				Type: config.ProviderSQL,
				Database: config.Database{
					Host: commoncfg.SourceRef{Source: "file", File: commoncfg.CredentialFile{Path: "/nonexistent/file"}},
				},
			},
		}
		ctx, cancel := context.WithTimeout(t.Context(), 100*time.Millisecond)
		defer cancel()

		err := startStatusServer(ctx, cfg)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "making connection string from config")
	})
}

func ExampleCobraCommand() {
	businessFunc := func(context.Context, *config.Config) error {
		fmt.Println("Running business logic")
		return nil
	}

	cmd := CobraCommand(
		"example",
		"Example command",
		"This is an example of how to use CobraCommand",
		"v1.0.0",
		passthrough,
		businessFunc,
	)

	fmt.Printf("Command use: %s\n", cmd.Use)
	// Output: Command use: example
}
