package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/samber/oops"

	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/admin-console/internal/admin"
	"github.com/openkcm/admin-console/internal/authprovider"
	"github.com/openkcm/admin-console/internal/config"
	"github.com/openkcm/admin-console/internal/middleware/requestctx"
	"github.com/openkcm/admin-console/internal/openapi"
	"github.com/openkcm/admin-console/internal/signout"
)

const readHeaderTimeout = 10 * time.Second

// createHTTPServer creates the public HTTP server: the JSON API and the
// admin console share one mux and the auth provider factory.
func createHTTPServer(_ context.Context, cfg *config.Config, factory authprovider.Factory) (*http.Server, error) {
	mux := http.NewServeMux()

	terminator := signout.NewTerminator(factory, signout.WithObserver(recordSignOut(cfg)))
	strictHandler := openapi.NewStrictHandler(
		newOpenAPIServer(terminator),
		[]openapi.StrictMiddlewareFunc{
			newTraceMiddleware(cfg),
		},
	)
	openapi.HandlerFromMux(strictHandler, mux)

	adminMux := http.NewServeMux()
	if err := admin.Mount(adminMux, admin.Options{
		Prefix:       cfg.Admin.Prefix,
		Title:        cfg.Admin.Title,
		LoginURL:     cfg.Admin.LoginURL,
		Navigation:   navigation(cfg.Admin.Navigation),
		AssetsMaxAge: cfg.Admin.AssetsMaxAge,
		Factory:      factory,
		OnRender:     recordRender(cfg),
	}); err != nil {
		return nil, oops.In("HTTP Server").Wrapf(err, "mounting admin console")
	}

	prefix := strings.TrimSuffix(cfg.Admin.Prefix, "/")
	adminHandler := traceHandler(cfg, "Admin", adminMux)
	mux.Handle(prefix, adminHandler)
	mux.Handle(prefix+"/", adminHandler)

	return &http.Server{
		Addr:              cfg.HTTP.Address,
		Handler:           requestctx.Middleware(mux),
		ReadHeaderTimeout: readHeaderTimeout,
	}, nil
}

func navigation(items []config.NavItem) []admin.NavItem {
	nav := make([]admin.NavItem, 0, len(items))
	for _, item := range items {
		nav = append(nav, admin.NavItem{Label: item.Label, Path: item.Path})
	}

	return nav
}

// StartHTTPServer starts the HTTP server using the given config.
func StartHTTPServer(ctx context.Context, cfg *config.Config, factory authprovider.Factory) error {
	if err := initMeters(ctx, cfg); err != nil {
		return err
	}

	server, err := createHTTPServer(ctx, cfg, factory)
	if err != nil {
		return err
	}

	slogctx.Info(ctx, "Starting a listener", "address", server.Addr)

	// Parse network if the address if provided in the format of network://address.
	// Otherwise use tcp network by default. Integration tests bind to a unix
	// socket so they do not need to look up a free port.
	network := "tcp"
	if idx := strings.IndexRune(server.Addr, ':'); idx != -1 && len(server.Addr) > idx+3 && server.Addr[idx:idx+3] == "://" {
		network = server.Addr[:idx]
		server.Addr = server.Addr[idx+3:]
	}

	listener, err := new(net.ListenConfig).Listen(ctx, network, server.Addr)
	if err != nil {
		return oops.In("HTTP Server").
			WithContext(ctx).
			Wrapf(err, "Failed to create a listener")
	}

	slogctx.Info(ctx, "A listener started", "address", listener.Addr().String())

	go func() {
		slogctx.Info(ctx, "Serving an HTTP server", "address", listener.Addr().String())
		err := server.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slogctx.Error(ctx, "Failed to serve an HTTP server", "error", err)
		}

		slogctx.Info(ctx, "Stopped an HTTP server")
	}()

	<-ctx.Done()

	shutdownCtx, shutdownRelease := context.WithTimeout(context.WithoutCancel(ctx), cfg.HTTP.ShutdownTimeout)
	defer shutdownRelease()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return oops.In("HTTP Server").
			WithContext(ctx).
			Wrapf(err, "Failed shutting down HTTP server")
	}

	slogctx.Info(ctx, "Completed graceful shutdown of HTTP server")

	return nil
}
