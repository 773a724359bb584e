// Package render writes templ components as HTML responses under an
// explicit cache policy.
package render

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/a-h/templ"

	slogctx "github.com/veqryn/slog-context"
)

// CachePolicy decides whether a page is rendered per request and how
// clients may cache the result.
type CachePolicy struct {
	// ForceDynamic renders the page on every request and forbids caching.
	// Otherwise the page is rendered once and the output is reused.
	ForceDynamic bool
	// MaxAge is the client cache lifetime of pages that are not dynamic.
	MaxAge time.Duration
}

// ForceDynamic is the policy of pages that depend on the request.
var ForceDynamic = CachePolicy{ForceDynamic: true}

// Static returns the policy of pages that are the same for every request.
func Static(maxAge time.Duration) CachePolicy {
	return CachePolicy{MaxAge: maxAge}
}

// CacheControl returns the Cache-Control header value of the policy.
func (p CachePolicy) CacheControl() string {
	switch {
	case p.ForceDynamic:
		return "no-store"
	case p.MaxAge > 0:
		return "public, max-age=" + strconv.FormatInt(int64(p.MaxAge/time.Second), 10)
	default:
		return "no-cache"
	}
}

// Apply sets the caching headers of the policy on h.
func (p CachePolicy) Apply(h http.Header) {
	h.Set("Cache-Control", p.CacheControl())
	if p.ForceDynamic {
		h.Set("Pragma", "no-cache")
		h.Add("Vary", "Cookie")
	}
}

// PageFunc builds the component for a request.
type PageFunc func(r *http.Request) (templ.Component, error)

type Option func(*handler)

// WithStatus sets the status code of successful responses.
func WithStatus(status int) Option {
	return func(h *handler) { h.status = status }
}

// WithObserver registers fn to be called after every render.
func WithObserver(fn func(ctx context.Context, err error)) Option {
	return func(h *handler) {
		if fn != nil {
			h.observe = fn
		}
	}
}

type handler struct {
	policy  CachePolicy
	build   PageFunc
	status  int
	observe func(ctx context.Context, err error)

	mu     sync.Mutex
	cached []byte
}

// Handler serves the page built by build under policy.
func Handler(policy CachePolicy, build PageFunc, opts ...Option) http.Handler {
	h := &handler{
		policy:  policy,
		build:   build,
		status:  http.StatusOK,
		observe: func(context.Context, error) {},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}

	return h
}

// Component is a shortcut for pages that do not depend on the request.
func Component(policy CachePolicy, c templ.Component, opts ...Option) http.Handler {
	return Handler(policy, func(*http.Request) (templ.Component, error) { return c, nil }, opts...)
}

func (h *handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	body, err := h.body(r)
	if err != nil {
		slogctx.Error(ctx, "Failed to render page", "path", r.URL.Path, "error", err)
		Error(w, r, http.StatusInternalServerError)

		return
	}

	h.policy.Apply(w.Header())
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(h.status)
	if _, err := w.Write(body); err != nil {
		slogctx.Debug(ctx, "Failed to write page", "error", err)
	}
}

func (h *handler) body(r *http.Request) ([]byte, error) {
	if h.policy.ForceDynamic {
		return h.render(r)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.cached != nil {
		return h.cached, nil
	}

	body, err := h.render(r)
	if err != nil {
		return nil, err
	}
	h.cached = body

	return body, nil
}

func (h *handler) render(r *http.Request) ([]byte, error) {
	ctx := r.Context()

	c, err := h.build(r)
	if err == nil {
		var buf bytes.Buffer
		if err = c.Render(ctx, &buf); err == nil {
			h.observe(ctx, nil)
			return buf.Bytes(), nil
		}
	}

	h.observe(ctx, err)

	return nil, fmt.Errorf("rendering %s: %w", r.URL.Path, err)
}

// Error writes a minimal HTML error page that is never cached.
func Error(w http.ResponseWriter, r *http.Request, status int) {
	ForceDynamic.Apply(w.Header())
	templ.Handler(
		Document(http.StatusText(status), "", Text(http.StatusText(status))),
		templ.WithStatus(status),
	).ServeHTTP(w, r)
}

// Text renders s as escaped text.
func Text(s string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := io.WriteString(w, templ.EscapeString(s))
		return err
	})
}
