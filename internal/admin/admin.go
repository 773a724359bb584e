// Package admin serves the admin console: session gated pages rendered
// inside the admin shell.
package admin

import (
	"context"
	"embed"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/a-h/templ"

	"github.com/openkcm/admin-console/internal/authprovider"
	"github.com/openkcm/admin-console/internal/render"
)

//go:embed assets
var assets embed.FS

const (
	PageDashboard = "dashboard"
	PageSession   = "session"
	PageNotFound  = "not_found"
)

var ErrNoFactory = errors.New("admin console needs an auth provider factory")

type Options struct {
	// Prefix is the path the console is mounted at, e.g. "/admin".
	Prefix   string
	Title    string
	LoginURL string
	// SignOutURL is where the sidebar posts to sign out.
	SignOutURL   string
	Navigation   []NavItem
	AssetsMaxAge time.Duration
	Factory      authprovider.Factory

	// Sidebar replaces the default sidebar.
	Sidebar func(r *http.Request) templ.Component
	// Footer replaces the default footer.
	Footer templ.Component
	// OnRender is called after each page render.
	OnRender func(ctx context.Context, page string, err error)
	Now      func() time.Time
}

type console struct {
	opts   Options
	prefix string
}

// Mount registers the console routes on mux. Pages are rendered on every
// request and are never cached. Assets are served with a public cache
// policy and without the session gate.
func Mount(mux *http.ServeMux, opts Options) error {
	if opts.Factory == nil {
		return ErrNoFactory
	}

	c := newConsole(opts)

	static, err := fs.Sub(assets, "assets")
	if err != nil {
		return err
	}

	assetsPolicy := render.Static(c.opts.AssetsMaxAge)
	fileServer := http.StripPrefix(c.prefix+"/assets/", http.FileServerFS(static))
	mux.Handle("GET "+c.prefix+"/assets/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assetsPolicy.Apply(w.Header())
		fileServer.ServeHTTP(w, r)
	}))

	dashboard := c.page(PageDashboard, func(*http.Request) templ.Component {
		return DashboardPage(c.opts.Title, c.opts.Navigation)
	})
	mux.Handle("GET "+c.prefix, dashboard)
	mux.Handle("GET "+c.prefix+"/{$}", dashboard)
	mux.Handle("GET "+c.prefix+"/session", c.page(PageSession, func(*http.Request) templ.Component {
		return SessionPage(c.opts.Now)
	}))
	mux.Handle("GET "+c.prefix+"/", RequireSession(c.opts.Factory, c.opts.LoginURL, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.opts.OnRender(r.Context(), PageNotFound, nil)
		render.Error(w, r, http.StatusNotFound)
	})))

	return nil
}

func newConsole(opts Options) *console {
	prefix := strings.TrimSuffix(opts.Prefix, "/")

	if opts.Title == "" {
		opts.Title = "Admin"
	}
	if opts.SignOutURL == "" {
		opts.SignOutURL = "/auth/signout"
	}
	if len(opts.Navigation) == 0 {
		opts.Navigation = []NavItem{
			{Label: "Dashboard", Path: prefix},
			{Label: "Session", Path: prefix + "/session"},
		}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.OnRender == nil {
		opts.OnRender = func(context.Context, string, error) {}
	}
	if opts.Sidebar == nil {
		opts.Sidebar = func(r *http.Request) templ.Component {
			return Sidebar(SidebarOptions{
				Title:       opts.Title,
				Navigation:  opts.Navigation,
				CurrentPath: r.URL.Path,
				SignOutURL:  opts.SignOutURL,
				RedirectURL: opts.LoginURL,
			})
		}
	}
	if opts.Footer == nil {
		opts.Footer = Footer(opts.Title, opts.Now)
	}

	return &console{opts: opts, prefix: prefix}
}

// page serves content inside the shell behind the session gate.
func (c *console) page(name string, content func(r *http.Request) templ.Component) http.Handler {
	build := func(r *http.Request) (templ.Component, error) {
		shell := Shell{
			Sidebar: c.opts.Sidebar(r),
			Footer:  c.opts.Footer,
		}

		return render.Document(c.opts.Title, c.prefix+"/assets/admin.css", withScript(shell.Layout(content(r)), c.prefix+"/assets/admin.js")), nil
	}

	return RequireSession(c.opts.Factory, c.opts.LoginURL, render.Handler(render.ForceDynamic, build,
		render.WithObserver(func(ctx context.Context, err error) {
			c.opts.OnRender(ctx, name, err)
		}),
	))
}

func withScript(body templ.Component, src string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		hw := newHTMLWriter(ctx, w)
		hw.component(body)
		hw.raw(`<script src="`)
		hw.text(src)
		hw.raw(`" defer></script>`)

		return hw.err
	})
}
