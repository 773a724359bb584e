package admin

import (
	"context"
	"io"
	"time"

	"github.com/a-h/templ"
)

// DashboardPage greets the administrator and links the other sections.
func DashboardPage(title string, nav []NavItem) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		hw := newHTMLWriter(ctx, w)

		hw.raw(`<h1>`)
		hw.text(title)
		hw.raw(`</h1>`)
		if s, ok := SessionFromContext(ctx); ok {
			hw.raw(`<p>Welcome, `)
			hw.text(s.DisplayName())
			hw.raw(`.</p>`)
		}

		hw.raw(`<ul class="admin-cards">`)
		for _, item := range nav {
			hw.raw(`<li><a href="`)
			hw.text(item.Path)
			hw.raw(`">`)
			hw.text(item.Label)
			hw.raw(`</a></li>`)
		}
		hw.raw(`</ul>`)

		return hw.err
	})
}

// SessionPage shows the session of the signed-in administrator. Only a
// prefix of the session ID is shown.
func SessionPage(now func() time.Time) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		hw := newHTMLWriter(ctx, w)
		hw.raw(`<h1>Current session</h1>`)

		s, ok := SessionFromContext(ctx)
		if !ok {
			hw.raw(`<p>No session.</p>`)
			return hw.err
		}

		hw.raw(`<dl class="admin-session">`)
		row(hw, "Session", maskID(s.ID))
		row(hw, "Subject", s.Subject)
		row(hw, "Email", s.Email)
		if s.Expiry.IsZero() {
			row(hw, "Expires", "never")
		} else {
			row(hw, "Expires", s.Expiry.UTC().Format(time.RFC3339)+" (in "+s.Expiry.Sub(now()).Round(time.Second).String()+")")
		}
		hw.raw(`</dl>`)

		return hw.err
	})
}

func row(hw *htmlWriter, term, value string) {
	if value == "" {
		value = "-"
	}

	hw.raw(`<dt>`)
	hw.text(term)
	hw.raw(`</dt><dd>`)
	hw.text(value)
	hw.raw(`</dd>`)
}

func maskID(id string) string {
	const visible = 8

	if len(id) <= visible {
		return id
	}

	return id[:visible] + "…"
}
