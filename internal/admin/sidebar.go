package admin

import (
	"context"
	"io"
	"strings"

	"github.com/a-h/templ"
)

// NavItem is an entry of the sidebar navigation.
type NavItem struct {
	Label string
	Path  string
}

type SidebarOptions struct {
	Title       string
	Navigation  []NavItem
	CurrentPath string
	// SignOutURL receives the sign-out POST. After success the browser
	// navigates to RedirectURL.
	SignOutURL  string
	RedirectURL string
}

// Sidebar renders the navigation, the signed-in user and the sign-out
// button. The user is read from the context with SessionFromContext.
func Sidebar(opts SidebarOptions) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		hw := newHTMLWriter(ctx, w)

		hw.raw(`<div class="admin-brand">`)
		hw.text(opts.Title)
		hw.raw(`</div><nav class="admin-nav"><ul>`)
		for _, item := range opts.Navigation {
			if isActive(item.Path, opts.CurrentPath, opts.Navigation) {
				hw.raw(`<li><a class="active" aria-current="page" href="`)
			} else {
				hw.raw(`<li><a href="`)
			}
			hw.text(item.Path)
			hw.raw(`">`)
			hw.text(item.Label)
			hw.raw(`</a></li>`)
		}
		hw.raw(`</ul></nav>`)

		if s, ok := SessionFromContext(ctx); ok {
			hw.raw(`<div class="admin-user">Signed in as <span class="admin-user-name">`)
			hw.text(s.DisplayName())
			hw.raw(`</span></div>`)
		}

		hw.raw(`<form class="admin-signout" method="post" data-signout action="`)
		hw.text(opts.SignOutURL)
		hw.raw(`" data-redirect="`)
		hw.text(opts.RedirectURL)
		hw.raw(`"><button type="submit">Sign out</button><p role="alert"></p></form>`)

		return hw.err
	})
}

// isActive reports whether path is the entry of nav matching current. The
// longest matching entry wins so a root entry does not shadow its children.
func isActive(path, current string, nav []NavItem) bool {
	best := ""
	for _, item := range nav {
		if matches(item.Path, current) && len(item.Path) > len(best) {
			best = item.Path
		}
	}

	return best != "" && best == path
}

func matches(path, current string) bool {
	path = strings.TrimSuffix(path, "/")
	current = strings.TrimSuffix(current, "/")

	return current == path || strings.HasPrefix(current, path+"/")
}
