package admin

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

// Shell is the frame of every admin page: a fixed navigation region next to
// a scrolling main region holding the page content above the footer.
type Shell struct {
	Sidebar templ.Component
	Footer  templ.Component
}

// Layout returns the shell around content. Errors of the sidebar, content
// and footer are returned unchanged.
func (s Shell) Layout(content templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return s.frame().Render(templ.WithChildren(ctx, content), w)
	})
}

func (s Shell) frame() templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		content := templ.GetChildren(ctx)
		ctx = templ.ClearChildren(ctx)

		hw := newHTMLWriter(ctx, w)
		hw.raw(`<div class="admin-shell"><aside class="admin-sidebar">`)
		hw.component(s.Sidebar)
		hw.raw(`</aside><main class="admin-main"><div class="admin-content">`)
		hw.component(content)
		hw.raw(`</div>`)
		hw.component(s.Footer)
		hw.raw(`</main></div>`)

		return hw.err
	})
}
