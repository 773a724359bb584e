package admin

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

// htmlWriter stops writing after the first error and keeps it.
type htmlWriter struct {
	ctx context.Context
	w   io.Writer
	err error
}

func newHTMLWriter(ctx context.Context, w io.Writer) *htmlWriter {
	return &htmlWriter{ctx: ctx, w: w}
}

func (hw *htmlWriter) raw(s string) {
	if hw.err == nil {
		_, hw.err = io.WriteString(hw.w, s)
	}
}

func (hw *htmlWriter) text(s string) {
	hw.raw(templ.EscapeString(s))
}

func (hw *htmlWriter) component(c templ.Component) {
	if hw.err == nil && c != nil {
		hw.err = c.Render(hw.ctx, hw.w)
	}
}
