package admin

import (
	"context"
	"io"
	"strconv"
	"time"

	"github.com/a-h/templ"
)

// Footer renders the application name and the copyright year. The year is
// taken from now on every render.
func Footer(appName string, now func() time.Time) templ.Component {
	if now == nil {
		now = time.Now
	}

	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		hw := newHTMLWriter(ctx, w)
		hw.raw(`<footer class="admin-footer">&copy; `)
		hw.raw(strconv.Itoa(now().Year()))
		hw.raw(` `)
		hw.text(appName)
		hw.raw(`</footer>`)

		return hw.err
	})
}
