package render

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

// Document renders a complete HTML document around body. stylesheet is
// linked when set.
func Document(title, stylesheet string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`+
			`<meta name="viewport" content="width=device-width, initial-scale=1"><title>`+
			templ.EscapeString(title)+`</title>`); err != nil {
			return err
		}
		if stylesheet != "" {
			if _, err := io.WriteString(w, `<link rel="stylesheet" href="`+templ.EscapeString(stylesheet)+`">`); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, `</head><body>`); err != nil {
			return err
		}
		if err := body.Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, `</body></html>`)
		return err
	})
}
