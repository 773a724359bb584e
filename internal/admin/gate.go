package admin

import (
	"errors"
	"net/http"
	"net/url"

	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/admin-console/internal/authprovider"
	"github.com/openkcm/admin-console/internal/middleware/requestctx"
	"github.com/openkcm/admin-console/internal/render"
)

// RequireSession serves next only for requests with an active session.
// Without one the client is sent to loginURL, or gets 401 if loginURL is
// empty. next finds the session with SessionFromContext.
func RequireSession(factory authprovider.Factory, loginURL string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		rc, err := requestctx.FromContext(ctx)
		if err != nil {
			rc = authprovider.NewRequestContext(w, r)
		}

		client, err := factory(ctx, rc)
		if err != nil {
			slogctx.Error(ctx, "Failed to create auth provider client", "error", err)
			render.Error(w, r, http.StatusInternalServerError)

			return
		}

		s, err := client.GetSession(ctx)
		switch {
		case err == nil:
			next.ServeHTTP(w, r.WithContext(WithSession(ctx, s)))
		case errors.Is(err, authprovider.ErrNoSession):
			slogctx.Debug(ctx, "Admin request without session", "path", r.URL.Path)
			if loginURL == "" {
				render.Error(w, r, http.StatusUnauthorized)
				return
			}

			render.ForceDynamic.Apply(w.Header())
			http.Redirect(w, r, loginRedirect(loginURL, r.URL.RequestURI()), http.StatusSeeOther)
		case errors.Is(err, authprovider.ErrUnavailable):
			slogctx.Warn(ctx, "Auth provider unavailable", "error", err)
			render.Error(w, r, http.StatusServiceUnavailable)
		default:
			slogctx.Error(ctx, "Failed to get session", "error", err)
			render.Error(w, r, http.StatusInternalServerError)
		}
	})
}

// loginRedirect adds the originally requested URI to loginURL so the login
// page can send the user back.
func loginRedirect(loginURL, requestURI string) string {
	u, err := url.Parse(loginURL)
	if err != nil {
		return loginURL
	}

	q := u.Query()
	q.Set("next", requestURI)
	u.RawQuery = q.Encode()

	return u.String()
}
