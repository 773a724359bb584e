// Package gotrue implements an auth provider client for GoTrue compatible
// auth servers. The access and refresh tokens travel in cookies.
package gotrue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
	slogctx "github.com/veqryn/slog-context"

	"github.com/openkcm/admin-console/internal/authprovider"
	"github.com/openkcm/admin-console/internal/config"
)

const (
	userPath   = "/auth/v1/user"
	logoutPath = "/auth/v1/logout"

	// Responses are only inspected for the user object and error messages.
	maxBodySize = 1 << 20
)

// Access tokens are only decoded to read their expiry. The server verifies
// them on every call.
var tokenAlgorithms = []jose.SignatureAlgorithm{
	jose.HS256, jose.HS384, jose.HS512,
	jose.RS256, jose.RS384, jose.RS512,
	jose.ES256, jose.ES384, jose.ES512,
	jose.PS256, jose.EdDSA,
}

type Options struct {
	BaseURL       string
	APIKey        string
	SessionCookie config.CookieTemplate
	RefreshCookie config.CookieTemplate
}

type Client struct {
	httpClient *http.Client
	opts       Options
	rc         *authprovider.RequestContext
	now        func() time.Time
}

var _ authprovider.Client = (*Client)(nil)

type claims struct {
	jwt.Claims

	Email     string `json:"email"`
	SessionID string `json:"session_id"`
}

type user struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// NewFactory returns a factory that builds clients sharing httpClient.
func NewFactory(httpClient *http.Client, opts Options) (authprovider.Factory, error) {
	if _, err := url.Parse(opts.BaseURL); err != nil || opts.BaseURL == "" {
		return nil, fmt.Errorf("invalid gotrue url %q", opts.BaseURL)
	}

	return func(_ context.Context, rc *authprovider.RequestContext) (authprovider.Client, error) {
		if rc == nil {
			return nil, errors.New("request context is nil")
		}

		return &Client{
			httpClient: httpClient,
			opts:       opts,
			rc:         rc,
			now:        time.Now,
		}, nil
	}, nil
}

func (c *Client) GetSession(ctx context.Context) (authprovider.Session, error) {
	token, tokenClaims, ok := c.accessToken(ctx)
	if !ok {
		return authprovider.Session{}, authprovider.ErrNoSession
	}

	resp, err := c.do(ctx, http.MethodGet, userPath, nil, token)
	if err != nil {
		return authprovider.Session{}, err
	}
	defer resp.Body.Close()

	if err := classify(resp); err != nil {
		if errors.Is(err, errSessionInvalid) {
			return authprovider.Session{}, authprovider.ErrNoSession
		}

		return authprovider.Session{}, err
	}

	var u user
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodySize)).Decode(&u); err != nil {
		return authprovider.Session{}, errors.Join(authprovider.ErrRejected, fmt.Errorf("decoding user: %w", err))
	}

	s := authprovider.Session{
		ID:      tokenClaims.SessionID,
		Subject: u.ID,
		Email:   u.Email,
	}
	if s.Subject == "" {
		s.Subject = tokenClaims.Subject
	}
	if s.Email == "" {
		s.Email = tokenClaims.Email
	}
	if tokenClaims.Expiry != nil {
		s.Expiry = tokenClaims.Expiry.Time()
	}

	return s, nil
}

// SignOut revokes the session on the server and clears both token cookies.
//
// Requests without a usable access token, including an expired one, are
// signed out locally only and report ErrNoSession: the cookies are cleared
// but the refresh session on the server is not revoked, since the token
// needed to call logout would first have to be refreshed.
func (c *Client) SignOut(ctx context.Context) error {
	invalidated := false

	token, _, ok := c.accessToken(ctx)
	if ok {
		query := url.Values{"scope": []string{"local"}}
		resp, err := c.do(ctx, http.MethodPost, logoutPath, query, token)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		err = classify(resp)
		switch {
		case errors.Is(err, errSessionInvalid):
			slogctx.Debug(ctx, "Session already invalid on the auth server", "status", resp.StatusCode)
		case err != nil:
			return err
		default:
			invalidated = true
		}
	}

	c.rc.SetCookie(c.opts.SessionCookie.ToExpiredCookie())
	c.rc.SetCookie(c.opts.RefreshCookie.ToExpiredCookie())

	if !invalidated {
		return authprovider.ErrNoSession
	}

	return nil
}

// accessToken returns the access token cookie if it is present, well formed
// and not expired.
func (c *Client) accessToken(ctx context.Context) (string, claims, bool) {
	token, ok := c.rc.Cookie(c.opts.SessionCookie.Name)
	if !ok {
		return "", claims{}, false
	}

	parsed, err := jwt.ParseSigned(token, tokenAlgorithms)
	if err != nil {
		slogctx.Debug(ctx, "Ignoring malformed access token", "error", err)
		return "", claims{}, false
	}

	var tokenClaims claims
	if err := parsed.UnsafeClaimsWithoutVerification(&tokenClaims); err != nil {
		slogctx.Debug(ctx, "Ignoring access token with malformed claims", "error", err)
		return "", claims{}, false
	}

	if tokenClaims.Expiry != nil && !c.now().Before(tokenClaims.Expiry.Time()) {
		return "", claims{}, false
	}

	return token, tokenClaims, true
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, token string) (*http.Response, error) {
	endpoint, err := url.JoinPath(c.opts.BaseURL, path)
	if err != nil {
		return nil, fmt.Errorf("building %s url: %w", path, err)
	}
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	if c.opts.APIKey != "" {
		req.Header.Set("apikey", c.opts.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Join(authprovider.ErrUnavailable, fmt.Errorf("calling %s: %w", path, err))
	}

	return resp, nil
}
