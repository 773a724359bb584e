package authprovider

import (
	"net/http"
)

// RequestContext carries the cookies of an inbound request and collects the
// cookies a Client wants to set on the response.
type RequestContext struct {
	cookies []*http.Cookie
	sink    http.ResponseWriter
	set     []*http.Cookie
}

// NewRequestContext binds a request context to the inbound request r and
// the response writer w. w may be nil, in which case cookies are only
// recorded.
func NewRequestContext(w http.ResponseWriter, r *http.Request) *RequestContext {
	var cookies []*http.Cookie
	if r != nil {
		cookies = r.Cookies()
	}

	return &RequestContext{
		cookies: cookies,
		sink:    w,
	}
}

// Cookie returns the value of the named inbound cookie. Empty values count
// as absent.
func (rc *RequestContext) Cookie(name string) (string, bool) {
	for _, c := range rc.cookies {
		if c.Name == name && c.Value != "" {
			return c.Value, true
		}
	}

	return "", false
}

// SetCookie adds a Set-Cookie header to the response.
func (rc *RequestContext) SetCookie(c *http.Cookie) {
	rc.set = append(rc.set, c)
	if rc.sink != nil {
		http.SetCookie(rc.sink, c)
	}
}

// SetCookies returns the cookies set so far, in order.
func (rc *RequestContext) SetCookies() []*http.Cookie {
	return rc.set
}
