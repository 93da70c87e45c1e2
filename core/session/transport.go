package session

import (
	"net/http"
)

// Transport runs every request through a Middleware and then attaches the
// current credentials. http.Client adds jar cookies before RoundTrip is
// called, so after a refresh those cookies are stale; Transport re-reads the
// jar instead.
type Transport struct {
	Base       http.RoundTripper
	Middleware *Middleware
	Jar        http.CookieJar
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	prepared, err := t.Middleware.PrepareRequest(req.Context(), req)
	if err != nil {
		if req.Body != nil {
			req.Body.Close()
		}
		return nil, err
	}

	out := prepared.Clone(prepared.Context())
	if t.Jar != nil {
		out.Header.Del("Cookie")
		for _, c := range t.Jar.Cookies(out.URL) {
			out.AddCookie(c)
		}
	}
	if token, ok := t.Middleware.Store().Token(); ok {
		out.Header.Set("Authorization", "Bearer "+token)
	}

	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(out)
}
