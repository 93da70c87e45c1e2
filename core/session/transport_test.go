package session

import (
	"context"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransportUsesRefreshedCredentials(t *testing.T) {
	var refreshes atomic.Int32
	var mux http.ServeMux
	fresh := signedToken(t, time.Now().Add(time.Hour))

	mux.HandleFunc(RefreshPath, func(w http.ResponseWriter, r *http.Request) {
		refreshes.Add(1)
		http.SetCookie(w, &http.Cookie{Name: AccessTokenCookie, Value: fresh, Path: "/"})
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/api/search", func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(AccessTokenCookie)
		if assert.NoError(t, err) {
			assert.Equal(t, fresh, c.Value)
		}
		assert.Equal(t, "Bearer "+fresh, r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusOK)
	})

	srv := httptest.NewServer(&mux)
	defer srv.Close()

	base, _ := url.Parse(srv.URL)
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	jar.SetCookies(base, []*http.Cookie{{Name: AccessTokenCookie, Value: signedToken(t, time.Now().Add(-time.Hour)), Path: "/"}})

	store := NewCookieTokenStore(jar, base)
	refresher := &HTTPRefresher{BaseURL: srv.URL, Client: &http.Client{Jar: jar}}
	m := NewMiddleware(store, refresher)

	client := &http.Client{Jar: jar, Transport: &Transport{Middleware: m, Jar: jar}}
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, srv.URL+"/api/search", nil)
	require.NoError(t, err)

	resp, err := client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(1), refreshes.Load())
}

func TestTransportPropagatesRefreshFailure(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == RefreshPath {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		hits.Add(1)
	}))
	defer srv.Close()

	base, _ := url.Parse(srv.URL)
	jar, _ := cookiejar.New(nil)
	jar.SetCookies(base, []*http.Cookie{{Name: AccessTokenCookie, Value: signedToken(t, time.Now().Add(-time.Hour)), Path: "/"}})

	m := NewMiddleware(NewCookieTokenStore(jar, base), &HTTPRefresher{BaseURL: srv.URL, Client: &http.Client{Jar: jar}})
	client := &http.Client{Jar: jar, Transport: &Transport{Middleware: m, Jar: jar}}

	_, err := client.Get(srv.URL + "/api/search")
	assert.ErrorIs(t, err, ErrRefreshFailed)
	assert.Zero(t, hits.Load())
}
