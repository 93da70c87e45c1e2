package session

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AccessTokenCookie names the cookie holding the access token.
const AccessTokenCookie = "access_token"

// ErrMalformedToken means the token could not be decoded.
var ErrMalformedToken = errors.New("malformed token")

// TokenStore gives the middleware the bearer token currently held by the
// client, if any.
type TokenStore interface {
	Token() (string, bool)
}

// CookieTokenStore reads the access token from a cookie jar.
type CookieTokenStore struct {
	Jar  http.CookieJar
	URL  *url.URL
	Name string // defaults to access_token
}

// NewCookieTokenStore reads access_token cookies sent to baseURL.
func NewCookieTokenStore(jar http.CookieJar, baseURL *url.URL) *CookieTokenStore {
	return &CookieTokenStore{Jar: jar, URL: baseURL, Name: AccessTokenCookie}
}

// Token returns the token held in the jar.
func (s *CookieTokenStore) Token() (string, bool) {
	if s.Jar == nil || s.URL == nil {
		return "", false
	}
	name := s.Name
	if name == "" {
		name = AccessTokenCookie
	}
	for _, c := range s.Jar.Cookies(s.URL) {
		if c.Name == name && c.Value != "" {
			return c.Value, true
		}
	}
	return "", false
}

// TokenExpiry decodes the exp claim of raw without verifying its signature.
// The client cannot verify tokens; it only needs to know when to refresh.
// A token without exp yields the zero time.
func TokenExpiry(raw string) (time.Time, error) {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, nil
	}
	return claims.ExpiresAt.Time, nil
}
