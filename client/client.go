package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"Melodix/core/search"
	"Melodix/core/session"
	"Melodix/model"

	"golang.org/x/net/publicsuffix"
)

const defaultTimeout = 30 * time.Second

// ErrNotLoggedIn is returned when the server answers 401.
var ErrNotLoggedIn = errors.New("not logged in")

// APIError describes a non-2xx response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API status %d: %s", e.StatusCode, e.Message)
}

// Option configures a Client.
type Option func(*options)

type options struct {
	timeout   time.Duration
	transport http.RoundTripper
	now       func() time.Time
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithTransport replaces the underlying RoundTripper.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) { o.transport = rt }
}

// WithClock sets the clock used to decide whether the access token has expired.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// Client talks to a Melodix server. Each Client has its own cookie jar,
// session middleware and query cache, so several clients in one process do
// not share refresh state.
type Client struct {
	baseURL    *url.URL
	jar        http.CookieJar
	httpClient *http.Client
	session    *session.Middleware
	cache      *QueryCache
}

// New creates a client for the server at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	o := options{timeout: defaultTimeout, transport: http.DefaultTransport}
	for _, opt := range opts {
		opt(&o)
	}

	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base URL %q must be absolute", baseURL)
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	cache := NewQueryCache()
	// the refresh goes straight to the base transport, not through the middleware
	refresher := &session.HTTPRefresher{
		BaseURL: u.String(),
		Client:  &http.Client{Jar: jar, Transport: o.transport, Timeout: o.timeout},
	}
	mwOpts := []session.Option{session.WithInvalidator(cache)}
	if o.now != nil {
		mwOpts = append(mwOpts, session.WithClock(o.now))
	}
	mw := session.NewMiddleware(session.NewCookieTokenStore(jar, u), refresher, mwOpts...)

	return &Client{
		baseURL: u,
		jar:     jar,
		httpClient: &http.Client{
			Jar:       jar,
			Timeout:   o.timeout,
			Transport: &session.Transport{Base: o.transport, Middleware: mw, Jar: jar},
		},
		session: mw,
		cache:   cache,
	}, nil
}

// Cache returns the client's query cache.
func (c *Client) Cache() *QueryCache {
	return c.cache
}

// Session returns the client's refresh middleware.
func (c *Client) Session() *session.Middleware {
	return c.session
}

// LoggedIn reports whether the jar holds an access token.
func (c *Client) LoggedIn() bool {
	_, ok := c.session.Store().Token()
	return ok
}

type credentials struct {
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string     `json:"token"`
	User  model.User `json:"user"`
}

// Register creates an account and logs in.
func (c *Client) Register(ctx context.Context, username, email, password string) (*model.User, error) {
	var resp authResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/register", credentials{Username: username, Email: email, Password: password}, &resp); err != nil {
		return nil, err
	}
	c.cache.InvalidateAll()
	return &resp.User, nil
}

// Login authenticates by username or email. Tokens land in the cookie jar.
func (c *Client) Login(ctx context.Context, username, password string) (*model.User, error) {
	var resp authResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", credentials{Username: username, Password: password}, &resp); err != nil {
		return nil, err
	}
	c.cache.InvalidateAll()
	return &resp.User, nil
}

// Logout ends the session and clears the query cache.
func (c *Client) Logout(ctx context.Context) error {
	defer c.cache.InvalidateAll()
	return c.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
}

// Me returns the logged-in user.
func (c *Client) Me(ctx context.Context) (*model.User, error) {
	var user model.User
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Library fetches the whole library document.
func (c *Client) Library(ctx context.Context) (model.Library, error) {
	var lib model.Library
	if err := c.do(ctx, http.MethodGet, "/api/library", nil, &lib); err != nil {
		return nil, err
	}
	return lib, nil
}

// Search runs a full-text query. Responses are cached per query until the
// next token refresh.
func (c *Client) Search(ctx context.Context, query string, limit int) (*search.SearchResponse, error) {
	params := url.Values{}
	params.Set("q", query)
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	path := "/api/search?" + params.Encode()

	if v, ok := c.cache.Get(path); ok {
		return v.(*search.SearchResponse), nil
	}

	var resp search.SearchResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	c.cache.Set(path, &resp)
	return &resp, nil
}

// Suggest returns "did you mean" candidates for query.
func (c *Client) Suggest(ctx context.Context, query string, fields ...string) (*search.SuggestResponse, error) {
	params := url.Values{}
	params.Set("q", query)
	if len(fields) > 0 {
		params.Set("fields", strings.Join(fields, ","))
	}
	path := "/api/search/suggest?" + params.Encode()

	if v, ok := c.cache.Get(path); ok {
		return v.(*search.SuggestResponse), nil
	}

	var resp search.SuggestResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	c.cache.Set(path, &resp)
	return &resp, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader = http.NoBody
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(msg))}
		if resp.StatusCode == http.StatusUnauthorized {
			return fmt.Errorf("%w: %w", ErrNotLoggedIn, apiErr)
		}
		return apiErr
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
