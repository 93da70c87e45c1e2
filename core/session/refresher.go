package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// RefreshPath is the server's refresh endpoint.
const RefreshPath = "/api/auth/refresh"

// ErrRefreshFailed means the refresh endpoint answered non-2xx.
var ErrRefreshFailed = errors.New("session refresh failed")

// Refresher obtains a new token epoch from the server.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// RefresherFunc adapts a function to Refresher.
type RefresherFunc func(ctx context.Context) error

// Refresh calls f.
func (f RefresherFunc) Refresh(ctx context.Context) error {
	return f(ctx)
}

// HTTPRefresher posts to the refresh endpoint with the client's cookies.
// Client must not route through Transport, or the refresh would wait on
// itself.
type HTTPRefresher struct {
	BaseURL string
	Client  *http.Client
}

// Refresh sends one request; it never retries. Any 2xx status is success and
// the response body is ignored.
func (r *HTTPRefresher) Refresh(ctx context.Context) error {
	endpoint := strings.TrimRight(r.BaseURL, "/") + RefreshPath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, http.NoBody)
	if err != nil {
		return fmt.Errorf("create refresh request: %w", err)
	}

	client := r.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRefreshFailed, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: status %d", ErrRefreshFailed, resp.StatusCode)
	}
	return nil
}
