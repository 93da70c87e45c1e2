package session

import (
	"context"
	"net/http"
	"sync"
	"time"

	"Melodix/logger"
)

// Invalidator drops cached query results after the token epoch changes.
type Invalidator interface {
	InvalidateAll()
}

// Option configures a Middleware.
type Option func(*Middleware)

// WithInvalidator clears inv after every successful refresh.
func WithInvalidator(inv Invalidator) Option {
	return func(m *Middleware) { m.invalidator = inv }
}

// WithClock replaces the clock used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(m *Middleware) { m.now = now }
}

// Middleware settles token state before a request goes out. When the held
// token has expired, exactly one caller performs the refresh; every caller
// that notices the expiry while that refresh is in flight queues up and
// receives the same outcome.
//
// Each client owns its own Middleware; there is no shared state between
// instances.
type Middleware struct {
	store       TokenStore
	refresher   Refresher
	invalidator Invalidator
	now         func() time.Time

	mu         sync.Mutex
	refreshing bool
	queue      []chan error
}

// NewMiddleware creates an independent middleware instance.
func NewMiddleware(store TokenStore, refresher Refresher, opts ...Option) *Middleware {
	m := &Middleware{
		store:     store,
		refresher: refresher,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Store returns the TokenStore the middleware reads from.
func (m *Middleware) Store() TokenStore {
	return m.store
}

// Refreshing reports whether a refresh is in flight.
func (m *Middleware) Refreshing() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refreshing
}

// PrepareRequest makes sure the token is usable before req is sent and
// returns req unchanged. It returns an error only when a refresh it took part
// in failed, or when ctx ended while it was waiting for one.
func (m *Middleware) PrepareRequest(ctx context.Context, req *http.Request) (*http.Request, error) {
	raw, ok := m.store.Token()
	if !ok {
		return req, nil
	}

	exp, err := TokenExpiry(raw)
	if err != nil {
		logger.Warn("[Session] 令牌解码失败，按未登录处理", logger.ErrorField(err))
		return req, nil
	}
	if exp.IsZero() || exp.Unix() >= m.now().Unix() {
		return req, nil
	}

	m.mu.Lock()
	if m.refreshing {
		done := make(chan error, 1)
		m.queue = append(m.queue, done)
		m.mu.Unlock()

		select {
		case err := <-done:
			if err != nil {
				return nil, err
			}
			return req, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	m.refreshing = true
	m.mu.Unlock()

	if err := m.refresh(ctx); err != nil {
		return nil, err
	}
	return req, nil
}

func (m *Middleware) refresh(ctx context.Context) error {
	start := m.now()
	// every waiter gets this outcome, so the caller's cancellation must not cut it short
	err := m.refresher.Refresh(context.WithoutCancel(ctx))
	if err == nil && m.invalidator != nil {
		m.invalidator.InvalidateAll()
	}

	m.mu.Lock()
	queue := m.queue
	m.queue = nil
	m.refreshing = false
	m.mu.Unlock()

	for _, done := range queue {
		done <- err
	}

	if err != nil {
		logger.Warn("[Session] 令牌刷新失败",
			logger.Int("waiters", len(queue)), logger.ErrorField(err))
		return err
	}
	logger.Debug("[Session] 令牌刷新成功",
		logger.Int("waiters", len(queue)), logger.Duration("elapsed", m.now().Sub(start)))
	return nil
}

func (m *Middleware) pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}
