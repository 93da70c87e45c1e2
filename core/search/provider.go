package search

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"Melodix/core/library"
	"Melodix/logger"
	"Melodix/model"
)

// Build indexes lib. A nil or empty library yields a nil index, which
// callers treat as "search unavailable".
func Build(lib model.Library) (*Index, error) {
	if lib.IsEmpty() {
		return nil, nil
	}

	records := Flatten(lib, NewKeyGenerator())
	idx, err := NewIndex(records, DefaultOptions())
	if err != nil {
		return nil, err
	}
	idx.library = lib
	return idx, nil
}

// BuildFromSource loads the library and indexes it. Load and build failures
// are logged and reported as a nil index, never as an error.
func BuildFromSource(ctx context.Context, src library.Source) *Index {
	start := time.Now()

	lib, err := src.Load(ctx)
	if err != nil {
		logger.Warn("[Search] 曲库加载失败，搜索不可用",
			logger.String("source", src.Describe()), logger.ErrorField(err))
		return nil
	}

	idx, err := Build(lib)
	if err != nil {
		logger.Error("[Search] 构建索引失败", logger.String("source", src.Describe()), logger.ErrorField(err))
		return nil
	}
	if idx == nil {
		logger.Warn("[Search] 曲库为空，搜索不可用", logger.String("source", src.Describe()))
		return nil
	}

	artists, albums, songs := lib.Counts()
	logger.Info("[Search] 索引构建完成",
		logger.String("source", src.Describe()),
		logger.Int("artists", artists),
		logger.Int("albums", albums),
		logger.Int("songs", songs),
		logger.Int("terms", idx.TermCount()),
		logger.Duration("elapsed", time.Since(start)))
	return idx
}

// Provider owns the process's search index. It is created once at startup
// and handed to every consumer; the first build runs exactly once and
// callers that arrive early all wait on that same build.
//
// Every build takes a ticket when it starts. A finished build is only
// published if no build that started after it has been published already,
// so a slow initial build never overwrites a newer rebuild.
type Provider struct {
	once  sync.Once
	ready chan struct{}

	mu      sync.Mutex
	issued  uint64
	applied uint64

	current atomic.Pointer[Index]
	version atomic.Int64
}

// NewProvider 创建尚未构建的 Provider
func NewProvider() *Provider {
	return &Provider{ready: make(chan struct{})}
}

// Bootstrap creates a provider and starts the initial build from src.
func Bootstrap(ctx context.Context, src library.Source) *Provider {
	p := NewProvider()
	p.Start(ctx, func(ctx context.Context) *Index {
		return BuildFromSource(ctx, src)
	})
	return p
}

// Start runs build in the background. Only the first call has any effect.
func (p *Provider) Start(ctx context.Context, build func(ctx context.Context) *Index) {
	p.once.Do(func() {
		ticket := p.ticket()
		go func() {
			defer close(p.ready)
			p.store(ticket, build(ctx))
		}()
	})
}

// Ready is closed once the initial build has finished.
func (p *Provider) Ready() <-chan struct{} {
	return p.ready
}

// Wait blocks until the initial build has finished and returns the current
// index, which may be nil.
func (p *Provider) Wait(ctx context.Context) (*Index, error) {
	select {
	case <-p.ready:
		return p.current.Load(), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Current 非阻塞地返回当前索引，未就绪或不可用时为 nil
func (p *Provider) Current() *Index {
	return p.current.Load()
}

// Version 每次成功替换索引都会递增，被丢弃的过期构建不计入
func (p *Provider) Version() int64 {
	return p.version.Load()
}

// Replace swaps in a fully rebuilt index. It reports false when a build
// that started later has already been published.
func (p *Provider) Replace(idx *Index) bool {
	return p.store(p.ticket(), idx)
}

// Rebuild reloads src and replaces the current index with the result.
func (p *Provider) Rebuild(ctx context.Context, src library.Source) *Index {
	ticket := p.ticket()
	idx := BuildFromSource(ctx, src)
	if !p.store(ticket, idx) {
		return p.current.Load()
	}
	return idx
}

func (p *Provider) ticket() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.issued++
	return p.issued
}

func (p *Provider) store(ticket uint64, idx *Index) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if ticket < p.applied {
		logger.Debug("[Search] 丢弃过期的索引构建",
			logger.Int64("ticket", int64(ticket)), logger.Int64("applied", int64(p.applied)))
		return false
	}
	p.applied = ticket
	p.current.Store(idx)
	p.version.Add(1)
	return true
}
