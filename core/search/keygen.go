package search

import (
	"sync"

	"Melodix/logger"

	"github.com/google/uuid"
)

// KeyGenerator hands out index primary keys. Domain ids collide across
// artists, albums and songs, so every record gets a fresh UUID that is
// checked against every key this generator has produced before.
type KeyGenerator struct {
	mu   sync.Mutex
	seen map[string]struct{}
	next func() string
}

// NewKeyGenerator 使用随机 UUID v4 作为主键
func NewKeyGenerator() *KeyGenerator {
	return newKeyGenerator(uuid.NewString)
}

func newKeyGenerator(next func() string) *KeyGenerator {
	return &KeyGenerator{
		seen: make(map[string]struct{}),
		next: next,
	}
}

// Next returns a key that has not been returned before.
func (g *KeyGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	for {
		key := g.next()
		if _, dup := g.seen[key]; dup {
			logger.Warn("[Search] 主键冲突，重新生成", logger.String("key", key))
			continue
		}
		g.seen[key] = struct{}{}
		return key
	}
}

// Len 已生成的主键数量
func (g *KeyGenerator) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.seen)
}
