// Package lock keeps two sync runs from working on the same database pair at
// the same time.
package lock

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"DRFashion-Sync/internal/connection"
)

// ErrHeld is returned by Acquire while another holder owns the key.
var ErrHeld = errors.New("lock held by another run")

// Guard is a single-flight lock. release is idempotent.
type Guard interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// New builds the guard selected by cfg.Backend.
func New(cfg connection.LockConfig) (Guard, error) {
	ttl := time.Duration(cfg.TTLSeconds) * time.Second
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", "memory":
		return NewMemoryGuard(), nil
	case "redis":
		return NewRedisGuard(cfg.Redis, ttl)
	default:
		return nil, fmt.Errorf("unsupported lock backend: %s", cfg.Backend)
	}
}

// MemoryGuard serializes runs within one process.
type MemoryGuard struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewMemoryGuard() *MemoryGuard {
	return &MemoryGuard{held: make(map[string]struct{})}
}

func (g *MemoryGuard) Acquire(_ context.Context, key string) (func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.held[key]; ok {
		return nil, fmt.Errorf("%w: %s", ErrHeld, key)
	}
	g.held[key] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.held, key)
			g.mu.Unlock()
		})
	}, nil
}
