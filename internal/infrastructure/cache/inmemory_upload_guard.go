// Package cache provides the upload guards that remember Idempotency-Key
// headers of accepted catalog uploads.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/orgmap/backend/internal/domain/shared"
)

const defaultCleanupInterval = 5 * time.Minute

// InMemoryUploadGuard holds claimed upload keys in a process-local map.
// Keys are not shared between instances.
type InMemoryUploadGuard struct {
	mu        sync.Mutex
	claims    map[string]time.Time // key -> expiry
	now       func() time.Time
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryUploadGuard creates a guard and starts the goroutine that
// evicts expired keys
func NewInMemoryUploadGuard() *InMemoryUploadGuard {
	return newInMemoryUploadGuard(defaultCleanupInterval, time.Now)
}

func newInMemoryUploadGuard(interval time.Duration, now func() time.Time) *InMemoryUploadGuard {
	g := &InMemoryUploadGuard{
		claims:   make(map[string]time.Time),
		now:      now,
		stopChan: make(chan struct{}),
	}

	g.wg.Add(1)
	go g.cleanupLoop(interval)

	return g
}

// Claim records key until ttl elapses. An expired claim is replaced.
func (g *InMemoryUploadGuard) Claim(_ context.Context, key string, ttl time.Duration) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if expiresAt, held := g.claims[key]; held && now.Before(expiresAt) {
		return false, nil
	}
	g.claims[key] = now.Add(ttl)
	return true, nil
}

// Release forgets key. Releasing an unknown key is not an error.
func (g *InMemoryUploadGuard) Release(_ context.Context, key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.claims, key)
	return nil
}

// Close stops the cleanup goroutine. Safe to call multiple times.
func (g *InMemoryUploadGuard) Close() error {
	g.closeOnce.Do(func() {
		close(g.stopChan)
		g.wg.Wait()
	})
	return nil
}

func (g *InMemoryUploadGuard) cleanupLoop(interval time.Duration) {
	defer g.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-g.stopChan:
			return
		case <-ticker.C:
			g.cleanup()
		}
	}
}

func (g *InMemoryUploadGuard) cleanup() {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	for key, expiresAt := range g.claims {
		if !now.Before(expiresAt) {
			delete(g.claims, key)
		}
	}
}

// Size returns the number of tracked keys, expired or not
func (g *InMemoryUploadGuard) Size() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.claims)
}

var _ shared.UploadGuard = (*InMemoryUploadGuard)(nil)
