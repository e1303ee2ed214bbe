package shared

import (
	"context"
	"time"
)

// UploadGuard remembers idempotency keys of accepted uploads so that a retried
// request is not applied twice
type UploadGuard interface {
	// Claim records key for ttl. It returns false if the key is already held.
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Release forgets key, allowing a failed upload to be retried
	Release(ctx context.Context, key string) error

	// Close releases resources held by the guard
	Close() error
}
