package cache

import (
	"context"
	"fmt"

	"github.com/orgmap/backend/internal/domain/shared"
	"github.com/orgmap/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// UploadGuardFactory creates upload guards based on configuration
type UploadGuardFactory struct {
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// UploadGuardFactoryOption configures the factory
type UploadGuardFactoryOption func(*UploadGuardFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) UploadGuardFactoryOption {
	return func(f *UploadGuardFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether an unreachable Redis degrades to the
// in-memory guard. Default is true.
func WithInMemoryFallback(allow bool) UploadGuardFactoryOption {
	return func(f *UploadGuardFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewUploadGuardFactory creates a new factory
func NewUploadGuardFactory(cfg config.RedisConfig, opts ...UploadGuardFactoryOption) *UploadGuardFactory {
	f := &UploadGuardFactory{
		redisConfig:           cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Create returns a Redis guard when Redis is enabled and reachable, and the
// in-memory guard otherwise
func (f *UploadGuardFactory) Create(ctx context.Context) (shared.UploadGuard, error) {
	if !f.redisConfig.Enabled {
		f.logger.Info("redis disabled, using in-memory upload guard")
		return NewInMemoryUploadGuard(), nil
	}

	guard, err := NewRedisUploadGuard(ctx, f.redisConfig)
	if err == nil {
		f.logger.Info("using Redis upload guard", zap.String("addr", f.redisConfig.Addr()))
		return guard, nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("redis required for upload idempotency but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory upload guard. "+
		"Repeated Idempotency-Keys are only detected per instance.",
		zap.Error(err),
	)
	return NewInMemoryUploadGuard(), nil
}
