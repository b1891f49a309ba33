package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/store/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// Provider names accepted by storage.provider
const (
	ProviderS3     = "s3"
	ProviderMemory = "memory"
)

// ObjectStorage is the set of operations the factory guarantees for both providers
type ObjectStorage interface {
	EnsureBucket(ctx context.Context) error
	Upload(ctx context.Context, key string, data []byte, contentType string) error
	GenerateDownloadURL(ctx context.Context, key string, expiresIn time.Duration) (string, time.Time, error)
	DeleteObject(ctx context.Context, key string) error
	ObjectExists(ctx context.Context, key string) (bool, error)
}

// New builds the configured object storage and makes sure its bucket exists
func New(ctx context.Context, cfg *config.StorageConfig, logger *zap.Logger) (ObjectStorage, error) {
	if cfg.Provider == ProviderMemory {
		logger.Info("using in-memory image storage")
		return NewMemoryObjectStorage(), nil
	}

	s, err := NewS3ObjectStorage(cfg,
		WithLogger(logger.Named("s3")),
		WithPresignExpiration(cfg.PresignExpiration),
	)
	if err != nil {
		return nil, err
	}
	if err := s.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("image bucket %s unavailable: %w", cfg.Bucket, err)
	}
	logger.Info("using S3 image storage", zap.String("bucket", s.Bucket()))
	return s, nil
}

var (
	_ ObjectStorage = (*S3ObjectStorage)(nil)
	_ ObjectStorage = (*MemoryObjectStorage)(nil)
)
