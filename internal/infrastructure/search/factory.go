package search

import (
	"context"
	"fmt"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/store/backend/internal/domain/shared"
	"github.com/store/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// Provider names accepted by search.provider
const (
	ProviderElasticsearch = "elasticsearch"
	ProviderMemory        = "memory"
)

// Backend is the resolved search backend shared by every entity mirror
type Backend struct {
	provider string
	client   *elasticsearch.Client
	prefix   string
	refresh  bool
}

// BackendOption is a functional option for configuring backend creation
type BackendOption func(*backendOptions)

type backendOptions struct {
	logger      *zap.Logger
	pingTimeout time.Duration
}

// WithLogger sets the logger used to report the selected backend
func WithLogger(logger *zap.Logger) BackendOption {
	return func(o *backendOptions) {
		o.logger = logger
	}
}

// WithPingTimeout bounds the startup connectivity check
func WithPingTimeout(d time.Duration) BackendOption {
	return func(o *backendOptions) {
		o.pingTimeout = d
	}
}

// NewBackend resolves the configured provider. An unreachable Elasticsearch
// cluster falls back to the in-memory index only when allow_memory_fallback
// is set.
func NewBackend(ctx context.Context, cfg config.SearchConfig, opts ...BackendOption) (*Backend, error) {
	o := backendOptions{logger: zap.NewNop(), pingTimeout: 5 * time.Second}
	for _, opt := range opts {
		opt(&o)
	}

	if cfg.Provider == ProviderMemory {
		o.logger.Info("using in-memory search index")
		return NewMemoryBackend(), nil
	}

	b, err := newElasticBackend(ctx, cfg, o.pingTimeout)
	if err == nil {
		o.logger.Info("using Elasticsearch search index", zap.Strings("addresses", cfg.Addresses))
		return b, nil
	}
	if !cfg.AllowMemoryFallback {
		return nil, fmt.Errorf("elasticsearch required for search but unavailable: %w", err)
	}

	o.logger.Warn("Elasticsearch unavailable, falling back to in-memory search index. "+
		"Search results are lost on restart and not shared between instances.",
		zap.Error(err),
	)
	return NewMemoryBackend(), nil
}

// NewMemoryBackend returns a backend producing in-memory mirrors
func NewMemoryBackend() *Backend {
	return &Backend{provider: ProviderMemory}
}

// NewElasticBackend wraps an existing client
func NewElasticBackend(client *elasticsearch.Client, prefix string, refresh bool) *Backend {
	return &Backend{
		provider: ProviderElasticsearch,
		client:   client,
		prefix:   prefix,
		refresh:  refresh,
	}
}

func newElasticBackend(ctx context.Context, cfg config.SearchConfig, timeout time.Duration) (*Backend, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Elasticsearch client: %w", err)
	}

	b := NewElasticBackend(client, cfg.IndexPrefix, cfg.RefreshOnWrite)
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := b.Ping(pingCtx); err != nil {
		return nil, err
	}
	return b, nil
}

// Provider returns the active provider name
func (b *Backend) Provider() string {
	return b.provider
}

// Ping checks that the backend is reachable
func (b *Backend) Ping(ctx context.Context) error {
	if b.client == nil {
		return nil
	}
	res, err := b.client.Info(b.client.Info.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to reach Elasticsearch: %w", err)
	}
	defer res.Body.Close()
	return responseError(res, "info")
}

// MirrorFor builds the mirror of one entity type on the backend
func MirrorFor[T any, P shared.Record[T]](b *Backend) shared.SearchMirror[T] {
	if b.client == nil {
		return NewMemoryMirror[T, P]()
	}
	return NewElasticMirror[T, P](b.client, b.prefix, b.refresh)
}
