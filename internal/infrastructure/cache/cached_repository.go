package cache

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/store/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// CachedRepository is a read-through cache in front of a repository.
// Single records are cached by identity. A write drops the record's own key
// and flushes the indexes whose cached documents embed this entity type.
// Cache failures are logged and never fail the call.
type CachedRepository[T any, P shared.Record[T]] struct {
	shared.Repository[T]
	cache      EntityCache
	ttl        time.Duration
	keyPrefix  string
	prefix     string
	dependents []string
	logger     *zap.Logger
}

// NewCachedRepository wraps repo. dependents name the indexes of entities
// that embed T as a reference.
func NewCachedRepository[T any, P shared.Record[T]](
	repo shared.Repository[T],
	cache EntityCache,
	ttl time.Duration,
	prefix string,
	logger *zap.Logger,
	dependents ...string,
) *CachedRepository[T, P] {
	return &CachedRepository[T, P]{
		Repository: repo,
		cache:      cache,
		ttl:        ttl,
		keyPrefix:  prefix + P(new(T)).IndexName() + ":",
		prefix:     prefix,
		dependents: dependents,
		logger:     logger.Named("entity_cache"),
	}
}

func (r *CachedRepository[T, P]) key(id int64) string {
	return r.keyPrefix + strconv.FormatInt(id, 10)
}

// FindByID serves from cache and fills it on a miss
func (r *CachedRepository[T, P]) FindByID(ctx context.Context, id int64) (*T, error) {
	key := r.key(id)
	if data, ok, err := r.cache.Get(ctx, key); err != nil {
		r.logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
	} else if ok {
		var entity T
		if err := json.Unmarshal(data, &entity); err == nil {
			return &entity, nil
		}
		r.invalidate(ctx, key)
	}

	entity, err := r.Repository.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(entity); err == nil {
		if err := r.cache.Set(ctx, key, data, r.ttl); err != nil {
			r.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return entity, nil
}

// Create implements shared.Repository
func (r *CachedRepository[T, P]) Create(ctx context.Context, entity *T) error {
	if err := r.Repository.Create(ctx, entity); err != nil {
		return err
	}
	r.invalidate(ctx, r.key(P(entity).GetID()))
	return nil
}

// Update implements shared.Repository
func (r *CachedRepository[T, P]) Update(ctx context.Context, entity *T) error {
	err := r.Repository.Update(ctx, entity)
	r.invalidate(ctx, r.key(P(entity).GetID()))
	return err
}

// DeleteByID implements shared.Repository
func (r *CachedRepository[T, P]) DeleteByID(ctx context.Context, id int64) error {
	err := r.Repository.DeleteByID(ctx, id)
	r.invalidate(ctx, r.key(id))
	return err
}

func (r *CachedRepository[T, P]) invalidate(ctx context.Context, key string) {
	if err := r.cache.Delete(ctx, key); err != nil {
		r.logger.Warn("cache invalidation failed", zap.String("key", key), zap.Error(err))
	}
	for _, index := range r.dependents {
		if err := r.cache.DeletePrefix(ctx, r.prefix+index+":"); err != nil {
			r.logger.Warn("cache invalidation failed", zap.String("index", index), zap.Error(err))
		}
	}
}
