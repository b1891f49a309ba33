// Package store implements the service façade over the store entities: every
// write goes to the database first and is then mirrored into the search index.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/store/backend/internal/domain/shared"
	"github.com/store/backend/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ReindexBatchSize is the keyset page size used when rebuilding an index
const ReindexBatchSize = 500

// SyncQueue records mirror writes that have to be replayed
type SyncQueue interface {
	Enqueue(ctx context.Context, entityType string, id int64, op shared.SyncOperation, cause error) error
}

// EntityService persists records of one type and keeps their index in step
type EntityService[T any, P shared.Record[T]] struct {
	name        string
	repo        shared.Repository[T]
	mirror      shared.SearchMirror[T]
	queue       SyncQueue
	metrics     *telemetry.StoreMetrics
	afterDelete []func(ctx context.Context, id int64)
	referrers   []reference
	logger      *zap.Logger
}

// referrer is an entity service whose documents embed records of another type
type referrer interface {
	Name() string
	Reconcile(ctx context.Context, id int64) error
	referencing(ctx context.Context, column string, ids []int64) ([]int64, error)
	refreshReferrers(ctx context.Context, ids []int64)
	mirrorFailed(ctx context.Context, id int64, op shared.SyncOperation, cause error)
}

// reference links a referrer to this entity through its foreign key column
type reference struct {
	from   referrer
	column string
}

// Option configures an EntityService
type Option func(*serviceOptions)

type serviceOptions struct {
	queue   SyncQueue
	metrics *telemetry.StoreMetrics
}

// WithSyncQueue hands failed mirror writes to the search sync queue
func WithSyncQueue(q SyncQueue) Option {
	return func(o *serviceOptions) {
		o.queue = q
	}
}

// WithMetrics records writes, durations and mirror failures
func WithMetrics(m *telemetry.StoreMetrics) Option {
	return func(o *serviceOptions) {
		o.metrics = m
	}
}

// NewEntityService creates a service for T. Pass T explicitly:
// NewEntityService[store.Product](repo, mirror, logger).
func NewEntityService[T any, P shared.Record[T]](
	repo shared.Repository[T],
	mirror shared.SearchMirror[T],
	logger *zap.Logger,
	opts ...Option,
) *EntityService[T, P] {
	o := serviceOptions{metrics: telemetry.NewNoopStoreMetrics()}
	for _, opt := range opts {
		opt(&o)
	}
	name := P(new(T)).IndexName()
	return &EntityService[T, P]{
		name:    name,
		repo:    repo,
		mirror:  mirror,
		queue:   o.queue,
		metrics: o.metrics,
		logger:  logger.With(zap.String("entity", name)),
	}
}

// AfterDelete registers fn to run after each successful delete. Register
// hooks before the service handles requests.
func (s *EntityService[T, P]) AfterDelete(fn func(ctx context.Context, id int64)) {
	s.afterDelete = append(s.afterDelete, fn)
}

// Name returns the entity type, which is also its index name
func (s *EntityService[T, P]) Name() string {
	return s.name
}

func (s *EntityService[T, P]) start(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	ctx, span := telemetry.StartServiceSpan(ctx, s.name, op, attrs...)
	begin := time.Now()
	return ctx, func(err error) {
		s.metrics.RecordDuration(ctx, s.name, op, time.Since(begin), err)
		telemetry.RecordError(span, err)
		span.End()
	}
}

// Save creates the record when it has no identity and updates it otherwise
func (s *EntityService[T, P]) Save(ctx context.Context, entity *T) (_ *T, err error) {
	ctx, end := s.start(ctx, "save")
	defer func() { end(err) }()

	if P(entity).IsNew() {
		return s.write(ctx, "create", entity, s.repo.Create)
	}
	return s.write(ctx, "update", entity, s.repo.Update)
}

// Create persists a new record. A record that already has an identity is
// rejected with ErrIdentityAssigned.
func (s *EntityService[T, P]) Create(ctx context.Context, entity *T) (_ *T, err error) {
	ctx, end := s.start(ctx, "create")
	defer func() { end(err) }()

	if !P(entity).IsNew() {
		return nil, shared.ErrIdentityAssigned
	}
	return s.write(ctx, "create", entity, s.repo.Create)
}

// Update replaces an existing record. ErrIdentityMissing without an
// identity, ErrNotFound when no such record exists.
func (s *EntityService[T, P]) Update(ctx context.Context, entity *T) (_ *T, err error) {
	ctx, end := s.start(ctx, "update", attribute.Int64(telemetry.SpanAttrEntityID, P(entity).GetID()))
	defer func() { end(err) }()

	if P(entity).IsNew() {
		return nil, shared.ErrIdentityMissing
	}
	return s.write(ctx, "update", entity, s.repo.Update)
}

func (s *EntityService[T, P]) write(ctx context.Context, op string, entity *T, persist func(context.Context, *T) error) (*T, error) {
	if err := P(entity).Validate(); err != nil {
		return nil, err
	}
	err := persist(ctx, entity)
	s.metrics.RecordWrite(ctx, s.name, op, err)
	if err != nil {
		return nil, err
	}

	saved := s.reload(ctx, entity)
	s.index(ctx, saved)
	if op == "update" {
		s.refreshReferrers(ctx, []int64{P(saved).GetID()})
	}
	return saved, nil
}

// reload reads the record back with its references resolved. The written
// value is used when the read fails, so the caller still gets its record.
func (s *EntityService[T, P]) reload(ctx context.Context, entity *T) *T {
	id := P(entity).GetID()
	saved, err := s.repo.FindByID(ctx, id)
	if err != nil {
		s.logger.Warn("failed to reload record after write", zap.Int64("id", id), zap.Error(err))
		return entity
	}
	return saved
}

func (s *EntityService[T, P]) index(ctx context.Context, entity *T) {
	id := P(entity).GetID()
	if err := s.mirror.Index(ctx, entity); err != nil {
		s.mirrorFailed(ctx, id, shared.SyncOpIndex, err)
		return
	}
	telemetry.AddEvent(ctx, "mirrored")
}

func (s *EntityService[T, P]) mirrorFailed(ctx context.Context, id int64, op shared.SyncOperation, cause error) {
	s.metrics.RecordMirrorFailure(ctx, s.name, string(op))
	s.logger.Warn("search mirror write failed",
		zap.Int64("id", id),
		zap.String("operation", string(op)),
		zap.Error(cause),
	)
	if s.queue == nil {
		return
	}
	if err := s.queue.Enqueue(ctx, s.name, id, op, cause); err != nil {
		s.logger.Error("failed to enqueue search sync task",
			zap.Int64("id", id),
			zap.String("operation", string(op)),
			zap.Error(err),
		)
	}
}

// Delete removes the record and its document. Deleting an unknown identity
// succeeds. Documents embedding the record are re-mirrored, since the
// database clears their reference.
func (s *EntityService[T, P]) Delete(ctx context.Context, id int64) (err error) {
	ctx, end := s.start(ctx, "delete", attribute.Int64(telemetry.SpanAttrEntityID, id))
	defer func() { end(err) }()

	exists, err := s.repo.ExistsByID(ctx, id)
	if err != nil {
		return err
	}
	// looked up first: the delete clears the foreign keys that find them
	var embedding [][]int64
	if exists {
		embedding = s.referrersOf(ctx, []int64{id})
	}

	err = s.repo.DeleteByID(ctx, id)
	s.metrics.RecordWrite(ctx, s.name, "delete", err)
	if err != nil {
		return err
	}

	if mErr := s.mirror.DeleteByID(ctx, id); mErr != nil {
		s.mirrorFailed(ctx, id, shared.SyncOpDelete, mErr)
	}
	if !exists {
		return nil
	}
	for _, fn := range s.afterDelete {
		fn(ctx, id)
	}
	s.refresh(ctx, embedding)
	return nil
}

// embeddedIn records that documents of from embed this entity through column
func (s *EntityService[T, P]) embeddedIn(from referrer, column string) {
	s.referrers = append(s.referrers, reference{from: from, column: column})
}

func (s *EntityService[T, P]) referencing(ctx context.Context, column string, ids []int64) ([]int64, error) {
	return s.repo.FindIDsReferencing(ctx, column, ids)
}

// referrersOf returns, per registered referrer, the records embedding ids
func (s *EntityService[T, P]) referrersOf(ctx context.Context, ids []int64) [][]int64 {
	found := make([][]int64, len(s.referrers))
	for i, ref := range s.referrers {
		refIDs, err := ref.from.referencing(ctx, ref.column, ids)
		if err != nil {
			s.logger.Error("failed to find embedding records",
				zap.String("referrer", ref.from.Name()),
				zap.Int64s("ids", ids),
				zap.Error(err),
			)
			continue
		}
		found[i] = refIDs
	}
	return found
}

// refresh reconciles the records found by referrersOf and, in turn, the
// records embedding those
func (s *EntityService[T, P]) refresh(ctx context.Context, found [][]int64) {
	for i, ref := range s.referrers {
		if i >= len(found) || len(found[i]) == 0 {
			continue
		}
		for _, id := range found[i] {
			if err := ref.from.Reconcile(ctx, id); err != nil {
				ref.from.mirrorFailed(ctx, id, shared.SyncOpIndex, err)
			}
		}
		ref.from.refreshReferrers(ctx, found[i])
	}
}

func (s *EntityService[T, P]) refreshReferrers(ctx context.Context, ids []int64) {
	if len(s.referrers) == 0 || len(ids) == 0 {
		return
	}
	s.refresh(ctx, s.referrersOf(ctx, ids))
}

// FindOne returns the record or ErrNotFound
func (s *EntityService[T, P]) FindOne(ctx context.Context, id int64) (_ *T, err error) {
	ctx, end := s.start(ctx, "find_one", attribute.Int64(telemetry.SpanAttrEntityID, id))
	defer func() { end(err) }()

	return s.repo.FindByID(ctx, id)
}

// FindAll returns one page of records from the database
func (s *EntityService[T, P]) FindAll(ctx context.Context, page shared.PageRequest) (_ shared.Page[T], err error) {
	ctx, end := s.start(ctx, "find_all",
		attribute.Int(telemetry.SpanAttrPage, page.Page),
		attribute.Int(telemetry.SpanAttrSize, page.Size),
	)
	defer func() { end(err) }()

	return s.repo.FindAll(ctx, page)
}

// Search queries the index only. Results may lag behind the database.
func (s *EntityService[T, P]) Search(ctx context.Context, query string, page shared.PageRequest) (_ shared.Page[T], err error) {
	ctx, end := s.start(ctx, "search",
		attribute.String(telemetry.SpanAttrQuery, query),
		attribute.Int(telemetry.SpanAttrPage, page.Page),
		attribute.Int(telemetry.SpanAttrSize, page.Size),
	)
	defer func() { end(err) }()

	result, err := s.mirror.Search(ctx, query, page)
	if err != nil {
		return shared.Page[T]{}, err
	}
	trace.SpanFromContext(ctx).SetAttributes(attribute.Int64(telemetry.SpanAttrCount, result.Total))
	return result, nil
}

// Reconcile makes the document of one record match the database: the
// record is re-indexed, or its document deleted when the record is gone.
func (s *EntityService[T, P]) Reconcile(ctx context.Context, id int64) (err error) {
	ctx, end := s.start(ctx, "reconcile", attribute.Int64(telemetry.SpanAttrEntityID, id))
	defer func() { end(err) }()

	entity, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, shared.ErrNotFound) {
		return s.mirror.DeleteByID(ctx, id)
	}
	if err != nil {
		return err
	}
	return s.mirror.Index(ctx, entity)
}

// Reindex drops the index and rebuilds it from every record in the
// database. It returns the number of documents written.
func (s *EntityService[T, P]) Reindex(ctx context.Context) (n int64, err error) {
	ctx, end := s.start(ctx, "reindex")
	defer func() { end(err) }()

	telemetry.ProfileOperation(ctx, s.name, "reindex", func(ctx context.Context) {
		n, err = s.reindex(ctx)
	})
	s.metrics.RecordReindexed(ctx, s.name, n)
	if err != nil {
		return n, err
	}
	s.logger.Info("search index rebuilt", zap.Int64("documents", n))
	return n, nil
}

func (s *EntityService[T, P]) reindex(ctx context.Context) (int64, error) {
	if err := s.mirror.DeleteIndex(ctx); err != nil {
		return 0, err
	}
	if err := s.mirror.EnsureIndex(ctx); err != nil {
		return 0, err
	}

	var n, after int64
	for {
		ids, err := s.repo.FindAllIDs(ctx, after, ReindexBatchSize)
		if err != nil {
			return n, err
		}
		for _, id := range ids {
			entity, err := s.repo.FindByID(ctx, id)
			if errors.Is(err, shared.ErrNotFound) {
				continue // deleted while walking
			}
			if err != nil {
				return n, err
			}
			if err := s.mirror.Index(ctx, entity); err != nil {
				return n, err
			}
			n++
		}
		if len(ids) < ReindexBatchSize {
			return n, nil
		}
		after = ids[len(ids)-1]
	}
}

// EnsureIndex creates the index when missing
func (s *EntityService[T, P]) EnsureIndex(ctx context.Context) error {
	return s.mirror.EnsureIndex(ctx)
}
