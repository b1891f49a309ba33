// Package searchsync replays search mirror writes that failed after the
// authoritative write had already committed.
package searchsync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/store/backend/internal/domain/shared"
	"github.com/store/backend/internal/infrastructure/config"
	"github.com/store/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// ErrNoReconciler is recorded on tasks whose entity type has no reconciler
var ErrNoReconciler = errors.New("no reconciler registered for entity type")

// Reconciler brings the index entry of one record in line with the store
type Reconciler interface {
	Reconcile(ctx context.Context, id int64) error
}

// ReconcilerFunc adapts a function to Reconciler
type ReconcilerFunc func(ctx context.Context, id int64) error

func (f ReconcilerFunc) Reconcile(ctx context.Context, id int64) error {
	return f(ctx, id)
}

// Config holds configuration for the processor
type Config struct {
	BatchSize        int
	PollInterval     time.Duration
	CleanupEnabled   bool
	CleanupRetention time.Duration
	CleanupInterval  time.Duration
	// ClaimTimeout is how long a task may stay PROCESSING before another
	// batch takes it over
	ClaimTimeout time.Duration
}

// DefaultConfig returns default configuration
func DefaultConfig() Config {
	return Config{
		BatchSize:        100,
		PollInterval:     5 * time.Second,
		CleanupEnabled:   true,
		CleanupRetention: 7 * 24 * time.Hour,
		CleanupInterval:  time.Hour,
		ClaimTimeout:     5 * time.Minute,
	}
}

// ConfigFrom overlays the search_sync section on the defaults
func ConfigFrom(cfg config.SearchSyncConfig) Config {
	c := DefaultConfig()
	if cfg.BatchSize > 0 {
		c.BatchSize = cfg.BatchSize
	}
	if cfg.PollInterval > 0 {
		c.PollInterval = cfg.PollInterval
	}
	if cfg.CleanupRetention > 0 {
		c.CleanupRetention = cfg.CleanupRetention
	}
	if cfg.ClaimTimeout > 0 {
		c.ClaimTimeout = cfg.ClaimTimeout
	}
	c.CleanupEnabled = cfg.CleanupEnabled
	return c
}

// Processor polls the search sync queue in the background
type Processor struct {
	repo        shared.SearchSyncRepository
	reconcilers map[string]Reconciler
	metrics     *telemetry.StoreMetrics
	config      Config
	logger      *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Option configures a Processor
type Option func(*Processor)

// WithMetrics records task outcomes on the store metrics
func WithMetrics(m *telemetry.StoreMetrics) Option {
	return func(p *Processor) {
		p.metrics = m
	}
}

// NewProcessor creates a processor with no reconcilers registered
func NewProcessor(repo shared.SearchSyncRepository, cfg Config, logger *zap.Logger, opts ...Option) *Processor {
	p := &Processor{
		repo:        repo,
		reconcilers: make(map[string]Reconciler),
		metrics:     telemetry.NewNoopStoreMetrics(),
		config:      cfg,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Register binds a reconciler to an entity type. Must be called before Start.
func (p *Processor) Register(entityType string, r Reconciler) {
	p.reconcilers[entityType] = r
}

// Start starts the background processing
func (p *Processor) Start(ctx context.Context) error {
	if p.config.BatchSize <= 0 || p.config.PollInterval <= 0 {
		return fmt.Errorf("search sync: batch size and poll interval must be positive")
	}
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.wg.Add(1)
	go p.processLoop(ctx)

	if p.config.CleanupEnabled {
		p.wg.Add(1)
		go p.cleanupLoop(ctx)
	}

	p.logger.Info("search sync processor started",
		zap.Int("batch_size", p.config.BatchSize),
		zap.Duration("poll_interval", p.config.PollInterval),
		zap.Int("reconcilers", len(p.reconcilers)),
	)
	return nil
}

// Stop cancels the loops and waits for the current batch to finish
func (p *Processor) Stop(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("search sync processor stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Processor) processLoop(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.ProcessBatch(ctx)
		}
	}
}

// ProcessBatch runs one pass over pending tasks, then over failed tasks whose
// backoff has elapsed. Claims older than ClaimTimeout are released first.
// It returns the number of tasks reconciled.
func (p *Processor) ProcessBatch(ctx context.Context) int {
	done := 0

	if p.config.ClaimTimeout > 0 {
		released, err := p.repo.ReleaseStale(ctx, time.Now().Add(-p.config.ClaimTimeout))
		if err != nil {
			p.logger.Error("failed to release stale search sync claims", zap.Error(err))
		} else if released > 0 {
			p.logger.Warn("released stale search sync claims", zap.Int64("released", released))
		}
	}

	pending, err := p.repo.FindPending(ctx, p.config.BatchSize)
	if err != nil {
		p.logger.Error("failed to find pending search sync tasks", zap.Error(err))
		return done
	}
	done += p.processTasks(ctx, pending)

	retryable, err := p.repo.FindRetryable(ctx, time.Now(), p.config.BatchSize)
	if err != nil {
		p.logger.Error("failed to find retryable search sync tasks", zap.Error(err))
		return done
	}
	return done + p.processTasks(ctx, retryable)
}

func (p *Processor) processTasks(ctx context.Context, tasks []*shared.SearchSyncTask) int {
	if len(tasks) == 0 {
		return 0
	}
	ids := make([]uuid.UUID, len(tasks))
	for i, t := range tasks {
		ids[i] = t.ID
	}

	claimed, err := p.repo.MarkProcessing(ctx, ids)
	if err != nil {
		p.logger.Error("failed to claim search sync tasks", zap.Error(err))
		return 0
	}

	done := 0
	for _, task := range claimed {
		if p.processTask(ctx, task) {
			done++
		}
	}
	return done
}

func (p *Processor) processTask(ctx context.Context, task *shared.SearchSyncTask) bool {
	log := p.logger.With(
		zap.String("task_id", task.ID.String()),
		zap.String("entity", task.EntityType),
		zap.Int64("entity_id", task.EntityID),
		zap.String("operation", string(task.Operation)),
	)
	// the outcome is recorded even when ctx was cancelled by Stop
	writeCtx := context.WithoutCancel(ctx)

	err := p.reconcile(ctx, task)
	if err == nil {
		task.MarkDone()
		p.metrics.RecordSyncOutcome(writeCtx, task.EntityType, telemetry.OutcomeSuccess)
		if updateErr := p.repo.Update(writeCtx, task); updateErr != nil {
			log.Error("failed to mark search sync task done", zap.Error(updateErr))
			return false
		}
		log.Debug("search sync task reconciled")
		return true
	}

	if ctx.Err() != nil {
		// interrupted, not failed: hand it back without spending a retry
		_ = task.Release()
		if updateErr := p.repo.Update(writeCtx, task); updateErr != nil {
			log.Error("failed to release search sync task", zap.Error(updateErr))
		}
		log.Info("search sync task released on shutdown")
		return false
	}

	task.MarkFailed(err.Error())
	if task.IsDead() {
		p.metrics.RecordSyncOutcome(writeCtx, task.EntityType, telemetry.OutcomeDead)
		log.Warn("search sync task moved to dead letter queue",
			zap.Int("retry_count", task.RetryCount),
			zap.String("last_error", task.LastError),
		)
	} else {
		p.metrics.RecordSyncOutcome(writeCtx, task.EntityType, telemetry.OutcomeRetry)
		log.Info("search sync task failed, will retry",
			zap.Int("retry_count", task.RetryCount),
			zap.Error(err),
		)
	}
	if updateErr := p.repo.Update(writeCtx, task); updateErr != nil {
		log.Error("failed to update search sync task", zap.Error(updateErr))
	}
	return false
}

// reconcile ignores the recorded operation: the reconciler reads the store
// and decides between index and delete itself.
func (p *Processor) reconcile(ctx context.Context, task *shared.SearchSyncTask) error {
	r, ok := p.reconcilers[task.EntityType]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoReconciler, task.EntityType)
	}
	return r.Reconcile(ctx, task.EntityID)
}

func (p *Processor) cleanupLoop(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Cleanup(ctx)
		}
	}
}

// Cleanup deletes reconciled tasks older than the retention period
func (p *Processor) Cleanup(ctx context.Context) int64 {
	cutoff := time.Now().Add(-p.config.CleanupRetention)
	deleted, err := p.repo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		p.logger.Error("failed to clean up search sync tasks", zap.Error(err))
		return 0
	}
	if deleted > 0 {
		p.logger.Info("cleaned up search sync tasks",
			zap.Int64("deleted", deleted),
			zap.Time("cutoff", cutoff),
		)
	}
	return deleted
}
