package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// StoreMetrics counts entity writes, search mirror failures and the outcome
// of search sync tasks.
type StoreMetrics struct {
	writes         *Counter
	mirrorFailures *Counter
	syncOutcomes   *Counter
	duration       *Histogram
	reindexed      *Counter
}

// NewStoreMetrics registers the store instruments on meter
func NewStoreMetrics(meter metric.Meter) (*StoreMetrics, error) {
	writes, err := NewCounter(meter, "store_entity_writes_total",
		"Entity writes by entity, operation and outcome", "{write}")
	if err != nil {
		return nil, err
	}
	mirrorFailures, err := NewCounter(meter, "store_search_mirror_failures_total",
		"Search mirror writes that failed after the record was stored", "{failure}")
	if err != nil {
		return nil, err
	}
	syncOutcomes, err := NewCounter(meter, "store_search_sync_tasks_total",
		"Processed search sync tasks by outcome", "{task}")
	if err != nil {
		return nil, err
	}
	duration, err := NewHistogram(meter, HistogramOpts{
		Name:        "store_operation_duration_seconds",
		Description: "Service operation latency",
		Unit:        "s",
		Boundaries:  ServiceDurationBuckets,
	})
	if err != nil {
		return nil, err
	}
	reindexed, err := NewCounter(meter, "store_reindexed_documents_total",
		"Documents written by full reindex runs", "{document}")
	if err != nil {
		return nil, err
	}

	return &StoreMetrics{
		writes:         writes,
		mirrorFailures: mirrorFailures,
		syncOutcomes:   syncOutcomes,
		duration:       duration,
		reindexed:      reindexed,
	}, nil
}

// NewNoopStoreMetrics returns instruments that record nothing
func NewNoopStoreMetrics() *StoreMetrics {
	m, _ := NewStoreMetrics(noop.NewMeterProvider().Meter("store"))
	return m
}

func outcome(err error) string {
	if err != nil {
		return OutcomeError
	}
	return OutcomeSuccess
}

// RecordWrite counts one create, update or delete
func (m *StoreMetrics) RecordWrite(ctx context.Context, entity, op string, err error) {
	m.writes.Inc(ctx, AttrEntity.String(entity), AttrOperation.String(op), AttrOutcome.String(outcome(err)))
}

// RecordMirrorFailure counts a mirror write that has to be retried later
func (m *StoreMetrics) RecordMirrorFailure(ctx context.Context, entity, op string) {
	m.mirrorFailures.Inc(ctx, AttrEntity.String(entity), AttrOperation.String(op))
}

// RecordSyncOutcome counts a processed search sync task
func (m *StoreMetrics) RecordSyncOutcome(ctx context.Context, entity, result string) {
	m.syncOutcomes.Inc(ctx, AttrEntity.String(entity), AttrOutcome.String(result))
}

// RecordDuration records how long a service operation took
func (m *StoreMetrics) RecordDuration(ctx context.Context, entity, op string, d time.Duration, err error) {
	m.duration.RecordDuration(ctx, d, AttrEntity.String(entity), AttrOperation.String(op), AttrOutcome.String(outcome(err)))
}

// RecordReindexed counts documents written by a reindex
func (m *StoreMetrics) RecordReindexed(ctx context.Context, entity string, n int64) {
	m.reindexed.Add(ctx, n, AttrEntity.String(entity))
}
