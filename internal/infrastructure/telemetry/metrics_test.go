package telemetry

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
)

func newTestMeter(t *testing.T) (*sdkmetric.ManualReader, *sdkmetric.MeterProvider) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	return reader, sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func sumFor(t *testing.T, m metricdata.Metrics, attrs ...attribute.KeyValue) int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "metric %s is not an int64 sum", m.Name)
	want := attribute.NewSet(attrs...)
	for _, dp := range sum.DataPoints {
		if dp.Attributes.Equals(&want) {
			return dp.Value
		}
	}
	return 0
}

func TestNewMeterProvider_Disabled(t *testing.T) {
	mp, err := NewMeterProvider(context.Background(), MetricsConfig{}, zap.NewNop())
	require.NoError(t, err)

	assert.False(t, mp.IsEnabled())
	assert.NotNil(t, mp.Meter("test"))
	assert.NoError(t, mp.Shutdown(context.Background()))
}

func TestStoreMetrics(t *testing.T) {
	reader, provider := newTestMeter(t)
	m, err := NewStoreMetrics(provider.Meter("store"))
	require.NoError(t, err)
	ctx := context.Background()

	m.RecordWrite(ctx, "product", "create", nil)
	m.RecordWrite(ctx, "product", "create", nil)
	m.RecordWrite(ctx, "product", "update", errors.New("boom"))
	m.RecordMirrorFailure(ctx, "invoice", "delete")
	m.RecordSyncOutcome(ctx, "invoice", OutcomeRetry)
	m.RecordDuration(ctx, "product", "create", 5*time.Millisecond, nil)
	m.RecordReindexed(ctx, "shipment", 42)

	metrics := collect(t, reader)

	writes := metrics["store_entity_writes_total"]
	assert.Equal(t, int64(2), sumFor(t, writes,
		AttrEntity.String("product"), AttrOperation.String("create"), AttrOutcome.String(OutcomeSuccess)))
	assert.Equal(t, int64(1), sumFor(t, writes,
		AttrEntity.String("product"), AttrOperation.String("update"), AttrOutcome.String(OutcomeError)))

	assert.Equal(t, int64(1), sumFor(t, metrics["store_search_mirror_failures_total"],
		AttrEntity.String("invoice"), AttrOperation.String("delete")))
	assert.Equal(t, int64(1), sumFor(t, metrics["store_search_sync_tasks_total"],
		AttrEntity.String("invoice"), AttrOutcome.String(OutcomeRetry)))
	assert.Equal(t, int64(42), sumFor(t, metrics["store_reindexed_documents_total"],
		AttrEntity.String("shipment")))

	hist, ok := metrics["store_operation_duration_seconds"].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, uint64(1), hist.DataPoints[0].Count)
}

func TestNoopStoreMetrics(t *testing.T) {
	m := NewNoopStoreMetrics()
	assert.NotPanics(t, func() {
		m.RecordWrite(context.Background(), "product", "create", nil)
		m.RecordMirrorFailure(context.Background(), "product", "index")
	})
}

func TestRegisterDBPoolMetrics(t *testing.T) {
	reader, provider := newTestMeter(t)
	stats := sql.DBStats{MaxOpenConnections: 25, InUse: 3, Idle: 7, WaitCount: 11}

	reg, err := RegisterDBPoolMetrics(provider.Meter("db"), func() sql.DBStats { return stats })
	require.NoError(t, err)
	defer reg.Unregister()

	metrics := collect(t, reader)

	gauge, ok := metrics["db_pool_connections"].Data.(metricdata.Gauge[int64])
	require.True(t, ok)
	byState := map[string]int64{}
	for _, dp := range gauge.DataPoints {
		state, _ := dp.Attributes.Value(AttrDBState)
		byState[state.AsString()] = dp.Value
	}
	assert.Equal(t, map[string]int64{"in_use": 3, "idle": 7}, byState)

	assert.Equal(t, int64(11), sumFor(t, metrics["db_pool_wait_total"]))
}
