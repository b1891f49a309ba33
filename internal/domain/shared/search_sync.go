package shared

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// SyncStatus is the lifecycle state of a search sync task
type SyncStatus string

const (
	SyncStatusPending    SyncStatus = "PENDING"
	SyncStatusProcessing SyncStatus = "PROCESSING"
	SyncStatusDone       SyncStatus = "DONE"
	SyncStatusFailed     SyncStatus = "FAILED"
	SyncStatusDead       SyncStatus = "DEAD"
)

// SyncOperation is the mirror write that originally failed
type SyncOperation string

const (
	SyncOpIndex  SyncOperation = "INDEX"
	SyncOpDelete SyncOperation = "DELETE"
)

// Default retry configuration
const (
	DefaultMaxRetries  = 5
	DefaultBaseBackoff = time.Second
)

// SearchSyncTask records a mirror write that failed after the authoritative
// write succeeded. Processing it reconciles the index with the store.
type SearchSyncTask struct {
	ID          uuid.UUID
	EntityType  string
	EntityID    int64
	Operation   SyncOperation
	Status      SyncStatus
	RetryCount  int
	MaxRetries  int
	LastError   string
	NextRetryAt *time.Time
	ProcessedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewSearchSyncTask creates a pending task
func NewSearchSyncTask(entityType string, entityID int64, op SyncOperation, cause error) *SearchSyncTask {
	now := time.Now()
	task := &SearchSyncTask{
		ID:         uuid.New(),
		EntityType: entityType,
		EntityID:   entityID,
		Operation:  op,
		Status:     SyncStatusPending,
		MaxRetries: DefaultMaxRetries,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if cause != nil {
		task.LastError = cause.Error()
	}
	return task
}

// CanRetry returns true if the task can be retried
func (t *SearchSyncTask) CanRetry() bool {
	return t.Status == SyncStatusFailed && t.RetryCount < t.MaxRetries
}

// MarkProcessing marks the task as being processed
func (t *SearchSyncTask) MarkProcessing() error {
	if t.Status != SyncStatusPending && t.Status != SyncStatusFailed {
		return errors.New("can only mark pending or failed tasks as processing")
	}
	t.Status = SyncStatusProcessing
	t.UpdatedAt = time.Now()
	return nil
}

// MarkDone marks the task as reconciled
func (t *SearchSyncTask) MarkDone() {
	now := time.Now()
	t.Status = SyncStatusDone
	t.ProcessedAt = &now
	t.UpdatedAt = now
}

// MarkFailed records the failure and schedules the next attempt.
// Backoff doubles per attempt: 1s, 2s, 4s, 8s, ...
func (t *SearchSyncTask) MarkFailed(errMsg string) {
	t.RetryCount++
	t.LastError = errMsg
	t.UpdatedAt = time.Now()

	if t.RetryCount >= t.MaxRetries {
		t.Status = SyncStatusDead
		t.NextRetryAt = nil
		return
	}
	t.Status = SyncStatusFailed
	backoff := DefaultBaseBackoff * time.Duration(1<<uint(t.RetryCount-1))
	next := time.Now().Add(backoff)
	t.NextRetryAt = &next
}

// Release hands a claimed task back to the queue without spending a retry
func (t *SearchSyncTask) Release() error {
	if t.Status != SyncStatusProcessing {
		return errors.New("can only release processing tasks")
	}
	t.Status = SyncStatusPending
	t.UpdatedAt = time.Now()
	return nil
}

// ResetForRetry puts a dead task back in the queue
func (t *SearchSyncTask) ResetForRetry() error {
	if t.Status != SyncStatusDead {
		return errors.New("can only retry dead tasks")
	}
	t.Status = SyncStatusPending
	t.RetryCount = 0
	t.LastError = ""
	t.NextRetryAt = nil
	t.UpdatedAt = time.Now()
	return nil
}

// IsDead returns true once retries are exhausted
func (t *SearchSyncTask) IsDead() bool {
	return t.Status == SyncStatusDead
}

// SearchSyncRepository persists search sync tasks
type SearchSyncRepository interface {
	Save(ctx context.Context, tasks ...*SearchSyncTask) error
	// FindPending retrieves pending tasks up to the specified limit
	FindPending(ctx context.Context, limit int) ([]*SearchSyncTask, error)
	// FindRetryable retrieves failed tasks that are due for retry
	FindRetryable(ctx context.Context, before time.Time, limit int) ([]*SearchSyncTask, error)
	// FindDead retrieves dead tasks with pagination
	FindDead(ctx context.Context, page PageRequest) ([]*SearchSyncTask, int64, error)
	FindByID(ctx context.Context, id uuid.UUID) (*SearchSyncTask, error)
	// MarkProcessing atomically claims tasks and returns the ones it claimed
	MarkProcessing(ctx context.Context, ids []uuid.UUID) ([]*SearchSyncTask, error)
	Update(ctx context.Context, task *SearchSyncTask) error
	// ReleaseStale returns tasks claimed before the given time to the pending
	// queue. A worker that stopped mid-task leaves such claims behind.
	ReleaseStale(ctx context.Context, claimedBefore time.Time) (int64, error)
	// ResetDead re-queues every dead task with a fresh retry budget
	ResetDead(ctx context.Context) (int64, error)
	// DeleteOlderThan deletes finished tasks older than the specified time
	DeleteOlderThan(ctx context.Context, before time.Time) (int64, error)
	CountByStatus(ctx context.Context) (map[SyncStatus]int64, error)
}
