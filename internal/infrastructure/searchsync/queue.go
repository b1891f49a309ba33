package searchsync

import (
	"context"

	"github.com/store/backend/internal/domain/shared"
)

// Queue records failed mirror writes for the processor to replay
type Queue struct {
	repo       shared.SearchSyncRepository
	maxRetries int
}

// NewQueue creates a queue; maxRetries <= 0 keeps the task default
func NewQueue(repo shared.SearchSyncRepository, maxRetries int) *Queue {
	return &Queue{repo: repo, maxRetries: maxRetries}
}

// Enqueue stores a pending task for the record
func (q *Queue) Enqueue(ctx context.Context, entityType string, id int64, op shared.SyncOperation, cause error) error {
	task := shared.NewSearchSyncTask(entityType, id, op, cause)
	if q.maxRetries > 0 {
		task.MaxRetries = q.maxRetries
	}
	return q.repo.Save(ctx, task)
}

// Stats returns the number of tasks in each status
func (q *Queue) Stats(ctx context.Context) (map[shared.SyncStatus]int64, error) {
	return q.repo.CountByStatus(ctx)
}

// RetryDead re-queues every dead task
func (q *Queue) RetryDead(ctx context.Context) (int64, error) {
	return q.repo.ResetDead(ctx)
}

// Dead lists dead tasks, most recent first
func (q *Queue) Dead(ctx context.Context, page shared.PageRequest) ([]*shared.SearchSyncTask, int64, error) {
	return q.repo.FindDead(ctx, page)
}
