package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/store/backend/internal/domain/shared"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SearchSyncTaskModel is the row shape of search_sync_task
type SearchSyncTaskModel struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	EntityType  string    `gorm:"type:varchar(50);not null;index:idx_search_sync_entity"`
	EntityID    int64     `gorm:"not null;index:idx_search_sync_entity"`
	Operation   string    `gorm:"type:varchar(10);not null"`
	Status      string    `gorm:"type:varchar(20);not null;index"`
	RetryCount  int       `gorm:"not null;default:0"`
	MaxRetries  int       `gorm:"not null;default:5"`
	LastError   string    `gorm:"type:text"`
	NextRetryAt *time.Time
	ProcessedAt *time.Time
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (SearchSyncTaskModel) TableName() string {
	return "search_sync_task"
}

func searchSyncModelFromDomain(t *shared.SearchSyncTask) *SearchSyncTaskModel {
	return &SearchSyncTaskModel{
		ID:          t.ID,
		EntityType:  t.EntityType,
		EntityID:    t.EntityID,
		Operation:   string(t.Operation),
		Status:      string(t.Status),
		RetryCount:  t.RetryCount,
		MaxRetries:  t.MaxRetries,
		LastError:   t.LastError,
		NextRetryAt: t.NextRetryAt,
		ProcessedAt: t.ProcessedAt,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

// ToDomain converts the row into a domain task
func (m *SearchSyncTaskModel) ToDomain() *shared.SearchSyncTask {
	return &shared.SearchSyncTask{
		ID:          m.ID,
		EntityType:  m.EntityType,
		EntityID:    m.EntityID,
		Operation:   shared.SyncOperation(m.Operation),
		Status:      shared.SyncStatus(m.Status),
		RetryCount:  m.RetryCount,
		MaxRetries:  m.MaxRetries,
		LastError:   m.LastError,
		NextRetryAt: m.NextRetryAt,
		ProcessedAt: m.ProcessedAt,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func toDomainTasks(rows []SearchSyncTaskModel) []*shared.SearchSyncTask {
	tasks := make([]*shared.SearchSyncTask, len(rows))
	for i := range rows {
		tasks[i] = rows[i].ToDomain()
	}
	return tasks
}

// GormSearchSyncRepository implements shared.SearchSyncRepository using GORM
type GormSearchSyncRepository struct {
	db *gorm.DB
}

// NewGormSearchSyncRepository creates a new GORM-based search sync repository
func NewGormSearchSyncRepository(db *gorm.DB) *GormSearchSyncRepository {
	return &GormSearchSyncRepository{db: db}
}

// Save persists one or more tasks
func (r *GormSearchSyncRepository) Save(ctx context.Context, tasks ...*shared.SearchSyncTask) error {
	if len(tasks) == 0 {
		return nil
	}
	rows := make([]*SearchSyncTaskModel, len(tasks))
	for i, t := range tasks {
		rows[i] = searchSyncModelFromDomain(t)
	}
	return r.db.WithContext(ctx).Create(rows).Error
}

// FindPending retrieves pending tasks, oldest first
func (r *GormSearchSyncRepository) FindPending(ctx context.Context, limit int) ([]*shared.SearchSyncTask, error) {
	var rows []SearchSyncTaskModel
	err := r.db.WithContext(ctx).
		Where("status = ?", shared.SyncStatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error
	return toDomainTasks(rows), err
}

// FindRetryable retrieves failed tasks whose backoff has elapsed
func (r *GormSearchSyncRepository) FindRetryable(ctx context.Context, before time.Time, limit int) ([]*shared.SearchSyncTask, error) {
	var rows []SearchSyncTaskModel
	err := r.db.WithContext(ctx).
		Where("status = ? AND next_retry_at <= ?", shared.SyncStatusFailed, before).
		Order("next_retry_at ASC").
		Limit(limit).
		Find(&rows).Error
	return toDomainTasks(rows), err
}

// MarkProcessing claims tasks for this worker. Rows locked by another worker
// are skipped, so each task is claimed once.
func (r *GormSearchSyncRepository) MarkProcessing(ctx context.Context, ids []uuid.UUID) ([]*shared.SearchSyncTask, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var rows []SearchSyncTaskModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("id IN ? AND status IN ?", ids, []shared.SyncStatus{
				shared.SyncStatusPending,
				shared.SyncStatusFailed,
			}).
			Find(&rows).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}

		claimed := make([]uuid.UUID, len(rows))
		for i := range rows {
			claimed[i] = rows[i].ID
		}

		now := time.Now()
		if err := tx.Model(&SearchSyncTaskModel{}).
			Where("id IN ?", claimed).
			Updates(map[string]any{
				"status":     shared.SyncStatusProcessing,
				"updated_at": now,
			}).Error; err != nil {
			return err
		}

		for i := range rows {
			rows[i].Status = string(shared.SyncStatusProcessing)
			rows[i].UpdatedAt = now
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return toDomainTasks(rows), nil
}

// Update writes the task state back
func (r *GormSearchSyncRepository) Update(ctx context.Context, task *shared.SearchSyncTask) error {
	task.UpdatedAt = time.Now()
	return r.db.WithContext(ctx).Save(searchSyncModelFromDomain(task)).Error
}

// ReleaseStale puts processing tasks whose claim is older than claimedBefore
// back into the pending queue
func (r *GormSearchSyncRepository) ReleaseStale(ctx context.Context, claimedBefore time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&SearchSyncTaskModel{}).
		Where("status = ? AND updated_at < ?", shared.SyncStatusProcessing, claimedBefore).
		Updates(map[string]any{
			"status":     shared.SyncStatusPending,
			"updated_at": time.Now(),
		})
	return result.RowsAffected, result.Error
}

// ResetDead puts every dead task back into the pending queue
func (r *GormSearchSyncRepository) ResetDead(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&SearchSyncTaskModel{}).
		Where("status = ?", shared.SyncStatusDead).
		Updates(map[string]any{
			"status":        shared.SyncStatusPending,
			"retry_count":   0,
			"last_error":    "",
			"next_retry_at": nil,
			"updated_at":    time.Now(),
		})
	return result.RowsAffected, result.Error
}

// DeleteOlderThan deletes finished tasks processed before the given time
func (r *GormSearchSyncRepository) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("status = ? AND processed_at < ?", shared.SyncStatusDone, before).
		Delete(&SearchSyncTaskModel{})
	return result.RowsAffected, result.Error
}

// FindDead retrieves dead tasks, most recently failed first
func (r *GormSearchSyncRepository) FindDead(ctx context.Context, page shared.PageRequest) ([]*shared.SearchSyncTask, int64, error) {
	page = page.Normalize()

	var total int64
	if err := r.db.WithContext(ctx).
		Model(&SearchSyncTaskModel{}).
		Where("status = ?", shared.SyncStatusDead).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []SearchSyncTaskModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", shared.SyncStatusDead).
		Order("updated_at DESC").
		Offset(page.Offset()).
		Limit(page.Size).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return toDomainTasks(rows), total, nil
}

// FindByID retrieves a single task
func (r *GormSearchSyncRepository) FindByID(ctx context.Context, id uuid.UUID) (*shared.SearchSyncTask, error) {
	var row SearchSyncTaskModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return row.ToDomain(), nil
}

// CountByStatus returns the number of tasks in each status
func (r *GormSearchSyncRepository) CountByStatus(ctx context.Context) (map[shared.SyncStatus]int64, error) {
	type statusCount struct {
		Status string
		Count  int64
	}

	var results []statusCount
	if err := r.db.WithContext(ctx).
		Model(&SearchSyncTaskModel{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&results).Error; err != nil {
		return nil, err
	}

	counts := make(map[shared.SyncStatus]int64, len(results))
	for _, c := range results {
		counts[shared.SyncStatus(c.Status)] = c.Count
	}
	return counts, nil
}

var _ shared.SearchSyncRepository = (*GormSearchSyncRepository)(nil)
