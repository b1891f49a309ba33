package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/store/backend/internal/domain/shared"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormEntityRepository implements shared.Repository for one entity type.
// References are written as foreign keys only and preloaded on reads.
type GormEntityRepository[T any, P shared.Record[T]] struct {
	db         *gorm.DB
	sortFields map[string]string
	preloads   []string
}

// NewGormEntityRepository creates a repository. preloads name the reference
// chains loaded with every read, e.g. "Product.ProductCategory".
func NewGormEntityRepository[T any, P shared.Record[T]](db *gorm.DB, sortFields map[string]string, preloads ...string) *GormEntityRepository[T, P] {
	return &GormEntityRepository[T, P]{
		db:         db,
		sortFields: sortFields,
		preloads:   preloads,
	}
}

// Create inserts a record and writes the generated identity back onto it
func (r *GormEntityRepository[T, P]) Create(ctx context.Context, entity *T) error {
	rec := P(entity)
	if !rec.IsNew() {
		return shared.ErrIdentityAssigned
	}
	linkReferences(rec)

	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(entity).Error; err != nil {
		return fmt.Errorf("create %s: %w", rec.IndexName(), translateWriteError(err))
	}
	return nil
}

// Update replaces every column of an existing record
func (r *GormEntityRepository[T, P]) Update(ctx context.Context, entity *T) error {
	rec := P(entity)
	if rec.IsNew() {
		return shared.ErrIdentityMissing
	}
	linkReferences(rec)

	// An explicit select keeps Save from turning a missed update into an insert.
	result := r.db.WithContext(ctx).
		Select("*").
		Omit(clause.Associations).
		Save(entity)
	if result.Error != nil {
		return fmt.Errorf("update %s %d: %w", rec.IndexName(), rec.GetID(), translateWriteError(result.Error))
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// FindByID loads a record with its references
func (r *GormEntityRepository[T, P]) FindByID(ctx context.Context, id int64) (*T, error) {
	var entity T
	err := r.withPreloads(r.db.WithContext(ctx)).First(&entity, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &entity, nil
}

// FindAll returns one page of records in the requested order
func (r *GormEntityRepository[T, P]) FindAll(ctx context.Context, page shared.PageRequest) (shared.Page[T], error) {
	page = page.Normalize()

	var total int64
	if err := r.db.WithContext(ctx).Model(new(T)).Count(&total).Error; err != nil {
		return shared.Page[T]{}, err
	}

	var items []T
	if total > int64(page.Offset()) {
		query := r.withPreloads(r.db.WithContext(ctx))
		for _, col := range OrderColumns(page.Sort, r.sortFields) {
			query = query.Order(col)
		}
		if err := query.Offset(page.Offset()).Limit(page.Size).Find(&items).Error; err != nil {
			return shared.Page[T]{}, err
		}
	}

	return shared.NewPage(items, total, page), nil
}

// DeleteByID removes a record. Missing records are not an error.
func (r *GormEntityRepository[T, P]) DeleteByID(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(new(T), id).Error
}

// ExistsByID checks whether a record exists
func (r *GormEntityRepository[T, P]) ExistsByID(ctx context.Context, id int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(new(T)).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

// FindAllIDs returns up to limit identities greater than afterID, ascending
func (r *GormEntityRepository[T, P]) FindAllIDs(ctx context.Context, afterID int64, limit int) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).
		Model(new(T)).
		Where("id > ?", afterID).
		Order("id ASC").
		Limit(limit).
		Pluck("id", &ids).Error
	return ids, err
}

// FindIDsReferencing returns the identities of records whose column holds
// one of ids
func (r *GormEntityRepository[T, P]) FindIDsReferencing(ctx context.Context, column string, ids []int64) ([]int64, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	values := make([]any, len(ids))
	for i, id := range ids {
		values[i] = id
	}

	var found []int64
	err := r.db.WithContext(ctx).
		Model(new(T)).
		Where(clause.IN{Column: clause.Column{Name: column}, Values: values}).
		Order("id ASC").
		Pluck("id", &found).Error
	return found, err
}

func (r *GormEntityRepository[T, P]) withPreloads(db *gorm.DB) *gorm.DB {
	for _, p := range r.preloads {
		db = db.Preload(p)
	}
	return db
}

// translateWriteError maps constraint violations reported by the dialect
func translateWriteError(err error) error {
	switch {
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return shared.ErrUnknownReference
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return shared.ErrAlreadyExists
	}
	return err
}

func linkReferences(entity shared.Entity) {
	if ref, ok := entity.(shared.Referencing); ok {
		ref.LinkReferences()
	}
}
