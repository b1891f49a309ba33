package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/store/backend/internal/domain/identity"
	"github.com/store/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormUserRepository implements identity.UserRepository using GORM
type GormUserRepository struct {
	db *gorm.DB
}

// NewGormUserRepository creates a new GormUserRepository
func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

var errLoginUsed = shared.NewDomainError(shared.CodeAlreadyExists, "Login name already used")

// Create creates a new user
func (r *GormUserRepository) Create(ctx context.Context, user *identity.User) error {
	if !user.IsNew() {
		return shared.ErrIdentityAssigned
	}
	exists, err := r.ExistsByLogin(ctx, user.Login)
	if err != nil {
		return err
	}
	if exists {
		return errLoginUsed
	}
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return errLoginUsed
		}
		return err
	}
	return nil
}

// Update updates an existing user
func (r *GormUserRepository) Update(ctx context.Context, user *identity.User) error {
	result := r.db.WithContext(ctx).Select("*").Save(user)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// FindByLogin finds a user by login, case-insensitively
func (r *GormUserRepository) FindByLogin(ctx context.Context, login string) (*identity.User, error) {
	var user identity.User
	if err := r.db.WithContext(ctx).
		Where("login = ?", normalizeLogin(login)).
		First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// ExistsByLogin checks if a login is already taken
func (r *GormUserRepository) ExistsByLogin(ctx context.Context, login string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&identity.User{}).
		Where("login = ?", normalizeLogin(login)).
		Count(&count).Error
	return count > 0, err
}

func normalizeLogin(login string) string {
	return strings.ToLower(strings.TrimSpace(login))
}

var _ identity.UserRepository = (*GormUserRepository)(nil)
