package postgres

import (
	"context"
	"errors"

	"github.com/frahmantamala/safety-hazards/internal/core/access"
	userDatamodel "github.com/frahmantamala/safety-hazards/internal/core/datamodel/user"
	"github.com/frahmantamala/safety-hazards/internal/user"
	"gorm.io/gorm"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByID(ctx context.Context, userID int64) (*user.User, error) {
	var u userDatamodel.User
	err := r.db.WithContext(ctx).Where("id = ?", userID).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, user.ErrNotFound
		}
		return nil, err
	}
	return user.FromDataModel(&u), nil
}

func (r *UserRepository) ListActiveByRole(ctx context.Context, role access.Role) ([]*user.User, error) {
	var users []*userDatamodel.User
	err := r.db.WithContext(ctx).
		Where("role = ? AND is_active = ?", role.String(), true).
		Order("full_name ASC").
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return user.FromDataModelSlice(users), nil
}

// Create inserts a user row; used by the seeder and tests.
func (r *UserRepository) Create(ctx context.Context, u *userDatamodel.User) error {
	return r.db.WithContext(ctx).Create(u).Error
}

// Upsert inserts u or, when the username exists, refreshes its profile and credential.
func (r *UserRepository) Upsert(ctx context.Context, u *userDatamodel.User) error {
	var existing userDatamodel.User
	err := r.db.WithContext(ctx).Where("username = ?", u.Username).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return r.Create(ctx, u)
	}
	if err != nil {
		return err
	}
	u.ID = existing.ID
	u.CreatedAt = existing.CreatedAt
	return r.db.WithContext(ctx).Save(u).Error
}
