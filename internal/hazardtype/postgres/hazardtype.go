package postgres

import (
	"context"
	"errors"

	hazardTypeDatamodel "github.com/frahmantamala/safety-hazards/internal/core/datamodel/hazardtype"
	"github.com/frahmantamala/safety-hazards/internal/hazardtype"
	"gorm.io/gorm"
)

type HazardTypeRepository struct {
	db *gorm.DB
}

func NewHazardTypeRepository(db *gorm.DB) hazardtype.RepositoryAPI {
	return &HazardTypeRepository{db: db}
}

func (r *HazardTypeRepository) GetAll(ctx context.Context) ([]*hazardTypeDatamodel.HazardType, error) {
	var types []*hazardTypeDatamodel.HazardType
	err := r.db.WithContext(ctx).Order("name ASC").Find(&types).Error
	return types, err
}

func (r *HazardTypeRepository) GetByName(ctx context.Context, name string) (*hazardTypeDatamodel.HazardType, error) {
	var t hazardTypeDatamodel.HazardType
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&t).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

func (r *HazardTypeRepository) Create(ctx context.Context, t *hazardTypeDatamodel.HazardType) error {
	return r.db.WithContext(ctx).Create(t).Error
}
