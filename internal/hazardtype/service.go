package hazardtype

import (
	"context"
	"log/slog"

	hazardTypeDatamodel "github.com/frahmantamala/safety-hazards/internal/core/datamodel/hazardtype"
)

type RepositoryAPI interface {
	GetAll(ctx context.Context) ([]*hazardTypeDatamodel.HazardType, error)
	GetByName(ctx context.Context, name string) (*hazardTypeDatamodel.HazardType, error)
	Create(ctx context.Context, t *hazardTypeDatamodel.HazardType) error
}

type Service struct {
	repo   RepositoryAPI
	logger *slog.Logger
}

func NewService(repo RepositoryAPI, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

// GetActiveTypes lists the active hazard types ordered by name.
func (s *Service) GetActiveTypes(ctx context.Context) ([]HazardTypeResponse, error) {
	rows, err := s.repo.GetAll(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to get hazard types from repository", "error", err)
		return nil, err
	}

	responses := make([]HazardTypeResponse, 0, len(rows))
	for _, row := range rows {
		if row.IsActive {
			responses = append(responses, FromDataModel(row).ToResponse())
		}
	}
	return responses, nil
}

// IsActiveType reports whether name is an active hazard type. Lookup is
// case-sensitive; the catalogue names are canonical.
func (s *Service) IsActiveType(ctx context.Context, name string) (bool, error) {
	row, err := s.repo.GetByName(ctx, name)
	if err != nil {
		s.logger.WarnContext(ctx, "error checking hazard type", "name", name, "error", err)
		return false, err
	}
	return row != nil && row.IsActive, nil
}

// EnsureDefaults inserts any of DefaultTypes missing from the catalogue.
func (s *Service) EnsureDefaults(ctx context.Context) (int, error) {
	created := 0
	for _, t := range DefaultTypes {
		existing, err := s.repo.GetByName(ctx, t.Name)
		if err != nil {
			return created, err
		}
		if existing != nil {
			continue
		}
		row := ToDataModel(&HazardType{Name: t.Name, Description: t.Description, IsActive: true})
		if err := s.repo.Create(ctx, row); err != nil {
			return created, err
		}
		created++
	}
	if created > 0 {
		s.logger.InfoContext(ctx, "seeded hazard types", "count", created)
	}
	return created, nil
}
