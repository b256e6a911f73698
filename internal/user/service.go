package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/frahmantamala/safety-hazards/internal/core/access"
)

type Repository interface {
	GetByID(ctx context.Context, userID int64) (*User, error)
	ListActiveByRole(ctx context.Context, role access.Role) ([]*User, error)
}

type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

func (s *Service) GetByID(ctx context.Context, userID int64) (*User, error) {
	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}
	return u, nil
}

// ListActiveByRole returns active users holding role, ordered by full name.
// An unknown role yields an empty list.
func (s *Service) ListActiveByRole(ctx context.Context, role access.Role) ([]*User, error) {
	if !role.IsKnown() {
		return []*User{}, nil
	}

	users, err := s.repo.ListActiveByRole(ctx, role)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to list users by role", "role", role.String(), "error", err)
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// IsAssignable reports whether userID is an active site manager.
func (s *Service) IsAssignable(ctx context.Context, userID int64) (bool, error) {
	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return u.CanBeAssigned(), nil
}
