package category

import (
	"context"

	"storefront/internal/domain"
	"storefront/internal/repository/category"
)

type Service struct {
	repo category.Repository
}

func New(repo category.Repository) *Service {
	return &Service{repo: repo}
}

// List returns every category that currently has products, by name.
func (s *Service) List(ctx context.Context) ([]domain.Category, error) {
	list, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []domain.Category{}
	}
	return list, nil
}
