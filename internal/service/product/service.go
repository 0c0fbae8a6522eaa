package product

import (
	"context"
	"fmt"
	"strings"

	"storefront/internal/domain"
	"storefront/internal/importer"
	productrepo "storefront/internal/repository/product"
)

type Service struct {
	repo     productrepo.Repository
	importer *importer.Importer
}

func New(repo productrepo.Repository, imp *importer.Importer) *Service {
	return &Service{repo: repo, importer: imp}
}

func (s *Service) List(ctx context.Context) ([]domain.Product, error) {
	return s.repo.List(ctx)
}

func (s *Service) Get(ctx context.Context, name string) (*domain.Product, error) {
	return s.repo.GetByName(ctx, name)
}

// UpdatePrice sets a single product's price.
func (s *Service) UpdatePrice(ctx context.Context, name string, price int64) error {
	return s.UpdatePrices(ctx, []productrepo.PriceUpdate{{Name: name, Price: price}})
}

// UpdatePrices validates every update before applying any of them.
func (s *Service) UpdatePrices(ctx context.Context, updates []productrepo.PriceUpdate) error {
	if len(updates) == 0 {
		return fmt.Errorf("%w: no price updates", domain.ErrInvalidInput)
	}
	seen := make(map[string]struct{}, len(updates))
	clean := make([]productrepo.PriceUpdate, 0, len(updates))
	for _, u := range updates {
		name := strings.TrimSpace(u.Name)
		if name == "" {
			return fmt.Errorf("%w: product name required", domain.ErrInvalidInput)
		}
		if u.Price <= 0 {
			return fmt.Errorf("%w: price for %q must be a positive number", domain.ErrInvalidInput, name)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("%w: %q listed twice", domain.ErrInvalidInput, name)
		}
		seen[name] = struct{}{}
		clean = append(clean, productrepo.PriceUpdate{Name: name, Price: u.Price})
	}
	return s.repo.UpdatePrices(ctx, clean)
}

// Upload parses pasted catalog text and upserts it as one batch.
func (s *Service) Upload(ctx context.Context, text string) ([]domain.UploadedProduct, error) {
	return s.importer.Run(ctx, text)
}
