package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"

	"github.com/google/uuid"

	"storefront/internal/domain"
	"storefront/internal/repository/kv"
)

type catalogSource interface {
	List(ctx context.Context) ([]domain.Product, error)
}

// Service keeps cart sessions as JSON documents in a kv.Store.
type Service struct {
	store    kv.Store
	products catalogSource
	logger   *log.Logger

	mu sync.Mutex
}

func New(store kv.Store, products catalogSource, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Service{store: store, products: products, logger: logger}
}

// NewSessionID returns a fresh cart session id.
func NewSessionID() string {
	return uuid.NewString()
}

func sessionKey(sessionID string) (string, error) {
	id, err := uuid.Parse(strings.TrimSpace(sessionID))
	if err != nil {
		return "", fmt.Errorf("%w: invalid cart session id", domain.ErrInvalidInput)
	}
	return "cart:" + id.String(), nil
}

// Lines returns the session's cart. Unknown sessions are empty carts.
func (s *Service) Lines(ctx context.Context, sessionID string) ([]domain.CartLine, error) {
	key, err := sessionKey(sessionID)
	if err != nil {
		return nil, err
	}
	return s.load(ctx, key)
}

// Add puts one unit of the named product in the cart, capturing its
// current catalog price when the line is new. A line already at
// MaxLineQuantity stays there.
func (s *Service) Add(ctx context.Context, sessionID, productName string) ([]domain.CartLine, error) {
	key, err := sessionKey(sessionID)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(productName)
	if name == "" {
		return nil, fmt.Errorf("%w: product name required", domain.ErrInvalidInput)
	}
	catalog, err := s.products.List(ctx)
	if err != nil {
		return nil, err
	}
	var product *domain.Product
	for i := range catalog {
		if catalog[i].Name == name {
			product = &catalog[i]
			break
		}
	}
	if product == nil {
		return nil, domain.ErrNotFound
	}

	return s.mutate(ctx, key, func(lines []domain.CartLine) []domain.CartLine {
		for i := range lines {
			if lines[i].ProductName == name {
				if lines[i].Quantity < domain.MaxLineQuantity {
					lines[i].Quantity++
				}
				return lines
			}
		}
		return append(lines, domain.CartLine{ProductName: name, CapturedPrice: product.Price, Quantity: 1})
	})
}

// UpdateQuantity sets a line's quantity. Quantities below one are ignored;
// quantities above MaxLineQuantity are rejected.
func (s *Service) UpdateQuantity(ctx context.Context, sessionID, productName string, quantity int) ([]domain.CartLine, error) {
	key, err := sessionKey(sessionID)
	if err != nil {
		return nil, err
	}
	if quantity < 1 {
		return s.load(ctx, key)
	}
	if quantity > domain.MaxLineQuantity {
		return nil, fmt.Errorf("%w: quantity must be at most %d", domain.ErrInvalidInput, domain.MaxLineQuantity)
	}
	return s.mutate(ctx, key, func(lines []domain.CartLine) []domain.CartLine {
		for i := range lines {
			if lines[i].ProductName == productName {
				lines[i].Quantity = quantity
			}
		}
		return lines
	})
}

func (s *Service) Remove(ctx context.Context, sessionID, productName string) ([]domain.CartLine, error) {
	key, err := sessionKey(sessionID)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, key, func(lines []domain.CartLine) []domain.CartLine {
		kept := lines[:0]
		for _, l := range lines {
			if l.ProductName != productName {
				kept = append(kept, l)
			}
		}
		return kept
	})
}

// Clear drops the session's cart.
func (s *Service) Clear(ctx context.Context, sessionID string) error {
	key, err := sessionKey(sessionID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.Delete(ctx, key); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

// Count is the total number of units in the cart.
func (s *Service) Count(ctx context.Context, sessionID string) (int, error) {
	lines, err := s.Lines(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, l := range lines {
		n += l.Quantity
	}
	return n, nil
}

// SyncPrices refreshes captured prices for lines still in the catalog.
func (s *Service) SyncPrices(ctx context.Context, sessionID string) ([]domain.CartLine, error) {
	key, err := sessionKey(sessionID)
	if err != nil {
		return nil, err
	}
	catalog, err := s.products.List(ctx)
	if err != nil {
		return nil, err
	}
	prices := make(map[string]int64, len(catalog))
	for _, p := range catalog {
		prices[p.Name] = p.Price
	}
	return s.mutate(ctx, key, func(lines []domain.CartLine) []domain.CartLine {
		for i := range lines {
			if price, ok := prices[lines[i].ProductName]; ok {
				lines[i].CapturedPrice = price
			}
		}
		return lines
	})
}

// Priced reads the cart first and the catalog second, then reconciles,
// so the view reflects prices at least as new as the cart contents.
func (s *Service) Priced(ctx context.Context, sessionID string) ([]domain.CartLine, domain.Reconciliation, error) {
	lines, err := s.Lines(ctx, sessionID)
	if err != nil {
		return nil, domain.Reconciliation{}, err
	}
	catalog, err := s.products.List(ctx)
	if err != nil {
		return nil, domain.Reconciliation{}, err
	}
	return lines, Reconcile(lines, domain.Catalog(catalog)), nil
}

func (s *Service) mutate(ctx context.Context, key string, fn func([]domain.CartLine) []domain.CartLine) ([]domain.CartLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lines, err := s.load(ctx, key)
	if err != nil {
		return nil, err
	}
	lines = fn(lines)
	raw, err := json.Marshal(lines)
	if err != nil {
		return nil, err
	}
	if err := s.store.Set(ctx, key, raw); err != nil {
		return nil, fmt.Errorf("save cart: %w", err)
	}
	return lines, nil
}

func (s *Service) load(ctx context.Context, key string) ([]domain.CartLine, error) {
	raw, err := s.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return []domain.CartLine{}, nil
		}
		return nil, fmt.Errorf("load cart: %w", err)
	}
	var lines []domain.CartLine
	if err := json.Unmarshal(raw, &lines); err != nil {
		s.logger.Printf("cart service: corrupt cart key=%s error=%v", key, err)
		return []domain.CartLine{}, nil
	}
	valid := lines[:0]
	for _, l := range lines {
		if l.ProductName != "" && l.Quantity >= 1 && l.Quantity <= domain.MaxLineQuantity {
			valid = append(valid, l)
		}
	}
	return valid, nil
}
