package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/comanda-pos/comanda/internal/shared"
)

// RepositoryPort abstracts product persistence.
type RepositoryPort interface {
	GetProduct(ctx context.Context, id string) (Product, error)
	ListProducts(ctx context.Context) ([]Product, error)
	InsertProduct(ctx context.Context, p Product) error
	UpdateProduct(ctx context.Context, p Product) error
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates catalog operations.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
	now   func() time.Time
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit, now: func() time.Time { return time.Now().UTC() }}
}

// Create registers a new product.
func (s *Service) Create(ctx context.Context, input CreateProductInput) (Product, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return Product{}, fmt.Errorf("%w: name required", ErrInvalidProduct)
	}
	if input.Price <= 0 {
		return Product{}, fmt.Errorf("%w: price must be greater than zero", ErrInvalidProduct)
	}
	if input.Cost < 0 {
		return Product{}, fmt.Errorf("%w: cost must not be negative", ErrInvalidProduct)
	}
	now := s.now()
	product := Product{
		ID:          uuid.NewString(),
		Name:        name,
		Description: strings.TrimSpace(input.Description),
		Price:       input.Price,
		Cost:        input.Cost,
		Category:    strings.TrimSpace(input.Category),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.InsertProduct(ctx, product); err != nil {
		return Product{}, err
	}
	s.record(ctx, "catalog:create", product)
	return product, nil
}

// Update applies partial changes to an existing product.
func (s *Service) Update(ctx context.Context, id string, input UpdateProductInput) (Product, error) {
	product, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return Product{}, err
	}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return Product{}, fmt.Errorf("%w: name required", ErrInvalidProduct)
		}
		product.Name = name
	}
	if input.Description != nil {
		product.Description = strings.TrimSpace(*input.Description)
	}
	if input.Price != nil {
		if *input.Price <= 0 {
			return Product{}, fmt.Errorf("%w: price must be greater than zero", ErrInvalidProduct)
		}
		product.Price = *input.Price
	}
	if input.Cost != nil {
		if *input.Cost < 0 {
			return Product{}, fmt.Errorf("%w: cost must not be negative", ErrInvalidProduct)
		}
		product.Cost = *input.Cost
	}
	if input.Category != nil {
		product.Category = strings.TrimSpace(*input.Category)
	}
	product.UpdatedAt = s.now()
	if err := s.repo.UpdateProduct(ctx, product); err != nil {
		return Product{}, err
	}
	s.record(ctx, "catalog:update", product)
	return product, nil
}

// Get returns a product by id.
func (s *Service) Get(ctx context.Context, id string) (Product, error) {
	return s.repo.GetProduct(ctx, id)
}

// List returns every product.
func (s *Service) List(ctx context.Context) ([]Product, error) {
	return s.repo.ListProducts(ctx)
}

func (s *Service) record(ctx context.Context, action string, p Product) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  shared.ActorFromContext(ctx),
		Action:   action,
		Entity:   "product",
		EntityID: p.ID,
		Meta:     map[string]any{"name": p.Name, "price": p.Price},
	})
}
