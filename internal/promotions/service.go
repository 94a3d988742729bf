package promotions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/comanda-pos/comanda/internal/catalog"
	"github.com/comanda-pos/comanda/internal/shared"
)

// RepositoryPort abstracts promotion persistence.
type RepositoryPort interface {
	GetPromotion(ctx context.Context, id string) (Promotion, error)
	ListPromotions(ctx context.Context, activeAt time.Time) ([]Promotion, error)
	InsertPromotion(ctx context.Context, p Promotion) error
	SetPromotionActive(ctx context.Context, id string, active bool, at time.Time) error
}

// ProductLookup resolves catalog products.
type ProductLookup interface {
	GetProduct(ctx context.Context, id string) (catalog.Product, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service manages promotions.
type Service struct {
	repo     RepositoryPort
	products ProductLookup
	audit    AuditPort
	now      func() time.Time
}

// NewService builds Service.
func NewService(repo RepositoryPort, products ProductLookup, audit AuditPort) *Service {
	return &Service{repo: repo, products: products, audit: audit, now: func() time.Time { return time.Now().UTC() }}
}

// Create validates and stores a promotion. Product names and unit prices are
// copied from the catalog unless a unit price is given.
func (s *Service) Create(ctx context.Context, input CreatePromotionInput) (Promotion, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return Promotion{}, fmt.Errorf("%w: name required", ErrInvalidPromotion)
	}
	if len(input.Products) == 0 {
		return Promotion{}, fmt.Errorf("%w: at least one product required", ErrInvalidPromotion)
	}
	if !input.StartDate.Before(input.EndDate) {
		return Promotion{}, fmt.Errorf("%w: start date must be before end date", ErrInvalidPromotion)
	}
	discount, err := NewDiscount(input.DiscountType, input.DiscountValue, input.BuyQuantity, input.GetQuantity, input.PackagePrice)
	if err != nil {
		return Promotion{}, err
	}
	if err := discount.validate(); err != nil {
		return Promotion{}, err
	}

	refs := make([]ProductRef, 0, len(input.Products))
	seen := make(map[string]bool, len(input.Products))
	for _, in := range input.Products {
		if seen[in.ProductID] {
			return Promotion{}, fmt.Errorf("%w: product %s listed twice", ErrInvalidPromotion, in.ProductID)
		}
		seen[in.ProductID] = true
		product, err := s.products.GetProduct(ctx, in.ProductID)
		if err != nil {
			if errors.Is(err, catalog.ErrProductNotFound) {
				return Promotion{}, fmt.Errorf("%w: product %s", catalog.ErrProductNotFound, in.ProductID)
			}
			return Promotion{}, err
		}
		ref := ProductRef{ProductID: product.ID, ProductName: product.Name, Quantity: in.Quantity, UnitPrice: product.Price}
		if ref.Quantity <= 0 {
			ref.Quantity = 1
		}
		if in.UnitPrice != nil {
			ref.UnitPrice = *in.UnitPrice
		}
		refs = append(refs, ref)
	}

	now := s.now()
	promo := Promotion{
		ID:          uuid.NewString(),
		Name:        name,
		Description: strings.TrimSpace(input.Description),
		Products:    refs,
		Discount:    discount,
		StartDate:   input.StartDate.UTC(),
		EndDate:     input.EndDate.UTC(),
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.InsertPromotion(ctx, promo); err != nil {
		return Promotion{}, err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  shared.ActorFromContext(ctx),
			Action:   "promotions:create",
			Entity:   "promotion",
			EntityID: promo.ID,
			Meta:     map[string]any{"name": promo.Name, "type": string(discount.Type())},
		})
	}
	return promo, nil
}

// Get returns one promotion.
func (s *Service) Get(ctx context.Context, id string) (Promotion, error) {
	return s.repo.GetPromotion(ctx, id)
}

// List returns every promotion, or only the ones active now.
func (s *Service) List(ctx context.Context, activeOnly bool) ([]Promotion, error) {
	var at time.Time
	if activeOnly {
		at = s.now()
	}
	return s.repo.ListPromotions(ctx, at)
}

// Deactivate disables a promotion. Sales already priced keep their prices.
func (s *Service) Deactivate(ctx context.Context, id string) error {
	return s.repo.SetPromotionActive(ctx, id, false, s.now())
}
