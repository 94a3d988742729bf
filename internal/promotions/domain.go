// Package promotions stores promotions and prices sale lines against them.
package promotions

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// DiscountType names a discount policy.
type DiscountType string

const (
	// TypePercentage takes a percentage off the unit price.
	TypePercentage DiscountType = "PERCENTAGE"
	// TypeFixedAmount subtracts a fixed amount from the unit price.
	TypeFixedAmount DiscountType = "FIXED_AMOUNT"
	// TypeBuyXGetY gives Get units free for every Buy units.
	TypeBuyXGetY DiscountType = "BUY_X_GET_Y"
	// TypePackagePrice sells a set of products for one price.
	TypePackagePrice DiscountType = "PACKAGE_PRICE"
)

// Discount is one of Percentage, FixedAmount, BuyXGetY or PackagePrice.
type Discount interface {
	Type() DiscountType
	validate() error
}

// Percentage discounts Value percent.
type Percentage struct{ Value float64 }

// FixedAmount discounts Value per unit, never below zero.
type FixedAmount struct{ Value float64 }

// BuyXGetY charges qty - floor(qty/Buy)*Get units.
type BuyXGetY struct{ Buy, Get int }

// PackagePrice sells the promotion's product set for Price.
type PackagePrice struct{ Price float64 }

func (Percentage) Type() DiscountType   { return TypePercentage }
func (FixedAmount) Type() DiscountType  { return TypeFixedAmount }
func (BuyXGetY) Type() DiscountType     { return TypeBuyXGetY }
func (PackagePrice) Type() DiscountType { return TypePackagePrice }

func (d Percentage) validate() error {
	if d.Value <= 0 || d.Value > 100 {
		return fmt.Errorf("%w: percentage must be within (0, 100]", ErrInvalidPromotion)
	}
	return nil
}

func (d FixedAmount) validate() error {
	if d.Value <= 0 {
		return fmt.Errorf("%w: discount amount must be greater than zero", ErrInvalidPromotion)
	}
	return nil
}

func (d BuyXGetY) validate() error {
	if d.Buy <= 0 || d.Get <= 0 {
		return fmt.Errorf("%w: buy and get quantities must be greater than zero", ErrInvalidPromotion)
	}
	if d.Get >= d.Buy {
		return fmt.Errorf("%w: get quantity must be lower than buy quantity", ErrInvalidPromotion)
	}
	return nil
}

func (d PackagePrice) validate() error {
	if d.Price <= 0 {
		return fmt.Errorf("%w: package price must be greater than zero", ErrInvalidPromotion)
	}
	return nil
}

// ProductRef is a product covered by a promotion with the quantity a
// package requires and the unit price used to split the package price.
type ProductRef struct {
	ProductID   string  `json:"product_id"`
	ProductName string  `json:"product_name"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
}

// Promotion applies a discount to a set of products within a date window.
type Promotion struct {
	ID          string
	Name        string
	Description string
	Products    []ProductRef
	Discount    Discount
	StartDate   time.Time
	EndDate     time.Time
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ActiveAt reports whether the promotion is enabled and now falls inside its
// inclusive window.
func (p Promotion) ActiveAt(now time.Time) bool {
	return p.Active && !now.Before(p.StartDate) && !now.After(p.EndDate)
}

// Product returns the reference for productID when the promotion covers it.
func (p Promotion) Product(productID string) (ProductRef, bool) {
	for _, ref := range p.Products {
		if ref.ProductID == productID {
			return ref, true
		}
	}
	return ProductRef{}, false
}

// Package returns the package price when the promotion is a package.
func (p Promotion) Package() (PackagePrice, bool) {
	pkg, ok := p.Discount.(PackagePrice)
	return pkg, ok
}

type promotionJSON struct {
	ID            string       `json:"id"`
	Name          string       `json:"name"`
	Description   string       `json:"description"`
	Products      []ProductRef `json:"products"`
	DiscountType  DiscountType `json:"discount_type"`
	DiscountValue *float64     `json:"discount_value,omitempty"`
	BuyQuantity   *int         `json:"buy_quantity,omitempty"`
	GetQuantity   *int         `json:"get_quantity,omitempty"`
	PackagePrice  *float64     `json:"package_price,omitempty"`
	StartDate     time.Time    `json:"start_date"`
	EndDate       time.Time    `json:"end_date"`
	Active        bool         `json:"active"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

// MarshalJSON flattens the discount into discount_type plus the fields of
// the active variant.
func (p Promotion) MarshalJSON() ([]byte, error) {
	wire := promotionJSON{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Products:    p.Products,
		StartDate:   p.StartDate,
		EndDate:     p.EndDate,
		Active:      p.Active,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
	if wire.Products == nil {
		wire.Products = []ProductRef{}
	}
	switch d := p.Discount.(type) {
	case Percentage:
		wire.DiscountType, wire.DiscountValue = d.Type(), &d.Value
	case FixedAmount:
		wire.DiscountType, wire.DiscountValue = d.Type(), &d.Value
	case BuyXGetY:
		wire.DiscountType, wire.BuyQuantity, wire.GetQuantity = d.Type(), &d.Buy, &d.Get
	case PackagePrice:
		wire.DiscountType, wire.PackagePrice = d.Type(), &d.Price
	}
	return json.Marshal(wire)
}

// UnmarshalJSON rebuilds the discount variant from discount_type.
func (p *Promotion) UnmarshalJSON(data []byte) error {
	var wire promotionJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	discount, err := NewDiscount(wire.DiscountType, deref(wire.DiscountValue), derefInt(wire.BuyQuantity), derefInt(wire.GetQuantity), deref(wire.PackagePrice))
	if err != nil {
		return err
	}
	*p = Promotion{
		ID:          wire.ID,
		Name:        wire.Name,
		Description: wire.Description,
		Products:    wire.Products,
		Discount:    discount,
		StartDate:   wire.StartDate,
		EndDate:     wire.EndDate,
		Active:      wire.Active,
		CreatedAt:   wire.CreatedAt,
		UpdatedAt:   wire.UpdatedAt,
	}
	return nil
}

// NewDiscount builds the variant named by typ from its flattened fields.
func NewDiscount(typ DiscountType, value float64, buy, get int, packagePrice float64) (Discount, error) {
	switch typ {
	case TypePercentage:
		return Percentage{Value: value}, nil
	case TypeFixedAmount:
		return FixedAmount{Value: value}, nil
	case TypeBuyXGetY:
		return BuyXGetY{Buy: buy, Get: get}, nil
	case TypePackagePrice:
		return PackagePrice{Price: packagePrice}, nil
	default:
		return nil, fmt.Errorf("%w: unknown discount type %q", ErrInvalidPromotion, typ)
	}
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func derefInt(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}

// ProductInput references a product when creating a promotion. Name and unit
// price default to the catalog values.
type ProductInput struct {
	ProductID string   `json:"product_id" validate:"required"`
	Quantity  int      `json:"quantity" validate:"gte=0"`
	UnitPrice *float64 `json:"unit_price,omitempty" validate:"omitempty,gt=0"`
}

// CreatePromotionInput carries a new promotion.
type CreatePromotionInput struct {
	Name          string         `json:"name" validate:"required,max=200"`
	Description   string         `json:"description"`
	Products      []ProductInput `json:"products" validate:"required,min=1,dive"`
	DiscountType  DiscountType   `json:"discount_type" validate:"required,oneof=PERCENTAGE FIXED_AMOUNT BUY_X_GET_Y PACKAGE_PRICE"`
	DiscountValue float64        `json:"discount_value"`
	BuyQuantity   int            `json:"buy_quantity"`
	GetQuantity   int            `json:"get_quantity"`
	PackagePrice  float64        `json:"package_price"`
	StartDate     time.Time      `json:"start_date" validate:"required"`
	EndDate       time.Time      `json:"end_date" validate:"required"`
}

var (
	// ErrPromotionNotFound indicates an unknown promotion id.
	ErrPromotionNotFound = errors.New("promotions: promotion not found")
	// ErrInvalidPromotion indicates a promotion failing validation.
	ErrInvalidPromotion = errors.New("promotions: invalid promotion")
	// ErrInvalidQuantity indicates a non-positive line quantity.
	ErrInvalidQuantity = errors.New("promotions: quantity must be greater than zero")
)
