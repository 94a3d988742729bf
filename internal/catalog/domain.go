// Package catalog manages the products offered at the register. Products carry
// no stock of their own; availability derives from their recipe.
package catalog

import (
	"errors"
	"time"
)

// Product is a sellable item.
type Product struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       float64   `json:"price"`
	Cost        float64   `json:"cost"`
	Category    string    `json:"category"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CreateProductInput carries the fields accepted when registering a product.
type CreateProductInput struct {
	Name        string  `json:"name" validate:"required,max=200"`
	Description string  `json:"description" validate:"max=1000"`
	Price       float64 `json:"price" validate:"gt=0"`
	Cost        float64 `json:"cost" validate:"gte=0"`
	Category    string  `json:"category" validate:"max=100"`
}

// UpdateProductInput carries optional product changes.
type UpdateProductInput struct {
	Name        *string  `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Description *string  `json:"description,omitempty" validate:"omitempty,max=1000"`
	Price       *float64 `json:"price,omitempty" validate:"omitempty,gt=0"`
	Cost        *float64 `json:"cost,omitempty" validate:"omitempty,gte=0"`
	Category    *string  `json:"category,omitempty" validate:"omitempty,max=100"`
}

var (
	// ErrProductNotFound indicates an unknown product id.
	ErrProductNotFound = errors.New("catalog: product not found")
	// ErrInvalidProduct indicates a product failing basic validation.
	ErrInvalidProduct = errors.New("catalog: invalid product")
)
