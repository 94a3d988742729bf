// Package inventory tracks ingredient stock, product recipes and the
// append-only movement ledger. It also hosts the availability evaluator and
// the consumption engine used when a sale is recorded.
package inventory

import (
	"errors"
	"fmt"
	"time"
)

// MovementType enumerates supported stock movements.
type MovementType string

const (
	// MovementIn represents an inbound movement such as a restock.
	MovementIn MovementType = "IN"
	// MovementOut represents stock consumed by a sale.
	MovementOut MovementType = "OUT"
	// MovementAdjustment indicates a manual correction, signed.
	MovementAdjustment MovementType = "ADJUSTMENT"
)

// UnlimitedQuantity is reported as the preparable quantity of products
// without a recipe.
const UnlimitedQuantity = 999

// ReasonSaleConsumption tags OUT movements produced by sales.
const ReasonSaleConsumption = "sale consumption"

// Ingredient is a stocked raw material.
type Ingredient struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Unit        string    `json:"unit"`
	Stock       float64   `json:"stock"`
	MinStock    float64   `json:"min_stock"`
	Cost        float64   `json:"cost"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// LowStock reports whether stock reached the reorder threshold.
func (i Ingredient) LowStock() bool {
	return i.Stock <= i.MinStock
}

// RecipeLine links a product to one ingredient it consumes per unit.
type RecipeLine struct {
	ID             string    `json:"id"`
	ProductID      string    `json:"product_id"`
	IngredientID   string    `json:"ingredient_id"`
	IngredientName string    `json:"ingredient_name"`
	Unit           string    `json:"unit"`
	Quantity       float64   `json:"quantity"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Movement is an append-only stock ledger entry.
type Movement struct {
	ID               string       `json:"id"`
	IngredientID     string       `json:"ingredient_id"`
	IngredientName   string       `json:"ingredient_name"`
	Type             MovementType `json:"type"`
	Quantity         float64      `json:"quantity"`
	BalanceAfter     float64      `json:"balance_after"`
	Reason           string       `json:"reason"`
	RelatedSaleID    string       `json:"related_sale_id,omitempty"`
	RelatedExpenseID string       `json:"related_expense_id,omitempty"`
	UserID           string       `json:"user_id"`
	Date             time.Time    `json:"date"`

	// LowStock is set when the movement left the ingredient at or below its
	// reorder threshold. It is not persisted.
	LowStock bool `json:"-"`
}

// Availability describes whether a product can currently be prepared.
type Availability struct {
	ProductID          string   `json:"product_id"`
	ProductName        string   `json:"product_name"`
	Available          bool     `json:"available"`
	MaxQuantity        int      `json:"max_quantity"`
	MissingIngredients []string `json:"missing_ingredients"`
}

// Verdict is the answer to "can N units be prepared".
type Verdict struct {
	OK     bool   `json:"ok"`
	Reason string `json:"reason,omitempty"`
}

// ConsumeLine is one ingredient quantity to take out of stock.
type ConsumeLine struct {
	IngredientID string  `json:"ingredient_id" validate:"required"`
	Quantity     float64 `json:"quantity" validate:"gt=0"`
}

// ConsumeRequest groups the lines consumed by one sale.
type ConsumeRequest struct {
	Lines  []ConsumeLine `json:"lines" validate:"required,min=1,dive"`
	SaleID string        `json:"sale_id"`
	UserID string        `json:"user_id"`
}

// CreateIngredientInput registers a new ingredient.
type CreateIngredientInput struct {
	Name        string  `json:"name" validate:"required,max=200"`
	Description string  `json:"description" validate:"max=1000"`
	Unit        string  `json:"unit" validate:"required,max=20"`
	Stock       float64 `json:"stock" validate:"gte=0"`
	MinStock    float64 `json:"min_stock" validate:"gte=0"`
	Cost        float64 `json:"cost" validate:"gte=0"`
}

// UpdateIngredientInput changes ingredient metadata. Stock only moves
// through movements.
type UpdateIngredientInput struct {
	Name        *string  `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Description *string  `json:"description,omitempty"`
	Unit        *string  `json:"unit,omitempty" validate:"omitempty,min=1,max=20"`
	MinStock    *float64 `json:"min_stock,omitempty" validate:"omitempty,gte=0"`
	Cost        *float64 `json:"cost,omitempty" validate:"omitempty,gte=0"`
}

// LinkInput attaches an ingredient to a product recipe.
type LinkInput struct {
	ProductID    string  `json:"product_id" validate:"required"`
	IngredientID string  `json:"ingredient_id" validate:"required"`
	Quantity     float64 `json:"quantity" validate:"gt=0"`
}

// RestockInput posts an inbound movement.
type RestockInput struct {
	IngredientID string  `json:"ingredient_id" validate:"required"`
	Quantity     float64 `json:"quantity" validate:"gt=0"`
	Reason       string  `json:"reason"`
	ExpenseID    string  `json:"-"`
	UserID       string  `json:"-"`
}

// AdjustInput posts a signed correction.
type AdjustInput struct {
	IngredientID string  `json:"ingredient_id" validate:"required"`
	Delta        float64 `json:"delta" validate:"ne=0"`
	Reason       string  `json:"reason" validate:"required"`
	UserID       string  `json:"-"`
}

// MovementFilter narrows ledger listings.
type MovementFilter struct {
	IngredientID string
	SaleID       string
	From         time.Time
	To           time.Time
	Limit        int
}

var (
	// ErrIngredientNotFound indicates an unknown ingredient id.
	ErrIngredientNotFound = errors.New("inventory: ingredient not found")
	// ErrInsufficientStock indicates stock below the requested quantity.
	ErrInsufficientStock = errors.New("inventory: insufficient stock")
	// ErrInvalidIngredient indicates an ingredient failing validation.
	ErrInvalidIngredient = errors.New("inventory: invalid ingredient")
	// ErrInvalidQuantity indicates invalid qty.
	ErrInvalidQuantity = errors.New("inventory: quantity must be greater than zero")
	// ErrNegativeStock triggered when an adjustment would result in negative stock.
	ErrNegativeStock = errors.New("inventory: negative stock not allowed")
	// ErrRecipeLineNotFound indicates the product does not use the ingredient.
	ErrRecipeLineNotFound = errors.New("inventory: recipe line not found")
	// ErrDuplicateRecipeLine indicates the ingredient is already linked.
	ErrDuplicateRecipeLine = errors.New("inventory: ingredient already linked to product")
)

// StockError reports which ingredient lacked stock and by how much.
type StockError struct {
	Ingredient string
	Available  float64
	Required   float64
}

func (e *StockError) Error() string {
	return fmt.Sprintf("%s: %s has %.2f, requires %.2f", ErrInsufficientStock, e.Ingredient, e.Available, e.Required)
}

// Unwrap lets errors.Is match ErrInsufficientStock.
func (e *StockError) Unwrap() error { return ErrInsufficientStock }
