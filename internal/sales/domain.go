// Package sales records point-of-sale tickets. A sale prices its lines
// against promotions, assigns the cook and delivery worker, consumes recipe
// ingredients and books the total on the open register, all in one
// transaction.
package sales

import (
	"errors"
	"fmt"
	"time"
)

// PaymentMethod of a sale.
type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "CASH"
	PaymentCard     PaymentMethod = "CARD"
	PaymentTransfer PaymentMethod = "TRANSFER"
)

// Valid reports whether m is accepted.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentCard, PaymentTransfer:
		return true
	}
	return false
}

// Item is a priced line of a sale.
type Item struct {
	ProductID   string  `json:"product_id"`
	ProductName string  `json:"product_name"`
	Quantity    int     `json:"quantity"`
	Price       float64 `json:"price"`
	Subtotal    float64 `json:"subtotal"`
	PromotionID string  `json:"promotion_id,omitempty"`
}

// Sale is an immutable ticket.
type Sale struct {
	ID             string        `json:"id"`
	Date           time.Time     `json:"date"`
	Items          []Item        `json:"items"`
	Total          float64       `json:"total"`
	PaymentMethod  PaymentMethod `json:"payment_method"`
	CookID         string        `json:"cook_id,omitempty"`
	CookName       string        `json:"cook_name,omitempty"`
	DeliveryID     string        `json:"delivery_id,omitempty"`
	DeliveryName   string        `json:"delivery_name,omitempty"`
	UserID         string        `json:"user_id"`
	Notes          string        `json:"notes"`
	CashRegisterID string        `json:"cash_register_id"`
}

// Units is the number of product units on the ticket.
func (s Sale) Units() int {
	var n int
	for _, item := range s.Items {
		n += item.Quantity
	}
	return n
}

// ItemRequest is one requested line.
type ItemRequest struct {
	ProductID   string `json:"product_id" validate:"required"`
	Quantity    int    `json:"quantity" validate:"gt=0"`
	PromotionID string `json:"promotion_id"`
}

// CreateSaleRequest carries a ticket to record.
type CreateSaleRequest struct {
	Items          []ItemRequest `json:"items" validate:"min=1,dive"`
	PaymentMethod  PaymentMethod `json:"payment_method" validate:"required"`
	CookID         string        `json:"cook_id"`
	DeliveryID     string        `json:"delivery_id"`
	Notes          string        `json:"notes"`
	UserID         string        `json:"-"`
	IdempotencyKey string        `json:"-"`
}

// ListFilter bounds sale listings.
type ListFilter struct {
	From  time.Time
	To    time.Time
	Limit int
}

// Totals aggregates sales within a range.
type Totals struct {
	Count int     `json:"count"`
	Total float64 `json:"total"`
}

var (
	// ErrEmptySale indicates a ticket without items.
	ErrEmptySale = errors.New("sales: sale has no items")
	// ErrInvalidQuantity indicates a non-positive line quantity.
	ErrInvalidQuantity = errors.New("sales: quantity must be greater than zero")
	// ErrInvalidPaymentMethod indicates an unknown payment method.
	ErrInvalidPaymentMethod = errors.New("sales: invalid payment method")
	// ErrCannotPrepare indicates stock cannot cover a requested product.
	ErrCannotPrepare = errors.New("sales: cannot prepare product")
	// ErrSaleNotFound indicates an unknown sale id.
	ErrSaleNotFound = errors.New("sales: sale not found")
)

// CannotPrepareError names the product that stock cannot cover and why.
type CannotPrepareError struct {
	ProductName string
	Reason      string
}

func (e *CannotPrepareError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrCannotPrepare, e.ProductName, e.Reason)
}

// Unwrap exposes ErrCannotPrepare to errors.Is.
func (e *CannotPrepareError) Unwrap() error { return ErrCannotPrepare }
