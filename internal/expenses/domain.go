// Package expenses books outgoing cash against the open register.
package expenses

import (
	"errors"
	"time"
)

// Category classifies an expense.
type Category string

const (
	CategorySupplies      Category = "SUPPLIES"
	CategoryServices      Category = "SERVICES"
	CategorySalaries      Category = "SALARIES"
	CategoryRent          Category = "RENT"
	CategoryUtilities     Category = "UTILITIES"
	CategoryWorkerPayment Category = "WORKER_PAYMENT"
	CategoryOther         Category = "OTHER"
)

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case CategorySupplies, CategoryServices, CategorySalaries, CategoryRent,
		CategoryUtilities, CategoryWorkerPayment, CategoryOther:
		return true
	}
	return false
}

// Expense is cash leaving the register.
type Expense struct {
	ID                  string    `json:"id"`
	Description         string    `json:"description"`
	Amount              float64   `json:"amount"`
	Category            Category  `json:"category"`
	Date                time.Time `json:"date"`
	CashRegisterID      string    `json:"cash_register_id,omitempty"`
	UserID              string    `json:"user_id"`
	Notes               string    `json:"notes"`
	RestockIngredientID string    `json:"restock_ingredient_id,omitempty"`
	RestockQuantity     float64   `json:"restock_quantity,omitempty"`
}

// RestockLine links an ingredient purchase to the expense paying for it.
type RestockLine struct {
	IngredientID string  `json:"ingredient_id" validate:"required"`
	Quantity     float64 `json:"quantity" validate:"gt=0"`
}

// CreateExpenseInput registers an expense.
type CreateExpenseInput struct {
	Description string       `json:"description" validate:"required"`
	Amount      float64      `json:"amount" validate:"gt=0"`
	Category    Category     `json:"category" validate:"required"`
	Notes       string       `json:"notes"`
	Restock     *RestockLine `json:"restock,omitempty"`
}

var (
	// ErrInvalidExpense indicates a failed precondition on create.
	ErrInvalidExpense = errors.New("expenses: invalid expense")
	// ErrExpenseNotFound indicates an unknown expense id.
	ErrExpenseNotFound = errors.New("expenses: expense not found")
)
