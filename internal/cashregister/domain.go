// Package cashregister tracks the register session sales and expenses are
// booked against. At most one register is OPEN at any time.
package cashregister

import (
	"errors"
	"time"
)

// Status of a register session.
type Status string

const (
	// StatusOpen marks the session currently taking sales.
	StatusOpen Status = "OPEN"
	// StatusClosed marks a reconciled session.
	StatusClosed Status = "CLOSED"
)

// Register is one cash register session.
type Register struct {
	ID              string     `json:"id"`
	OpenedAt        time.Time  `json:"opened_at"`
	ClosedAt        *time.Time `json:"closed_at,omitempty"`
	OpeningBalance  float64    `json:"opening_balance"`
	ClosingBalance  *float64   `json:"closing_balance,omitempty"`
	TotalSales      float64    `json:"total_sales"`
	TotalExpenses   float64    `json:"total_expenses"`
	ExpectedBalance float64    `json:"expected_balance"`
	ActualBalance   *float64   `json:"actual_balance,omitempty"`
	Difference      *float64   `json:"difference,omitempty"`
	Status          Status     `json:"status"`
	UserID          string     `json:"user_id"`
	Notes           string     `json:"notes"`
}

// Expected recomputes opening + sales - expenses.
func (r Register) Expected() float64 {
	return r.OpeningBalance + r.TotalSales - r.TotalExpenses
}

// HistoryEntry is the archived copy of a closed register.
type HistoryEntry struct {
	Register
	ArchivedAt time.Time `json:"archived_at"`
}

// OpenInput opens a new session.
type OpenInput struct {
	OpeningBalance float64 `json:"opening_balance" validate:"gte=0"`
	Notes          string  `json:"notes"`
}

// CloseInput reconciles the open session.
type CloseInput struct {
	ActualBalance float64 `json:"actual_balance" validate:"gte=0"`
	Notes         string  `json:"notes"`
}

var (
	// ErrNoOpenRegister indicates no register is OPEN.
	ErrNoOpenRegister = errors.New("cashregister: no open register")
	// ErrRegisterAlreadyOpen indicates another register is OPEN.
	ErrRegisterAlreadyOpen = errors.New("cashregister: a register is already open")
	// ErrNegativeBalance indicates a negative opening or counted balance.
	ErrNegativeBalance = errors.New("cashregister: balance must not be negative")
	// ErrRegisterNotFound indicates an unknown register id.
	ErrRegisterNotFound = errors.New("cashregister: register not found")
	// ErrInvalidAmount indicates a non-positive sale or expense amount.
	ErrInvalidAmount = errors.New("cashregister: amount must not be negative")
)
