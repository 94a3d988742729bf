// Package workers manages kitchen and delivery staff, the participations they
// earn on sales and the payments that settle them.
package workers

import (
	"errors"
	"time"
)

// Role a worker can hold.
type Role string

const (
	RoleCook      Role = "COCINERO"
	RoleDelivery  Role = "REPARTIDOR"
	RoleBuyer     Role = "COMPRADOR"
	RoleLogistics Role = "LOGISTICA"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleCook, RoleDelivery, RoleBuyer, RoleLogistics:
		return true
	}
	return false
}

// Worker is a member of staff paid per sale.
type Worker struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Roles          []Role    `json:"roles"`
	PaymentPerSale float64   `json:"payment_per_sale"`
	Active         bool      `json:"active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Participation is what a worker earned on one sale. Only Paid ever changes.
type Participation struct {
	ID         string    `json:"id"`
	SaleID     string    `json:"sale_id"`
	WorkerID   string    `json:"worker_id"`
	WorkerName string    `json:"worker_name"`
	Role       Role      `json:"role"`
	Payment    float64   `json:"payment"`
	Paid       bool      `json:"paid"`
	Date       time.Time `json:"date"`
}

// PaymentType distinguishes settled participations from ad-hoc payouts.
type PaymentType string

const (
	PaymentParticipation PaymentType = "PARTICIPATION"
	PaymentManual        PaymentType = "MANUAL"
)

// Payment is money handed to a worker.
type Payment struct {
	ID               string      `json:"id"`
	WorkerID         string      `json:"worker_id"`
	WorkerName       string      `json:"worker_name"`
	Amount           float64     `json:"amount"`
	ParticipationIDs []string    `json:"participation_ids"`
	Date             time.Time   `json:"date"`
	Notes            string      `json:"notes"`
	Reason           string      `json:"reason,omitempty"`
	PaymentType      PaymentType `json:"payment_type"`
	UserID           string      `json:"user_id"`
}

// Earnings summarises participations of one worker.
type Earnings struct {
	WorkerID   string  `json:"worker_id"`
	WorkerName string  `json:"worker_name"`
	SalesCount int     `json:"sales_count"`
	Earned     float64 `json:"earned"`
	Paid       float64 `json:"paid"`
	Pending    float64 `json:"pending"`
}

// ParticipationFilter narrows participation listings.
type ParticipationFilter struct {
	WorkerID string
	From     time.Time
	To       time.Time
}

// CreateWorkerInput registers a worker.
type CreateWorkerInput struct {
	Name           string  `json:"name" validate:"required"`
	Roles          []Role  `json:"roles" validate:"min=1"`
	PaymentPerSale float64 `json:"payment_per_sale" validate:"gte=0"`
}

// UpdateWorkerInput applies partial changes.
type UpdateWorkerInput struct {
	Name           *string  `json:"name"`
	Roles          []Role   `json:"roles"`
	PaymentPerSale *float64 `json:"payment_per_sale" validate:"omitempty,gte=0"`
	Active         *bool    `json:"active"`
}

// PayInput settles pending participations.
type PayInput struct {
	Amount float64 `json:"amount" validate:"gt=0"`
	Notes  string  `json:"notes"`
}

// ManualPaymentInput pays a worker outside the participation ledger.
type ManualPaymentInput struct {
	WorkerID string  `json:"worker_id" validate:"required"`
	Amount   float64 `json:"amount" validate:"gt=0"`
	Reason   string  `json:"reason" validate:"required"`
	Notes    string  `json:"notes"`
}

var (
	// ErrWorkerNotFound indicates an unknown worker id.
	ErrWorkerNotFound = errors.New("workers: worker not found")
	// ErrWorkerInactive indicates an assignment to a deactivated worker.
	ErrWorkerInactive = errors.New("workers: worker is inactive")
	// ErrInvalidWorker indicates a failed precondition on create/update.
	ErrInvalidWorker = errors.New("workers: invalid worker")
	// ErrInvalidPayment indicates a failed precondition on a payment.
	ErrInvalidPayment = errors.New("workers: invalid payment")
	// ErrNothingPending indicates a payment for a worker with no unpaid participations.
	ErrNothingPending = errors.New("workers: no pending participations")
	// ErrExceedsPending indicates a payment larger than what is owed.
	ErrExceedsPending = errors.New("workers: amount exceeds pending")
)
