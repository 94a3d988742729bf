package expenses

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/comanda-pos/comanda/internal/inventory"
	"github.com/comanda-pos/comanda/internal/shared"
)

// RepositoryPort abstracts expense persistence.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetExpense(ctx context.Context, id string) (Expense, error)
	ListExpenses(ctx context.Context, from, to time.Time) ([]Expense, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates expense operations.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
	now   func() time.Time
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit, now: func() time.Time { return time.Now().UTC() }}
}

// Create books an expense against the OPEN register. A restock line posts the
// matching IN movement in the same transaction.
func (s *Service) Create(ctx context.Context, input CreateExpenseInput) (Expense, error) {
	description := strings.TrimSpace(input.Description)
	if description == "" {
		return Expense{}, fmt.Errorf("%w: description required", ErrInvalidExpense)
	}
	if input.Amount <= 0 {
		return Expense{}, fmt.Errorf("%w: amount must be greater than zero", ErrInvalidExpense)
	}
	if !input.Category.Valid() {
		return Expense{}, fmt.Errorf("%w: unknown category %q", ErrInvalidExpense, input.Category)
	}
	expense := Expense{
		ID:          uuid.NewString(),
		Description: description,
		Amount:      input.Amount,
		Category:    input.Category,
		Date:        s.now(),
		UserID:      shared.ActorFromContext(ctx),
		Notes:       input.Notes,
	}
	if input.Restock != nil {
		if input.Restock.Quantity <= 0 {
			return Expense{}, fmt.Errorf("%w: restock quantity must be greater than zero", ErrInvalidExpense)
		}
		expense.RestockIngredientID = input.Restock.IngredientID
		expense.RestockQuantity = input.Restock.Quantity
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		reg, err := tx.OpenRegisterForUpdate(ctx)
		if err != nil {
			return err
		}
		expense.CashRegisterID = reg.ID
		if err := tx.InsertExpense(ctx, expense); err != nil {
			return err
		}
		if input.Restock != nil {
			if _, err := inventory.Restock(ctx, tx, inventory.RestockInput{
				IngredientID: input.Restock.IngredientID,
				Quantity:     input.Restock.Quantity,
				Reason:       "purchase: " + description,
				ExpenseID:    expense.ID,
				UserID:       expense.UserID,
			}); err != nil {
				return err
			}
		}
		_, err = tx.AddExpense(ctx, reg.ID, expense.Amount)
		return err
	})
	if err != nil {
		return Expense{}, err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  expense.UserID,
			Action:   "expenses:create",
			Entity:   "expense",
			EntityID: expense.ID,
			Meta:     map[string]any{"amount": expense.Amount, "category": string(expense.Category)},
		})
	}
	return expense, nil
}

// Get returns an expense by id.
func (s *Service) Get(ctx context.Context, id string) (Expense, error) {
	return s.repo.GetExpense(ctx, id)
}

// ListByRange returns expenses dated within [from, to].
func (s *Service) ListByRange(ctx context.Context, from, to time.Time) ([]Expense, error) {
	return s.repo.ListExpenses(ctx, from, to)
}
