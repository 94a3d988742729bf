package workers

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/comanda-pos/comanda/internal/expenses"
	"github.com/comanda-pos/comanda/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetWorker(ctx context.Context, id string) (Worker, error)
	ListWorkers(ctx context.Context, activeOnly bool) ([]Worker, error)
	InsertWorker(ctx context.Context, w Worker) error
	UpdateWorker(ctx context.Context, w Worker) error
	ListParticipations(ctx context.Context, filter ParticipationFilter) ([]Participation, error)
	ListPayments(ctx context.Context, workerID string) ([]Payment, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates staff and payroll operations.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
	now   func() time.Time
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit, now: func() time.Time { return time.Now().UTC() }}
}

// CreateWorker registers an active worker.
func (s *Service) CreateWorker(ctx context.Context, input CreateWorkerInput) (Worker, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return Worker{}, fmt.Errorf("%w: name required", ErrInvalidWorker)
	}
	if err := validateRoles(input.Roles); err != nil {
		return Worker{}, err
	}
	if input.PaymentPerSale < 0 {
		return Worker{}, fmt.Errorf("%w: payment per sale must not be negative", ErrInvalidWorker)
	}
	now := s.now()
	worker := Worker{
		ID:             uuid.NewString(),
		Name:           name,
		Roles:          input.Roles,
		PaymentPerSale: input.PaymentPerSale,
		Active:         true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.InsertWorker(ctx, worker); err != nil {
		return Worker{}, err
	}
	s.record(ctx, "workers:create", "worker", worker.ID, map[string]any{"name": worker.Name})
	return worker, nil
}

// UpdateWorker applies partial changes.
func (s *Service) UpdateWorker(ctx context.Context, id string, input UpdateWorkerInput) (Worker, error) {
	worker, err := s.repo.GetWorker(ctx, id)
	if err != nil {
		return Worker{}, err
	}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return Worker{}, fmt.Errorf("%w: name required", ErrInvalidWorker)
		}
		worker.Name = name
	}
	if input.Roles != nil {
		if err := validateRoles(input.Roles); err != nil {
			return Worker{}, err
		}
		worker.Roles = input.Roles
	}
	if input.PaymentPerSale != nil {
		if *input.PaymentPerSale < 0 {
			return Worker{}, fmt.Errorf("%w: payment per sale must not be negative", ErrInvalidWorker)
		}
		worker.PaymentPerSale = *input.PaymentPerSale
	}
	if input.Active != nil {
		worker.Active = *input.Active
	}
	worker.UpdatedAt = s.now()
	if err := s.repo.UpdateWorker(ctx, worker); err != nil {
		return Worker{}, err
	}
	s.record(ctx, "workers:update", "worker", worker.ID, map[string]any{"active": worker.Active})
	return worker, nil
}

func validateRoles(roles []Role) error {
	if len(roles) == 0 {
		return fmt.Errorf("%w: at least one role required", ErrInvalidWorker)
	}
	for _, r := range roles {
		if !r.Valid() {
			return fmt.Errorf("%w: unknown role %q", ErrInvalidWorker, r)
		}
	}
	return nil
}

// GetWorker returns a worker by id.
func (s *Service) GetWorker(ctx context.Context, id string) (Worker, error) {
	return s.repo.GetWorker(ctx, id)
}

// ListWorkers returns workers, optionally only the active ones.
func (s *Service) ListWorkers(ctx context.Context, activeOnly bool) ([]Worker, error) {
	return s.repo.ListWorkers(ctx, activeOnly)
}

// ListParticipations returns participations matching filter.
func (s *Service) ListParticipations(ctx context.Context, filter ParticipationFilter) ([]Participation, error) {
	return s.repo.ListParticipations(ctx, filter)
}

// ListPayments returns a worker's payments.
func (s *Service) ListPayments(ctx context.Context, workerID string) ([]Payment, error) {
	if _, err := s.repo.GetWorker(ctx, workerID); err != nil {
		return nil, err
	}
	return s.repo.ListPayments(ctx, workerID)
}

// PayParticipations settles unpaid participations oldest first. A
// participation is marked paid only when the remaining amount covers it in
// full; the payment records the whole amount handed over.
func (s *Service) PayParticipations(ctx context.Context, workerID string, input PayInput) (Payment, error) {
	if input.Amount <= 0 {
		return Payment{}, fmt.Errorf("%w: amount must be greater than zero", ErrInvalidPayment)
	}
	var payment Payment
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		worker, err := tx.GetWorker(ctx, workerID)
		if err != nil {
			return err
		}
		unpaid, err := tx.ListUnpaidParticipations(ctx, workerID)
		if err != nil {
			return err
		}
		if len(unpaid) == 0 {
			return ErrNothingPending
		}
		pending := decimal.Zero
		for _, p := range unpaid {
			pending = pending.Add(decimal.NewFromFloat(p.Payment))
		}
		amount := decimal.NewFromFloat(input.Amount)
		if amount.GreaterThan(pending) {
			return fmt.Errorf("%w: %s owed", ErrExceedsPending, shared.FormatMoney(pending.InexactFloat64()))
		}
		remaining := amount
		ids := make([]string, 0, len(unpaid))
		for _, p := range unpaid {
			owed := decimal.NewFromFloat(p.Payment)
			if remaining.GreaterThanOrEqual(owed) {
				ids = append(ids, p.ID)
				remaining = remaining.Sub(owed)
			}
			if remaining.IsZero() {
				break
			}
		}
		if err := tx.MarkParticipationsPaid(ctx, ids); err != nil {
			return err
		}
		payment = Payment{
			ID:               uuid.NewString(),
			WorkerID:         worker.ID,
			WorkerName:       worker.Name,
			Amount:           input.Amount,
			ParticipationIDs: ids,
			Date:             s.now(),
			Notes:            input.Notes,
			PaymentType:      PaymentParticipation,
			UserID:           shared.ActorFromContext(ctx),
		}
		return tx.InsertPayment(ctx, payment)
	})
	if err != nil {
		return Payment{}, err
	}
	s.record(ctx, "workers:pay", "worker_payment", payment.ID, map[string]any{
		"worker_id": payment.WorkerID, "amount": payment.Amount, "participations": len(payment.ParticipationIDs),
	})
	return payment, nil
}

// ManualPayment pays a worker from the open register outside the
// participation ledger. The payment, its WORKER_PAYMENT expense and the
// register totals commit together.
func (s *Service) ManualPayment(ctx context.Context, input ManualPaymentInput) (Payment, error) {
	if strings.TrimSpace(input.WorkerID) == "" {
		return Payment{}, fmt.Errorf("%w: worker required", ErrInvalidPayment)
	}
	if input.Amount <= 0 {
		return Payment{}, fmt.Errorf("%w: amount must be greater than zero", ErrInvalidPayment)
	}
	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		return Payment{}, fmt.Errorf("%w: reason required", ErrInvalidPayment)
	}
	userID := shared.ActorFromContext(ctx)
	var payment Payment
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		worker, err := tx.GetWorker(ctx, input.WorkerID)
		if err != nil {
			return err
		}
		reg, err := tx.OpenRegisterForUpdate(ctx)
		if err != nil {
			return err
		}
		now := s.now()
		payment = Payment{
			ID:               uuid.NewString(),
			WorkerID:         worker.ID,
			WorkerName:       worker.Name,
			Amount:           input.Amount,
			ParticipationIDs: []string{},
			Date:             now,
			Notes:            input.Notes,
			Reason:           reason,
			PaymentType:      PaymentManual,
			UserID:           userID,
		}
		if err := tx.InsertPayment(ctx, payment); err != nil {
			return err
		}
		if err := tx.InsertExpense(ctx, expenses.Expense{
			ID:             uuid.NewString(),
			Description:    fmt.Sprintf("manual payment to %s: %s", worker.Name, reason),
			Amount:         input.Amount,
			Category:       expenses.CategoryWorkerPayment,
			Date:           now,
			CashRegisterID: reg.ID,
			UserID:         userID,
			Notes:          input.Notes,
		}); err != nil {
			return err
		}
		_, err = tx.AddExpense(ctx, reg.ID, input.Amount)
		return err
	})
	if err != nil {
		return Payment{}, err
	}
	s.record(ctx, "workers:manual_payment", "worker_payment", payment.ID, map[string]any{
		"worker_id": payment.WorkerID, "amount": payment.Amount, "reason": reason,
	})
	return payment, nil
}

// Earnings aggregates participations per worker. An empty workerID covers
// every worker with at least one participation.
func (s *Service) Earnings(ctx context.Context, workerID string) ([]Earnings, error) {
	parts, err := s.repo.ListParticipations(ctx, ParticipationFilter{WorkerID: workerID})
	if err != nil {
		return nil, err
	}
	return summarize(parts), nil
}

func summarize(parts []Participation) []Earnings {
	byWorker := make(map[string]*Earnings)
	for _, p := range parts {
		e, ok := byWorker[p.WorkerID]
		if !ok {
			e = &Earnings{WorkerID: p.WorkerID, WorkerName: p.WorkerName}
			byWorker[p.WorkerID] = e
		}
		e.SalesCount++
		e.Earned += p.Payment
		if p.Paid {
			e.Paid += p.Payment
		} else {
			e.Pending += p.Payment
		}
	}
	out := make([]Earnings, 0, len(byWorker))
	for _, e := range byWorker {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].WorkerName != out[j].WorkerName {
			return out[i].WorkerName < out[j].WorkerName
		}
		return out[i].WorkerID < out[j].WorkerID
	})
	return out
}

func (s *Service) record(ctx context.Context, action, entity, id string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  shared.ActorFromContext(ctx),
		Action:   action,
		Entity:   entity,
		EntityID: id,
		Meta:     meta,
	})
}
