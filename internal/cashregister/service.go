package cashregister

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/comanda-pos/comanda/internal/shared"
)

// RepositoryPort abstracts register persistence.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	CurrentRegister(ctx context.Context) (Register, error)
	GetRegister(ctx context.Context, id string) (Register, error)
	ListHistory(ctx context.Context, limit int) ([]HistoryEntry, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates register sessions.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
	now   func() time.Time
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit, now: func() time.Time { return time.Now().UTC() }}
}

// Open starts a session. Fails when another register is OPEN.
func (s *Service) Open(ctx context.Context, input OpenInput) (Register, error) {
	if input.OpeningBalance < 0 {
		return Register{}, ErrNegativeBalance
	}
	reg := Register{
		ID:              uuid.NewString(),
		OpenedAt:        s.now(),
		OpeningBalance:  input.OpeningBalance,
		ExpectedBalance: input.OpeningBalance,
		Status:          StatusOpen,
		UserID:          shared.ActorFromContext(ctx),
		Notes:           input.Notes,
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.CurrentRegister(ctx); err == nil {
			return ErrRegisterAlreadyOpen
		} else if !errors.Is(err, ErrNoOpenRegister) {
			return err
		}
		return tx.InsertRegister(ctx, reg)
	})
	if err != nil {
		return Register{}, err
	}
	s.record(ctx, "cashregister:open", reg)
	return reg, nil
}

// Close reconciles the OPEN register against the counted balance and archives
// it into history.
func (s *Service) Close(ctx context.Context, input CloseInput) (Register, error) {
	if input.ActualBalance < 0 {
		return Register{}, ErrNegativeBalance
	}
	var closed Register
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		reg, err := tx.OpenRegisterForUpdate(ctx)
		if err != nil {
			return err
		}
		at := s.now()
		actual := input.ActualBalance
		reg.ExpectedBalance = reg.Expected()
		diff := actual - reg.ExpectedBalance
		reg.ClosedAt = &at
		reg.ClosingBalance = &actual
		reg.ActualBalance = &actual
		reg.Difference = &diff
		reg.Status = StatusClosed
		if input.Notes != "" {
			reg.Notes = input.Notes
		}
		if err := tx.CloseRegister(ctx, reg); err != nil {
			return err
		}
		if err := tx.InsertHistory(ctx, reg, at); err != nil {
			return err
		}
		closed = reg
		return nil
	})
	if err != nil {
		return Register{}, err
	}
	s.record(ctx, "cashregister:close", closed)
	return closed, nil
}

// Current returns the OPEN register.
func (s *Service) Current(ctx context.Context) (Register, error) {
	return s.repo.CurrentRegister(ctx)
}

// Get returns a register by id.
func (s *Service) Get(ctx context.Context, id string) (Register, error) {
	return s.repo.GetRegister(ctx, id)
}

// History lists closed registers.
func (s *Service) History(ctx context.Context, limit int) ([]HistoryEntry, error) {
	return s.repo.ListHistory(ctx, limit)
}

func (s *Service) record(ctx context.Context, action string, r Register) {
	if s.audit == nil {
		return
	}
	meta := map[string]any{"opening_balance": r.OpeningBalance, "expected_balance": r.ExpectedBalance}
	if r.Difference != nil {
		meta["difference"] = *r.Difference
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  shared.ActorFromContext(ctx),
		Action:   action,
		Entity:   "cash_register",
		EntityID: r.ID,
		Meta:     meta,
	})
}
