package workers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/comanda-pos/comanda/internal/cashregister"
	"github.com/comanda-pos/comanda/internal/expenses"
	"github.com/comanda-pos/comanda/internal/platform/db"
)

// Store reads and writes workers through any pool or transaction.
type Store struct {
	q db.Querier
}

// NewStore binds a Store to a pool or pgx.Tx.
func NewStore(q db.Querier) *Store {
	return &Store{q: q}
}

// TxRepository exposes transactional operations used by payments. Manual
// payments touch the register and the expense ledger in the same unit.
type TxRepository interface {
	GetWorker(ctx context.Context, id string) (Worker, error)
	ListUnpaidParticipations(ctx context.Context, workerID string) ([]Participation, error)
	MarkParticipationsPaid(ctx context.Context, ids []string) error
	InsertPayment(ctx context.Context, p Payment) error
	InsertExpense(ctx context.Context, e expenses.Expense) error
	OpenRegisterForUpdate(ctx context.Context) (cashregister.Register, error)
	AddExpense(ctx context.Context, registerID string, amount float64) (cashregister.Register, error)
}

type (
	registerStore = cashregister.Store
	expenseStore  = expenses.Store
)

type txStore struct {
	*Store
	*registerStore
	*expenseStore
}

// Repository persists workers in PostgreSQL.
type Repository struct {
	*Store
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{Store: NewStore(pool), pool: pool}
}

// WithTx executes the callback inside repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, txStore{
			Store:         NewStore(tx),
			registerStore: cashregister.NewStore(tx),
			expenseStore:  expenses.NewStore(tx),
		})
	})
}

const workerColumns = `id, name, roles, payment_per_sale, active, created_at, updated_at`

// GetWorker loads a worker by id.
func (s *Store) GetWorker(ctx context.Context, id string) (Worker, error) {
	w, err := scanWorker(s.q.QueryRow(ctx, `SELECT `+workerColumns+` FROM workers WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Worker{}, ErrWorkerNotFound
		}
		return Worker{}, err
	}
	return w, nil
}

// ListWorkers returns workers ordered by name.
func (s *Store) ListWorkers(ctx context.Context, activeOnly bool) ([]Worker, error) {
	sql := `SELECT ` + workerColumns + ` FROM workers`
	if activeOnly {
		sql += ` WHERE active`
	}
	rows, err := s.q.Query(ctx, sql+` ORDER BY name, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Worker
	for rows.Next() {
		w, err := scanWorker(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// InsertWorker stores a new worker.
func (s *Store) InsertWorker(ctx context.Context, w Worker) error {
	_, err := s.q.Exec(ctx, `INSERT INTO workers (`+workerColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		w.ID, w.Name, roleStrings(w.Roles), w.PaymentPerSale, w.Active, w.CreatedAt, w.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert worker: %w", err)
	}
	return nil
}

// UpdateWorker overwrites mutable worker fields.
func (s *Store) UpdateWorker(ctx context.Context, w Worker) error {
	tag, err := s.q.Exec(ctx, `UPDATE workers SET name = $2, roles = $3, payment_per_sale = $4, active = $5, updated_at = $6
WHERE id = $1`, w.ID, w.Name, roleStrings(w.Roles), w.PaymentPerSale, w.Active, w.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update worker: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrWorkerNotFound
	}
	return nil
}

const participationColumns = `id, sale_id, worker_id, worker_name, role, payment, paid, date`

// InsertParticipation stores an unpaid participation.
func (s *Store) InsertParticipation(ctx context.Context, p Participation) error {
	_, err := s.q.Exec(ctx, `INSERT INTO worker_participations (`+participationColumns+`)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		p.ID, p.SaleID, p.WorkerID, p.WorkerName, string(p.Role), p.Payment, p.Paid, p.Date)
	if err != nil {
		return fmt.Errorf("insert participation: %w", err)
	}
	return nil
}

// ListParticipations returns participations matching filter, newest first.
func (s *Store) ListParticipations(ctx context.Context, filter ParticipationFilter) ([]Participation, error) {
	var (
		conditions []string
		args       []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conditions = append(conditions, fmt.Sprintf(cond, len(args)))
	}
	if filter.WorkerID != "" {
		add("worker_id = $%d", filter.WorkerID)
	}
	if !filter.From.IsZero() {
		add("date >= $%d", filter.From)
	}
	if !filter.To.IsZero() {
		add("date <= $%d", filter.To)
	}
	sql := `SELECT ` + participationColumns + ` FROM worker_participations`
	if len(conditions) > 0 {
		sql += ` WHERE ` + strings.Join(conditions, " AND ")
	}
	return s.queryParticipations(ctx, sql+` ORDER BY date DESC, id`, args...)
}

// ListUnpaidParticipations returns a worker's unpaid participations, oldest
// first, locked until the transaction ends.
func (s *Store) ListUnpaidParticipations(ctx context.Context, workerID string) ([]Participation, error) {
	return s.queryParticipations(ctx, `SELECT `+participationColumns+` FROM worker_participations
WHERE worker_id = $1 AND NOT paid ORDER BY date, id FOR UPDATE`, workerID)
}

func (s *Store) queryParticipations(ctx context.Context, sql string, args ...any) ([]Participation, error) {
	rows, err := s.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Participation
	for rows.Next() {
		var (
			p    Participation
			role string
		)
		if err := rows.Scan(&p.ID, &p.SaleID, &p.WorkerID, &p.WorkerName, &role, &p.Payment, &p.Paid, &p.Date); err != nil {
			return nil, err
		}
		p.Role = Role(role)
		out = append(out, p)
	}
	return out, rows.Err()
}

// MarkParticipationsPaid flips paid on the given participations.
func (s *Store) MarkParticipationsPaid(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.q.Exec(ctx, `UPDATE worker_participations SET paid = TRUE WHERE id = ANY($1) AND NOT paid`, ids)
	if err != nil {
		return fmt.Errorf("mark participations paid: %w", err)
	}
	return nil
}

// SumParticipations totals participation payments dated within [from, to].
func (s *Store) SumParticipations(ctx context.Context, from, to time.Time) (float64, error) {
	var total float64
	err := s.q.QueryRow(ctx, `SELECT COALESCE(SUM(payment), 0) FROM worker_participations WHERE date >= $1 AND date <= $2`,
		from, to).Scan(&total)
	return total, err
}

const paymentColumns = `id, worker_id, worker_name, amount, participation_ids, date, notes, reason, payment_type, user_id`

// InsertPayment stores a worker payment.
func (s *Store) InsertPayment(ctx context.Context, p Payment) error {
	ids := p.ParticipationIDs
	if ids == nil {
		ids = []string{}
	}
	_, err := s.q.Exec(ctx, `INSERT INTO worker_payments (`+paymentColumns+`)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		p.ID, p.WorkerID, p.WorkerName, p.Amount, ids, p.Date, p.Notes, p.Reason, string(p.PaymentType), p.UserID)
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

// ListPayments returns a worker's payments, newest first.
func (s *Store) ListPayments(ctx context.Context, workerID string) ([]Payment, error) {
	rows, err := s.q.Query(ctx, `SELECT `+paymentColumns+` FROM worker_payments WHERE worker_id = $1 ORDER BY date DESC, id`, workerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Payment
	for rows.Next() {
		var (
			p   Payment
			typ string
		)
		if err := rows.Scan(&p.ID, &p.WorkerID, &p.WorkerName, &p.Amount, &p.ParticipationIDs, &p.Date, &p.Notes,
			&p.Reason, &typ, &p.UserID); err != nil {
			return nil, err
		}
		p.PaymentType = PaymentType(typ)
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanWorker(row pgx.Row) (Worker, error) {
	var (
		w     Worker
		roles []string
	)
	if err := row.Scan(&w.ID, &w.Name, &roles, &w.PaymentPerSale, &w.Active, &w.CreatedAt, &w.UpdatedAt); err != nil {
		return Worker{}, err
	}
	w.Roles = make([]Role, len(roles))
	for i, r := range roles {
		w.Roles[i] = Role(r)
	}
	return w, nil
}

func roleStrings(roles []Role) []string {
	out := make([]string, len(roles))
	for i, r := range roles {
		out[i] = string(r)
	}
	return out
}
