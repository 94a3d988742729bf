package workers

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/comanda-pos/comanda/internal/cashregister"
	"github.com/comanda-pos/comanda/internal/expenses"
)

type memoryRepo struct {
	workers        map[string]Worker
	participations []Participation
	payments       []Payment
	expenses       []expenses.Expense
	register       *cashregister.Register
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{workers: make(map[string]Worker)}
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	parts := append([]Participation(nil), m.participations...)
	pays := append([]Payment(nil), m.payments...)
	exps := append([]expenses.Expense(nil), m.expenses...)
	var reg *cashregister.Register
	if m.register != nil {
		copied := *m.register
		reg = &copied
	}
	if err := fn(ctx, m); err != nil {
		m.participations, m.payments, m.expenses, m.register = parts, pays, exps, reg
		return err
	}
	return nil
}

func (m *memoryRepo) GetWorker(_ context.Context, id string) (Worker, error) {
	w, ok := m.workers[id]
	if !ok {
		return Worker{}, ErrWorkerNotFound
	}
	return w, nil
}

func (m *memoryRepo) ListWorkers(_ context.Context, activeOnly bool) ([]Worker, error) {
	var out []Worker
	for _, w := range m.workers {
		if activeOnly && !w.Active {
			continue
		}
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memoryRepo) InsertWorker(_ context.Context, w Worker) error {
	m.workers[w.ID] = w
	return nil
}

func (m *memoryRepo) UpdateWorker(_ context.Context, w Worker) error {
	m.workers[w.ID] = w
	return nil
}

func (m *memoryRepo) InsertParticipation(_ context.Context, p Participation) error {
	m.participations = append(m.participations, p)
	return nil
}

func (m *memoryRepo) ListParticipations(_ context.Context, filter ParticipationFilter) ([]Participation, error) {
	var out []Participation
	for _, p := range m.participations {
		if filter.WorkerID != "" && p.WorkerID != filter.WorkerID {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (m *memoryRepo) ListUnpaidParticipations(_ context.Context, workerID string) ([]Participation, error) {
	var out []Participation
	for _, p := range m.participations {
		if p.WorkerID == workerID && !p.Paid {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memoryRepo) MarkParticipationsPaid(_ context.Context, ids []string) error {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	for i := range m.participations {
		if set[m.participations[i].ID] {
			m.participations[i].Paid = true
		}
	}
	return nil
}

func (m *memoryRepo) InsertPayment(_ context.Context, p Payment) error {
	m.payments = append(m.payments, p)
	return nil
}

func (m *memoryRepo) ListPayments(_ context.Context, workerID string) ([]Payment, error) {
	var out []Payment
	for _, p := range m.payments {
		if p.WorkerID == workerID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memoryRepo) InsertExpense(_ context.Context, e expenses.Expense) error {
	m.expenses = append(m.expenses, e)
	return nil
}

func (m *memoryRepo) OpenRegisterForUpdate(context.Context) (cashregister.Register, error) {
	if m.register == nil {
		return cashregister.Register{}, cashregister.ErrNoOpenRegister
	}
	return *m.register, nil
}

func (m *memoryRepo) AddExpense(_ context.Context, _ string, amount float64) (cashregister.Register, error) {
	m.register.TotalExpenses += amount
	m.register.ExpectedBalance = m.register.Expected()
	return *m.register, nil
}

func seedWorkers(repo *memoryRepo) {
	repo.workers["cook"] = Worker{ID: "cook", Name: "Ana", Roles: []Role{RoleCook}, PaymentPerSale: 5, Active: true}
	repo.workers["rider"] = Worker{ID: "rider", Name: "Beto", Roles: []Role{RoleDelivery}, PaymentPerSale: 3, Active: true}
	repo.workers["idle"] = Worker{ID: "idle", Name: "Ciro", Roles: []Role{RoleCook}, PaymentPerSale: 4}
}

func TestAssignPaysPerUnit(t *testing.T) {
	repo := newMemoryRepo()
	seedWorkers(repo)

	parts, err := Assign(context.Background(), repo, AssignRequest{SaleID: "s1", CookID: "cook", DeliveryID: "rider", Units: 3})
	require.NoError(t, err)
	require.Len(t, parts, 2)
	require.Equal(t, RoleCook, parts[0].Role)
	require.InDelta(t, 15, parts[0].Payment, 0.0001)
	require.Equal(t, "Ana", parts[0].WorkerName)
	require.Equal(t, RoleDelivery, parts[1].Role)
	require.InDelta(t, 9, parts[1].Payment, 0.0001)
	require.False(t, parts[1].Paid)
}

func TestAssignDefaultsToOneUnitAndSkipsEmptySlots(t *testing.T) {
	repo := newMemoryRepo()
	seedWorkers(repo)

	parts, err := Assign(context.Background(), repo, AssignRequest{SaleID: "s1", CookID: "cook"})
	require.NoError(t, err)
	require.Len(t, parts, 1)
	require.InDelta(t, 5, parts[0].Payment, 0.0001)

	parts, err = Assign(context.Background(), repo, AssignRequest{SaleID: "s2"})
	require.NoError(t, err)
	require.Empty(t, parts)
}

func TestAssignRejectsUnknownAndInactive(t *testing.T) {
	repo := newMemoryRepo()
	seedWorkers(repo)

	_, err := Assign(context.Background(), repo, AssignRequest{SaleID: "s1", CookID: "ghost"})
	require.ErrorIs(t, err, ErrWorkerNotFound)

	_, err = Assign(context.Background(), repo, AssignRequest{SaleID: "s1", CookID: "idle"})
	require.ErrorIs(t, err, ErrWorkerInactive)
}

func TestCreateWorkerValidates(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil)
	ctx := context.Background()

	_, err := svc.CreateWorker(ctx, CreateWorkerInput{Name: "Ana"})
	require.ErrorIs(t, err, ErrInvalidWorker)
	_, err = svc.CreateWorker(ctx, CreateWorkerInput{Name: "Ana", Roles: []Role{"CHEF"}})
	require.ErrorIs(t, err, ErrInvalidWorker)
	_, err = svc.CreateWorker(ctx, CreateWorkerInput{Name: "Ana", Roles: []Role{RoleCook}, PaymentPerSale: -1})
	require.ErrorIs(t, err, ErrInvalidWorker)

	w, err := svc.CreateWorker(ctx, CreateWorkerInput{Name: "Ana", Roles: []Role{RoleCook, RoleBuyer}, PaymentPerSale: 5})
	require.NoError(t, err)
	require.True(t, w.Active)
}

func TestPayParticipationsGreedy(t *testing.T) {
	repo := newMemoryRepo()
	seedWorkers(repo)
	repo.participations = []Participation{
		{ID: "p1", WorkerID: "cook", WorkerName: "Ana", Payment: 10},
		{ID: "p2", WorkerID: "cook", WorkerName: "Ana", Payment: 20},
		{ID: "p3", WorkerID: "cook", WorkerName: "Ana", Payment: 5},
	}
	svc := NewService(repo, nil)
	ctx := context.Background()

	_, err := svc.PayParticipations(ctx, "cook", PayInput{Amount: 0})
	require.ErrorIs(t, err, ErrInvalidPayment)

	_, err = svc.PayParticipations(ctx, "cook", PayInput{Amount: 36})
	require.ErrorIs(t, err, ErrExceedsPending)

	payment, err := svc.PayParticipations(ctx, "cook", PayInput{Amount: 15})
	require.NoError(t, err)
	require.Equal(t, []string{"p1", "p3"}, payment.ParticipationIDs)
	require.Equal(t, PaymentParticipation, payment.PaymentType)
	require.InDelta(t, 15, payment.Amount, 0.0001)

	earnings, err := svc.Earnings(ctx, "cook")
	require.NoError(t, err)
	require.Len(t, earnings, 1)
	require.Equal(t, 3, earnings[0].SalesCount)
	require.InDelta(t, 35, earnings[0].Earned, 0.0001)
	require.InDelta(t, 15, earnings[0].Paid, 0.0001)
	require.InDelta(t, 20, earnings[0].Pending, 0.0001)

	_, err = svc.PayParticipations(ctx, "rider", PayInput{Amount: 1})
	require.ErrorIs(t, err, ErrNothingPending)
}

func TestPayParticipationsSettlesCentAmountsExactly(t *testing.T) {
	repo := newMemoryRepo()
	seedWorkers(repo)
	repo.participations = []Participation{
		{ID: "p1", WorkerID: "cook", WorkerName: "Ana", Payment: 10.10},
		{ID: "p2", WorkerID: "cook", WorkerName: "Ana", Payment: 20.20},
		{ID: "p3", WorkerID: "rider", WorkerName: "Beto", Payment: 0.10},
		{ID: "p4", WorkerID: "rider", WorkerName: "Beto", Payment: 0.20},
	}
	svc := NewService(repo, nil)
	ctx := context.Background()

	payment, err := svc.PayParticipations(ctx, "cook", PayInput{Amount: 30.30})
	require.NoError(t, err)
	require.Equal(t, []string{"p1", "p2"}, payment.ParticipationIDs)

	payment, err = svc.PayParticipations(ctx, "rider", PayInput{Amount: 0.30})
	require.NoError(t, err)
	require.Equal(t, []string{"p3", "p4"}, payment.ParticipationIDs)

	_, err = svc.PayParticipations(ctx, "rider", PayInput{Amount: 0.10})
	require.ErrorIs(t, err, ErrNothingPending)
}

func TestManualPaymentBooksExpense(t *testing.T) {
	repo := newMemoryRepo()
	seedWorkers(repo)
	svc := NewService(repo, nil)
	ctx := context.Background()

	_, err := svc.ManualPayment(ctx, ManualPaymentInput{WorkerID: "cook", Amount: 50, Reason: "bono"})
	require.ErrorIs(t, err, cashregister.ErrNoOpenRegister)
	require.Empty(t, repo.payments)

	repo.register = &cashregister.Register{ID: "reg", OpeningBalance: 200, ExpectedBalance: 200, Status: cashregister.StatusOpen}

	_, err = svc.ManualPayment(ctx, ManualPaymentInput{WorkerID: "cook", Amount: 50, Reason: " "})
	require.ErrorIs(t, err, ErrInvalidPayment)
	_, err = svc.ManualPayment(ctx, ManualPaymentInput{WorkerID: "ghost", Amount: 50, Reason: "bono"})
	require.ErrorIs(t, err, ErrWorkerNotFound)

	payment, err := svc.ManualPayment(ctx, ManualPaymentInput{WorkerID: "cook", Amount: 50, Reason: "bono"})
	require.NoError(t, err)
	require.Equal(t, PaymentManual, payment.PaymentType)
	require.Empty(t, payment.ParticipationIDs)
	require.Len(t, repo.expenses, 1)
	require.Equal(t, expenses.CategoryWorkerPayment, repo.expenses[0].Category)
	require.Equal(t, "manual payment to Ana: bono", repo.expenses[0].Description)
	require.Equal(t, "reg", repo.expenses[0].CashRegisterID)
	require.InDelta(t, 50, repo.register.TotalExpenses, 0.0001)
	require.InDelta(t, 150, repo.register.ExpectedBalance, 0.0001)
}

func TestHandlerPayExceedsPending(t *testing.T) {
	repo := newMemoryRepo()
	seedWorkers(repo)
	repo.participations = []Participation{{ID: "p1", WorkerID: "cook", WorkerName: "Ana", Payment: 10}}
	h := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), NewService(repo, nil))
	r := chi.NewRouter()
	h.MountRoutes(r)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/cook/payments", strings.NewReader(`{"amount":11}`)))
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/cook/payments", strings.NewReader(`{"amount":10}`)))
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/earnings", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `"pending":0`)
}
