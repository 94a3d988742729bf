package reports

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/comanda-pos/comanda/internal/cashregister"
	"github.com/comanda-pos/comanda/internal/sales"
)

type fakeRepo struct {
	sales     []sales.Sale
	product   float64
	consumed  float64
	payroll   float64
	expenses  float64
	register  *cashregister.Register
	failSales error
}

func (f *fakeRepo) SaleTotals(_ context.Context, from, to time.Time) (sales.Totals, error) {
	if f.failSales != nil {
		return sales.Totals{}, f.failSales
	}
	var t sales.Totals
	for _, s := range f.sales {
		if !s.Date.Before(from) && !s.Date.After(to) {
			t.Count++
			t.Total += s.Total
		}
	}
	return t, nil
}

func (f *fakeRepo) ProductCost(context.Context, time.Time, time.Time) (float64, error) {
	return f.product, nil
}

func (f *fakeRepo) ConsumptionCost(context.Context, time.Time, time.Time) (float64, error) {
	return f.consumed, nil
}

func (f *fakeRepo) SumParticipations(context.Context, time.Time, time.Time) (float64, error) {
	return f.payroll, nil
}

func (f *fakeRepo) SumExpenses(context.Context, time.Time, time.Time) (float64, error) {
	return f.expenses, nil
}

func (f *fakeRepo) CurrentRegister(context.Context) (cashregister.Register, error) {
	if f.register == nil {
		return cashregister.Register{}, cashregister.ErrNoOpenRegister
	}
	return *f.register, nil
}

var fixedNow = time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)

func newTestService(repo *fakeRepo) *Service {
	svc := NewService(repo)
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func TestProfitNetsCosts(t *testing.T) {
	repo := &fakeRepo{
		sales:    []sales.Sale{{Date: fixedNow, Total: 300}, {Date: fixedNow, Total: 200}},
		product:  150,
		consumed: 90,
		payroll:  60,
		expenses: 40,
	}
	report, err := newTestService(repo).Profit(context.Background(), fixedNow.Add(-time.Hour), fixedNow.Add(time.Hour))
	require.NoError(t, err)
	require.Equal(t, 2, report.SalesCount)
	require.InDelta(t, 500, report.TotalSales, 0.0001)
	require.InDelta(t, 90, report.IngredientCosts, 0.0001)
	require.InDelta(t, 250, report.NetProfit, 0.0001)
}

func TestProfitPropagatesErrors(t *testing.T) {
	repo := &fakeRepo{failSales: errors.New("boom")}
	_, err := newTestService(repo).Profit(context.Background(), fixedNow, fixedNow)
	require.EqualError(t, err, "boom")
}

func TestDailyIncludesOpenRegister(t *testing.T) {
	repo := &fakeRepo{
		sales:    []sales.Sale{{Date: fixedNow, Total: 50}, {Date: fixedNow.AddDate(0, 0, -1), Total: 70}},
		expenses: 12,
	}
	report, err := newTestService(repo).Daily(context.Background(), time.Time{})
	require.NoError(t, err)
	require.Equal(t, 1, report.SalesCount)
	require.InDelta(t, 50, report.SalesTotal, 0.0001)
	require.Nil(t, report.Register)
	require.Equal(t, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), report.Date)

	repo.register = &cashregister.Register{ID: "reg", Status: cashregister.StatusOpen}
	report, err = newTestService(repo).Daily(context.Background(), time.Time{})
	require.NoError(t, err)
	require.NotNil(t, report.Register)
}

func TestGrowthComparesAverages(t *testing.T) {
	repo := &fakeRepo{sales: []sales.Sale{
		{Date: fixedNow, Total: 140},
		{Date: fixedNow.AddDate(0, 0, -1), Total: 100},
		{Date: fixedNow.AddDate(0, 0, -3), Total: 600},
	}}
	g, err := newTestService(repo).Growth(context.Background())
	require.NoError(t, err)
	require.InDelta(t, 140, g.Today, 0.0001)
	require.InDelta(t, 100, g.Yesterday, 0.0001)
	require.InDelta(t, 700, g.LastWeek, 0.0001)
	require.InDelta(t, 700, g.LastMonth, 0.0001)
	require.InDelta(t, 40, g.Percentage.Daily, 0.0001)
	require.InDelta(t, 40, g.Percentage.Weekly, 0.0001)
	require.InDelta(t, 500, g.Percentage.Monthly, 0.0001)
}

func TestHandlerProfitRejectsBadRange(t *testing.T) {
	h := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), newTestService(&fakeRepo{}))
	r := chi.NewRouter()
	h.MountRoutes(r)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/profit?from=2026-03-10&to=2026-03-01", nil))
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/profit?from=2026-03-01&to=2026-03-10", nil))
	require.Equal(t, http.StatusOK, rr.Code)
}

type stubPDF struct {
	got Daily
	err error
}

func (s *stubPDF) RenderDaily(_ context.Context, d Daily) ([]byte, error) {
	s.got = d
	return []byte("%PDF-1.7"), s.err
}

func TestHandlerDailyPDF(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	r := chi.NewRouter()
	NewHandler(logger, newTestService(&fakeRepo{})).MountRoutes(r)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/daily.pdf", nil))
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)

	pdf := &stubPDF{}
	r = chi.NewRouter()
	NewHandler(logger, newTestService(&fakeRepo{})).WithPDF(pdf).MountRoutes(r)
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/daily.pdf?date=2026-03-09", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "application/pdf", rr.Header().Get("Content-Type"))
	require.Contains(t, rr.Header().Get("Content-Disposition"), "daily-2026-03-09.pdf")
	require.Equal(t, 9, pdf.got.Date.Day())

	pdf.err = errors.New("gotenberg down")
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/daily.pdf", nil))
	require.Equal(t, http.StatusBadGateway, rr.Code)
}
