package reports

import (
	"context"
	"errors"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/comanda-pos/comanda/internal/cashregister"
	"github.com/comanda-pos/comanda/internal/sales"
)

// RepositoryPort lists the aggregates reports read.
type RepositoryPort interface {
	SaleTotals(ctx context.Context, from, to time.Time) (sales.Totals, error)
	ProductCost(ctx context.Context, from, to time.Time) (float64, error)
	ConsumptionCost(ctx context.Context, from, to time.Time) (float64, error)
	SumParticipations(ctx context.Context, from, to time.Time) (float64, error)
	SumExpenses(ctx context.Context, from, to time.Time) (float64, error)
	CurrentRegister(ctx context.Context) (cashregister.Register, error)
}

// Service builds reports.
type Service struct {
	repo RepositoryPort
	now  func() time.Time
}

// NewService builds Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo, now: func() time.Time { return time.Now().UTC() }}
}

// Profit computes the income statement of [from, to]. Ingredient costs are
// reported alongside but not deducted: product costs already price the goods
// sold.
func (s *Service) Profit(ctx context.Context, from, to time.Time) (Profit, error) {
	report := Profit{From: from, To: to}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		totals, err := s.repo.SaleTotals(gctx, from, to)
		report.SalesCount, report.TotalSales = totals.Count, totals.Total
		return err
	})
	g.Go(func() (err error) {
		report.ProductCosts, err = s.repo.ProductCost(gctx, from, to)
		return err
	})
	g.Go(func() (err error) {
		report.IngredientCosts, err = s.repo.ConsumptionCost(gctx, from, to)
		return err
	})
	g.Go(func() (err error) {
		report.WorkerPayments, err = s.repo.SumParticipations(gctx, from, to)
		return err
	})
	g.Go(func() (err error) {
		report.OperatingExpenses, err = s.repo.SumExpenses(gctx, from, to)
		return err
	})
	if err := g.Wait(); err != nil {
		return Profit{}, err
	}
	report.NetProfit = report.TotalSales - report.ProductCosts - report.WorkerPayments - report.OperatingExpenses
	return report, nil
}

// Daily summarises the UTC day containing day. A zero day means today.
func (s *Service) Daily(ctx context.Context, day time.Time) (Daily, error) {
	if day.IsZero() {
		day = s.now()
	}
	start := startOfDay(day)
	end := start.Add(24*time.Hour - time.Nanosecond)
	report := Daily{Date: start}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		totals, err := s.repo.SaleTotals(gctx, start, end)
		report.SalesCount, report.SalesTotal = totals.Count, totals.Total
		return err
	})
	g.Go(func() (err error) {
		report.Expenses, err = s.repo.SumExpenses(gctx, start, end)
		return err
	})
	g.Go(func() error {
		reg, err := s.repo.CurrentRegister(gctx)
		if errors.Is(err, cashregister.ErrNoOpenRegister) {
			return nil
		}
		if err != nil {
			return err
		}
		report.Register = &reg
		return nil
	})
	if err := g.Wait(); err != nil {
		return Daily{}, err
	}
	return report, nil
}

// Growth compares today's sales with yesterday and with the daily average of
// the previous 7 and 30 days.
func (s *Service) Growth(ctx context.Context) (Growth, error) {
	today := startOfDay(s.now())
	tomorrow := today.Add(24 * time.Hour)
	beforeToday := today.Add(-time.Nanosecond)
	ranges := [4][2]time.Time{
		{today, tomorrow.Add(-time.Nanosecond)},
		{today.AddDate(0, 0, -1), beforeToday},
		{today.AddDate(0, 0, -7), beforeToday},
		{today.AddDate(0, 0, -30), beforeToday},
	}
	var totals [4]float64
	g, gctx := errgroup.WithContext(ctx)
	for i, r := range ranges {
		g.Go(func() error {
			t, err := s.repo.SaleTotals(gctx, r[0], r[1])
			totals[i] = t.Total
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return Growth{}, err
	}
	out := Growth{Today: totals[0], Yesterday: totals[1], LastWeek: totals[2], LastMonth: totals[3]}
	out.Percentage = GrowthPercentage{
		Daily:   growth(out.Today, out.Yesterday),
		Weekly:  growth(out.Today, out.LastWeek/7),
		Monthly: growth(out.Today, out.LastMonth/30),
	}
	return out, nil
}

func growth(current, base float64) float64 {
	if base <= 0 {
		return 0
	}
	return math.Round((current-base)/base*100*100) / 100
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
