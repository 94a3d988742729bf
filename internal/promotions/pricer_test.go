package promotions

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/comanda-pos/comanda/internal/catalog"
)

var fixedNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func activePromo(id string, discount Discount, refs ...ProductRef) Promotion {
	return Promotion{
		ID:        id,
		Name:      "Promo " + id,
		Products:  refs,
		Discount:  discount,
		StartDate: fixedNow.Add(-24 * time.Hour),
		EndDate:   fixedNow.Add(24 * time.Hour),
		Active:    true,
	}
}

func products(ps ...catalog.Product) map[string]catalog.Product {
	out := make(map[string]catalog.Product, len(ps))
	for _, p := range ps {
		out[p.ID] = p
	}
	return out
}

func TestQuoteBuyXGetY(t *testing.T) {
	pricer := NewPricer(func() time.Time { return fixedNow })
	promo := activePromo("2x1", BuyXGetY{Buy: 2, Get: 1}, ProductRef{ProductID: "a", Quantity: 1, UnitPrice: 10})

	quote, err := pricer.Quote(
		[]LineRequest{{ProductID: "a", Quantity: 5, PromotionID: "2x1"}},
		products(catalog.Product{ID: "a", Name: "Taco", Price: 10}),
		map[string]Promotion{"2x1": promo},
	)
	require.NoError(t, err)
	require.Len(t, quote.Lines, 1)
	require.InDelta(t, 6.0, quote.Lines[0].Price, 1e-9)
	require.InDelta(t, 30.0, quote.Lines[0].Subtotal, 1e-9)
	require.InDelta(t, 30.0, quote.Total, 1e-9)
	require.Equal(t, "Taco (Promo 2x1)", quote.Lines[0].ProductName)
	require.Equal(t, "2x1", quote.Lines[0].PromotionID)
}

func TestQuotePercentageAndFixedAmount(t *testing.T) {
	pricer := NewPricer(func() time.Time { return fixedNow })
	promos := map[string]Promotion{
		"pct":   activePromo("pct", Percentage{Value: 20}, ProductRef{ProductID: "a", Quantity: 1}),
		"fixed": activePromo("fixed", FixedAmount{Value: 50}, ProductRef{ProductID: "b", Quantity: 1}),
	}
	quote, err := pricer.Quote(
		[]LineRequest{{ProductID: "a", Quantity: 1, PromotionID: "pct"}, {ProductID: "b", Quantity: 2, PromotionID: "fixed"}},
		products(catalog.Product{ID: "a", Name: "A", Price: 100}, catalog.Product{ID: "b", Name: "B", Price: 30}),
		promos,
	)
	require.NoError(t, err)
	require.InDelta(t, 80.0, quote.Lines[0].Price, 1e-9)
	require.InDelta(t, 0.0, quote.Lines[1].Price, 1e-9)
	require.InDelta(t, 80.0, quote.Total, 1e-9)
}

func TestQuotePackageSplitsProportionally(t *testing.T) {
	pricer := NewPricer(func() time.Time { return fixedNow })
	pkg := activePromo("combo", PackagePrice{Price: 20},
		ProductRef{ProductID: "a", Quantity: 2, UnitPrice: 10},
		ProductRef{ProductID: "b", Quantity: 1, UnitPrice: 5},
	)
	quote, err := pricer.Quote(
		[]LineRequest{{ProductID: "a", Quantity: 2, PromotionID: "combo"}, {ProductID: "b", Quantity: 1}, {ProductID: "c", Quantity: 1}},
		products(
			catalog.Product{ID: "a", Name: "A", Price: 10},
			catalog.Product{ID: "b", Name: "B", Price: 5},
			catalog.Product{ID: "c", Name: "C", Price: 3},
		),
		map[string]Promotion{"combo": pkg},
	)
	require.NoError(t, err)
	require.Equal(t, "combo", quote.PackageID)
	require.Len(t, quote.Lines, 3)
	require.InDelta(t, 8.0, quote.Lines[0].Price, 1e-9)
	require.InDelta(t, 16.0, quote.Lines[0].Subtotal, 1e-9)
	require.InDelta(t, 4.0, quote.Lines[1].Price, 1e-9)
	require.Equal(t, "B (Promo combo)", quote.Lines[1].ProductName)
	require.Equal(t, "C", quote.Lines[2].ProductName)
	require.InDelta(t, 23.0, quote.Total, 1e-9)
}

func TestQuotePackageBillsSurplusAtRegularPrice(t *testing.T) {
	pricer := NewPricer(func() time.Time { return fixedNow })
	pkg := activePromo("combo", PackagePrice{Price: 20},
		ProductRef{ProductID: "a", Quantity: 2, UnitPrice: 10},
		ProductRef{ProductID: "b", Quantity: 1, UnitPrice: 5},
	)
	quote, err := pricer.Quote(
		[]LineRequest{{ProductID: "a", Quantity: 3, PromotionID: "combo"}, {ProductID: "b", Quantity: 1}},
		products(catalog.Product{ID: "a", Name: "A", Price: 10}, catalog.Product{ID: "b", Name: "B", Price: 5}),
		map[string]Promotion{"combo": pkg},
	)
	require.NoError(t, err)
	require.Len(t, quote.Lines, 3)
	require.Equal(t, 1, quote.Lines[2].Quantity)
	require.InDelta(t, 10.0, quote.Lines[2].Price, 1e-9)
	require.InDelta(t, 30.0, quote.Total, 1e-9)
	require.Equal(t, []Requirement{{ProductID: "a", Quantity: 3}, {ProductID: "b", Quantity: 1}}, quote.Requirements)
}

func TestQuoteSkipsInactivePackage(t *testing.T) {
	pricer := NewPricer(func() time.Time { return fixedNow })
	pkg := activePromo("combo", PackagePrice{Price: 20},
		ProductRef{ProductID: "a", Quantity: 1, UnitPrice: 10},
		ProductRef{ProductID: "b", Quantity: 1, UnitPrice: 15},
	)
	pkg.Active = false
	quote, err := pricer.Quote(
		[]LineRequest{{ProductID: "a", Quantity: 1, PromotionID: "combo"}, {ProductID: "b", Quantity: 1}},
		products(catalog.Product{ID: "a", Name: "A", Price: 10}, catalog.Product{ID: "b", Name: "B", Price: 15}),
		map[string]Promotion{"combo": pkg},
	)
	require.NoError(t, err)
	require.Empty(t, quote.PackageID)
	require.InDelta(t, 25.0, quote.Total, 1e-9)
}

func TestQuotePartialPackagePricesProportionally(t *testing.T) {
	pricer := NewPricer(func() time.Time { return fixedNow })
	pkg := activePromo("combo", PackagePrice{Price: 20},
		ProductRef{ProductID: "a", Quantity: 2, UnitPrice: 10},
		ProductRef{ProductID: "b", Quantity: 1, UnitPrice: 5},
	)
	quote, err := pricer.Quote(
		[]LineRequest{{ProductID: "a", Quantity: 1, PromotionID: "combo"}},
		products(catalog.Product{ID: "a", Name: "A", Price: 10}),
		map[string]Promotion{"combo": pkg},
	)
	require.NoError(t, err)
	require.Empty(t, quote.PackageID)
	require.InDelta(t, 8.0, quote.Lines[0].Price, 1e-9)
	require.InDelta(t, 8.0, quote.Total, 1e-9)
}

func TestQuoteIgnoresInvalidPromotions(t *testing.T) {
	pricer := NewPricer(func() time.Time { return fixedNow })
	expired := activePromo("old", Percentage{Value: 50}, ProductRef{ProductID: "a"})
	expired.EndDate = fixedNow.Add(-time.Hour)
	inactive := activePromo("off", Percentage{Value: 50}, ProductRef{ProductID: "a"})
	inactive.Active = false
	other := activePromo("other", Percentage{Value: 50}, ProductRef{ProductID: "z"})

	quote, err := pricer.Quote(
		[]LineRequest{
			{ProductID: "a", Quantity: 1, PromotionID: "old"},
			{ProductID: "a", Quantity: 1, PromotionID: "off"},
			{ProductID: "a", Quantity: 1, PromotionID: "other"},
			{ProductID: "a", Quantity: 1, PromotionID: "missing"},
		},
		products(catalog.Product{ID: "a", Name: "A", Price: 10}),
		map[string]Promotion{"old": expired, "off": inactive, "other": other},
	)
	require.NoError(t, err)
	for _, line := range quote.Lines {
		require.InDelta(t, 10.0, line.Price, 1e-9)
		require.Equal(t, "A", line.ProductName)
		require.Empty(t, line.PromotionID)
	}
	require.InDelta(t, 40.0, quote.Total, 1e-9)
}

func TestQuoteRejectsBadInput(t *testing.T) {
	pricer := NewPricer(nil)
	_, err := pricer.Quote([]LineRequest{{ProductID: "a", Quantity: 0}}, products(catalog.Product{ID: "a", Price: 1}), nil)
	require.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = pricer.Quote([]LineRequest{{ProductID: "x", Quantity: 1}}, products(), nil)
	require.ErrorIs(t, err, catalog.ErrProductNotFound)
}
