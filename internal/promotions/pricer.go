package promotions

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/comanda-pos/comanda/internal/catalog"
)

// LineRequest is one requested sale line.
type LineRequest struct {
	ProductID   string
	Quantity    int
	PromotionID string
}

// Line is a priced sale line.
type Line struct {
	ProductID   string
	ProductName string
	Quantity    int
	Price       float64
	Subtotal    float64
	PromotionID string
}

// Requirement is the total quantity of a product the sale must prepare.
type Requirement struct {
	ProductID string
	Quantity  int
}

// Quote is the priced form of a sale.
type Quote struct {
	Lines        []Line
	Total        float64
	PackageID    string
	Requirements []Requirement
}

// Pricer prices sale lines against promotions. It holds no state besides
// the clock and never fails because of a promotion: an unknown, inactive or
// unrelated promotion leaves the line at its regular price.
type Pricer struct {
	now func() time.Time
}

// NewPricer constructs a Pricer. A nil clock uses the wall clock.
func NewPricer(now func() time.Time) *Pricer {
	if now == nil {
		now = time.Now
	}
	return &Pricer{now: now}
}

// Quote prices requests using pre-resolved products and promotions. Every
// product referenced by a request must be present in products.
func (p *Pricer) Quote(requests []LineRequest, products map[string]catalog.Product, promos map[string]Promotion) (Quote, error) {
	requested := make(map[string]int, len(requests))
	var quote Quote
	for _, req := range requests {
		if req.Quantity <= 0 {
			return Quote{}, fmt.Errorf("%w: product %s", ErrInvalidQuantity, req.ProductID)
		}
		if _, ok := products[req.ProductID]; !ok {
			return Quote{}, fmt.Errorf("%w: %s", catalog.ErrProductNotFound, req.ProductID)
		}
		if _, seen := requested[req.ProductID]; !seen {
			quote.Requirements = append(quote.Requirements, Requirement{ProductID: req.ProductID})
		}
		requested[req.ProductID] += req.Quantity
	}
	for i := range quote.Requirements {
		quote.Requirements[i].Quantity = requested[quote.Requirements[i].ProductID]
	}

	now := p.now()
	if pkg, ok := findPackage(requests, requested, promos, now); ok {
		quote.Lines, quote.Total = priceWithPackage(requests, requested, products, pkg)
		quote.PackageID = pkg.ID
		return quote, nil
	}

	total := decimal.Zero
	for _, req := range requests {
		product := products[req.ProductID]
		line := Line{ProductID: product.ID, ProductName: product.Name, Quantity: req.Quantity, Price: product.Price}
		if promo, ok := promos[req.PromotionID]; ok && req.PromotionID != "" {
			if price, applied := discountedPrice(product, req.Quantity, promo, now); applied {
				line.Price = price
				line.ProductName = annotate(product.Name, promo.Name)
				line.PromotionID = promo.ID
			}
		}
		subtotal := decimal.NewFromFloat(line.Price).Mul(decimal.NewFromInt(int64(line.Quantity)))
		line.Subtotal = subtotal.InexactFloat64()
		total = total.Add(subtotal)
		quote.Lines = append(quote.Lines, line)
	}
	quote.Total = total.InexactFloat64()
	return quote, nil
}

// findPackage returns the first referenced, currently active package
// promotion whose every product is requested in at least the package
// quantity.
func findPackage(requests []LineRequest, requested map[string]int, promos map[string]Promotion, now time.Time) (Promotion, bool) {
	checked := make(map[string]bool)
	for _, req := range requests {
		if req.PromotionID == "" || checked[req.PromotionID] {
			continue
		}
		checked[req.PromotionID] = true
		promo, ok := promos[req.PromotionID]
		// Deactivated or out-of-window packages never match, even when every
		// product is present.
		if !ok || len(promo.Products) == 0 || !promo.ActiveAt(now) {
			continue
		}
		if _, isPackage := promo.Package(); !isPackage {
			continue
		}
		satisfied := true
		for _, ref := range promo.Products {
			if requested[ref.ProductID] < packageQuantity(ref) {
				satisfied = false
				break
			}
		}
		if satisfied {
			return promo, true
		}
	}
	return Promotion{}, false
}

// priceWithPackage emits the package lines first, then the remaining lines
// at regular price. Units of a package product requested beyond the package
// quantity are billed as one extra regular-price line.
func priceWithPackage(requests []LineRequest, requested map[string]int, products map[string]catalog.Product, pkg Promotion) ([]Line, float64) {
	price, _ := pkg.Package()
	shares := splitPackage(pkg.Products, price.Price)

	inPackage := make(map[string]int, len(pkg.Products))
	lines := make([]Line, 0, len(requests)+len(pkg.Products))
	for i, ref := range pkg.Products {
		product := products[ref.ProductID]
		qty := packageQuantity(ref)
		inPackage[ref.ProductID] += qty
		lines = append(lines, Line{
			ProductID:   product.ID,
			ProductName: annotate(product.Name, pkg.Name),
			Quantity:    qty,
			Price:       shares[i].Div(decimal.NewFromInt(int64(qty))).InexactFloat64(),
			Subtotal:    shares[i].InexactFloat64(),
			PromotionID: pkg.ID,
		})
	}

	total := decimal.NewFromFloat(price.Price)
	surplusDone := make(map[string]bool)
	for _, req := range requests {
		product := products[req.ProductID]
		qty := req.Quantity
		if packaged, ok := inPackage[req.ProductID]; ok {
			if surplusDone[req.ProductID] {
				continue
			}
			surplusDone[req.ProductID] = true
			qty = requested[req.ProductID] - packaged
			if qty <= 0 {
				continue
			}
		}
		subtotal := decimal.NewFromFloat(product.Price).Mul(decimal.NewFromInt(int64(qty)))
		lines = append(lines, Line{
			ProductID:   product.ID,
			ProductName: product.Name,
			Quantity:    qty,
			Price:       product.Price,
			Subtotal:    subtotal.InexactFloat64(),
		})
		total = total.Add(subtotal)
	}
	return lines, total.InexactFloat64()
}

// splitPackage distributes price across refs proportionally to each ref's
// regular value, unitPrice * quantity. The returned amounts are per ref, not
// per unit.
func splitPackage(refs []ProductRef, price float64) []decimal.Decimal {
	pkgPrice := decimal.NewFromFloat(price)
	values := make([]decimal.Decimal, len(refs))
	sum := decimal.Zero
	units := 0
	for i, ref := range refs {
		values[i] = decimal.NewFromFloat(ref.UnitPrice).Mul(decimal.NewFromInt(int64(packageQuantity(ref))))
		sum = sum.Add(values[i])
		units += packageQuantity(ref)
	}
	out := make([]decimal.Decimal, len(refs))
	for i, ref := range refs {
		if sum.IsZero() {
			out[i] = pkgPrice.Mul(decimal.NewFromInt(int64(packageQuantity(ref)))).Div(decimal.NewFromInt(int64(units)))
			continue
		}
		out[i] = pkgPrice.Mul(values[i]).Div(sum)
	}
	return out
}

// discountedPrice applies promo to one line. applied is false when the
// promotion is inactive, outside its window, does not cover the product or
// is misconfigured.
func discountedPrice(product catalog.Product, qty int, promo Promotion, now time.Time) (float64, bool) {
	if !promo.ActiveAt(now) {
		return 0, false
	}
	if _, covered := promo.Product(product.ID); !covered {
		return 0, false
	}
	switch d := promo.Discount.(type) {
	case PackagePrice:
		shares := splitPackage(promo.Products, d.Price)
		for i, ref := range promo.Products {
			if ref.ProductID == product.ID {
				return shares[i].Div(decimal.NewFromInt(int64(packageQuantity(ref)))).InexactFloat64(), true
			}
		}
		return 0, false
	case Percentage:
		price := decimal.NewFromFloat(product.Price).Mul(decimal.NewFromInt(1).Sub(decimal.NewFromFloat(d.Value).Div(decimal.NewFromInt(100))))
		return math.Max(0, price.InexactFloat64()), true
	case FixedAmount:
		return math.Max(0, product.Price-d.Value), true
	case BuyXGetY:
		if d.Buy <= 0 || d.Get <= 0 {
			return 0, false
		}
		sets := qty / d.Buy
		chargeable := qty - sets*d.Get
		if chargeable < 0 {
			chargeable = 0
		}
		return product.Price * float64(chargeable) / float64(qty), true
	default:
		return 0, false
	}
}

func packageQuantity(ref ProductRef) int {
	if ref.Quantity <= 0 {
		return 1
	}
	return ref.Quantity
}

func annotate(name, promotion string) string {
	return name + " (" + promotion + ")"
}
