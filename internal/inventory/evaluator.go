package inventory

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/comanda-pos/comanda/internal/catalog"
)

// Evaluator computes how many units of a product current stock allows.
// Results are recomputed on every call.
type Evaluator struct {
	products ProductSource
	stock    Reader
}

// NewEvaluator binds an Evaluator to product and stock sources. Passing
// transaction-bound sources makes the evaluation see uncommitted writes of
// the same transaction.
func NewEvaluator(products ProductSource, stock Reader) *Evaluator {
	return &Evaluator{products: products, stock: stock}
}

// Evaluate reports availability for one product, or for every product when
// productID is empty. An unknown product yields an empty list.
func (e *Evaluator) Evaluate(ctx context.Context, productID string) ([]Availability, error) {
	var targets []catalog.Product
	if productID != "" {
		product, err := e.products.GetProduct(ctx, productID)
		if err != nil {
			if errors.Is(err, catalog.ErrProductNotFound) {
				return []Availability{}, nil
			}
			return nil, err
		}
		targets = []catalog.Product{product}
	} else {
		all, err := e.products.ListProducts(ctx)
		if err != nil {
			return nil, err
		}
		targets = all
	}

	out := make([]Availability, 0, len(targets))
	for _, product := range targets {
		availability, err := e.evaluateProduct(ctx, product)
		if err != nil {
			return nil, err
		}
		out = append(out, availability)
	}
	return out, nil
}

func (e *Evaluator) evaluateProduct(ctx context.Context, product catalog.Product) (Availability, error) {
	recipe, err := e.stock.ListRecipe(ctx, product.ID)
	if err != nil {
		return Availability{}, fmt.Errorf("load recipe for %s: %w", product.ID, err)
	}
	result := Availability{
		ProductID:          product.ID,
		ProductName:        product.Name,
		MissingIngredients: []string{},
	}
	if len(recipe) == 0 {
		result.Available = true
		result.MaxQuantity = UnlimitedQuantity
		return result, nil
	}

	maxQty := math.MaxInt
	for _, line := range recipe {
		ingredient, err := e.stock.GetIngredient(ctx, line.IngredientID)
		if err != nil {
			if !errors.Is(err, ErrIngredientNotFound) {
				return Availability{}, err
			}
			result.MissingIngredients = append(result.MissingIngredients, line.IngredientName)
			maxQty = 0
			continue
		}
		if ingredient.Stock < line.Quantity {
			result.MissingIngredients = append(result.MissingIngredients, ingredient.Name)
			maxQty = 0
			continue
		}
		ratio := math.Min(math.Floor(ingredient.Stock/line.Quantity), math.MaxInt32)
		if ceiling := int(ratio); ceiling < maxQty {
			maxQty = ceiling
		}
	}
	result.MaxQuantity = maxQty
	result.Available = len(result.MissingIngredients) == 0 && maxQty > 0
	return result, nil
}

// CanPrepare reports whether qty units of the product can be prepared now.
func (e *Evaluator) CanPrepare(ctx context.Context, productID string, qty int) (Verdict, error) {
	availabilities, err := e.Evaluate(ctx, productID)
	if err != nil {
		return Verdict{}, err
	}
	if len(availabilities) == 0 {
		return Verdict{Reason: "product not found"}, nil
	}
	availability := availabilities[0]
	if !availability.Available {
		return Verdict{Reason: "missing ingredients: " + strings.Join(availability.MissingIngredients, ", ")}, nil
	}
	if availability.MaxQuantity < qty {
		return Verdict{Reason: fmt.Sprintf("only %d units available", availability.MaxQuantity)}, nil
	}
	return Verdict{OK: true}, nil
}
