package inventory

import (
	"context"
	"time"

	"github.com/comanda-pos/comanda/internal/catalog"
)

// ProductSource resolves catalog products.
type ProductSource interface {
	GetProduct(ctx context.Context, id string) (catalog.Product, error)
	ListProducts(ctx context.Context) ([]catalog.Product, error)
}

// Reader exposes the stock and recipe reads needed to evaluate availability.
type Reader interface {
	GetIngredient(ctx context.Context, id string) (Ingredient, error)
	ListRecipe(ctx context.Context, productID string) ([]RecipeLine, error)
}

// StockWriter mutates stock and appends ledger entries. Implementations bound
// to a transaction make the consumption of a whole sale atomic.
type StockWriter interface {
	Reader
	ApplyStockDelta(ctx context.Context, id string, delta float64, at time.Time) (Ingredient, bool, error)
	InsertMovement(ctx context.Context, m Movement) error
}
