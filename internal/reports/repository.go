package reports

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/comanda-pos/comanda/internal/cashregister"
	"github.com/comanda-pos/comanda/internal/expenses"
	"github.com/comanda-pos/comanda/internal/inventory"
	"github.com/comanda-pos/comanda/internal/sales"
	"github.com/comanda-pos/comanda/internal/workers"
)

type (
	salesStore     = sales.Store
	inventoryStore = inventory.Store
	workerStore    = workers.Store
	expenseStore   = expenses.Store
	registerStore  = cashregister.Store
)

// Repository reads report inputs from the stores of every module.
type Repository struct {
	*salesStore
	*inventoryStore
	*workerStore
	*expenseStore
	*registerStore
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{
		salesStore:     sales.NewStore(pool),
		inventoryStore: inventory.NewStore(pool),
		workerStore:    workers.NewStore(pool),
		expenseStore:   expenses.NewStore(pool),
		registerStore:  cashregister.NewStore(pool),
	}
}
