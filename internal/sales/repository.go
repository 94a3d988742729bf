package sales

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/comanda-pos/comanda/internal/cashregister"
	"github.com/comanda-pos/comanda/internal/catalog"
	"github.com/comanda-pos/comanda/internal/inventory"
	"github.com/comanda-pos/comanda/internal/platform/db"
	"github.com/comanda-pos/comanda/internal/promotions"
	"github.com/comanda-pos/comanda/internal/workers"
)

// Store reads and writes sales through any pool or transaction.
type Store struct {
	q db.Querier
}

// NewStore binds a Store to a pool or pgx.Tx.
func NewStore(q db.Querier) *Store {
	return &Store{q: q}
}

// TxRepository is the unit of work of a sale. Every store it reaches shares
// one transaction, so a failed step leaves no trace.
type TxRepository interface {
	inventory.ProductSource
	inventory.StockWriter
	workers.AssignStore
	GetPromotion(ctx context.Context, id string) (promotions.Promotion, error)
	OpenRegisterForUpdate(ctx context.Context) (cashregister.Register, error)
	AddSale(ctx context.Context, registerID string, amount float64) (cashregister.Register, error)
	InsertSale(ctx context.Context, sale Sale) error
}

type (
	catalogStore   = catalog.Store
	inventoryStore = inventory.Store
	promotionStore = promotions.Store
	workerStore    = workers.Store
	registerStore  = cashregister.Store
)

type txStore struct {
	*Store
	*catalogStore
	*inventoryStore
	*promotionStore
	*workerStore
	*registerStore
}

// Repository persists sales in PostgreSQL.
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
			Store:          NewStore(tx),
			catalogStore:   catalog.NewStore(tx),
			inventoryStore: inventory.NewStore(tx),
			promotionStore: promotions.NewStore(tx),
			workerStore:    workers.NewStore(tx),
			registerStore:  cashregister.NewStore(tx),
		})
	})
}

const saleColumns = `id, date, total, payment_method, COALESCE(cook_id, ''), cook_name, COALESCE(delivery_id, ''),
	delivery_name, user_id, notes, cash_register_id`

// InsertSale stores the ticket and its items.
func (s *Store) InsertSale(ctx context.Context, sale Sale) error {
	_, err := s.q.Exec(ctx, `INSERT INTO sales
(id, date, total, payment_method, cook_id, cook_name, delivery_id, delivery_name, user_id, notes, cash_register_id)
VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, NULLIF($7, ''), $8, $9, $10, $11)`,
		sale.ID, sale.Date, sale.Total, string(sale.PaymentMethod), sale.CookID, sale.CookName,
		sale.DeliveryID, sale.DeliveryName, sale.UserID, sale.Notes, sale.CashRegisterID)
	if err != nil {
		return fmt.Errorf("insert sale: %w", err)
	}
	for i, item := range sale.Items {
		_, err := s.q.Exec(ctx, `INSERT INTO sale_items
(sale_id, position, product_id, product_name, quantity, price, subtotal, promotion_id)
VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''))`,
			sale.ID, i+1, item.ProductID, item.ProductName, item.Quantity, item.Price, item.Subtotal, item.PromotionID)
		if err != nil {
			return fmt.Errorf("insert sale item: %w", err)
		}
	}
	return nil
}

// GetSale loads a sale with its items.
func (s *Store) GetSale(ctx context.Context, id string) (Sale, error) {
	sale, err := scanSale(s.q.QueryRow(ctx, `SELECT `+saleColumns+` FROM sales WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Sale{}, ErrSaleNotFound
		}
		return Sale{}, err
	}
	items, err := s.loadItems(ctx, []string{sale.ID})
	if err != nil {
		return Sale{}, err
	}
	sale.Items = items[sale.ID]
	return sale, nil
}

// ListSales returns sales dated within the filter, newest first.
func (s *Store) ListSales(ctx context.Context, filter ListFilter) ([]Sale, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 200
	}
	rows, err := s.q.Query(ctx, `SELECT `+saleColumns+` FROM sales
WHERE date >= $1 AND date <= $2 ORDER BY date DESC, id LIMIT $3`, filter.From, filter.To, limit)
	if err != nil {
		return nil, err
	}
	var (
		out []Sale
		ids []string
	)
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, sale)
		ids = append(ids, sale.ID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return out, nil
	}
	items, err := s.loadItems(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Items = items[out[i].ID]
	}
	return out, nil
}

func (s *Store) loadItems(ctx context.Context, saleIDs []string) (map[string][]Item, error) {
	rows, err := s.q.Query(ctx, `SELECT sale_id, product_id, product_name, quantity, price, subtotal, COALESCE(promotion_id, '')
FROM sale_items WHERE sale_id = ANY($1) ORDER BY sale_id, position`, saleIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string][]Item, len(saleIDs))
	for rows.Next() {
		var (
			saleID string
			item   Item
		)
		if err := rows.Scan(&saleID, &item.ProductID, &item.ProductName, &item.Quantity, &item.Price, &item.Subtotal,
			&item.PromotionID); err != nil {
			return nil, err
		}
		out[saleID] = append(out[saleID], item)
	}
	return out, rows.Err()
}

// SaleTotals counts and sums sales dated within [from, to].
func (s *Store) SaleTotals(ctx context.Context, from, to time.Time) (Totals, error) {
	var t Totals
	err := s.q.QueryRow(ctx, `SELECT COUNT(*), COALESCE(SUM(total), 0) FROM sales WHERE date >= $1 AND date <= $2`,
		from, to).Scan(&t.Count, &t.Total)
	return t, err
}

// ProductCost values the items sold within [from, to] at current product cost.
func (s *Store) ProductCost(ctx context.Context, from, to time.Time) (float64, error) {
	var total float64
	err := s.q.QueryRow(ctx, `SELECT COALESCE(SUM(i.quantity * p.cost), 0)
FROM sale_items i
JOIN sales s ON s.id = i.sale_id
JOIN products p ON p.id = i.product_id
WHERE s.date >= $1 AND s.date <= $2`, from, to).Scan(&total)
	return total, err
}

func scanSale(row pgx.Row) (Sale, error) {
	var (
		sale   Sale
		method string
	)
	err := row.Scan(&sale.ID, &sale.Date, &sale.Total, &method, &sale.CookID, &sale.CookName, &sale.DeliveryID,
		&sale.DeliveryName, &sale.UserID, &sale.Notes, &sale.CashRegisterID)
	sale.PaymentMethod = PaymentMethod(method)
	return sale, err
}
