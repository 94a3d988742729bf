package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/comanda-pos/comanda/internal/platform/db"
)

// Store reads and writes products through any pool or transaction.
type Store struct {
	q db.Querier
}

// NewStore binds a Store to a pool or pgx.Tx.
func NewStore(q db.Querier) *Store {
	return &Store{q: q}
}

// Repository persists products in PostgreSQL. Product writes are single
// statements so no transaction wrapper is needed.
type Repository struct {
	*Store
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{Store: NewStore(pool)}
}

const productColumns = `id, name, description, price, cost, category, created_at, updated_at`

// GetProduct loads a product by id.
func (s *Store) GetProduct(ctx context.Context, id string) (Product, error) {
	row := s.q.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, ErrProductNotFound
		}
		return Product{}, err
	}
	return p, nil
}

// ListProducts returns every product ordered by name.
func (s *Store) ListProducts(ctx context.Context) ([]Product, error) {
	rows, err := s.q.Query(ctx, `SELECT `+productColumns+` FROM products ORDER BY name, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// InsertProduct stores a new product.
func (s *Store) InsertProduct(ctx context.Context, p Product) error {
	_, err := s.q.Exec(ctx, `INSERT INTO products (`+productColumns+`)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		p.ID, p.Name, p.Description, p.Price, p.Cost, p.Category, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

// UpdateProduct overwrites the mutable product fields.
func (s *Store) UpdateProduct(ctx context.Context, p Product) error {
	tag, err := s.q.Exec(ctx, `UPDATE products
SET name = $2, description = $3, price = $4, cost = $5, category = $6, updated_at = $7
WHERE id = $1`, p.ID, p.Name, p.Description, p.Price, p.Cost, p.Category, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Cost, &p.Category, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}
