package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/comanda-pos/comanda/internal/platform/db"
)

// Store reads and writes ingredients, recipes and movements through any pool
// or transaction.
type Store struct {
	q db.Querier
}

// NewStore binds a Store to a pool or pgx.Tx.
func NewStore(q db.Querier) *Store {
	return &Store{q: q}
}

// Repository persists inventory data in PostgreSQL.
type Repository struct {
	*Store
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{Store: NewStore(pool), pool: pool}
}

// TxRepository exposes transactional operations used by service.
type TxRepository interface {
	StockWriter
}

// WithTx executes the callback inside repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, NewStore(tx))
	})
}

const ingredientColumns = `id, name, description, unit, stock, min_stock, cost, created_at, updated_at`

// GetIngredient loads an ingredient by id.
func (s *Store) GetIngredient(ctx context.Context, id string) (Ingredient, error) {
	ing, err := scanIngredient(s.q.QueryRow(ctx, `SELECT `+ingredientColumns+` FROM ingredients WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Ingredient{}, ErrIngredientNotFound
		}
		return Ingredient{}, err
	}
	return ing, nil
}

// ListIngredients returns every ingredient ordered by name.
func (s *Store) ListIngredients(ctx context.Context) ([]Ingredient, error) {
	return s.queryIngredients(ctx, `SELECT `+ingredientColumns+` FROM ingredients ORDER BY name, id`)
}

// ListLowStock returns ingredients at or below their reorder threshold.
func (s *Store) ListLowStock(ctx context.Context) ([]Ingredient, error) {
	return s.queryIngredients(ctx, `SELECT `+ingredientColumns+` FROM ingredients WHERE stock <= min_stock ORDER BY name, id`)
}

func (s *Store) queryIngredients(ctx context.Context, sql string, args ...any) ([]Ingredient, error) {
	rows, err := s.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Ingredient
	for rows.Next() {
		ing, err := scanIngredient(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ing)
	}
	return out, rows.Err()
}

// InsertIngredient stores a new ingredient.
func (s *Store) InsertIngredient(ctx context.Context, ing Ingredient) error {
	_, err := s.q.Exec(ctx, `INSERT INTO ingredients (`+ingredientColumns+`)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		ing.ID, ing.Name, ing.Description, ing.Unit, ing.Stock, ing.MinStock, ing.Cost, ing.CreatedAt, ing.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert ingredient: %w", err)
	}
	return nil
}

// UpdateIngredientMeta overwrites metadata and leaves stock untouched.
func (s *Store) UpdateIngredientMeta(ctx context.Context, ing Ingredient) error {
	tag, err := s.q.Exec(ctx, `UPDATE ingredients
SET name = $2, description = $3, unit = $4, min_stock = $5, cost = $6, updated_at = $7
WHERE id = $1`, ing.ID, ing.Name, ing.Description, ing.Unit, ing.MinStock, ing.Cost, ing.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update ingredient: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrIngredientNotFound
	}
	return nil
}

// ApplyStockDelta adds delta to stock only when the result stays
// non-negative. The condition and the write are one statement, so concurrent
// consumers cannot both pass the check. applied is false when the guard
// rejected the change.
func (s *Store) ApplyStockDelta(ctx context.Context, id string, delta float64, at time.Time) (Ingredient, bool, error) {
	ing, err := scanIngredient(s.q.QueryRow(ctx, `UPDATE ingredients
SET stock = stock + $2, updated_at = $3
WHERE id = $1 AND stock + $2 >= 0
RETURNING `+ingredientColumns, id, delta, at))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Ingredient{}, false, nil
		}
		return Ingredient{}, false, fmt.Errorf("apply stock delta: %w", err)
	}
	return ing, true, nil
}

const recipeColumns = `id, product_id, ingredient_id, ingredient_name, unit, quantity, created_at, updated_at`

// ListRecipe returns the recipe lines of a product in link order.
func (s *Store) ListRecipe(ctx context.Context, productID string) ([]RecipeLine, error) {
	rows, err := s.q.Query(ctx, `SELECT `+recipeColumns+` FROM product_ingredients WHERE product_id = $1 ORDER BY created_at, id`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []RecipeLine
	for rows.Next() {
		var l RecipeLine
		if err := rows.Scan(&l.ID, &l.ProductID, &l.IngredientID, &l.IngredientName, &l.Unit, &l.Quantity, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// InsertRecipeLine links an ingredient to a product.
func (s *Store) InsertRecipeLine(ctx context.Context, l RecipeLine) error {
	_, err := s.q.Exec(ctx, `INSERT INTO product_ingredients (`+recipeColumns+`)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		l.ID, l.ProductID, l.IngredientID, l.IngredientName, l.Unit, l.Quantity, l.CreatedAt, l.UpdatedAt)
	if err != nil {
		if db.IsUniqueViolation(err, "product_ingredients_product_ingredient_key") {
			return ErrDuplicateRecipeLine
		}
		return fmt.Errorf("insert recipe line: %w", err)
	}
	return nil
}

// DeleteRecipeLine unlinks an ingredient from a product.
func (s *Store) DeleteRecipeLine(ctx context.Context, productID, ingredientID string) error {
	tag, err := s.q.Exec(ctx, `DELETE FROM product_ingredients WHERE product_id = $1 AND ingredient_id = $2`, productID, ingredientID)
	if err != nil {
		return fmt.Errorf("delete recipe line: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRecipeLineNotFound
	}
	return nil
}

const movementColumns = `id, ingredient_id, ingredient_name, movement_type, quantity, balance_after, reason,
	COALESCE(related_sale_id, ''), COALESCE(related_expense_id, ''), user_id, moved_at`

// InsertMovement appends a ledger entry.
func (s *Store) InsertMovement(ctx context.Context, m Movement) error {
	_, err := s.q.Exec(ctx, `INSERT INTO ingredient_movements
(id, ingredient_id, ingredient_name, movement_type, quantity, balance_after, reason, related_sale_id, related_expense_id, user_id, moved_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), NULLIF($9, ''), $10, $11)`,
		m.ID, m.IngredientID, m.IngredientName, string(m.Type), m.Quantity, m.BalanceAfter, m.Reason,
		m.RelatedSaleID, m.RelatedExpenseID, m.UserID, m.Date)
	if err != nil {
		return fmt.Errorf("insert movement: %w", err)
	}
	return nil
}

// ListMovements returns ledger entries, newest first.
func (s *Store) ListMovements(ctx context.Context, filter MovementFilter) ([]Movement, error) {
	var (
		conditions []string
		args       []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conditions = append(conditions, fmt.Sprintf(cond, len(args)))
	}
	if filter.IngredientID != "" {
		add("ingredient_id = $%d", filter.IngredientID)
	}
	if filter.SaleID != "" {
		add("related_sale_id = $%d", filter.SaleID)
	}
	if !filter.From.IsZero() {
		add("moved_at >= $%d", filter.From)
	}
	if !filter.To.IsZero() {
		add("moved_at <= $%d", filter.To)
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 200
	}
	sql := `SELECT ` + movementColumns + ` FROM ingredient_movements`
	if len(conditions) > 0 {
		sql += ` WHERE ` + strings.Join(conditions, " AND ")
	}
	args = append(args, limit)
	sql += fmt.Sprintf(` ORDER BY moved_at DESC, id LIMIT $%d`, len(args))

	rows, err := s.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Movement
	for rows.Next() {
		var (
			m   Movement
			typ string
		)
		if err := rows.Scan(&m.ID, &m.IngredientID, &m.IngredientName, &typ, &m.Quantity, &m.BalanceAfter, &m.Reason,
			&m.RelatedSaleID, &m.RelatedExpenseID, &m.UserID, &m.Date); err != nil {
			return nil, err
		}
		m.Type = MovementType(typ)
		out = append(out, m)
	}
	return out, rows.Err()
}

// ConsumptionCost values the OUT movements tied to sales within the range at
// the current ingredient cost.
func (s *Store) ConsumptionCost(ctx context.Context, from, to time.Time) (float64, error) {
	var total float64
	err := s.q.QueryRow(ctx, `SELECT COALESCE(SUM(m.quantity * i.cost), 0)
FROM ingredient_movements m
JOIN ingredients i ON i.id = m.ingredient_id
WHERE m.movement_type = 'OUT' AND m.related_sale_id IS NOT NULL
  AND m.moved_at >= $1 AND m.moved_at <= $2`, from, to).Scan(&total)
	return total, err
}

func scanIngredient(row pgx.Row) (Ingredient, error) {
	var ing Ingredient
	err := row.Scan(&ing.ID, &ing.Name, &ing.Description, &ing.Unit, &ing.Stock, &ing.MinStock, &ing.Cost, &ing.CreatedAt, &ing.UpdatedAt)
	return ing, err
}
