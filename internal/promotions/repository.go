package promotions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/comanda-pos/comanda/internal/platform/db"
)

// Store reads and writes promotions through any pool or transaction.
type Store struct {
	q db.Querier
}

// NewStore binds a Store to a pool or pgx.Tx.
func NewStore(q db.Querier) *Store {
	return &Store{q: q}
}

// Repository persists promotions in PostgreSQL.
type Repository struct {
	*Store
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{Store: NewStore(pool)}
}

const promotionColumns = `id, name, description, products, discount_type, discount_value, buy_quantity, get_quantity,
	package_price, start_date, end_date, active, created_at, updated_at`

// GetPromotion loads a promotion by id.
func (s *Store) GetPromotion(ctx context.Context, id string) (Promotion, error) {
	p, err := scanPromotion(s.q.QueryRow(ctx, `SELECT `+promotionColumns+` FROM promotions WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Promotion{}, ErrPromotionNotFound
		}
		return Promotion{}, err
	}
	return p, nil
}

// ListPromotions returns promotions, newest first. A non-zero activeAt keeps
// only promotions active at that instant.
func (s *Store) ListPromotions(ctx context.Context, activeAt time.Time) ([]Promotion, error) {
	sql := `SELECT ` + promotionColumns + ` FROM promotions`
	var args []any
	if !activeAt.IsZero() {
		sql += ` WHERE active AND start_date <= $1 AND end_date >= $1`
		args = append(args, activeAt)
	}
	sql += ` ORDER BY created_at DESC, id`
	rows, err := s.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Promotion
	for rows.Next() {
		p, err := scanPromotion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// InsertPromotion stores a new promotion.
func (s *Store) InsertPromotion(ctx context.Context, p Promotion) error {
	products, err := json.Marshal(p.Products)
	if err != nil {
		return err
	}
	var (
		value, packagePrice float64
		buy, get            int
	)
	switch d := p.Discount.(type) {
	case Percentage:
		value = d.Value
	case FixedAmount:
		value = d.Value
	case BuyXGetY:
		buy, get = d.Buy, d.Get
	case PackagePrice:
		packagePrice = d.Price
	}
	_, err = s.q.Exec(ctx, `INSERT INTO promotions (`+promotionColumns+`)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		p.ID, p.Name, p.Description, products, string(p.Discount.Type()), value, buy, get,
		packagePrice, p.StartDate, p.EndDate, p.Active, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert promotion: %w", err)
	}
	return nil
}

// SetPromotionActive flips the active flag.
func (s *Store) SetPromotionActive(ctx context.Context, id string, active bool, at time.Time) error {
	tag, err := s.q.Exec(ctx, `UPDATE promotions SET active = $2, updated_at = $3 WHERE id = $1`, id, active, at)
	if err != nil {
		return fmt.Errorf("update promotion: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPromotionNotFound
	}
	return nil
}

func scanPromotion(row pgx.Row) (Promotion, error) {
	var (
		p                   Promotion
		products            []byte
		typ                 string
		value, packagePrice float64
		buy, get            int
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &products, &typ, &value, &buy, &get,
		&packagePrice, &p.StartDate, &p.EndDate, &p.Active, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return Promotion{}, err
	}
	if len(products) > 0 {
		if err := json.Unmarshal(products, &p.Products); err != nil {
			return Promotion{}, fmt.Errorf("decode promotion products: %w", err)
		}
	}
	discount, err := NewDiscount(DiscountType(typ), value, buy, get, packagePrice)
	if err != nil {
		return Promotion{}, err
	}
	p.Discount = discount
	return p, nil
}
