package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/comanda-pos/comanda/internal/platform/db"
)

// Store reads audit_logs through any Querier.
type Store struct {
	q db.Querier
}

// NewStore builds a Store.
func NewStore(q db.Querier) *Store {
	return &Store{q: q}
}

// NewRepository builds a Store over the pool.
func NewRepository(pool *pgxpool.Pool) *Store {
	return NewStore(pool)
}

const timelineQuery = `SELECT occurred_at, actor_id, action, entity, entity_id, meta
FROM audit_logs
WHERE ($1::timestamptz IS NULL OR occurred_at >= $1)
  AND ($2::timestamptz IS NULL OR occurred_at <= $2)
  AND ($3::text IS NULL OR actor_id = $3)
  AND ($4::text IS NULL OR entity = $4)
  AND ($5::text IS NULL OR action = $5)
ORDER BY occurred_at DESC, id DESC`

// TimelineWindow returns one window of entries, newest first.
func (s *Store) TimelineWindow(ctx context.Context, arg WindowParams) ([]TimelineRow, error) {
	return s.query(ctx, timelineQuery+` OFFSET $6 LIMIT $7`, append(queryArgs(arg.Query), arg.Offset, arg.Limit)...)
}

// TimelineAll returns every matching entry, newest first.
func (s *Store) TimelineAll(ctx context.Context, q Query) ([]TimelineRow, error) {
	return s.query(ctx, timelineQuery, queryArgs(q)...)
}

func (s *Store) query(ctx context.Context, sql string, args ...any) ([]TimelineRow, error) {
	rows, err := s.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []TimelineRow
	for rows.Next() {
		var (
			row  TimelineRow
			meta []byte
		)
		if err := rows.Scan(&row.At, &row.Actor, &row.Action, &row.Entity, &row.EntityID, &meta); err != nil {
			return nil, err
		}
		if len(meta) > 0 {
			_ = json.Unmarshal(meta, &row.Meta)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func queryArgs(q Query) []any {
	return []any{toPgTime(q.From), toPgTime(q.To), optionalText(q.Actor), optionalText(q.Entity), optionalText(q.Action)}
}

func toPgTime(t time.Time) pgtype.Timestamptz {
	if t.IsZero() {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: t, Valid: true}
}

func optionalText(value string) pgtype.Text {
	if value == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: value, Valid: true}
}
