package audit

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/ledgerly/ledgerly/internal/platform/db"
)

// Window selects a page of the timeline. Limit <= 0 means all rows.
type Window struct {
	Filters TimelineFilters
	Offset  int
	Limit   int
}

// Repository reads audit_logs.
type Repository interface {
	Timeline(ctx context.Context, w Window) ([]TimelineRow, error)
}

type sqlRepository struct {
	q db.Querier
}

// NewRepository returns the SQL-backed audit reader.
func NewRepository(q db.Querier) Repository {
	return &sqlRepository{q: q}
}

func (r *sqlRepository) Timeline(ctx context.Context, w Window) ([]TimelineRow, error) {
	var (
		where []string
		args  []any
	)
	f := w.Filters
	if !f.From.IsZero() {
		where = append(where, "occurred_at >= ?")
		args = append(args, f.From.UTC())
	}
	if !f.To.IsZero() {
		where = append(where, "occurred_at < ?")
		args = append(args, f.To.UTC())
	}
	for column, value := range map[string]string{"actor_id": f.Actor, "entity": f.Entity, "entity_id": f.EntityID, "action": f.Action} {
		if value = strings.TrimSpace(value); value != "" {
			where = append(where, column+" = ?")
			args = append(args, value)
		}
	}

	query := `SELECT id, occurred_at, COALESCE(actor_id, ''), action, entity, entity_id, COALESCE(meta, '') FROM audit_logs`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY occurred_at DESC, id DESC"
	if w.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, w.Limit, w.Offset)
	}

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, db.Classify("audit: timeline", err)
	}
	defer rows.Close()

	var out []TimelineRow
	for rows.Next() {
		var (
			row  TimelineRow
			meta string
		)
		if err := rows.Scan(&row.ID, db.Time(&row.At), &row.Actor, &row.Action, &row.Entity, &row.EntityID, &meta); err != nil {
			return nil, db.Classify("audit: scan", err)
		}
		if meta != "" && meta != "null" {
			_ = json.Unmarshal([]byte(meta), &row.Meta)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, db.Classify("audit: timeline", err)
	}
	return out, nil
}
