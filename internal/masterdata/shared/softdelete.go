package shared

import (
	"context"
	"errors"
	"time"

	"github.com/ledgerly/ledgerly/internal/platform/db"
	internalShared "github.com/ledgerly/ledgerly/internal/shared"
)

// SoftDelete stamps deleted_at once. Deleting an already deleted row is a no-op;
// an unknown id is a NotFoundError. table must be a trusted constant.
func SoftDelete(ctx context.Context, q db.Querier, table, entity, id string, at time.Time) error {
	res, err := q.Exec(ctx, `UPDATE `+table+` SET deleted_at = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`, at.UTC(), at.UTC(), id)
	if err != nil {
		return db.Classify("soft delete "+entity, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return db.Classify("soft delete "+entity, err)
	}
	if n > 0 {
		return nil
	}
	var exists int
	err = q.QueryRow(ctx, `SELECT 1 FROM `+table+` WHERE id = ?`, id).Scan(&exists)
	if errors.Is(err, db.ErrNoRows) {
		return internalShared.NewNotFoundError(entity, id)
	}
	return db.Classify("soft delete "+entity, err)
}

// Resolve looks up a row by id including soft-deleted ones.
func Resolve(ctx context.Context, q db.Querier, table, entity, id string) (Reference, error) {
	var (
		ref       Reference
		deletedAt *time.Time
	)
	err := q.QueryRow(ctx, `SELECT id, name, deleted_at FROM `+table+` WHERE id = ?`, id).Scan(&ref.ID, &ref.Name, db.NullTime(&deletedAt))
	if errors.Is(err, db.ErrNoRows) {
		return Reference{}, internalShared.NewNotFoundError(entity, id)
	}
	if err != nil {
		return Reference{}, db.Classify("resolve "+entity, err)
	}
	ref.Historical = deletedAt != nil
	return ref, nil
}
