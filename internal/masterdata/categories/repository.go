package categories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/ledgerly/ledgerly/internal/masterdata/shared"
	"github.com/ledgerly/ledgerly/internal/platform/db"
	internalShared "github.com/ledgerly/ledgerly/internal/shared"
)

type Repository interface {
	List(ctx context.Context, filters shared.ListFilters) ([]Category, error)
	Get(ctx context.Context, id string) (Category, error)
	Create(ctx context.Context, category Category) (Category, error)
	Update(ctx context.Context, category Category) (Category, error)
	SoftDelete(ctx context.Context, id string, at time.Time) error
	Resolve(ctx context.Context, id string) (shared.Reference, error)
}

type repository struct {
	db db.Querier
}

func NewRepository(q db.Querier) Repository {
	return &repository{db: q}
}

const selectColumns = `SELECT id, name, description, is_active, business_id, created_at, updated_at, deleted_at FROM categories`

func scanCategory(row interface{ Scan(...any) error }) (Category, error) {
	var c Category
	var description, biz sql.NullString
	err := row.Scan(&c.ID, &c.Name, &description, &c.IsActive, &biz, db.Time(&c.CreatedAt), db.Time(&c.UpdatedAt), db.NullTime(&c.DeletedAt))
	if err != nil {
		return Category{}, err
	}
	if description.Valid {
		c.Description = &description.String
	}
	if biz.Valid {
		c.BusinessID = &biz.String
	}
	return c, nil
}

func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]Category, error) {
	where := shared.Live().Search(filters.Search, "name")
	if filters.IsActive != nil {
		where.Add("is_active = ?", *filters.IsActive)
	}
	rows, err := r.db.Query(ctx, selectColumns+where.SQL()+` ORDER BY `+db.Fold("name")+` ASC, id ASC`, where.Args()...)
	if err != nil {
		return nil, db.Classify("list categories", err)
	}
	defer rows.Close()

	out := []Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, db.Classify("scan category", err)
		}
		out = append(out, c)
	}
	return out, db.Classify("list categories", rows.Err())
}

func (r *repository) Get(ctx context.Context, id string) (Category, error) {
	c, err := scanCategory(r.db.QueryRow(ctx, selectColumns+` WHERE id = ? AND deleted_at IS NULL`, id))
	if errors.Is(err, db.ErrNoRows) {
		return Category{}, internalShared.NewNotFoundError("category", id)
	}
	return c, db.Classify("get category", err)
}

func (r *repository) Create(ctx context.Context, c Category) (Category, error) {
	_, err := r.db.Exec(ctx, `INSERT INTO categories (id, name, description, is_active, business_id, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, db.NullString(c.Description), c.IsActive, db.NullString(c.BusinessID), c.CreatedAt.UTC(), c.UpdatedAt.UTC())
	if err != nil {
		return Category{}, db.Classify("create category", err)
	}
	return c, nil
}

func (r *repository) Update(ctx context.Context, c Category) (Category, error) {
	res, err := r.db.Exec(ctx, `UPDATE categories SET name = ?, description = ?, is_active = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`,
		c.Name, db.NullString(c.Description), c.IsActive, c.UpdatedAt.UTC(), c.ID)
	if err != nil {
		return Category{}, db.Classify("update category", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return Category{}, internalShared.NewNotFoundError("category", c.ID)
	}
	return c, nil
}

func (r *repository) SoftDelete(ctx context.Context, id string, at time.Time) error {
	return shared.SoftDelete(ctx, r.db, "categories", "category", id, at)
}

func (r *repository) Resolve(ctx context.Context, id string) (shared.Reference, error) {
	return shared.Resolve(ctx, r.db, "categories", "category", id)
}
