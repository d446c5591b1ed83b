package suppliers

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
	List(ctx context.Context, filters shared.ListFilters) ([]Supplier, error)
	Get(ctx context.Context, id string) (Supplier, error)
	Create(ctx context.Context, supplier Supplier) (Supplier, error)
	Update(ctx context.Context, supplier Supplier) (Supplier, error)
	SoftDelete(ctx context.Context, id string, at time.Time) error
	Resolve(ctx context.Context, id string) (shared.Reference, error)
}

type repository struct {
	db db.Querier
}

func NewRepository(q db.Querier) Repository {
	return &repository{db: q}
}

const selectColumns = `SELECT id, name, contact_person, phone, email, address, is_active, business_id, created_at, updated_at, deleted_at FROM suppliers`

func scanSupplier(row interface{ Scan(...any) error }) (Supplier, error) {
	var s Supplier
	var contact, phone, email, address, biz sql.NullString
	err := row.Scan(&s.ID, &s.Name, &contact, &phone, &email, &address, &s.IsActive, &biz,
		db.Time(&s.CreatedAt), db.Time(&s.UpdatedAt), db.NullTime(&s.DeletedAt))
	if err != nil {
		return Supplier{}, err
	}
	s.ContactPerson = nullable(contact)
	s.Phone = nullable(phone)
	s.Email = nullable(email)
	s.Address = nullable(address)
	s.BusinessID = nullable(biz)
	return s, nil
}

func nullable(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	return &v.String
}

func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]Supplier, error) {
	where := shared.Live().Search(filters.Search, "name", "phone", "email")
	if filters.IsActive != nil {
		where.Add("is_active = ?", *filters.IsActive)
	}
	rows, err := r.db.Query(ctx, selectColumns+where.SQL()+` ORDER BY `+db.Fold("name")+` ASC, id ASC`, where.Args()...)
	if err != nil {
		return nil, db.Classify("list suppliers", err)
	}
	defer rows.Close()

	out := []Supplier{}
	for rows.Next() {
		s, err := scanSupplier(rows)
		if err != nil {
			return nil, db.Classify("scan supplier", err)
		}
		out = append(out, s)
	}
	return out, db.Classify("list suppliers", rows.Err())
}

func (r *repository) Get(ctx context.Context, id string) (Supplier, error) {
	s, err := scanSupplier(r.db.QueryRow(ctx, selectColumns+` WHERE id = ? AND deleted_at IS NULL`, id))
	if errors.Is(err, db.ErrNoRows) {
		return Supplier{}, internalShared.NewNotFoundError("supplier", id)
	}
	return s, db.Classify("get supplier", err)
}

func (r *repository) Create(ctx context.Context, s Supplier) (Supplier, error) {
	_, err := r.db.Exec(ctx, `INSERT INTO suppliers (id, name, contact_person, phone, email, address, is_active, business_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.Name, db.NullString(s.ContactPerson), db.NullString(s.Phone), db.NullString(s.Email), db.NullString(s.Address),
		s.IsActive, db.NullString(s.BusinessID), s.CreatedAt.UTC(), s.UpdatedAt.UTC())
	if err != nil {
		return Supplier{}, db.Classify("create supplier", err)
	}
	return s, nil
}

func (r *repository) Update(ctx context.Context, s Supplier) (Supplier, error) {
	res, err := r.db.Exec(ctx, `UPDATE suppliers SET name = ?, contact_person = ?, phone = ?, email = ?, address = ?, is_active = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL`,
		s.Name, db.NullString(s.ContactPerson), db.NullString(s.Phone), db.NullString(s.Email), db.NullString(s.Address),
		s.IsActive, s.UpdatedAt.UTC(), s.ID)
	if err != nil {
		return Supplier{}, db.Classify("update supplier", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return Supplier{}, internalShared.NewNotFoundError("supplier", s.ID)
	}
	return s, nil
}

func (r *repository) SoftDelete(ctx context.Context, id string, at time.Time) error {
	return shared.SoftDelete(ctx, r.db, "suppliers", "supplier", id, at)
}

func (r *repository) Resolve(ctx context.Context, id string) (shared.Reference, error) {
	return shared.Resolve(ctx, r.db, "suppliers", "supplier", id)
}
