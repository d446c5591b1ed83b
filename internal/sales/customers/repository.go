package customers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ledgerly/ledgerly/internal/masterdata/shared"
	"github.com/ledgerly/ledgerly/internal/platform/db"
	internalShared "github.com/ledgerly/ledgerly/internal/shared"
)

type Repository interface {
	Get(ctx context.Context, id string) (*Customer, error)
	List(ctx context.Context, filters shared.ListFilters) ([]Customer, error)
	Create(ctx context.Context, customer Customer) error
	Update(ctx context.Context, id string, updates map[string]interface{}) error
	SoftDelete(ctx context.Context, id string, at time.Time) error
	Resolve(ctx context.Context, id string) (shared.Reference, error)
}

type repository struct {
	db db.Querier
}

func NewRepository(q db.Querier) Repository {
	return &repository{db: q}
}

// updatableColumns guards the dynamic SET clause.
var updatableColumns = map[string]bool{
	"name": true, "email": true, "phone": true, "address": true, "is_active": true, "updated_at": true,
}

const customerColumns = `id, name, email, phone, address, is_active, business_id, created_at, updated_at, deleted_at`

func scanCustomer(row interface{ Scan(...any) error }) (Customer, error) {
	var c Customer
	var email, phone, address, biz sql.NullString
	err := row.Scan(&c.ID, &c.Name, &email, &phone, &address, &c.IsActive, &biz,
		db.Time(&c.CreatedAt), db.Time(&c.UpdatedAt), db.NullTime(&c.DeletedAt))
	if err != nil {
		return Customer{}, err
	}
	if email.Valid {
		c.Email = &email.String
	}
	if phone.Valid {
		c.Phone = &phone.String
	}
	if address.Valid {
		c.Address = &address.String
	}
	if biz.Valid {
		c.BusinessID = &biz.String
	}
	return c, nil
}

func (r *repository) Get(ctx context.Context, id string) (*Customer, error) {
	c, err := scanCustomer(r.db.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = ? AND deleted_at IS NULL`, id))
	if err != nil {
		if errors.Is(err, db.ErrNoRows) {
			return nil, internalShared.NewNotFoundError("customer", id)
		}
		return nil, db.Classify("get customer", err)
	}
	return &c, nil
}

func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]Customer, error) {
	where := shared.Live().Search(filters.Search, "name", "phone", "email")
	if filters.IsActive != nil {
		where.Add("is_active = ?", *filters.IsActive)
	}
	query := fmt.Sprintf(`SELECT %s FROM customers%s ORDER BY %s ASC, id ASC`, customerColumns, where.SQL(), db.Fold("name"))

	rows, err := r.db.Query(ctx, query, where.Args()...)
	if err != nil {
		return nil, db.Classify("list customers", err)
	}
	defer rows.Close()

	customers := []Customer{}
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, db.Classify("scan customer", err)
		}
		customers = append(customers, c)
	}
	return customers, db.Classify("list customers", rows.Err())
}

func (r *repository) Create(ctx context.Context, c Customer) error {
	_, err := r.db.Exec(ctx, `INSERT INTO customers (id, name, email, phone, address, is_active, business_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, db.NullString(c.Email), db.NullString(c.Phone), db.NullString(c.Address), c.IsActive,
		db.NullString(c.BusinessID), c.CreatedAt.UTC(), c.UpdatedAt.UTC())
	return db.Classify("create customer", err)
}

func (r *repository) Update(ctx context.Context, id string, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	columns := make([]string, 0, len(updates))
	for col := range updates {
		if !updatableColumns[col] {
			return fmt.Errorf("customers: column %q is not updatable", col)
		}
		columns = append(columns, col)
	}
	sort.Strings(columns)

	sets := make([]string, 0, len(columns))
	args := make([]interface{}, 0, len(columns)+1)
	for _, col := range columns {
		sets = append(sets, col+" = ?")
		args = append(args, updates[col])
	}
	args = append(args, id)

	query := fmt.Sprintf("UPDATE customers SET %s WHERE id = ? AND deleted_at IS NULL", strings.Join(sets, ", "))
	res, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return db.Classify("update customer", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return internalShared.NewNotFoundError("customer", id)
	}
	return nil
}

func (r *repository) SoftDelete(ctx context.Context, id string, at time.Time) error {
	return shared.SoftDelete(ctx, r.db, "customers", "customer", id, at)
}

func (r *repository) Resolve(ctx context.Context, id string) (shared.Reference, error) {
	return shared.Resolve(ctx, r.db, "customers", "customer", id)
}
