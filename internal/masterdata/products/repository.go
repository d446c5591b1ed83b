package products

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/ledgerly/ledgerly/internal/masterdata/shared"
	"github.com/ledgerly/ledgerly/internal/platform/db"
	internalShared "github.com/ledgerly/ledgerly/internal/shared"
)

const table = "products"

// Repository persists products.
type Repository interface {
	List(ctx context.Context, filters shared.ListFilters) ([]Product, error)
	Get(ctx context.Context, id string) (Product, error)
	Create(ctx context.Context, product Product) (Product, error)
	Update(ctx context.Context, product Product) (Product, error)
	SoftDelete(ctx context.Context, id string, at time.Time) error
	Resolve(ctx context.Context, id string) (shared.Reference, error)
	CheckReferences(ctx context.Context, categoryID, supplierID *string) error
}

type repository struct {
	db db.Querier
}

// NewRepository builds the SQL-backed repository.
func NewRepository(q db.Querier) Repository {
	return &repository{db: q}
}

const selectColumns = `SELECT id, sku, name, description, price, cost_price, tax_rate, stock_qty, opening_qty,
	low_stock_threshold, unit, barcode, category_id, supplier_id, image_url, is_active, business_id,
	created_at, updated_at, deleted_at FROM products`

type scanner interface {
	Scan(dest ...any) error
}

func scanProduct(row scanner) (Product, error) {
	var p Product
	var description, barcode, categoryID, supplierID, image, biz sql.NullString
	err := row.Scan(&p.ID, &p.SKU, &p.Name, &description, &p.Price, &p.CostPrice, &p.TaxRate, &p.StockQty, &p.OpeningQty,
		&p.LowStockThreshold, &p.Unit, &barcode, &categoryID, &supplierID, &image, &p.IsActive, &biz,
		db.Time(&p.CreatedAt), db.Time(&p.UpdatedAt), db.NullTime(&p.DeletedAt))
	if err != nil {
		return Product{}, err
	}
	p.Description = ptr(description)
	p.Barcode = ptr(barcode)
	p.CategoryID = ptr(categoryID)
	p.SupplierID = ptr(supplierID)
	p.ImageURL = ptr(image)
	p.BusinessID = ptr(biz)
	return p, nil
}

func ptr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]Product, error) {
	where := shared.Live().Apply(filters, "name", "sku", "barcode")
	rows, err := r.db.Query(ctx, selectColumns+where.SQL()+` ORDER BY created_at DESC, id DESC`, where.Args()...)
	if err != nil {
		return nil, db.Classify("list products", err)
	}
	defer rows.Close()

	products := []Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, db.Classify("scan product", err)
		}
		products = append(products, p)
	}
	return products, db.Classify("list products", rows.Err())
}

func (r *repository) Get(ctx context.Context, id string) (Product, error) {
	p, err := scanProduct(r.db.QueryRow(ctx, selectColumns+` WHERE id = ? AND deleted_at IS NULL`, id))
	if errors.Is(err, db.ErrNoRows) {
		return Product{}, internalShared.NewNotFoundError("product", id)
	}
	if err != nil {
		return Product{}, db.Classify("get product", err)
	}
	return p, nil
}

func (r *repository) Create(ctx context.Context, p Product) (Product, error) {
	_, err := r.db.Exec(ctx, `INSERT INTO products (id, sku, name, description, price, cost_price, tax_rate, stock_qty, opening_qty,
		movement_seq, low_stock_threshold, unit, barcode, category_id, supplier_id, image_url, is_active, business_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.SKU, p.Name, db.NullString(p.Description), p.Price, p.CostPrice, p.TaxRate, p.StockQty, p.OpeningQty,
		p.LowStockThreshold, p.Unit, db.NullString(p.Barcode), db.NullString(p.CategoryID), db.NullString(p.SupplierID),
		db.NullString(p.ImageURL), p.IsActive, db.NullString(p.BusinessID), p.CreatedAt.UTC(), p.UpdatedAt.UTC())
	if err != nil {
		return Product{}, db.Classify("create product", err)
	}
	return p, nil
}

// Update writes every mutable column. sku and the stock counters are never touched here.
func (r *repository) Update(ctx context.Context, p Product) (Product, error) {
	res, err := r.db.Exec(ctx, `UPDATE products SET name = ?, description = ?, price = ?, cost_price = ?, tax_rate = ?,
		low_stock_threshold = ?, unit = ?, barcode = ?, category_id = ?, supplier_id = ?, image_url = ?, is_active = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL`,
		p.Name, db.NullString(p.Description), p.Price, p.CostPrice, p.TaxRate,
		p.LowStockThreshold, p.Unit, db.NullString(p.Barcode), db.NullString(p.CategoryID), db.NullString(p.SupplierID),
		db.NullString(p.ImageURL), p.IsActive, p.UpdatedAt.UTC(), p.ID)
	if err != nil {
		return Product{}, db.Classify("update product", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return Product{}, db.Classify("update product", err)
	} else if n == 0 {
		return Product{}, internalShared.NewNotFoundError("product", p.ID)
	}
	return r.Get(ctx, p.ID)
}

func (r *repository) SoftDelete(ctx context.Context, id string, at time.Time) error {
	return shared.SoftDelete(ctx, r.db, table, "product", id, at)
}

func (r *repository) Resolve(ctx context.Context, id string) (shared.Reference, error) {
	return shared.Resolve(ctx, r.db, table, "product", id)
}

func (r *repository) CheckReferences(ctx context.Context, categoryID, supplierID *string) error {
	checks := []struct {
		field, table string
		id           *string
	}{
		{"category_id", "categories", categoryID},
		{"supplier_id", "suppliers", supplierID},
	}
	for _, c := range checks {
		if c.id == nil {
			continue
		}
		var one int
		err := r.db.QueryRow(ctx, `SELECT 1 FROM `+c.table+` WHERE id = ? AND deleted_at IS NULL`, *c.id).Scan(&one)
		if errors.Is(err, db.ErrNoRows) {
			return internalShared.FieldError(c.field, "does not reference a live record")
		}
		if err != nil {
			return db.Classify("check references", err)
		}
	}
	return nil
}
