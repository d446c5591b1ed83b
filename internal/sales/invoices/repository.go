package invoices

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerly/ledgerly/internal/inventory"
	mdshared "github.com/ledgerly/ledgerly/internal/masterdata/shared"
	"github.com/ledgerly/ledgerly/internal/platform/db"
	"github.com/ledgerly/ledgerly/internal/shared"
)

// Repository reads invoices and opens write transactions.
type Repository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error
	Get(ctx context.Context, id string) (Invoice, error)
	List(ctx context.Context, filter ListFilter) ([]Invoice, error)
}

// TxRepository is the write side, bound to one transaction.
type TxRepository interface {
	// Ledger exposes the stock ledger on the same transaction.
	Ledger() inventory.TxRepository
	CheckParty(ctx context.Context, kind Kind, id string) error
	LoadProducts(ctx context.Context, ids []string) (map[string]ProductSnapshot, error)
	InsertInvoice(ctx context.Context, inv Invoice) error
	InsertItem(ctx context.Context, item Item) error
	InsertPayment(ctx context.Context, p Payment) error
	LockInvoice(ctx context.Context, id string) (Invoice, error)
	UpdateSettlement(ctx context.Context, id string, paid decimal.Decimal, status string, at time.Time) error
	MarkVoid(ctx context.Context, id, note string, at time.Time) error
}

type repository struct {
	db *db.DB
}

// NewRepository builds the SQL-backed repository.
func NewRepository(handle *db.DB) Repository {
	return &repository{db: handle}
}

func (r *repository) WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error {
	return r.db.WithTx(ctx, func(ctx context.Context, tx *db.Tx) error {
		return fn(ctx, &txRepository{q: tx})
	})
}

const invoiceColumns = `SELECT id, number, kind, customer_id, supplier_id, status, subtotal, discount, tax, total,
	amount_paid, note, issued_at, created_by, business_id, created_at, updated_at FROM invoices`

type scanner interface {
	Scan(dest ...any) error
}

func scanInvoice(row scanner) (Invoice, error) {
	var inv Invoice
	var kind string
	var customerID, supplierID, createdBy, biz sql.NullString
	err := row.Scan(&inv.ID, &inv.Number, &kind, &customerID, &supplierID, &inv.Status, &inv.Subtotal, &inv.Discount,
		&inv.Tax, &inv.Total, &inv.AmountPaid, &inv.Note, db.Time(&inv.IssuedAt), &createdBy, &biz,
		db.Time(&inv.CreatedAt), db.Time(&inv.UpdatedAt))
	if err != nil {
		return Invoice{}, err
	}
	inv.Kind = Kind(kind)
	inv.CustomerID = nullable(customerID)
	inv.SupplierID = nullable(supplierID)
	inv.CreatedBy = nullable(createdBy)
	inv.BusinessID = nullable(biz)
	return inv, nil
}

func nullable(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func getInvoice(ctx context.Context, q db.Querier, id, suffix string) (Invoice, error) {
	inv, err := scanInvoice(q.QueryRow(ctx, invoiceColumns+` WHERE id = ? AND deleted_at IS NULL`+suffix, id))
	if errors.Is(err, db.ErrNoRows) {
		return Invoice{}, shared.NewNotFoundError("invoice", id)
	}
	if err != nil {
		return Invoice{}, db.Classify("get invoice", err)
	}
	if inv.Items, err = loadItems(ctx, q, id); err != nil {
		return Invoice{}, err
	}
	if inv.Payments, err = loadPayments(ctx, q, id); err != nil {
		return Invoice{}, err
	}
	return inv, nil
}

func loadItems(ctx context.Context, q db.Querier, invoiceID string) ([]Item, error) {
	rows, err := q.Query(ctx, `SELECT id, invoice_id, product_id, line_no, sku, product_name, quantity, unit_price, tax_rate, line_total
		FROM invoice_items WHERE invoice_id = ? ORDER BY line_no ASC`, invoiceID)
	if err != nil {
		return nil, db.Classify("list invoice items", err)
	}
	defer rows.Close()
	items := []Item{}
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.InvoiceID, &it.ProductID, &it.LineNo, &it.SKU, &it.ProductName, &it.Quantity,
			&it.UnitPrice, &it.TaxRate, &it.LineTotal); err != nil {
			return nil, db.Classify("scan invoice item", err)
		}
		items = append(items, it)
	}
	return items, db.Classify("list invoice items", rows.Err())
}

func loadPayments(ctx context.Context, q db.Querier, invoiceID string) ([]Payment, error) {
	rows, err := q.Query(ctx, `SELECT id, invoice_id, amount, method, reference, paid_at
		FROM payments WHERE invoice_id = ? ORDER BY paid_at ASC, id ASC`, invoiceID)
	if err != nil {
		return nil, db.Classify("list payments", err)
	}
	defer rows.Close()
	payments := []Payment{}
	for rows.Next() {
		var p Payment
		var ref sql.NullString
		if err := rows.Scan(&p.ID, &p.InvoiceID, &p.Amount, &p.Method, &ref, db.Time(&p.PaidAt)); err != nil {
			return nil, db.Classify("scan payment", err)
		}
		p.Reference = nullable(ref)
		payments = append(payments, p)
	}
	return payments, db.Classify("list payments", rows.Err())
}

func (r *repository) Get(ctx context.Context, id string) (Invoice, error) {
	return getInvoice(ctx, r.db, id, "")
}

// List returns headers only, newest first.
func (r *repository) List(ctx context.Context, f ListFilter) ([]Invoice, error) {
	where := mdshared.Live().Search(f.Search, "number")
	if f.Kind != nil {
		where.Add("kind = ?", string(*f.Kind))
	}
	if f.Status != nil {
		where.Add("status = ?", *f.Status)
	}
	if f.CustomerID != nil {
		where.Add("customer_id = ?", *f.CustomerID)
	}
	if f.SupplierID != nil {
		where.Add("supplier_id = ?", *f.SupplierID)
	}
	rows, err := r.db.Query(ctx, invoiceColumns+where.SQL()+` ORDER BY created_at DESC, id DESC`, where.Args()...)
	if err != nil {
		return nil, db.Classify("list invoices", err)
	}
	defer rows.Close()
	out := []Invoice{}
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, db.Classify("scan invoice", err)
		}
		out = append(out, inv)
	}
	return out, db.Classify("list invoices", rows.Err())
}

type txRepository struct {
	q db.Querier
}

func (t *txRepository) Ledger() inventory.TxRepository {
	return inventory.NewTxRepository(t.q)
}

// CheckParty requires a live customer for sales and a live supplier for purchases.
func (t *txRepository) CheckParty(ctx context.Context, kind Kind, id string) error {
	table, entity, field := "customers", "customer", "customer_id"
	if kind == KindPurchase {
		table, entity, field = "suppliers", "supplier", "supplier_id"
	}
	var n int
	err := t.q.QueryRow(ctx, `SELECT COUNT(1) FROM `+table+` WHERE id = ? AND deleted_at IS NULL`, id).Scan(&n)
	if err != nil {
		return db.Classify("check "+entity, err)
	}
	if n == 0 {
		return &shared.ValidationError{Message: entity + " " + id + " does not exist", Fields: map[string]string{field: "does not exist"}}
	}
	return nil
}

// LoadProducts returns live products by id. Missing or deleted ids are NotFound.
func (t *txRepository) LoadProducts(ctx context.Context, ids []string) (map[string]ProductSnapshot, error) {
	out := make(map[string]ProductSnapshot, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := t.q.Query(ctx, `SELECT id, sku, name, price, cost_price, tax_rate FROM products
		WHERE deleted_at IS NULL AND id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, db.Classify("load products", err)
	}
	defer rows.Close()
	for rows.Next() {
		var p ProductSnapshot
		if err := rows.Scan(&p.ID, &p.SKU, &p.Name, &p.Price, &p.CostPrice, &p.TaxRate); err != nil {
			return nil, db.Classify("scan product", err)
		}
		out[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, db.Classify("load products", err)
	}
	for _, id := range ids {
		if _, ok := out[id]; !ok {
			return nil, shared.NewNotFoundError("product", id)
		}
	}
	return out, nil
}

func (t *txRepository) InsertInvoice(ctx context.Context, inv Invoice) error {
	_, err := t.q.Exec(ctx, `INSERT INTO invoices (id, number, kind, customer_id, supplier_id, status, subtotal, discount, tax,
		total, amount_paid, note, issued_at, created_by, business_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.ID, inv.Number, string(inv.Kind), db.NullString(inv.CustomerID), db.NullString(inv.SupplierID), inv.Status,
		inv.Subtotal, inv.Discount, inv.Tax, inv.Total, inv.AmountPaid, inv.Note, inv.IssuedAt.UTC(),
		db.NullString(inv.CreatedBy), db.NullString(inv.BusinessID), inv.CreatedAt.UTC(), inv.UpdatedAt.UTC())
	return db.Classify("insert invoice", err)
}

func (t *txRepository) InsertItem(ctx context.Context, it Item) error {
	_, err := t.q.Exec(ctx, `INSERT INTO invoice_items (id, invoice_id, product_id, line_no, sku, product_name, quantity,
		unit_price, tax_rate, line_total) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		it.ID, it.InvoiceID, it.ProductID, it.LineNo, it.SKU, it.ProductName, it.Quantity, it.UnitPrice, it.TaxRate, it.LineTotal)
	return db.Classify("insert invoice item", err)
}

func (t *txRepository) InsertPayment(ctx context.Context, p Payment) error {
	_, err := t.q.Exec(ctx, `INSERT INTO payments (id, invoice_id, amount, method, reference, paid_at) VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID, p.InvoiceID, p.Amount, p.Method, db.NullString(p.Reference), p.PaidAt.UTC())
	return db.Classify("insert payment", err)
}

func (t *txRepository) LockInvoice(ctx context.Context, id string) (Invoice, error) {
	return getInvoice(ctx, t.q, id, t.q.Dialect().ForUpdate())
}

func (t *txRepository) UpdateSettlement(ctx context.Context, id string, paid decimal.Decimal, status string, at time.Time) error {
	_, err := t.q.Exec(ctx, `UPDATE invoices SET amount_paid = ?, status = ?, updated_at = ? WHERE id = ?`, paid, status, at.UTC(), id)
	return db.Classify("update invoice settlement", err)
}

func (t *txRepository) MarkVoid(ctx context.Context, id, note string, at time.Time) error {
	_, err := t.q.Exec(ctx, `UPDATE invoices SET status = ?, note = ?, updated_at = ? WHERE id = ?`, StatusVoid, note, at.UTC(), id)
	return db.Classify("void invoice", err)
}
