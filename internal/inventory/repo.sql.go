package inventory

import (
	"context"
	"database/sql"
	"errors"

	"github.com/ledgerly/ledgerly/internal/platform/db"
	"github.com/ledgerly/ledgerly/internal/shared"
)

// Repository implements RepositoryPort on the shared store.
type Repository struct {
	db *db.DB
}

// NewRepository constructs the SQL repository.
func NewRepository(handle *db.DB) *Repository {
	return &Repository{db: handle}
}

// WithTx runs fn inside a retried store transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error {
	return r.db.WithTx(ctx, func(ctx context.Context, tx *db.Tx) error {
		return fn(ctx, NewTxRepository(tx))
	})
}

type txRepository struct {
	q db.Querier
}

// NewTxRepository binds ledger statements to an open transaction. Other modules use it to
// post movements inside their own transactions.
func NewTxRepository(q db.Querier) TxRepository {
	return &txRepository{q: q}
}

func (t *txRepository) LockProduct(ctx context.Context, productID string) (StockState, error) {
	return loadState(ctx, t.q, productID, t.q.Dialect().ForUpdate())
}

func loadState(ctx context.Context, q db.Querier, productID, suffix string) (StockState, error) {
	var st StockState
	var deleted int
	err := q.QueryRow(ctx, `SELECT id, sku, name, stock_qty, opening_qty, movement_seq,
		CASE WHEN deleted_at IS NULL THEN 0 ELSE 1 END
		FROM products WHERE id = ?`+suffix, productID).
		Scan(&st.ProductID, &st.SKU, &st.Name, &st.StockQty, &st.OpeningQty, &st.Sequence, &deleted)
	if errors.Is(err, db.ErrNoRows) {
		return StockState{}, shared.NewNotFoundError("product", productID)
	}
	if err != nil {
		return StockState{}, db.Classify("load product stock", err)
	}
	st.Deleted = deleted == 1
	return st, nil
}

func (t *txRepository) InsertMovement(ctx context.Context, m Movement) error {
	_, err := t.q.Exec(ctx, `INSERT INTO stock_movements (id, product_id, invoice_id, kind, quantity, quantity_before,
		quantity_after, sequence, note, created_by, business_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.ProductID, db.NullString(m.InvoiceID), string(m.Kind), m.Quantity, m.QuantityBefore,
		m.QuantityAfter, m.Sequence, m.Note, db.NullString(m.CreatedBy), db.NullString(m.BusinessID), m.CreatedAt.UTC())
	if err != nil {
		// A duplicate (product_id, sequence) means another writer got there first.
		if db.IsUniqueViolation(err) {
			return shared.ErrConcurrencyConflict
		}
		return db.Classify("insert movement", err)
	}
	return nil
}

func (t *txRepository) UpdateStock(ctx context.Context, productID string, qty, sequence int64) error {
	res, err := t.q.Exec(ctx, `UPDATE products SET stock_qty = ?, movement_seq = ? WHERE id = ? AND movement_seq = ?`,
		qty, sequence, productID, sequence-1)
	if err != nil {
		return db.Classify("update stock", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return db.Classify("update stock", err)
	}
	if n == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

const movementColumns = `SELECT id, product_id, invoice_id, kind, quantity, quantity_before, quantity_after,
	sequence, note, created_by, business_id, created_at FROM stock_movements`

func scanMovement(rows *sql.Rows) (Movement, error) {
	var m Movement
	var invoiceID, createdBy, biz sql.NullString
	var kind string
	if err := rows.Scan(&m.ID, &m.ProductID, &invoiceID, &kind, &m.Quantity, &m.QuantityBefore, &m.QuantityAfter,
		&m.Sequence, &m.Note, &createdBy, &biz, db.Time(&m.CreatedAt)); err != nil {
		return Movement{}, err
	}
	m.Kind = MovementKind(kind)
	m.InvoiceID = nullable(invoiceID)
	m.CreatedBy = nullable(createdBy)
	m.BusinessID = nullable(biz)
	return m, nil
}

func nullable(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func (r *Repository) queryMovements(ctx context.Context, op, query string, args ...any) ([]Movement, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, db.Classify(op, err)
	}
	defer rows.Close()
	out := []Movement{}
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, db.Classify(op, err)
		}
		out = append(out, m)
	}
	return out, db.Classify(op, rows.Err())
}

// History returns movements newest first by ledger sequence.
func (r *Repository) History(ctx context.Context, productID string, limit int) ([]Movement, error) {
	query := movementColumns + ` WHERE product_id = ? ORDER BY sequence DESC`
	args := []any{productID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	return r.queryMovements(ctx, "movement history", query, args...)
}

// Ledger returns movements in application order.
func (r *Repository) Ledger(ctx context.Context, productID string) ([]Movement, error) {
	return r.queryMovements(ctx, "movement ledger", movementColumns+` WHERE product_id = ? ORDER BY sequence ASC`, productID)
}

// LoadState reads the stock counters of a product without locking it.
func (r *Repository) LoadState(ctx context.Context, productID string) (StockState, error) {
	return loadState(ctx, r.db, productID, "")
}

// ProductIDs lists every product id, including soft-deleted ones, for integrity scans.
func (r *Repository) ProductIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT id FROM products ORDER BY id`)
	if err != nil {
		return nil, db.Classify("list product ids", err)
	}
	defer rows.Close()
	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, db.Classify("list product ids", err)
		}
		ids = append(ids, id)
	}
	return ids, db.Classify("list product ids", rows.Err())
}

// LowStock lists live, active products whose stock is at or below their threshold.
func (r *Repository) LowStock(ctx context.Context) ([]Alert, error) {
	rows, err := r.db.Query(ctx, `SELECT id, sku, name, stock_qty, low_stock_threshold, unit FROM products
		WHERE deleted_at IS NULL AND is_active = ? AND stock_qty <= low_stock_threshold
		ORDER BY stock_qty ASC, `+db.Fold("name")+` ASC, id ASC`, true)
	if err != nil {
		return nil, db.Classify("low stock", err)
	}
	defer rows.Close()
	alerts := []Alert{}
	for rows.Next() {
		var a Alert
		if err := rows.Scan(&a.ProductID, &a.SKU, &a.Name, &a.StockQty, &a.Threshold, &a.Unit); err != nil {
			return nil, db.Classify("low stock", err)
		}
		a.OutOfStock = a.StockQty <= 0
		alerts = append(alerts, a)
	}
	return alerts, db.Classify("low stock", rows.Err())
}

var _ RepositoryPort = (*Repository)(nil)
