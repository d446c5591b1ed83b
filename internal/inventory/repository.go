package inventory

import "context"

// TxRepository is the view of the store available inside a ledger transaction.
type TxRepository interface {
	// LockProduct reads the product row and holds it for the rest of the transaction.
	LockProduct(ctx context.Context, productID string) (StockState, error)
	InsertMovement(ctx context.Context, m Movement) error
	// UpdateStock writes the cached counter and sequence together with the movement.
	UpdateStock(ctx context.Context, productID string, qty, sequence int64) error
}

// RepositoryPort abstracts persistence for the stock ledger.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error
	// History returns movements newest first. limit <= 0 returns everything.
	History(ctx context.Context, productID string, limit int) ([]Movement, error)
	// Ledger returns movements oldest first for replay.
	Ledger(ctx context.Context, productID string) ([]Movement, error)
	// LoadState reads a product without locking, including soft-deleted rows.
	LoadState(ctx context.Context, productID string) (StockState, error)
	ProductIDs(ctx context.Context) ([]string, error)
	LowStock(ctx context.Context) ([]Alert, error)
}
