package app

import (
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/ledgerly/ledgerly/internal/audit"
	audithttp "github.com/ledgerly/ledgerly/internal/audit/http"
	"github.com/ledgerly/ledgerly/internal/inventory"
	"github.com/ledgerly/ledgerly/internal/masterdata/categories"
	"github.com/ledgerly/ledgerly/internal/masterdata/products"
	"github.com/ledgerly/ledgerly/internal/masterdata/suppliers"
	"github.com/ledgerly/ledgerly/internal/observability"
	"github.com/ledgerly/ledgerly/internal/platform/db"
	"github.com/ledgerly/ledgerly/internal/sales/customers"
	"github.com/ledgerly/ledgerly/internal/sales/invoices"
	"github.com/ledgerly/ledgerly/internal/shared"
)

// Services holds the domain services sharing one store handle.
type Services struct {
	Products   *products.Service
	Categories *categories.Service
	Suppliers  *suppliers.Service
	Customers  *customers.Service
	Ledger     *inventory.Service
	Invoices   *invoices.Service
	Audit      *audit.Service
}

// ServiceDeps are the process-wide resources services are built from.
// RedisClient and Metrics may be nil.
type ServiceDeps struct {
	Store       *db.DB
	Config      *Config
	Logger      *slog.Logger
	RedisClient *redis.Client
	Metrics     *observability.Metrics
}

// NewServices wires every domain service. The ledger is the only writer of
// stock; invoices post through it.
func NewServices(deps ServiceDeps) *Services {
	cfg := deps.Config
	if cfg == nil {
		cfg = &Config{LedgerAllowNegativeStock: true, LedgerBatchConcurrency: 4}
	}
	auditLogger := shared.NewAuditLogger(deps.Store)

	opts := []inventory.ServiceOption{
		inventory.WithAudit(auditLogger),
		inventory.WithIdempotency(shared.NewIdempotencyStore(deps.Store)),
		inventory.WithLocks(shared.NewKeyedMutex()),
	}
	if deps.Metrics != nil {
		opts = append(opts, inventory.WithMetrics(deps.Metrics))
	}
	if deps.RedisClient != nil {
		opts = append(opts, inventory.WithAlertCache(inventory.NewAlertCache(deps.RedisClient, cfg.AlertsCacheTTL)))
	}
	ledger := inventory.NewService(inventory.NewRepository(deps.Store), cfg.Ledger(), deps.Logger, opts...)

	return &Services{
		Products:   products.NewService(products.NewRepository(deps.Store), auditLogger, deps.Logger),
		Categories: categories.NewService(categories.NewRepository(deps.Store), auditLogger, deps.Logger),
		Suppliers:  suppliers.NewService(suppliers.NewRepository(deps.Store), auditLogger, deps.Logger),
		Customers:  customers.NewService(customers.NewRepository(deps.Store), auditLogger, deps.Logger),
		Ledger:     ledger,
		Invoices:   invoices.NewService(invoices.NewRepository(deps.Store), ledger, auditLogger, deps.Logger),
		Audit:      audit.NewService(audit.NewRepository(deps.Store)),
	}
}

// Handlers fills the HTTP handler fields of params from s.
func (s *Services) Handlers(params RouterParams, logger *slog.Logger) RouterParams {
	params.ProductsHandler = products.NewHandler(logger, s.Products)
	params.CategoriesHandler = categories.NewHandler(logger, s.Categories)
	params.SuppliersHandler = suppliers.NewHandler(logger, s.Suppliers)
	params.CustomersHandler = customers.NewHandler(s.Customers, logger)
	params.InventoryHandler = inventory.NewHandler(s.Ledger, logger)
	params.InvoicesHandler = invoices.NewHandler(s.Invoices, logger)
	params.AuditHandler = audithttp.NewHandler(logger, s.Audit)
	return params
}
