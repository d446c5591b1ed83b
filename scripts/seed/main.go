package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/shopspring/decimal"

	"github.com/ledgerly/ledgerly/internal/app"
	"github.com/ledgerly/ledgerly/internal/inventory"
	"github.com/ledgerly/ledgerly/internal/masterdata/categories"
	"github.com/ledgerly/ledgerly/internal/masterdata/products"
	mdshared "github.com/ledgerly/ledgerly/internal/masterdata/shared"
	"github.com/ledgerly/ledgerly/internal/masterdata/suppliers"
	"github.com/ledgerly/ledgerly/internal/platform/db"
	"github.com/ledgerly/ledgerly/internal/sales/customers"
	"github.com/ledgerly/ledgerly/internal/sales/invoices"
	"github.com/ledgerly/ledgerly/internal/shared"
)

type seedProduct struct {
	sku, name, category, unit string
	price, cost               int64
	opening, threshold        int64
}

var catalogue = []seedProduct{
	{sku: "ATK-PEN-01", name: "Pulpen Hitam", category: "Alat Tulis", unit: "pcs", price: 3500, cost: 2200, opening: 240, threshold: 40},
	{sku: "ATK-NB-A5", name: "Buku Tulis A5", category: "Alat Tulis", unit: "pcs", price: 12500, cost: 8000, opening: 80, threshold: 20},
	{sku: "ATK-STP-01", name: "Stapler Kecil", category: "Alat Tulis", unit: "pcs", price: 27000, cost: 18500, opening: 12, threshold: 5},
	{sku: "MNM-AIR-600", name: "Air Mineral 600ml", category: "Minuman", unit: "btl", price: 4000, cost: 2600, opening: 144, threshold: 48},
	{sku: "MNM-TEH-350", name: "Teh Kotak 350ml", category: "Minuman", unit: "pcs", price: 5500, cost: 3900, opening: 6, threshold: 24},
}

func main() {
	ctx := context.Background()
	cfg, err := app.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	store, err := db.Open(ctx, cfg.Store())
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer store.Close()
	if err := store.Bootstrap(ctx); err != nil {
		log.Fatalf("bootstrap schema: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	services := app.NewServices(app.ServiceDeps{Store: store, Config: cfg, Logger: logger})
	ctx = shared.ContextWithIdentity(ctx, shared.Identity{UserID: "seed"})

	fmt.Println("→ Seeding master data...")
	categoryIDs, err := seedCategories(ctx, services.Categories)
	if err != nil {
		log.Fatalf("seed categories: %v", err)
	}
	supplierID, err := seedSupplier(ctx, services.Suppliers)
	if err != nil {
		log.Fatalf("seed supplier: %v", err)
	}
	customerID, err := seedCustomer(ctx, services.Customers)
	if err != nil {
		log.Fatalf("seed customer: %v", err)
	}

	fmt.Println("→ Seeding products and opening stock...")
	productIDs := make(map[string]string, len(catalogue))
	for _, item := range catalogue {
		id, err := seedCatalogueItem(ctx, services.Products, services.Ledger, item, categoryIDs[item.category], supplierID)
		if err != nil {
			log.Fatalf("seed product %s: %v", item.sku, err)
		}
		productIDs[item.sku] = id
	}

	fmt.Println("→ Seeding invoices...")
	if _, err := services.Invoices.Create(ctx, invoices.CreateInvoiceRequest{
		Number:     "PO-DEMO-0001",
		Kind:       invoices.KindPurchase,
		SupplierID: &supplierID,
		Items: []invoices.ItemRequest{
			{ProductID: productIDs["ATK-NB-A5"], Quantity: 40},
			{ProductID: productIDs["MNM-TEH-350"], Quantity: 48},
		},
		Payments: []invoices.PaymentRequest{{Amount: decimal.NewFromInt(507200), Method: "transfer"}},
	}); err != nil && !isDuplicate(err) {
		log.Fatalf("seed purchase invoice: %v", err)
	}
	if _, err := services.Invoices.Create(ctx, invoices.CreateInvoiceRequest{
		Number:     "INV-DEMO-0001",
		Kind:       invoices.KindSale,
		CustomerID: &customerID,
		Items: []invoices.ItemRequest{
			{ProductID: productIDs["ATK-PEN-01"], Quantity: 24},
			{ProductID: productIDs["MNM-AIR-600"], Quantity: 12},
		},
		Payments: []invoices.PaymentRequest{{Amount: decimal.NewFromInt(50000), Method: "cash"}},
	}); err != nil && !isDuplicate(err) {
		log.Fatalf("seed sale invoice: %v", err)
	}

	reports, err := services.Ledger.VerifyAll(ctx)
	if err != nil {
		log.Fatalf("verify ledger: %v", err)
	}
	for _, r := range reports {
		if !r.Consistent {
			log.Fatalf("ledger for %s is inconsistent: %v", r.SKU, r.Problems)
		}
	}
	fmt.Printf("✓ Seed complete: %d products verified\n", len(reports))
}

func seedCategories(ctx context.Context, svc *categories.Service) (map[string]string, error) {
	ids := make(map[string]string)
	existing, err := svc.List(ctx, mdshared.ListFilters{})
	if err != nil {
		return nil, err
	}
	for _, c := range existing {
		ids[c.Name] = c.ID
	}
	for _, name := range []string{"Alat Tulis", "Minuman"} {
		if _, ok := ids[name]; ok {
			continue
		}
		created, err := svc.Create(ctx, categories.CreateCategoryRequest{Name: name})
		if err != nil {
			return nil, err
		}
		ids[name] = created.ID
	}
	return ids, nil
}

const (
	demoSupplier = "CV Sumber Makmur"
	demoCustomer = "Toko Sinar Jaya"
)

func seedSupplier(ctx context.Context, svc *suppliers.Service) (string, error) {
	existing, err := svc.List(ctx, mdshared.ListFilters{Search: demoSupplier})
	if err != nil {
		return "", err
	}
	for _, s := range existing {
		if s.Name == demoSupplier {
			return s.ID, nil
		}
	}
	created, err := svc.Create(ctx, suppliers.CreateSupplierRequest{
		Name:          demoSupplier,
		ContactPerson: ptr("Budi Santoso"),
		Phone:         ptr("+62-21-555-0101"),
		Address:       ptr("Jl. Pasar Baru 12, Jakarta"),
	})
	if err != nil {
		return "", err
	}
	return created.ID, nil
}

func seedCustomer(ctx context.Context, svc *customers.Service) (string, error) {
	existing, err := svc.List(ctx, mdshared.ListFilters{Search: demoCustomer})
	if err != nil {
		return "", err
	}
	for _, c := range existing {
		if c.Name == demoCustomer {
			return c.ID, nil
		}
	}
	created, err := svc.Create(ctx, customers.CreateCustomerRequest{Name: demoCustomer, Phone: ptr("+62-812-0000-1111")})
	if err != nil {
		return "", err
	}
	return created.ID, nil
}

// seedCatalogueItem creates the product with zero stock and posts its opening
// quantity through the ledger so the history carries an opening_stock entry.
func seedCatalogueItem(ctx context.Context, svc *products.Service, ledger *inventory.Service, item seedProduct, categoryID, supplierID string) (string, error) {
	threshold := item.threshold
	created, err := svc.Create(ctx, products.CreateProductRequest{
		SKU:               item.sku,
		Name:              item.name,
		Price:             decimal.NewFromInt(item.price),
		CostPrice:         decimal.NewFromInt(item.cost),
		TaxRate:           decimal.NewFromInt(11),
		LowStockThreshold: &threshold,
		Unit:              item.unit,
		CategoryID:        &categoryID,
		SupplierID:        &supplierID,
	})
	if isDuplicate(err) {
		existing, err := svc.List(ctx, mdshared.ListFilters{Search: item.sku})
		if err != nil {
			return "", err
		}
		for _, p := range existing {
			if p.SKU == item.sku {
				return p.ID, nil
			}
		}
		return "", fmt.Errorf("sku %s reported duplicate but not found", item.sku)
	}
	if err != nil {
		return "", err
	}
	_, err = ledger.RecordMovement(ctx, inventory.MovementInput{
		ProductID: created.ID,
		Kind:      inventory.KindOpeningStock,
		Quantity:  item.opening,
		Note:      "seed",
	})
	return created.ID, err
}

func isDuplicate(err error) bool {
	var verr *shared.ValidationError
	if !errors.As(err, &verr) {
		return false
	}
	for _, field := range []string{"sku", "number"} {
		if _, ok := verr.Fields[field]; ok {
			return true
		}
	}
	return false
}

func ptr(v string) *string { return &v }
