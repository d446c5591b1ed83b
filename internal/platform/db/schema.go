package db

import (
	"context"
	"fmt"
	"strings"
)

// schema is written once with type tokens that Bootstrap resolves per dialect.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS categories (
		id ID_T PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		business_id TEXT,
		created_at TS_T NOT NULL,
		updated_at TS_T NOT NULL,
		deleted_at TS_T
	)`,
	`CREATE TABLE IF NOT EXISTS suppliers (
		id ID_T PRIMARY KEY,
		name TEXT NOT NULL,
		contact_person TEXT,
		phone TEXT,
		email TEXT,
		address TEXT,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		business_id TEXT,
		created_at TS_T NOT NULL,
		updated_at TS_T NOT NULL,
		deleted_at TS_T
	)`,
	`CREATE TABLE IF NOT EXISTS customers (
		id ID_T PRIMARY KEY,
		name TEXT NOT NULL,
		phone TEXT,
		email TEXT,
		address TEXT,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		business_id TEXT,
		created_at TS_T NOT NULL,
		updated_at TS_T NOT NULL,
		deleted_at TS_T
	)`,
	`CREATE TABLE IF NOT EXISTS products (
		id ID_T PRIMARY KEY,
		sku TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		description TEXT,
		price MONEY_T NOT NULL DEFAULT 0,
		cost_price MONEY_T NOT NULL DEFAULT 0,
		tax_rate MONEY_T NOT NULL DEFAULT 0,
		stock_qty BIGINT NOT NULL DEFAULT 0,
		opening_qty BIGINT NOT NULL DEFAULT 0,
		movement_seq BIGINT NOT NULL DEFAULT 0,
		low_stock_threshold BIGINT NOT NULL DEFAULT 10,
		unit TEXT NOT NULL DEFAULT 'pcs',
		barcode TEXT,
		category_id ID_T REFERENCES categories(id),
		supplier_id ID_T REFERENCES suppliers(id),
		image_url TEXT,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		business_id TEXT,
		created_at TS_T NOT NULL,
		updated_at TS_T NOT NULL,
		deleted_at TS_T
	)`,
	`CREATE INDEX IF NOT EXISTS idx_products_created_at ON products (created_at)`,
	`CREATE TABLE IF NOT EXISTS invoices (
		id ID_T PRIMARY KEY,
		number TEXT NOT NULL UNIQUE,
		kind TEXT NOT NULL,
		customer_id ID_T REFERENCES customers(id),
		supplier_id ID_T REFERENCES suppliers(id),
		status TEXT NOT NULL,
		subtotal MONEY_T NOT NULL DEFAULT 0,
		discount MONEY_T NOT NULL DEFAULT 0,
		tax MONEY_T NOT NULL DEFAULT 0,
		total MONEY_T NOT NULL DEFAULT 0,
		amount_paid MONEY_T NOT NULL DEFAULT 0,
		note TEXT NOT NULL DEFAULT '',
		issued_at TS_T NOT NULL,
		created_by TEXT,
		business_id TEXT,
		created_at TS_T NOT NULL,
		updated_at TS_T NOT NULL,
		deleted_at TS_T
	)`,
	`CREATE TABLE IF NOT EXISTS invoice_items (
		id ID_T PRIMARY KEY,
		invoice_id ID_T NOT NULL REFERENCES invoices(id),
		product_id ID_T NOT NULL REFERENCES products(id),
		line_no INTEGER NOT NULL,
		sku TEXT NOT NULL,
		product_name TEXT NOT NULL,
		quantity BIGINT NOT NULL,
		unit_price MONEY_T NOT NULL,
		tax_rate MONEY_T NOT NULL,
		line_total MONEY_T NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS payments (
		id ID_T PRIMARY KEY,
		invoice_id ID_T NOT NULL REFERENCES invoices(id),
		amount MONEY_T NOT NULL,
		method TEXT NOT NULL,
		reference TEXT,
		paid_at TS_T NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS stock_movements (
		id ID_T PRIMARY KEY,
		product_id ID_T NOT NULL REFERENCES products(id),
		invoice_id ID_T REFERENCES invoices(id),
		kind TEXT NOT NULL,
		quantity BIGINT NOT NULL,
		quantity_before BIGINT NOT NULL,
		quantity_after BIGINT NOT NULL,
		sequence BIGINT NOT NULL,
		note TEXT NOT NULL DEFAULT '',
		created_by TEXT,
		business_id TEXT,
		created_at TS_T NOT NULL,
		UNIQUE (product_id, sequence),
		CHECK (quantity_after = quantity_before + quantity)
	)`,
	`CREATE TABLE IF NOT EXISTS audit_logs (
		id SERIAL_PK,
		actor_id TEXT,
		action TEXT NOT NULL,
		entity TEXT NOT NULL,
		entity_id TEXT NOT NULL,
		meta TEXT,
		occurred_at TS_T NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS idempotency_keys (
		key TEXT PRIMARY KEY,
		module TEXT NOT NULL,
		created_at TS_T NOT NULL
	)`,
}

func (d Dialect) typeReplacer() *strings.Replacer {
	if d == Postgres {
		return strings.NewReplacer(
			"ID_T", "TEXT",
			"TS_T", "TIMESTAMPTZ",
			"MONEY_T", "NUMERIC(18,4)",
			"SERIAL_PK", "BIGSERIAL PRIMARY KEY",
		)
	}
	return strings.NewReplacer(
		"ID_T", "TEXT",
		"TS_T", "TIMESTAMP",
		"MONEY_T", "TEXT",
		"SERIAL_PK", "INTEGER PRIMARY KEY AUTOINCREMENT",
	)
}

// postgresFunctions mirror the scalar functions registered with the SQLite driver.
var postgresFunctions = []string{
	`CREATE OR REPLACE FUNCTION ` + FoldFunc + `(value TEXT) RETURNS TEXT
		LANGUAGE SQL IMMUTABLE PARALLEL SAFE AS $$ SELECT lower(value) $$`,
}

// Bootstrap creates any missing tables. It is idempotent and does not evolve existing tables.
func (d *DB) Bootstrap(ctx context.Context) error {
	r := d.dialect.typeReplacer()
	for i, stmt := range schema {
		if _, err := d.sql.ExecContext(ctx, r.Replace(stmt)); err != nil {
			return fmt.Errorf("platform/db: bootstrap statement %d: %w", i, err)
		}
	}
	if d.dialect == Postgres {
		for _, stmt := range postgresFunctions {
			if _, err := d.sql.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("platform/db: bootstrap function: %w", err)
			}
		}
	}
	return nil
}
