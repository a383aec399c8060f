package payments

import (
	"database/sql"
	"path/filepath"
	"testing"

	"storefront/internal/platform/config"
	"storefront/internal/platform/database"
)

const testSchema = `
CREATE TABLE items (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	slug TEXT UNIQUE NOT NULL,
	title TEXT NOT NULL,
	active INTEGER NOT NULL DEFAULT 1,
	created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now')),
	updated_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
);
CREATE TABLE variants (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	item_id INTEGER NOT NULL REFERENCES items(id),
	size TEXT NOT NULL,
	active INTEGER NOT NULL DEFAULT 1,
	stock INTEGER NOT NULL DEFAULT 0 CHECK (stock >= 0),
	price_cents INTEGER NOT NULL,
	price_id TEXT UNIQUE,
	created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now')),
	updated_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now')),
	UNIQUE (item_id, size)
);
CREATE TABLE processed_events (
	id TEXT PRIMARY KEY,
	received_at INTEGER NOT NULL
);
CREATE TABLE orders (
	id TEXT PRIMARY KEY,
	session_id TEXT UNIQUE NOT NULL,
	payment_intent_id TEXT,
	customer_email TEXT,
	customer_name TEXT,
	customer_phone TEXT,
	total_cents INTEGER,
	currency TEXT,
	created_at INTEGER NOT NULL
);
CREATE TABLE order_items (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	order_id TEXT NOT NULL REFERENCES orders(id),
	price_id TEXT NOT NULL,
	quantity INTEGER NOT NULL,
	item_id INTEGER,
	size TEXT,
	price_cents INTEGER,
	created_at INTEGER NOT NULL
);
CREATE TABLE webhook_audit (
	id TEXT PRIMARY KEY,
	stage TEXT NOT NULL,
	event_id TEXT,
	price_id TEXT,
	quantity INTEGER,
	rows_affected INTEGER,
	note TEXT,
	created_at INTEGER NOT NULL
);
`

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := database.New(config.DatabaseConfig{
		Path:           filepath.Join(t.TempDir(), "test.db"),
		MaxConnections: 10,
	})
	if err != nil {
		t.Fatalf("Failed to open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, err := db.Exec(testSchema); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}
	return db
}

func seedVariant(t *testing.T, db *sql.DB, slug, size, priceID string, stock int, priceCents int64, active bool) {
	t.Helper()

	res, err := db.Exec(`INSERT OR IGNORE INTO items (slug, title, active) VALUES (?, ?, 1)`, slug, slug)
	if err != nil {
		t.Fatalf("Failed to seed item: %v", err)
	}
	itemID, _ := res.LastInsertId()
	if itemID == 0 {
		if err := db.QueryRow(`SELECT id FROM items WHERE slug = ?`, slug).Scan(&itemID); err != nil {
			t.Fatalf("Failed to resolve item id: %v", err)
		}
	}

	activeVal := 0
	if active {
		activeVal = 1
	}
	_, err = db.Exec(
		`INSERT INTO variants (item_id, size, active, stock, price_cents, price_id) VALUES (?, ?, ?, ?, ?, ?)`,
		itemID, size, activeVal, stock, priceCents, priceID)
	if err != nil {
		t.Fatalf("Failed to seed variant: %v", err)
	}
}

func variantStock(t *testing.T, db *sql.DB, priceID string) int {
	t.Helper()

	var stock int
	if err := db.QueryRow(`SELECT stock FROM variants WHERE price_id = ?`, priceID).Scan(&stock); err != nil {
		t.Fatalf("Failed to read stock for %s: %v", priceID, err)
	}
	return stock
}
