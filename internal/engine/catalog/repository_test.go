package catalog

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"storefront/internal/platform/config"
	"storefront/internal/platform/database"
)

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

	schema := `
	CREATE TABLE items (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		slug TEXT UNIQUE NOT NULL,
		title TEXT NOT NULL,
		active INTEGER NOT NULL DEFAULT 1
	);
	CREATE TABLE variants (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		item_id INTEGER NOT NULL REFERENCES items(id),
		size TEXT NOT NULL,
		active INTEGER NOT NULL DEFAULT 1,
		stock INTEGER NOT NULL DEFAULT 0 CHECK (stock >= 0),
		price_cents INTEGER NOT NULL,
		price_id TEXT UNIQUE,
		updated_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now')),
		UNIQUE (item_id, size)
	);
	`
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}
	return db
}

func seedCatalog(t *testing.T, db *sql.DB) {
	t.Helper()

	_, err := db.Exec(`
		INSERT INTO items (id, slug, title, active) VALUES
			(1, 't-shirts', 'Logo T-Shirt', 1),
			(2, 'hoodies', 'Zip Hoodie', 0);
		INSERT INTO variants (item_id, size, active, stock, price_cents, price_id) VALUES
			(1, 'M', 1, 10, 2500, 'price_tshirt_m'),
			(1, 'L', 0, 10, 2500, 'price_tshirt_l'),
			(2, 'M', 1, 5, 5500, 'price_hoodie_m');
	`)
	if err != nil {
		t.Fatalf("Failed to seed catalog: %v", err)
	}
}

func stockOf(t *testing.T, db *sql.DB, priceID string) int {
	t.Helper()
	var stock int
	if err := db.QueryRow(`SELECT stock FROM variants WHERE price_id = ?`, priceID).Scan(&stock); err != nil {
		t.Fatalf("Failed to read stock: %v", err)
	}
	return stock
}

func TestGetBySlugAndSize(t *testing.T) {
	db := setupTestDB(t)
	seedCatalog(t, db)
	repo := NewRepository(db)
	ctx := context.Background()

	v, err := repo.GetBySlugAndSize(ctx, "t-shirts", "M")
	if err != nil {
		t.Fatalf("GetBySlugAndSize failed: %v", err)
	}
	if v.PriceID != "price_tshirt_m" {
		t.Errorf("price id = %s, want price_tshirt_m", v.PriceID)
	}
	if v.Item == nil || v.Item.Slug != "t-shirts" {
		t.Errorf("expected joined item, got %+v", v.Item)
	}
	if !v.Active || !v.Item.Active {
		t.Error("expected variant and item both active")
	}

	// Inactive item still loads; the handler decides what to do with it.
	v, err = repo.GetBySlugAndSize(ctx, "hoodies", "M")
	if err != nil {
		t.Fatalf("GetBySlugAndSize failed: %v", err)
	}
	if v.Item.Active {
		t.Error("expected inactive item flag to come through")
	}

	_, err = repo.GetBySlugAndSize(ctx, "t-shirts", "XXL")
	if !errors.Is(err, ErrVariantNotFound) {
		t.Errorf("expected ErrVariantNotFound, got %v", err)
	}
}

func TestSnapshotByPriceID(t *testing.T) {
	db := setupTestDB(t)
	seedCatalog(t, db)
	repo := NewRepository(db)
	ctx := context.Background()

	snap, err := repo.SnapshotByPriceID(ctx, "price_tshirt_m")
	if err != nil {
		t.Fatalf("SnapshotByPriceID failed: %v", err)
	}
	if snap == nil {
		t.Fatal("expected snapshot, got nil")
	}
	if snap.ItemID != 1 || snap.Size != "M" || snap.PriceCents != 2500 {
		t.Errorf("unexpected snapshot: %+v", snap)
	}

	snap, err = repo.SnapshotByPriceID(ctx, "price_gone")
	if err != nil {
		t.Fatalf("SnapshotByPriceID failed: %v", err)
	}
	if snap != nil {
		t.Errorf("expected nil snapshot for unknown price id, got %+v", snap)
	}
}

func TestConditionalDecrement(t *testing.T) {
	tests := []struct {
		name         string
		priceID      string
		qty          int
		wantAffected int64
		wantStock    int
	}{
		{"sufficient stock decrements", "price_tshirt_m", 3, 1, 7},
		{"exact stock drains to zero", "price_tshirt_m", 10, 1, 0},
		{"insufficient stock refuses", "price_tshirt_m", 11, 0, 10},
		{"inactive variant refuses", "price_tshirt_l", 1, 0, 10},
		{"unknown price id affects nothing", "price_gone", 1, 0, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := setupTestDB(t)
			seedCatalog(t, db)
			repo := NewRepository(db)
			ctx := context.Background()

			tx, err := db.BeginTx(ctx, nil)
			if err != nil {
				t.Fatalf("begin: %v", err)
			}
			affected, err := repo.ConditionalDecrement(ctx, tx, tt.priceID, tt.qty)
			if err != nil {
				t.Fatalf("ConditionalDecrement failed: %v", err)
			}
			if err := tx.Commit(); err != nil {
				t.Fatalf("commit: %v", err)
			}

			if affected != tt.wantAffected {
				t.Errorf("rows affected = %d, want %d", affected, tt.wantAffected)
			}
			if tt.wantStock >= 0 {
				if stock := stockOf(t, db, tt.priceID); stock != tt.wantStock {
					t.Errorf("stock = %d, want %d", stock, tt.wantStock)
				}
			}
		})
	}
}

// Many concurrent buyers racing for limited stock must never push it below
// zero, and exactly stock-many attempts may succeed.
func TestConditionalDecrement_NoOversell(t *testing.T) {
	db := setupTestDB(t)
	seedCatalog(t, db)
	repo := NewRepository(db)
	ctx := context.Background()

	const attempts = 25
	const initialStock = 10

	// SQLite write transactions can lose the lock-upgrade race under
	// contention, so each attempt retries until its transaction commits.
	var wg sync.WaitGroup
	successes := make(chan int64, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				tx, err := db.BeginTx(ctx, nil)
				if err != nil {
					continue
				}
				affected, err := repo.ConditionalDecrement(ctx, tx, "price_tshirt_m", 1)
				if err != nil {
					tx.Rollback()
					continue
				}
				if err := tx.Commit(); err != nil {
					continue
				}
				successes <- affected
				return
			}
		}()
	}
	wg.Wait()
	close(successes)

	var won int64
	for affected := range successes {
		won += affected
	}
	if won != initialStock {
		t.Errorf("successful decrements = %d, want %d", won, initialStock)
	}
	if stock := stockOf(t, db, "price_tshirt_m"); stock != 0 {
		t.Errorf("final stock = %d, want 0", stock)
	}
}
