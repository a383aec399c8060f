package database

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"storefront/internal/platform/config"
)

// New opens the store database. Both the webhook pipeline and the API share
// this single handle; all cross-delivery coordination (idempotency ledger,
// guarded stock decrements) goes through it.
func New(cfg config.DatabaseConfig) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?_fk=1&_busy_timeout=5000&_journal_mode=WAL", cfg.Path)

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}

	maxConns := cfg.MaxConnections
	if maxConns <= 0 {
		maxConns = 10
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		return nil, err
	}

	return db, nil
}
