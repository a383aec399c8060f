package audit

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Pipeline stages recorded in the webhook_audit table.
const (
	StageReceived             = "received"
	StagePurchasesBuilt       = "purchases_built"
	StageSessionFetchFailed   = "session_fetch_failed"
	StageLineItemsFetchFailed = "line_items_fetch_failed"
	StageDuplicateEvent       = "duplicate_event"
	StageOrderExists          = "order_exists"
	StageMissingVariant       = "missing_variant"
	StageDecrementAttempt     = "decrement_attempt"
	StageException            = "exception"
)

type Entry struct {
	Stage        string
	EventID      string
	PriceID      string
	Quantity     *int
	RowsAffected *int64
	Note         string
}

// Execer is satisfied by both *sql.DB and *sql.Tx, so stage entries emitted
// mid-pipeline can ride the open transaction while rejection entries use the
// plain handle.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

type Trail struct{}

func NewTrail() *Trail {
	return &Trail{}
}

// Record appends one entry. Failures are swallowed: observability must never
// become a new failure mode for the pipeline.
func (t *Trail) Record(ctx context.Context, db Execer, e Entry) {
	query := `
		INSERT INTO webhook_audit (id, stage, event_id, price_id, quantity, rows_affected, note, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	var eventID, priceID, note interface{}
	if e.EventID != "" {
		eventID = e.EventID
	}
	if e.PriceID != "" {
		priceID = e.PriceID
	}
	if e.Note != "" {
		note = e.Note
	}
	var quantity, rowsAffected interface{}
	if e.Quantity != nil {
		quantity = *e.Quantity
	}
	if e.RowsAffected != nil {
		rowsAffected = *e.RowsAffected
	}

	id := "aud_" + uuid.New().String()
	if _, err := db.ExecContext(ctx, query, id, e.Stage, eventID, priceID, quantity, rowsAffected, note, time.Now().Unix()); err != nil {
		log.Debug().Err(err).Str("stage", e.Stage).Msg("audit write failed")
	}
}
