package payments

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"storefront/internal/platform/database"
)

// ErrDuplicateEvent means the event id was already recorded: a prior (or
// concurrent) delivery owns its side effects.
var ErrDuplicateEvent = errors.New("event already processed")

// RecordEvent inserts the event id into the idempotency ledger. The insert
// itself is the duplicate gate: a unique-constraint failure is the signal,
// not a separate existence check, so two concurrent deliveries of the same
// id cannot both pass.
func RecordEvent(ctx context.Context, tx *sql.Tx, eventID string) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO processed_events (id, received_at) VALUES (?, ?)`,
		eventID, time.Now().Unix())
	if err != nil {
		if database.IsUniqueViolation(err) {
			return ErrDuplicateEvent
		}
		return err
	}
	return nil
}
