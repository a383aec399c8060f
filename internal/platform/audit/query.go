package audit

import (
	"context"
	"database/sql"
)

type Record struct {
	ID           string  `json:"id"`
	Stage        string  `json:"stage"`
	EventID      *string `json:"event_id,omitempty"`
	PriceID      *string `json:"price_id,omitempty"`
	Quantity     *int    `json:"quantity,omitempty"`
	RowsAffected *int64  `json:"rows_affected,omitempty"`
	Note         *string `json:"note,omitempty"`
	CreatedAt    int64   `json:"created_at"`
}

type Filter struct {
	Stage   string
	EventID string
	Limit   int
	Offset  int
}

// List returns audit entries, newest first. Used by the reconciliation API to
// chase completed_with_warnings deliveries.
func List(ctx context.Context, db *sql.DB, f Filter) ([]*Record, error) {
	query := `
		SELECT id, stage, event_id, price_id, quantity, rows_affected, note, created_at
		FROM webhook_audit
		WHERE (? = '' OR stage = ?)
		  AND (? = '' OR event_id = ?)
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`

	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	rows, err := db.QueryContext(ctx, query, f.Stage, f.Stage, f.EventID, f.EventID, limit, f.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		var rec Record
		var eventID, priceID, note sql.NullString
		var quantity sql.NullInt64
		var rowsAffected sql.NullInt64

		if err := rows.Scan(&rec.ID, &rec.Stage, &eventID, &priceID, &quantity, &rowsAffected, &note, &rec.CreatedAt); err != nil {
			return nil, err
		}

		if eventID.Valid {
			rec.EventID = &eventID.String
		}
		if priceID.Valid {
			rec.PriceID = &priceID.String
		}
		if quantity.Valid {
			q := int(quantity.Int64)
			rec.Quantity = &q
		}
		if rowsAffected.Valid {
			rec.RowsAffected = &rowsAffected.Int64
		}
		if note.Valid {
			rec.Note = &note.String
		}

		records = append(records, &rec)
	}
	return records, rows.Err()
}
