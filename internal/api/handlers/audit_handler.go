package handlers

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"strconv"

	"storefront/internal/pkg/errors"
	"storefront/internal/platform/audit"
)

// AuditHandler exposes the webhook audit trail for manual reconciliation of
// completed_with_warnings deliveries.
type AuditHandler struct {
	db *sql.DB
}

func NewAuditHandler(db *sql.DB) *AuditHandler {
	return &AuditHandler{db: db}
}

func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	records, err := audit.List(r.Context(), h.db, audit.Filter{
		Stage:   q.Get("stage"),
		EventID: q.Get("event_id"),
		Limit:   limit,
		Offset:  offset,
	})
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to list audit entries", nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(records)
}
