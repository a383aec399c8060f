package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"
	apiContext "storefront/internal/api/context"
	"storefront/internal/engine/orders"
	"storefront/internal/pkg/errors"
)

type OrderHandler struct {
	repo *orders.Repository
}

func NewOrderHandler(repo *orders.Repository) *OrderHandler {
	return &OrderHandler{repo: repo}
}

func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	list, err := h.repo.List(r.Context(), limit, offset)
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to list orders", nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(list)
}

func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	params := r.Context().Value(apiContext.Params).(httprouter.Params)
	id := params.ByName("order_id")

	order, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		if err == orders.ErrOrderNotFound {
			errors.WriteError(w, http.StatusNotFound, errors.ErrCodeNotFound, "Order not found", nil)
			return
		}
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to load order", nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(order)
}
