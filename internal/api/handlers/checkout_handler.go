package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"storefront/internal/engine/catalog"
	"storefront/internal/engine/payments"
	"storefront/internal/pkg/errors"
	"storefront/internal/platform/config"
)

// SessionCreator is the slice of the payments client the checkout path uses.
type SessionCreator interface {
	CreateCheckoutSession(ctx context.Context, p payments.CreateSessionParams) (*payments.Session, error)
}

type CheckoutHandler struct {
	catalog      *catalog.Repository
	client       SessionCreator
	cfg          config.CheckoutConfig
	storeEnabled bool
	allowedSizes map[string]bool
}

func NewCheckoutHandler(catalogRepo *catalog.Repository, client SessionCreator, cfg config.CheckoutConfig, storeEnabled bool) *CheckoutHandler {
	sizes := make(map[string]bool, len(cfg.AllowedSizes))
	for _, s := range cfg.AllowedSizes {
		sizes[strings.ToUpper(s)] = true
	}
	return &CheckoutHandler{
		catalog:      catalogRepo,
		client:       client,
		cfg:          cfg,
		storeEnabled: storeEnabled,
		allowedSizes: sizes,
	}
}

type checkoutRequest struct {
	Slug     string `json:"slug"`
	Size     string `json:"size"`
	Quantity int    `json:"quantity"`
}

// Create validates the requested variant and asks the provider for a hosted
// payment session. The only thing the storefront needs back is the redirect
// URL; fulfillment happens later via the webhook.
func (h *CheckoutHandler) Create(w http.ResponseWriter, r *http.Request) {
	if !h.storeEnabled {
		errors.WriteError(w, http.StatusServiceUnavailable, errors.ErrCodeStoreDisabled, "Store temporarily unavailable", nil)
		return
	}

	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}

	slug := strings.TrimSpace(req.Slug)
	size := strings.ToUpper(strings.TrimSpace(req.Size))

	if slug == "" || !h.allowedSizes[size] || req.Quantity < 1 || req.Quantity > h.cfg.MaxQuantity {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Invalid slug, size or quantity", nil)
		return
	}

	variant, err := h.catalog.GetBySlugAndSize(r.Context(), slug, size)
	if err != nil {
		if err == catalog.ErrVariantNotFound {
			errors.WriteError(w, http.StatusNotFound, errors.ErrCodeNotFound, "Item not found", nil)
			return
		}
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Store lookup failed", nil)
		return
	}

	switch {
	case variant.Item != nil && !variant.Item.Active:
		errors.WriteError(w, http.StatusConflict, errors.ErrCodeConflict, "Item is not available", nil)
		return
	case !variant.Active:
		errors.WriteError(w, http.StatusConflict, errors.ErrCodeConflict, "Variant is not available", nil)
		return
	case variant.Stock <= 0 || variant.Stock < req.Quantity:
		errors.WriteError(w, http.StatusConflict, errors.ErrCodeOutOfStock, "Not enough stock", nil)
		return
	case variant.PriceID == "":
		errors.WriteError(w, http.StatusConflict, errors.ErrCodeConflict, "Variant has no price reference", nil)
		return
	}

	successURL := fmt.Sprintf("%s/apparel/%s?paid=1&session_id={CHECKOUT_SESSION_ID}",
		h.cfg.SiteOrigin, url.PathEscape(slug))
	cancelURL := fmt.Sprintf("%s/apparel/%s?cancelled=1", h.cfg.SiteOrigin, url.PathEscape(slug))

	session, err := h.client.CreateCheckoutSession(r.Context(), payments.CreateSessionParams{
		PriceID:           variant.PriceID,
		Quantity:          req.Quantity,
		SuccessURL:        successURL,
		CancelURL:         cancelURL,
		ClientReferenceID: slug + ":" + size,
		Metadata: map[string]string{
			"slug":     slug,
			"size":     size,
			"quantity": strconv.Itoa(req.Quantity),
		},
		AllowedCountries: h.cfg.AllowedCountries,
		CollectPhone:     true,
	})
	if err != nil {
		log.Error().Err(err).Str("slug", slug).Str("size", size).Msg("create checkout session failed")
		errors.WriteError(w, http.StatusBadGateway, errors.ErrCodeUpstream, "Payment provider unavailable", nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"url": session.URL})
}
