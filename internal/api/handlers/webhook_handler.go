package handlers

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"storefront/internal/engine/payments"
)

// maxWebhookBody caps the raw body read; provider events are small.
const maxWebhookBody = 1 << 20

// SignatureHeaderName carries the provider's timestamped signature.
const SignatureHeaderName = "Stripe-Signature"

type WebhookHandler struct {
	secret    string
	tolerance time.Duration
	processor *payments.Processor
}

func NewWebhookHandler(secret string, tolerance time.Duration, processor *payments.Processor) *WebhookHandler {
	return &WebhookHandler{
		secret:    secret,
		tolerance: tolerance,
		processor: processor,
	}
}

// Handle is the inbound webhook endpoint. Responses are short text bodies:
// the caller is a machine that only acts on the status code, and any non-2xx
// triggers redelivery.
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	// The signature covers the exact wire bytes; the body must be read raw
	// before any JSON parsing.
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		text(w, http.StatusBadRequest, "unreadable body")
		return
	}

	sigHeader := r.Header.Get(SignatureHeaderName)
	if !payments.VerifySignature(raw, sigHeader, h.secret, time.Now(), h.tolerance) {
		text(w, http.StatusUnauthorized, "invalid signature")
		return
	}

	event, err := payments.ParseEvent(raw)
	if err != nil {
		text(w, http.StatusBadRequest, "bad json")
		return
	}
	if event.ID == "" {
		text(w, http.StatusBadRequest, "missing event id")
		return
	}

	if event.Type != payments.EventCheckoutSessionCompleted {
		text(w, http.StatusOK, "ignored")
		return
	}

	if event.Data.Object.ID == "" {
		text(w, http.StatusBadRequest, "missing session id")
		return
	}

	if !event.Paid() {
		text(w, http.StatusOK, "not_paid")
		return
	}

	outcome, err := h.processor.Process(r.Context(), event)
	if err != nil {
		var providerErr *payments.ProviderError
		if errors.As(err, &providerErr) {
			log.Error().Err(err).Str("event_id", event.ID).Msg("provider fetch failed")
			text(w, http.StatusBadGateway, "provider unavailable")
			return
		}
		log.Error().Err(err).Str("event_id", event.ID).Msg("fulfillment failed")
		text(w, http.StatusInternalServerError, "store error")
		return
	}

	switch outcome {
	case payments.OutcomeApplied:
		text(w, http.StatusOK, "ok")
	case payments.OutcomeAppliedWithWarnings:
		text(w, http.StatusOK, "completed_with_warnings")
	case payments.OutcomeDuplicate:
		text(w, http.StatusOK, "duplicate")
	case payments.OutcomeOrderExists:
		text(w, http.StatusOK, "order_exists")
	case payments.OutcomeNoPurchasableItems:
		text(w, http.StatusOK, "no purchasable items")
	default:
		text(w, http.StatusOK, "ok")
	}
}

func text(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	w.Write([]byte(body))
}
