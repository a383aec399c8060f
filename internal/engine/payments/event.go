package payments

import (
	"encoding/json"
	"fmt"
)

// EventCheckoutSessionCompleted is the only event type that mutates
// inventory; everything else is acknowledged and dropped.
const EventCheckoutSessionCompleted = "checkout.session.completed"

// Event is the inbound webhook notification. Only the envelope and the
// embedded session summary are decoded; the canonical session is re-fetched
// from the provider before any local state is touched.
type Event struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Created int64  `json:"created"`
	Data    struct {
		Object EventSession `json:"object"`
	} `json:"data"`
}

type EventSession struct {
	ID            string `json:"id"`
	Mode          string `json:"mode"`
	PaymentStatus string `json:"payment_status"`
}

func ParseEvent(raw []byte) (*Event, error) {
	var event Event
	if err := json.Unmarshal(raw, &event); err != nil {
		return nil, fmt.Errorf("parse webhook event: %w", err)
	}
	return &event, nil
}

// Paid reports whether the embedded session describes a completed payment.
func (e *Event) Paid() bool {
	return e.Data.Object.Mode == "payment" && e.Data.Object.PaymentStatus == "paid"
}
