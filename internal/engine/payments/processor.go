package payments

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"storefront/internal/engine/catalog"
	"storefront/internal/engine/orders"
	"storefront/internal/platform/audit"
	"storefront/internal/platform/models"
)

// Outcome classifies what a delivery did. Everything except an error is
// reported to the provider as success so it stops redelivering.
type Outcome string

const (
	OutcomeApplied             Outcome = "applied"
	OutcomeAppliedWithWarnings Outcome = "applied_with_warnings"
	OutcomeDuplicate           Outcome = "duplicate"
	OutcomeOrderExists         Outcome = "order_exists"
	OutcomeNoPurchasableItems  Outcome = "no_purchasable_items"
)

// Purchase is one distinct purchased variant derived from the provider's
// line items.
type Purchase struct {
	PriceID  string `json:"price_id"`
	Quantity int    `json:"quantity"`
}

// SessionFetcher is the slice of the provider client the processor needs.
type SessionFetcher interface {
	GetCheckoutSession(ctx context.Context, sessionID string) (*Session, error)
	ListLineItems(ctx context.Context, sessionID string) ([]LineItem, error)
}

// Processor turns one authenticated checkout-completed event into durable,
// non-duplicated side effects: the ledger entry, the order with its item
// snapshots, and the guarded stock decrements, all in a single transaction.
type Processor struct {
	db      *sql.DB
	client  SessionFetcher
	catalog *catalog.Repository
	orders  *orders.Repository
	trail   *audit.Trail
}

func NewProcessor(db *sql.DB, client SessionFetcher, catalogRepo *catalog.Repository, orderRepo *orders.Repository, trail *audit.Trail) *Processor {
	return &Processor{
		db:      db,
		client:  client,
		catalog: catalogRepo,
		orders:  orderRepo,
		trail:   trail,
	}
}

// Process handles one verified checkout.session.completed event. Provider
// and store errors are returned to the caller, which answers non-2xx so the
// provider redelivers; the ledger makes that redelivery safe.
func (p *Processor) Process(ctx context.Context, event *Event) (Outcome, error) {
	p.trail.Record(ctx, p.db, audit.Entry{
		Stage:   audit.StageReceived,
		EventID: event.ID,
		Note:    event.Type,
	})

	sessionID := event.Data.Object.ID

	session, err := p.client.GetCheckoutSession(ctx, sessionID)
	if err != nil {
		p.trail.Record(ctx, p.db, audit.Entry{
			Stage:   audit.StageSessionFetchFailed,
			EventID: event.ID,
			Note:    err.Error(),
		})
		return "", err
	}

	lineItems, err := p.client.ListLineItems(ctx, sessionID)
	if err != nil {
		p.trail.Record(ctx, p.db, audit.Entry{
			Stage:   audit.StageLineItemsFetchFailed,
			EventID: event.ID,
			Note:    err.Error(),
		})
		return "", err
	}

	purchases := BuildPurchases(lineItems)

	if note, err := json.Marshal(purchases); err == nil {
		p.trail.Record(ctx, p.db, audit.Entry{
			Stage:   audit.StagePurchasesBuilt,
			EventID: event.ID,
			Note:    string(note),
		})
	}

	if len(purchases) == 0 {
		return OutcomeNoPurchasableItems, nil
	}

	outcome, err := p.apply(ctx, event.ID, session, purchases)
	if err != nil {
		p.trail.Record(ctx, p.db, audit.Entry{
			Stage:   audit.StageException,
			EventID: event.ID,
			Note:    err.Error(),
		})
		return "", err
	}
	return outcome, nil
}

// BuildPurchases derives the purchase list from raw line items, dropping
// lines without a price reference or a positive quantity.
func BuildPurchases(lineItems []LineItem) []Purchase {
	purchases := make([]Purchase, 0, len(lineItems))
	for _, li := range lineItems {
		if li.Price.ID == "" || li.Quantity < 1 {
			continue
		}
		purchases = append(purchases, Purchase{PriceID: li.Price.ID, Quantity: li.Quantity})
	}
	return purchases
}

// apply runs the transactional tail of the pipeline. A crash anywhere before
// commit rolls everything back, so a committed order always has its ledger
// entry and its decrement attempts, and vice versa.
func (p *Processor) apply(ctx context.Context, eventID string, session *Session, purchases []Purchase) (Outcome, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Idempotency first: the unique insert is the only duplicate gate.
	if err := RecordEvent(ctx, tx, eventID); err != nil {
		if errors.Is(err, ErrDuplicateEvent) {
			tx.Rollback()
			p.trail.Record(ctx, p.db, audit.Entry{
				Stage:   audit.StageDuplicateEvent,
				EventID: eventID,
			})
			return OutcomeDuplicate, nil
		}
		return "", err
	}

	order := &models.Order{
		SessionID:       session.ID,
		PaymentIntentID: session.PaymentIntent,
		TotalCents:      session.AmountTotal,
		Currency:        session.Currency,
	}
	if cd := session.CustomerDetails; cd != nil {
		order.CustomerEmail = cd.Email
		order.CustomerName = cd.Name
		order.CustomerPhone = cd.Phone
	}

	if err := p.orders.Create(ctx, tx, order); err != nil {
		if errors.Is(err, orders.ErrOrderExists) {
			// A prior attempt committed the order after its ledger insert
			// was lost (crash mid-pipeline). Already handled.
			tx.Rollback()
			p.trail.Record(ctx, p.db, audit.Entry{
				Stage:   audit.StageOrderExists,
				EventID: eventID,
				Note:    session.ID,
			})
			return OutcomeOrderExists, nil
		}
		return "", err
	}

	for _, purchase := range purchases {
		snap, err := p.catalog.SnapshotByPriceID(ctx, purchase.PriceID)
		if err != nil {
			return "", err
		}

		item := &models.OrderItem{
			OrderID:  order.ID,
			PriceID:  purchase.PriceID,
			Quantity: purchase.Quantity,
		}
		if snap != nil {
			item.ItemID = &snap.ItemID
			item.Size = &snap.Size
			item.PriceCents = &snap.PriceCents
		} else {
			// Variant deleted since purchase. Keep the line; the decrement
			// below will affect zero rows and surface in the audit trail.
			qty := purchase.Quantity
			p.trail.Record(ctx, tx, audit.Entry{
				Stage:    audit.StageMissingVariant,
				EventID:  eventID,
				PriceID:  purchase.PriceID,
				Quantity: &qty,
				Note:     "price id not found in variants",
			})
		}

		if err := p.orders.CreateItem(ctx, tx, item); err != nil {
			return "", err
		}
	}

	warnings := 0
	for _, purchase := range purchases {
		affected, err := p.catalog.ConditionalDecrement(ctx, tx, purchase.PriceID, purchase.Quantity)
		if err != nil {
			return "", err
		}

		qty := purchase.Quantity
		rows := affected
		p.trail.Record(ctx, tx, audit.Entry{
			Stage:        audit.StageDecrementAttempt,
			EventID:      eventID,
			PriceID:      purchase.PriceID,
			Quantity:     &qty,
			RowsAffected: &rows,
		})

		if affected == 0 {
			// Guard failed: out of stock, inactive, or unknown price id. The
			// order stays as the financial record of truth; the discrepancy
			// is left to manual reconciliation.
			warnings++
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit fulfillment: %w", err)
	}

	if warnings > 0 {
		log.Warn().
			Str("event_id", eventID).
			Str("order_id", order.ID).
			Int("failed_decrements", warnings).
			Msg("fulfillment completed with warnings")
		return OutcomeAppliedWithWarnings, nil
	}

	log.Info().
		Str("event_id", eventID).
		Str("order_id", order.ID).
		Int("lines", len(purchases)).
		Msg("fulfillment applied")
	return OutcomeApplied, nil
}
