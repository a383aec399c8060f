package orders

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"storefront/internal/platform/database"
	"storefront/internal/platform/models"
)

// ErrOrderExists means an order for the session id was already written by a
// previous delivery; callers treat it as already handled, not as a failure.
var ErrOrderExists = errors.New("order already exists for session")

var ErrOrderNotFound = errors.New("order not found")

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts the order row inside the caller's transaction. The unique
// constraint on session_id covers the crash-recovery case where the ledger
// insert succeeded but a prior attempt already committed this order.
func (r *Repository) Create(ctx context.Context, tx *sql.Tx, order *models.Order) error {
	order.ID = "ord_" + uuid.New().String()
	order.CreatedAt = time.Now().Unix()

	query := `
		INSERT INTO orders (
			id, session_id, payment_intent_id, customer_email, customer_name,
			customer_phone, total_cents, currency, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := tx.ExecContext(ctx, query,
		order.ID,
		order.SessionID,
		order.PaymentIntentID,
		order.CustomerEmail,
		order.CustomerName,
		order.CustomerPhone,
		order.TotalCents,
		order.Currency,
		order.CreatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return ErrOrderExists
		}
		return err
	}
	return nil
}

// CreateItem persists one purchased line together with its catalog snapshot.
// Snapshot columns stay NULL when the variant was gone at purchase time.
func (r *Repository) CreateItem(ctx context.Context, tx *sql.Tx, item *models.OrderItem) error {
	item.CreatedAt = time.Now().Unix()

	query := `
		INSERT INTO order_items (order_id, price_id, quantity, item_id, size, price_cents, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	res, err := tx.ExecContext(ctx, query,
		item.OrderID,
		item.PriceID,
		item.Quantity,
		item.ItemID,
		item.Size,
		item.PriceCents,
		item.CreatedAt,
	)
	if err != nil {
		return err
	}
	item.ID, _ = res.LastInsertId()
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	query := `
		SELECT id, session_id, payment_intent_id, customer_email, customer_name,
		       customer_phone, total_cents, currency, created_at
		FROM orders WHERE id = ?
	`
	order, err := scanOrder(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, err
	}

	items, err := r.ListItems(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	order.Items = items
	return order, nil
}

func (r *Repository) GetBySessionID(ctx context.Context, sessionID string) (*models.Order, error) {
	query := `
		SELECT id, session_id, payment_intent_id, customer_email, customer_name,
		       customer_phone, total_cents, currency, created_at
		FROM orders WHERE session_id = ?
	`
	return scanOrder(r.db.QueryRowContext(ctx, query, sessionID))
}

func (r *Repository) List(ctx context.Context, limit, offset int) ([]*models.Order, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	query := `
		SELECT id, session_id, payment_intent_id, customer_email, customer_name,
		       customer_phone, total_cents, currency, created_at
		FROM orders
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`
	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*models.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

func (r *Repository) ListItems(ctx context.Context, orderID string) ([]*models.OrderItem, error) {
	query := `
		SELECT id, order_id, price_id, quantity, item_id, size, price_cents, created_at
		FROM order_items
		WHERE order_id = ?
		ORDER BY id
	`
	rows, err := r.db.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*models.OrderItem
	for rows.Next() {
		var item models.OrderItem
		var itemID sql.NullInt64
		var size sql.NullString
		var priceCents sql.NullInt64

		if err := rows.Scan(&item.ID, &item.OrderID, &item.PriceID, &item.Quantity,
			&itemID, &size, &priceCents, &item.CreatedAt); err != nil {
			return nil, err
		}

		if itemID.Valid {
			item.ItemID = &itemID.Int64
		}
		if size.Valid {
			item.Size = &size.String
		}
		if priceCents.Valid {
			item.PriceCents = &priceCents.Int64
		}
		items = append(items, &item)
	}
	return items, rows.Err()
}

func scanOrder(s interface {
	Scan(dest ...interface{}) error
}) (*models.Order, error) {
	var order models.Order
	var paymentIntent, email, name, phone, currency sql.NullString
	var total sql.NullInt64

	err := s.Scan(
		&order.ID,
		&order.SessionID,
		&paymentIntent,
		&email,
		&name,
		&phone,
		&total,
		&currency,
		&order.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}

	if paymentIntent.Valid {
		order.PaymentIntentID = &paymentIntent.String
	}
	if email.Valid {
		order.CustomerEmail = &email.String
	}
	if name.Valid {
		order.CustomerName = &name.String
	}
	if phone.Valid {
		order.CustomerPhone = &phone.String
	}
	if total.Valid {
		order.TotalCents = &total.Int64
	}
	if currency.Valid {
		order.Currency = &currency.String
	}

	return &order, nil
}
