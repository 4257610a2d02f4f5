package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Order statuses. pending is the only non-terminal state; once paid or
// failed is written the row never transitions again.
const (
	OrderPending = "pending"
	OrderPaid    = "paid"
	OrderFailed  = "failed"
)

// ErrDuplicatePaymentIntent is returned when an insert collides on the
// payment_intent_id unique constraint.
var ErrDuplicatePaymentIntent = errors.New("store: duplicate payment intent id")

// Order is a persisted purchase record keyed by its processor charge.
type Order struct {
	ID              string
	UserID          string
	OfferID         string
	MerchantID      string
	Price           decimal.Decimal
	Quantity        int
	Commission      decimal.Decimal
	ShippingCost    decimal.Decimal
	Total           decimal.Decimal
	DeliveryMethod  string
	DeliveryAddress *string
	CustomerNotes   *string
	Status          string
	PaymentIntentID string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// SettleOutcome describes what a settle attempt found.
type SettleOutcome int

const (
	// SettleUpdated means the pending row transitioned to the terminal state.
	SettleUpdated SettleOutcome = iota
	// SettleAlreadyFinal means the row exists but was settled earlier.
	SettleAlreadyFinal
	// SettleNotFound means no order matches the payment intent id.
	SettleNotFound
)

// Orders persists purchase records.
type Orders struct {
	Pool *pgxpool.Pool
}

// Insert writes a new pending order. A payment_intent_id collision maps to
// ErrDuplicatePaymentIntent.
func (r Orders) Insert(ctx context.Context, o *Order) error {
	err := r.Pool.QueryRow(ctx, `
		INSERT INTO orders (
			user_id, offer_id, merchant_id,
			price, quantity, commission, shipping_cost, total,
			delivery_method, delivery_address, customer_notes,
			status, payment_intent_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id, created_at, updated_at`,
		o.UserID, o.OfferID, o.MerchantID,
		o.Price.StringFixed(2), o.Quantity, o.Commission.StringFixed(2), o.ShippingCost.StringFixed(2), o.Total.StringFixed(2),
		o.DeliveryMethod, o.DeliveryAddress, o.CustomerNotes,
		o.Status, o.PaymentIntentID,
	).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicatePaymentIntent
		}
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

// Settle moves the order matching paymentIntentID from pending to the given
// terminal status. The guard on the current status makes replayed and
// out-of-order webhook deliveries no-ops: whichever terminal event lands
// first wins, and later events leave the row untouched.
func (r Orders) Settle(ctx context.Context, paymentIntentID, status string) (SettleOutcome, error) {
	if status != OrderPaid && status != OrderFailed {
		return SettleNotFound, fmt.Errorf("settle: %q is not a terminal status", status)
	}
	tag, err := r.Pool.Exec(ctx, `
		UPDATE orders
		SET status = $2, updated_at = now()
		WHERE payment_intent_id = $1 AND status = $3`,
		paymentIntentID, status, OrderPending)
	if err != nil {
		return SettleNotFound, fmt.Errorf("settle order: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return SettleUpdated, nil
	}

	var existing string
	err = r.Pool.QueryRow(ctx,
		`SELECT status FROM orders WHERE payment_intent_id = $1`, paymentIntentID).
		Scan(&existing)
	if errors.Is(err, pgx.ErrNoRows) {
		return SettleNotFound, nil
	}
	if err != nil {
		return SettleNotFound, fmt.Errorf("settle re-read: %w", err)
	}
	return SettleAlreadyFinal, nil
}

const orderColumns = `
	id, user_id, offer_id, merchant_id,
	price::text, quantity, commission::text, shipping_cost::text, total::text,
	delivery_method, delivery_address, customer_notes,
	status, payment_intent_id, created_at, updated_at`

// ListByUser returns the caller's orders newest first.
func (r Orders) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Order, error) {
	rows, err := r.Pool.Query(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

// GetForUser returns a single order owned by userID.
func (r Orders) GetForUser(ctx context.Context, userID, orderID string) (Order, error) {
	row := r.Pool.QueryRow(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE id = $1 AND user_id = $2`, orderID, userID)
	order, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrNotFound
	}
	return order, err
}

func scanOrder(row pgx.Row) (Order, error) {
	var (
		order                                  Order
		price, commission, shippingCost, total string
	)
	if err := row.Scan(
		&order.ID,
		&order.UserID,
		&order.OfferID,
		&order.MerchantID,
		&price,
		&order.Quantity,
		&commission,
		&shippingCost,
		&total,
		&order.DeliveryMethod,
		&order.DeliveryAddress,
		&order.CustomerNotes,
		&order.Status,
		&order.PaymentIntentID,
		&order.CreatedAt,
		&order.UpdatedAt,
	); err != nil {
		return Order{}, err
	}
	for _, field := range []struct {
		raw string
		dst *decimal.Decimal
	}{
		{price, &order.Price},
		{commission, &order.Commission},
		{shippingCost, &order.ShippingCost},
		{total, &order.Total},
	} {
		parsed, err := parseMoney(field.raw)
		if err != nil {
			return Order{}, err
		}
		*field.dst = parsed
	}
	return order, nil
}
