package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Offer is a purchasable listing joined with its merchant's payout details.
// StripeAccountID is internal routing data and must never be serialized to
// clients.
type Offer struct {
	ID              string
	MerchantID      string
	MerchantName    string
	Title           string
	Price           decimal.Decimal
	OriginalPrice   *decimal.Decimal
	ImageURL        string
	StripeAccountID string
	CreatedAt       time.Time
}

// AcceptsOnlinePayment reports whether the merchant can receive funds.
func (o Offer) AcceptsOnlinePayment() bool {
	return o.StripeAccountID != ""
}

// Offers reads offer listings.
type Offers struct {
	Pool *pgxpool.Pool
}

const offerColumns = `
	o.id, o.merchant_id, m.name, o.title,
	o.price::text, o.original_price::text, o.image_url,
	coalesce(m.stripe_account_id, ''), o.created_at`

// Get returns a single offer with its merchant in one consistent read.
func (r Offers) Get(ctx context.Context, id string) (Offer, error) {
	row := r.Pool.QueryRow(ctx, `
		SELECT `+offerColumns+`
		FROM offers o
		JOIN merchants m ON m.id = o.merchant_id
		WHERE o.id = $1`, id)
	offer, err := scanOffer(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Offer{}, ErrNotFound
	}
	return offer, err
}

// List returns offers newest first.
func (r Offers) List(ctx context.Context, limit, offset int) ([]Offer, error) {
	rows, err := r.Pool.Query(ctx, `
		SELECT `+offerColumns+`
		FROM offers o
		JOIN merchants m ON m.id = o.merchant_id
		ORDER BY o.created_at DESC
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var offers []Offer
	for rows.Next() {
		offer, err := scanOffer(rows)
		if err != nil {
			return nil, err
		}
		offers = append(offers, offer)
	}
	return offers, rows.Err()
}

func scanOffer(row pgx.Row) (Offer, error) {
	var (
		offer         Offer
		price         string
		originalPrice *string
	)
	if err := row.Scan(
		&offer.ID,
		&offer.MerchantID,
		&offer.MerchantName,
		&offer.Title,
		&price,
		&originalPrice,
		&offer.ImageURL,
		&offer.StripeAccountID,
		&offer.CreatedAt,
	); err != nil {
		return Offer{}, err
	}
	parsed, err := parseMoney(price)
	if err != nil {
		return Offer{}, err
	}
	offer.Price = parsed
	if originalPrice != nil {
		op, err := parseMoney(*originalPrice)
		if err != nil {
			return Offer{}, err
		}
		offer.OriginalPrice = &op
	}
	return offer, nil
}
