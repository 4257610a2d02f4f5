package store

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Favorites persists the per-user offer bookmark set.
type Favorites struct {
	Pool *pgxpool.Pool
}

// Add marks an offer as a favorite. Adding twice is a no-op.
func (r Favorites) Add(ctx context.Context, userID, offerID string) error {
	_, err := r.Pool.Exec(ctx, `
		INSERT INTO favorites (user_id, offer_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, offer_id) DO NOTHING`, userID, offerID)
	return err
}

// Remove deletes a favorite. Removing an absent favorite is a no-op.
func (r Favorites) Remove(ctx context.Context, userID, offerID string) error {
	_, err := r.Pool.Exec(ctx,
		`DELETE FROM favorites WHERE user_id = $1 AND offer_id = $2`, userID, offerID)
	return err
}

// ListOffers returns the user's favorite offers newest-bookmark first.
func (r Favorites) ListOffers(ctx context.Context, userID string, limit, offset int) ([]Offer, error) {
	rows, err := r.Pool.Query(ctx, `
		SELECT `+offerColumns+`
		FROM favorites f
		JOIN offers o ON o.id = f.offer_id
		JOIN merchants m ON m.id = o.merchant_id
		WHERE f.user_id = $1
		ORDER BY f.created_at DESC
		LIMIT $2 OFFSET $3`, userID, limit, offset)
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
