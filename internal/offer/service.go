// Package offer serves the browsable storefront listings. Reads are cached
// in Redis; the payment flow bypasses this package entirely and reads offers
// directly for a consistent snapshot.
package offer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/unbox-labs/backend-unbox/internal/store"
)

// View is the client-facing offer shape. The merchant's payout account id is
// internal; clients only learn whether online payment is possible.
type View struct {
	ID                   string  `json:"id"`
	MerchantID           string  `json:"merchant_id"`
	MerchantName         string  `json:"merchant_name"`
	Title                string  `json:"title"`
	Price                string  `json:"price"`
	OriginalPrice        *string `json:"original_price,omitempty"`
	ImageURL             string  `json:"image_url"`
	AcceptsOnlinePayment bool    `json:"accepts_online_payment"`
	CreatedAt            string  `json:"created_at"`
}

func toView(o store.Offer) View {
	v := View{
		ID:                   o.ID,
		MerchantID:           o.MerchantID,
		MerchantName:         o.MerchantName,
		Title:                o.Title,
		Price:                o.Price.StringFixed(2),
		ImageURL:             o.ImageURL,
		AcceptsOnlinePayment: o.AcceptsOnlinePayment(),
		CreatedAt:            o.CreatedAt.Format(time.RFC3339),
	}
	if o.OriginalPrice != nil {
		s := o.OriginalPrice.StringFixed(2)
		v.OriginalPrice = &s
	}
	return v
}

// Lister reads offers from the store.
type Lister interface {
	Get(ctx context.Context, id string) (store.Offer, error)
	List(ctx context.Context, limit, offset int) ([]store.Offer, error)
}

// Service reads offers through a Redis cache.
type Service struct {
	Store Lister
	Redis *redis.Client
	TTL   time.Duration
	Log   zerolog.Logger
}

// List returns a page of offers, served from cache when fresh.
func (s *Service) List(ctx context.Context, limit, offset int) ([]View, error) {
	key := fmt.Sprintf("offers:list:%d:%d", limit, offset)
	if views, ok := s.cached(ctx, key); ok {
		return views, nil
	}

	offers, err := s.Store.List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list offers: %w", err)
	}
	views := make([]View, 0, len(offers))
	for _, o := range offers {
		views = append(views, toView(o))
	}
	s.cache(ctx, key, views)
	return views, nil
}

// Get returns a single offer by id. Detail reads skip the cache so a
// merchant's payout configuration change is visible immediately.
func (s *Service) Get(ctx context.Context, id string) (View, error) {
	o, err := s.Store.Get(ctx, id)
	if err != nil {
		return View{}, err
	}
	return toView(o), nil
}

func (s *Service) cached(ctx context.Context, key string) ([]View, bool) {
	if s.Redis == nil {
		return nil, false
	}
	raw, err := s.Redis.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	var views []View
	if err := json.Unmarshal(raw, &views); err != nil {
		return nil, false
	}
	return views, true
}

func (s *Service) cache(ctx context.Context, key string, views []View) {
	if s.Redis == nil || s.TTL <= 0 {
		return
	}
	raw, err := json.Marshal(views)
	if err != nil {
		return
	}
	if err := s.Redis.Set(ctx, key, raw, s.TTL).Err(); err != nil {
		s.Log.Debug().Err(err).Str("key", key).Msg("offer cache write failed")
	}
}
