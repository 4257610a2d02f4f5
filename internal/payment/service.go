// Package payment implements the settlement core: creating server-priced
// payment authorizations and reconciling processor webhooks into terminal
// order states.
package payment

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/unbox-labs/backend-unbox/internal/common"
	"github.com/unbox-labs/backend-unbox/internal/obs"
	"github.com/unbox-labs/backend-unbox/internal/pricing"
	"github.com/unbox-labs/backend-unbox/internal/store"
)

// OfferSource loads an offer joined with its merchant payout account.
type OfferSource interface {
	Get(ctx context.Context, id string) (store.Offer, error)
}

// SettingsSource loads fee settings by key.
type SettingsSource interface {
	Values(ctx context.Context, keys ...string) (map[string]string, error)
}

// OrderStore persists and settles orders.
type OrderStore interface {
	Insert(ctx context.Context, o *store.Order) error
	Settle(ctx context.Context, paymentIntentID, status string) (store.SettleOutcome, error)
}

// CancelEnqueuer schedules asynchronous cancellation of an authorization
// that has no matching order record.
type CancelEnqueuer interface {
	EnqueueCancelAuthorization(ctx context.Context, authorizationID string) error
}

// IntentRequest is the client payload for creating a payment intent. Price
// fields are deliberately absent: every amount is computed server-side.
type IntentRequest struct {
	OfferID         string `json:"offer_id" validate:"required,uuid"`
	Quantity        int    `json:"quantity" validate:"required,gt=0"`
	DeliveryMethod  string `json:"delivery_method" validate:"required,oneof=pickup delivery"`
	DeliveryAddress string `json:"delivery_address" validate:"required_if=DeliveryMethod delivery"`
	CustomerNotes   string `json:"customer_notes"`
	CustomerID      string `json:"customer_id"`
}

// IntentResponse is what the mobile client needs to present the payment
// sheet: the intent's client secret, the optional processor customer id, and
// the publishable key.
type IntentResponse struct {
	PaymentIntent  string `json:"paymentIntent"`
	Customer       string `json:"customer,omitempty"`
	PublishableKey string `json:"publishableKey"`
}

// Service coordinates pricing, the processor, and the order store.
type Service struct {
	Provider          Provider
	Offers            OfferSource
	Settings          SettingsSource
	Orders            OrderStore
	Cancel            CancelEnqueuer
	Metrics           *obs.DomainMetrics
	Log               zerolog.Logger
	Currency          string
	PublishableKey    string
	RiderPriceDefault decimal.Decimal
}

// CreateIntent runs the full intent flow for an authenticated user: load fee
// settings, read the offer and its merchant payout account, price the order,
// authorize the charge, then record the pending order keyed by the
// authorization id. Failures before the processor call are clean rejections;
// an insert failure after it is a dangling authorization and is handled
// separately.
func (s *Service) CreateIntent(ctx context.Context, userID string, req IntentRequest) (IntentResponse, error) {
	serviceFee, riderPrice, err := s.loadFees(ctx)
	if err != nil {
		s.countIntent("precondition_failed")
		return IntentResponse{}, common.NewAppError(common.CodePrecondition, "pricing unavailable", http.StatusBadRequest, err)
	}

	offer, err := s.Offers.Get(ctx, req.OfferID)
	if err != nil {
		s.countIntent("precondition_failed")
		if err == store.ErrNotFound {
			return IntentResponse{}, common.PreconditionError("offer not found")
		}
		return IntentResponse{}, fmt.Errorf("load offer: %w", err)
	}
	if !offer.AcceptsOnlinePayment() {
		s.countIntent("precondition_failed")
		return IntentResponse{}, common.PreconditionError("merchant does not accept online payment")
	}

	quote, err := pricing.Compute(offer.Price, req.Quantity, serviceFee, riderPrice, pricing.DeliveryMethod(req.DeliveryMethod))
	if err != nil {
		s.countIntent("validation_failed")
		return IntentResponse{}, common.ValidationError(err.Error())
	}

	auth, err := s.Provider.CreateAuthorization(ctx, AuthorizationRequest{
		AmountMinor:        pricing.MinorUnits(quote.Total),
		Currency:           s.Currency,
		PlatformFeeMinor:   pricing.MinorUnits(quote.Commission),
		DestinationAccount: offer.StripeAccountID,
		CustomerID:         req.CustomerID,
		Metadata: map[string]string{
			"offer_id": offer.ID,
			"user_id":  userID,
		},
	})
	if err != nil {
		s.countIntent("processor_failed")
		return IntentResponse{}, err
	}

	order := &store.Order{
		UserID:          userID,
		OfferID:         offer.ID,
		MerchantID:      offer.MerchantID,
		Price:           quote.UnitPrice,
		Quantity:        quote.Quantity,
		Commission:      quote.Commission,
		ShippingCost:    quote.ShippingCost,
		Total:           quote.Total,
		DeliveryMethod:  req.DeliveryMethod,
		DeliveryAddress: optional(req.DeliveryAddress),
		CustomerNotes:   optional(req.CustomerNotes),
		Status:          store.OrderPending,
		PaymentIntentID: auth.ID,
	}
	if err := s.Orders.Insert(ctx, order); err != nil {
		return IntentResponse{}, s.handleDanglingAuthorization(ctx, auth.ID, userID, err)
	}

	s.countIntent("ok")
	return IntentResponse{
		PaymentIntent:  auth.ClientSecret,
		Customer:       req.CustomerID,
		PublishableKey: s.PublishableKey,
	}, nil
}

// loadFees reads service_fee and rider_price from the settings table.
// A missing rider_price falls back to the configured default; a missing
// service_fee falls back to zero. Both fallbacks are counted and logged
// because an undercharge has financial impact.
func (s *Service) loadFees(ctx context.Context) (serviceFee, riderPrice decimal.Decimal, err error) {
	values, err := s.Settings.Values(ctx, store.SettingServiceFee, store.SettingRiderPrice)
	if err != nil {
		return decimal.Decimal{}, decimal.Decimal{}, fmt.Errorf("load settings: %w", err)
	}

	serviceFee = decimal.Zero
	if raw, ok := values[store.SettingServiceFee]; ok {
		serviceFee, err = decimal.NewFromString(raw)
		if err != nil {
			return decimal.Decimal{}, decimal.Decimal{}, fmt.Errorf("parse service_fee %q: %w", raw, err)
		}
	} else {
		s.Log.Warn().Str("key", store.SettingServiceFee).Msg("fee setting missing, charging zero commission")
		s.countFallback(store.SettingServiceFee)
	}

	riderPrice = s.RiderPriceDefault
	if raw, ok := values[store.SettingRiderPrice]; ok {
		riderPrice, err = decimal.NewFromString(raw)
		if err != nil {
			return decimal.Decimal{}, decimal.Decimal{}, fmt.Errorf("parse rider_price %q: %w", raw, err)
		}
	} else {
		s.Log.Warn().Str("key", store.SettingRiderPrice).Str("default", s.RiderPriceDefault.String()).Msg("fee setting missing, using default rider price")
		s.countFallback(store.SettingRiderPrice)
	}
	return serviceFee, riderPrice, nil
}

// handleDanglingAuthorization deals with the two-phase gap: the processor
// holds a live authorization but no order row exists. The charge is queued
// for cancellation and the failure is surfaced distinctly, never as a
// generic error.
func (s *Service) handleDanglingAuthorization(ctx context.Context, authorizationID, userID string, cause error) error {
	s.countIntent("dangling_authorization")
	if s.Metrics != nil {
		s.Metrics.DanglingAuthorization.Inc()
	}
	s.Log.Error().
		Err(cause).
		Str("authorization_id", authorizationID).
		Str("user_id", userID).
		Msg("dangling authorization: order insert failed after charge was authorized")

	if s.Cancel != nil {
		if err := s.Cancel.EnqueueCancelAuthorization(ctx, authorizationID); err != nil {
			s.Log.Error().
				Err(err).
				Str("authorization_id", authorizationID).
				Msg("failed to enqueue authorization cancellation, manual reconciliation required")
		}
	}
	return common.NewAppError(common.CodePartialFailure, "order could not be recorded", http.StatusInternalServerError, cause)
}

// Reconcile applies a verified processor event to the matching order.
// Redelivery and out-of-order terminal events are no-ops: the pending guard
// in the settle write means the first terminal event wins.
func (s *Service) Reconcile(ctx context.Context, event Event) error {
	var status string
	switch event.Kind {
	case EventSucceeded:
		status = store.OrderPaid
	case EventFailed, EventCanceled:
		status = store.OrderFailed
	default:
		s.countWebhook("ignored")
		s.Log.Debug().Str("type", event.Type).Msg("ignoring webhook event type")
		return nil
	}

	outcome, err := s.Orders.Settle(ctx, event.AuthorizationID, status)
	if err != nil {
		s.countWebhook("error")
		return fmt.Errorf("settle %s: %w", event.AuthorizationID, err)
	}
	switch outcome {
	case store.SettleUpdated:
		s.countWebhook("settled")
		s.Log.Info().
			Str("authorization_id", event.AuthorizationID).
			Str("status", status).
			Str("type", event.Type).
			Msg("order settled")
	case store.SettleAlreadyFinal:
		s.countWebhook("already_final")
		s.Log.Info().
			Str("authorization_id", event.AuthorizationID).
			Str("type", event.Type).
			Msg("order already settled, ignoring redelivery")
	case store.SettleNotFound:
		s.countWebhook("unmatched")
		s.Log.Warn().
			Str("authorization_id", event.AuthorizationID).
			Str("type", event.Type).
			Msg("no order matches authorization, acknowledging anyway")
	}
	return nil
}

func (s *Service) countIntent(result string) {
	if s.Metrics != nil {
		s.Metrics.PaymentIntentTotal.WithLabelValues(result).Inc()
	}
}

func (s *Service) countWebhook(result string) {
	if s.Metrics != nil {
		s.Metrics.PaymentWebhookTotal.WithLabelValues(result).Inc()
	}
}

func (s *Service) countFallback(key string) {
	if s.Metrics != nil {
		s.Metrics.SettingsFallbackTotal.WithLabelValues(key).Inc()
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
