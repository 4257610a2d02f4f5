package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
	"github.com/stripe/stripe-go/v79/webhook"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/unbox-labs/backend-unbox/internal/common"
)

// StripeProvider implements Provider against the Stripe API.
type StripeProvider struct {
	client        *client.API
	webhookSecret string
}

// NewStripeProvider builds a Stripe-backed provider. The underlying HTTP
// client is traced so outbound processor calls show up in spans alongside
// database queries.
func NewStripeProvider(secretKey, webhookSecret string) *StripeProvider {
	sc := &client.API{}
	sc.Init(secretKey, stripe.NewBackends(&http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}))
	return &StripeProvider{client: sc, webhookSecret: webhookSecret}
}

// CreateAuthorization opens a payment intent as a destination charge: the
// full amount settles to the merchant's connected account minus the platform
// fee.
func (p *StripeProvider) CreateAuthorization(ctx context.Context, req AuthorizationRequest) (Authorization, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(req.AmountMinor),
		Currency: stripe.String(req.Currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
		ApplicationFeeAmount: stripe.Int64(req.PlatformFeeMinor),
		TransferData: &stripe.PaymentIntentTransferDataParams{
			Destination: stripe.String(req.DestinationAccount),
		},
	}
	if req.CustomerID != "" {
		params.Customer = stripe.String(req.CustomerID)
	}
	if len(req.Metadata) > 0 {
		params.Metadata = req.Metadata
	}
	params.Context = ctx

	pi, err := p.client.PaymentIntents.New(params)
	if err != nil {
		return Authorization{}, mapStripeError(err)
	}
	return Authorization{ID: pi.ID, ClientSecret: pi.ClientSecret}, nil
}

// CancelAuthorization voids a payment intent that has no matching order.
func (p *StripeProvider) CancelAuthorization(ctx context.Context, authorizationID string) error {
	params := &stripe.PaymentIntentCancelParams{}
	params.Context = ctx
	if _, err := p.client.PaymentIntents.Cancel(authorizationID, params); err != nil {
		return mapStripeError(err)
	}
	return nil
}

// VerifyWebhook checks the signature over the raw body and normalizes the
// event. Verification failure is the only error path; unknown event types
// come back as EventIgnored.
func (p *StripeProvider) VerifyWebhook(payload []byte, signatureHeader string) (Event, error) {
	event, err := webhook.ConstructEvent(payload, signatureHeader, p.webhookSecret)
	if err != nil {
		return Event{}, fmt.Errorf("verify webhook signature: %w", err)
	}

	kind := EventIgnored
	switch event.Type {
	case "payment_intent.succeeded":
		kind = EventSucceeded
	case "payment_intent.payment_failed":
		kind = EventFailed
	case "payment_intent.canceled":
		kind = EventCanceled
	}

	normalized := Event{Kind: kind, Type: string(event.Type)}
	if kind != EventIgnored {
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			return Event{}, fmt.Errorf("decode payment intent payload: %w", err)
		}
		normalized.AuthorizationID = pi.ID
	}
	return normalized, nil
}

// mapStripeError translates processor errors into the domain taxonomy so
// stripe-go types do not leak upward. Stripe's user-facing message is safe to
// surface; raw details stay in the wrapped error for logs.
func mapStripeError(err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		if stripeErr.HTTPStatusCode >= http.StatusInternalServerError {
			return common.NewAppError(common.CodeProcessor, "payment processor unavailable", http.StatusBadGateway, err)
		}
		message := stripeErr.Msg
		if message == "" {
			message = "payment could not be authorized"
		}
		return common.NewAppError(common.CodeProcessor, message, http.StatusBadRequest, err)
	}
	return common.NewAppError(common.CodeProcessor, "payment could not be authorized", http.StatusBadGateway, err)
}
