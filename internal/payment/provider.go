package payment

import "context"

// AuthorizationRequest describes a charge to authorize with the processor.
// Amounts are integer minor units (cents).
type AuthorizationRequest struct {
	AmountMinor        int64
	Currency           string
	PlatformFeeMinor   int64
	DestinationAccount string
	CustomerID         string
	Metadata           map[string]string
}

// Authorization is a live charge intent held by the processor.
type Authorization struct {
	ID           string
	ClientSecret string
}

// EventKind normalizes processor webhook event types.
type EventKind int

const (
	// EventIgnored covers event types the reconciler acknowledges without mutation.
	EventIgnored EventKind = iota
	EventSucceeded
	EventFailed
	EventCanceled
)

// Event is a verified, normalized processor notification.
type Event struct {
	Kind            EventKind
	Type            string
	AuthorizationID string
}

// Provider abstracts the payment processor. The production implementation is
// Stripe; tests substitute fakes.
type Provider interface {
	CreateAuthorization(ctx context.Context, req AuthorizationRequest) (Authorization, error)
	CancelAuthorization(ctx context.Context, authorizationID string) error
	VerifyWebhook(payload []byte, signatureHeader string) (Event, error)
}
