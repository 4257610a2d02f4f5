package payment

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	validator "github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/unbox-labs/backend-unbox/internal/common"
)

// Handler wires the payment service to HTTP.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
	Log      zerolog.Logger
}

// CreateIntent handles POST /api/v1/payments/intent.
func (h *Handler) CreateIntent(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "payment service not configured")
		return
	}
	userID, ok := common.UserID(r.Context())
	if !ok || userID == "" {
		common.JSONError(w, http.StatusUnauthorized, "missing or invalid token")
		return
	}

	var req IntentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(req); err != nil {
			common.JSONError(w, http.StatusBadRequest, validationMessage(err))
			return
		}
	}

	resp, err := h.Svc.CreateIntent(r.Context(), userID, req)
	if err != nil {
		h.writeError(r, w, err)
		return
	}
	common.JSON(w, http.StatusOK, resp)
}

// HandleWebhook handles POST /api/v1/webhooks/payment/stripe. The body is
// read raw because the signature covers the exact bytes on the wire.
func (h *Handler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil || h.Svc.Provider == nil {
		common.JSONError(w, http.StatusInternalServerError, "webhook not configured")
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "unable to read request body")
		return
	}

	event, err := h.Svc.Provider.VerifyWebhook(body, r.Header.Get("Stripe-Signature"))
	if err != nil {
		h.Log.Warn().Err(err).Msg("webhook signature verification failed")
		common.JSONError(w, http.StatusBadRequest, "invalid signature")
		return
	}

	// The event is authenticated; from here the processor always gets a 200
	// so its retry policy does not hammer an unrecoverable mismatch.
	if err := h.Svc.Reconcile(r.Context(), event); err != nil {
		h.Log.Error().Err(err).Str("type", event.Type).Msg("webhook reconciliation failed")
	}
	common.JSON(w, http.StatusOK, map[string]bool{"received": true})
}

func (h *Handler) writeError(r *http.Request, w http.ResponseWriter, err error) {
	appErr := common.AsAppError(err)
	evt := h.Log.Error()
	if appErr.HTTPStatus < http.StatusInternalServerError {
		evt = h.Log.Warn()
	}
	evt.Err(err).Str("code", appErr.Code).Str("path", r.URL.Path).Msg("payment request failed")
	common.JSONAppError(w, err)
}

func validationMessage(err error) string {
	var fields validator.ValidationErrors
	if !errors.As(err, &fields) || len(fields) == 0 {
		return "invalid request"
	}
	switch fields[0].Field() {
	case "OfferID":
		return "offer_id is required"
	case "Quantity":
		return "quantity must be a positive integer"
	case "DeliveryMethod":
		return "delivery_method must be pickup or delivery"
	case "DeliveryAddress":
		return "delivery_address is required for delivery orders"
	default:
		return "invalid request"
	}
}
