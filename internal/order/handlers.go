// Package order exposes the authenticated order-history endpoints. Status is
// whatever reconciliation last wrote; the client success screen is advisory
// and this read is the durable answer.
package order

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/unbox-labs/backend-unbox/internal/common"
	"github.com/unbox-labs/backend-unbox/internal/store"
)

// Reader loads orders scoped to their owner.
type Reader interface {
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]store.Order, error)
	GetForUser(ctx context.Context, userID, orderID string) (store.Order, error)
}

// View is the client-facing order shape. The payment intent id stays
// server-side.
type View struct {
	ID              string  `json:"id"`
	OfferID         string  `json:"offer_id"`
	MerchantID      string  `json:"merchant_id"`
	Price           string  `json:"price"`
	Quantity        int     `json:"quantity"`
	Commission      string  `json:"commission"`
	ShippingCost    string  `json:"shipping_cost"`
	Total           string  `json:"total"`
	DeliveryMethod  string  `json:"delivery_method"`
	DeliveryAddress *string `json:"delivery_address,omitempty"`
	CustomerNotes   *string `json:"customer_notes,omitempty"`
	Status          string  `json:"status"`
	CreatedAt       string  `json:"created_at"`
}

func toView(o store.Order) View {
	return View{
		ID:              o.ID,
		OfferID:         o.OfferID,
		MerchantID:      o.MerchantID,
		Price:           o.Price.StringFixed(2),
		Quantity:        o.Quantity,
		Commission:      o.Commission.StringFixed(2),
		ShippingCost:    o.ShippingCost.StringFixed(2),
		Total:           o.Total.StringFixed(2),
		DeliveryMethod:  o.DeliveryMethod,
		DeliveryAddress: o.DeliveryAddress,
		CustomerNotes:   o.CustomerNotes,
		Status:          o.Status,
		CreatedAt:       o.CreatedAt.Format(time.RFC3339),
	}
}

// Handler wires order history to HTTP.
type Handler struct {
	Reader Reader
}

// List handles GET /api/v1/orders.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.UserID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "missing or invalid token")
		return
	}
	page, perPage := common.ParsePagination(r, 20)
	orders, err := h.Reader.ListByUser(r.Context(), userID, perPage, (page-1)*perPage)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "unable to load orders")
		return
	}
	views := make([]View, 0, len(orders))
	for _, o := range orders {
		views = append(views, toView(o))
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": views})
}

// Get handles GET /api/v1/orders/{orderId}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.UserID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "missing or invalid token")
		return
	}
	orderID := chi.URLParam(r, "orderId")
	if _, err := uuid.Parse(orderID); err != nil {
		common.JSONError(w, http.StatusBadRequest, "invalid order id")
		return
	}
	o, err := h.Reader.GetForUser(r.Context(), userID, orderID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, "order not found")
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "unable to load order")
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": toView(o)})
}
