package order

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/unbox-labs/backend-unbox/internal/common"
	"github.com/unbox-labs/backend-unbox/internal/store"
)

const (
	ownerID   = "22222222-2222-2222-2222-222222222222"
	orderUUID = "33333333-3333-3333-3333-333333333333"
)

type fakeReader struct {
	orders map[string]store.Order
}

func (f *fakeReader) ListByUser(_ context.Context, userID string, _, _ int) ([]store.Order, error) {
	var out []store.Order
	for _, o := range f.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *fakeReader) GetForUser(_ context.Context, userID, orderID string) (store.Order, error) {
	o, ok := f.orders[orderID]
	if !ok || o.UserID != userID {
		return store.Order{}, store.ErrNotFound
	}
	return o, nil
}

func sampleOrder() store.Order {
	return store.Order{
		ID:              orderUUID,
		UserID:          ownerID,
		OfferID:         "offer-1",
		MerchantID:      "merchant-1",
		Price:           decimal.RequireFromString("5.00"),
		Quantity:        2,
		Commission:      decimal.RequireFromString("0.80"),
		ShippingCost:    decimal.RequireFromString("2.50"),
		Total:           decimal.RequireFromString("13.30"),
		DeliveryMethod:  "delivery",
		Status:          store.OrderPaid,
		PaymentIntentID: "pi_secret_1",
		CreatedAt:       time.Now(),
	}
}

func getOrder(h *Handler, userID, orderID string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/"+orderID, nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("orderId", orderID)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	if userID != "" {
		req = req.WithContext(common.WithUserID(req.Context(), userID))
	}
	rec := httptest.NewRecorder()
	h.Get(rec, req)
	return rec
}

func TestGetOrderOwnerScoped(t *testing.T) {
	h := &Handler{Reader: &fakeReader{orders: map[string]store.Order{orderUUID: sampleOrder()}}}

	rec := getOrder(h, ownerID, orderUUID)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"status":"paid"`)
	require.NotContains(t, rec.Body.String(), "pi_secret_1")

	rec = getOrder(h, "44444444-4444-4444-4444-444444444444", orderUUID)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetOrderRejectsBadID(t *testing.T) {
	h := &Handler{Reader: &fakeReader{}}
	rec := getOrder(h, ownerID, "not-a-uuid")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListOrdersRequiresAuth(t *testing.T) {
	h := &Handler{Reader: &fakeReader{}}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	rec := httptest.NewRecorder()
	h.List(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
