package payment

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/unbox-labs/backend-unbox/internal/common"
	"github.com/unbox-labs/backend-unbox/internal/obs"
	"github.com/unbox-labs/backend-unbox/internal/store"
)

type fakeProvider struct {
	created  []AuthorizationRequest
	canceled []string
	auth     Authorization
	err      error
}

func (f *fakeProvider) CreateAuthorization(_ context.Context, req AuthorizationRequest) (Authorization, error) {
	if f.err != nil {
		return Authorization{}, f.err
	}
	f.created = append(f.created, req)
	return f.auth, nil
}

func (f *fakeProvider) CancelAuthorization(_ context.Context, id string) error {
	f.canceled = append(f.canceled, id)
	return nil
}

func (f *fakeProvider) VerifyWebhook([]byte, string) (Event, error) {
	return Event{}, errors.New("not used")
}

type fakeOffers map[string]store.Offer

func (f fakeOffers) Get(_ context.Context, id string) (store.Offer, error) {
	offer, ok := f[id]
	if !ok {
		return store.Offer{}, store.ErrNotFound
	}
	return offer, nil
}

type fakeSettings map[string]string

func (f fakeSettings) Values(_ context.Context, keys ...string) (map[string]string, error) {
	values := make(map[string]string)
	for _, key := range keys {
		if v, ok := f[key]; ok {
			values[key] = v
		}
	}
	return values, nil
}

type fakeOrders struct {
	inserted  []*store.Order
	insertErr error
	statuses  map[string]string
}

func (f *fakeOrders) Insert(_ context.Context, o *store.Order) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.inserted = append(f.inserted, o)
	if f.statuses == nil {
		f.statuses = make(map[string]string)
	}
	f.statuses[o.PaymentIntentID] = o.Status
	return nil
}

func (f *fakeOrders) Settle(_ context.Context, paymentIntentID, status string) (store.SettleOutcome, error) {
	current, ok := f.statuses[paymentIntentID]
	if !ok {
		return store.SettleNotFound, nil
	}
	if current != store.OrderPending {
		return store.SettleAlreadyFinal, nil
	}
	f.statuses[paymentIntentID] = status
	return store.SettleUpdated, nil
}

type fakeCancelQueue struct {
	enqueued []string
	err      error
}

func (f *fakeCancelQueue) EnqueueCancelAuthorization(_ context.Context, id string) error {
	if f.err != nil {
		return f.err
	}
	f.enqueued = append(f.enqueued, id)
	return nil
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

const (
	testOfferID = "11111111-1111-1111-1111-111111111111"
	testUserID  = "22222222-2222-2222-2222-222222222222"
)

func newTestService(provider *fakeProvider, orders *fakeOrders, queue *fakeCancelQueue) *Service {
	return &Service{
		Provider: provider,
		Offers: fakeOffers{testOfferID: {
			ID:              testOfferID,
			MerchantID:      "merchant-1",
			MerchantName:    "Panaderia Sol",
			Price:           dec("5.00"),
			StripeAccountID: "acct_123",
		}},
		Settings:          fakeSettings{"service_fee": "0.80", "rider_price": "2.50"},
		Orders:            orders,
		Cancel:            queue,
		Log:               zerolog.Nop(),
		Currency:          "eur",
		PublishableKey:    "pk_test_abc",
		RiderPriceDefault: dec("6.00"),
	}
}

func TestCreateIntentPricesFromStoredData(t *testing.T) {
	provider := &fakeProvider{auth: Authorization{ID: "pi_1", ClientSecret: "pi_1_secret"}}
	orders := &fakeOrders{}
	svc := newTestService(provider, orders, &fakeCancelQueue{})

	resp, err := svc.CreateIntent(context.Background(), testUserID, IntentRequest{
		OfferID:         testOfferID,
		Quantity:        2,
		DeliveryMethod:  "delivery",
		DeliveryAddress: "Calle Mayor 1",
		CustomerID:      "cus_9",
	})
	require.NoError(t, err)
	require.Equal(t, "pi_1_secret", resp.PaymentIntent)
	require.Equal(t, "cus_9", resp.Customer)
	require.Equal(t, "pk_test_abc", resp.PublishableKey)

	// 5.00*2 + 0.80 + 2.50 = 13.30 → 1330 minor units, fee 80.
	require.Len(t, provider.created, 1)
	req := provider.created[0]
	require.Equal(t, int64(1330), req.AmountMinor)
	require.Equal(t, int64(80), req.PlatformFeeMinor)
	require.Equal(t, "acct_123", req.DestinationAccount)
	require.Equal(t, "eur", req.Currency)
	require.Equal(t, testOfferID, req.Metadata["offer_id"])
	require.Equal(t, testUserID, req.Metadata["user_id"])

	require.Len(t, orders.inserted, 1)
	order := orders.inserted[0]
	require.Equal(t, store.OrderPending, order.Status)
	require.Equal(t, "pi_1", order.PaymentIntentID)
	require.True(t, order.Total.Equal(dec("13.30")))
	require.True(t, order.Commission.Equal(dec("0.80")))
	require.True(t, order.ShippingCost.Equal(dec("2.50")))
}

func TestCreateIntentIgnoresClientSuppliedAmounts(t *testing.T) {
	// A forged amount can only arrive through fields the decoder drops; the
	// request type has no price field, so the charge derives solely from the
	// stored offer and settings.
	provider := &fakeProvider{auth: Authorization{ID: "pi_2", ClientSecret: "pi_2_secret"}}
	orders := &fakeOrders{}
	svc := newTestService(provider, orders, &fakeCancelQueue{})

	_, err := svc.CreateIntent(context.Background(), testUserID, IntentRequest{
		OfferID:        testOfferID,
		Quantity:       3,
		DeliveryMethod: "pickup",
	})
	require.NoError(t, err)
	// 5.00*3 + 0.80 = 15.80
	require.Equal(t, int64(1580), provider.created[0].AmountMinor)
}

func TestCreateIntentOfferMissing(t *testing.T) {
	provider := &fakeProvider{auth: Authorization{ID: "pi_3"}}
	svc := newTestService(provider, &fakeOrders{}, &fakeCancelQueue{})

	_, err := svc.CreateIntent(context.Background(), testUserID, IntentRequest{
		OfferID:        "99999999-9999-9999-9999-999999999999",
		Quantity:       1,
		DeliveryMethod: "pickup",
	})
	require.Error(t, err)
	require.Equal(t, common.CodePrecondition, common.AsAppError(err).Code)
	require.Empty(t, provider.created, "no authorization may exist for a rejected request")
}

func TestCreateIntentMerchantWithoutPayoutAccount(t *testing.T) {
	provider := &fakeProvider{}
	svc := newTestService(provider, &fakeOrders{}, &fakeCancelQueue{})
	svc.Offers = fakeOffers{testOfferID: {
		ID:         testOfferID,
		MerchantID: "merchant-1",
		Price:      dec("5.00"),
	}}

	_, err := svc.CreateIntent(context.Background(), testUserID, IntentRequest{
		OfferID:        testOfferID,
		Quantity:       1,
		DeliveryMethod: "pickup",
	})
	require.Error(t, err)
	require.Equal(t, common.CodePrecondition, common.AsAppError(err).Code)
	require.Empty(t, provider.created)
}

func TestCreateIntentProcessorRejection(t *testing.T) {
	provider := &fakeProvider{err: common.NewAppError(common.CodeProcessor, "card declined", 400, nil)}
	orders := &fakeOrders{}
	svc := newTestService(provider, orders, &fakeCancelQueue{})

	_, err := svc.CreateIntent(context.Background(), testUserID, IntentRequest{
		OfferID:        testOfferID,
		Quantity:       1,
		DeliveryMethod: "pickup",
	})
	require.Error(t, err)
	require.Equal(t, common.CodeProcessor, common.AsAppError(err).Code)
	require.Empty(t, orders.inserted, "no order may exist without an authorization")
}

func TestCreateIntentDanglingAuthorization(t *testing.T) {
	provider := &fakeProvider{auth: Authorization{ID: "pi_dangling", ClientSecret: "secret"}}
	orders := &fakeOrders{insertErr: errors.New("connection reset")}
	queue := &fakeCancelQueue{}
	svc := newTestService(provider, orders, queue)

	_, err := svc.CreateIntent(context.Background(), testUserID, IntentRequest{
		OfferID:        testOfferID,
		Quantity:       1,
		DeliveryMethod: "pickup",
	})
	require.Error(t, err)
	require.Equal(t, common.CodePartialFailure, common.AsAppError(err).Code)
	require.Equal(t, []string{"pi_dangling"}, queue.enqueued)
}

func TestCreateIntentMissingSettingsFallBack(t *testing.T) {
	provider := &fakeProvider{auth: Authorization{ID: "pi_4", ClientSecret: "secret"}}
	orders := &fakeOrders{}
	svc := newTestService(provider, orders, &fakeCancelQueue{})
	svc.Settings = fakeSettings{}
	svc.Metrics = obs.NewDomainMetrics("test", prometheus.NewRegistry())

	feeFallbacks := testutil.ToFloat64(svc.Metrics.SettingsFallbackTotal.WithLabelValues(store.SettingServiceFee))
	riderFallbacks := testutil.ToFloat64(svc.Metrics.SettingsFallbackTotal.WithLabelValues(store.SettingRiderPrice))

	_, err := svc.CreateIntent(context.Background(), testUserID, IntentRequest{
		OfferID:         testOfferID,
		Quantity:        1,
		DeliveryMethod:  "delivery",
		DeliveryAddress: "Calle Mayor 1",
	})
	require.NoError(t, err)
	// commission falls back to 0, shipping to the configured 6.00 default:
	// 5.00 + 0 + 6.00 = 11.00
	require.Equal(t, int64(1100), provider.created[0].AmountMinor)
	require.Equal(t, int64(0), provider.created[0].PlatformFeeMinor)

	require.Equal(t, feeFallbacks+1, testutil.ToFloat64(svc.Metrics.SettingsFallbackTotal.WithLabelValues(store.SettingServiceFee)))
	require.Equal(t, riderFallbacks+1, testutil.ToFloat64(svc.Metrics.SettingsFallbackTotal.WithLabelValues(store.SettingRiderPrice)))
}
