package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestComputePickupOrder(t *testing.T) {
	q, err := Compute(dec("9.99"), 3, dec("1.50"), dec("6.00"), DeliveryPickup)
	require.NoError(t, err)

	require.True(t, q.Subtotal.Equal(dec("29.97")), "subtotal %s", q.Subtotal)
	require.True(t, q.Commission.Equal(dec("1.50")))
	require.True(t, q.ShippingCost.IsZero())
	require.True(t, q.Total.Equal(dec("31.47")), "total %s", q.Total)
	require.Equal(t, int64(3147), MinorUnits(q.Total))
}

func TestComputeDeliveryOrder(t *testing.T) {
	q, err := Compute(dec("5.00"), 2, dec("0.80"), dec("2.50"), DeliveryRider)
	require.NoError(t, err)

	require.True(t, q.Subtotal.Equal(dec("10.00")))
	require.True(t, q.Commission.Equal(dec("0.80")))
	require.True(t, q.ShippingCost.Equal(dec("2.50")))
	require.True(t, q.Total.Equal(dec("13.30")), "total %s", q.Total)
	require.Equal(t, int64(1330), MinorUnits(q.Total))
}

func TestComputeRejectsNonPositiveQuantity(t *testing.T) {
	for _, qty := range []int{0, -1} {
		_, err := Compute(dec("9.99"), qty, dec("1.50"), dec("6.00"), DeliveryPickup)
		require.Error(t, err, "quantity %d", qty)
	}
}

func TestComputeRejectsNegativePrice(t *testing.T) {
	_, err := Compute(dec("-0.01"), 1, dec("0"), dec("0"), DeliveryPickup)
	require.Error(t, err)
}

func TestMinorUnitsRoundsBeforeScaling(t *testing.T) {
	cases := []struct {
		amount string
		want   int64
	}{
		{"19.999", 2000},
		{"10.005", 1001},
		{"0.01", 1},
		{"0", 0},
		{"31.47", 3147},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, MinorUnits(dec(tc.amount)), "amount %s", tc.amount)
	}
}

func TestComputeCommissionChargedOncePerOrder(t *testing.T) {
	one, err := Compute(dec("4.00"), 1, dec("1.00"), dec("6.00"), DeliveryPickup)
	require.NoError(t, err)
	five, err := Compute(dec("4.00"), 5, dec("1.00"), dec("6.00"), DeliveryPickup)
	require.NoError(t, err)

	require.True(t, one.Commission.Equal(five.Commission))
	require.True(t, five.Total.Equal(dec("21.00")))
}
