// Package pricing computes server-side order totals. Client-supplied amounts
// are never trusted; every charge is derived from stored offer prices and fee
// settings at request time.
package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// DeliveryMethod selects how the buyer receives the order.
type DeliveryMethod string

const (
	DeliveryPickup DeliveryMethod = "pickup"
	DeliveryRider  DeliveryMethod = "delivery"
)

// Quote is the fully priced breakdown of an order before charging.
// All amounts are decimal currency units rounded to 2 decimal places.
type Quote struct {
	UnitPrice    decimal.Decimal
	Quantity     int
	Subtotal     decimal.Decimal
	Commission   decimal.Decimal
	ShippingCost decimal.Decimal
	Total        decimal.Decimal
}

// Compute prices an order. Commission is the platform service fee, charged
// once per order regardless of quantity. Shipping applies only to rider
// delivery.
func Compute(unitPrice decimal.Decimal, quantity int, serviceFee, riderPrice decimal.Decimal, method DeliveryMethod) (Quote, error) {
	if quantity <= 0 {
		return Quote{}, fmt.Errorf("pricing: quantity must be positive, got %d", quantity)
	}
	if unitPrice.IsNegative() {
		return Quote{}, fmt.Errorf("pricing: negative unit price %s", unitPrice)
	}

	shipping := decimal.Zero
	if method == DeliveryRider {
		shipping = riderPrice
	}

	subtotal := unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
	total := subtotal.Add(serviceFee).Add(shipping)

	return Quote{
		UnitPrice:    unitPrice.Round(2),
		Quantity:     quantity,
		Subtotal:     subtotal.Round(2),
		Commission:   serviceFee.Round(2),
		ShippingCost: shipping.Round(2),
		Total:        total.Round(2),
	}, nil
}

// MinorUnits converts a decimal currency amount into integer minor units
// (cents). The amount is rounded to 2 decimal places first, then shifted,
// so 19.999 becomes 2000 rather than 1999.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Round(2).Shift(2).IntPart()
}
