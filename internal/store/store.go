// Package store holds the Postgres repositories. Queries run through a pgx
// pool opened with the service-role credential, so writes are not subject to
// the row-level policies that constrain the mobile client's own connection.
package store

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("store: not found")

// Numeric columns are selected as ::text and parsed here, keeping monetary
// values in decimal end to end.
func parseMoney(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("store: parse numeric %q: %w", s, err)
	}
	return d, nil
}
