package store

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Setting keys consulted by the pricing flow.
const (
	SettingServiceFee = "service_fee"
	SettingRiderPrice = "rider_price"
)

// Settings reads the key/value configuration table.
type Settings struct {
	Pool *pgxpool.Pool
}

// Values returns the requested settings. Missing keys are simply absent from
// the result; callers decide the fallback.
func (r Settings) Values(ctx context.Context, keys ...string) (map[string]string, error) {
	rows, err := r.Pool.Query(ctx, `SELECT key, value FROM settings WHERE key = ANY($1)`, keys)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	values := make(map[string]string, len(keys))
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		values[key] = value
	}
	return values, rows.Err()
}
