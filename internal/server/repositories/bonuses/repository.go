package bonuses

import "context"

// Repository keeps the cumulative bonus capacity of each owner.
type Repository interface {
	// Get returns the owner's bonus in GB, zero when none was ever granted.
	Get(ctx context.Context, owner string) (float64, error)
	// Add increases the owner's bonus by gb and returns the new total.
	Add(ctx context.Context, owner string, gb float64) (float64, error)
}
