package models

// Tier is a subscription plan granting a base storage allowance.
type Tier struct {
	ID             int64
	Name           string
	StorageLimitGB float64
}

// DefaultTier is applied to owners without a subscription record.
var DefaultTier = Tier{ID: 1, Name: "Free", StorageLimitGB: 5}

// Usage summarizes an owner's capacity.
type Usage struct {
	Tier      string
	BonusGB   float64
	Entitled  int64
	Consumed  int64
	Remaining int64
}
