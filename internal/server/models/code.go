package models

import "time"

// CodeFamily tags the origin of a redeemable code.
type CodeFamily string

const (
	// FamilySpecial codes are issued by administrators with a use limit.
	FamilySpecial CodeFamily = "special"
	// FamilyFound codes are single-use codes handed out by the mini-game.
	FamilyFound CodeFamily = "found"
)

// SpecialCode is an administrator-issued code. MaxUses of zero means unlimited.
type SpecialCode struct {
	Code      string
	GBAmount  float64
	MaxUses   int64
	UseCount  int64
	CreatedBy string
	CreatedAt time.Time
}

// FoundCode is a single-use code of a fixed class.
type FoundCode struct {
	Code      string
	GB        float64
	Class     string
	Used      bool
	UsedBy    string
	UsedAt    *time.Time
	CreatedBy string
	CreatedAt time.Time
}

// RedeemableCode is the family-independent view of a code used by the
// redemption protocol.
type RedeemableCode struct {
	Family   CodeFamily
	Code     string
	GBAmount float64
	// MaxUses of zero means unlimited.
	MaxUses  int64
	UseCount int64
}

// Exhausted reports whether no further redemption is allowed.
func (c *RedeemableCode) Exhausted() bool {
	return c.RemainingUses() == 0
}

// RemainingUses returns -1 for unlimited codes.
func (c *RedeemableCode) RemainingUses() int64 {
	if c.MaxUses == 0 {
		return -1
	}
	if c.UseCount >= c.MaxUses {
		return 0
	}
	return c.MaxUses - c.UseCount
}

// Redemption is the insert-only audit record of a successful redemption.
type Redemption struct {
	Code       string
	Owner      string
	Family     CodeFamily
	GBAmount   float64
	RedeemedAt time.Time
}
