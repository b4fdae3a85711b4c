// Package domain contains the rewards entities and the pure business
// logic that operates on them: reward selection, discount math, and event
// rule matching.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// RewardKind describes what a wheel slot grants.
type RewardKind string

const (
	RewardPercent  RewardKind = "PERCENT"
	RewardFixed    RewardKind = "FIXED"
	RewardNoReward RewardKind = "NO_REWARD"
)

// Customer tier names used for probability multipliers. Bronze and unknown
// tiers use a multiplier of 1.0.
const (
	TierBronze   = "bronze"
	TierSilver   = "silver"
	TierGold     = "gold"
	TierPlatinum = "platinum"
)

// Program is a time-boxed reward campaign. At most one program should be
// current at any instant, but lookups tolerate zero matches.
type Program struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	StartsAt       time.Time `json:"starts_at"`
	EndsAt         time.Time `json:"ends_at"`
	DailyFreeSpins int       `json:"daily_free_spins"`
	PointsPerSpin  int       `json:"points_per_spin"`
	Active         bool      `json:"active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// IsCurrentlyActive reports whether the program accepts spins at the given
// instant: active flag set and now within [StartsAt, EndsAt).
func (p *Program) IsCurrentlyActive(now time.Time) bool {
	return p.Active && !now.Before(p.StartsAt) && now.Before(p.EndsAt)
}

// RewardSlot is one weighted outcome on the spin wheel. Slots belong to a
// program and are displayed in SortOrder.
type RewardSlot struct {
	ID                 string              `json:"id"`
	ProgramID          string              `json:"program_id"`
	Label              string              `json:"label"`
	Kind               RewardKind          `json:"kind"`
	Value              decimal.Decimal     `json:"value"`
	MaxDiscount        decimal.NullDecimal `json:"max_discount"`
	MinOrderAmount     decimal.NullDecimal `json:"min_order_amount"`
	ValidityDays       int                 `json:"validity_days"`
	BaseProbability    float64             `json:"base_probability"`
	SilverMultiplier   float64             `json:"silver_multiplier"`
	GoldMultiplier     float64             `json:"gold_multiplier"`
	PlatinumMultiplier float64             `json:"platinum_multiplier"`
	Active             bool                `json:"active"`
	SortOrder          int                 `json:"sort_order"`
	CreatedAt          time.Time           `json:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at"`
}

// Multiplier returns the probability multiplier for the given tier name.
func (s *RewardSlot) Multiplier(tier string) float64 {
	switch tier {
	case TierSilver:
		return s.SilverMultiplier
	case TierGold:
		return s.GoldMultiplier
	case TierPlatinum:
		return s.PlatinumMultiplier
	default:
		return 1.0
	}
}

// GrantsCoupon reports whether landing on this slot issues a coupon.
func (s *RewardSlot) GrantsCoupon() bool {
	return s.Kind != RewardNoReward
}
