package domain

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// EventKind identifies a customer lifecycle event that can auto-grant a
// coupon.
type EventKind string

const (
	EventBirthday   EventKind = "BIRTHDAY"
	EventNewUser    EventKind = "NEW_USER"
	EventInactive   EventKind = "INACTIVE"
	EventVIPTier    EventKind = "VIP_TIER"
	EventFirstOrder EventKind = "FIRST_ORDER"
	EventHoliday    EventKind = "HOLIDAY"
)

// EventKinds returns all valid event kinds.
func EventKinds() []EventKind {
	return []EventKind{
		EventBirthday, EventNewUser, EventInactive,
		EventVIPTier, EventFirstOrder, EventHoliday,
	}
}

// IsValidEventKind reports whether k names a known event kind.
func IsValidEventKind(k EventKind) bool {
	return slices.Contains(EventKinds(), k)
}

// EventRule is configuration describing when a lifecycle event grants a
// coupon. Discount terms have the same shape as a coupon's.
type EventRule struct {
	ID              string              `json:"id"`
	Name            string              `json:"name"`
	Kind            EventKind           `json:"kind"`
	DiscountKind    DiscountKind        `json:"discount_kind"`
	Value           decimal.Decimal     `json:"value"`
	MaxDiscount     decimal.NullDecimal `json:"max_discount"`
	MinOrderAmount  decimal.NullDecimal `json:"min_order_amount"`
	ValidityDays    int                 `json:"validity_days"`
	InactiveDays    int                 `json:"inactive_days,omitempty"`
	NewUserDays     int                 `json:"new_user_days,omitempty"`
	HolidayDate     string              `json:"holiday_date,omitempty"` // MM-DD
	TargetTierID    string              `json:"target_tier_id,omitempty"`
	EligibleTierIDs []string            `json:"eligible_tier_ids"`
	OncePerYear     bool                `json:"once_per_year"`
	Active          bool                `json:"active"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

// TierEligible reports whether a customer in the given tier may receive
// coupons from this rule. An empty eligibility set admits all tiers.
func (r *EventRule) TierEligible(tierID string) bool {
	if len(r.EligibleTierIDs) == 0 {
		return true
	}
	return slices.Contains(r.EligibleTierIDs, tierID)
}

// Matches evaluates this rule's event-specific predicate against the
// customer at the given instant. The tier filter and dedup are checked
// separately by the caller.
func (r *EventRule) Matches(cust *Customer, now time.Time) bool {
	switch r.Kind {
	case EventBirthday:
		if cust.DateOfBirth == nil {
			return false
		}
		return cust.DateOfBirth.Month() == now.Month() && cust.DateOfBirth.Day() == now.Day()

	case EventNewUser:
		days := int(now.Sub(cust.RegisteredAt).Hours() / 24)
		return days >= 0 && days <= r.NewUserDays

	case EventInactive:
		if cust.LastOrderAt == nil {
			return false
		}
		days := int(now.Sub(*cust.LastOrderAt).Hours() / 24)
		return r.InactiveDays > 0 && days >= r.InactiveDays

	case EventVIPTier:
		return cust.TierID != "" && cust.TierID == r.TargetTierID

	case EventFirstOrder:
		// The trigger itself carries the condition; the rule matches any
		// customer it is fired for.
		return true

	case EventHoliday:
		return r.HolidayDate != "" && now.Format("01-02") == r.HolidayDate

	default:
		return false
	}
}
