package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DiscountKind describes how a coupon's value is applied to an order.
type DiscountKind string

const (
	DiscountPercent DiscountKind = "PERCENT"
	DiscountFixed   DiscountKind = "FIXED"
)

// CouponStatus is the coupon lifecycle state.
type CouponStatus string

const (
	CouponActive  CouponStatus = "ACTIVE"
	CouponUsed    CouponStatus = "USED"
	CouponExpired CouponStatus = "EXPIRED"
)

// Coupon is a customer-bound, single-use discount grant. Discount terms
// are copied from the originating reward slot or event rule at issuance,
// so later configuration edits never change an already-issued coupon.
type Coupon struct {
	ID             string              `json:"id"`
	Code           string              `json:"code"`
	CustomerID     string              `json:"customer_id"`
	Kind           DiscountKind        `json:"discount_kind"`
	Value          decimal.Decimal     `json:"value"`
	MaxDiscount    decimal.NullDecimal `json:"max_discount"`
	MinOrderAmount decimal.NullDecimal `json:"min_order_amount"`
	Status         CouponStatus        `json:"status"`
	ExpiresAt      time.Time           `json:"expires_at"`
	UsedAt         *time.Time          `json:"used_at,omitempty"`
	OrderID        *string             `json:"order_id,omitempty"`
	ProgramID      *string             `json:"program_id,omitempty"`
	SlotID         *string             `json:"slot_id,omitempty"`
	RuleID         *string             `json:"rule_id,omitempty"`
	EventKind      *EventKind          `json:"event_kind,omitempty"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

var oneHundred = decimal.NewFromInt(100)

// Discount computes the discount this coupon grants on the given order
// subtotal. PERCENT coupons truncate sub-unit fractions and honor the
// max-discount cap; the result is never larger than the subtotal and
// never negative.
func (c *Coupon) Discount(subtotal decimal.Decimal) decimal.Decimal {
	var d decimal.Decimal
	switch c.Kind {
	case DiscountPercent:
		d = subtotal.Mul(c.Value).Div(oneHundred).Truncate(0)
		if c.MaxDiscount.Valid && d.GreaterThan(c.MaxDiscount.Decimal) {
			d = c.MaxDiscount.Decimal
		}
	case DiscountFixed:
		d = c.Value
	default:
		return decimal.Zero
	}

	if d.GreaterThan(subtotal) {
		d = subtotal
	}
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// IsExpired reports whether the coupon is past its expiry at the given
// instant, regardless of stored status.
func (c *Coupon) IsExpired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// MeetsMinimum reports whether the order subtotal satisfies the coupon's
// minimum-order floor, if one is set.
func (c *Coupon) MeetsMinimum(subtotal decimal.Decimal) bool {
	if !c.MinOrderAmount.Valid {
		return true
	}
	return subtotal.GreaterThanOrEqual(c.MinOrderAmount.Decimal)
}
