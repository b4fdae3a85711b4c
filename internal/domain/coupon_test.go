package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func nullDec(v int64) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: decimal.NewFromInt(v), Valid: true}
}

func TestCoupon_Discount_PercentCapped(t *testing.T) {
	c := &Coupon{Kind: DiscountPercent, Value: dec(10), MaxDiscount: nullDec(20000)}

	// 10% of 500000 is 50000, capped at 20000.
	assert.True(t, c.Discount(dec(500000)).Equal(dec(20000)))
}

func TestCoupon_Discount_PercentUncapped(t *testing.T) {
	c := &Coupon{Kind: DiscountPercent, Value: dec(10), MaxDiscount: nullDec(20000)}

	assert.True(t, c.Discount(dec(100000)).Equal(dec(10000)))
}

func TestCoupon_Discount_PercentNoCap(t *testing.T) {
	c := &Coupon{Kind: DiscountPercent, Value: dec(25)}

	assert.True(t, c.Discount(dec(1000)).Equal(dec(250)))
}

func TestCoupon_Discount_PercentTruncatesSubUnit(t *testing.T) {
	c := &Coupon{Kind: DiscountPercent, Value: dec(15)}

	// 15% of 333 is 49.95; sub-unit fractions are truncated, not rounded.
	assert.True(t, c.Discount(dec(333)).Equal(dec(49)))
}

func TestCoupon_Discount_FixedCappedAtSubtotal(t *testing.T) {
	c := &Coupon{Kind: DiscountFixed, Value: dec(50000)}

	assert.True(t, c.Discount(dec(30000)).Equal(dec(30000)))
	assert.True(t, c.Discount(dec(80000)).Equal(dec(50000)))
}

func TestCoupon_Discount_UnknownKindIsZero(t *testing.T) {
	c := &Coupon{Kind: DiscountKind("MYSTERY"), Value: dec(10)}

	assert.True(t, c.Discount(dec(1000)).IsZero())
}

func TestCoupon_IsExpired(t *testing.T) {
	now := time.Date(2026, 3, 8, 12, 0, 0, 0, time.UTC)
	c := &Coupon{ExpiresAt: now.Add(time.Hour)}

	assert.False(t, c.IsExpired(now))
	assert.True(t, c.IsExpired(now.Add(2*time.Hour)))
	assert.False(t, c.IsExpired(c.ExpiresAt), "expiry instant itself is still valid")
}

func TestCoupon_MeetsMinimum(t *testing.T) {
	c := &Coupon{MinOrderAmount: nullDec(100000)}

	assert.False(t, c.MeetsMinimum(dec(99999)))
	assert.True(t, c.MeetsMinimum(dec(100000)))

	noFloor := &Coupon{}
	assert.True(t, noFloor.MeetsMinimum(dec(1)))
}
