package domain

import (
	"net/http"

	apperrors "github.com/lumistore/rewards/pkg/errors"
)

// Business rejections surfaced to callers as typed results. A spin that
// cannot proceed or a coupon that cannot be applied is a normal outcome,
// not a system failure.
var (
	ErrNoActiveProgram     = apperrors.New("NO_ACTIVE_PROGRAM", "no reward program is currently active", http.StatusNotFound)
	ErrNoRewardsConfigured = apperrors.New("NO_REWARDS_CONFIGURED", "the active program has no reward slots configured", http.StatusUnprocessableEntity)
	ErrDailyLimitExceeded  = apperrors.New("DAILY_LIMIT_EXCEEDED", "daily free spin limit reached", http.StatusTooManyRequests)
	ErrInsufficientPoints  = apperrors.New("INSUFFICIENT_POINTS", "not enough points for a point-exchange spin", http.StatusUnprocessableEntity)
	ErrCouponNotFound      = apperrors.New("COUPON_NOT_FOUND", "coupon code not found", http.StatusNotFound)
	ErrCouponAlreadyUsed   = apperrors.New("COUPON_ALREADY_USED", "coupon has already been used", http.StatusConflict)
	ErrCouponExpired       = apperrors.New("COUPON_EXPIRED", "coupon has expired", http.StatusGone)
	ErrOrderBelowMinimum   = apperrors.New("ORDER_BELOW_MINIMUM", "order subtotal is below the coupon minimum", http.StatusUnprocessableEntity)
	ErrRuleNotFound        = apperrors.New("RULE_NOT_FOUND", "event rule not found", http.StatusNotFound)
	ErrInvalidEventContext = apperrors.New("INVALID_EVENT_CONTEXT", "event context is invalid for this event kind", http.StatusBadRequest)
	ErrCustomerNotFound    = apperrors.New("CUSTOMER_NOT_FOUND", "customer not found", http.StatusNotFound)
)
