package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lumistore/rewards/internal/domain"
	"github.com/lumistore/rewards/internal/event"
	"github.com/lumistore/rewards/internal/repository"
	apperrors "github.com/lumistore/rewards/pkg/errors"
)

// CouponService implements the shared coupon ledger operations.
type CouponService struct {
	coupons  repository.CouponRepository
	producer *event.Producer
	logger   *slog.Logger
}

// NewCouponService creates a new coupon service.
func NewCouponService(coupons repository.CouponRepository, producer *event.Producer, logger *slog.Logger) *CouponService {
	return &CouponService{
		coupons:  coupons,
		producer: producer,
		logger:   logger,
	}
}

// ValidateInput holds the parameters for validating a coupon against an
// order.
type ValidateInput struct {
	Code     string
	Subtotal decimal.Decimal
}

// CouponValidation is the result of a successful validation.
type CouponValidation struct {
	Coupon   *domain.Coupon  `json:"coupon"`
	Discount decimal.Decimal `json:"discount"`
}

// RedeemInput holds the parameters for redeeming a coupon.
type RedeemInput struct {
	Code     string
	OrderID  string
	Subtotal decimal.Decimal
}

// Validate checks a coupon against an order subtotal without consuming
// it. A coupon found past its expiry is flipped to EXPIRED on the spot,
// so reads repair the ledger ahead of the sweep.
func (s *CouponService) Validate(ctx context.Context, input *ValidateInput) (*CouponValidation, error) {
	coupon, err := s.checkRedeemable(ctx, input.Code, input.Subtotal, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	return &CouponValidation{
		Coupon:   coupon,
		Discount: coupon.Discount(input.Subtotal),
	}, nil
}

// Redeem consumes a coupon for an order. The repository's conditional
// transition guarantees exactly one caller wins a concurrent redemption.
func (s *CouponService) Redeem(ctx context.Context, input *RedeemInput) (*CouponValidation, error) {
	if input.OrderID == "" {
		return nil, apperrors.InvalidInput("order id is required")
	}

	now := time.Now().UTC()

	if _, err := s.checkRedeemable(ctx, input.Code, input.Subtotal, now); err != nil {
		return nil, err
	}

	coupon, err := s.coupons.Redeem(ctx, normalizeCode(input.Code), input.OrderID, now)
	if err != nil {
		return nil, err
	}

	couponsRedeemedTotal.Inc()

	if err := s.producer.PublishCouponRedeemed(ctx, coupon); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish coupon.redeemed event",
			slog.String("coupon_id", coupon.ID),
			slog.String("error", err.Error()),
		)
		// Do not fail the operation if event publishing fails.
	}

	s.logger.InfoContext(ctx, "coupon redeemed",
		slog.String("coupon_id", coupon.ID),
		slog.String("code", coupon.Code),
		slog.String("order_id", input.OrderID),
	)

	return &CouponValidation{
		Coupon:   coupon,
		Discount: coupon.Discount(input.Subtotal),
	}, nil
}

// ListCustomerCoupons returns a customer's coupons, optionally filtered
// by status.
func (s *CouponService) ListCustomerCoupons(ctx context.Context, customerID, status string) ([]domain.Coupon, error) {
	var filter *domain.CouponStatus
	if status != "" {
		st := domain.CouponStatus(strings.ToUpper(status))
		switch st {
		case domain.CouponActive, domain.CouponUsed, domain.CouponExpired:
			filter = &st
		default:
			return nil, apperrors.InvalidInput(fmt.Sprintf("unknown coupon status %q", status))
		}
	}

	coupons, err := s.coupons.ListByCustomer(ctx, customerID, filter)
	if err != nil {
		return nil, fmt.Errorf("list customer coupons: %w", err)
	}

	return coupons, nil
}

// ExpireStale flips every coupon past its expiry to EXPIRED and reports
// how many changed. Safe to run repeatedly.
func (s *CouponService) ExpireStale(ctx context.Context) (int64, error) {
	now := time.Now().UTC()

	n, err := s.coupons.ExpireStale(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("expire stale coupons: %w", err)
	}

	if n > 0 {
		couponsExpiredTotal.Add(float64(n))

		if err := s.producer.PublishCouponsExpired(ctx, n, now); err != nil {
			s.logger.ErrorContext(ctx, "failed to publish coupon.expired event",
				slog.Int64("count", n),
				slog.String("error", err.Error()),
			)
		}

		s.logger.InfoContext(ctx, "expired stale coupons", slog.Int64("count", n))
	}

	return n, nil
}

// checkRedeemable resolves a code and applies the shared rejection rules
// for validation and redemption.
func (s *CouponService) checkRedeemable(ctx context.Context, code string, subtotal decimal.Decimal, now time.Time) (*domain.Coupon, error) {
	if subtotal.IsNegative() {
		return nil, apperrors.InvalidInput("subtotal must not be negative")
	}

	coupon, err := s.coupons.GetByCode(ctx, normalizeCode(code))
	if err != nil {
		return nil, err
	}

	switch coupon.Status {
	case domain.CouponUsed:
		return nil, domain.ErrCouponAlreadyUsed
	case domain.CouponExpired:
		return nil, domain.ErrCouponExpired
	}

	if coupon.IsExpired(now) {
		if err := s.coupons.MarkExpired(ctx, coupon.ID, now); err != nil {
			s.logger.ErrorContext(ctx, "failed to mark coupon expired",
				slog.String("coupon_id", coupon.ID),
				slog.String("error", err.Error()),
			)
		} else {
			couponsExpiredTotal.Inc()
		}
		return nil, domain.ErrCouponExpired
	}

	if !coupon.MeetsMinimum(subtotal) {
		return nil, domain.ErrOrderBelowMinimum
	}

	return coupon, nil
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
