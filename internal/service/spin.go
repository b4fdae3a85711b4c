// Package service implements the rewards business logic on top of the
// repository interfaces.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/lumistore/rewards/internal/domain"
	"github.com/lumistore/rewards/internal/event"
	"github.com/lumistore/rewards/internal/repository"
	apperrors "github.com/lumistore/rewards/pkg/errors"
)

// systemRand draws from the shared math/rand/v2 generator, which is safe
// for concurrent use.
type systemRand struct{}

func (systemRand) Float64() float64 { return rand.Float64() }

// SpinService implements the Lucky Spin wheel operations.
type SpinService struct {
	programs  repository.ProgramRepository
	customers repository.CustomerRepository
	spins     repository.SpinRepository
	producer  *event.Producer
	logger    *slog.Logger
	rng       domain.Rand
}

// NewSpinService creates a new spin service.
func NewSpinService(programs repository.ProgramRepository, customers repository.CustomerRepository, spins repository.SpinRepository, producer *event.Producer, logger *slog.Logger) *SpinService {
	return &SpinService{
		programs:  programs,
		customers: customers,
		spins:     spins,
		producer:  producer,
		logger:    logger,
		rng:       systemRand{},
	}
}

// WheelView is the public shape of the wheel: the current program and its
// slots in display order.
type WheelView struct {
	Program *domain.Program     `json:"program"`
	Slots   []domain.RewardSlot `json:"slots"`
}

// SpinInput holds the parameters for one spin attempt.
type SpinInput struct {
	CustomerID string
	Kind       domain.SpinKind
}

// SpinResult is the outcome of one spin.
type SpinResult struct {
	SpinID    string            `json:"spin_id"`
	SlotIndex int               `json:"slot_index"`
	Slot      domain.RewardSlot `json:"slot"`
	Coupon    *domain.Coupon    `json:"coupon,omitempty"`
}

// GetWheel returns the current program and its reward slots.
func (s *SpinService) GetWheel(ctx context.Context) (*WheelView, error) {
	program, slots, err := s.currentWheel(ctx, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	return &WheelView{Program: program, Slots: slots}, nil
}

// GetSpinStatus summarizes a customer's remaining allowance for today.
func (s *SpinService) GetSpinStatus(ctx context.Context, customerID string) (*domain.SpinStatus, error) {
	now := time.Now().UTC()

	program, err := s.currentProgram(ctx, now)
	if err != nil {
		return nil, err
	}

	customer, err := s.customers.GetByID(ctx, customerID)
	if err != nil {
		return nil, err
	}

	used, err := s.spins.CountSpins(ctx, customerID, program.ID, now, domain.SpinFree)
	if err != nil {
		return nil, fmt.Errorf("count free spins: %w", err)
	}

	remaining := program.DailyFreeSpins - used
	if remaining < 0 {
		remaining = 0
	}

	return &domain.SpinStatus{
		RemainingFreeSpins: remaining,
		SpinsToday:         used,
		CustomerPoints:     customer.Points,
		PointsPerSpin:      program.PointsPerSpin,
	}, nil
}

// Spin performs one spin: selects a weighted slot for the customer's
// tier, registers the attempt atomically against the daily limit or the
// point balance, and issues the coupon the slot grants, if any.
func (s *SpinService) Spin(ctx context.Context, input *SpinInput) (*SpinResult, error) {
	if input.Kind != domain.SpinFree && input.Kind != domain.SpinPointsExchange {
		return nil, apperrors.InvalidInput(fmt.Sprintf("unknown spin kind %q", input.Kind))
	}

	now := time.Now().UTC()

	program, slots, err := s.currentWheel(ctx, now)
	if err != nil {
		return nil, err
	}

	customer, err := s.customers.GetByID(ctx, input.CustomerID)
	if err != nil {
		return nil, err
	}

	slot, index, err := domain.SelectSlot(slots, customer.TierName, s.rng)
	if err != nil {
		return nil, err
	}

	spin := &domain.SpinHistory{
		ID:         uuid.New().String(),
		CustomerID: customer.ID,
		ProgramID:  program.ID,
		SlotID:     slot.ID,
		Kind:       input.Kind,
		SpinDate:   now,
		CreatedAt:  now,
	}
	if input.Kind == domain.SpinPointsExchange {
		spin.PointsSpent = program.PointsPerSpin
	}

	var coupon *domain.Coupon
	if slot.GrantsCoupon() {
		coupon = s.couponFromSlot(program, &slot, customer.ID, now)
		spin.CouponID = &coupon.ID
	}

	err = s.spins.RegisterSpin(ctx, spin, coupon, program.DailyFreeSpins, int64(program.PointsPerSpin))
	if err != nil {
		if isRejection(err) {
			spinsTotal.WithLabelValues(string(input.Kind), outcomeRejected).Inc()
		}
		return nil, err
	}

	outcome := outcomeNoReward
	if coupon != nil {
		outcome = outcomeRewarded
		couponsIssuedTotal.WithLabelValues("spin").Inc()
	}
	spinsTotal.WithLabelValues(string(input.Kind), outcome).Inc()

	couponCode := ""
	if coupon != nil {
		couponCode = coupon.Code
	}
	if err := s.producer.PublishSpinCompleted(ctx, spin, &slot, couponCode); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish spin.completed event",
			slog.String("spin_id", spin.ID),
			slog.String("error", err.Error()),
		)
		// Do not fail the operation if event publishing fails.
	}
	if coupon != nil {
		if err := s.producer.PublishCouponIssued(ctx, coupon, "spin"); err != nil {
			s.logger.ErrorContext(ctx, "failed to publish coupon.issued event",
				slog.String("coupon_id", coupon.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	s.logger.InfoContext(ctx, "spin completed",
		slog.String("spin_id", spin.ID),
		slog.String("customer_id", customer.ID),
		slog.String("slot_id", slot.ID),
		slog.String("kind", string(input.Kind)),
		slog.Bool("rewarded", coupon != nil),
	)

	return &SpinResult{
		SpinID:    spin.ID,
		SlotIndex: index,
		Slot:      slot,
		Coupon:    coupon,
	}, nil
}

// couponFromSlot copies the slot's discount terms into a fresh coupon.
func (s *SpinService) couponFromSlot(program *domain.Program, slot *domain.RewardSlot, customerID string, now time.Time) *domain.Coupon {
	return &domain.Coupon{
		ID:             uuid.New().String(),
		Code:           generateCouponCode(codePrefixSpin),
		CustomerID:     customerID,
		Kind:           domain.DiscountKind(slot.Kind),
		Value:          slot.Value,
		MaxDiscount:    slot.MaxDiscount,
		MinOrderAmount: slot.MinOrderAmount,
		Status:         domain.CouponActive,
		ExpiresAt:      now.AddDate(0, 0, slot.ValidityDays),
		ProgramID:      &program.ID,
		SlotID:         &slot.ID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func (s *SpinService) currentProgram(ctx context.Context, now time.Time) (*domain.Program, error) {
	program, err := s.programs.GetCurrent(ctx, now)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, domain.ErrNoActiveProgram
		}
		return nil, fmt.Errorf("get current program: %w", err)
	}
	return program, nil
}

func (s *SpinService) currentWheel(ctx context.Context, now time.Time) (*domain.Program, []domain.RewardSlot, error) {
	program, err := s.currentProgram(ctx, now)
	if err != nil {
		return nil, nil, err
	}

	slots, err := s.programs.ListActiveSlots(ctx, program.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("list reward slots: %w", err)
	}
	if len(slots) == 0 {
		return nil, nil, domain.ErrNoRewardsConfigured
	}

	return program, slots, nil
}

// isRejection reports whether err is a typed business rejection rather
// than a system failure.
func isRejection(err error) bool {
	var appErr *apperrors.AppError
	return errors.As(err, &appErr)
}
