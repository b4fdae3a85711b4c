// Package event publishes rewards domain events to Kafka.
package event

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lumistore/rewards/internal/domain"
	pkgkafka "github.com/lumistore/rewards/pkg/kafka"
)

// Kafka topic constants for rewards domain events.
const (
	TopicSpinCompleted  = "rewards.spin.completed"
	TopicCouponIssued   = "rewards.coupon.issued"
	TopicCouponRedeemed = "rewards.coupon.redeemed"
	TopicCouponExpired  = "rewards.coupon.expired"
)

// Aggregate type constants.
const (
	AggregateTypeSpin   = "spin"
	AggregateTypeCoupon = "coupon"
)

// Source identifier for events originating from the rewards service.
const SourceRewardsService = "rewards-service"

// SpinCompletedData is the payload for a spin.completed event.
type SpinCompletedData struct {
	SpinID     string `json:"spin_id"`
	CustomerID string `json:"customer_id"`
	ProgramID  string `json:"program_id"`
	SlotID     string `json:"slot_id"`
	SlotLabel  string `json:"slot_label"`
	RewardKind string `json:"reward_kind"`
	SpinKind   string `json:"spin_kind"`
	CouponCode string `json:"coupon_code,omitempty"`
}

// CouponIssuedData is the payload for a coupon.issued event.
type CouponIssuedData struct {
	CouponID     string    `json:"coupon_id"`
	Code         string    `json:"code"`
	CustomerID   string    `json:"customer_id"`
	DiscountKind string    `json:"discount_kind"`
	Value        string    `json:"value"`
	ExpiresAt    time.Time `json:"expires_at"`
	Origin       string    `json:"origin"`
}

// CouponRedeemedData is the payload for a coupon.redeemed event.
type CouponRedeemedData struct {
	CouponID   string    `json:"coupon_id"`
	Code       string    `json:"code"`
	CustomerID string    `json:"customer_id"`
	OrderID    string    `json:"order_id"`
	UsedAt     time.Time `json:"used_at"`
}

// CouponsExpiredData is the payload for a coupon.expired sweep event.
type CouponsExpiredData struct {
	Count   int64     `json:"count"`
	SweptAt time.Time `json:"swept_at"`
}

// Producer publishes rewards domain events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer for the rewards service.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishSpinCompleted publishes a spin.completed event.
func (p *Producer) PublishSpinCompleted(ctx context.Context, spin *domain.SpinHistory, slot *domain.RewardSlot, couponCode string) error {
	data := SpinCompletedData{
		SpinID:     spin.ID,
		CustomerID: spin.CustomerID,
		ProgramID:  spin.ProgramID,
		SlotID:     slot.ID,
		SlotLabel:  slot.Label,
		RewardKind: string(slot.Kind),
		SpinKind:   string(spin.Kind),
		CouponCode: couponCode,
	}

	event, err := pkgkafka.NewEvent(TopicSpinCompleted, spin.ID, AggregateTypeSpin, SourceRewardsService, data)
	if err != nil {
		return fmt.Errorf("create spin.completed event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicSpinCompleted, event); err != nil {
		return fmt.Errorf("publish spin.completed event: %w", err)
	}

	p.logger.DebugContext(ctx, "published spin.completed event",
		slog.String("spin_id", spin.ID),
		slog.String("customer_id", spin.CustomerID),
	)

	return nil
}

// PublishCouponIssued publishes a coupon.issued event. Origin names where
// the coupon came from: "spin" or the triggering event kind.
func (p *Producer) PublishCouponIssued(ctx context.Context, coupon *domain.Coupon, origin string) error {
	data := CouponIssuedData{
		CouponID:     coupon.ID,
		Code:         coupon.Code,
		CustomerID:   coupon.CustomerID,
		DiscountKind: string(coupon.Kind),
		Value:        coupon.Value.String(),
		ExpiresAt:    coupon.ExpiresAt,
		Origin:       origin,
	}

	event, err := pkgkafka.NewEvent(TopicCouponIssued, coupon.ID, AggregateTypeCoupon, SourceRewardsService, data)
	if err != nil {
		return fmt.Errorf("create coupon.issued event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicCouponIssued, event); err != nil {
		return fmt.Errorf("publish coupon.issued event: %w", err)
	}

	p.logger.DebugContext(ctx, "published coupon.issued event",
		slog.String("coupon_id", coupon.ID),
		slog.String("code", coupon.Code),
	)

	return nil
}

// PublishCouponRedeemed publishes a coupon.redeemed event.
func (p *Producer) PublishCouponRedeemed(ctx context.Context, coupon *domain.Coupon) error {
	data := CouponRedeemedData{
		CouponID:   coupon.ID,
		Code:       coupon.Code,
		CustomerID: coupon.CustomerID,
	}
	if coupon.OrderID != nil {
		data.OrderID = *coupon.OrderID
	}
	if coupon.UsedAt != nil {
		data.UsedAt = *coupon.UsedAt
	}

	event, err := pkgkafka.NewEvent(TopicCouponRedeemed, coupon.ID, AggregateTypeCoupon, SourceRewardsService, data)
	if err != nil {
		return fmt.Errorf("create coupon.redeemed event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicCouponRedeemed, event); err != nil {
		return fmt.Errorf("publish coupon.redeemed event: %w", err)
	}

	p.logger.DebugContext(ctx, "published coupon.redeemed event",
		slog.String("coupon_id", coupon.ID),
		slog.String("code", coupon.Code),
	)

	return nil
}

// PublishCouponsExpired publishes one coupon.expired event per sweep with
// the number of coupons flipped.
func (p *Producer) PublishCouponsExpired(ctx context.Context, count int64, sweptAt time.Time) error {
	data := CouponsExpiredData{
		Count:   count,
		SweptAt: sweptAt,
	}

	event, err := pkgkafka.NewEvent(TopicCouponExpired, sweptAt.Format(time.RFC3339), AggregateTypeCoupon, SourceRewardsService, data)
	if err != nil {
		return fmt.Errorf("create coupon.expired event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicCouponExpired, event); err != nil {
		return fmt.Errorf("publish coupon.expired event: %w", err)
	}

	p.logger.DebugContext(ctx, "published coupon.expired event",
		slog.Int64("count", count),
	)

	return nil
}
