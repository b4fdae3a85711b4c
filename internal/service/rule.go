package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/lumistore/rewards/internal/domain"
	"github.com/lumistore/rewards/internal/event"
	"github.com/lumistore/rewards/internal/repository"
)

// RuleService evaluates event rules and issues the coupons they grant.
type RuleService struct {
	rules     repository.RuleRepository
	customers repository.CustomerRepository
	coupons   repository.CouponRepository
	producer  *event.Producer
	logger    *slog.Logger
}

// NewRuleService creates a new event rule service.
func NewRuleService(rules repository.RuleRepository, customers repository.CustomerRepository, coupons repository.CouponRepository, producer *event.Producer, logger *slog.Logger) *RuleService {
	return &RuleService{
		rules:     rules,
		customers: customers,
		coupons:   coupons,
		producer:  producer,
		logger:    logger,
	}
}

// EvaluateEventInput holds the parameters of one event trigger.
type EvaluateEventInput struct {
	CustomerID string
	Kind       domain.EventKind
}

// SweepReport summarizes one scheduled sweep run.
type SweepReport struct {
	Evaluated int `json:"evaluated"`
	Issued    int `json:"issued"`
}

// EvaluateEvent runs all active rules of one kind against a customer and
// issues every coupon that matches. Deduplication makes re-delivered
// triggers harmless.
func (s *RuleService) EvaluateEvent(ctx context.Context, input *EvaluateEventInput) ([]domain.Coupon, error) {
	if !domain.IsValidEventKind(input.Kind) {
		return nil, domain.ErrInvalidEventContext
	}

	customer, err := s.customers.GetByID(ctx, input.CustomerID)
	if err != nil {
		return nil, err
	}

	rules, err := s.rules.ListActiveByKind(ctx, input.Kind)
	if err != nil {
		return nil, fmt.Errorf("list rules for %s: %w", input.Kind, err)
	}

	now := time.Now().UTC()
	issued := make([]domain.Coupon, 0)

	for i := range rules {
		rule := &rules[i]
		if !rule.TierEligible(customer.TierID) || !rule.Matches(customer, now) {
			continue
		}

		coupon, ok, err := s.issueForRule(ctx, rule, customer.ID, now)
		if err != nil {
			return nil, err
		}
		if ok {
			issued = append(issued, *coupon)
		}
	}

	return issued, nil
}

// RunDailySweep evaluates every scheduled rule kind against its candidate
// customers: birthdays and holidays against today's date, inactivity
// against each rule's threshold. Per-customer failures are logged and
// skipped so one bad row never aborts the sweep.
func (s *RuleService) RunDailySweep(ctx context.Context) (*SweepReport, error) {
	now := time.Now().UTC()
	monthDay := now.Format("01-02")

	rules, err := s.rules.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active rules: %w", err)
	}

	report := &SweepReport{}

	for i := range rules {
		rule := &rules[i]

		var (
			candidates []string
			listErr    error
		)
		switch rule.Kind {
		case domain.EventBirthday:
			candidates, listErr = s.customers.ListBirthdayCustomerIDs(ctx, monthDay)
		case domain.EventHoliday:
			if rule.HolidayDate != monthDay {
				continue
			}
			candidates, listErr = s.customers.ListCustomerIDs(ctx)
		case domain.EventInactive:
			if rule.InactiveDays <= 0 {
				continue
			}
			candidates, listErr = s.customers.ListInactiveCustomerIDs(ctx, now.AddDate(0, 0, -rule.InactiveDays))
		default:
			// Request-triggered kinds are not swept.
			continue
		}
		if listErr != nil {
			return nil, fmt.Errorf("list candidates for rule %s: %w", rule.ID, listErr)
		}

		for _, customerID := range candidates {
			customer, err := s.customers.GetByID(ctx, customerID)
			if err != nil {
				s.logger.ErrorContext(ctx, "sweep skipped customer",
					slog.String("rule_id", rule.ID),
					slog.String("customer_id", customerID),
					slog.String("error", err.Error()),
				)
				continue
			}

			if !rule.TierEligible(customer.TierID) || !rule.Matches(customer, now) {
				continue
			}

			report.Evaluated++
			_, ok, err := s.issueForRule(ctx, rule, customer.ID, now)
			if err != nil {
				s.logger.ErrorContext(ctx, "sweep failed to issue coupon",
					slog.String("rule_id", rule.ID),
					slog.String("customer_id", customerID),
					slog.String("error", err.Error()),
				)
				continue
			}
			if ok {
				report.Issued++
			}
		}
	}

	s.logger.InfoContext(ctx, "daily rule sweep completed",
		slog.Int("evaluated", report.Evaluated),
		slog.Int("issued", report.Issued),
	)

	return report, nil
}

// issueForRule builds a coupon from the rule's discount terms and inserts
// it through the dedup window the rule calls for.
func (s *RuleService) issueForRule(ctx context.Context, rule *domain.EventRule, customerID string, now time.Time) (*domain.Coupon, bool, error) {
	kind := rule.Kind
	coupon := &domain.Coupon{
		ID:             uuid.New().String(),
		Code:           generateCouponCode(codePrefixEvent),
		CustomerID:     customerID,
		Kind:           rule.DiscountKind,
		Value:          rule.Value,
		MaxDiscount:    rule.MaxDiscount,
		MinOrderAmount: rule.MinOrderAmount,
		Status:         domain.CouponActive,
		ExpiresAt:      now.AddDate(0, 0, rule.ValidityDays),
		RuleID:         &rule.ID,
		EventKind:      &kind,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	issued, err := s.coupons.IssueDeduped(ctx, coupon, dedupWindow(rule))
	if err != nil {
		return nil, false, fmt.Errorf("issue coupon for rule %s: %w", rule.ID, err)
	}
	if !issued {
		return nil, false, nil
	}

	couponsIssuedTotal.WithLabelValues(string(rule.Kind)).Inc()

	if err := s.producer.PublishCouponIssued(ctx, coupon, string(rule.Kind)); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish coupon.issued event",
			slog.String("coupon_id", coupon.ID),
			slog.String("error", err.Error()),
		)
		// Do not fail the operation if event publishing fails.
	}

	s.logger.InfoContext(ctx, "event coupon issued",
		slog.String("coupon_id", coupon.ID),
		slog.String("code", coupon.Code),
		slog.String("rule_id", rule.ID),
		slog.String("customer_id", customerID),
		slog.String("event_kind", string(rule.Kind)),
	)

	return coupon, true, nil
}

// dedupWindow picks the dedup behavior for a rule. One-shot lifecycle
// events never repeat for a customer; yearly events repeat per calendar
// year when the rule allows it.
func dedupWindow(rule *domain.EventRule) repository.DedupWindow {
	switch rule.Kind {
	case domain.EventNewUser, domain.EventFirstOrder:
		return repository.DedupEver
	default:
		if rule.OncePerYear {
			return repository.DedupYear
		}
		return repository.DedupNone
	}
}
