package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/lumistore/rewards/internal/domain"
	"github.com/lumistore/rewards/pkg/database"
)

// RuleRepository implements repository.RuleRepository using PostgreSQL.
type RuleRepository struct {
	pool database.DBTX
}

// NewRuleRepository creates a new PostgreSQL-backed event rule repository.
func NewRuleRepository(pool database.DBTX) *RuleRepository {
	return &RuleRepository{pool: pool}
}

const ruleColumns = `
	id, name, kind, discount_kind, value, max_discount, min_order_amount,
	validity_days, inactive_days, new_user_days, holiday_date, target_tier_id,
	eligible_tier_ids, once_per_year, active, created_at, updated_at`

// ListActiveByKind returns all active rules for the given event kind.
func (r *RuleRepository) ListActiveByKind(ctx context.Context, kind domain.EventKind) ([]domain.EventRule, error) {
	query := `
		SELECT ` + ruleColumns + `
		FROM event_rules
		WHERE kind = $1 AND active = TRUE
		ORDER BY created_at, id`

	return r.list(ctx, query, kind)
}

// ListActive returns all active rules.
func (r *RuleRepository) ListActive(ctx context.Context) ([]domain.EventRule, error) {
	query := `
		SELECT ` + ruleColumns + `
		FROM event_rules
		WHERE active = TRUE
		ORDER BY created_at, id`

	return r.list(ctx, query)
}

func (r *RuleRepository) list(ctx context.Context, query string, args ...any) ([]domain.EventRule, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list event rules: %w", err)
	}
	defer rows.Close()

	rules := make([]domain.EventRule, 0)
	for rows.Next() {
		var (
			rule     domain.EventRule
			tiersRaw []byte
		)
		if err := rows.Scan(
			&rule.ID,
			&rule.Name,
			&rule.Kind,
			&rule.DiscountKind,
			&rule.Value,
			&rule.MaxDiscount,
			&rule.MinOrderAmount,
			&rule.ValidityDays,
			&rule.InactiveDays,
			&rule.NewUserDays,
			&rule.HolidayDate,
			&rule.TargetTierID,
			&tiersRaw,
			&rule.OncePerYear,
			&rule.Active,
			&rule.CreatedAt,
			&rule.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan event rule: %w", err)
		}

		if len(tiersRaw) > 0 {
			if err := json.Unmarshal(tiersRaw, &rule.EligibleTierIDs); err != nil {
				return nil, fmt.Errorf("unmarshal eligible tiers: %w", err)
			}
		}
		if rule.EligibleTierIDs == nil {
			rule.EligibleTierIDs = []string{}
		}

		rules = append(rules, rule)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate event rule rows: %w", err)
	}

	return rules, nil
}
