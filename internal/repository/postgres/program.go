// Package postgres implements the repository interfaces on PostgreSQL
// using pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/lumistore/rewards/internal/domain"
	"github.com/lumistore/rewards/pkg/database"
	apperrors "github.com/lumistore/rewards/pkg/errors"
)

// ProgramRepository implements repository.ProgramRepository using PostgreSQL.
type ProgramRepository struct {
	pool database.DBTX
}

// NewProgramRepository creates a new PostgreSQL-backed program repository.
func NewProgramRepository(pool database.DBTX) *ProgramRepository {
	return &ProgramRepository{pool: pool}
}

// GetCurrent returns the active program whose window contains now. When
// several overlap, the most recently started wins.
func (r *ProgramRepository) GetCurrent(ctx context.Context, now time.Time) (*domain.Program, error) {
	query := `
		SELECT id, name, starts_at, ends_at, daily_free_spins, points_per_spin, active, created_at, updated_at
		FROM programs
		WHERE active = TRUE AND starts_at <= $1 AND ends_at > $1
		ORDER BY starts_at DESC
		LIMIT 1`

	var p domain.Program
	err := r.pool.QueryRow(ctx, query, now).Scan(
		&p.ID,
		&p.Name,
		&p.StartsAt,
		&p.EndsAt,
		&p.DailyFreeSpins,
		&p.PointsPerSpin,
		&p.Active,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan program: %w", err)
	}

	return &p, nil
}

// ListActiveSlots returns the active reward slots of a program in display
// order.
func (r *ProgramRepository) ListActiveSlots(ctx context.Context, programID string) ([]domain.RewardSlot, error) {
	query := `
		SELECT id, program_id, label, kind, value, max_discount, min_order_amount, validity_days,
		       base_probability, silver_multiplier, gold_multiplier, platinum_multiplier,
		       active, sort_order, created_at, updated_at
		FROM reward_slots
		WHERE program_id = $1 AND active = TRUE
		ORDER BY sort_order, id`

	rows, err := r.pool.Query(ctx, query, programID)
	if err != nil {
		return nil, fmt.Errorf("list reward slots: %w", err)
	}
	defer rows.Close()

	slots := make([]domain.RewardSlot, 0)
	for rows.Next() {
		var s domain.RewardSlot
		if err := rows.Scan(
			&s.ID,
			&s.ProgramID,
			&s.Label,
			&s.Kind,
			&s.Value,
			&s.MaxDiscount,
			&s.MinOrderAmount,
			&s.ValidityDays,
			&s.BaseProbability,
			&s.SilverMultiplier,
			&s.GoldMultiplier,
			&s.PlatinumMultiplier,
			&s.Active,
			&s.SortOrder,
			&s.CreatedAt,
			&s.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan reward slot: %w", err)
		}
		slots = append(slots, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reward slot rows: %w", err)
	}

	return slots, nil
}
