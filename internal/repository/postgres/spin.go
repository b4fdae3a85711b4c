package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/lumistore/rewards/internal/domain"
	"github.com/lumistore/rewards/pkg/database"
)

// SpinRepository implements repository.SpinRepository using PostgreSQL.
type SpinRepository struct {
	pool database.DBTX
}

// NewSpinRepository creates a new PostgreSQL-backed spin repository.
func NewSpinRepository(pool database.DBTX) *SpinRepository {
	return &SpinRepository{pool: pool}
}

// CountSpins counts spins of one kind for (customer, program, date).
func (r *SpinRepository) CountSpins(ctx context.Context, customerID, programID string, date time.Time, kind domain.SpinKind) (int, error) {
	query := `
		SELECT COUNT(*) FROM spin_history
		WHERE customer_id = $1 AND program_id = $2 AND spin_date = $3 AND kind = $4`

	var count int
	err := r.pool.QueryRow(ctx, query, customerID, programID, domain.DateOnly(date), kind).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count spins: %w", err)
	}

	return count, nil
}

// RegisterSpin records one spin atomically. The customer row is locked
// for the duration of the transaction, so two concurrent spins for the
// same customer serialize and the second re-checks the limit against the
// first's committed row.
func (r *SpinRepository) RegisterSpin(ctx context.Context, spin *domain.SpinHistory, coupon *domain.Coupon, freeLimit int, pointsCost int64) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var points int64
	err = tx.QueryRow(ctx, `SELECT points FROM customers WHERE id = $1 FOR UPDATE`, spin.CustomerID).Scan(&points)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrCustomerNotFound
		}
		return fmt.Errorf("lock customer row: %w", err)
	}

	switch spin.Kind {
	case domain.SpinFree:
		countQuery := `
			SELECT COUNT(*) FROM spin_history
			WHERE customer_id = $1 AND program_id = $2 AND spin_date = $3 AND kind = $4`

		var count int
		if err := tx.QueryRow(ctx, countQuery, spin.CustomerID, spin.ProgramID, domain.DateOnly(spin.SpinDate), domain.SpinFree).Scan(&count); err != nil {
			return fmt.Errorf("count free spins: %w", err)
		}
		if count >= freeLimit {
			return domain.ErrDailyLimitExceeded
		}

	case domain.SpinPointsExchange:
		// The points >= cost predicate makes the decrement conditional;
		// the CHECK constraint on the column is the backstop.
		ct, err := tx.Exec(ctx,
			`UPDATE customers SET points = points - $1, updated_at = $2 WHERE id = $3 AND points >= $1`,
			pointsCost, time.Now().UTC(), spin.CustomerID,
		)
		if err != nil {
			return fmt.Errorf("decrement points: %w", err)
		}
		if ct.RowsAffected() == 0 {
			return domain.ErrInsufficientPoints
		}

	default:
		return fmt.Errorf("unknown spin kind %q", spin.Kind)
	}

	if coupon != nil {
		if err := insertCoupon(ctx, tx, coupon); err != nil {
			return err
		}
	}

	spinQuery := `
		INSERT INTO spin_history (id, customer_id, program_id, slot_id, coupon_id, kind, points_spent, spin_date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err = tx.Exec(ctx, spinQuery,
		spin.ID,
		spin.CustomerID,
		spin.ProgramID,
		spin.SlotID,
		spin.CouponID,
		spin.Kind,
		spin.PointsSpent,
		domain.DateOnly(spin.SpinDate),
		spin.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert spin history: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}
