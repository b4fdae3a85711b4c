package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/lumistore/rewards/internal/domain"
	"github.com/lumistore/rewards/internal/repository"
	"github.com/lumistore/rewards/pkg/database"
)

// CouponRepository implements repository.CouponRepository using PostgreSQL.
type CouponRepository struct {
	pool database.DBTX
}

// NewCouponRepository creates a new PostgreSQL-backed coupon repository.
func NewCouponRepository(pool database.DBTX) *CouponRepository {
	return &CouponRepository{pool: pool}
}

const couponColumns = `
	id, code, customer_id, discount_kind, value, max_discount, min_order_amount,
	status, expires_at, used_at, order_id, program_id, slot_id, rule_id, event_kind,
	created_at, updated_at`

type scannable interface {
	Scan(dest ...any) error
}

func scanCoupon(row scannable) (*domain.Coupon, error) {
	var (
		c  domain.Coupon
		ek *string
	)
	err := row.Scan(
		&c.ID,
		&c.Code,
		&c.CustomerID,
		&c.Kind,
		&c.Value,
		&c.MaxDiscount,
		&c.MinOrderAmount,
		&c.Status,
		&c.ExpiresAt,
		&c.UsedAt,
		&c.OrderID,
		&c.ProgramID,
		&c.SlotID,
		&c.RuleID,
		&ek,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if ek != nil {
		kind := domain.EventKind(*ek)
		c.EventKind = &kind
	}

	return &c, nil
}

type execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// insertCoupon appends one coupon row. Shared with the spin transaction.
func insertCoupon(ctx context.Context, q execer, c *domain.Coupon) error {
	query := `
		INSERT INTO coupons (id, code, customer_id, discount_kind, value, max_discount, min_order_amount, status, expires_at, program_id, slot_id, rule_id, event_kind, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	var ek *string
	if c.EventKind != nil {
		s := string(*c.EventKind)
		ek = &s
	}

	_, err := q.Exec(ctx, query,
		c.ID,
		c.Code,
		c.CustomerID,
		c.Kind,
		c.Value,
		c.MaxDiscount,
		c.MinOrderAmount,
		c.Status,
		c.ExpiresAt,
		c.ProgramID,
		c.SlotID,
		c.RuleID,
		ek,
		c.CreatedAt,
		c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert coupon: %w", err)
	}

	return nil
}

// GetByCode returns the coupon with the given code.
func (r *CouponRepository) GetByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	query := `SELECT ` + couponColumns + ` FROM coupons WHERE code = $1`

	c, err := scanCoupon(r.pool.QueryRow(ctx, query, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCouponNotFound
		}
		return nil, fmt.Errorf("scan coupon: %w", err)
	}

	return c, nil
}

// ListByCustomer returns a customer's coupons, optionally filtered by
// status, newest first.
func (r *CouponRepository) ListByCustomer(ctx context.Context, customerID string, status *domain.CouponStatus) ([]domain.Coupon, error) {
	query := `SELECT ` + couponColumns + ` FROM coupons WHERE customer_id = $1`
	args := []any{customerID}

	if status != nil {
		query += ` AND status = $2`
		args = append(args, *status)
	}
	query += ` ORDER BY created_at DESC, id`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list coupons: %w", err)
	}
	defer rows.Close()

	coupons := make([]domain.Coupon, 0)
	for rows.Next() {
		c, err := scanCoupon(rows)
		if err != nil {
			return nil, fmt.Errorf("scan coupon row: %w", err)
		}
		coupons = append(coupons, *c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate coupon rows: %w", err)
	}

	return coupons, nil
}

// IssueDeduped inserts the coupon unless the dedup window already holds a
// coupon for the same (customer, rule). The customer row lock serializes
// concurrent issuance for one customer, so the existence check and the
// insert observe a consistent ledger.
func (r *CouponRepository) IssueDeduped(ctx context.Context, coupon *domain.Coupon, window repository.DedupWindow) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var one int
	err = tx.QueryRow(ctx, `SELECT 1 FROM customers WHERE id = $1 FOR UPDATE`, coupon.CustomerID).Scan(&one)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, domain.ErrCustomerNotFound
		}
		return false, fmt.Errorf("lock customer row: %w", err)
	}

	if window != repository.DedupNone && coupon.RuleID != nil {
		query := `SELECT COUNT(*) FROM coupons WHERE customer_id = $1 AND rule_id = $2`
		args := []any{coupon.CustomerID, *coupon.RuleID}

		if window == repository.DedupYear {
			yearStart := time.Date(coupon.CreatedAt.Year(), time.January, 1, 0, 0, 0, 0, coupon.CreatedAt.Location())
			query += ` AND created_at >= $3 AND created_at < $4`
			args = append(args, yearStart, yearStart.AddDate(1, 0, 0))
		}

		var count int
		if err := tx.QueryRow(ctx, query, args...).Scan(&count); err != nil {
			return false, fmt.Errorf("count prior coupons: %w", err)
		}
		if count > 0 {
			return false, nil
		}
	}

	if err := insertCoupon(ctx, tx, coupon); err != nil {
		return false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit transaction: %w", err)
	}

	return true, nil
}

// Redeem transitions a coupon from ACTIVE to USED exactly once. The
// conditional update is the whole race: whichever caller's UPDATE matches
// the ACTIVE row wins, everyone else diagnoses the current row state.
func (r *CouponRepository) Redeem(ctx context.Context, code, orderID string, now time.Time) (*domain.Coupon, error) {
	query := `
		UPDATE coupons
		SET status = $1, used_at = $2, order_id = $3, updated_at = $2
		WHERE code = $4 AND status = $5 AND expires_at > $2
		RETURNING ` + couponColumns

	c, err := scanCoupon(r.pool.QueryRow(ctx, query, domain.CouponUsed, now, orderID, code, domain.CouponActive))
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("redeem coupon: %w", err)
	}

	// Zero rows matched. Look at the coupon to say why.
	existing, err := r.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	switch existing.Status {
	case domain.CouponUsed:
		return nil, domain.ErrCouponAlreadyUsed
	case domain.CouponExpired:
		return nil, domain.ErrCouponExpired
	default:
		// ACTIVE but past expiry. Flip it so the ledger catches up.
		if err := r.MarkExpired(ctx, existing.ID, now); err != nil {
			return nil, err
		}
		return nil, domain.ErrCouponExpired
	}
}

// MarkExpired flips one ACTIVE coupon to EXPIRED. No-op when the status
// already moved.
func (r *CouponRepository) MarkExpired(ctx context.Context, id string, now time.Time) error {
	query := `UPDATE coupons SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`

	_, err := r.pool.Exec(ctx, query, domain.CouponExpired, now, id, domain.CouponActive)
	if err != nil {
		return fmt.Errorf("mark coupon expired: %w", err)
	}

	return nil
}

// ExpireStale flips every ACTIVE coupon past its expiry to EXPIRED.
func (r *CouponRepository) ExpireStale(ctx context.Context, now time.Time) (int64, error) {
	query := `UPDATE coupons SET status = $1, updated_at = $2 WHERE status = $3 AND expires_at <= $2`

	ct, err := r.pool.Exec(ctx, query, domain.CouponExpired, now, domain.CouponActive)
	if err != nil {
		return 0, fmt.Errorf("expire stale coupons: %w", err)
	}

	return ct.RowsAffected(), nil
}
