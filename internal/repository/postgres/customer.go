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

// CustomerRepository implements repository.CustomerRepository using PostgreSQL.
type CustomerRepository struct {
	pool database.DBTX
}

// NewCustomerRepository creates a new PostgreSQL-backed customer repository.
func NewCustomerRepository(pool database.DBTX) *CustomerRepository {
	return &CustomerRepository{pool: pool}
}

// GetByID returns the customer profile with the tier name resolved.
func (r *CustomerRepository) GetByID(ctx context.Context, id string) (*domain.Customer, error) {
	query := `
		SELECT c.id, COALESCE(c.tier_id, ''), COALESCE(t.name, ''), c.points,
		       c.date_of_birth, c.registered_at, c.last_order_at
		FROM customers c
		LEFT JOIN tiers t ON c.tier_id = t.id
		WHERE c.id = $1`

	var c domain.Customer
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&c.ID,
		&c.TierID,
		&c.TierName,
		&c.Points,
		&c.DateOfBirth,
		&c.RegisteredAt,
		&c.LastOrderAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCustomerNotFound
		}
		return nil, fmt.Errorf("scan customer: %w", err)
	}

	return &c, nil
}

// ListBirthdayCustomerIDs returns IDs of customers born on the given
// month-day ("MM-DD").
func (r *CustomerRepository) ListBirthdayCustomerIDs(ctx context.Context, monthDay string) ([]string, error) {
	query := `
		SELECT id FROM customers
		WHERE date_of_birth IS NOT NULL AND TO_CHAR(date_of_birth, 'MM-DD') = $1
		ORDER BY id`

	return r.listIDs(ctx, query, monthDay)
}

// ListInactiveCustomerIDs returns IDs of customers whose last order is at
// or before the cutoff.
func (r *CustomerRepository) ListInactiveCustomerIDs(ctx context.Context, cutoff time.Time) ([]string, error) {
	query := `
		SELECT id FROM customers
		WHERE last_order_at IS NOT NULL AND last_order_at <= $1
		ORDER BY id`

	return r.listIDs(ctx, query, cutoff)
}

// ListCustomerIDs returns all customer IDs.
func (r *CustomerRepository) ListCustomerIDs(ctx context.Context) ([]string, error) {
	return r.listIDs(ctx, `SELECT id FROM customers ORDER BY id`)
}

func (r *CustomerRepository) listIDs(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list customer ids: %w", err)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan customer id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate customer id rows: %w", err)
	}

	return ids, nil
}
