package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumistore/rewards/internal/domain"
	"github.com/lumistore/rewards/pkg/database"
	apperrors "github.com/lumistore/rewards/pkg/errors"
)

// --- ProgramRepository Tests ---

func TestProgramRepository_GetCurrent_Success(t *testing.T) {
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	defer mock.ExpectationsWereMet()
	repo := NewProgramRepository(mock)

	now := time.Now().UTC().Truncate(time.Microsecond)

	mock.ExpectQuery("SELECT(.+)FROM programs").
		WithArgs(now).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "name", "starts_at", "ends_at", "daily_free_spins", "points_per_spin", "active", "created_at", "updated_at",
		}).AddRow(
			"prog-001", "Summer Wheel", now.AddDate(0, 0, -1), now.AddDate(0, 0, 6), 1, 100, true, now, now,
		))

	p, err := repo.GetCurrent(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, "prog-001", p.ID)
	assert.Equal(t, 1, p.DailyFreeSpins)
	assert.Equal(t, 100, p.PointsPerSpin)
}

func TestProgramRepository_GetCurrent_None(t *testing.T) {
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	defer mock.ExpectationsWereMet()
	repo := NewProgramRepository(mock)

	now := time.Now().UTC()

	mock.ExpectQuery("SELECT(.+)FROM programs").
		WithArgs(now).
		WillReturnError(pgx.ErrNoRows)

	_, err = repo.GetCurrent(context.Background(), now)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestProgramRepository_ListActiveSlots(t *testing.T) {
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	defer mock.ExpectationsWereMet()
	repo := NewProgramRepository(mock)

	now := time.Now().UTC().Truncate(time.Microsecond)

	mock.ExpectQuery("SELECT(.+)FROM reward_slots").
		WithArgs("prog-001").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "program_id", "label", "kind", "value", "max_discount", "min_order_amount", "validity_days",
			"base_probability", "silver_multiplier", "gold_multiplier", "platinum_multiplier",
			"active", "sort_order", "created_at", "updated_at",
		}).AddRow(
			"slot-001", "prog-001", "10% off", "PERCENT", "10", "20000", nil, 7,
			0.3, 1.0, 1.2, 1.5, true, 0, now, now,
		).AddRow(
			"slot-002", "prog-001", "Better luck next time", "NO_REWARD", "0", nil, nil, 7,
			0.7, 1.0, 1.0, 1.0, true, 1, now, now,
		))

	slots, err := repo.ListActiveSlots(context.Background(), "prog-001")
	require.NoError(t, err)
	require.Len(t, slots, 2)
	assert.Equal(t, domain.RewardPercent, slots[0].Kind)
	assert.True(t, slots[0].MaxDiscount.Valid)
	assert.Equal(t, domain.RewardNoReward, slots[1].Kind)
	assert.False(t, slots[1].MaxDiscount.Valid)
}

// --- RuleRepository Tests ---

func TestRuleRepository_ListActiveByKind(t *testing.T) {
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	defer mock.ExpectationsWereMet()
	repo := NewRuleRepository(mock)

	now := time.Now().UTC().Truncate(time.Microsecond)

	mock.ExpectQuery("SELECT(.+)FROM event_rules").
		WithArgs(domain.EventBirthday).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "name", "kind", "discount_kind", "value", "max_discount", "min_order_amount",
			"validity_days", "inactive_days", "new_user_days", "holiday_date", "target_tier_id",
			"eligible_tier_ids", "once_per_year", "active", "created_at", "updated_at",
		}).AddRow(
			"rule-001", "Birthday treat", "BIRTHDAY", "PERCENT", "15", nil, nil,
			14, 0, 0, "", "", []byte(`["tier-gold","tier-platinum"]`), true, true, now, now,
		))

	rules, err := repo.ListActiveByKind(context.Background(), domain.EventBirthday)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, domain.EventBirthday, rules[0].Kind)
	assert.Equal(t, []string{"tier-gold", "tier-platinum"}, rules[0].EligibleTierIDs)
	assert.True(t, rules[0].OncePerYear)
}

// --- CustomerRepository Tests ---

func TestCustomerRepository_GetByID_Success(t *testing.T) {
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	defer mock.ExpectationsWereMet()
	repo := NewCustomerRepository(mock)

	now := time.Now().UTC().Truncate(time.Microsecond)
	dob := time.Date(1990, time.March, 8, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT(.+)FROM customers").
		WithArgs("cust-001").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "tier_id", "name", "points", "date_of_birth", "registered_at", "last_order_at",
		}).AddRow(
			"cust-001", "tier-gold", "gold", int64(350), &dob, now.AddDate(-1, 0, 0), nil,
		))

	c, err := repo.GetByID(context.Background(), "cust-001")
	require.NoError(t, err)
	assert.Equal(t, "gold", c.TierName)
	assert.Equal(t, int64(350), c.Points)
	require.NotNil(t, c.DateOfBirth)
	assert.Nil(t, c.LastOrderAt)
}

func TestCustomerRepository_GetByID_NotFound(t *testing.T) {
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	defer mock.ExpectationsWereMet()
	repo := NewCustomerRepository(mock)

	mock.ExpectQuery("SELECT(.+)FROM customers").
		WithArgs("ghost").
		WillReturnError(pgx.ErrNoRows)

	_, err = repo.GetByID(context.Background(), "ghost")
	assert.ErrorIs(t, err, domain.ErrCustomerNotFound)
}

func TestCustomerRepository_ListBirthdayCustomerIDs(t *testing.T) {
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	defer mock.ExpectationsWereMet()
	repo := NewCustomerRepository(mock)

	mock.ExpectQuery("SELECT id FROM customers").
		WithArgs("03-08").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("cust-001").AddRow("cust-042"))

	ids, err := repo.ListBirthdayCustomerIDs(context.Background(), "03-08")
	require.NoError(t, err)
	assert.Equal(t, []string{"cust-001", "cust-042"}, ids)
}
