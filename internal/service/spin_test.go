package service

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/lumistore/rewards/internal/domain"
	"github.com/lumistore/rewards/internal/event"
	"github.com/lumistore/rewards/internal/repository/memory"
	apperrors "github.com/lumistore/rewards/pkg/errors"
	pkgkafka "github.com/lumistore/rewards/pkg/kafka"
)

// --- Mock Repositories ---

type mockProgramRepository struct {
	mock.Mock
}

func (m *mockProgramRepository) GetCurrent(ctx context.Context, now time.Time) (*domain.Program, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Program), args.Error(1)
}

func (m *mockProgramRepository) ListActiveSlots(ctx context.Context, programID string) ([]domain.RewardSlot, error) {
	args := m.Called(ctx, programID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.RewardSlot), args.Error(1)
}

type mockCustomerRepository struct {
	mock.Mock
}

func (m *mockCustomerRepository) GetByID(ctx context.Context, id string) (*domain.Customer, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Customer), args.Error(1)
}

func (m *mockCustomerRepository) ListBirthdayCustomerIDs(ctx context.Context, monthDay string) ([]string, error) {
	args := m.Called(ctx, monthDay)
	return args.Get(0).([]string), args.Error(1)
}

func (m *mockCustomerRepository) ListInactiveCustomerIDs(ctx context.Context, cutoff time.Time) ([]string, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).([]string), args.Error(1)
}

func (m *mockCustomerRepository) ListCustomerIDs(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	return args.Get(0).([]string), args.Error(1)
}

type mockSpinRepository struct {
	mock.Mock
}

func (m *mockSpinRepository) CountSpins(ctx context.Context, customerID, programID string, date time.Time, kind domain.SpinKind) (int, error) {
	args := m.Called(ctx, customerID, programID, date, kind)
	return args.Int(0), args.Error(1)
}

func (m *mockSpinRepository) RegisterSpin(ctx context.Context, spin *domain.SpinHistory, coupon *domain.Coupon, freeLimit int, pointsCost int64) error {
	args := m.Called(ctx, spin, coupon, freeLimit, pointsCost)
	return args.Error(0)
}

// --- Test Helpers ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestProducer() *event.Producer {
	logger := newTestLogger()
	// A producer with no reachable broker; publish failures are logged,
	// never surfaced.
	kafkaCfg := pkgkafka.DefaultProducerConfig([]string{"localhost:9092"})
	return event.NewProducer(pkgkafka.NewProducer(kafkaCfg, logger), logger)
}

type fixedRand struct {
	v float64
}

func (f fixedRand) Float64() float64 { return f.v }

func activeProgram() *domain.Program {
	now := time.Now().UTC()
	return &domain.Program{
		ID:             "prog-001",
		Name:           "Test Wheel",
		StartsAt:       now.AddDate(0, 0, -1),
		EndsAt:         now.AddDate(0, 0, 6),
		DailyFreeSpins: 1,
		PointsPerSpin:  100,
		Active:         true,
	}
}

func wheelSlots() []domain.RewardSlot {
	return []domain.RewardSlot{
		{
			ID:                 "slot-001",
			ProgramID:          "prog-001",
			Label:              "10% off",
			Kind:               domain.RewardPercent,
			Value:              decimal.NewFromInt(10),
			ValidityDays:       7,
			BaseProbability:    0.5,
			SilverMultiplier:   1.0,
			GoldMultiplier:     1.0,
			PlatinumMultiplier: 1.0,
			Active:             true,
			SortOrder:          0,
		},
		{
			ID:                 "slot-002",
			ProgramID:          "prog-001",
			Label:              "Better luck next time",
			Kind:               domain.RewardNoReward,
			BaseProbability:    0.5,
			SilverMultiplier:   1.0,
			GoldMultiplier:     1.0,
			PlatinumMultiplier: 1.0,
			Active:             true,
			SortOrder:          1,
		},
	}
}

func goldCustomer() *domain.Customer {
	return &domain.Customer{
		ID:           "cust-001",
		TierID:       "tier-gold",
		TierName:     domain.TierGold,
		Points:       300,
		RegisteredAt: time.Now().UTC().AddDate(-1, 0, 0),
	}
}

// --- Spin Tests ---

func TestSpin_FreeSuccessWithCoupon(t *testing.T) {
	programs := new(mockProgramRepository)
	customers := new(mockCustomerRepository)
	spins := new(mockSpinRepository)
	svc := NewSpinService(programs, customers, spins, newTestProducer(), newTestLogger())
	svc.rng = fixedRand{v: 0.1} // lands on the first slot
	ctx := context.Background()

	program := activeProgram()
	programs.On("GetCurrent", ctx, mock.AnythingOfType("time.Time")).Return(program, nil)
	programs.On("ListActiveSlots", ctx, program.ID).Return(wheelSlots(), nil)
	customers.On("GetByID", ctx, "cust-001").Return(goldCustomer(), nil)
	spins.On("RegisterSpin", ctx, mock.AnythingOfType("*domain.SpinHistory"), mock.AnythingOfType("*domain.Coupon"), 1, int64(100)).Return(nil)

	result, err := svc.Spin(ctx, &SpinInput{CustomerID: "cust-001", Kind: domain.SpinFree})
	require.NoError(t, err)
	assert.Equal(t, "slot-001", result.Slot.ID)
	assert.Equal(t, 0, result.SlotIndex)
	require.NotNil(t, result.Coupon)
	assert.Equal(t, domain.CouponActive, result.Coupon.Status)
	assert.Contains(t, result.Coupon.Code, "SPIN-")
	assert.Equal(t, "cust-001", result.Coupon.CustomerID)

	spins.AssertExpectations(t)
}

func TestSpin_NoRewardSlotIssuesNoCoupon(t *testing.T) {
	programs := new(mockProgramRepository)
	customers := new(mockCustomerRepository)
	spins := new(mockSpinRepository)
	svc := NewSpinService(programs, customers, spins, newTestProducer(), newTestLogger())
	svc.rng = fixedRand{v: 0.9} // lands on the NO_REWARD slot
	ctx := context.Background()

	program := activeProgram()
	programs.On("GetCurrent", ctx, mock.AnythingOfType("time.Time")).Return(program, nil)
	programs.On("ListActiveSlots", ctx, program.ID).Return(wheelSlots(), nil)
	customers.On("GetByID", ctx, "cust-001").Return(goldCustomer(), nil)
	spins.On("RegisterSpin", ctx, mock.AnythingOfType("*domain.SpinHistory"), (*domain.Coupon)(nil), 1, int64(100)).Return(nil)

	result, err := svc.Spin(ctx, &SpinInput{CustomerID: "cust-001", Kind: domain.SpinFree})
	require.NoError(t, err)
	assert.Equal(t, "slot-002", result.Slot.ID)
	assert.Nil(t, result.Coupon)
}

func TestSpin_NoActiveProgram(t *testing.T) {
	programs := new(mockProgramRepository)
	customers := new(mockCustomerRepository)
	spins := new(mockSpinRepository)
	svc := NewSpinService(programs, customers, spins, newTestProducer(), newTestLogger())
	ctx := context.Background()

	programs.On("GetCurrent", ctx, mock.AnythingOfType("time.Time")).Return(nil, apperrors.ErrNotFound)

	_, err := svc.Spin(ctx, &SpinInput{CustomerID: "cust-001", Kind: domain.SpinFree})
	assert.ErrorIs(t, err, domain.ErrNoActiveProgram)
}

func TestSpin_NoRewardsConfigured(t *testing.T) {
	programs := new(mockProgramRepository)
	customers := new(mockCustomerRepository)
	spins := new(mockSpinRepository)
	svc := NewSpinService(programs, customers, spins, newTestProducer(), newTestLogger())
	ctx := context.Background()

	program := activeProgram()
	programs.On("GetCurrent", ctx, mock.AnythingOfType("time.Time")).Return(program, nil)
	programs.On("ListActiveSlots", ctx, program.ID).Return([]domain.RewardSlot{}, nil)

	_, err := svc.Spin(ctx, &SpinInput{CustomerID: "cust-001", Kind: domain.SpinFree})
	assert.ErrorIs(t, err, domain.ErrNoRewardsConfigured)
}

func TestSpin_DailyLimitPassthrough(t *testing.T) {
	programs := new(mockProgramRepository)
	customers := new(mockCustomerRepository)
	spins := new(mockSpinRepository)
	svc := NewSpinService(programs, customers, spins, newTestProducer(), newTestLogger())
	svc.rng = fixedRand{v: 0.1}
	ctx := context.Background()

	program := activeProgram()
	programs.On("GetCurrent", ctx, mock.AnythingOfType("time.Time")).Return(program, nil)
	programs.On("ListActiveSlots", ctx, program.ID).Return(wheelSlots(), nil)
	customers.On("GetByID", ctx, "cust-001").Return(goldCustomer(), nil)
	spins.On("RegisterSpin", ctx, mock.Anything, mock.Anything, 1, int64(100)).Return(domain.ErrDailyLimitExceeded)

	_, err := svc.Spin(ctx, &SpinInput{CustomerID: "cust-001", Kind: domain.SpinFree})
	assert.ErrorIs(t, err, domain.ErrDailyLimitExceeded)
}

func TestSpin_InvalidKind(t *testing.T) {
	svc := NewSpinService(new(mockProgramRepository), new(mockCustomerRepository), new(mockSpinRepository), newTestProducer(), newTestLogger())

	_, err := svc.Spin(context.Background(), &SpinInput{CustomerID: "cust-001", Kind: "LUCKY"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

// --- GetSpinStatus Tests ---

func TestGetSpinStatus(t *testing.T) {
	programs := new(mockProgramRepository)
	customers := new(mockCustomerRepository)
	spins := new(mockSpinRepository)
	svc := NewSpinService(programs, customers, spins, newTestProducer(), newTestLogger())
	ctx := context.Background()

	program := activeProgram()
	program.DailyFreeSpins = 2
	programs.On("GetCurrent", ctx, mock.AnythingOfType("time.Time")).Return(program, nil)
	customers.On("GetByID", ctx, "cust-001").Return(goldCustomer(), nil)
	spins.On("CountSpins", ctx, "cust-001", program.ID, mock.AnythingOfType("time.Time"), domain.SpinFree).Return(1, nil)

	status, err := svc.GetSpinStatus(ctx, "cust-001")
	require.NoError(t, err)
	assert.Equal(t, 1, status.RemainingFreeSpins)
	assert.Equal(t, 1, status.SpinsToday)
	assert.Equal(t, int64(300), status.CustomerPoints)
	assert.Equal(t, 100, status.PointsPerSpin)
}

// --- Concurrency Tests ---

func TestSpin_ConcurrentFreeSpinsHonorDailyLimit(t *testing.T) {
	store := memory.NewStore()

	store.PutProgram(*activeProgram())
	for _, slot := range wheelSlots() {
		store.PutSlot(slot)
	}
	store.PutCustomer(*goldCustomer())

	svc := NewSpinService(store, store, store, newTestProducer(), newTestLogger())

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		limited   int
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Spin(context.Background(), &SpinInput{CustomerID: "cust-001", Kind: domain.SpinFree})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case err == domain.ErrDailyLimitExceeded:
				limited++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, workers-1, limited)
	assert.Equal(t, 1, store.SpinCount())
}

func TestSpin_ConcurrentPointSpinsNeverOverdraw(t *testing.T) {
	store := memory.NewStore()

	store.PutProgram(*activeProgram())
	for _, slot := range wheelSlots() {
		store.PutSlot(slot)
	}
	cust := goldCustomer()
	cust.Points = 250 // affords two 100-point spins
	store.PutCustomer(*cust)

	svc := NewSpinService(store, store, store, newTestProducer(), newTestLogger())

	const workers = 6
	var (
		wg           sync.WaitGroup
		mu           sync.Mutex
		succeeded    int
		insufficient int
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.Spin(context.Background(), &SpinInput{CustomerID: "cust-001", Kind: domain.SpinPointsExchange})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case err == domain.ErrInsufficientPoints:
				insufficient++
			default:
				t.Errorf("unexpected error %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 2, succeeded)
	assert.Equal(t, workers-2, insufficient)
	assert.Equal(t, int64(50), store.CustomerPoints("cust-001"))
}
