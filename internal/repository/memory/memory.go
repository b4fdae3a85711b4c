// Package memory implements the repository interfaces on in-process maps.
// It backs local development without PostgreSQL and the concurrency tests
// of the service layer. One mutex guards the whole store, so every
// repository method is atomic the way its PostgreSQL counterpart's
// transaction is.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/lumistore/rewards/internal/domain"
	"github.com/lumistore/rewards/internal/repository"
	apperrors "github.com/lumistore/rewards/pkg/errors"
)

// Store holds all rewards state in memory. The zero value is not usable;
// construct with NewStore.
type Store struct {
	mu        sync.Mutex
	programs  map[string]domain.Program
	slots     map[string][]domain.RewardSlot
	rules     map[string]domain.EventRule
	customers map[string]domain.Customer
	coupons   map[string]domain.Coupon
	byCode    map[string]string
	spins     []domain.SpinHistory
}

var (
	_ repository.ProgramRepository  = (*Store)(nil)
	_ repository.RuleRepository     = (*Store)(nil)
	_ repository.CustomerRepository = (*Store)(nil)
	_ repository.SpinRepository     = (*Store)(nil)
	_ repository.CouponRepository   = (*Store)(nil)
)

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		programs:  make(map[string]domain.Program),
		slots:     make(map[string][]domain.RewardSlot),
		rules:     make(map[string]domain.EventRule),
		customers: make(map[string]domain.Customer),
		coupons:   make(map[string]domain.Coupon),
		byCode:    make(map[string]string),
	}
}

// --- Seeding ---

// PutProgram adds or replaces a program.
func (s *Store) PutProgram(p domain.Program) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.programs[p.ID] = p
}

// PutSlot adds a reward slot to its program.
func (s *Store) PutSlot(slot domain.RewardSlot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slots[slot.ProgramID] = append(s.slots[slot.ProgramID], slot)
}

// PutRule adds or replaces an event rule.
func (s *Store) PutRule(r domain.EventRule) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules[r.ID] = r
}

// PutCustomer adds or replaces a customer.
func (s *Store) PutCustomer(c domain.Customer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.customers[c.ID] = c
}

// PutCoupon adds or replaces a coupon, bypassing dedup. Used to seed
// tests and fixtures.
func (s *Store) PutCoupon(c domain.Coupon) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.coupons[c.ID] = c
	s.byCode[c.Code] = c.ID
}

// CustomerPoints returns the current point balance of a customer.
func (s *Store) CustomerPoints(id string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.customers[id].Points
}

// SpinCount returns the total number of recorded spins.
func (s *Store) SpinCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.spins)
}

// --- ProgramRepository ---

// GetCurrent returns the active program containing now, latest start wins.
func (s *Store) GetCurrent(_ context.Context, now time.Time) (*domain.Program, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var best *domain.Program
	for id := range s.programs {
		p := s.programs[id]
		if !p.IsCurrentlyActive(now) {
			continue
		}
		if best == nil || p.StartsAt.After(best.StartsAt) {
			cp := p
			best = &cp
		}
	}
	if best == nil {
		return nil, apperrors.ErrNotFound
	}
	return best, nil
}

// ListActiveSlots returns a program's active slots in display order.
func (s *Store) ListActiveSlots(_ context.Context, programID string) ([]domain.RewardSlot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.RewardSlot, 0)
	for _, slot := range s.slots[programID] {
		if slot.Active {
			out = append(out, slot)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// --- RuleRepository ---

// ListActiveByKind returns all active rules of one kind.
func (s *Store) ListActiveByKind(_ context.Context, kind domain.EventKind) ([]domain.EventRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.EventRule, 0)
	for _, r := range s.rules {
		if r.Active && r.Kind == kind {
			out = append(out, r)
		}
	}
	sortRules(out)
	return out, nil
}

// ListActive returns all active rules.
func (s *Store) ListActive(_ context.Context) ([]domain.EventRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.EventRule, 0)
	for _, r := range s.rules {
		if r.Active {
			out = append(out, r)
		}
	}
	sortRules(out)
	return out, nil
}

func sortRules(rules []domain.EventRule) {
	sort.SliceStable(rules, func(i, j int) bool {
		if !rules[i].CreatedAt.Equal(rules[j].CreatedAt) {
			return rules[i].CreatedAt.Before(rules[j].CreatedAt)
		}
		return rules[i].ID < rules[j].ID
	})
}

// --- CustomerRepository ---

// GetByID returns a customer profile.
func (s *Store) GetByID(_ context.Context, id string) (*domain.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.customers[id]
	if !ok {
		return nil, domain.ErrCustomerNotFound
	}
	return &c, nil
}

// ListBirthdayCustomerIDs returns IDs of customers born on "MM-DD".
func (s *Store) ListBirthdayCustomerIDs(_ context.Context, monthDay string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0)
	for id, c := range s.customers {
		if c.DateOfBirth != nil && c.DateOfBirth.Format("01-02") == monthDay {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// ListInactiveCustomerIDs returns IDs of customers whose last order is at
// or before the cutoff.
func (s *Store) ListInactiveCustomerIDs(_ context.Context, cutoff time.Time) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0)
	for id, c := range s.customers {
		if c.LastOrderAt != nil && !c.LastOrderAt.After(cutoff) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// ListCustomerIDs returns all customer IDs.
func (s *Store) ListCustomerIDs(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.customers))
	for id := range s.customers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// --- SpinRepository ---

// CountSpins counts spins of one kind for (customer, program, date).
func (s *Store) CountSpins(_ context.Context, customerID, programID string, date time.Time, kind domain.SpinKind) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.countSpinsLocked(customerID, programID, date, kind), nil
}

func (s *Store) countSpinsLocked(customerID, programID string, date time.Time, kind domain.SpinKind) int {
	day := domain.DateOnly(date)
	count := 0
	for _, sp := range s.spins {
		if sp.CustomerID == customerID && sp.ProgramID == programID && sp.Kind == kind && domain.DateOnly(sp.SpinDate).Equal(day) {
			count++
		}
	}
	return count
}

// RegisterSpin records one spin atomically under the store mutex.
func (s *Store) RegisterSpin(_ context.Context, spin *domain.SpinHistory, coupon *domain.Coupon, freeLimit int, pointsCost int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cust, ok := s.customers[spin.CustomerID]
	if !ok {
		return domain.ErrCustomerNotFound
	}

	switch spin.Kind {
	case domain.SpinFree:
		if s.countSpinsLocked(spin.CustomerID, spin.ProgramID, spin.SpinDate, domain.SpinFree) >= freeLimit {
			return domain.ErrDailyLimitExceeded
		}
	case domain.SpinPointsExchange:
		if cust.Points < pointsCost {
			return domain.ErrInsufficientPoints
		}
		cust.Points -= pointsCost
		s.customers[spin.CustomerID] = cust
	}

	if coupon != nil {
		s.coupons[coupon.ID] = *coupon
		s.byCode[coupon.Code] = coupon.ID
	}
	s.spins = append(s.spins, *spin)
	return nil
}

// --- CouponRepository ---

// GetByCode returns the coupon with the given code.
func (s *Store) GetByCode(_ context.Context, code string) (*domain.Coupon, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byCode[code]
	if !ok {
		return nil, domain.ErrCouponNotFound
	}
	c := s.coupons[id]
	return &c, nil
}

// ListByCustomer returns a customer's coupons, newest first.
func (s *Store) ListByCustomer(_ context.Context, customerID string, status *domain.CouponStatus) ([]domain.Coupon, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Coupon, 0)
	for _, c := range s.coupons {
		if c.CustomerID != customerID {
			continue
		}
		if status != nil && c.Status != *status {
			continue
		}
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// IssueDeduped inserts the coupon unless the dedup window already holds
// one for the same (customer, rule).
func (s *Store) IssueDeduped(_ context.Context, coupon *domain.Coupon, window repository.DedupWindow) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.customers[coupon.CustomerID]; !ok {
		return false, domain.ErrCustomerNotFound
	}

	if window != repository.DedupNone && coupon.RuleID != nil {
		for _, c := range s.coupons {
			if c.CustomerID != coupon.CustomerID || c.RuleID == nil || *c.RuleID != *coupon.RuleID {
				continue
			}
			if window == repository.DedupEver || c.CreatedAt.Year() == coupon.CreatedAt.Year() {
				return false, nil
			}
		}
	}

	s.coupons[coupon.ID] = *coupon
	s.byCode[coupon.Code] = coupon.ID
	return true, nil
}

// Redeem transitions a coupon from ACTIVE to USED exactly once.
func (s *Store) Redeem(_ context.Context, code, orderID string, now time.Time) (*domain.Coupon, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byCode[code]
	if !ok {
		return nil, domain.ErrCouponNotFound
	}
	c := s.coupons[id]

	switch c.Status {
	case domain.CouponUsed:
		return nil, domain.ErrCouponAlreadyUsed
	case domain.CouponExpired:
		return nil, domain.ErrCouponExpired
	}

	if c.IsExpired(now) {
		c.Status = domain.CouponExpired
		c.UpdatedAt = now
		s.coupons[id] = c
		return nil, domain.ErrCouponExpired
	}

	c.Status = domain.CouponUsed
	c.UsedAt = &now
	c.OrderID = &orderID
	c.UpdatedAt = now
	s.coupons[id] = c
	return &c, nil
}

// MarkExpired flips one ACTIVE coupon to EXPIRED.
func (s *Store) MarkExpired(_ context.Context, id string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.coupons[id]
	if !ok || c.Status != domain.CouponActive {
		return nil
	}
	c.Status = domain.CouponExpired
	c.UpdatedAt = now
	s.coupons[id] = c
	return nil
}

// ExpireStale flips every ACTIVE coupon past its expiry to EXPIRED.
func (s *Store) ExpireStale(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, c := range s.coupons {
		if c.Status == domain.CouponActive && c.IsExpired(now) {
			c.Status = domain.CouponExpired
			c.UpdatedAt = now
			s.coupons[id] = c
			n++
		}
	}
	return n, nil
}
