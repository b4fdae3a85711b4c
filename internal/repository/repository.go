// Package repository defines the persistence interfaces consumed by the
// service layer. Implementations live in the postgres, memory, and cache
// subpackages.
package repository

import (
	"context"
	"time"

	"github.com/lumistore/rewards/internal/domain"
)

// DedupWindow controls how coupon issuance for an event rule is
// deduplicated against previously issued coupons.
type DedupWindow int

const (
	// DedupNone issues unconditionally.
	DedupNone DedupWindow = iota
	// DedupYear suppresses a second coupon from the same rule for the
	// same customer within the same calendar year.
	DedupYear
	// DedupEver suppresses a second coupon from the same rule for the
	// same customer regardless of age. Used for inherently single-shot
	// events such as a first completed order.
	DedupEver
)

// ProgramRepository provides read access to the reward program catalog.
type ProgramRepository interface {
	// GetCurrent returns the program whose window contains now with the
	// active flag set. Storage does not enforce uniqueness; when several
	// match, the most recently started wins. Returns
	// pkg/errors.ErrNotFound when no program matches.
	GetCurrent(ctx context.Context, now time.Time) (*domain.Program, error)

	// ListActiveSlots returns the active reward slots of a program in
	// display order.
	ListActiveSlots(ctx context.Context, programID string) ([]domain.RewardSlot, error)
}

// RuleRepository provides read access to event rule configuration.
type RuleRepository interface {
	// ListActiveByKind returns all active rules for the given event kind.
	ListActiveByKind(ctx context.Context, kind domain.EventKind) ([]domain.EventRule, error)

	// ListActive returns all active rules. Used by the scheduled sweeps
	// to discover which kinds need evaluation.
	ListActive(ctx context.Context) ([]domain.EventRule, error)
}

// CustomerRepository reads customer profiles and enumerates sweep targets.
type CustomerRepository interface {
	// GetByID returns the customer profile with the tier name resolved.
	GetByID(ctx context.Context, id string) (*domain.Customer, error)

	// ListBirthdayCustomerIDs returns IDs of customers whose date of
	// birth matches the given month-day ("MM-DD").
	ListBirthdayCustomerIDs(ctx context.Context, monthDay string) ([]string, error)

	// ListInactiveCustomerIDs returns IDs of customers whose last order
	// is at or before the cutoff.
	ListInactiveCustomerIDs(ctx context.Context, cutoff time.Time) ([]string, error)

	// ListCustomerIDs returns all customer IDs. Used by the holiday sweep.
	ListCustomerIDs(ctx context.Context) ([]string, error)
}

// SpinRepository owns the append-only spin ledger and the atomic spin
// registration step.
type SpinRepository interface {
	// CountSpins counts spins of one kind for (customer, program, date).
	CountSpins(ctx context.Context, customerID, programID string, date time.Time, kind domain.SpinKind) (int, error)

	// RegisterSpin authorizes and records one spin as a single atomic
	// unit: it re-checks the free daily cap (FREE spins) or decrements
	// the customer's point balance (POINTS_EXCHANGE spins), then appends
	// the history row and the coupon, if any. Two concurrent calls for
	// the same customer serialize; the loser observes
	// domain.ErrDailyLimitExceeded or domain.ErrInsufficientPoints.
	RegisterSpin(ctx context.Context, spin *domain.SpinHistory, coupon *domain.Coupon, freeLimit int, pointsCost int64) error
}

// CouponRepository owns coupon records and their status transitions.
type CouponRepository interface {
	// GetByCode returns the coupon with the given code, or
	// domain.ErrCouponNotFound.
	GetByCode(ctx context.Context, code string) (*domain.Coupon, error)

	// ListByCustomer returns a customer's coupons, optionally filtered
	// by status, newest first.
	ListByCustomer(ctx context.Context, customerID string, status *domain.CouponStatus) ([]domain.Coupon, error)

	// IssueDeduped inserts the coupon unless the dedup window already
	// contains a coupon for the same (customer, rule). The check and the
	// insert are one atomic unit. Returns false when suppressed.
	IssueDeduped(ctx context.Context, coupon *domain.Coupon, window DedupWindow) (bool, error)

	// Redeem transitions a coupon from ACTIVE to USED exactly once,
	// stamping the consuming order and the redemption time. Losing
	// concurrent callers observe domain.ErrCouponAlreadyUsed; stale
	// coupons are lazily flipped to EXPIRED and reported as
	// domain.ErrCouponExpired.
	Redeem(ctx context.Context, code, orderID string, now time.Time) (*domain.Coupon, error)

	// MarkExpired flips one ACTIVE coupon to EXPIRED. Used by validation
	// to persist a lazily detected expiry; a no-op if the status already
	// moved.
	MarkExpired(ctx context.Context, id string, now time.Time) error

	// ExpireStale flips every ACTIVE coupon past its expiry to EXPIRED
	// and returns the number of rows changed. Idempotent.
	ExpireStale(ctx context.Context, now time.Time) (int64, error)
}
