package domain

import "time"

// Customer is the read model of a customer profile consumed from the
// customer collaborator: tier, point balance, and the lifecycle dates the
// event rules match against.
type Customer struct {
	ID           string     `json:"id"`
	TierID       string     `json:"tier_id,omitempty"`
	TierName     string     `json:"tier_name,omitempty"`
	Points       int64      `json:"points"`
	DateOfBirth  *time.Time `json:"date_of_birth,omitempty"`
	RegisteredAt time.Time  `json:"registered_at"`
	LastOrderAt  *time.Time `json:"last_order_at,omitempty"`
}

// SpinKind distinguishes free daily spins from point-exchange spins.
type SpinKind string

const (
	SpinFree           SpinKind = "FREE"
	SpinPointsExchange SpinKind = "POINTS_EXCHANGE"
)

// SpinHistory is one append-only row per spin attempt. It exists to
// reconstruct how many spins a customer made on a calendar day and is
// never mutated.
type SpinHistory struct {
	ID          string    `json:"id"`
	CustomerID  string    `json:"customer_id"`
	ProgramID   string    `json:"program_id"`
	SlotID      string    `json:"slot_id"`
	CouponID    *string   `json:"coupon_id,omitempty"`
	Kind        SpinKind  `json:"kind"`
	PointsSpent int       `json:"points_spent"`
	SpinDate    time.Time `json:"spin_date"`
	CreatedAt   time.Time `json:"created_at"`
}

// SpinStatus summarizes a customer's spin allowance for today.
type SpinStatus struct {
	RemainingFreeSpins int   `json:"remaining_free_spins"`
	SpinsToday         int   `json:"spins_today"`
	CustomerPoints     int64 `json:"customer_points"`
	PointsPerSpin      int   `json:"points_per_spin"`
}

// DateOnly truncates t to its calendar date in t's location. Spin daily
// limits are bounded by the server's local day, not a rolling 24h window.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
