package service

import "github.com/prometheus/client_golang/prometheus"

var (
	spinsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rewards_spins_total",
			Help: "Total number of spin attempts by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	couponsIssuedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rewards_coupons_issued_total",
			Help: "Total number of coupons issued by origin",
		},
		[]string{"origin"},
	)

	couponsRedeemedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rewards_coupons_redeemed_total",
			Help: "Total number of coupons redeemed",
		},
	)

	couponsExpiredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rewards_coupons_expired_total",
			Help: "Total number of coupons flipped to expired by sweeps and lazy checks",
		},
	)
)

func init() {
	prometheus.MustRegister(spinsTotal)
	prometheus.MustRegister(couponsIssuedTotal)
	prometheus.MustRegister(couponsRedeemedTotal)
	prometheus.MustRegister(couponsExpiredTotal)
}

// Outcome labels for the spins counter.
const (
	outcomeRewarded = "rewarded"
	outcomeNoReward = "no_reward"
	outcomeRejected = "rejected"
)
