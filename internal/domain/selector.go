package domain

import "sort"

// Rand is the source of randomness for reward selection. A seeded
// math/rand/v2 Rand satisfies it, which makes draws reproducible in tests.
type Rand interface {
	Float64() float64
}

// SelectSlot draws one slot from the given active slots using categorical
// sampling: each slot's weight is its base probability scaled by the
// customer's tier multiplier. Weights are accumulated in a stable order
// (SortOrder, then ID) so two engines given the same random source produce
// the same outcome. When every weight is zero the draw falls back to
// uniform selection; a degenerate configuration must never fail a spin.
//
// Returns the chosen slot and its index within the display order.
func SelectSlot(slots []RewardSlot, tier string, rng Rand) (RewardSlot, int, error) {
	if len(slots) == 0 {
		return RewardSlot{}, 0, ErrNoRewardsConfigured
	}

	ordered := make([]RewardSlot, len(slots))
	copy(ordered, slots)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].SortOrder != ordered[j].SortOrder {
			return ordered[i].SortOrder < ordered[j].SortOrder
		}
		return ordered[i].ID < ordered[j].ID
	})

	weights := make([]float64, len(ordered))
	var total float64
	for i := range ordered {
		w := ordered[i].BaseProbability * ordered[i].Multiplier(tier)
		if w < 0 {
			w = 0
		}
		weights[i] = w
		total += w
	}

	if total == 0 {
		// Uniform fallback.
		for i := range weights {
			weights[i] = 1
		}
		total = float64(len(weights))
	}

	r := rng.Float64() * total
	var cum float64
	for i := range ordered {
		cum += weights[i]
		if r < cum {
			return ordered[i], i, nil
		}
	}

	// Floating point accumulation can leave r marginally above the final
	// cumulative weight; the last slot with positive weight wins the draw.
	for i := len(ordered) - 1; i >= 0; i-- {
		if weights[i] > 0 {
			return ordered[i], i, nil
		}
	}
	return ordered[len(ordered)-1], len(ordered) - 1, nil
}
