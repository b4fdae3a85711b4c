package domain

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func slot(id string, order int, prob float64) RewardSlot {
	return RewardSlot{
		ID:                 id,
		Label:              id,
		Kind:               RewardPercent,
		BaseProbability:    prob,
		SilverMultiplier:   1.0,
		GoldMultiplier:     1.0,
		PlatinumMultiplier: 1.0,
		Active:             true,
		SortOrder:          order,
	}
}

func TestSelectSlot_NoSlots(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 1))
	_, _, err := SelectSlot(nil, TierBronze, rng)
	assert.ErrorIs(t, err, ErrNoRewardsConfigured)
}

func TestSelectSlot_Deterministic(t *testing.T) {
	slots := []RewardSlot{
		slot("c", 3, 0.2),
		slot("a", 1, 0.5),
		slot("b", 2, 0.3),
	}

	first := rand.New(rand.NewPCG(42, 7))
	second := rand.New(rand.NewPCG(42, 7))

	for i := 0; i < 100; i++ {
		s1, idx1, err1 := SelectSlot(slots, TierGold, first)
		s2, idx2, err2 := SelectSlot(slots, TierGold, second)
		require.NoError(t, err1)
		require.NoError(t, err2)
		assert.Equal(t, s1.ID, s2.ID)
		assert.Equal(t, idx1, idx2)
	}
}

func TestSelectSlot_IndexFollowsDisplayOrder(t *testing.T) {
	slots := []RewardSlot{
		slot("z", 2, 0),
		slot("a", 1, 1.0),
	}

	rng := rand.New(rand.NewPCG(1, 1))
	chosen, idx, err := SelectSlot(slots, TierBronze, rng)
	require.NoError(t, err)
	assert.Equal(t, "a", chosen.ID)
	assert.Equal(t, 0, idx)
}

func TestSelectSlot_DistributionConvergesToWeights(t *testing.T) {
	slots := []RewardSlot{
		slot("common", 1, 0.6),
		slot("uncommon", 2, 0.3),
		slot("rare", 3, 0.1),
	}

	rng := rand.New(rand.NewPCG(2024, 1))
	counts := map[string]int{}
	const n = 100000
	for i := 0; i < n; i++ {
		s, _, err := SelectSlot(slots, TierBronze, rng)
		require.NoError(t, err)
		counts[s.ID]++
	}

	assert.InDelta(t, 0.6, float64(counts["common"])/n, 0.01)
	assert.InDelta(t, 0.3, float64(counts["uncommon"])/n, 0.01)
	assert.InDelta(t, 0.1, float64(counts["rare"])/n, 0.01)
}

func TestSelectSlot_TierMultiplierShiftsOdds(t *testing.T) {
	lucky := slot("lucky", 1, 0.5)
	lucky.PlatinumMultiplier = 2.0
	dull := slot("dull", 2, 0.5)

	slots := []RewardSlot{lucky, dull}

	rng := rand.New(rand.NewPCG(7, 7))
	counts := map[string]int{}
	const n = 100000
	for i := 0; i < n; i++ {
		s, _, err := SelectSlot(slots, TierPlatinum, rng)
		require.NoError(t, err)
		counts[s.ID]++
	}

	// Weights 1.0 vs 0.5 normalize to 2/3 vs 1/3.
	assert.InDelta(t, 2.0/3.0, float64(counts["lucky"])/n, 0.01)
	assert.InDelta(t, 1.0/3.0, float64(counts["dull"])/n, 0.01)
}

func TestSelectSlot_ZeroWeightsFallBackToUniform(t *testing.T) {
	slots := []RewardSlot{
		slot("a", 1, 0),
		slot("b", 2, 0),
		slot("c", 3, 0),
	}

	rng := rand.New(rand.NewPCG(3, 3))
	counts := map[string]int{}
	const n = 60000
	for i := 0; i < n; i++ {
		s, _, err := SelectSlot(slots, TierSilver, rng)
		require.NoError(t, err)
		counts[s.ID]++
	}

	for _, id := range []string{"a", "b", "c"} {
		assert.InDelta(t, 1.0/3.0, float64(counts[id])/n, 0.01, "slot %s", id)
	}
}

func TestSelectSlot_NegativeMultiplierTreatedAsZero(t *testing.T) {
	bad := slot("bad", 1, 0.5)
	bad.SilverMultiplier = -1.0
	good := slot("good", 2, 0.5)

	rng := rand.New(rand.NewPCG(9, 9))
	for i := 0; i < 1000; i++ {
		s, _, err := SelectSlot([]RewardSlot{bad, good}, TierSilver, rng)
		require.NoError(t, err)
		assert.Equal(t, "good", s.ID)
	}
}

func TestSelectSlot_DoesNotMutateInput(t *testing.T) {
	slots := []RewardSlot{
		slot("b", 2, 0.5),
		slot("a", 1, 0.5),
	}

	rng := rand.New(rand.NewPCG(5, 5))
	_, _, err := SelectSlot(slots, TierBronze, rng)
	require.NoError(t, err)

	assert.Equal(t, "b", slots[0].ID)
	assert.Equal(t, "a", slots[1].ID)
}
