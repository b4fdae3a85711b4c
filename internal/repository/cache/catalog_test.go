package cache

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumistore/rewards/internal/domain"
	"github.com/lumistore/rewards/internal/repository/memory"
)

func setupCatalog(t *testing.T) (*Catalog, *memory.Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	store := memory.NewStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewCatalog(store, store, client, time.Minute, logger), store, mr
}

func TestCatalog_GetCurrent_ReadThrough(t *testing.T) {
	catalog, store, _ := setupCatalog(t)
	now := time.Now().UTC()

	store.PutProgram(domain.Program{
		ID:       "prog-001",
		Name:     "Wheel",
		StartsAt: now.AddDate(0, 0, -1),
		EndsAt:   now.AddDate(0, 0, 6),
		Active:   true,
	})

	p, err := catalog.GetCurrent(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, "prog-001", p.ID)

	// Second read is served from the cache even after the source is gone.
	store.PutProgram(domain.Program{ID: "prog-001", Active: false})

	p, err = catalog.GetCurrent(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, "prog-001", p.ID)
	assert.True(t, p.Active)
}

func TestCatalog_GetCurrent_StaleWindowBypassesCache(t *testing.T) {
	catalog, store, _ := setupCatalog(t)
	now := time.Now().UTC()

	store.PutProgram(domain.Program{
		ID:       "prog-001",
		StartsAt: now.AddDate(0, 0, -2),
		EndsAt:   now.Add(time.Hour),
		Active:   true,
	})

	_, err := catalog.GetCurrent(context.Background(), now)
	require.NoError(t, err)

	// The cached program's window has ended; the fresh one wins.
	later := now.Add(2 * time.Hour)
	store.PutProgram(domain.Program{
		ID:       "prog-002",
		StartsAt: now,
		EndsAt:   now.AddDate(0, 0, 7),
		Active:   true,
	})

	p, err := catalog.GetCurrent(context.Background(), later)
	require.NoError(t, err)
	assert.Equal(t, "prog-002", p.ID)
}

func TestCatalog_ListActiveSlots_CachesPerProgram(t *testing.T) {
	catalog, store, mr := setupCatalog(t)

	store.PutSlot(domain.RewardSlot{
		ID:        "slot-001",
		ProgramID: "prog-001",
		Label:     "10% off",
		Kind:      domain.RewardPercent,
		Active:    true,
	})

	slots, err := catalog.ListActiveSlots(context.Background(), "prog-001")
	require.NoError(t, err)
	require.Len(t, slots, 1)

	assert.True(t, mr.Exists(slotsKeyPrefix+"prog-001"))
}

func TestCatalog_RedisDownDegradesToSource(t *testing.T) {
	catalog, store, mr := setupCatalog(t)
	now := time.Now().UTC()

	store.PutRule(domain.EventRule{
		ID:     "rule-001",
		Kind:   domain.EventBirthday,
		Active: true,
	})

	mr.Close()

	rules, err := catalog.ListActiveByKind(context.Background(), domain.EventBirthday)
	require.NoError(t, err)
	require.Len(t, rules, 1)

	_, err = catalog.GetCurrent(context.Background(), now)
	assert.Error(t, err)
}
