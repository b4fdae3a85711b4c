// Package cache decorates the catalog repositories with a Redis
// read-through layer. Only configuration reads are cached; nothing the
// spin and redemption transactions decide on authorization-wise ever
// comes from here stale beyond the TTL.
package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lumistore/rewards/internal/domain"
	"github.com/lumistore/rewards/internal/repository"
)

const (
	programKey     = "rewards:program:current"
	slotsKeyPrefix = "rewards:slots:"
	rulesKeyPrefix = "rewards:rules:"
	rulesAllKey    = "rewards:rules:all"
)

// Catalog wraps the program and rule repositories with a Redis cache.
// Cache failures degrade to the underlying source, never to an error.
type Catalog struct {
	programs repository.ProgramRepository
	rules    repository.RuleRepository
	client   *redis.Client
	ttl      time.Duration
	logger   *slog.Logger
}

var (
	_ repository.ProgramRepository = (*Catalog)(nil)
	_ repository.RuleRepository    = (*Catalog)(nil)
)

// NewCatalog creates a read-through catalog cache.
func NewCatalog(programs repository.ProgramRepository, rules repository.RuleRepository, client *redis.Client, ttl time.Duration, logger *slog.Logger) *Catalog {
	return &Catalog{
		programs: programs,
		rules:    rules,
		client:   client,
		ttl:      ttl,
		logger:   logger,
	}
}

// GetCurrent returns the current program, preferring the cached copy as
// long as its window still contains now.
func (c *Catalog) GetCurrent(ctx context.Context, now time.Time) (*domain.Program, error) {
	var cached domain.Program
	if c.get(ctx, programKey, &cached) && cached.IsCurrentlyActive(now) {
		return &cached, nil
	}

	p, err := c.programs.GetCurrent(ctx, now)
	if err != nil {
		return nil, err
	}

	c.set(ctx, programKey, p)
	return p, nil
}

// ListActiveSlots returns a program's slots, cached per program.
func (c *Catalog) ListActiveSlots(ctx context.Context, programID string) ([]domain.RewardSlot, error) {
	key := slotsKeyPrefix + programID

	var cached []domain.RewardSlot
	if c.get(ctx, key, &cached) {
		return cached, nil
	}

	slots, err := c.programs.ListActiveSlots(ctx, programID)
	if err != nil {
		return nil, err
	}

	c.set(ctx, key, slots)
	return slots, nil
}

// ListActiveByKind returns the active rules of one kind, cached per kind.
func (c *Catalog) ListActiveByKind(ctx context.Context, kind domain.EventKind) ([]domain.EventRule, error) {
	key := rulesKeyPrefix + string(kind)

	var cached []domain.EventRule
	if c.get(ctx, key, &cached) {
		return cached, nil
	}

	rules, err := c.rules.ListActiveByKind(ctx, kind)
	if err != nil {
		return nil, err
	}

	c.set(ctx, key, rules)
	return rules, nil
}

// ListActive returns all active rules, cached as one entry.
func (c *Catalog) ListActive(ctx context.Context) ([]domain.EventRule, error) {
	var cached []domain.EventRule
	if c.get(ctx, rulesAllKey, &cached) {
		return cached, nil
	}

	rules, err := c.rules.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	c.set(ctx, rulesAllKey, rules)
	return rules, nil
}

func (c *Catalog) get(ctx context.Context, key string, dest any) bool {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.WarnContext(ctx, "catalog cache read failed", slog.String("key", key), slog.Any("error", err))
		}
		return false
	}

	if err := json.Unmarshal(data, dest); err != nil {
		c.logger.WarnContext(ctx, "catalog cache entry corrupt", slog.String("key", key), slog.Any("error", err))
		return false
	}

	return true
}

func (c *Catalog) set(ctx context.Context, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		c.logger.WarnContext(ctx, "catalog cache marshal failed", slog.String("key", key), slog.Any("error", err))
		return
	}

	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "catalog cache write failed", slog.String("key", key), slog.Any("error", err))
	}
}
