// Package main implements a standalone seed script that populates the
// rewards database with realistic development data: loyalty tiers, a set
// of customers spread across tiers, a running spin program with weighted
// slots, and a handful of lifecycle event rules. It writes direct SQL so
// it can run before the service itself is started.
package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func dsn() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		getEnv("POSTGRES_USER", "postgres"),
		getEnv("POSTGRES_PASSWORD", "postgres"),
		getEnv("POSTGRES_HOST", "localhost"),
		getEnv("POSTGRES_PORT", "5432"),
		getEnv("POSTGRES_DB", "rewards"),
		getEnv("POSTGRES_SSLMODE", "disable"),
	)
}

var tiers = []struct {
	id, name string
}{
	{"tier-silver", "silver"},
	{"tier-gold", "gold"},
	{"tier-platinum", "platinum"},
}

func seedTiers(ctx context.Context, pool *pgxpool.Pool) error {
	for _, t := range tiers {
		_, err := pool.Exec(ctx,
			`INSERT INTO tiers (id, name) VALUES ($1, $2) ON CONFLICT (id) DO NOTHING`,
			t.id, t.name)
		if err != nil {
			return fmt.Errorf("insert tier %s: %w", t.id, err)
		}
	}
	log.Printf("seeded %d tiers", len(tiers))
	return nil
}

func seedCustomers(ctx context.Context, pool *pgxpool.Pool, count int) error {
	now := time.Now().UTC()
	for i := 1; i <= count; i++ {
		id := fmt.Sprintf("cust-%04d", i)
		tier := tiers[i%len(tiers)].id
		points := int64(rand.Intn(50)) * 10

		// Spread birthdays across the year and keep some customers
		// dormant so the inactivity rule has targets.
		dob := time.Date(1970+rand.Intn(35), time.Month(1+i%12), 1+i%28, 0, 0, 0, 0, time.UTC)
		var lastOrder *time.Time
		if i%4 != 0 {
			t := now.AddDate(0, 0, -rand.Intn(90))
			lastOrder = &t
		}

		_, err := pool.Exec(ctx,
			`INSERT INTO customers (id, tier_id, points, date_of_birth, registered_at, last_order_at)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 ON CONFLICT (id) DO NOTHING`,
			id, tier, points, dob, now.AddDate(0, -rand.Intn(24), 0), lastOrder)
		if err != nil {
			return fmt.Errorf("insert customer %s: %w", id, err)
		}
	}
	log.Printf("seeded %d customers", count)
	return nil
}

func seedProgram(ctx context.Context, pool *pgxpool.Pool) error {
	now := time.Now().UTC()
	_, err := pool.Exec(ctx,
		`INSERT INTO programs (id, name, starts_at, ends_at, daily_free_spins, points_per_spin, active)
		 VALUES ($1, $2, $3, $4, $5, $6, TRUE)
		 ON CONFLICT (id) DO NOTHING`,
		"prog-season", "Season Lucky Spin", now.AddDate(0, 0, -1), now.AddDate(0, 1, 0), 1, 100)
	if err != nil {
		return fmt.Errorf("insert program: %w", err)
	}

	slots := []struct {
		id, label, kind        string
		value                  string
		maxDiscount, minOrder  *string
		validityDays           int
		probability            float64
		silver, gold, platinum float64
		sortOrder              int
	}{
		{"slot-5pct", "5% off", "PERCENT", "5", strPtr("10000"), nil, 7, 0.30, 1.0, 1.0, 1.0, 0},
		{"slot-10pct", "10% off", "PERCENT", "10", strPtr("20000"), strPtr("50000"), 7, 0.15, 1.0, 1.2, 1.5, 1},
		{"slot-5k", "5,000 off", "FIXED", "5000", nil, strPtr("30000"), 14, 0.10, 1.0, 1.2, 1.5, 2},
		{"slot-20k", "20,000 off", "FIXED", "20000", nil, strPtr("100000"), 14, 0.05, 0.8, 1.0, 2.0, 3},
		{"slot-none", "Better luck next time", "NO_REWARD", "0", nil, nil, 7, 0.40, 1.0, 1.0, 1.0, 4},
	}
	for _, s := range slots {
		_, err := pool.Exec(ctx,
			`INSERT INTO reward_slots
			   (id, program_id, label, kind, value, max_discount, min_order_amount,
			    validity_days, base_probability, silver_multiplier, gold_multiplier,
			    platinum_multiplier, active, sort_order)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, TRUE, $13)
			 ON CONFLICT (id) DO NOTHING`,
			s.id, "prog-season", s.label, s.kind, s.value, s.maxDiscount, s.minOrder,
			s.validityDays, s.probability, s.silver, s.gold, s.platinum, s.sortOrder)
		if err != nil {
			return fmt.Errorf("insert slot %s: %w", s.id, err)
		}
	}
	log.Printf("seeded program prog-season with %d slots", len(slots))
	return nil
}

func seedEventRules(ctx context.Context, pool *pgxpool.Pool) error {
	rules := []struct {
		id, name, kind, discountKind string
		value                        string
		maxDiscount                  *string
		validityDays                 int
		inactiveDays, newUserDays    int
		holidayDate                  string
		eligibleTiers                string
		oncePerYear                  bool
	}{
		{"rule-birthday", "Birthday Treat", "BIRTHDAY", "PERCENT", "15", strPtr("30000"), 14, 0, 0, "", "[]", true},
		{"rule-welcome", "Welcome Gift", "NEW_USER", "FIXED", "10000", nil, 30, 0, 7, "", "[]", true},
		{"rule-comeback", "We Miss You", "INACTIVE", "PERCENT", "20", strPtr("50000"), 14, 30, 0, "", "[]", true},
		{"rule-first-order", "First Order Bonus", "FIRST_ORDER", "FIXED", "5000", nil, 30, 0, 0, "", "[]", true},
		{"rule-newyear", "New Year Sale", "HOLIDAY", "PERCENT", "10", strPtr("25000"), 7, 0, 0, "01-01", "[]", true},
		{"rule-vip", "Platinum Upgrade", "VIP_TIER", "PERCENT", "25", strPtr("100000"), 30, 0, 0, "", `["tier-platinum"]`, true},
	}
	for _, r := range rules {
		_, err := pool.Exec(ctx,
			`INSERT INTO event_rules
			   (id, name, kind, discount_kind, value, max_discount, validity_days,
			    inactive_days, new_user_days, holiday_date, eligible_tier_ids,
			    once_per_year, active)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, TRUE)
			 ON CONFLICT (id) DO NOTHING`,
			r.id, r.name, r.kind, r.discountKind, r.value, r.maxDiscount, r.validityDays,
			r.inactiveDays, r.newUserDays, r.holidayDate, r.eligibleTiers, r.oncePerYear)
		if err != nil {
			return fmt.Errorf("insert rule %s: %w", r.id, err)
		}
	}
	log.Printf("seeded %d event rules", len(rules))
	return nil
}

func strPtr(s string) *string { return &s }

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn())
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("ping: %v", err)
	}

	steps := []func(context.Context, *pgxpool.Pool) error{
		seedTiers,
		func(ctx context.Context, pool *pgxpool.Pool) error { return seedCustomers(ctx, pool, 50) },
		seedProgram,
		seedEventRules,
	}
	for _, step := range steps {
		if err := step(ctx, pool); err != nil {
			log.Fatalf("seed: %v", err)
		}
	}

	log.Println("seed complete")
}
