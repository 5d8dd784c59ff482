package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	ruledomain "github.com/pawsentry/pawsentry/internal/alertrule/domain"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&FiringRecord{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return conn
}

func testRule(maxPerDay, maxPerWeek, cooldownHours int) *ruledomain.AlertRule {
	return &ruledomain.AlertRule{
		ID:            snowflake.ID(101),
		PetID:         snowflake.ID(202),
		MaxPerDay:     maxPerDay,
		MaxPerWeek:    maxPerWeek,
		CooldownHours: cooldownHours,
	}
}

func TestReserveAllowsFirstFire(t *testing.T) {
	limiter := NewLimiter(newTestDB(t))
	rule := testRule(5, 10, 1)
	now := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)

	decision, err := limiter.Reserve(context.Background(), rule, rule.PetID, now)
	assert.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.Empty(t, decision.Reason)
}

func TestReserveSuppressesWithinCooldown(t *testing.T) {
	limiter := NewLimiter(newTestDB(t))
	rule := testRule(5, 10, 2)
	now := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)

	first, err := limiter.Reserve(context.Background(), rule, rule.PetID, now)
	assert.NoError(t, err)
	assert.True(t, first.Allowed)

	second, err := limiter.Reserve(context.Background(), rule, rule.PetID, now.Add(30*time.Minute))
	assert.NoError(t, err)
	assert.False(t, second.Allowed)
	assert.Equal(t, ReasonCooldown, second.Reason)

	third, err := limiter.Reserve(context.Background(), rule, rule.PetID, now.Add(2*time.Hour))
	assert.NoError(t, err)
	assert.True(t, third.Allowed)
}

func TestReserveEnforcesDailyCap(t *testing.T) {
	limiter := NewLimiter(newTestDB(t))
	rule := testRule(3, 10, 0)
	now := time.Date(2026, 3, 4, 1, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		decision, err := limiter.Reserve(context.Background(), rule, rule.PetID, now.Add(time.Duration(i)*time.Hour))
		assert.NoError(t, err)
		assert.True(t, decision.Allowed, "fire %d should be allowed", i+1)
	}

	capped, err := limiter.Reserve(context.Background(), rule, rule.PetID, now.Add(4*time.Hour))
	assert.NoError(t, err)
	assert.False(t, capped.Allowed)
	assert.Equal(t, ReasonDailyCap, capped.Reason)

	// Midnight UTC rollover opens a fresh daily window.
	nextDay := time.Date(2026, 3, 5, 0, 30, 0, 0, time.UTC)
	rolled, err := limiter.Reserve(context.Background(), rule, rule.PetID, nextDay)
	assert.NoError(t, err)
	assert.True(t, rolled.Allowed)
}

func TestReserveEnforcesWeeklyCap(t *testing.T) {
	limiter := NewLimiter(newTestDB(t))
	rule := testRule(2, 3, 0)
	ctx := context.Background()

	// Wednesday and Thursday exhaust the weekly budget of 3.
	day1 := time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 3, 5, 9, 0, 0, 0, time.UTC)

	for _, at := range []time.Time{day1, day1.Add(time.Hour), day2} {
		decision, err := limiter.Reserve(ctx, rule, rule.PetID, at)
		assert.NoError(t, err)
		assert.True(t, decision.Allowed)
	}

	capped, err := limiter.Reserve(ctx, rule, rule.PetID, day2.Add(time.Hour))
	assert.NoError(t, err)
	assert.False(t, capped.Allowed)
	assert.Equal(t, ReasonWeeklyCap, capped.Reason)

	// Monday 00:00 UTC starts the next ISO week.
	nextWeek := time.Date(2026, 3, 9, 0, 5, 0, 0, time.UTC)
	rolled, err := limiter.Reserve(ctx, rule, rule.PetID, nextWeek)
	assert.NoError(t, err)
	assert.True(t, rolled.Allowed)
}

func TestReserveIsolatesKeys(t *testing.T) {
	limiter := NewLimiter(newTestDB(t))
	rule := testRule(1, 10, 0)
	otherPet := snowflake.ID(909)
	now := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)

	first, err := limiter.Reserve(context.Background(), rule, rule.PetID, now)
	assert.NoError(t, err)
	assert.True(t, first.Allowed)

	capped, err := limiter.Reserve(context.Background(), rule, rule.PetID, now.Add(time.Minute))
	assert.NoError(t, err)
	assert.False(t, capped.Allowed)

	// A different pet under the same rule carries its own counters.
	other, err := limiter.Reserve(context.Background(), rule, otherPet, now.Add(time.Minute))
	assert.NoError(t, err)
	assert.True(t, other.Allowed)
}

func TestMayFireDoesNotConsumeBudget(t *testing.T) {
	limiter := NewLimiter(newTestDB(t))
	rule := testRule(1, 10, 0)
	now := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		decision, err := limiter.MayFire(context.Background(), rule, rule.PetID, now)
		assert.NoError(t, err)
		assert.True(t, decision.Allowed)
	}

	decision, err := limiter.Reserve(context.Background(), rule, rule.PetID, now)
	assert.NoError(t, err)
	assert.True(t, decision.Allowed)
}

func TestRecordFireAdvancesCounters(t *testing.T) {
	conn := newTestDB(t)
	limiter := NewLimiter(conn)
	rule := testRule(5, 10, 1)
	now := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)

	assert.NoError(t, limiter.RecordFire(context.Background(), rule, rule.PetID, now))
	assert.NoError(t, limiter.RecordFire(context.Background(), rule, rule.PetID, now.Add(2*time.Hour)))

	var record FiringRecord
	err := conn.Where("rule_id = ? AND pet_id = ?", rule.ID, rule.PetID).First(&record).Error
	assert.NoError(t, err)
	assert.Equal(t, 2, record.CountDay)
	assert.Equal(t, 2, record.CountWeek)
	if assert.NotNil(t, record.LastFiredAt) {
		assert.Equal(t, now.Add(2*time.Hour), record.LastFiredAt.UTC())
	}
}

func TestZeroCapsDisableLimits(t *testing.T) {
	limiter := NewLimiter(newTestDB(t))
	rule := testRule(0, 0, 0)
	now := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 20; i++ {
		decision, err := limiter.Reserve(context.Background(), rule, rule.PetID, now.Add(time.Duration(i)*time.Minute))
		assert.NoError(t, err)
		assert.True(t, decision.Allowed)
	}
}

func TestWeekStartIsMonday(t *testing.T) {
	// Sunday belongs to the week that started the previous Monday.
	sunday := time.Date(2026, 3, 8, 23, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), weekStart(sunday))

	monday := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, monday, weekStart(monday))
}
