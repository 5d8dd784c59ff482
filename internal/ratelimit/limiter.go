package ratelimit

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	ruledomain "github.com/pawsentry/pawsentry/internal/alertrule/domain"
	"github.com/pawsentry/pawsentry/pkg/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	ReasonCooldown  = "cooldown"
	ReasonDailyCap  = "daily_cap"
	ReasonWeeklyCap = "weekly_cap"
)

// FiringRecord tracks rate-limit state per (rule, pet) key.
type FiringRecord struct {
	RuleID      snowflake.ID `gorm:"primaryKey"`
	PetID       snowflake.ID `gorm:"primaryKey"`
	LastFiredAt *time.Time
	CountDay    int       `gorm:"not null;default:0"`
	DayStart    time.Time `gorm:"not null"`
	CountWeek   int       `gorm:"not null;default:0"`
	WeekStart   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`
}

func (FiringRecord) TableName() string {
	return "firing_records"
}

// Decision is the outcome of a frequency check.
type Decision struct {
	Allowed bool
	Reason  string
}

// Limiter enforces per-rule, per-pet cooldown and daily/weekly caps.
type Limiter interface {
	// MayFire is a read-only check against current counters.
	MayFire(ctx context.Context, rule *ruledomain.AlertRule, petID snowflake.ID, now time.Time) (Decision, error)
	// RecordFire increments both window counters and sets the last fired
	// time. It is the only mutator and must follow a positive check.
	RecordFire(ctx context.Context, rule *ruledomain.AlertRule, petID snowflake.ID, now time.Time) error
	// Reserve runs check-then-increment as one atomic operation so two
	// concurrent evaluations for the same key cannot both pass.
	Reserve(ctx context.Context, rule *ruledomain.AlertRule, petID snowflake.ID, now time.Time) (Decision, error)
}

type limiter struct {
	db *gorm.DB
}

func NewLimiter(conn *gorm.DB) Limiter {
	return &limiter{db: conn}
}

func (l *limiter) MayFire(ctx context.Context, rule *ruledomain.AlertRule, petID snowflake.ID, now time.Time) (Decision, error) {
	if rule == nil {
		return Decision{}, errors.New("rule is required")
	}

	record, err := l.findRecord(ctx, l.db, rule.ID, petID, false)
	if err != nil {
		return Decision{}, err
	}
	if record == nil {
		return Decision{Allowed: true}, nil
	}

	rolled := *record
	rollWindows(&rolled, now)
	return decide(rule, &rolled, now), nil
}

func (l *limiter) RecordFire(ctx context.Context, rule *ruledomain.AlertRule, petID snowflake.ID, now time.Time) error {
	if rule == nil {
		return errors.New("rule is required")
	}

	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		record, err := l.lockOrCreate(ctx, tx, rule.ID, petID, now)
		if err != nil {
			return err
		}
		rollWindows(record, now)
		fire(record, now)
		return tx.Save(record).Error
	})
}

func (l *limiter) Reserve(ctx context.Context, rule *ruledomain.AlertRule, petID snowflake.ID, now time.Time) (Decision, error) {
	if rule == nil {
		return Decision{}, errors.New("rule is required")
	}

	var decision Decision
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		record, err := l.lockOrCreate(ctx, tx, rule.ID, petID, now)
		if err != nil {
			return err
		}
		rollWindows(record, now)
		decision = decide(rule, record, now)
		if !decision.Allowed {
			return nil
		}
		fire(record, now)
		return tx.Save(record).Error
	})
	if err != nil {
		return Decision{}, err
	}
	return decision, nil
}

func (l *limiter) findRecord(ctx context.Context, tx *gorm.DB, ruleID, petID snowflake.ID, lock bool) (*FiringRecord, error) {
	stmt := tx.WithContext(ctx)
	if lock && supportsRowLock(tx) {
		stmt = stmt.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var record FiringRecord
	err := stmt.
		Where("rule_id = ? AND pet_id = ?", ruleID, petID).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

func (l *limiter) lockOrCreate(ctx context.Context, tx *gorm.DB, ruleID, petID snowflake.ID, now time.Time) (*FiringRecord, error) {
	record, err := l.findRecord(ctx, tx, ruleID, petID, true)
	if err != nil {
		return nil, err
	}
	if record != nil {
		return record, nil
	}

	fresh := &FiringRecord{
		RuleID:    ruleID,
		PetID:     petID,
		DayStart:  dayStart(now),
		WeekStart: weekStart(now),
		UpdatedAt: now.UTC(),
	}
	if err := tx.WithContext(ctx).Create(fresh).Error; err != nil {
		// Lost a create race with a concurrent reservation; re-read under lock.
		if db.IsDuplicateKeyErr(err) {
			return l.findRecord(ctx, tx, ruleID, petID, true)
		}
		return nil, err
	}
	return fresh, nil
}

func decide(rule *ruledomain.AlertRule, record *FiringRecord, now time.Time) Decision {
	if record.LastFiredAt != nil && rule.CooldownHours > 0 {
		cooldown := time.Duration(rule.CooldownHours) * time.Hour
		if now.UTC().Sub(*record.LastFiredAt) < cooldown {
			return Decision{Reason: ReasonCooldown}
		}
	}
	if rule.MaxPerDay > 0 && record.CountDay >= rule.MaxPerDay {
		return Decision{Reason: ReasonDailyCap}
	}
	if rule.MaxPerWeek > 0 && record.CountWeek >= rule.MaxPerWeek {
		return Decision{Reason: ReasonWeeklyCap}
	}
	return Decision{Allowed: true}
}

func fire(record *FiringRecord, now time.Time) {
	fired := now.UTC()
	record.LastFiredAt = &fired
	record.CountDay++
	record.CountWeek++
	record.UpdatedAt = fired
}

func rollWindows(record *FiringRecord, now time.Time) {
	if day := dayStart(now); !record.DayStart.Equal(day) {
		record.DayStart = day
		record.CountDay = 0
	}
	if week := weekStart(now); !record.WeekStart.Equal(week) {
		record.WeekStart = week
		record.CountWeek = 0
	}
}

// dayStart pins the daily window to the UTC calendar day.
func dayStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// weekStart pins the weekly window to the ISO week (Monday 00:00 UTC).
func weekStart(t time.Time) time.Time {
	day := dayStart(t)
	weekday := int(day.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	return day.AddDate(0, 0, -(weekday - 1))
}

func supportsRowLock(tx *gorm.DB) bool {
	if tx == nil || tx.Dialector == nil {
		return false
	}
	switch tx.Dialector.Name() {
	case "postgres", "mysql":
		return true
	default:
		return false
	}
}
