package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// AlertRule watches one pet for qualifying analysis events.
type AlertRule struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	OwnerID     snowflake.ID `gorm:"not null;index" json:"owner_id"`
	PetID       snowflake.ID `gorm:"not null;index" json:"pet_id"`
	Name        string       `gorm:"not null" json:"name"`
	Description string       `json:"description,omitempty"`
	IsActive    bool         `gorm:"not null;default:true" json:"is_active"`

	// Trigger conditions. An empty set matches any value.
	AnomalyTypes   datatypes.JSONSlice[string] `gorm:"type:json" json:"anomaly_types"`
	SeverityLevels datatypes.JSONSlice[string] `gorm:"type:json" json:"severity_levels"`
	MinConfidence  int                         `gorm:"not null;default:0" json:"min_confidence"`

	// Channel flags.
	NotifyInApp bool `gorm:"not null;default:true" json:"notify_in_app"`
	NotifyEmail bool `gorm:"not null;default:false" json:"notify_email"`
	NotifyPush  bool `gorm:"not null;default:false" json:"notify_push"`

	// Frequency policy.
	MaxPerDay     int `gorm:"not null;default:5" json:"max_per_day"`
	MaxPerWeek    int `gorm:"not null;default:10" json:"max_per_week"`
	CooldownHours int `gorm:"not null;default:1" json:"cooldown_hours"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (AlertRule) TableName() string {
	return "alert_rules"
}

// MatchesAnomalyType reports whether the rule's anomaly type set admits the value.
func (r AlertRule) MatchesAnomalyType(anomalyType string) bool {
	return matchSet(r.AnomalyTypes, anomalyType)
}

// MatchesSeverity reports whether the rule's severity set admits the value.
func (r AlertRule) MatchesSeverity(severity string) bool {
	return matchSet(r.SeverityLevels, severity)
}

func matchSet(set datatypes.JSONSlice[string], value string) bool {
	if len(set) == 0 {
		return true
	}
	for _, member := range set {
		if member == value {
			return true
		}
	}
	return false
}
