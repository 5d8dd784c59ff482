package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// AnalysisEvent is one anomaly finding produced by the health analysis
// pipeline. Events are persisted so a trigger check can replay the most
// recent finding against the current rule set.
type AnalysisEvent struct {
	ID              snowflake.ID                `gorm:"primaryKey" json:"id,string"`
	OwnerID         snowflake.ID                `gorm:"index;not null" json:"owner_id,string"`
	PetID           snowflake.ID                `gorm:"index;not null" json:"pet_id,string"`
	AnomalyType     string                      `gorm:"size:64;not null" json:"anomaly_type"`
	Severity        string                      `gorm:"size:16;not null" json:"severity"`
	Confidence      int                         `gorm:"not null" json:"confidence"`
	Recommendations datatypes.JSONSlice[string] `gorm:"type:json" json:"recommendations,omitempty"`
	OccurredAt      time.Time                   `gorm:"index;not null" json:"occurred_at"`
	CreatedAt       time.Time                   `json:"created_at"`
}

func (AnalysisEvent) TableName() string {
	return "analysis_events"
}
