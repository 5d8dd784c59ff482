package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

const (
	StatusUnread   = "unread"
	StatusRead     = "read"
	StatusArchived = "archived"
)

const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

const (
	ChannelInApp = "in_app"
	ChannelEmail = "email"
	ChannelPush  = "push"
)

const (
	TypeHealthAlert = "health_alert"
	TypeSystem      = "system"
)

// ChannelState records the delivery outcome for one channel of one
// notification. A failed channel keeps its error; the notification itself
// stays queryable either way.
type ChannelState struct {
	Requested bool       `json:"requested"`
	Sent      bool       `json:"sent"`
	SentAt    *time.Time `json:"sent_at,omitempty"`
	Error     string     `json:"error,omitempty"`
}

type ChannelStates = map[string]ChannelState

type Notification struct {
	ID       snowflake.ID `gorm:"primaryKey" json:"id,string"`
	OwnerID  snowflake.ID `gorm:"index:idx_notifications_owner_status,priority:1;not null" json:"owner_id,string"`
	PetID    snowflake.ID `gorm:"index" json:"pet_id,string"`
	RuleID   snowflake.ID `gorm:"index" json:"rule_id,string"`
	Type     string       `gorm:"size:64;not null" json:"type"`
	Category string       `gorm:"size:64" json:"category"`
	Title    string       `gorm:"size:255;not null" json:"title"`
	Message  string       `gorm:"type:text" json:"message"`
	Priority string       `gorm:"size:16;not null;default:medium" json:"priority"`
	Status   string       `gorm:"size:16;index:idx_notifications_owner_status,priority:2;not null;default:unread" json:"status"`

	Data      datatypes.JSONMap                 `gorm:"type:json" json:"data,omitempty"`
	Channels  datatypes.JSONType[ChannelStates] `gorm:"type:json" json:"channels"`
	ActionURL string                            `gorm:"size:255" json:"action_url,omitempty"`

	CreatedAt time.Time  `gorm:"index" json:"created_at"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
}

func (Notification) TableName() string {
	return "notifications"
}

const (
	EmailFrequencyImmediate = "immediate"
	EmailFrequencyDaily     = "daily"
	EmailFrequencyWeekly    = "weekly"
)

// NotificationSettings holds per-owner channel preferences. Rules request
// channels; settings decide whether a requested channel actually runs.
type NotificationSettings struct {
	OwnerID        snowflake.ID `gorm:"primaryKey" json:"owner_id,string"`
	InAppEnabled   bool         `gorm:"not null;default:true" json:"in_app_enabled"`
	EmailEnabled   bool         `gorm:"not null;default:false" json:"email_enabled"`
	EmailAddress   string       `gorm:"size:255" json:"email_address,omitempty"`
	PushEnabled    bool         `gorm:"not null;default:false" json:"push_enabled"`
	EmailFrequency string       `gorm:"size:16;not null;default:immediate" json:"email_frequency"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

func (NotificationSettings) TableName() string {
	return "notification_settings"
}

// DefaultSettings is what an owner gets before their first explicit save.
func DefaultSettings(ownerID snowflake.ID) NotificationSettings {
	return NotificationSettings{
		OwnerID:        ownerID,
		InAppEnabled:   true,
		EmailEnabled:   false,
		PushEnabled:    false,
		EmailFrequency: EmailFrequencyImmediate,
	}
}

type ActivityBucket struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

type Statistics struct {
	Total          int64            `json:"total"`
	Unread         int64            `json:"unread"`
	Read           int64            `json:"read"`
	Archived       int64            `json:"archived"`
	ByType         map[string]int64 `json:"by_type"`
	ByCategory     map[string]int64 `json:"by_category"`
	ByPriority     map[string]int64 `json:"by_priority"`
	RecentActivity []ActivityBucket `json:"recent_activity"`
}
