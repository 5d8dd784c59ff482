package domain

import (
	"context"
	"errors"
	"strings"

	"github.com/pawsentry/pawsentry/pkg/db/pagination"
)

var (
	ErrInvalidOwner = errors.New("invalid_owner")
	ErrInvalidID    = errors.New("invalid_id")
	ErrNotFound     = errors.New("not_found")
	ErrInvalidInput = errors.New("invalid_input")
)

type CreateNotificationRequest struct {
	PetID     string         `json:"pet_id"`
	RuleID    string         `json:"rule_id"`
	Type      string         `json:"type"`
	Category  string         `json:"category"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	Priority  string         `json:"priority"`
	Data      map[string]any `json:"data"`
	ActionURL string         `json:"action_url"`
}

type ListNotificationsRequest struct {
	Status     string `form:"status"`
	Type       string `form:"type"`
	PetID      string `form:"pet_id"`
	UnreadOnly bool   `form:"unread_only"`

	Pagination pagination.Pagination
}

type ListNotificationsResponse struct {
	Items    []Notification      `json:"items"`
	PageInfo pagination.PageInfo `json:"page_info"`
}

type MarkManyReadRequest struct {
	IDs []string `json:"ids"`
}

type UpdateSettingsRequest struct {
	InAppEnabled   *bool   `json:"in_app_enabled"`
	EmailEnabled   *bool   `json:"email_enabled"`
	EmailAddress   *string `json:"email_address"`
	PushEnabled    *bool   `json:"push_enabled"`
	EmailFrequency *string `json:"email_frequency"`
}

type Service interface {
	Create(ctx context.Context, req CreateNotificationRequest) (Notification, error)
	List(ctx context.Context, req ListNotificationsRequest) (ListNotificationsResponse, error)
	GetByID(ctx context.Context, id string) (Notification, error)
	MarkRead(ctx context.Context, id string) (Notification, error)
	MarkManyRead(ctx context.Context, req MarkManyReadRequest) (int64, error)
	Archive(ctx context.Context, id string) (Notification, error)
	Delete(ctx context.Context, id string) error
	UnreadCount(ctx context.Context) (int64, error)
	Statistics(ctx context.Context, days int) (Statistics, error)
	GetSettings(ctx context.Context) (NotificationSettings, error)
	UpdateSettings(ctx context.Context, req UpdateSettingsRequest) (NotificationSettings, error)
}

// ValidStatus reports whether s is a status the store understands.
func ValidStatus(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case StatusUnread, StatusRead, StatusArchived:
		return true
	default:
		return false
	}
}

// ValidPriority reports whether p is a known notification priority.
func ValidPriority(p string) bool {
	switch strings.ToLower(strings.TrimSpace(p)) {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	default:
		return false
	}
}

// ValidEmailFrequency reports whether f is a supported digest cadence.
func ValidEmailFrequency(f string) bool {
	switch strings.ToLower(strings.TrimSpace(f)) {
	case EmailFrequencyImmediate, EmailFrequencyDaily, EmailFrequencyWeekly:
		return true
	default:
		return false
	}
}
