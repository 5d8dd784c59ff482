package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

type CreateRuleRequest struct {
	PetID          string   `json:"pet_id"`
	Name           string   `json:"name"`
	Description    string   `json:"description"`
	IsActive       *bool    `json:"is_active"`
	AnomalyTypes   []string `json:"anomaly_types"`
	SeverityLevels []string `json:"severity_levels"`
	MinConfidence  int      `json:"min_confidence"`
	NotifyInApp    *bool    `json:"notify_in_app"`
	NotifyEmail    bool     `json:"notify_email"`
	NotifyPush     bool     `json:"notify_push"`
	MaxPerDay      int      `json:"max_per_day"`
	MaxPerWeek     int      `json:"max_per_week"`
	CooldownHours  int      `json:"cooldown_hours"`
}

type UpdateRuleRequest struct {
	ID             string    `json:"-"`
	Name           *string   `json:"name"`
	Description    *string   `json:"description"`
	IsActive       *bool     `json:"is_active"`
	AnomalyTypes   *[]string `json:"anomaly_types"`
	SeverityLevels *[]string `json:"severity_levels"`
	MinConfidence  *int      `json:"min_confidence"`
	NotifyInApp    *bool     `json:"notify_in_app"`
	NotifyEmail    *bool     `json:"notify_email"`
	NotifyPush     *bool     `json:"notify_push"`
	MaxPerDay      *int      `json:"max_per_day"`
	MaxPerWeek     *int      `json:"max_per_week"`
	CooldownHours  *int      `json:"cooldown_hours"`
}

type ListRuleRequest struct {
	PetID string
}

// DeleteResult reports whether the rule was removed or only deactivated.
type DeleteResult struct {
	Deleted     bool `json:"deleted"`
	Deactivated bool `json:"deactivated"`
}

type Service interface {
	Create(ctx context.Context, req CreateRuleRequest) (AlertRule, error)
	List(ctx context.Context, req ListRuleRequest) ([]AlertRule, error)
	GetByID(ctx context.Context, id string) (AlertRule, error)
	Update(ctx context.Context, req UpdateRuleRequest) (AlertRule, error)
	Delete(ctx context.Context, id string) (DeleteResult, error)
}

var (
	ErrInvalidOwner = errors.New("invalid_owner")
	ErrInvalidID    = errors.New("invalid_id")
	ErrNotFound     = errors.New("not_found")
)

// FieldError is a single field-level validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError aggregates field-level failures for a rule payload.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f.Field, f.Message))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// AsValidationError unwraps err into a *ValidationError when possible.
func AsValidationError(err error) (*ValidationError, bool) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr, true
	}
	return nil, false
}
