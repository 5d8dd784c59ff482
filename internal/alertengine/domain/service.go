package domain

import (
	"context"
	"errors"
	"time"
)

var (
	ErrInvalidOwner = errors.New("invalid_owner")
	ErrInvalidID    = errors.New("invalid_id")
	ErrInvalidInput = errors.New("invalid_input")
	ErrNoEvents     = errors.New("no_events")
)

type EvaluateRequest struct {
	PetID           string     `json:"pet_id"`
	AnomalyType     string     `json:"anomaly_type"`
	Severity        string     `json:"severity"`
	Confidence      int        `json:"confidence"`
	Recommendations []string   `json:"recommendations"`
	OccurredAt      *time.Time `json:"occurred_at"`
}

// TriggeredAlert reports one rule that fired for an event.
type TriggeredAlert struct {
	RuleID         string `json:"rule_id"`
	RuleName       string `json:"rule_name"`
	NotificationID string `json:"notification_id"`
	Priority       string `json:"priority"`
}

// SuppressedRule reports one matching rule held back by frequency limits.
type SuppressedRule struct {
	RuleID string `json:"rule_id"`
	Reason string `json:"reason"`
}

type EvaluateResponse struct {
	EventID         string           `json:"event_id"`
	TotalTriggered  int              `json:"total_triggered"`
	TriggeredAlerts []TriggeredAlert `json:"triggered_alerts"`
	Suppressed      []SuppressedRule `json:"suppressed,omitempty"`
}

type Service interface {
	// Evaluate stores the analysis event and runs it against the pet's
	// active rules.
	Evaluate(ctx context.Context, req EvaluateRequest) (EvaluateResponse, error)
	// TriggerCheck replays the pet's most recent analysis event against
	// the current rule set.
	TriggerCheck(ctx context.Context, petID string) (EvaluateResponse, error)
}
