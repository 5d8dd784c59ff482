package service

import (
	"strings"

	eventdomain "github.com/pawsentry/pawsentry/internal/alertengine/domain"
	ruledomain "github.com/pawsentry/pawsentry/internal/alertrule/domain"
	"github.com/pawsentry/pawsentry/internal/observability/metrics"
)

// ruleMatches decides whether an event triggers a rule, before any
// frequency limiting. The returned reason is only meaningful when the rule
// does not match. Malformed events never match.
func ruleMatches(rule *ruledomain.AlertRule, event *eventdomain.AnalysisEvent) (bool, string) {
	if rule == nil || event == nil {
		return false, metrics.SuppressReasonNoMatch
	}
	if !rule.IsActive {
		return false, metrics.SuppressReasonInactive
	}

	anomalyType := strings.ToLower(strings.TrimSpace(event.AnomalyType))
	severity := strings.ToLower(strings.TrimSpace(event.Severity))
	if anomalyType == "" || severity == "" {
		return false, metrics.SuppressReasonNoMatch
	}

	if !rule.MatchesAnomalyType(anomalyType) {
		return false, metrics.SuppressReasonNoMatch
	}
	if !rule.MatchesSeverity(severity) {
		return false, metrics.SuppressReasonNoMatch
	}
	if event.Confidence < rule.MinConfidence {
		return false, metrics.SuppressReasonNoMatch
	}
	return true, ""
}
