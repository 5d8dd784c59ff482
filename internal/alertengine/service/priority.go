package service

import (
	"strings"

	ruledomain "github.com/pawsentry/pawsentry/internal/alertrule/domain"
	notifdomain "github.com/pawsentry/pawsentry/internal/notification/domain"
)

// PriorityPolicy maps event severities to notification priorities.
type PriorityPolicy map[string]string

var defaultPriorityPolicy = PriorityPolicy{
	string(ruledomain.SeverityLow):      notifdomain.PriorityLow,
	string(ruledomain.SeverityMedium):   notifdomain.PriorityMedium,
	string(ruledomain.SeverityHigh):     notifdomain.PriorityHigh,
	string(ruledomain.SeverityCritical): notifdomain.PriorityHigh,
}

// ParsePriorityPolicy builds a policy from a "severity:priority,..."
// override string layered over the defaults. Malformed pairs and unknown
// priorities are ignored.
func ParsePriorityPolicy(raw string) PriorityPolicy {
	policy := make(PriorityPolicy, len(defaultPriorityPolicy))
	for severity, priority := range defaultPriorityPolicy {
		policy[severity] = priority
	}

	for _, pair := range strings.Split(raw, ",") {
		parts := strings.SplitN(pair, ":", 2)
		if len(parts) != 2 {
			continue
		}
		severity := strings.ToLower(strings.TrimSpace(parts[0]))
		priority := strings.ToLower(strings.TrimSpace(parts[1]))
		if severity == "" || !notifdomain.ValidPriority(priority) {
			continue
		}
		policy[severity] = priority
	}
	return policy
}

// PriorityFor resolves the notification priority for an event severity.
// Unknown severities fall back to medium.
func (p PriorityPolicy) PriorityFor(severity string) string {
	if priority, ok := p[strings.ToLower(strings.TrimSpace(severity))]; ok {
		return priority
	}
	return notifdomain.PriorityMedium
}
