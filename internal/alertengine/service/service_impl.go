package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/pawsentry/pawsentry/internal/alertengine/domain"
	ruledomain "github.com/pawsentry/pawsentry/internal/alertrule/domain"
	"github.com/pawsentry/pawsentry/internal/clock"
	"github.com/pawsentry/pawsentry/internal/config"
	"github.com/pawsentry/pawsentry/internal/dispatch"
	notifdomain "github.com/pawsentry/pawsentry/internal/notification/domain"
	"github.com/pawsentry/pawsentry/internal/observability/metrics"
	"github.com/pawsentry/pawsentry/internal/ownerctx"
	"github.com/pawsentry/pawsentry/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	Config        config.Config
	DB            *gorm.DB
	Log           *zap.Logger
	GenID         *snowflake.Node
	Clock         clock.Clock
	EventRepo     domain.Repository
	RuleRepo      ruledomain.Repository
	Limiter       ratelimit.Limiter
	Locker        ratelimit.Locker
	Notifications notifdomain.Service
	Dispatcher    dispatch.Dispatcher
	Metrics       *metrics.Metrics `optional:"true"`
}

type Service struct {
	db            *gorm.DB
	log           *zap.Logger
	genID         *snowflake.Node
	clock         clock.Clock
	eventRepo     domain.Repository
	ruleRepo      ruledomain.Repository
	limiter       ratelimit.Limiter
	locker        ratelimit.Locker
	notifications notifdomain.Service
	dispatcher    dispatch.Dispatcher
	metrics       *metrics.Metrics
	policy        PriorityPolicy
	actionURL     string
}

func New(p Params) domain.Service {
	return &Service{
		db:            p.DB,
		log:           p.Log.Named("alertengine"),
		genID:         p.GenID,
		clock:         p.Clock,
		eventRepo:     p.EventRepo,
		ruleRepo:      p.RuleRepo,
		limiter:       p.Limiter,
		locker:        p.Locker,
		notifications: p.Notifications,
		dispatcher:    p.Dispatcher,
		metrics:       p.Metrics,
		policy:        ParsePriorityPolicy(p.Config.Alert.PriorityMap),
		actionURL:     p.Config.Alert.ActionURL,
	}
}

func (s *Service) Evaluate(ctx context.Context, req domain.EvaluateRequest) (domain.EvaluateResponse, error) {
	ownerID, ok := ownerctx.OwnerIDFromContext(ctx)
	if !ok || ownerID == 0 {
		return domain.EvaluateResponse{}, domain.ErrInvalidOwner
	}

	petID, err := parseID(req.PetID)
	if err != nil {
		return domain.EvaluateResponse{}, err
	}

	anomalyType := strings.ToLower(strings.TrimSpace(req.AnomalyType))
	severity := strings.ToLower(strings.TrimSpace(req.Severity))
	if anomalyType == "" || severity == "" {
		return domain.EvaluateResponse{}, domain.ErrInvalidInput
	}
	if req.Confidence < 0 || req.Confidence > 100 {
		return domain.EvaluateResponse{}, domain.ErrInvalidInput
	}

	now := s.clock.Now()
	occurredAt := now
	if req.OccurredAt != nil && !req.OccurredAt.IsZero() {
		occurredAt = req.OccurredAt.UTC()
	}

	event := &domain.AnalysisEvent{
		ID:              s.genID.Generate(),
		OwnerID:         ownerID,
		PetID:           petID,
		AnomalyType:     anomalyType,
		Severity:        severity,
		Confidence:      req.Confidence,
		Recommendations: datatypes.NewJSONSlice(req.Recommendations),
		OccurredAt:      occurredAt,
		CreatedAt:       now,
	}
	if err := s.eventRepo.InsertEvent(ctx, s.db, event); err != nil {
		return domain.EvaluateResponse{}, err
	}

	return s.evaluateEvent(ctx, event, "event")
}

func (s *Service) TriggerCheck(ctx context.Context, petID string) (domain.EvaluateResponse, error) {
	ownerID, ok := ownerctx.OwnerIDFromContext(ctx)
	if !ok || ownerID == 0 {
		return domain.EvaluateResponse{}, domain.ErrInvalidOwner
	}

	id, err := parseID(petID)
	if err != nil {
		return domain.EvaluateResponse{}, err
	}

	event, err := s.eventRepo.LatestEventByPet(ctx, s.db, ownerID, id)
	if err != nil {
		return domain.EvaluateResponse{}, err
	}
	if event == nil {
		return domain.EvaluateResponse{}, domain.ErrNoEvents
	}

	return s.evaluateEvent(ctx, event, "trigger_check")
}

// evaluateEvent runs one stored event against the pet's active rules. A
// failure on one rule never blocks the others.
func (s *Service) evaluateEvent(ctx context.Context, event *domain.AnalysisEvent, source string) (domain.EvaluateResponse, error) {
	start := time.Now()
	engine := metrics.Engine()
	defer func() {
		engine.ObserveEvaluation(source, time.Since(start))
	}()

	// Best effort cross-instance dedup; row locks on firing records keep
	// reservations correct even without it.
	release, acquired := s.locker.AcquireEvalLock(ctx, event.PetID)
	defer release()
	if !acquired {
		s.log.Warn("concurrent evaluation in progress for pet",
			zap.String("pet_id", event.PetID.String()),
		)
	}

	s.metrics.RecordEventEvaluated(ctx, event.AnomalyType)

	resp := domain.EvaluateResponse{
		EventID:         event.ID.String(),
		TriggeredAlerts: []domain.TriggeredAlert{},
	}

	rules, err := s.ruleRepo.ListActiveByPet(ctx, s.db, event.PetID)
	if err != nil {
		engine.RecordEvaluationError("load_rules")
		return domain.EvaluateResponse{}, err
	}

	for _, rule := range rules {
		if rule == nil || rule.OwnerID != event.OwnerID {
			continue
		}

		match, reason := ruleMatches(rule, event)
		if !match {
			engine.RecordRuleSuppressed(reason)
			continue
		}

		decision, err := s.limiter.Reserve(ctx, rule, event.PetID, s.clock.Now())
		if err != nil {
			engine.RecordEvaluationError("reserve")
			s.log.Error("frequency reservation failed",
				zap.String("rule_id", rule.ID.String()),
				zap.Error(err),
			)
			continue
		}
		if !decision.Allowed {
			engine.RecordRuleSuppressed(decision.Reason)
			s.metrics.RecordAlertSuppressed(ctx, decision.Reason)
			s.log.Info("alert suppressed",
				zap.String("rule_id", rule.ID.String()),
				zap.String("pet_id", event.PetID.String()),
				zap.String("reason", decision.Reason),
			)
			resp.Suppressed = append(resp.Suppressed, domain.SuppressedRule{
				RuleID: rule.ID.String(),
				Reason: decision.Reason,
			})
			continue
		}

		priority := s.policy.PriorityFor(event.Severity)
		created, err := s.notifications.Create(ctx, s.buildNotification(event, rule, priority))
		if err != nil {
			engine.RecordEvaluationError("notify")
			s.log.Error("failed to create notification",
				zap.String("rule_id", rule.ID.String()),
				zap.Error(err),
			)
			continue
		}

		flags := dispatch.ChannelFlags{
			InApp: rule.NotifyInApp,
			Email: rule.NotifyEmail,
			Push:  rule.NotifyPush,
		}
		if err := s.dispatcher.Dispatch(ctx, &created, flags); err != nil {
			// The notification row exists; the alert still counts as fired.
			engine.RecordEvaluationError("dispatch")
			s.log.Warn("channel dispatch failed",
				zap.String("notification_id", created.ID.String()),
				zap.Error(err),
			)
		}

		engine.RecordRuleFired(priority)
		s.metrics.RecordAlertFired(ctx, event.Severity, priority)
		s.log.Info("alert fired",
			zap.String("rule_id", rule.ID.String()),
			zap.String("pet_id", event.PetID.String()),
			zap.String("priority", priority),
		)
		resp.TriggeredAlerts = append(resp.TriggeredAlerts, domain.TriggeredAlert{
			RuleID:         rule.ID.String(),
			RuleName:       rule.Name,
			NotificationID: created.ID.String(),
			Priority:       priority,
		})
	}

	resp.TotalTriggered = len(resp.TriggeredAlerts)
	return resp, nil
}

func (s *Service) buildNotification(event *domain.AnalysisEvent, rule *ruledomain.AlertRule, priority string) notifdomain.CreateNotificationRequest {
	title := fmt.Sprintf("Health alert: %s", humanize(event.AnomalyType))

	var msg strings.Builder
	fmt.Fprintf(&msg, "Rule %q matched a %s severity %s finding (confidence %d%%).",
		rule.Name, event.Severity, humanize(event.AnomalyType), event.Confidence)
	if len(event.Recommendations) > 0 {
		msg.WriteString(" Recommended: ")
		msg.WriteString(strings.Join(event.Recommendations, "; "))
		msg.WriteString(".")
	}

	return notifdomain.CreateNotificationRequest{
		PetID:    event.PetID.String(),
		RuleID:   rule.ID.String(),
		Type:     notifdomain.TypeHealthAlert,
		Category: event.AnomalyType,
		Title:    title,
		Message:  msg.String(),
		Priority: priority,
		Data: map[string]any{
			"event_id":        event.ID.String(),
			"anomaly_type":    event.AnomalyType,
			"severity":        event.Severity,
			"confidence":      event.Confidence,
			"recommendations": []string(event.Recommendations),
			"occurred_at":     event.OccurredAt.UTC().Format(time.RFC3339),
		},
		ActionURL: expandActionURL(s.actionURL, event.PetID),
	}
}

// expandActionURL fills the {petId} placeholder in the configured URL
// template. A template without the placeholder is passed through as is.
func expandActionURL(template string, petID snowflake.ID) string {
	if template == "" {
		return ""
	}
	return strings.ReplaceAll(template, "{petId}", petID.String())
}

func humanize(value string) string {
	return strings.ReplaceAll(strings.TrimSpace(value), "_", " ")
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
