package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	eventdomain "github.com/pawsentry/pawsentry/internal/alertengine/domain"
	eventrepo "github.com/pawsentry/pawsentry/internal/alertengine/repository"
	ruledomain "github.com/pawsentry/pawsentry/internal/alertrule/domain"
	rulerepo "github.com/pawsentry/pawsentry/internal/alertrule/repository"
	"github.com/pawsentry/pawsentry/internal/clock"
	"github.com/pawsentry/pawsentry/internal/config"
	"github.com/pawsentry/pawsentry/internal/dispatch"
	notifdomain "github.com/pawsentry/pawsentry/internal/notification/domain"
	notifrepo "github.com/pawsentry/pawsentry/internal/notification/repository"
	notifservice "github.com/pawsentry/pawsentry/internal/notification/service"
	"github.com/pawsentry/pawsentry/internal/ownerctx"
	"github.com/pawsentry/pawsentry/internal/providers/email"
	"github.com/pawsentry/pawsentry/internal/providers/push"
	"github.com/pawsentry/pawsentry/internal/ratelimit"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	engineOwner = snowflake.ID(7001)
	enginePet   = snowflake.ID(4242)
)

type engineFixture struct {
	db     *gorm.DB
	clock  *clock.FakeClock
	node   *snowflake.Node
	engine eventdomain.Service
	notifs notifdomain.Service
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	err = conn.AutoMigrate(
		&ruledomain.AlertRule{},
		&ratelimit.FiringRecord{},
		&eventdomain.AnalysisEvent{},
		&notifdomain.Notification{},
		&notifdomain.NotificationSettings{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	fake := clock.NewFakeClock(time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC))
	log := zap.NewNop()
	cfg := config.Config{
		Alert: config.AlertConfig{ActionURL: "/pets/{petId}/health"},
	}

	notifs := notifservice.New(notifservice.Params{
		DB:           conn,
		Log:          log,
		GenID:        node,
		Clock:        fake,
		Repo:         notifrepo.Provide(),
		SettingsRepo: notifrepo.ProvideSettings(),
	})

	dispatcher := dispatch.New(dispatch.Params{
		DB:           conn,
		Log:          log,
		Clock:        fake,
		Repo:         notifrepo.Provide(),
		SettingsRepo: notifrepo.ProvideSettings(),
		Email:        email.NoOpProvider{},
		Push:         push.NoOpProvider{},
	})

	engine := New(Params{
		Config:        cfg,
		DB:            conn,
		Log:           log,
		GenID:         node,
		Clock:         fake,
		EventRepo:     eventrepo.Provide(),
		RuleRepo:      rulerepo.Provide(),
		Limiter:       ratelimit.NewLimiter(conn),
		Locker:        ratelimit.NewLocker(cfg, log),
		Notifications: notifs,
		Dispatcher:    dispatcher,
	})

	return &engineFixture{
		db:     conn,
		clock:  fake,
		node:   node,
		engine: engine,
		notifs: notifs,
	}
}

func (f *engineFixture) ctx() context.Context {
	return ownerctx.WithOwnerID(context.Background(), engineOwner)
}

func (f *engineFixture) saveRule(t *testing.T, mutate func(*ruledomain.AlertRule)) *ruledomain.AlertRule {
	t.Helper()
	rule := &ruledomain.AlertRule{
		ID:             f.node.Generate(),
		OwnerID:        engineOwner,
		PetID:          enginePet,
		Name:           "Weight watch",
		IsActive:       true,
		AnomalyTypes:   datatypes.NewJSONSlice([]string{"weight_loss"}),
		SeverityLevels: datatypes.NewJSONSlice([]string{"high", "critical"}),
		MinConfidence:  70,
		NotifyInApp:    true,
		MaxPerDay:      5,
		MaxPerWeek:     10,
		CooldownHours:  1,
		CreatedAt:      f.clock.Now(),
		UpdatedAt:      f.clock.Now(),
	}
	if mutate != nil {
		mutate(rule)
	}
	if err := f.db.Create(rule).Error; err != nil {
		t.Fatalf("save rule: %v", err)
	}
	return rule
}

func (f *engineFixture) evaluate(t *testing.T, mutate func(*eventdomain.EvaluateRequest)) eventdomain.EvaluateResponse {
	t.Helper()
	req := eventdomain.EvaluateRequest{
		PetID:       enginePet.String(),
		AnomalyType: "weight_loss",
		Severity:    "high",
		Confidence:  85,
	}
	if mutate != nil {
		mutate(&req)
	}
	resp, err := f.engine.Evaluate(f.ctx(), req)
	assert.NoError(t, err)
	return resp
}

func TestEvaluateFiresMatchingRule(t *testing.T) {
	f := newEngineFixture(t)
	rule := f.saveRule(t, nil)

	resp := f.evaluate(t, func(req *eventdomain.EvaluateRequest) {
		req.Recommendations = []string{"Schedule a vet visit"}
	})

	assert.Equal(t, 1, resp.TotalTriggered)
	if assert.Len(t, resp.TriggeredAlerts, 1) {
		alert := resp.TriggeredAlerts[0]
		assert.Equal(t, rule.ID.String(), alert.RuleID)
		assert.Equal(t, "Weight watch", alert.RuleName)
		assert.Equal(t, notifdomain.PriorityHigh, alert.Priority)

		n, err := f.notifs.GetByID(f.ctx(), alert.NotificationID)
		assert.NoError(t, err)
		assert.Equal(t, notifdomain.TypeHealthAlert, n.Type)
		assert.Equal(t, rule.ID, n.RuleID)
		assert.Equal(t, enginePet, n.PetID)
		assert.Equal(t, "/pets/"+enginePet.String()+"/health", n.ActionURL)
		assert.Contains(t, n.Message, "Schedule a vet visit")
		// The structured payload carries the recommendations too.
		assert.Equal(t, []any{"Schedule a vet visit"}, n.Data["recommendations"])
		assert.Equal(t, "weight_loss", n.Data["anomaly_type"])
		assert.True(t, n.Channels.Data()[notifdomain.ChannelInApp].Sent)
	}
}

func TestExpandActionURL(t *testing.T) {
	assert.Equal(t, "/pets/4242/health", expandActionURL("/pets/{petId}/health", enginePet))
	// A template without the placeholder is used verbatim instead of
	// producing formatting garbage.
	assert.Equal(t, "https://app.pawsentry.io/alerts", expandActionURL("https://app.pawsentry.io/alerts", enginePet))
	assert.Equal(t, "", expandActionURL("", enginePet))
}

func TestEvaluateIgnoresNonMatchingEvent(t *testing.T) {
	f := newEngineFixture(t)
	f.saveRule(t, nil)

	resp := f.evaluate(t, func(req *eventdomain.EvaluateRequest) {
		req.Severity = "low"
	})
	assert.Equal(t, 0, resp.TotalTriggered)
	assert.Empty(t, resp.Suppressed)

	count, err := f.notifs.UnreadCount(f.ctx())
	assert.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestEvaluateSuppressesWithinCooldown(t *testing.T) {
	f := newEngineFixture(t)
	rule := f.saveRule(t, nil)

	first := f.evaluate(t, nil)
	assert.Equal(t, 1, first.TotalTriggered)

	f.clock.Advance(10 * time.Minute)
	second := f.evaluate(t, nil)
	assert.Equal(t, 0, second.TotalTriggered)
	if assert.Len(t, second.Suppressed, 1) {
		assert.Equal(t, rule.ID.String(), second.Suppressed[0].RuleID)
		assert.Equal(t, ratelimit.ReasonCooldown, second.Suppressed[0].Reason)
	}

	count, err := f.notifs.UnreadCount(f.ctx())
	assert.NoError(t, err)
	assert.Equal(t, int64(1), count)

	// After the cooldown the same rule fires again.
	f.clock.Advance(time.Hour)
	third := f.evaluate(t, nil)
	assert.Equal(t, 1, third.TotalTriggered)
}

func TestEvaluateRunsEveryMatchingRule(t *testing.T) {
	f := newEngineFixture(t)
	f.saveRule(t, nil)
	f.saveRule(t, func(r *ruledomain.AlertRule) {
		r.Name = "Any anomaly"
		r.AnomalyTypes = nil
		r.SeverityLevels = nil
		r.MinConfidence = 0
	})
	// A rule for a different pet stays out of the evaluation.
	f.saveRule(t, func(r *ruledomain.AlertRule) {
		r.PetID = snowflake.ID(999)
	})

	resp := f.evaluate(t, nil)
	assert.Equal(t, 2, resp.TotalTriggered)
}

func TestEvaluatePriorityFollowsSeverity(t *testing.T) {
	f := newEngineFixture(t)
	f.saveRule(t, func(r *ruledomain.AlertRule) {
		r.SeverityLevels = nil
		r.MinConfidence = 0
		r.CooldownHours = 0
	})

	resp := f.evaluate(t, func(req *eventdomain.EvaluateRequest) {
		req.Severity = "low"
	})
	assert.Equal(t, notifdomain.PriorityLow, resp.TriggeredAlerts[0].Priority)

	resp = f.evaluate(t, func(req *eventdomain.EvaluateRequest) {
		req.Severity = "critical"
	})
	assert.Equal(t, notifdomain.PriorityHigh, resp.TriggeredAlerts[0].Priority)
}

func TestEvaluateRejectsBadInput(t *testing.T) {
	f := newEngineFixture(t)

	_, err := f.engine.Evaluate(f.ctx(), eventdomain.EvaluateRequest{
		PetID: "not-a-snowflake", AnomalyType: "weight_loss", Severity: "high",
	})
	assert.ErrorIs(t, err, eventdomain.ErrInvalidID)

	_, err = f.engine.Evaluate(f.ctx(), eventdomain.EvaluateRequest{
		PetID: enginePet.String(), AnomalyType: "  ", Severity: "high",
	})
	assert.ErrorIs(t, err, eventdomain.ErrInvalidInput)

	_, err = f.engine.Evaluate(f.ctx(), eventdomain.EvaluateRequest{
		PetID: enginePet.String(), AnomalyType: "weight_loss", Severity: "high", Confidence: 101,
	})
	assert.ErrorIs(t, err, eventdomain.ErrInvalidInput)

	_, err = f.engine.Evaluate(context.Background(), eventdomain.EvaluateRequest{
		PetID: enginePet.String(), AnomalyType: "weight_loss", Severity: "high",
	})
	assert.ErrorIs(t, err, eventdomain.ErrInvalidOwner)
}

func TestTriggerCheckReplaysLatestEvent(t *testing.T) {
	f := newEngineFixture(t)
	f.saveRule(t, func(r *ruledomain.AlertRule) {
		r.CooldownHours = 0
	})

	_, err := f.engine.TriggerCheck(f.ctx(), enginePet.String())
	assert.ErrorIs(t, err, eventdomain.ErrNoEvents)

	evalResp := f.evaluate(t, nil)
	assert.Equal(t, 1, evalResp.TotalTriggered)

	f.clock.Advance(time.Minute)
	resp, err := f.engine.TriggerCheck(f.ctx(), enginePet.String())
	assert.NoError(t, err)
	assert.Equal(t, 1, resp.TotalTriggered)
	assert.Equal(t, evalResp.EventID, resp.EventID)

	count, err := f.notifs.UnreadCount(f.ctx())
	assert.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestTriggerCheckScopedToOwner(t *testing.T) {
	f := newEngineFixture(t)
	f.saveRule(t, nil)
	f.evaluate(t, nil)

	otherCtx := ownerctx.WithOwnerID(context.Background(), snowflake.ID(9999))
	_, err := f.engine.TriggerCheck(otherCtx, enginePet.String())
	assert.ErrorIs(t, err, eventdomain.ErrNoEvents)
}
