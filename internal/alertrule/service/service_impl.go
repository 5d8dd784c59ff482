package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/pawsentry/pawsentry/internal/alertrule/domain"
	"github.com/pawsentry/pawsentry/internal/clock"
	"github.com/pawsentry/pawsentry/internal/ownerctx"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("alertrule.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRuleRequest) (domain.AlertRule, error) {
	ownerID, ok := ownerctx.OwnerIDFromContext(ctx)
	if !ok || ownerID == 0 {
		return domain.AlertRule{}, domain.ErrInvalidOwner
	}

	petID, err := parseID(req.PetID)
	if err != nil {
		return domain.AlertRule{}, err
	}

	fields := validateRulePayload(req.Name, req.MinConfidence, req.MaxPerDay, req.MaxPerWeek, req.CooldownHours)
	if len(fields) > 0 {
		return domain.AlertRule{}, &domain.ValidationError{Fields: fields}
	}

	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}
	notifyInApp := true
	if req.NotifyInApp != nil {
		notifyInApp = *req.NotifyInApp
	}

	now := s.clock.Now()
	rule := domain.AlertRule{
		ID:             s.genID.Generate(),
		OwnerID:        ownerID,
		PetID:          petID,
		Name:           strings.TrimSpace(req.Name),
		Description:    strings.TrimSpace(req.Description),
		IsActive:       isActive,
		AnomalyTypes:   normalizeSet(req.AnomalyTypes),
		SeverityLevels: normalizeSet(req.SeverityLevels),
		MinConfidence:  req.MinConfidence,
		NotifyInApp:    notifyInApp,
		NotifyEmail:    req.NotifyEmail,
		NotifyPush:     req.NotifyPush,
		MaxPerDay:      req.MaxPerDay,
		MaxPerWeek:     req.MaxPerWeek,
		CooldownHours:  req.CooldownHours,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.repo.Insert(ctx, s.db, &rule); err != nil {
		return domain.AlertRule{}, err
	}

	s.log.Info("alert rule created",
		zap.String("rule_id", rule.ID.String()),
		zap.String("pet_id", rule.PetID.String()),
	)

	return rule, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRuleRequest) ([]domain.AlertRule, error) {
	ownerID, ok := ownerctx.OwnerIDFromContext(ctx)
	if !ok || ownerID == 0 {
		return nil, domain.ErrInvalidOwner
	}

	filter := domain.ListRuleFilter{}
	if strings.TrimSpace(req.PetID) != "" {
		petID, err := parseID(req.PetID)
		if err != nil {
			return nil, err
		}
		filter.PetID = petID
	}

	items, err := s.repo.List(ctx, s.db, ownerID, filter)
	if err != nil {
		return nil, err
	}

	rules := make([]domain.AlertRule, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		rules = append(rules, *item)
	}
	return rules, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.AlertRule, error) {
	ownerID, ok := ownerctx.OwnerIDFromContext(ctx)
	if !ok || ownerID == 0 {
		return domain.AlertRule{}, domain.ErrInvalidOwner
	}

	ruleID, err := parseID(id)
	if err != nil {
		return domain.AlertRule{}, err
	}

	item, err := s.repo.FindByID(ctx, s.db, ownerID, ruleID)
	if err != nil {
		return domain.AlertRule{}, err
	}
	if item == nil {
		return domain.AlertRule{}, domain.ErrNotFound
	}
	return *item, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateRuleRequest) (domain.AlertRule, error) {
	ownerID, ok := ownerctx.OwnerIDFromContext(ctx)
	if !ok || ownerID == 0 {
		return domain.AlertRule{}, domain.ErrInvalidOwner
	}

	ruleID, err := parseID(req.ID)
	if err != nil {
		return domain.AlertRule{}, err
	}

	item, err := s.repo.FindByID(ctx, s.db, ownerID, ruleID)
	if err != nil {
		return domain.AlertRule{}, err
	}
	if item == nil {
		return domain.AlertRule{}, domain.ErrNotFound
	}

	rule := *item
	applyUpdate(&rule, req)

	fields := validateRulePayload(rule.Name, rule.MinConfidence, rule.MaxPerDay, rule.MaxPerWeek, rule.CooldownHours)
	if len(fields) > 0 {
		return domain.AlertRule{}, &domain.ValidationError{Fields: fields}
	}

	rule.UpdatedAt = s.clock.Now()
	if err := s.repo.Update(ctx, s.db, &rule); err != nil {
		return domain.AlertRule{}, err
	}
	return rule, nil
}

// Delete removes a rule, or deactivates it when historical notifications
// still reference it.
func (s *Service) Delete(ctx context.Context, id string) (domain.DeleteResult, error) {
	ownerID, ok := ownerctx.OwnerIDFromContext(ctx)
	if !ok || ownerID == 0 {
		return domain.DeleteResult{}, domain.ErrInvalidOwner
	}

	ruleID, err := parseID(id)
	if err != nil {
		return domain.DeleteResult{}, err
	}

	item, err := s.repo.FindByID(ctx, s.db, ownerID, ruleID)
	if err != nil {
		return domain.DeleteResult{}, err
	}
	if item == nil {
		return domain.DeleteResult{}, domain.ErrNotFound
	}

	refs, err := s.repo.CountNotificationRefs(ctx, s.db, ruleID)
	if err != nil {
		return domain.DeleteResult{}, err
	}

	if refs > 0 {
		rule := *item
		rule.IsActive = false
		rule.UpdatedAt = s.clock.Now()
		if err := s.repo.Update(ctx, s.db, &rule); err != nil {
			return domain.DeleteResult{}, err
		}
		s.log.Info("alert rule deactivated instead of deleted",
			zap.String("rule_id", rule.ID.String()),
			zap.Int64("notification_refs", refs),
		)
		return domain.DeleteResult{Deactivated: true}, nil
	}

	if err := s.repo.Delete(ctx, s.db, ownerID, ruleID); err != nil {
		return domain.DeleteResult{}, err
	}
	return domain.DeleteResult{Deleted: true}, nil
}

func applyUpdate(rule *domain.AlertRule, req domain.UpdateRuleRequest) {
	if req.Name != nil {
		rule.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		rule.Description = strings.TrimSpace(*req.Description)
	}
	if req.IsActive != nil {
		rule.IsActive = *req.IsActive
	}
	if req.AnomalyTypes != nil {
		rule.AnomalyTypes = normalizeSet(*req.AnomalyTypes)
	}
	if req.SeverityLevels != nil {
		rule.SeverityLevels = normalizeSet(*req.SeverityLevels)
	}
	if req.MinConfidence != nil {
		rule.MinConfidence = *req.MinConfidence
	}
	if req.NotifyInApp != nil {
		rule.NotifyInApp = *req.NotifyInApp
	}
	if req.NotifyEmail != nil {
		rule.NotifyEmail = *req.NotifyEmail
	}
	if req.NotifyPush != nil {
		rule.NotifyPush = *req.NotifyPush
	}
	if req.MaxPerDay != nil {
		rule.MaxPerDay = *req.MaxPerDay
	}
	if req.MaxPerWeek != nil {
		rule.MaxPerWeek = *req.MaxPerWeek
	}
	if req.CooldownHours != nil {
		rule.CooldownHours = *req.CooldownHours
	}
}

func validateRulePayload(name string, minConfidence, maxPerDay, maxPerWeek, cooldownHours int) []domain.FieldError {
	var fields []domain.FieldError
	if strings.TrimSpace(name) == "" {
		fields = append(fields, domain.FieldError{Field: "name", Message: "must not be empty"})
	}
	if minConfidence < 0 || minConfidence > 100 {
		fields = append(fields, domain.FieldError{Field: "min_confidence", Message: "must be between 0 and 100"})
	}
	if maxPerDay < 0 {
		fields = append(fields, domain.FieldError{Field: "max_per_day", Message: "must not be negative"})
	}
	if maxPerWeek < 0 {
		fields = append(fields, domain.FieldError{Field: "max_per_week", Message: "must not be negative"})
	}
	if cooldownHours < 0 {
		fields = append(fields, domain.FieldError{Field: "cooldown_hours", Message: "must not be negative"})
	}
	return fields
}

func normalizeSet(values []string) datatypes.JSONSlice[string] {
	out := make([]string, 0, len(values))
	seen := map[string]struct{}{}
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return datatypes.NewJSONSlice(out)
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
