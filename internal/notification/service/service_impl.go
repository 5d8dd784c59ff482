package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/pawsentry/pawsentry/internal/clock"
	"github.com/pawsentry/pawsentry/internal/notification/domain"
	"github.com/pawsentry/pawsentry/internal/observability/metrics"
	"github.com/pawsentry/pawsentry/internal/ownerctx"
	"github.com/pawsentry/pawsentry/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	defaultStatisticsDays = 30
	maxStatisticsDays     = 365
)

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	Clock        clock.Clock
	Repo         domain.Repository
	SettingsRepo domain.SettingsRepository
	Metrics      *metrics.Metrics `optional:"true"`
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	clock        clock.Clock
	repo         domain.Repository
	settingsRepo domain.SettingsRepository
	metrics      *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("notification.service"),
		genID:        p.GenID,
		clock:        p.Clock,
		repo:         p.Repo,
		settingsRepo: p.SettingsRepo,
		metrics:      p.Metrics,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateNotificationRequest) (domain.Notification, error) {
	ownerID, ok := ownerctx.OwnerIDFromContext(ctx)
	if !ok || ownerID == 0 {
		return domain.Notification{}, domain.ErrInvalidOwner
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		return domain.Notification{}, domain.ErrInvalidInput
	}

	priority := strings.ToLower(strings.TrimSpace(req.Priority))
	if priority == "" {
		priority = domain.PriorityMedium
	}
	if !domain.ValidPriority(priority) {
		return domain.Notification{}, domain.ErrInvalidInput
	}

	notifType := strings.TrimSpace(req.Type)
	if notifType == "" {
		notifType = domain.TypeSystem
	}

	n := domain.Notification{
		ID:        s.genID.Generate(),
		OwnerID:   ownerID,
		Type:      notifType,
		Category:  strings.TrimSpace(req.Category),
		Title:     title,
		Message:   strings.TrimSpace(req.Message),
		Priority:  priority,
		Status:    domain.StatusUnread,
		Data:      datatypes.JSONMap(req.Data),
		Channels:  datatypes.NewJSONType(domain.ChannelStates{}),
		ActionURL: strings.TrimSpace(req.ActionURL),
		CreatedAt: s.clock.Now(),
	}

	if strings.TrimSpace(req.PetID) != "" {
		petID, err := parseID(req.PetID)
		if err != nil {
			return domain.Notification{}, err
		}
		n.PetID = petID
	}
	if strings.TrimSpace(req.RuleID) != "" {
		ruleID, err := parseID(req.RuleID)
		if err != nil {
			return domain.Notification{}, err
		}
		n.RuleID = ruleID
	}

	if err := s.repo.Insert(ctx, s.db, &n); err != nil {
		return domain.Notification{}, err
	}

	s.metrics.RecordNotificationCreated(ctx, n.Type, n.Category)
	s.log.Info("notification created",
		zap.String("notification_id", n.ID.String()),
		zap.String("type", n.Type),
		zap.String("priority", n.Priority),
	)
	return n, nil
}

func (s *Service) List(ctx context.Context, req domain.ListNotificationsRequest) (domain.ListNotificationsResponse, error) {
	ownerID, ok := ownerctx.OwnerIDFromContext(ctx)
	if !ok || ownerID == 0 {
		return domain.ListNotificationsResponse{}, domain.ErrInvalidOwner
	}

	filter := domain.ListFilter{
		Type: strings.TrimSpace(req.Type),
	}
	if req.UnreadOnly {
		filter.Status = domain.StatusUnread
	} else if status := strings.ToLower(strings.TrimSpace(req.Status)); status != "" {
		if !domain.ValidStatus(status) {
			return domain.ListNotificationsResponse{}, domain.ErrInvalidInput
		}
		filter.Status = status
	}
	if strings.TrimSpace(req.PetID) != "" {
		petID, err := parseID(req.PetID)
		if err != nil {
			return domain.ListNotificationsResponse{}, err
		}
		filter.PetID = petID
	}

	page := req.Pagination.Normalize()
	items, total, err := s.repo.List(ctx, s.db, ownerID, filter, page)
	if err != nil {
		return domain.ListNotificationsResponse{}, err
	}

	out := make([]domain.Notification, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		out = append(out, *item)
	}
	return domain.ListNotificationsResponse{
		Items:    out,
		PageInfo: pagination.BuildPageInfo(page, total),
	}, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.Notification, error) {
	ownerID, ok := ownerctx.OwnerIDFromContext(ctx)
	if !ok || ownerID == 0 {
		return domain.Notification{}, domain.ErrInvalidOwner
	}

	notifID, err := parseID(id)
	if err != nil {
		return domain.Notification{}, err
	}

	item, err := s.repo.FindByID(ctx, s.db, ownerID, notifID)
	if err != nil {
		return domain.Notification{}, err
	}
	if item == nil {
		return domain.Notification{}, domain.ErrNotFound
	}
	return *item, nil
}

// MarkRead is idempotent; marking an already-read notification keeps the
// original read time.
func (s *Service) MarkRead(ctx context.Context, id string) (domain.Notification, error) {
	ownerID, ok := ownerctx.OwnerIDFromContext(ctx)
	if !ok || ownerID == 0 {
		return domain.Notification{}, domain.ErrInvalidOwner
	}

	notifID, err := parseID(id)
	if err != nil {
		return domain.Notification{}, err
	}

	item, err := s.repo.FindByID(ctx, s.db, ownerID, notifID)
	if err != nil {
		return domain.Notification{}, err
	}
	if item == nil {
		return domain.Notification{}, domain.ErrNotFound
	}
	if item.Status != domain.StatusUnread {
		return *item, nil
	}

	now := s.clock.Now()
	item.Status = domain.StatusRead
	item.ReadAt = &now
	if err := s.repo.Update(ctx, s.db, item); err != nil {
		return domain.Notification{}, err
	}
	return *item, nil
}

// MarkManyRead returns how many rows actually changed. Unknown and
// already-read ids are skipped, not errors.
func (s *Service) MarkManyRead(ctx context.Context, req domain.MarkManyReadRequest) (int64, error) {
	ownerID, ok := ownerctx.OwnerIDFromContext(ctx)
	if !ok || ownerID == 0 {
		return 0, domain.ErrInvalidOwner
	}

	ids := make([]snowflake.ID, 0, len(req.IDs))
	for _, raw := range req.IDs {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		id, err := parseID(raw)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	return s.repo.MarkManyRead(ctx, s.db, ownerID, ids, s.clock.Now())
}

func (s *Service) Archive(ctx context.Context, id string) (domain.Notification, error) {
	ownerID, ok := ownerctx.OwnerIDFromContext(ctx)
	if !ok || ownerID == 0 {
		return domain.Notification{}, domain.ErrInvalidOwner
	}

	notifID, err := parseID(id)
	if err != nil {
		return domain.Notification{}, err
	}

	item, err := s.repo.FindByID(ctx, s.db, ownerID, notifID)
	if err != nil {
		return domain.Notification{}, err
	}
	if item == nil {
		return domain.Notification{}, domain.ErrNotFound
	}
	if item.Status == domain.StatusArchived {
		return *item, nil
	}

	item.Status = domain.StatusArchived
	if err := s.repo.Update(ctx, s.db, item); err != nil {
		return domain.Notification{}, err
	}
	return *item, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	ownerID, ok := ownerctx.OwnerIDFromContext(ctx)
	if !ok || ownerID == 0 {
		return domain.ErrInvalidOwner
	}

	notifID, err := parseID(id)
	if err != nil {
		return err
	}

	item, err := s.repo.FindByID(ctx, s.db, ownerID, notifID)
	if err != nil {
		return err
	}
	if item == nil {
		return domain.ErrNotFound
	}
	return s.repo.Delete(ctx, s.db, ownerID, notifID)
}

func (s *Service) UnreadCount(ctx context.Context) (int64, error) {
	ownerID, ok := ownerctx.OwnerIDFromContext(ctx)
	if !ok || ownerID == 0 {
		return 0, domain.ErrInvalidOwner
	}
	return s.repo.UnreadCount(ctx, s.db, ownerID)
}

func (s *Service) Statistics(ctx context.Context, days int) (domain.Statistics, error) {
	ownerID, ok := ownerctx.OwnerIDFromContext(ctx)
	if !ok || ownerID == 0 {
		return domain.Statistics{}, domain.ErrInvalidOwner
	}

	if days <= 0 {
		days = defaultStatisticsDays
	}
	if days > maxStatisticsDays {
		days = maxStatisticsDays
	}

	now := s.clock.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	since := today.AddDate(0, 0, -(days - 1))

	// Every figure covers the same trailing window, not the full history.
	counts, err := s.repo.CountByStatus(ctx, s.db, ownerID, since)
	if err != nil {
		return domain.Statistics{}, err
	}

	stats := domain.Statistics{
		Total:    counts.Total,
		Unread:   counts.Unread,
		Read:     counts.Read,
		Archived: counts.Archived,
	}

	for column, dest := range map[string]*map[string]int64{
		"type":     &stats.ByType,
		"category": &stats.ByCategory,
		"priority": &stats.ByPriority,
	} {
		grouped, err := s.repo.GroupCounts(ctx, s.db, ownerID, column, since)
		if err != nil {
			return domain.Statistics{}, err
		}
		*dest = grouped
	}

	daily, err := s.repo.DailyCounts(ctx, s.db, ownerID, since)
	if err != nil {
		return domain.Statistics{}, err
	}

	// Every day in the window gets a bucket, zero or not, oldest first.
	stats.RecentActivity = make([]domain.ActivityBucket, 0, days)
	for d := 0; d < days; d++ {
		date := since.AddDate(0, 0, d).Format("2006-01-02")
		stats.RecentActivity = append(stats.RecentActivity, domain.ActivityBucket{
			Date:  date,
			Count: daily[date],
		})
	}

	return stats, nil
}

func (s *Service) GetSettings(ctx context.Context) (domain.NotificationSettings, error) {
	ownerID, ok := ownerctx.OwnerIDFromContext(ctx)
	if !ok || ownerID == 0 {
		return domain.NotificationSettings{}, domain.ErrInvalidOwner
	}

	settings, err := s.settingsRepo.FindSettings(ctx, s.db, ownerID)
	if err != nil {
		return domain.NotificationSettings{}, err
	}
	if settings == nil {
		return domain.DefaultSettings(ownerID), nil
	}
	return *settings, nil
}

func (s *Service) UpdateSettings(ctx context.Context, req domain.UpdateSettingsRequest) (domain.NotificationSettings, error) {
	ownerID, ok := ownerctx.OwnerIDFromContext(ctx)
	if !ok || ownerID == 0 {
		return domain.NotificationSettings{}, domain.ErrInvalidOwner
	}

	current, err := s.GetSettings(ctx)
	if err != nil {
		return domain.NotificationSettings{}, err
	}

	if req.InAppEnabled != nil {
		current.InAppEnabled = *req.InAppEnabled
	}
	if req.EmailEnabled != nil {
		current.EmailEnabled = *req.EmailEnabled
	}
	if req.EmailAddress != nil {
		current.EmailAddress = strings.TrimSpace(*req.EmailAddress)
	}
	if req.PushEnabled != nil {
		current.PushEnabled = *req.PushEnabled
	}
	if req.EmailFrequency != nil {
		freq := strings.ToLower(strings.TrimSpace(*req.EmailFrequency))
		if !domain.ValidEmailFrequency(freq) {
			return domain.NotificationSettings{}, domain.ErrInvalidInput
		}
		current.EmailFrequency = freq
	}

	now := s.clock.Now()
	if current.CreatedAt.IsZero() {
		current.CreatedAt = now
	}
	current.UpdatedAt = now

	if err := s.settingsRepo.SaveSettings(ctx, s.db, &current); err != nil {
		return domain.NotificationSettings{}, err
	}
	return current, nil
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
