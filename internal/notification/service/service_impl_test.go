package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/pawsentry/pawsentry/internal/clock"
	"github.com/pawsentry/pawsentry/internal/notification/domain"
	"github.com/pawsentry/pawsentry/internal/notification/repository"
	"github.com/pawsentry/pawsentry/internal/ownerctx"
	"github.com/pawsentry/pawsentry/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testOwner = snowflake.ID(7001)

func newTestService(t *testing.T, fake *clock.FakeClock) domain.Service {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&domain.Notification{}, &domain.NotificationSettings{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}

	return New(Params{
		DB:           conn,
		Log:          zap.NewNop(),
		GenID:        node,
		Clock:        fake,
		Repo:         repository.Provide(),
		SettingsRepo: repository.ProvideSettings(),
	})
}

func ownerCtx() context.Context {
	return ownerctx.WithOwnerID(context.Background(), testOwner)
}

func createNotification(t *testing.T, svc domain.Service, req domain.CreateNotificationRequest) domain.Notification {
	t.Helper()
	if req.Title == "" {
		req.Title = "Health alert"
	}
	n, err := svc.Create(ownerCtx(), req)
	assert.NoError(t, err)
	return n
}

func TestCreateAppliesDefaults(t *testing.T) {
	fake := clock.NewFakeClock(time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC))
	svc := newTestService(t, fake)

	n := createNotification(t, svc, domain.CreateNotificationRequest{
		Title:   "  Weight drop detected  ",
		Message: "Bella lost 8% body weight",
	})

	assert.Equal(t, "Weight drop detected", n.Title)
	assert.Equal(t, domain.StatusUnread, n.Status)
	assert.Equal(t, domain.PriorityMedium, n.Priority)
	assert.Equal(t, domain.TypeSystem, n.Type)
	assert.Equal(t, testOwner, n.OwnerID)
	assert.Nil(t, n.ReadAt)

	got, err := svc.GetByID(ownerCtx(), n.ID.String())
	assert.NoError(t, err)
	assert.Equal(t, n.ID, got.ID)
}

func TestCreateRejectsBadInput(t *testing.T) {
	fake := clock.NewFakeClock(time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC))
	svc := newTestService(t, fake)

	_, err := svc.Create(ownerCtx(), domain.CreateNotificationRequest{Title: "   "})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.Create(ownerCtx(), domain.CreateNotificationRequest{Title: "x", Priority: "urgent"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.Create(context.Background(), domain.CreateNotificationRequest{Title: "x"})
	assert.ErrorIs(t, err, domain.ErrInvalidOwner)
}

func TestGetByIDScopedToOwner(t *testing.T) {
	fake := clock.NewFakeClock(time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC))
	svc := newTestService(t, fake)

	n := createNotification(t, svc, domain.CreateNotificationRequest{})

	otherCtx := ownerctx.WithOwnerID(context.Background(), snowflake.ID(9999))
	_, err := svc.GetByID(otherCtx, n.ID.String())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListFiltersAndPaginates(t *testing.T) {
	fake := clock.NewFakeClock(time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC))
	svc := newTestService(t, fake)

	for i := 0; i < 5; i++ {
		fake.Advance(time.Minute)
		createNotification(t, svc, domain.CreateNotificationRequest{Type: domain.TypeHealthAlert})
	}
	read := createNotification(t, svc, domain.CreateNotificationRequest{})
	_, err := svc.MarkRead(ownerCtx(), read.ID.String())
	assert.NoError(t, err)

	resp, err := svc.List(ownerCtx(), domain.ListNotificationsRequest{
		Status:     domain.StatusUnread,
		Pagination: pagination.Pagination{Page: 1, Limit: 3},
	})
	assert.NoError(t, err)
	assert.Len(t, resp.Items, 3)
	assert.Equal(t, int64(5), resp.PageInfo.Total)
	assert.Equal(t, 2, resp.PageInfo.TotalPages)

	resp, err = svc.List(ownerCtx(), domain.ListNotificationsRequest{
		Type:       domain.TypeHealthAlert,
		Pagination: pagination.Pagination{Page: 1, Limit: 10},
	})
	assert.NoError(t, err)
	assert.Len(t, resp.Items, 5)

	_, err = svc.List(ownerCtx(), domain.ListNotificationsRequest{Status: "bogus"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestMarkReadIsIdempotent(t *testing.T) {
	fake := clock.NewFakeClock(time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC))
	svc := newTestService(t, fake)

	n := createNotification(t, svc, domain.CreateNotificationRequest{})

	fake.Advance(time.Hour)
	first, err := svc.MarkRead(ownerCtx(), n.ID.String())
	assert.NoError(t, err)
	assert.Equal(t, domain.StatusRead, first.Status)
	if assert.NotNil(t, first.ReadAt) {
		assert.Equal(t, fake.Now(), first.ReadAt.UTC())
	}

	fake.Advance(time.Hour)
	second, err := svc.MarkRead(ownerCtx(), n.ID.String())
	assert.NoError(t, err)
	if assert.NotNil(t, second.ReadAt) {
		// The original read time survives repeated calls.
		assert.Equal(t, first.ReadAt.UTC(), second.ReadAt.UTC())
	}
}

func TestMarkManyReadSkipsMissingAndArchived(t *testing.T) {
	fake := clock.NewFakeClock(time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC))
	svc := newTestService(t, fake)

	a := createNotification(t, svc, domain.CreateNotificationRequest{})
	b := createNotification(t, svc, domain.CreateNotificationRequest{})
	archived := createNotification(t, svc, domain.CreateNotificationRequest{})
	_, err := svc.Archive(ownerCtx(), archived.ID.String())
	assert.NoError(t, err)

	count, err := svc.MarkManyRead(ownerCtx(), domain.MarkManyReadRequest{
		IDs: []string{a.ID.String(), b.ID.String(), archived.ID.String(), "999999999", "not-an-id"},
	})
	assert.NoError(t, err)
	assert.Equal(t, int64(2), count)

	got, err := svc.GetByID(ownerCtx(), archived.ID.String())
	assert.NoError(t, err)
	assert.Equal(t, domain.StatusArchived, got.Status)
}

func TestArchiveAndDelete(t *testing.T) {
	fake := clock.NewFakeClock(time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC))
	svc := newTestService(t, fake)

	n := createNotification(t, svc, domain.CreateNotificationRequest{})

	archived, err := svc.Archive(ownerCtx(), n.ID.String())
	assert.NoError(t, err)
	assert.Equal(t, domain.StatusArchived, archived.Status)

	again, err := svc.Archive(ownerCtx(), n.ID.String())
	assert.NoError(t, err)
	assert.Equal(t, domain.StatusArchived, again.Status)

	assert.NoError(t, svc.Delete(ownerCtx(), n.ID.String()))
	_, err = svc.GetByID(ownerCtx(), n.ID.String())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	err = svc.Delete(ownerCtx(), n.ID.String())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUnreadCount(t *testing.T) {
	fake := clock.NewFakeClock(time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC))
	svc := newTestService(t, fake)

	for i := 0; i < 3; i++ {
		createNotification(t, svc, domain.CreateNotificationRequest{})
	}
	read := createNotification(t, svc, domain.CreateNotificationRequest{})
	_, err := svc.MarkRead(ownerCtx(), read.ID.String())
	assert.NoError(t, err)

	count, err := svc.UnreadCount(ownerCtx())
	assert.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestStatisticsAreConsistent(t *testing.T) {
	fake := clock.NewFakeClock(time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC))
	svc := newTestService(t, fake)

	createNotification(t, svc, domain.CreateNotificationRequest{Type: domain.TypeHealthAlert, Priority: domain.PriorityHigh, Category: "weight"})
	createNotification(t, svc, domain.CreateNotificationRequest{Type: domain.TypeHealthAlert, Priority: domain.PriorityLow, Category: "activity"})
	read := createNotification(t, svc, domain.CreateNotificationRequest{})
	_, err := svc.MarkRead(ownerCtx(), read.ID.String())
	assert.NoError(t, err)
	archived := createNotification(t, svc, domain.CreateNotificationRequest{})
	_, err = svc.Archive(ownerCtx(), archived.ID.String())
	assert.NoError(t, err)

	stats, err := svc.Statistics(ownerCtx(), 7)
	assert.NoError(t, err)

	assert.Equal(t, int64(4), stats.Total)
	assert.Equal(t, stats.Total, stats.Unread+stats.Read+stats.Archived)
	assert.Equal(t, int64(2), stats.ByType[domain.TypeHealthAlert])
	assert.Equal(t, int64(1), stats.ByPriority[domain.PriorityHigh])
	assert.Equal(t, int64(1), stats.ByCategory["weight"])

	// One bucket per day in the window, zero-filled, oldest first.
	assert.Len(t, stats.RecentActivity, 7)
	assert.Equal(t, "2026-03-04", stats.RecentActivity[0].Date)
	assert.Equal(t, "2026-03-10", stats.RecentActivity[6].Date)

	var activityTotal int64
	for _, bucket := range stats.RecentActivity {
		activityTotal += bucket.Count
	}
	assert.Equal(t, int64(4), activityTotal)
	assert.Equal(t, int64(4), stats.RecentActivity[6].Count)
}

func TestStatisticsScopedToWindow(t *testing.T) {
	fake := clock.NewFakeClock(time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC))
	svc := newTestService(t, fake)

	createNotification(t, svc, domain.CreateNotificationRequest{Type: domain.TypeHealthAlert, Category: "weight"})

	// 40 days later the old notification falls out of a 7-day window
	// for counts and distributions, not just the activity series.
	fake.Advance(40 * 24 * time.Hour)
	stats, err := svc.Statistics(ownerCtx(), 7)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), stats.Total)
	assert.Equal(t, int64(0), stats.Unread)
	assert.Empty(t, stats.ByType)
	assert.Empty(t, stats.ByCategory)

	createNotification(t, svc, domain.CreateNotificationRequest{Type: domain.TypeHealthAlert})
	stats, err = svc.Statistics(ownerCtx(), 7)
	assert.NoError(t, err)
	assert.Equal(t, int64(1), stats.Total)
	assert.Equal(t, int64(1), stats.ByType[domain.TypeHealthAlert])
}

func TestStatisticsDefaultWindow(t *testing.T) {
	fake := clock.NewFakeClock(time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC))
	svc := newTestService(t, fake)

	stats, err := svc.Statistics(ownerCtx(), 0)
	assert.NoError(t, err)
	assert.Len(t, stats.RecentActivity, 30)
	assert.Equal(t, int64(0), stats.Total)
}

func TestSettingsDefaultsAndUpsert(t *testing.T) {
	fake := clock.NewFakeClock(time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC))
	svc := newTestService(t, fake)

	settings, err := svc.GetSettings(ownerCtx())
	assert.NoError(t, err)
	assert.True(t, settings.InAppEnabled)
	assert.False(t, settings.EmailEnabled)
	assert.Equal(t, domain.EmailFrequencyImmediate, settings.EmailFrequency)

	enable := true
	daily := domain.EmailFrequencyDaily
	updated, err := svc.UpdateSettings(ownerCtx(), domain.UpdateSettingsRequest{
		EmailEnabled:   &enable,
		EmailFrequency: &daily,
	})
	assert.NoError(t, err)
	assert.True(t, updated.EmailEnabled)
	assert.Equal(t, domain.EmailFrequencyDaily, updated.EmailFrequency)
	assert.True(t, updated.InAppEnabled)

	// Second save patches the stored row.
	disable := false
	updated, err = svc.UpdateSettings(ownerCtx(), domain.UpdateSettingsRequest{InAppEnabled: &disable})
	assert.NoError(t, err)
	assert.False(t, updated.InAppEnabled)
	assert.True(t, updated.EmailEnabled)

	stored, err := svc.GetSettings(ownerCtx())
	assert.NoError(t, err)
	assert.False(t, stored.InAppEnabled)
	assert.Equal(t, domain.EmailFrequencyDaily, stored.EmailFrequency)

	bogus := "hourly"
	_, err = svc.UpdateSettings(ownerCtx(), domain.UpdateSettingsRequest{EmailFrequency: &bogus})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
