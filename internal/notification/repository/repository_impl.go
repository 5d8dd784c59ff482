package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/pawsentry/pawsentry/internal/notification/domain"
	"github.com/pawsentry/pawsentry/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, n *domain.Notification) error {
	return db.WithContext(ctx).Create(n).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, ownerID, id snowflake.ID) (*domain.Notification, error) {
	var n domain.Notification
	err := db.WithContext(ctx).
		Where("owner_id = ? AND id = ?", ownerID, id).
		First(&n).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &n, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, ownerID snowflake.ID, filter domain.ListFilter, page pagination.Pagination) ([]*domain.Notification, int64, error) {
	stmt := db.WithContext(ctx).
		Model(&domain.Notification{}).
		Where("owner_id = ?", ownerID)

	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if filter.Type != "" {
		stmt = stmt.Where("type = ?", filter.Type)
	}
	if filter.PetID != 0 {
		stmt = stmt.Where("pet_id = ?", filter.PetID)
	}

	var total int64
	if err := stmt.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var items []*domain.Notification
	err := page.Apply(stmt).
		Order("created_at desc, id desc").
		Find(&items).Error
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, n *domain.Notification) error {
	return db.WithContext(ctx).Save(n).Error
}

func (r *repo) MarkManyRead(ctx context.Context, db *gorm.DB, ownerID snowflake.ID, ids []snowflake.ID, readAt time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	// Already-read and archived rows are left alone so the operation is
	// idempotent and never resurrects archived notifications.
	result := db.WithContext(ctx).
		Model(&domain.Notification{}).
		Where("owner_id = ? AND id IN ? AND status = ?", ownerID, ids, domain.StatusUnread).
		Updates(map[string]any{
			"status":  domain.StatusRead,
			"read_at": readAt,
		})
	return result.RowsAffected, result.Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, ownerID, id snowflake.ID) error {
	return db.WithContext(ctx).
		Where("owner_id = ? AND id = ?", ownerID, id).
		Delete(&domain.Notification{}).Error
}

func (r *repo) UnreadCount(ctx context.Context, db *gorm.DB, ownerID snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.Notification{}).
		Where("owner_id = ? AND status = ?", ownerID, domain.StatusUnread).
		Count(&count).Error
	return count, err
}

func (r *repo) CountByStatus(ctx context.Context, db *gorm.DB, ownerID snowflake.ID, since time.Time) (domain.StatusCounts, error) {
	grouped, err := r.GroupCounts(ctx, db, ownerID, "status", since)
	if err != nil {
		return domain.StatusCounts{}, err
	}
	counts := domain.StatusCounts{
		Unread:   grouped[domain.StatusUnread],
		Read:     grouped[domain.StatusRead],
		Archived: grouped[domain.StatusArchived],
	}
	counts.Total = counts.Unread + counts.Read + counts.Archived
	return counts, nil
}

func (r *repo) GroupCounts(ctx context.Context, db *gorm.DB, ownerID snowflake.ID, column string, since time.Time) (map[string]int64, error) {
	var rows []struct {
		Label string
		Count int64
	}
	err := db.WithContext(ctx).
		Model(&domain.Notification{}).
		Select(column+" as label, COUNT(*) as count").
		Where("owner_id = ? AND created_at >= ?", ownerID, since).
		Group(column).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		if row.Label == "" {
			continue
		}
		out[row.Label] = row.Count
	}
	return out, nil
}

func (r *repo) DailyCounts(ctx context.Context, db *gorm.DB, ownerID snowflake.ID, since time.Time) (map[string]int64, error) {
	var rows []struct {
		Day   string
		Count int64
	}
	err := db.WithContext(ctx).
		Model(&domain.Notification{}).
		Select("DATE(created_at) as day, COUNT(*) as count").
		Where("owner_id = ? AND created_at >= ?", ownerID, since).
		Group("DATE(created_at)").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.Day] = row.Count
	}
	return out, nil
}
