package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/pawsentry/pawsentry/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListFilter struct {
	Status string
	Type   string
	PetID  snowflake.ID
}

type StatusCounts struct {
	Total    int64
	Unread   int64
	Read     int64
	Archived int64
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, n *Notification) error
	FindByID(ctx context.Context, db *gorm.DB, ownerID, id snowflake.ID) (*Notification, error)
	List(ctx context.Context, db *gorm.DB, ownerID snowflake.ID, filter ListFilter, page pagination.Pagination) ([]*Notification, int64, error)
	Update(ctx context.Context, db *gorm.DB, n *Notification) error
	MarkManyRead(ctx context.Context, db *gorm.DB, ownerID snowflake.ID, ids []snowflake.ID, readAt time.Time) (int64, error)
	Delete(ctx context.Context, db *gorm.DB, ownerID, id snowflake.ID) error
	UnreadCount(ctx context.Context, db *gorm.DB, ownerID snowflake.ID) (int64, error)

	CountByStatus(ctx context.Context, db *gorm.DB, ownerID snowflake.ID, since time.Time) (StatusCounts, error)
	GroupCounts(ctx context.Context, db *gorm.DB, ownerID snowflake.ID, column string, since time.Time) (map[string]int64, error)
	DailyCounts(ctx context.Context, db *gorm.DB, ownerID snowflake.ID, since time.Time) (map[string]int64, error)
}

type SettingsRepository interface {
	FindSettings(ctx context.Context, db *gorm.DB, ownerID snowflake.ID) (*NotificationSettings, error)
	SaveSettings(ctx context.Context, db *gorm.DB, settings *NotificationSettings) error
}
