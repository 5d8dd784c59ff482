package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, rule *AlertRule) error
	FindByID(ctx context.Context, db *gorm.DB, ownerID, id snowflake.ID) (*AlertRule, error)
	List(ctx context.Context, db *gorm.DB, ownerID snowflake.ID, filter ListRuleFilter) ([]*AlertRule, error)
	ListActiveByPet(ctx context.Context, db *gorm.DB, petID snowflake.ID) ([]*AlertRule, error)
	Update(ctx context.Context, db *gorm.DB, rule *AlertRule) error
	Delete(ctx context.Context, db *gorm.DB, ownerID, id snowflake.ID) error
	CountNotificationRefs(ctx context.Context, db *gorm.DB, id snowflake.ID) (int64, error)
}

type ListRuleFilter struct {
	PetID snowflake.ID
}
