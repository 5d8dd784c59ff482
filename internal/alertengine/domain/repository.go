package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	InsertEvent(ctx context.Context, db *gorm.DB, event *AnalysisEvent) error
	LatestEventByPet(ctx context.Context, db *gorm.DB, ownerID, petID snowflake.ID) (*AnalysisEvent, error)
}
