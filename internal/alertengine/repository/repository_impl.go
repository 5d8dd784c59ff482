package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/pawsentry/pawsentry/internal/alertengine/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertEvent(ctx context.Context, db *gorm.DB, event *domain.AnalysisEvent) error {
	return db.WithContext(ctx).Create(event).Error
}

func (r *repo) LatestEventByPet(ctx context.Context, db *gorm.DB, ownerID, petID snowflake.ID) (*domain.AnalysisEvent, error) {
	var event domain.AnalysisEvent
	err := db.WithContext(ctx).
		Where("owner_id = ? AND pet_id = ?", ownerID, petID).
		Order("occurred_at desc, id desc").
		First(&event).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &event, nil
}
