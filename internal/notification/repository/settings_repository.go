package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/pawsentry/pawsentry/internal/notification/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type settingsRepo struct{}

func ProvideSettings() domain.SettingsRepository {
	return &settingsRepo{}
}

func (r *settingsRepo) FindSettings(ctx context.Context, db *gorm.DB, ownerID snowflake.ID) (*domain.NotificationSettings, error) {
	var settings domain.NotificationSettings
	err := db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		First(&settings).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &settings, nil
}

func (r *settingsRepo) SaveSettings(ctx context.Context, db *gorm.DB, settings *domain.NotificationSettings) error {
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "owner_id"}},
			UpdateAll: true,
		}).
		Create(settings).Error
}
