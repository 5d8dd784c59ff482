package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/pawsentry/pawsentry/internal/alertrule/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, rule *domain.AlertRule) error {
	return db.WithContext(ctx).Create(rule).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, ownerID, id snowflake.ID) (*domain.AlertRule, error) {
	var rule domain.AlertRule
	err := db.WithContext(ctx).
		Where("owner_id = ? AND id = ?", ownerID, id).
		First(&rule).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &rule, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, ownerID snowflake.ID, filter domain.ListRuleFilter) ([]*domain.AlertRule, error) {
	var rules []*domain.AlertRule
	stmt := db.WithContext(ctx).
		Model(&domain.AlertRule{}).
		Where("owner_id = ?", ownerID)
	if filter.PetID != 0 {
		stmt = stmt.Where("pet_id = ?", filter.PetID)
	}
	err := stmt.
		Order("created_at desc, id desc").
		Find(&rules).Error
	if err != nil {
		return nil, err
	}
	return rules, nil
}

func (r *repo) ListActiveByPet(ctx context.Context, db *gorm.DB, petID snowflake.ID) ([]*domain.AlertRule, error) {
	var rules []*domain.AlertRule
	err := db.WithContext(ctx).
		Model(&domain.AlertRule{}).
		Where("pet_id = ? AND is_active = ?", petID, true).
		Order("id asc").
		Find(&rules).Error
	if err != nil {
		return nil, err
	}
	return rules, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, rule *domain.AlertRule) error {
	return db.WithContext(ctx).Save(rule).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, ownerID, id snowflake.ID) error {
	return db.WithContext(ctx).
		Where("owner_id = ? AND id = ?", ownerID, id).
		Delete(&domain.AlertRule{}).Error
}

func (r *repo) CountNotificationRefs(ctx context.Context, db *gorm.DB, id snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).
		Table("notifications").
		Where("rule_id = ?", id).
		Count(&count).Error
	return count, err
}
