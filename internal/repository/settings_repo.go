package repository

import (
	"context"
	"errors"

	"ffarena/internal/model"

	"gorm.io/gorm"
)

type SettingsRepository struct {
	db *gorm.DB
}

func NewSettingsRepository(db *gorm.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Get 读取站点配置，尚未保存过时返回默认配置
func (r *SettingsRepository) Get(ctx context.Context) (*model.SiteSettings, error) {
	var settings model.SiteSettings
	err := r.db.WithContext(ctx).Where("id = ?", model.SiteSettingsID).First(&settings).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.DefaultSiteSettings(), nil
		}
		return nil, err
	}
	return &settings, nil
}

// Save 整体覆盖单例配置
func (r *SettingsRepository) Save(ctx context.Context, tx *gorm.DB, settings *model.SiteSettings) error {
	if tx == nil {
		tx = r.db
	}
	settings.ID = model.SiteSettingsID
	return tx.WithContext(ctx).Save(settings).Error
}
