package service

import (
	"context"
	"fmt"
	"log"

	"ffarena/internal/config"
	"ffarena/internal/event"
	"ffarena/internal/model"
	"ffarena/internal/repository"

	"gorm.io/gorm"
)

type SettingsService struct {
	db           *gorm.DB
	settingsRepo *repository.SettingsRepository
	notifier     *changeNotifier
}

func NewSettingsService(db *gorm.DB, cfg *config.Config, bus *event.Bus) *SettingsService {
	return &SettingsService{
		db:           db,
		settingsRepo: repository.NewSettingsRepository(db),
		notifier:     newChangeNotifier(db, bus, cfg),
	}
}

func (s *SettingsService) Get(ctx context.Context) (*model.SiteSettings, error) {
	return s.settingsRepo.Get(ctx)
}

// Update 整体覆盖站点配置
func (s *SettingsService) Update(ctx context.Context, settings *model.SiteSettings) (*model.SiteSettings, error) {
	if settings.MinWithdrawAmount < 0 {
		return nil, validationErrorf(KindInvalidArgument, "最低提现金额不能为负数")
	}

	evt := event.New(event.KindSettings, "update")
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.settingsRepo.Save(ctx, tx, settings); err != nil {
			return fmt.Errorf("保存站点配置失败: %w", err)
		}
		return s.notifier.stage(ctx, tx, evt)
	})
	if err != nil {
		return nil, err
	}

	log.Printf("站点配置已更新: withdrawEnabled=%v, minWithdraw=%d, maintenance=%v",
		settings.IsWithdrawEnabled, settings.MinWithdrawAmount, settings.IsMaintenance)
	s.notifier.publish(evt)
	return s.settingsRepo.Get(ctx)
}
