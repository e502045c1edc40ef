package repository

import (
	"context"

	"ffarena/internal/model"

	"gorm.io/gorm"
)

type FlowRepository struct {
	db *gorm.DB
}

func NewFlowRepository(db *gorm.DB) *FlowRepository {
	return &FlowRepository{db: db}
}

func (r *FlowRepository) Create(ctx context.Context, tx *gorm.DB, flows ...*model.AccountFlow) error {
	if len(flows) == 0 {
		return nil
	}
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(flows).Error
}

func (r *FlowRepository) ListByUserID(ctx context.Context, userID string, page, pageSize int) ([]*model.AccountFlow, int64, error) {
	var flows []*model.AccountFlow
	var total int64

	query := r.db.WithContext(ctx).Model(&model.AccountFlow{}).Where("user_id = ?", userID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Order("id DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&flows).Error
	return flows, total, err
}

// BucketTotals 按余额桶汇总某用户的流水金额
func (r *FlowRepository) BucketTotals(ctx context.Context, userID string) (map[string]int64, error) {
	var rows []struct {
		Bucket string
		Total  int64
	}
	err := r.db.WithContext(ctx).
		Model(&model.AccountFlow{}).
		Select("bucket, COALESCE(SUM(amount), 0) AS total").
		Where("user_id = ?", userID).
		Group("bucket").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	totals := make(map[string]int64, len(rows))
	for _, row := range rows {
		totals[row.Bucket] = row.Total
	}
	return totals, nil
}
