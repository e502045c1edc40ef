package repository

import (
	"context"
	"errors"

	"ffarena/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrMatchNotFound  = errors.New("比赛不存在")
	ErrMatchCompleted = errors.New("比赛已结束")
	ErrAlreadyJoined  = errors.New("已报名该比赛")
)

type MatchRepository struct {
	db *gorm.DB
}

func NewMatchRepository(db *gorm.DB) *MatchRepository {
	return &MatchRepository{db: db}
}

func (r *MatchRepository) conn(tx *gorm.DB) *gorm.DB {
	if tx == nil {
		return r.db
	}
	return tx
}

// Create 新建比赛，报名席位单独维护，不随比赛写入
func (r *MatchRepository) Create(ctx context.Context, match *model.Match) error {
	return r.db.WithContext(ctx).Create(match).Error
}

// Update 编辑比赛元数据，不会改动报名席位、房间信息与结束标记，调用方需先确认比赛存在
func (r *MatchRepository) Update(ctx context.Context, match *model.Match) error {
	result := r.db.WithContext(ctx).
		Model(&model.Match{}).
		Where("id = ?", match.ID).
		Select("title", "start_time", "type", "map", "version", "entry_fee", "prize_pool",
			"prize_per_kill", "total_slots", "rules", "image_url", "is_point_system",
			"points_per_kill", "total_matches_count", "position_points").
		Updates(match)
	return result.Error
}

func (r *MatchRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("match_id = ?", id).Delete(&model.MatchSlot{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", id).Delete(&model.Match{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrMatchNotFound
		}
		return nil
	})
}

func (r *MatchRepository) GetByID(ctx context.Context, tx *gorm.DB, id string) (*model.Match, error) {
	var match model.Match
	err := r.conn(tx).WithContext(ctx).Where("id = ?", id).First(&match).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}

	slots, err := r.Slots(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	match.JoinedSlots = slots
	return &match, nil
}

// GetByIDForUpdate 事务内锁定比赛行
func (r *MatchRepository) GetByIDForUpdate(ctx context.Context, tx *gorm.DB, id string) (*model.Match, error) {
	var match model.Match
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&match).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}

	slots, err := r.Slots(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	match.JoinedSlots = slots
	return &match, nil
}

// Slots 按报名顺序返回账户ID
func (r *MatchRepository) Slots(ctx context.Context, tx *gorm.DB, matchID string) ([]string, error) {
	ids := []string{}
	err := r.conn(tx).WithContext(ctx).
		Model(&model.MatchSlot{}).
		Where("match_id = ?", matchID).
		Order("seq ASC").
		Pluck("user_id", &ids).Error
	return ids, err
}

// AddSlot 在比赛末尾追加一个报名席位，seq = 当前人数 + 1
func (r *MatchRepository) AddSlot(ctx context.Context, tx *gorm.DB, matchID, userID string, seq int) error {
	slot := &model.MatchSlot{MatchID: matchID, UserID: userID, Seq: seq}
	result := r.conn(tx).WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "match_id"}, {Name: "user_id"}},
			DoNothing: true,
		}).
		Create(slot)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrAlreadyJoined
	}
	return nil
}

// MarkCompleted 比赛只能被结束一次
func (r *MatchRepository) MarkCompleted(ctx context.Context, tx *gorm.DB, id string) error {
	result := r.conn(tx).WithContext(ctx).
		Model(&model.Match{}).
		Where("id = ? AND is_completed = ?", id, false).
		Update("is_completed", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrMatchCompleted
	}
	return nil
}

// UpdateRoom 发布房间号和密码，已结束的比赛不再更新
func (r *MatchRepository) UpdateRoom(ctx context.Context, id, roomID, roomPass string) error {
	result := r.db.WithContext(ctx).
		Model(&model.Match{}).
		Where("id = ? AND is_completed = ?", id, false).
		Updates(map[string]interface{}{
			"room_id":   roomID,
			"room_pass": roomPass,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		// 值未变化时 MySQL 也返回 0 行，需回读区分
		match, err := r.GetByID(ctx, nil, id)
		if err != nil {
			return err
		}
		if match.IsCompleted {
			return ErrMatchCompleted
		}
	}
	return nil
}

// MatchFilter 列表筛选条件，字段为空表示不限
type MatchFilter struct {
	Completed *bool
	JoinedBy  string
}

// List 按开赛时间倒序列出比赛，并批量填充报名席位
func (r *MatchRepository) List(ctx context.Context, filter MatchFilter) ([]*model.Match, error) {
	query := r.db.WithContext(ctx).Model(&model.Match{})
	if filter.Completed != nil {
		query = query.Where("is_completed = ?", *filter.Completed)
	}
	if filter.JoinedBy != "" {
		query = query.Where("id IN (?)",
			r.db.Model(&model.MatchSlot{}).Select("match_id").Where("user_id = ?", filter.JoinedBy))
	}

	var matches []*model.Match
	if err := query.Order("start_time DESC").Order("id DESC").Find(&matches).Error; err != nil {
		return nil, err
	}
	if err := r.fillSlots(ctx, matches); err != nil {
		return nil, err
	}
	return matches, nil
}

func (r *MatchRepository) fillSlots(ctx context.Context, matches []*model.Match) error {
	if len(matches) == 0 {
		return nil
	}

	ids := make([]string, 0, len(matches))
	byID := make(map[string]*model.Match, len(matches))
	for _, m := range matches {
		ids = append(ids, m.ID)
		m.JoinedSlots = []string{}
		byID[m.ID] = m
	}

	var slots []*model.MatchSlot
	err := r.db.WithContext(ctx).
		Where("match_id IN ?", ids).
		Order("match_id ASC").
		Order("seq ASC").
		Find(&slots).Error
	if err != nil {
		return err
	}
	for _, s := range slots {
		m := byID[s.MatchID]
		m.JoinedSlots = append(m.JoinedSlots, s.UserID)
	}
	return nil
}

func (r *MatchRepository) CountByCompleted(ctx context.Context, completed bool) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&model.Match{}).Where("is_completed = ?", completed).Count(&total).Error
	return total, err
}
