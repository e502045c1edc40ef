package repository

import (
	"context"
	"errors"

	"ffarena/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrAccountNotFound  = errors.New("账户不存在")
	ErrBalanceNotEnough = errors.New("余额不足")
	ErrOptimisticLock   = errors.New("乐观锁冲突，请重试")
)

type AccountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) conn(tx *gorm.DB) *gorm.DB {
	if tx == nil {
		return r.db
	}
	return tx
}

func (r *AccountRepository) GetByID(ctx context.Context, tx *gorm.DB, id string) (*model.Account, error) {
	var account model.Account
	err := r.conn(tx).WithContext(ctx).Where("id = ?", id).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

// GetByIDForUpdate 事务内加行锁读取（sqlite 无行锁，方言会忽略该子句）
func (r *AccountRepository) GetByIDForUpdate(ctx context.Context, tx *gorm.DB, id string) (*model.Account, error) {
	var account model.Account
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

// GetOrCreate 按身份标识幂等创建账户
//
// 并发首登时两边都可能走到插入，ON CONFLICT DO NOTHING 保证只有第一条生效，
// 之后统一回读，所以数字ID永远是第一次保存时生成的那个。
func (r *AccountRepository) GetOrCreate(ctx context.Context, account *model.Account) (*model.Account, error) {
	existing, err := r.GetByID(ctx, nil, account.ID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrAccountNotFound) {
		return nil, err
	}

	err = r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoNothing: true,
		}).
		Create(account).Error
	if err != nil {
		return nil, err
	}

	return r.GetByID(ctx, nil, account.ID)
}

// UpdateBalances 以乐观锁写入两个余额桶的新值
func (r *AccountRepository) UpdateBalances(ctx context.Context, tx *gorm.DB, id string, deposit, winning int64, version int) error {
	if deposit < 0 || winning < 0 {
		return ErrBalanceNotEnough
	}

	result := r.conn(tx).WithContext(ctx).
		Model(&model.Account{}).
		Where("id = ? AND version = ?", id, version).
		Updates(map[string]interface{}{
			"deposit_balance": deposit,
			"winning_balance": winning,
			"version":         gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		if _, err := r.GetByID(ctx, tx, id); err != nil {
			return err
		}
		return ErrOptimisticLock
	}
	return nil
}

// IncreaseDeposit 充值入账
func (r *AccountRepository) IncreaseDeposit(ctx context.Context, tx *gorm.DB, id string, amount int64) error {
	return r.increase(ctx, tx, id, map[string]interface{}{
		"deposit_balance": gorm.Expr("deposit_balance + ?", amount),
	})
}

// IncreaseWinning 奖金余额入账（提现驳回退回时使用）
func (r *AccountRepository) IncreaseWinning(ctx context.Context, tx *gorm.DB, id string, amount int64) error {
	return r.increase(ctx, tx, id, map[string]interface{}{
		"winning_balance": gorm.Expr("winning_balance + ?", amount),
	})
}

// ApplyMatchResult 结算单个玩家的比赛成绩
func (r *AccountRepository) ApplyMatchResult(ctx context.Context, tx *gorm.DB, id string, kills, earnings int64) error {
	return r.increase(ctx, tx, id, map[string]interface{}{
		"total_kills":          gorm.Expr("total_kills + ?", kills),
		"total_earnings":       gorm.Expr("total_earnings + ?", earnings),
		"winning_balance":      gorm.Expr("winning_balance + ?", earnings),
		"total_matches_joined": gorm.Expr("total_matches_joined + 1"),
	})
}

func (r *AccountRepository) increase(ctx context.Context, tx *gorm.DB, id string, updates map[string]interface{}) error {
	updates["version"] = gorm.Expr("version + 1")

	result := r.conn(tx).WithContext(ctx).
		Model(&model.Account{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func (r *AccountRepository) UpdateProfile(ctx context.Context, id, name, phone, avatarURL string) error {
	result := r.db.WithContext(ctx).
		Model(&model.Account{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"name":       name,
			"phone":      phone,
			"avatar_url": avatarURL,
		})
	if result.Error != nil {
		return result.Error
	}
	return r.ensureAffected(ctx, id, result.RowsAffected)
}

func (r *AccountRepository) SetAdmin(ctx context.Context, id string, isAdmin bool) error {
	result := r.db.WithContext(ctx).
		Model(&model.Account{}).
		Where("id = ?", id).
		Update("is_admin", isAdmin)
	if result.Error != nil {
		return result.Error
	}
	return r.ensureAffected(ctx, id, result.RowsAffected)
}

// ensureAffected 值未变化时 MySQL 返回 0 行，回读确认账户是否存在
func (r *AccountRepository) ensureAffected(ctx context.Context, id string, rows int64) error {
	if rows > 0 {
		return nil
	}
	_, err := r.GetByID(ctx, nil, id)
	return err
}

func (r *AccountRepository) List(ctx context.Context, page, pageSize int) ([]*model.Account, int64, error) {
	var accounts []*model.Account
	var total int64

	query := r.db.WithContext(ctx).Model(&model.Account{})
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&accounts).Error
	return accounts, total, err
}

// ListAfter 按主键游标分批读取，对账任务使用
func (r *AccountRepository) ListAfter(ctx context.Context, afterID string, limit int) ([]*model.Account, error) {
	var accounts []*model.Account
	err := r.db.WithContext(ctx).
		Where("id > ?", afterID).
		Order("id ASC").
		Limit(limit).
		Find(&accounts).Error
	return accounts, err
}

func (r *AccountRepository) ListByIDs(ctx context.Context, ids []string) ([]*model.Account, error) {
	var accounts []*model.Account
	if len(ids) == 0 {
		return accounts, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&accounts).Error
	return accounts, err
}

// Leaderboard 总奖金降序，奖金相同按击杀降序
func (r *AccountRepository) Leaderboard(ctx context.Context, limit int) ([]*model.Account, error) {
	var accounts []*model.Account
	err := r.db.WithContext(ctx).
		Order("total_earnings DESC").
		Order("total_kills DESC").
		Order("id ASC").
		Limit(limit).
		Find(&accounts).Error
	return accounts, err
}

func (r *AccountRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&model.Account{}).Count(&total).Error
	return total, err
}
