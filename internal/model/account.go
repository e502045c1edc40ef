package model

import (
	"time"
)

// Account 用户钱包账户
// 余额分为两个桶：充值余额（已核实的充值）和奖金余额（比赛奖金，唯一可提现的资金）
type Account struct {
	ID                 string    `gorm:"primaryKey;type:varchar(128)" json:"id"` // 身份提供方签发的用户标识
	NumericID          int       `gorm:"index;not null" json:"numeric_id"`       // 6 位数字ID，首次保存时生成
	Name               string    `gorm:"type:varchar(128)" json:"name"`
	Email              string    `gorm:"type:varchar(128)" json:"email"`
	Phone              string    `gorm:"type:varchar(32)" json:"phone"`
	AvatarURL          string    `gorm:"type:varchar(512)" json:"avatar_url,omitempty"`
	DepositBalance     int64     `gorm:"not null;default:0" json:"deposit_balance"`
	WinningBalance     int64     `gorm:"not null;default:0" json:"winning_balance"`
	TotalKills         int64     `gorm:"not null;default:0" json:"total_kills"`
	TotalEarnings      int64     `gorm:"not null;default:0;index" json:"total_earnings"`
	TotalMatchesJoined int64     `gorm:"not null;default:0" json:"total_matches_joined"`
	IsAdmin            bool      `gorm:"not null;default:false" json:"is_admin"`
	Version            int       `gorm:"not null;default:0" json:"-"` // 乐观锁版本号
	CreatedAt          time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Account) TableName() string {
	return "account"
}

// TotalBalance 可用于报名的总余额
func (a *Account) TotalBalance() int64 {
	return a.DepositBalance + a.WinningBalance
}

// SplitEntryFee 计算报名费在两个余额桶之间的扣款拆分
//
// 规则：先扣充值余额，充值余额不足时清零，差额从奖金余额扣除。
// 返回 ok=false 表示总余额不足，此时不应扣款。
func SplitEntryFee(deposit, winning, fee int64) (fromDeposit, fromWinning int64, ok bool) {
	if fee < 0 || deposit+winning < fee {
		return 0, 0, false
	}
	if deposit >= fee {
		return fee, 0, true
	}
	return deposit, fee - deposit, true
}
