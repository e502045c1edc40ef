package model

import (
	"time"
)

const (
	BucketDeposit = "DEPOSIT"
	BucketWinning = "WINNING"
)

const (
	FlowTypeDepositCredit   = "DEPOSIT_CREDIT"   // 充值审核通过
	FlowTypeEntryDebit      = "ENTRY_DEBIT"      // 余额报名扣款
	FlowTypeWithdrawReserve = "WITHDRAW_RESERVE" // 提现申请时预扣
	FlowTypeWithdrawRestore = "WITHDRAW_RESTORE" // 提现驳回退回（策略开启时）
	FlowTypePrizeCredit     = "PRIZE_CREDIT"     // 比赛结算奖金
)

// AccountFlow 账户余额流水
//
// 每次余额桶变动追加一条，只追加不修改，
// 某个桶全部流水金额之和应等于该桶当前余额，对账任务以此为依据。
type AccountFlow struct {
	ID            int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	FlowNo        string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"flow_no"`
	UserID        string    `gorm:"type:varchar(128);index;not null" json:"user_id"`
	RefNo         string    `gorm:"type:varchar(64);index;not null" json:"ref_no"` // 关联交易号或比赛ID
	Bucket        string    `gorm:"type:varchar(16);not null" json:"bucket"`
	Amount        int64     `gorm:"not null" json:"amount"` // 正数入账，负数出账
	Type          string    `gorm:"type:varchar(32);not null" json:"type"`
	BalanceBefore int64     `gorm:"not null" json:"balance_before"`
	BalanceAfter  int64     `gorm:"not null" json:"balance_after"`
	Remark        string    `gorm:"type:varchar(256)" json:"remark"`
	CreatedAt     time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

func (AccountFlow) TableName() string {
	return "account_flow"
}
