package model

import (
	"time"
)

// ============================================================================
// 交易类型与状态
// ============================================================================

const (
	TransactionTypeDeposit          = "Deposit"
	TransactionTypeWithdraw         = "Withdraw"
	TransactionTypeMatchJoinPayment = "Match_Join_Payment"
)

const (
	TransactionStatusPending   = "Pending"
	TransactionStatusCompleted = "Completed"
	TransactionStatusRejected  = "Rejected"
)

const (
	MethodBKash  = "bKash"
	MethodNagad  = "Nagad"
	MethodRocket = "Rocket"
)

// 充值与比赛直付的收款方标记
const (
	TargetDepositUplink = "STB-UPLINK"
	TargetMatchHQ       = "STB-HQ"
)

// ValidStatusTransitions 交易只能从 Pending 进入终态，且只能进入一次
var ValidStatusTransitions = map[string][]string{
	TransactionStatusPending: {TransactionStatusCompleted, TransactionStatusRejected},
}

func CanTransitionTo(currentStatus, targetStatus string) bool {
	for _, s := range ValidStatusTransitions[currentStatus] {
		if s == targetStatus {
			return true
		}
	}
	return false
}

func IsValidMethod(method string) bool {
	switch method {
	case MethodBKash, MethodNagad, MethodRocket:
		return true
	}
	return false
}

// ============================================================================
// 钱包交易实体
// ============================================================================

// Transaction 钱包交易申请（充值、提现、比赛直付），等待管理员人工核实
type Transaction struct {
	ID            string     `gorm:"primaryKey;type:varchar(64)" json:"id"`
	UserID        string     `gorm:"type:varchar(128);index;not null" json:"user_id"`
	UserNumericID int        `gorm:"not null" json:"user_numeric_id"`
	Amount        int64      `gorm:"not null" json:"amount"`
	Method        string     `gorm:"type:varchar(16);not null" json:"method"`
	TargetAccount string     `gorm:"type:varchar(64)" json:"target_account"`  // 提现为用户收款号，充值/直付为平台标记
	Reference     string     `gorm:"type:varchar(128)" json:"transaction_id"` // 用户填写的外部流水号
	Type          string     `gorm:"type:varchar(32);index;not null" json:"type"`
	MatchID       string     `gorm:"type:varchar(64);index" json:"match_id,omitempty"`
	MatchTitle    string     `gorm:"type:varchar(128)" json:"match_title,omitempty"`
	Status        string     `gorm:"type:varchar(16);index;not null" json:"status"`
	CreatedAt     time.Time  `gorm:"autoCreateTime;index" json:"timestamp"`
	ResolvedAt    *time.Time `json:"resolved_at,omitempty"`
}

func (Transaction) TableName() string {
	return "wallet_transaction"
}

func (t *Transaction) IsPending() bool {
	return t.Status == TransactionStatusPending
}
