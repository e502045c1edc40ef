package service

import (
	"ffarena/internal/config"
	"ffarena/internal/model"
)

// ============================================================================
// 权限与业务策略
// ============================================================================

const (
	CapabilitySourceNone    = ""
	CapabilitySourceAccount = "account" // 账户 is_admin 标记
	CapabilitySourceSession = "session" // 本次会话通过管理员口令提权
	CapabilitySourceBoth    = "both"
)

// Capability 一次会话最终生效的权限，只在会话建立时计算一次
type Capability struct {
	Admin  bool   `json:"admin"`
	Source string `json:"source,omitempty"`
}

// ResolveCapability 合并账户管理员标记和会话级系统管理员标记，任一成立即为管理员
func ResolveCapability(accountIsAdmin, sessionSystemAdmin bool) Capability {
	switch {
	case accountIsAdmin && sessionSystemAdmin:
		return Capability{Admin: true, Source: CapabilitySourceBoth}
	case accountIsAdmin:
		return Capability{Admin: true, Source: CapabilitySourceAccount}
	case sessionSystemAdmin:
		return Capability{Admin: true, Source: CapabilitySourceSession}
	}
	return Capability{}
}

// Policy 审核相关的行为开关
//
// 默认值保持现有行为：提现驳回不退回预扣金额，比赛直付审核通过不自动报名。
// 如需改变，只改配置，不动调用方。
type Policy struct {
	RestoreWithdrawOnReject bool
	JoinOnPaymentApproval   bool
	EnforceCapacity         bool
}

func NewPolicy(cfg config.PolicyConfig) Policy {
	return Policy{
		RestoreWithdrawOnReject: cfg.RestoreWithdrawOnReject,
		JoinOnPaymentApproval:   cfg.JoinOnPaymentApproval,
		EnforceCapacity:         cfg.EnforceCapacity,
	}
}

// WithdrawRejectRefund 驳回交易时需要退回奖金余额的金额
func (p Policy) WithdrawRejectRefund(t *model.Transaction) int64 {
	if t.Type != model.TransactionTypeWithdraw || !p.RestoreWithdrawOnReject {
		return 0
	}
	return t.Amount
}

// JoinsOnApproval 审核通过比赛直付时是否把用户加入报名席位
func (p Policy) JoinsOnApproval(t *model.Transaction) bool {
	return p.JoinOnPaymentApproval && t.Type == model.TransactionTypeMatchJoinPayment && t.MatchID != ""
}
