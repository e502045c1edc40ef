package handler

import (
	"ffarena/internal/repository"
	"ffarena/internal/service"
	"ffarena/pkg/response"

	"github.com/gin-gonic/gin"
)

// ============================================================
// 钱包
// ============================================================

// ListMyTransactions 我的交易记录，最新的在前
// GET /api/v1/wallet/transactions?page=1&page_size=20
func (h *Handler) ListMyTransactions(c *gin.Context) {
	page, pageSize := pageParams(c)
	filter := repository.TransactionFilter{
		UserID: currentAccount(c).ID,
		Status: c.Query("status"),
		Type:   c.Query("type"),
	}

	list, total, err := h.ledgerService.ListTransactions(c.Request.Context(), filter, page, pageSize)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Page(c, list, total, page, pageSize)
}

type DepositRequest struct {
	Method        string `json:"method" binding:"required"`
	Amount        int64  `json:"amount" binding:"required,gt=0"`
	TransactionID string `json:"transaction_id"`
}

// Deposit 提交充值申请
// POST /api/v1/wallet/deposit
func (h *Handler) Deposit(c *gin.Context) {
	var req DepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	trans, err := h.ledgerService.RequestDeposit(c.Request.Context(), &service.DepositRequest{
		AccountID: currentAccount(c).ID,
		Method:    req.Method,
		Amount:    req.Amount,
		Reference: req.TransactionID,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, trans)
}

type WithdrawRequest struct {
	Method        string `json:"method" binding:"required"`
	Amount        int64  `json:"amount" binding:"required,gt=0"`
	TargetAccount string `json:"target_account"`
}

// Withdraw 提交提现申请，奖金余额立即预扣
// POST /api/v1/wallet/withdraw
func (h *Handler) Withdraw(c *gin.Context) {
	var req WithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	trans, err := h.ledgerService.RequestWithdraw(c.Request.Context(), &service.WithdrawRequest{
		AccountID:     currentAccount(c).ID,
		Method:        req.Method,
		Amount:        req.Amount,
		PayoutAccount: req.TargetAccount,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, trans)
}
