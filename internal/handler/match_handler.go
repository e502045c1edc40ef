package handler

import (
	"ffarena/internal/model"
	"ffarena/internal/service"
	"ffarena/pkg/response"

	"github.com/gin-gonic/gin"
)

// ListMatches 比赛列表
// GET /api/v1/matches?status=upcoming|completed
func (h *Handler) ListMatches(c *gin.Context) {
	matches, err := h.matchService.ListMatches(c.Request.Context(), c.Query("status"))
	if err != nil {
		writeError(c, err)
		return
	}
	for _, m := range matches {
		hideRoom(m)
	}
	response.Success(c, matches)
}

// hideRoom 公开接口不返回房间号和密码
func hideRoom(m *model.Match) {
	m.RoomID, m.RoomPass = "", ""
}

// GetMatch 比赛详情
// GET /api/v1/matches/:id
//
// 房间号和密码只对已报名用户与管理员可见，匿名访问一律隐藏。
func (h *Handler) GetMatch(c *gin.Context) {
	match, err := h.matchService.GetMatch(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	hideRoom(match)
	response.Success(c, match)
}

// ListMyMatches 我报名的比赛，包含房间信息
// GET /api/v1/me/matches
func (h *Handler) ListMyMatches(c *gin.Context) {
	matches, err := h.matchService.ListJoined(c.Request.Context(), currentAccount(c).ID)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, matches)
}

// JoinMatch 钱包余额报名
// POST /api/v1/matches/:id/join
func (h *Handler) JoinMatch(c *gin.Context) {
	match, account, err := h.matchService.JoinWithWallet(c.Request.Context(), c.Param("id"), currentAccount(c).ID)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, gin.H{
		"match":   match,
		"account": account,
	})
}

type DirectPaymentRequest struct {
	Method        string `json:"method" binding:"required"`
	TransactionID string `json:"transaction_id"`
}

// PayMatch 线下直付报名费，提交后等待管理员核实
// POST /api/v1/matches/:id/pay
func (h *Handler) PayMatch(c *gin.Context) {
	var req DirectPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	trans, err := h.matchService.RequestDirectPayment(c.Request.Context(), &service.DirectPaymentRequest{
		MatchID:   c.Param("id"),
		AccountID: currentAccount(c).ID,
		Method:    req.Method,
		Reference: req.TransactionID,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, trans)
}
