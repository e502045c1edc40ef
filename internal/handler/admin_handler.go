package handler

import (
	"ffarena/internal/model"
	"ffarena/internal/repository"
	"ffarena/internal/service"
	"ffarena/pkg/response"

	"github.com/gin-gonic/gin"
)

// ============================================================
// 管理后台
// ============================================================

// Dashboard 后台首页统计
// GET /api/v1/admin/dashboard
func (h *Handler) Dashboard(c *gin.Context) {
	stats, err := h.dashboardService.Stats(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, stats)
}

// UpdateSettings 整体覆盖站点配置
// PUT /api/v1/admin/settings
func (h *Handler) UpdateSettings(c *gin.Context) {
	var req model.SiteSettings
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	settings, err := h.settingsService.Update(c.Request.Context(), &req)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, settings)
}

// ListUsers 用户列表
// GET /api/v1/admin/users?page=1&page_size=20
func (h *Handler) ListUsers(c *gin.Context) {
	page, pageSize := pageParams(c)
	accounts, total, err := h.accountService.ListAccounts(c.Request.Context(), page, pageSize)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Page(c, accounts, total, page, pageSize)
}

// SetUserAdmin 设置或取消账户管理员标记
// PUT /api/v1/admin/users/:id/admin
func (h *Handler) SetUserAdmin(c *gin.Context) {
	var req struct {
		IsAdmin *bool `json:"is_admin" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	if err := h.accountService.SetAdmin(c.Request.Context(), c.Param("id"), *req.IsAdmin); err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, nil)
}

// CreateMatch 新建比赛
// POST /api/v1/admin/matches
func (h *Handler) CreateMatch(c *gin.Context) {
	var req service.SaveMatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}
	req.ID = ""

	match, err := h.matchService.SaveMatch(c.Request.Context(), &req)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, match)
}

// UpdateMatch 编辑比赛，报名席位与结束标记不受影响
// PUT /api/v1/admin/matches/:id
func (h *Handler) UpdateMatch(c *gin.Context) {
	var req service.SaveMatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}
	req.ID = c.Param("id")

	match, err := h.matchService.SaveMatch(c.Request.Context(), &req)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, match)
}

// DeleteMatch 删除比赛
// DELETE /api/v1/admin/matches/:id
func (h *Handler) DeleteMatch(c *gin.Context) {
	if err := h.matchService.DeleteMatch(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, nil)
}

type PublishRoomRequest struct {
	RoomID   string `json:"room_id"`
	RoomPass string `json:"room_pass"`
}

// PublishRoom 发布房间号和密码
// POST /api/v1/admin/matches/:id/room
func (h *Handler) PublishRoom(c *gin.Context) {
	var req PublishRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	match, err := h.matchService.PublishRoom(c.Request.Context(), c.Param("id"), req.RoomID, req.RoomPass)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, match)
}

// ListPlayers 按报名顺序返回参赛名单，结算页据此填写成绩
// GET /api/v1/admin/matches/:id/players
func (h *Handler) ListPlayers(c *gin.Context) {
	match, err := h.matchService.GetMatch(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	players, err := h.matchService.ListPlayers(c.Request.Context(), match.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, gin.H{
		"match":   match,
		"players": players,
	})
}

type CompleteMatchRequest struct {
	Results []service.MatchResult `json:"results"`
}

// CompleteMatch 结束比赛并结算
// POST /api/v1/admin/matches/:id/complete
func (h *Handler) CompleteMatch(c *gin.Context) {
	var req CompleteMatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	match, err := h.settlementService.CompleteMatch(c.Request.Context(), c.Param("id"), req.Results)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, match)
}

// ListTransactions 交易审核队列
// GET /api/v1/admin/transactions?status=Pending&type=Deposit
func (h *Handler) ListTransactions(c *gin.Context) {
	page, pageSize := pageParams(c)
	filter := repository.TransactionFilter{
		UserID: c.Query("user_id"),
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

type SetStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// GetTransaction 交易详情
// GET /api/v1/admin/transactions/:id
func (h *Handler) GetTransaction(c *gin.Context) {
	trans, err := h.ledgerService.GetTransaction(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, trans)
}

// SetTransactionStatus 审核交易
// POST /api/v1/admin/transactions/:id/status
func (h *Handler) SetTransactionStatus(c *gin.Context) {
	var req SetStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	trans, err := h.ledgerService.SetTransactionStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, trans)
}
