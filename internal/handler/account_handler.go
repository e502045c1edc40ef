package handler

import (
	"ffarena/internal/service"
	"ffarena/pkg/response"

	"github.com/gin-gonic/gin"
)

// ============================================================
// 当前用户
// ============================================================

// GetMe 当前账户及其生效权限
// GET /api/v1/me
func (h *Handler) GetMe(c *gin.Context) {
	account := currentAccount(c)
	response.Success(c, gin.H{
		"account":       account,
		"total_balance": account.TotalBalance(),
		"capability":    capabilityOf(c),
	})
}

type UpdateProfileRequest struct {
	Name      string `json:"name" binding:"required"`
	Phone     string `json:"phone"`
	AvatarURL string `json:"avatar_url"`
}

// UpdateMe 修改昵称、手机号、头像
// PUT /api/v1/me
func (h *Handler) UpdateMe(c *gin.Context) {
	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	account, err := h.accountService.UpdateProfile(c.Request.Context(), currentAccount(c).ID, req.Name, req.Phone, req.AvatarURL)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, account)
}

// ListMyFlows 余额流水
// GET /api/v1/me/flows?page=1&page_size=20
func (h *Handler) ListMyFlows(c *gin.Context) {
	page, pageSize := pageParams(c)
	flows, total, err := h.accountService.ListFlows(c.Request.Context(), currentAccount(c).ID, page, pageSize)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Page(c, flows, total, page, pageSize)
}

// ListMyNotifications 房间信息提醒
// GET /api/v1/me/notifications
func (h *Handler) ListMyNotifications(c *gin.Context) {
	notes, err := h.notificationService.Pending(c.Request.Context(), currentAccount(c).ID)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, notes)
}

// AckNotification 确认已看到房间信息
// POST /api/v1/me/notifications/:matchId/ack
func (h *Handler) AckNotification(c *gin.Context) {
	if err := h.notificationService.Acknowledge(c.Request.Context(), currentAccount(c).ID, c.Param("matchId")); err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, nil)
}

// Leaderboard 排行榜
// GET /api/v1/leaderboard
func (h *Handler) Leaderboard(c *gin.Context) {
	entries, err := h.accountService.Leaderboard(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, entries)
}

// GetSettings 站点公告、收款号、提现规则
// GET /api/v1/settings
func (h *Handler) GetSettings(c *gin.Context) {
	settings, err := h.settingsService.Get(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, settings)
}

// ============================================================
// 会话
// ============================================================

type ElevateRequest struct {
	AccessKey string `json:"access_key" binding:"required"`
}

// ElevateSession 输入管理员口令，本次会话获得系统管理员权限
// POST /api/v1/session/admin
func (h *Handler) ElevateSession(c *gin.Context) {
	var req ElevateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	token, err := h.sessionService.ElevateToSystemAdmin(c.Request.Context(), currentClaims(c), req.AccessKey)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, gin.H{
		"token":      token,
		"capability": service.ResolveCapability(currentAccount(c).IsAdmin, true),
	})
}

// Logout 退出登录，系统管理员提权一并失效
// POST /api/v1/session/logout
func (h *Handler) Logout(c *gin.Context) {
	if err := h.sessionService.Revoke(c.Request.Context(), currentClaims(c)); err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, nil)
}
