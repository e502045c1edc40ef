package handler

import (
	"errors"
	"log"
	"strings"
	"time"

	"ffarena/internal/model"
	"ffarena/internal/service"
	"ffarena/pkg/response"

	"github.com/gin-gonic/gin"
)

const (
	ctxKeyClaims     = "session_claims"
	ctxKeyAccount    = "account"
	ctxKeyCapability = "capability"
)

// LoggerMiddleware 日志中间件
func LoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		if query != "" && !strings.Contains(query, "token=") {
			path = path + "?" + query
		}

		log.Printf("[HTTP] %d | %13v | %15s | %-7s %s",
			status,
			latency,
			c.ClientIP(),
			c.Request.Method,
			path,
		)
	}
}

// RecoveryMiddleware 恢复中间件，防止 panic 导致服务崩溃
func RecoveryMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Printf("[PANIC] %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
				c.AbortWithStatusJSON(500, response.Response{
					Code:    response.CodeServerError,
					Message: "服务器内部错误",
				})
			}
		}()
		c.Next()
	}
}

// CORSMiddleware 跨域中间件，origins 为空时放行所有来源
func CORSMiddleware(origins []string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[strings.TrimRight(o, "/")] = true
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		switch {
		case len(allowed) == 0:
			c.Header("Access-Control-Allow-Origin", "*")
		case allowed[origin]:
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Vary", "Origin")
		}
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

// bearerToken 优先取 Authorization 头，websocket 握手无法带头时取 token 参数
func bearerToken(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return c.Query("token")
}

// AuthMiddleware 校验会话令牌，首次登录自动建档，并计算本次请求的权限
func (h *Handler) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			response.Unauthorized(c, "请先登录")
			return
		}

		claims, err := h.sessionService.Parse(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, service.ErrInvalidSession) || errors.Is(err, service.ErrSessionRevoked) {
				response.Unauthorized(c, err.Error())
				return
			}
			log.Printf("[Auth] 会话校验失败: %v", err)
			response.Unauthorized(c, service.ErrInvalidSession.Error())
			return
		}

		account, err := h.accountService.LoadOrCreate(c.Request.Context(), claims.Identity())
		if err != nil {
			log.Printf("[Auth] 读取账户失败: sub=%s, err=%v", claims.Subject, err)
			response.Unauthorized(c, "账户不可用")
			return
		}

		c.Set(ctxKeyClaims, claims)
		c.Set(ctxKeyAccount, account)
		c.Set(ctxKeyCapability, service.ResolveCapability(account.IsAdmin, claims.SystemAdmin))
		c.Next()
	}
}

// RequireAdmin 必须在 AuthMiddleware 之后使用
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !capabilityOf(c).Admin {
			response.Forbidden(c, "需要管理员权限")
			return
		}
		c.Next()
	}
}

func currentAccount(c *gin.Context) *model.Account {
	v, _ := c.Get(ctxKeyAccount)
	account, _ := v.(*model.Account)
	return account
}

func currentClaims(c *gin.Context) *service.SessionClaims {
	v, _ := c.Get(ctxKeyClaims)
	claims, _ := v.(*service.SessionClaims)
	return claims
}

func capabilityOf(c *gin.Context) service.Capability {
	v, _ := c.Get(ctxKeyCapability)
	capability, _ := v.(service.Capability)
	return capability
}
