package handler

import (
	"ffarena/internal/config"
	"ffarena/internal/event"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// SetupRouter 配置路由
func SetupRouter(db *gorm.DB, rdb *redis.Client, cfg *config.Config, bus *event.Bus) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	r.Use(RecoveryMiddleware())
	r.Use(LoggerMiddleware())
	r.Use(CORSMiddleware(cfg.Server.AllowedOrigins))

	h := NewHandler(db, rdb, cfg, bus)

	api := r.Group("/api/v1")
	{
		// 公开接口
		api.GET("/settings", h.GetSettings)
		api.GET("/matches", h.ListMatches)
		api.GET("/matches/:id", h.GetMatch)
		api.GET("/leaderboard", h.Leaderboard)

		// 登录用户
		user := api.Group("")
		user.Use(h.AuthMiddleware())
		{
			user.GET("/me", h.GetMe)
			user.PUT("/me", h.UpdateMe)
			user.GET("/me/matches", h.ListMyMatches)
			user.GET("/me/flows", h.ListMyFlows)
			user.GET("/me/notifications", h.ListMyNotifications)
			user.POST("/me/notifications/:matchId/ack", h.AckNotification)

			user.POST("/matches/:id/join", h.JoinMatch)
			user.POST("/matches/:id/pay", h.PayMatch)

			user.GET("/wallet/transactions", h.ListMyTransactions)
			user.POST("/wallet/deposit", h.Deposit)
			user.POST("/wallet/withdraw", h.Withdraw)

			user.POST("/session/admin", h.ElevateSession)
			user.POST("/session/logout", h.Logout)

			user.GET("/events", h.Events)
		}

		// 管理员
		admin := api.Group("/admin")
		admin.Use(h.AuthMiddleware(), RequireAdmin())
		{
			admin.GET("/dashboard", h.Dashboard)
			admin.PUT("/settings", h.UpdateSettings)

			admin.GET("/users", h.ListUsers)
			admin.PUT("/users/:id/admin", h.SetUserAdmin)

			admin.POST("/matches", h.CreateMatch)
			admin.PUT("/matches/:id", h.UpdateMatch)
			admin.DELETE("/matches/:id", h.DeleteMatch)
			admin.POST("/matches/:id/room", h.PublishRoom)
			admin.GET("/matches/:id/players", h.ListPlayers)
			admin.POST("/matches/:id/complete", h.CompleteMatch)

			admin.GET("/transactions", h.ListTransactions)
			admin.GET("/transactions/:id", h.GetTransaction)
			admin.POST("/transactions/:id/status", h.SetTransactionStatus)
		}
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}
