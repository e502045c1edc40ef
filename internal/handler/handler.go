package handler

import (
	"errors"
	"log"
	"strconv"

	"ffarena/internal/config"
	"ffarena/internal/event"
	"ffarena/internal/repository"
	"ffarena/internal/service"
	"ffarena/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// Handler 统一处理器，包含所有服务依赖
type Handler struct {
	accountService      *service.AccountService
	ledgerService       *service.LedgerService
	matchService        *service.MatchService
	settlementService   *service.SettlementService
	settingsService     *service.SettingsService
	notificationService *service.NotificationService
	dashboardService    *service.DashboardService
	sessionService      *service.SessionService
	bus                 *event.Bus
}

// NewHandler 创建处理器实例
func NewHandler(db *gorm.DB, rdb *redis.Client, cfg *config.Config, bus *event.Bus) *Handler {
	return &Handler{
		accountService:      service.NewAccountService(db, rdb, cfg, bus),
		ledgerService:       service.NewLedgerService(db, rdb, cfg, bus),
		matchService:        service.NewMatchService(db, rdb, cfg, bus),
		settlementService:   service.NewSettlementService(db, rdb, cfg, bus),
		settingsService:     service.NewSettingsService(db, cfg, bus),
		notificationService: service.NewNotificationService(db, rdb, cfg),
		dashboardService:    service.NewDashboardService(db),
		sessionService:      service.NewSessionService(rdb, cfg),
		bus:                 bus,
	}
}

var validationCodes = map[service.ValidationKind]int{
	service.KindInsufficientFunds: response.CodeInsufficientFunds,
	service.KindBelowMinimum:      response.CodeBelowMinimum,
	service.KindFeatureDisabled:   response.CodeFeatureDisabled,
	service.KindMissingField:      response.CodeMissingField,
	service.KindAlreadyJoined:     response.CodeAlreadyJoined,
	service.KindMatchFull:         response.CodeMatchFull,
	service.KindMatchCompleted:    response.CodeMatchCompleted,
	service.KindNotJoined:         response.CodeNotJoined,
	service.KindInvalidArgument:   response.CodeParamError,
}

// writeError 把服务层错误映射为业务错误码
func writeError(c *gin.Context, err error) {
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		code, ok := validationCodes[ve.Kind]
		if !ok {
			code = response.CodeBusinessError
		}
		response.BusinessError(c, code, ve.Message)
	case errors.Is(err, repository.ErrAccountNotFound):
		response.BusinessError(c, response.CodeAccountNotFound, err.Error())
	case errors.Is(err, repository.ErrMatchNotFound):
		response.BusinessError(c, response.CodeMatchNotFound, err.Error())
	case errors.Is(err, repository.ErrTransactionNotFound):
		response.BusinessError(c, response.CodeTransactionNotFound, err.Error())
	case errors.Is(err, repository.ErrTransactionResolved):
		response.BusinessError(c, response.CodeTransactionResolved, err.Error())
	case errors.Is(err, service.ErrSystemBusy), errors.Is(err, repository.ErrOptimisticLock):
		response.BusinessError(c, response.CodeSystemBusy, service.ErrSystemBusy.Error())
	case errors.Is(err, service.ErrInvalidAdminKey):
		response.BusinessError(c, response.CodeForbidden, err.Error())
	default:
		log.Printf("[Handler] %s %s 处理失败: %v", c.Request.Method, c.Request.URL.Path, err)
		response.ServerError(c, "服务器内部错误")
	}
}

func pageParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return page, pageSize
}
