package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"ffarena/internal/config"
	"ffarena/internal/event"
	"ffarena/internal/model"
	"ffarena/internal/repository"
	"ffarena/pkg/idgen"

	"github.com/go-redis/redis/v8"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// MatchService 比赛管理与报名
type MatchService struct {
	db              *gorm.DB
	cfg             *config.Config
	policy          Policy
	locks           locker
	matchRepo       *repository.MatchRepository
	accountRepo     *repository.AccountRepository
	transactionRepo *repository.TransactionRepository
	flowRepo        *repository.FlowRepository
	notifier        *changeNotifier
}

func NewMatchService(db *gorm.DB, rdb *redis.Client, cfg *config.Config, bus *event.Bus) *MatchService {
	return &MatchService{
		db:              db,
		cfg:             cfg,
		policy:          NewPolicy(cfg.Business.Policy),
		locks:           newLocker(rdb, cfg),
		matchRepo:       repository.NewMatchRepository(db),
		accountRepo:     repository.NewAccountRepository(db),
		transactionRepo: repository.NewTransactionRepository(db),
		flowRepo:        repository.NewFlowRepository(db),
		notifier:        newChangeNotifier(db, bus, cfg),
	}
}

// ============================================================================
// 比赛管理（管理员）
// ============================================================================

// SaveMatchRequest 新建或编辑比赛，ID 为空表示新建
type SaveMatchRequest struct {
	ID                string        `json:"id"`
	Title             string        `json:"title"`
	StartTime         time.Time     `json:"start_time"`
	Type              string        `json:"type"`
	Map               string        `json:"map"`
	Version           string        `json:"version"`
	EntryFee          int64         `json:"entry_fee"`
	PrizePool         int64         `json:"prize_pool"`
	PrizePerKill      int64         `json:"prize_per_kill"`
	TotalSlots        int           `json:"total_slots"`
	Rules             []string      `json:"rules"`
	ImageURL          string        `json:"image_url"`
	IsPointSystem     bool          `json:"is_point_system"`
	PointsPerKill     int64         `json:"points_per_kill"`
	TotalMatchesCount int           `json:"total_matches_count"`
	PositionPoints    map[int]int64 `json:"position_points"`
}

func (r *SaveMatchRequest) validate() error {
	r.Title = strings.TrimSpace(r.Title)
	if r.Title == "" {
		return validationErrorf(KindMissingField, "比赛标题不能为空")
	}
	if r.StartTime.IsZero() {
		return validationErrorf(KindMissingField, "请设置开赛时间")
	}
	switch r.Type {
	case model.MatchTypeSolo, model.MatchTypeDuo, model.MatchTypeSquad:
	default:
		return validationErrorf(KindInvalidArgument, "未知比赛类型: %s", r.Type)
	}
	switch r.Map {
	case model.MatchMapBermuda, model.MatchMapPurgatory, model.MatchMapKalahari, model.MatchMapAlpine:
	default:
		return validationErrorf(KindInvalidArgument, "未知地图: %s", r.Map)
	}
	switch r.Version {
	case model.MatchVersionMobile, model.MatchVersionPC:
	default:
		return validationErrorf(KindInvalidArgument, "未知版本: %s", r.Version)
	}
	if r.EntryFee < 0 || r.PrizePool < 0 || r.PrizePerKill < 0 || r.PointsPerKill < 0 {
		return validationErrorf(KindInvalidArgument, "金额不能为负数")
	}
	if r.TotalSlots <= 0 {
		return validationErrorf(KindInvalidArgument, "报名人数上限必须大于0")
	}
	return nil
}

func (r *SaveMatchRequest) toModel() *model.Match {
	rules := r.Rules
	if len(rules) == 0 {
		rules = model.DefaultMatchRules
	}
	points := r.PositionPoints
	if len(points) == 0 {
		points = model.DefaultPositionPoints()
	}
	matchesCount := r.TotalMatchesCount
	if matchesCount < 1 {
		matchesCount = 1
	}
	return &model.Match{
		ID:                r.ID,
		Title:             r.Title,
		StartTime:         r.StartTime,
		Type:              r.Type,
		Map:               r.Map,
		Version:           r.Version,
		EntryFee:          r.EntryFee,
		PrizePool:         r.PrizePool,
		PrizePerKill:      r.PrizePerKill,
		TotalSlots:        r.TotalSlots,
		Rules:             datatypes.NewJSONType(rules),
		ImageURL:          r.ImageURL,
		IsPointSystem:     r.IsPointSystem,
		PointsPerKill:     r.PointsPerKill,
		TotalMatchesCount: matchesCount,
		PositionPoints:    datatypes.NewJSONType(points),
	}
}

// SaveMatch 新建或编辑比赛，编辑时报名席位、房间信息、结束标记保持不变
func (s *MatchService) SaveMatch(ctx context.Context, req *SaveMatchRequest) (*model.Match, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	match := req.toModel()
	action := "update"
	if match.ID == "" {
		match.ID = idgen.GenerateMatchID()
		if match.ImageURL == "" {
			match.ImageURL = fmt.Sprintf("https://picsum.photos/seed/%s/800/400", match.ID)
		}
		if err := s.matchRepo.Create(ctx, match); err != nil {
			return nil, fmt.Errorf("创建比赛失败: %w", err)
		}
		action = "create"
	} else {
		existing, err := s.matchRepo.GetByID(ctx, nil, match.ID)
		if err != nil {
			return nil, err
		}
		if match.ImageURL == "" {
			match.ImageURL = existing.ImageURL
		}
		if err := s.matchRepo.Update(ctx, match); err != nil {
			return nil, fmt.Errorf("更新比赛失败: %w", err)
		}
	}

	log.Printf("比赛已保存: id=%s, action=%s, title=%s", match.ID, action, match.Title)
	s.notifier.publish(event.New(event.KindMatches, action, match.ID))
	return s.matchRepo.GetByID(ctx, nil, match.ID)
}

func (s *MatchService) DeleteMatch(ctx context.Context, id string) error {
	if err := s.matchRepo.Delete(ctx, id); err != nil {
		return err
	}
	log.Printf("比赛已删除: id=%s", id)
	s.notifier.publish(event.New(event.KindMatches, "delete", id))
	return nil
}

// PublishRoom 发布房间号和密码，两者都非空时已报名用户会收到通知
func (s *MatchService) PublishRoom(ctx context.Context, id, roomID, roomPass string) (*model.Match, error) {
	err := s.matchRepo.UpdateRoom(ctx, id, strings.TrimSpace(roomID), strings.TrimSpace(roomPass))
	if errors.Is(err, repository.ErrMatchCompleted) {
		return nil, validationErrorf(KindMatchCompleted, "比赛已结束，不能再发布房间信息")
	}
	if err != nil {
		return nil, err
	}

	log.Printf("房间信息已发布: matchID=%s", id)
	s.notifier.publish(event.New(event.KindMatches, "room", id))
	return s.matchRepo.GetByID(ctx, nil, id)
}

func (s *MatchService) GetMatch(ctx context.Context, id string) (*model.Match, error) {
	return s.matchRepo.GetByID(ctx, nil, id)
}

const (
	MatchStatusUpcoming  = "upcoming"
	MatchStatusCompleted = "completed"
)

// ListMatches status 为空时返回全部
func (s *MatchService) ListMatches(ctx context.Context, status string) ([]*model.Match, error) {
	var filter repository.MatchFilter
	switch status {
	case "":
	case MatchStatusUpcoming:
		completed := false
		filter.Completed = &completed
	case MatchStatusCompleted:
		completed := true
		filter.Completed = &completed
	default:
		return nil, validationErrorf(KindInvalidArgument, "未知比赛状态: %s", status)
	}
	return s.matchRepo.List(ctx, filter)
}

// ListJoined 用户已报名的比赛
func (s *MatchService) ListJoined(ctx context.Context, accountID string) ([]*model.Match, error) {
	return s.matchRepo.List(ctx, repository.MatchFilter{JoinedBy: accountID})
}

// ListPlayers 按报名顺序返回参赛账户，结算页据此填写成绩
func (s *MatchService) ListPlayers(ctx context.Context, matchID string) ([]*model.Account, error) {
	match, err := s.matchRepo.GetByID(ctx, nil, matchID)
	if err != nil {
		return nil, err
	}
	accounts, err := s.accountRepo.ListByIDs(ctx, match.JoinedSlots)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*model.Account, len(accounts))
	for _, a := range accounts {
		byID[a.ID] = a
	}
	players := make([]*model.Account, 0, len(match.JoinedSlots))
	for _, id := range match.JoinedSlots {
		if a, ok := byID[id]; ok {
			players = append(players, a)
		}
	}
	return players, nil
}

// ============================================================================
// 报名
// ============================================================================

// JoinWithWallet 用钱包余额报名
//
// 加锁顺序固定为 比赛锁 -> 钱包锁。检查与扣费在同一个数据库事务里完成，
// 任何前置条件不满足都返回 ValidationError，数据不变。
// 扣费先扣充值余额，不足部分再扣奖金余额。
func (s *MatchService) JoinWithWallet(ctx context.Context, matchID, accountID string) (*model.Match, *model.Account, error) {
	release, err := s.locks.acquire(ctx, s.locks.match(matchID), s.locks.wallet(accountID))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrSystemBusy, err)
	}
	defer release()

	var events []event.Event
	err = s.db.Transaction(func(tx *gorm.DB) error {
		match, err := s.matchRepo.GetByIDForUpdate(ctx, tx, matchID)
		if err != nil {
			return err
		}
		if match.IsCompleted {
			return validationErrorf(KindMatchCompleted, "比赛已结束")
		}
		if match.HasJoined(accountID) {
			return validationErrorf(KindAlreadyJoined, "已报名该比赛")
		}
		if s.policy.EnforceCapacity && match.IsFull() {
			return validationErrorf(KindMatchFull, "报名人数已满")
		}

		account, err := s.accountRepo.GetByIDForUpdate(ctx, tx, accountID)
		if err != nil {
			return err
		}
		fromDeposit, fromWinning, ok := model.SplitEntryFee(account.DepositBalance, account.WinningBalance, match.EntryFee)
		if !ok {
			return validationErrorf(KindInsufficientFunds, "余额不足，报名费 %d", match.EntryFee)
		}

		if err := s.matchRepo.AddSlot(ctx, tx, match.ID, account.ID, len(match.JoinedSlots)+1); err != nil {
			if errors.Is(err, repository.ErrAlreadyJoined) {
				return validationErrorf(KindAlreadyJoined, "已报名该比赛")
			}
			return fmt.Errorf("写入报名席位失败: %w", err)
		}

		newDeposit := account.DepositBalance - fromDeposit
		newWinning := account.WinningBalance - fromWinning
		if err := s.accountRepo.UpdateBalances(ctx, tx, account.ID, newDeposit, newWinning, account.Version); err != nil {
			return mapBalanceErr(err)
		}

		var flows []*model.AccountFlow
		if fromDeposit > 0 {
			flows = append(flows, newFlow(account.ID, match.ID, model.BucketDeposit, model.FlowTypeEntryDebit,
				account.DepositBalance, -fromDeposit, "报名费-"+match.Title))
		}
		if fromWinning > 0 {
			flows = append(flows, newFlow(account.ID, match.ID, model.BucketWinning, model.FlowTypeEntryDebit,
				account.WinningBalance, -fromWinning, "报名费-"+match.Title))
		}
		if err := s.flowRepo.Create(ctx, tx, flows...); err != nil {
			return fmt.Errorf("记录流水失败: %w", err)
		}

		events = []event.Event{
			event.New(event.KindMatches, "join", match.ID, account.ID),
			event.New(event.KindAccounts, "entry_debit", account.ID),
		}
		return s.notifier.stage(ctx, tx, events...)
	})
	if err != nil {
		return nil, nil, err
	}

	log.Printf("钱包报名成功: matchID=%s, userID=%s", matchID, accountID)
	s.notifier.publish(events...)

	match, err := s.matchRepo.GetByID(ctx, nil, matchID)
	if err != nil {
		return nil, nil, err
	}
	account, err := s.accountRepo.GetByID(ctx, nil, accountID)
	if err != nil {
		return nil, nil, err
	}
	return match, account, nil
}

type DirectPaymentRequest struct {
	MatchID   string
	AccountID string
	Method    string
	Reference string
}

// RequestDirectPayment 线下直付报名费，生成待审核交易，不占席位也不动余额
func (s *MatchService) RequestDirectPayment(ctx context.Context, req *DirectPaymentRequest) (*model.Transaction, error) {
	req.Reference = strings.TrimSpace(req.Reference)
	if req.Reference == "" {
		return nil, validationErrorf(KindMissingField, "请填写转账流水号")
	}
	if !model.IsValidMethod(req.Method) {
		return nil, validationErrorf(KindInvalidArgument, "不支持的支付渠道: %s", req.Method)
	}

	match, err := s.matchRepo.GetByID(ctx, nil, req.MatchID)
	if err != nil {
		return nil, err
	}
	if match.IsCompleted {
		return nil, validationErrorf(KindMatchCompleted, "比赛已结束")
	}
	if match.HasJoined(req.AccountID) {
		return nil, validationErrorf(KindAlreadyJoined, "已报名该比赛")
	}
	if match.EntryFee <= 0 {
		return nil, validationErrorf(KindInvalidArgument, "免费比赛无需支付报名费")
	}

	account, err := s.accountRepo.GetByID(ctx, nil, req.AccountID)
	if err != nil {
		return nil, err
	}

	trans := &model.Transaction{
		ID:            idgen.GenerateTransactionID(),
		UserID:        account.ID,
		UserNumericID: account.NumericID,
		Amount:        match.EntryFee,
		Method:        req.Method,
		TargetAccount: model.TargetMatchHQ,
		Reference:     req.Reference,
		Type:          model.TransactionTypeMatchJoinPayment,
		MatchID:       match.ID,
		MatchTitle:    match.Title,
		Status:        model.TransactionStatusPending,
	}

	evt := event.New(event.KindTransactions, "create", trans.ID).WithOwners(trans.UserID)
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.transactionRepo.Create(ctx, tx, trans); err != nil {
			return fmt.Errorf("创建直付申请失败: %w", err)
		}
		return s.notifier.stage(ctx, tx, evt)
	})
	if err != nil {
		return nil, err
	}

	log.Printf("比赛直付申请: txID=%s, matchID=%s, userID=%s, amount=%d", trans.ID, match.ID, account.ID, trans.Amount)
	s.notifier.publish(evt)
	return trans, nil
}
