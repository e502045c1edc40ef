package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"ffarena/internal/config"
	"ffarena/internal/event"
	"ffarena/internal/infrastructure/lock"
	"ffarena/internal/model"
	"ffarena/internal/repository"
	"ffarena/pkg/idgen"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// LedgerService 钱包交易：充值申请、提现申请、管理员审核
type LedgerService struct {
	db              *gorm.DB
	cfg             *config.Config
	policy          Policy
	locks           locker
	accountRepo     *repository.AccountRepository
	transactionRepo *repository.TransactionRepository
	flowRepo        *repository.FlowRepository
	matchRepo       *repository.MatchRepository
	settingsRepo    *repository.SettingsRepository
	notifier        *changeNotifier
}

func NewLedgerService(db *gorm.DB, rdb *redis.Client, cfg *config.Config, bus *event.Bus) *LedgerService {
	return &LedgerService{
		db:              db,
		cfg:             cfg,
		policy:          NewPolicy(cfg.Business.Policy),
		locks:           newLocker(rdb, cfg),
		accountRepo:     repository.NewAccountRepository(db),
		transactionRepo: repository.NewTransactionRepository(db),
		flowRepo:        repository.NewFlowRepository(db),
		matchRepo:       repository.NewMatchRepository(db),
		settingsRepo:    repository.NewSettingsRepository(db),
		notifier:        newChangeNotifier(db, bus, cfg),
	}
}

type DepositRequest struct {
	AccountID string
	Method    string
	Amount    int64
	Reference string // 用户转账后拿到的外部流水号
}

// RequestDeposit 提交充值申请，余额在管理员审核通过后才入账
func (s *LedgerService) RequestDeposit(ctx context.Context, req *DepositRequest) (*model.Transaction, error) {
	req.Reference = strings.TrimSpace(req.Reference)
	if req.Reference == "" {
		return nil, validationErrorf(KindMissingField, "请填写转账流水号")
	}
	if !model.IsValidMethod(req.Method) {
		return nil, validationErrorf(KindInvalidArgument, "不支持的支付渠道: %s", req.Method)
	}
	if req.Amount <= 0 {
		return nil, validationErrorf(KindInvalidArgument, "充值金额必须大于0")
	}

	account, err := s.accountRepo.GetByID(ctx, nil, req.AccountID)
	if err != nil {
		return nil, err
	}

	trans := &model.Transaction{
		ID:            idgen.GenerateTransactionID(),
		UserID:        account.ID,
		UserNumericID: account.NumericID,
		Amount:        req.Amount,
		Method:        req.Method,
		TargetAccount: model.TargetDepositUplink,
		Reference:     req.Reference,
		Type:          model.TransactionTypeDeposit,
		Status:        model.TransactionStatusPending,
	}

	evt := event.New(event.KindTransactions, "create", trans.ID).WithOwners(trans.UserID)
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.transactionRepo.Create(ctx, tx, trans); err != nil {
			return fmt.Errorf("创建充值申请失败: %w", err)
		}
		return s.notifier.stage(ctx, tx, evt)
	})
	if err != nil {
		return nil, err
	}

	log.Printf("充值申请: txID=%s, userID=%s, amount=%d, method=%s", trans.ID, trans.UserID, trans.Amount, trans.Method)
	s.notifier.publish(evt)
	return trans, nil
}

type WithdrawRequest struct {
	AccountID     string
	Method        string
	Amount        int64
	PayoutAccount string // 用户自己的收款号
}

// RequestWithdraw 提交提现申请
//
// 申请即预扣：奖金余额在提交时立刻扣减，不等管理员审核。
// 只能提取奖金余额，充值余额不可提现。
func (s *LedgerService) RequestWithdraw(ctx context.Context, req *WithdrawRequest) (*model.Transaction, error) {
	req.PayoutAccount = strings.TrimSpace(req.PayoutAccount)
	if req.PayoutAccount == "" {
		return nil, validationErrorf(KindMissingField, "请填写收款账号")
	}
	if !model.IsValidMethod(req.Method) {
		return nil, validationErrorf(KindInvalidArgument, "不支持的支付渠道: %s", req.Method)
	}
	if req.Amount <= 0 {
		return nil, validationErrorf(KindInvalidArgument, "提现金额必须大于0")
	}

	settings, err := s.settingsRepo.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("读取站点配置失败: %w", err)
	}
	if !settings.IsWithdrawEnabled {
		return nil, validationErrorf(KindFeatureDisabled, "提现功能维护中，暂不可用")
	}
	if req.Amount < settings.MinWithdrawAmount {
		return nil, validationErrorf(KindBelowMinimum, "最低提现金额为 %d", settings.MinWithdrawAmount)
	}

	release, err := s.locks.acquire(ctx, s.locks.wallet(req.AccountID))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSystemBusy, err)
	}
	defer release()

	var trans *model.Transaction
	events := []event.Event{}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		account, err := s.accountRepo.GetByIDForUpdate(ctx, tx, req.AccountID)
		if err != nil {
			return err
		}
		if account.WinningBalance < req.Amount {
			return validationErrorf(KindInsufficientFunds, "奖金余额不足，只能提取比赛奖金")
		}

		trans = &model.Transaction{
			ID:            idgen.GenerateTransactionID(),
			UserID:        account.ID,
			UserNumericID: account.NumericID,
			Amount:        req.Amount,
			Method:        req.Method,
			Reference:     idgen.GenerateWithdrawReference(),
			TargetAccount: req.PayoutAccount,
			Type:          model.TransactionTypeWithdraw,
			Status:        model.TransactionStatusPending,
		}

		newWinning := account.WinningBalance - req.Amount
		if err := s.accountRepo.UpdateBalances(ctx, tx, account.ID, account.DepositBalance, newWinning, account.Version); err != nil {
			return mapBalanceErr(err)
		}
		flow := newFlow(account.ID, trans.ID, model.BucketWinning, model.FlowTypeWithdrawReserve,
			account.WinningBalance, -req.Amount, "提现预扣")
		if err := s.flowRepo.Create(ctx, tx, flow); err != nil {
			return fmt.Errorf("记录流水失败: %w", err)
		}
		if err := s.transactionRepo.Create(ctx, tx, trans); err != nil {
			return fmt.Errorf("创建提现申请失败: %w", err)
		}

		events = append(events,
			event.New(event.KindAccounts, "withdraw_reserve", account.ID),
			event.New(event.KindTransactions, "create", trans.ID).WithOwners(trans.UserID))
		return s.notifier.stage(ctx, tx, events...)
	})
	if err != nil {
		return nil, err
	}

	log.Printf("提现申请: txID=%s, userID=%s, amount=%d, payout=%s", trans.ID, trans.UserID, trans.Amount, trans.TargetAccount)
	s.notifier.publish(events...)
	return trans, nil
}

// SetTransactionStatus 管理员审核交易
//
//	Pending -> Completed：充值入账到充值余额；提现与比赛直付不再变动余额
//	Pending -> Rejected ：默认不退回任何余额（提现退回由策略控制）
//
// 已处理的交易再次审核返回 ErrTransactionResolved，不会重复入账。
func (s *LedgerService) SetTransactionStatus(ctx context.Context, txID, status string) (*model.Transaction, error) {
	if status != model.TransactionStatusCompleted && status != model.TransactionStatusRejected {
		return nil, validationErrorf(KindInvalidArgument, "目标状态只能是 %s 或 %s",
			model.TransactionStatusCompleted, model.TransactionStatusRejected)
	}

	trans, err := s.transactionRepo.GetByID(ctx, nil, txID)
	if err != nil {
		return nil, err
	}
	if !trans.IsPending() {
		return nil, repository.ErrTransactionResolved
	}

	// 审核直付会补登席位，和钱包报名一样先比赛锁后钱包锁
	locks := []*lock.DistributedLock{s.locks.wallet(trans.UserID)}
	if status == model.TransactionStatusCompleted && s.policy.JoinsOnApproval(trans) {
		locks = append([]*lock.DistributedLock{s.locks.match(trans.MatchID)}, locks...)
	}
	release, err := s.locks.acquire(ctx, locks...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSystemBusy, err)
	}
	defer release()

	events := []event.Event{event.New(event.KindTransactions, "status", trans.ID).WithOwners(trans.UserID)}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		current, err := s.transactionRepo.GetByID(ctx, tx, txID)
		if err != nil {
			return err
		}
		if err := s.transactionRepo.UpdateStatus(ctx, tx, txID, current.Status, status); err != nil {
			if errors.Is(err, repository.ErrStatusInvalid) {
				return repository.ErrTransactionResolved
			}
			return err
		}
		trans = current

		switch status {
		case model.TransactionStatusCompleted:
			more, err := s.applyCompletion(ctx, tx, trans)
			if err != nil {
				return err
			}
			events = append(events, more...)
		case model.TransactionStatusRejected:
			more, err := s.applyRejection(ctx, tx, trans)
			if err != nil {
				return err
			}
			events = append(events, more...)
		}
		return s.notifier.stage(ctx, tx, events...)
	})
	if err != nil {
		return nil, err
	}

	trans.Status = status
	log.Printf("交易审核: txID=%s, type=%s, userID=%s, amount=%d, status=%s",
		trans.ID, trans.Type, trans.UserID, trans.Amount, status)
	s.notifier.publish(events...)
	return s.transactionRepo.GetByID(ctx, nil, txID)
}

func (s *LedgerService) applyCompletion(ctx context.Context, tx *gorm.DB, trans *model.Transaction) ([]event.Event, error) {
	switch trans.Type {
	case model.TransactionTypeDeposit:
		account, err := s.accountRepo.GetByIDForUpdate(ctx, tx, trans.UserID)
		if err != nil {
			return nil, err
		}
		if err := s.accountRepo.IncreaseDeposit(ctx, tx, account.ID, trans.Amount); err != nil {
			return nil, fmt.Errorf("充值入账失败: %w", err)
		}
		flow := newFlow(account.ID, trans.ID, model.BucketDeposit, model.FlowTypeDepositCredit,
			account.DepositBalance, trans.Amount, "充值审核通过-"+trans.Method)
		if err := s.flowRepo.Create(ctx, tx, flow); err != nil {
			return nil, fmt.Errorf("记录流水失败: %w", err)
		}
		return []event.Event{event.New(event.KindAccounts, "deposit_credit", account.ID)}, nil

	case model.TransactionTypeMatchJoinPayment:
		if !s.policy.JoinsOnApproval(trans) {
			return nil, nil
		}
		return s.joinByPayment(ctx, tx, trans)
	}
	// 提现在申请时已预扣，审核通过不再变动余额
	return nil, nil
}

// joinByPayment 直付审核通过后补登报名席位，费用已线下支付，不动钱包
func (s *LedgerService) joinByPayment(ctx context.Context, tx *gorm.DB, trans *model.Transaction) ([]event.Event, error) {
	match, err := s.matchRepo.GetByIDForUpdate(ctx, tx, trans.MatchID)
	if err != nil {
		return nil, err
	}
	if match.IsCompleted || match.HasJoined(trans.UserID) {
		log.Printf("直付审核通过但未补登席位: txID=%s, matchID=%s, completed=%v", trans.ID, match.ID, match.IsCompleted)
		return nil, nil
	}
	if s.policy.EnforceCapacity && match.IsFull() {
		return nil, validationErrorf(KindMatchFull, "比赛名额已满，无法补登报名")
	}
	if err := s.matchRepo.AddSlot(ctx, tx, match.ID, trans.UserID, len(match.JoinedSlots)+1); err != nil {
		return nil, fmt.Errorf("补登报名失败: %w", err)
	}
	return []event.Event{event.New(event.KindMatches, "join", match.ID, trans.UserID)}, nil
}

func (s *LedgerService) applyRejection(ctx context.Context, tx *gorm.DB, trans *model.Transaction) ([]event.Event, error) {
	refund := s.policy.WithdrawRejectRefund(trans)
	if refund == 0 {
		return nil, nil
	}

	account, err := s.accountRepo.GetByIDForUpdate(ctx, tx, trans.UserID)
	if err != nil {
		return nil, err
	}
	if err := s.accountRepo.IncreaseWinning(ctx, tx, account.ID, refund); err != nil {
		return nil, fmt.Errorf("提现退回失败: %w", err)
	}
	flow := newFlow(account.ID, trans.ID, model.BucketWinning, model.FlowTypeWithdrawRestore,
		account.WinningBalance, refund, "提现驳回退回")
	if err := s.flowRepo.Create(ctx, tx, flow); err != nil {
		return nil, fmt.Errorf("记录流水失败: %w", err)
	}
	return []event.Event{event.New(event.KindAccounts, "withdraw_restore", account.ID)}, nil
}

func (s *LedgerService) GetTransaction(ctx context.Context, txID string) (*model.Transaction, error) {
	return s.transactionRepo.GetByID(ctx, nil, txID)
}

func (s *LedgerService) ListTransactions(ctx context.Context, filter repository.TransactionFilter, page, pageSize int) ([]*model.Transaction, int64, error) {
	page, pageSize = normalizePage(page, pageSize)
	return s.transactionRepo.List(ctx, filter, page, pageSize)
}

func mapBalanceErr(err error) error {
	switch {
	case errors.Is(err, repository.ErrBalanceNotEnough):
		return validationErrorf(KindInsufficientFunds, "余额不足")
	case errors.Is(err, repository.ErrOptimisticLock):
		return ErrSystemBusy
	}
	return fmt.Errorf("更新余额失败: %w", err)
}
