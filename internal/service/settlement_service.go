package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"ffarena/internal/config"
	"ffarena/internal/event"
	"ffarena/internal/model"
	"ffarena/internal/repository"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// MatchResult 单个玩家的比赛成绩，奖金由管理员填写
type MatchResult struct {
	AccountID string `json:"account_id"`
	Kills     int64  `json:"kills"`
	Earnings  int64  `json:"earnings"`
}

// SettlementService 比赛结算
type SettlementService struct {
	db          *gorm.DB
	locks       locker
	matchRepo   *repository.MatchRepository
	accountRepo *repository.AccountRepository
	flowRepo    *repository.FlowRepository
	notifier    *changeNotifier
}

func NewSettlementService(db *gorm.DB, rdb *redis.Client, cfg *config.Config, bus *event.Bus) *SettlementService {
	return &SettlementService{
		db:          db,
		locks:       newLocker(rdb, cfg),
		matchRepo:   repository.NewMatchRepository(db),
		accountRepo: repository.NewAccountRepository(db),
		flowRepo:    repository.NewFlowRepository(db),
		notifier:    newChangeNotifier(db, bus, cfg),
	}
}

func validateResults(results []MatchResult) error {
	seen := make(map[string]struct{}, len(results))
	for _, r := range results {
		if r.AccountID == "" {
			return validationErrorf(KindMissingField, "成绩缺少账户ID")
		}
		if r.Kills < 0 || r.Earnings < 0 {
			return validationErrorf(KindInvalidArgument, "击杀数和奖金不能为负数: %s", r.AccountID)
		}
		if _, dup := seen[r.AccountID]; dup {
			return validationErrorf(KindInvalidArgument, "重复的成绩: %s", r.AccountID)
		}
		seen[r.AccountID] = struct{}{}
	}
	return nil
}

// CompleteMatch 结束比赛并结算成绩
//
// 比赛标记结束与所有玩家的战绩、奖金入账在同一个事务里完成。
// 未出现在 results 中的报名玩家不受影响；成绩中的账户必须已报名该比赛。
func (s *SettlementService) CompleteMatch(ctx context.Context, matchID string, results []MatchResult) (*model.Match, error) {
	if err := validateResults(results); err != nil {
		return nil, err
	}

	release, err := s.locks.acquire(ctx, s.locks.match(matchID))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSystemBusy, err)
	}
	defer release()

	var events []event.Event
	err = s.db.Transaction(func(tx *gorm.DB) error {
		match, err := s.matchRepo.GetByIDForUpdate(ctx, tx, matchID)
		if err != nil {
			return err
		}
		if match.IsCompleted {
			return validationErrorf(KindMatchCompleted, "比赛已结束，不能重复结算")
		}
		for _, r := range results {
			if !match.HasJoined(r.AccountID) {
				return validationErrorf(KindNotJoined, "账户 %s 未报名该比赛", r.AccountID)
			}
		}

		if err := s.matchRepo.MarkCompleted(ctx, tx, match.ID); err != nil {
			if errors.Is(err, repository.ErrMatchCompleted) {
				return validationErrorf(KindMatchCompleted, "比赛已结束，不能重复结算")
			}
			return err
		}

		ids := make([]string, 0, len(results))
		var flows []*model.AccountFlow
		for _, r := range results {
			account, err := s.accountRepo.GetByIDForUpdate(ctx, tx, r.AccountID)
			if err != nil {
				return err
			}
			if err := s.accountRepo.ApplyMatchResult(ctx, tx, account.ID, r.Kills, r.Earnings); err != nil {
				return fmt.Errorf("结算账户 %s 失败: %w", account.ID, err)
			}
			if r.Earnings > 0 {
				flows = append(flows, newFlow(account.ID, match.ID, model.BucketWinning, model.FlowTypePrizeCredit,
					account.WinningBalance, r.Earnings, "比赛奖金-"+match.Title))
			}
			ids = append(ids, account.ID)
		}
		if err := s.flowRepo.Create(ctx, tx, flows...); err != nil {
			return fmt.Errorf("记录流水失败: %w", err)
		}

		events = []event.Event{event.New(event.KindMatches, "complete", match.ID)}
		if len(ids) > 0 {
			events = append(events, event.New(event.KindAccounts, "settle", ids...))
		}
		return s.notifier.stage(ctx, tx, events...)
	})
	if err != nil {
		log.Printf("[Settlement] 比赛结算失败，已回滚: matchID=%s, err=%v", matchID, err)
		return nil, err
	}

	log.Printf("[Settlement] 比赛结算完成: matchID=%s, results=%d", matchID, len(results))
	s.notifier.publish(events...)
	return s.matchRepo.GetByID(ctx, nil, matchID)
}

// ComputeKillPayout 按每杀奖金预填奖金，结算本身只采用管理员提交的数值
func ComputeKillPayout(match *model.Match, kills int64) int64 {
	return match.KillPayout(kills)
}

// ComputePointTotal 积分赛得分
func ComputePointTotal(match *model.Match, kills int64, rank int) int64 {
	return match.PointTotal(kills, rank)
}
