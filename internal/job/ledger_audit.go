package job

import (
	"context"
	"log"
	"time"

	"ffarena/internal/config"
	"ffarena/internal/model"
	"ffarena/internal/repository"

	"gorm.io/gorm"
)

// Mismatch 账户余额与流水汇总不一致
type Mismatch struct {
	AccountID     string
	Bucket        string
	Balance       int64
	JournalTotals int64
}

// LedgerAuditJob 定期核对账户余额与流水
//
// 每个余额桶的当前值应等于该桶全部流水之和。只记录差异，不自动修正，
// 由管理员根据日志人工处理。
type LedgerAuditJob struct {
	accountRepo *repository.AccountRepository
	flowRepo    *repository.FlowRepository
	stopCh      chan struct{}
	interval    time.Duration
	batchSize   int
}

func NewLedgerAuditJob(db *gorm.DB, cfg *config.Config) *LedgerAuditJob {
	interval := time.Duration(cfg.Business.AuditIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &LedgerAuditJob{
		accountRepo: repository.NewAccountRepository(db),
		flowRepo:    repository.NewFlowRepository(db),
		stopCh:      make(chan struct{}),
		interval:    interval,
		batchSize:   200,
	}
}

func (j *LedgerAuditJob) Start(ctx context.Context) {
	log.Println("[LedgerAuditJob] 对账任务启动")

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[LedgerAuditJob] 收到停止信号，任务退出")
			return
		case <-j.stopCh:
			log.Println("[LedgerAuditJob] 任务停止")
			return
		case <-ticker.C:
			j.Run(ctx)
		}
	}
}

func (j *LedgerAuditJob) Stop() {
	close(j.stopCh)
}

// Run 按主键分批扫描全部账户，返回发现的差异
func (j *LedgerAuditJob) Run(ctx context.Context) []Mismatch {
	var mismatches []Mismatch
	cursor := ""
	checked := 0

	for {
		accounts, err := j.accountRepo.ListAfter(ctx, cursor, j.batchSize)
		if err != nil {
			log.Printf("[LedgerAuditJob] 查询账户失败: %v", err)
			return mismatches
		}
		if len(accounts) == 0 {
			break
		}

		for _, account := range accounts {
			found, err := j.audit(ctx, account)
			if err != nil {
				log.Printf("[LedgerAuditJob] 汇总流水失败: userID=%s, err=%v", account.ID, err)
				continue
			}
			mismatches = append(mismatches, found...)
		}
		checked += len(accounts)
		cursor = accounts[len(accounts)-1].ID
	}

	for _, m := range mismatches {
		log.Printf("[LedgerAuditJob] 余额与流水不一致: userID=%s, bucket=%s, balance=%d, journal=%d",
			m.AccountID, m.Bucket, m.Balance, m.JournalTotals)
	}
	if len(mismatches) > 0 {
		log.Printf("[LedgerAuditJob] 本次核对 %d 个账户，发现 %d 处差异", checked, len(mismatches))
	}
	return mismatches
}

func (j *LedgerAuditJob) audit(ctx context.Context, account *model.Account) ([]Mismatch, error) {
	totals, err := j.flowRepo.BucketTotals(ctx, account.ID)
	if err != nil {
		return nil, err
	}

	var found []Mismatch
	if totals[model.BucketDeposit] != account.DepositBalance {
		found = append(found, Mismatch{account.ID, model.BucketDeposit, account.DepositBalance, totals[model.BucketDeposit]})
	}
	if totals[model.BucketWinning] != account.WinningBalance {
		found = append(found, Mismatch{account.ID, model.BucketWinning, account.WinningBalance, totals[model.BucketWinning]})
	}
	return found, nil
}
