package service

import (
	"context"

	"ffarena/internal/model"
	"ffarena/internal/repository"

	"gorm.io/gorm"
)

// DashboardStats 管理后台首页统计
type DashboardStats struct {
	TotalUsers          int64 `json:"total_users"`
	ActiveMatches       int64 `json:"active_matches"`
	CompletedMatches    int64 `json:"completed_matches"`
	PendingTransactions int64 `json:"pending_transactions"`
	FullMatches         int   `json:"full_matches"`
}

type DashboardService struct {
	accountRepo     *repository.AccountRepository
	matchRepo       *repository.MatchRepository
	transactionRepo *repository.TransactionRepository
}

func NewDashboardService(db *gorm.DB) *DashboardService {
	return &DashboardService{
		accountRepo:     repository.NewAccountRepository(db),
		matchRepo:       repository.NewMatchRepository(db),
		transactionRepo: repository.NewTransactionRepository(db),
	}
}

func (s *DashboardService) Stats(ctx context.Context) (*DashboardStats, error) {
	var stats DashboardStats
	var err error

	if stats.TotalUsers, err = s.accountRepo.Count(ctx); err != nil {
		return nil, err
	}
	if stats.CompletedMatches, err = s.matchRepo.CountByCompleted(ctx, true); err != nil {
		return nil, err
	}
	if stats.PendingTransactions, err = s.transactionRepo.CountByStatus(ctx, model.TransactionStatusPending); err != nil {
		return nil, err
	}

	completed := false
	active, err := s.matchRepo.List(ctx, repository.MatchFilter{Completed: &completed})
	if err != nil {
		return nil, err
	}
	stats.ActiveMatches = int64(len(active))
	for _, m := range active {
		if m.IsFull() {
			stats.FullMatches++
		}
	}
	return &stats, nil
}
