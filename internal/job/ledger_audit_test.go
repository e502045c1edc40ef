package job

import (
	"context"
	"testing"
	"time"

	"ffarena/internal/event"
	"ffarena/internal/model"
	"ffarena/internal/repository"
	"ffarena/internal/service"
	"ffarena/internal/testutil"
)

func TestLedgerAuditMatchesJournal(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	_, rdb := testutil.NewRedis(t)
	cfg := testutil.NewConfig()
	bus := event.NewBus()

	accounts := service.NewAccountService(db, rdb, cfg, bus)
	ledger := service.NewLedgerService(db, rdb, cfg, bus)
	matches := service.NewMatchService(db, rdb, cfg, bus)
	settlement := service.NewSettlementService(db, rdb, cfg, bus)

	if _, err := accounts.LoadOrCreate(ctx, service.Identity{ID: "u1"}); err != nil {
		t.Fatalf("LoadOrCreate: %v", err)
	}
	dep, err := ledger.RequestDeposit(ctx, &service.DepositRequest{AccountID: "u1", Method: model.MethodBKash, Amount: 100, Reference: "r"})
	if err != nil {
		t.Fatalf("RequestDeposit: %v", err)
	}
	if _, err := ledger.SetTransactionStatus(ctx, dep.ID, model.TransactionStatusCompleted); err != nil {
		t.Fatalf("approve: %v", err)
	}
	m, err := matches.SaveMatch(ctx, &service.SaveMatchRequest{
		Title: "Scrim", StartTime: time.Now(), Type: model.MatchTypeDuo, Map: model.MatchMapAlpine,
		Version: model.MatchVersionMobile, EntryFee: 60, TotalSlots: 4,
	})
	if err != nil {
		t.Fatalf("SaveMatch: %v", err)
	}
	if _, _, err := matches.JoinWithWallet(ctx, m.ID, "u1"); err != nil {
		t.Fatalf("JoinWithWallet: %v", err)
	}
	if _, err := settlement.CompleteMatch(ctx, m.ID, []service.MatchResult{{AccountID: "u1", Kills: 1, Earnings: 300}}); err != nil {
		t.Fatalf("CompleteMatch: %v", err)
	}
	if _, err := ledger.RequestWithdraw(ctx, &service.WithdrawRequest{AccountID: "u1", Method: model.MethodBKash, Amount: 120, PayoutAccount: "017"}); err != nil {
		t.Fatalf("RequestWithdraw: %v", err)
	}

	job := NewLedgerAuditJob(db, cfg)
	if found := job.Run(ctx); len(found) != 0 {
		t.Fatalf("unexpected mismatches: %+v", found)
	}

	// 绕过流水直接改余额
	repo := repository.NewAccountRepository(db)
	a, _ := repo.GetByID(ctx, nil, "u1")
	if err := repo.UpdateBalances(ctx, nil, "u1", a.DepositBalance+5, a.WinningBalance, a.Version); err != nil {
		t.Fatalf("UpdateBalances: %v", err)
	}
	found := job.Run(ctx)
	if len(found) != 1 || found[0].Bucket != model.BucketDeposit || found[0].Balance-found[0].JournalTotals != 5 {
		t.Fatalf("mismatches = %+v", found)
	}
}
