package service

import (
	"context"
	"testing"
	"time"

	"ffarena/internal/config"
	"ffarena/internal/event"
	"ffarena/internal/model"
	"ffarena/internal/repository"
	"ffarena/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

type testEnv struct {
	ctx        context.Context
	db         *gorm.DB
	mr         *miniredis.Miniredis
	rdb        *redis.Client
	cfg        *config.Config
	bus        *event.Bus
	accounts   *AccountService
	ledger     *LedgerService
	matches    *MatchService
	settlement *SettlementService
	settings   *SettingsService
	notes      *NotificationService
}

func newTestEnv(t *testing.T, mutate ...func(*config.Config)) *testEnv {
	t.Helper()

	cfg := testutil.NewConfig()
	for _, m := range mutate {
		m(cfg)
	}
	db := testutil.NewDB(t)
	mr, rdb := testutil.NewRedis(t)
	bus := event.NewBus()

	return &testEnv{
		ctx:        context.Background(),
		db:         db,
		mr:         mr,
		rdb:        rdb,
		cfg:        cfg,
		bus:        bus,
		accounts:   NewAccountService(db, rdb, cfg, bus),
		ledger:     NewLedgerService(db, rdb, cfg, bus),
		matches:    NewMatchService(db, rdb, cfg, bus),
		settlement: NewSettlementService(db, rdb, cfg, bus),
		settings:   NewSettingsService(db, cfg, bus),
		notes:      NewNotificationService(db, rdb, cfg),
	}
}

// account 创建账户并直接写入两个余额桶
func (e *testEnv) account(t *testing.T, id string, deposit, winning int64) *model.Account {
	t.Helper()

	a, err := e.accounts.LoadOrCreate(e.ctx, Identity{ID: id, DisplayName: id})
	if err != nil {
		t.Fatalf("LoadOrCreate(%s): %v", id, err)
	}
	if deposit == 0 && winning == 0 {
		return a
	}
	repo := repository.NewAccountRepository(e.db)
	if err := repo.UpdateBalances(e.ctx, nil, id, deposit, winning, a.Version); err != nil {
		t.Fatalf("UpdateBalances(%s): %v", id, err)
	}
	return e.reload(t, id)
}

func (e *testEnv) reload(t *testing.T, id string) *model.Account {
	t.Helper()
	a, err := e.accounts.GetAccount(e.ctx, id)
	if err != nil {
		t.Fatalf("GetAccount(%s): %v", id, err)
	}
	return a
}

func (e *testEnv) match(t *testing.T, fee int64, slots int) *model.Match {
	t.Helper()
	m, err := e.matches.SaveMatch(e.ctx, &SaveMatchRequest{
		Title:      "Elite Battle",
		StartTime:  time.Now().Add(time.Hour),
		Type:       model.MatchTypeSolo,
		Map:        model.MatchMapBermuda,
		Version:    model.MatchVersionMobile,
		EntryFee:   fee,
		PrizePool:  1000,
		TotalSlots: slots,
	})
	if err != nil {
		t.Fatalf("SaveMatch: %v", err)
	}
	return m
}

func (e *testEnv) join(t *testing.T, matchID, accountID string) {
	t.Helper()
	if _, _, err := e.matches.JoinWithWallet(e.ctx, matchID, accountID); err != nil {
		t.Fatalf("JoinWithWallet(%s, %s): %v", matchID, accountID, err)
	}
}

func wantBalances(t *testing.T, a *model.Account, deposit, winning int64) {
	t.Helper()
	if a.DepositBalance != deposit || a.WinningBalance != winning {
		t.Fatalf("%s balances = (%d, %d), want (%d, %d)", a.ID, a.DepositBalance, a.WinningBalance, deposit, winning)
	}
}

func wantKind(t *testing.T, err error, kind ValidationKind) {
	t.Helper()
	if !IsValidation(err, kind) {
		t.Fatalf("err = %v, want ValidationError %s", err, kind)
	}
}
