package service

import (
	"errors"
	"sync"
	"testing"
	"time"

	"ffarena/internal/config"
	"ffarena/internal/model"
	"ffarena/internal/repository"
)

func TestJoinDebitOrdering(t *testing.T) {
	cases := []struct {
		name             string
		deposit, winning int64
		fee              int64
		wantDep, wantWin int64
	}{
		{"deposit covers", 100, 40, 30, 70, 40},
		{"fee equals deposit", 50, 40, 50, 0, 40},
		{"spill into winnings", 30, 100, 50, 0, 80},
		{"fee equals total", 30, 20, 50, 0, 0},
		{"winnings only", 0, 60, 50, 0, 10},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := newTestEnv(t)
			e.account(t, "u1", tc.deposit, tc.winning)
			m := e.match(t, tc.fee, 10)

			match, account, err := e.matches.JoinWithWallet(e.ctx, m.ID, "u1")
			if err != nil {
				t.Fatalf("JoinWithWallet: %v", err)
			}
			wantBalances(t, account, tc.wantDep, tc.wantWin)
			if !match.HasJoined("u1") || len(match.JoinedSlots) != 1 {
				t.Fatalf("joined slots = %v", match.JoinedSlots)
			}
		})
	}
}

func TestJoinWritesFlowsPerBucket(t *testing.T) {
	e := newTestEnv(t)
	e.account(t, "u1", 30, 100)
	m := e.match(t, 50, 10)
	e.join(t, m.ID, "u1")

	flows, _, err := e.accounts.ListFlows(e.ctx, "u1", 1, 10)
	if err != nil {
		t.Fatalf("ListFlows: %v", err)
	}
	if len(flows) != 2 {
		t.Fatalf("flows = %d, want 2", len(flows))
	}
	byBucket := map[string]*model.AccountFlow{}
	for _, f := range flows {
		byBucket[f.Bucket] = f
	}
	if f := byBucket[model.BucketDeposit]; f == nil || f.Amount != -30 || f.BalanceAfter != 0 {
		t.Fatalf("deposit flow = %+v", f)
	}
	if f := byBucket[model.BucketWinning]; f == nil || f.Amount != -20 || f.BalanceAfter != 80 {
		t.Fatalf("winning flow = %+v", f)
	}
}

func TestJoinGuardsLeaveStateUnchanged(t *testing.T) {
	e := newTestEnv(t)
	e.account(t, "poor", 10, 5)
	e.account(t, "u1", 100, 0)
	e.account(t, "u2", 100, 0)
	m := e.match(t, 20, 2)

	_, _, err := e.matches.JoinWithWallet(e.ctx, m.ID, "poor")
	wantKind(t, err, KindInsufficientFunds)
	wantBalances(t, e.reload(t, "poor"), 10, 5)

	e.join(t, m.ID, "u1")
	_, _, err = e.matches.JoinWithWallet(e.ctx, m.ID, "u1")
	wantKind(t, err, KindAlreadyJoined)
	wantBalances(t, e.reload(t, "u1"), 80, 0)

	e.account(t, "u3", 100, 0)
	e.join(t, m.ID, "u2")
	_, _, err = e.matches.JoinWithWallet(e.ctx, m.ID, "u3")
	wantKind(t, err, KindMatchFull)
	wantBalances(t, e.reload(t, "u3"), 100, 0)

	if _, _, err := e.matches.JoinWithWallet(e.ctx, "m-missing", "u1"); !errors.Is(err, repository.ErrMatchNotFound) {
		t.Fatalf("missing match err = %v", err)
	}

	got, _ := e.matches.GetMatch(e.ctx, m.ID)
	if len(got.JoinedSlots) != 2 || got.JoinedSlots[0] != "u1" || got.JoinedSlots[1] != "u2" {
		t.Fatalf("slots = %v", got.JoinedSlots)
	}
}

func TestJoinCompletedMatch(t *testing.T) {
	e := newTestEnv(t)
	e.account(t, "u1", 100, 0)
	m := e.match(t, 10, 5)
	if _, err := e.settlement.CompleteMatch(e.ctx, m.ID, nil); err != nil {
		t.Fatalf("CompleteMatch: %v", err)
	}

	_, _, err := e.matches.JoinWithWallet(e.ctx, m.ID, "u1")
	wantKind(t, err, KindMatchCompleted)
}

func TestJoinCapacityAdvisoryWhenDisabled(t *testing.T) {
	e := newTestEnv(t, func(c *config.Config) { c.Business.Policy.EnforceCapacity = false })
	m := e.match(t, 0, 1)
	for _, id := range []string{"u1", "u2"} {
		e.account(t, id, 0, 0)
		e.join(t, m.ID, id)
	}
	got, _ := e.matches.GetMatch(e.ctx, m.ID)
	if len(got.JoinedSlots) != 2 {
		t.Fatalf("slots = %v", got.JoinedSlots)
	}
}

func TestConcurrentJoinsRespectCapacity(t *testing.T) {
	e := newTestEnv(t)
	m := e.match(t, 10, 3)
	ids := []string{"p1", "p2", "p3", "p4", "p5", "p6"}
	for _, id := range ids {
		e.account(t, id, 10, 0)
	}

	var wg sync.WaitGroup
	errs := make([]error, len(ids))
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			_, _, errs[i] = e.matches.JoinWithWallet(e.ctx, m.ID, id)
		}(i, id)
	}
	wg.Wait()

	joined, full := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			joined++
		case IsValidation(err, KindMatchFull):
			full++
		default:
			t.Fatalf("unexpected join error: %v", err)
		}
	}
	if joined != 3 || full != 3 {
		t.Fatalf("joined=%d full=%d, want 3/3", joined, full)
	}

	got, _ := e.matches.GetMatch(e.ctx, m.ID)
	if len(got.JoinedSlots) != 3 {
		t.Fatalf("slots = %v", got.JoinedSlots)
	}
	var charged int
	for _, id := range ids {
		if e.reload(t, id).DepositBalance == 0 {
			charged++
		}
	}
	if charged != 3 {
		t.Fatalf("charged accounts = %d, want 3", charged)
	}
}

func TestRequestDirectPayment(t *testing.T) {
	e := newTestEnv(t)
	e.account(t, "u1", 0, 0)
	m := e.match(t, 40, 10)

	_, err := e.matches.RequestDirectPayment(e.ctx, &DirectPaymentRequest{MatchID: m.ID, AccountID: "u1", Method: model.MethodBKash})
	wantKind(t, err, KindMissingField)

	trans, err := e.matches.RequestDirectPayment(e.ctx, &DirectPaymentRequest{
		MatchID: m.ID, AccountID: "u1", Method: model.MethodBKash, Reference: "BK9",
	})
	if err != nil {
		t.Fatalf("RequestDirectPayment: %v", err)
	}
	if trans.Type != model.TransactionTypeMatchJoinPayment || trans.Amount != 40 ||
		trans.MatchID != m.ID || trans.MatchTitle != m.Title || trans.TargetAccount != model.TargetMatchHQ {
		t.Fatalf("transaction = %+v", trans)
	}

	got, _ := e.matches.GetMatch(e.ctx, m.ID)
	if got.HasJoined("u1") {
		t.Fatal("direct payment request joined the match")
	}
	wantBalances(t, e.reload(t, "u1"), 0, 0)
}

func approveDirectPayment(t *testing.T, e *testEnv) *model.Match {
	t.Helper()
	e.account(t, "u1", 0, 0)
	m := e.match(t, 40, 10)
	trans, err := e.matches.RequestDirectPayment(e.ctx, &DirectPaymentRequest{
		MatchID: m.ID, AccountID: "u1", Method: model.MethodNagad, Reference: "NG1",
	})
	if err != nil {
		t.Fatalf("RequestDirectPayment: %v", err)
	}
	if _, err := e.ledger.SetTransactionStatus(e.ctx, trans.ID, model.TransactionStatusCompleted); err != nil {
		t.Fatalf("approve: %v", err)
	}
	got, err := e.matches.GetMatch(e.ctx, m.ID)
	if err != nil {
		t.Fatalf("GetMatch: %v", err)
	}
	return got
}

// 默认行为：直付审核通过只改交易状态，不自动报名，需与业务方确认
func TestDirectPaymentApprovalDoesNotJoinByDefault(t *testing.T) {
	e := newTestEnv(t)
	m := approveDirectPayment(t, e)
	if m.HasJoined("u1") {
		t.Fatal("approval joined the match with join_on_payment_approval off")
	}
	wantBalances(t, e.reload(t, "u1"), 0, 0)
}

func TestDirectPaymentApprovalJoinsWithPolicy(t *testing.T) {
	e := newTestEnv(t, func(c *config.Config) { c.Business.Policy.JoinOnPaymentApproval = true })
	m := approveDirectPayment(t, e)
	if !m.HasJoined("u1") {
		t.Fatalf("slots = %v, want u1 joined", m.JoinedSlots)
	}
	wantBalances(t, e.reload(t, "u1"), 0, 0)
}

func TestDirectPaymentApprovalRespectsCapacity(t *testing.T) {
	e := newTestEnv(t, func(c *config.Config) { c.Business.Policy.JoinOnPaymentApproval = true })
	m := e.match(t, 40, 1)
	e.account(t, "full", 40, 0)
	e.account(t, "payer", 0, 0)

	trans, err := e.matches.RequestDirectPayment(e.ctx, &DirectPaymentRequest{
		MatchID: m.ID, AccountID: "payer", Method: model.MethodBKash, Reference: "BK9",
	})
	if err != nil {
		t.Fatalf("RequestDirectPayment: %v", err)
	}
	e.join(t, m.ID, "full")

	_, err = e.ledger.SetTransactionStatus(e.ctx, trans.ID, model.TransactionStatusCompleted)
	wantKind(t, err, KindMatchFull)

	got, _ := e.matches.GetMatch(e.ctx, m.ID)
	if len(got.JoinedSlots) != 1 || got.HasJoined("payer") {
		t.Fatalf("slots = %v, want only full", got.JoinedSlots)
	}
	pending, _ := e.ledger.GetTransaction(e.ctx, trans.ID)
	if pending.Status != model.TransactionStatusPending {
		t.Fatalf("status = %s, want still pending", pending.Status)
	}

	// 名额满时仍可驳回
	if _, err := e.ledger.SetTransactionStatus(e.ctx, trans.ID, model.TransactionStatusRejected); err != nil {
		t.Fatalf("reject: %v", err)
	}
}

func TestSaveMatchDefaultsAndEdit(t *testing.T) {
	e := newTestEnv(t)
	m := e.match(t, 25, 48)

	if rules := m.Rules.Data(); len(rules) != 2 || rules[0] != "No Emulators" {
		t.Fatalf("default rules = %v", rules)
	}
	if pts := m.PositionPoints.Data(); pts[1] != 12 || pts[10] != 1 {
		t.Fatalf("default position points = %v", pts)
	}
	if m.ImageURL == "" || m.TotalMatchesCount != 1 {
		t.Fatalf("image=%q matches=%d", m.ImageURL, m.TotalMatchesCount)
	}

	e.account(t, "u1", 100, 0)
	e.join(t, m.ID, "u1")

	edited, err := e.matches.SaveMatch(e.ctx, &SaveMatchRequest{
		ID:         m.ID,
		Title:      "Renamed",
		StartTime:  time.Now().Add(2 * time.Hour),
		Type:       model.MatchTypeSquad,
		Map:        model.MatchMapKalahari,
		Version:    model.MatchVersionPC,
		EntryFee:   30,
		TotalSlots: 48,
	})
	if err != nil {
		t.Fatalf("SaveMatch edit: %v", err)
	}
	if edited.Title != "Renamed" || edited.EntryFee != 30 || !edited.HasJoined("u1") || edited.ImageURL != m.ImageURL {
		t.Fatalf("edited = %+v", edited)
	}

	_, err = e.matches.SaveMatch(e.ctx, &SaveMatchRequest{Title: "x", StartTime: time.Now(), Type: "Trio",
		Map: model.MatchMapBermuda, Version: model.MatchVersionMobile, TotalSlots: 1})
	wantKind(t, err, KindInvalidArgument)
}

func TestPublishRoomAndListing(t *testing.T) {
	e := newTestEnv(t)
	open := e.match(t, 0, 10)
	closed := e.match(t, 0, 10)
	if _, err := e.settlement.CompleteMatch(e.ctx, closed.ID, nil); err != nil {
		t.Fatalf("CompleteMatch: %v", err)
	}

	m, err := e.matches.PublishRoom(e.ctx, open.ID, " 1234 ", "pw")
	if err != nil {
		t.Fatalf("PublishRoom: %v", err)
	}
	if m.RoomID != "1234" || !m.HasRoomCredentials() {
		t.Fatalf("room = %q/%q", m.RoomID, m.RoomPass)
	}
	if _, err := e.matches.PublishRoom(e.ctx, open.ID, "1234", "pw"); err != nil {
		t.Fatalf("PublishRoom unchanged values: %v", err)
	}
	_, err = e.matches.PublishRoom(e.ctx, closed.ID, "1", "2")
	wantKind(t, err, KindMatchCompleted)

	upcoming, _ := e.matches.ListMatches(e.ctx, MatchStatusUpcoming)
	completed, _ := e.matches.ListMatches(e.ctx, MatchStatusCompleted)
	all, _ := e.matches.ListMatches(e.ctx, "")
	if len(upcoming) != 1 || len(completed) != 1 || len(all) != 2 {
		t.Fatalf("upcoming=%d completed=%d all=%d", len(upcoming), len(completed), len(all))
	}
	_, err = e.matches.ListMatches(e.ctx, "live")
	wantKind(t, err, KindInvalidArgument)

	if err := e.matches.DeleteMatch(e.ctx, open.ID); err != nil {
		t.Fatalf("DeleteMatch: %v", err)
	}
	if _, err := e.matches.GetMatch(e.ctx, open.ID); !errors.Is(err, repository.ErrMatchNotFound) {
		t.Fatalf("deleted match err = %v", err)
	}
}

func TestListJoinedAndPlayers(t *testing.T) {
	e := newTestEnv(t)
	a := e.match(t, 0, 10)
	b := e.match(t, 0, 10)
	for _, id := range []string{"u2", "u1"} {
		e.account(t, id, 0, 0)
		e.join(t, a.ID, id)
	}
	e.join(t, b.ID, "u1")

	joined, err := e.matches.ListJoined(e.ctx, "u2")
	if err != nil || len(joined) != 1 || joined[0].ID != a.ID {
		t.Fatalf("ListJoined(u2) = %v, %v", joined, err)
	}

	players, err := e.matches.ListPlayers(e.ctx, a.ID)
	if err != nil {
		t.Fatalf("ListPlayers: %v", err)
	}
	if len(players) != 2 || players[0].ID != "u2" || players[1].ID != "u1" {
		t.Fatalf("players out of join order")
	}
}
