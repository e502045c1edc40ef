package service

import (
	"testing"

	"ffarena/internal/repository"
)

func TestLoadOrCreateKeepsNumericID(t *testing.T) {
	e := newTestEnv(t)

	first, err := e.accounts.LoadOrCreate(e.ctx, Identity{ID: "uid-1", Email: "rahim@example.com"})
	if err != nil {
		t.Fatalf("LoadOrCreate: %v", err)
	}
	second, err := e.accounts.LoadOrCreate(e.ctx, Identity{ID: "uid-1", DisplayName: "Other"})
	if err != nil {
		t.Fatalf("LoadOrCreate: %v", err)
	}

	if first.NumericID != second.NumericID {
		t.Fatalf("numeric id changed: %d -> %d", first.NumericID, second.NumericID)
	}
	if first.NumericID < 100000 || first.NumericID > 999999 {
		t.Fatalf("numeric id %d not 6 digits", first.NumericID)
	}
	if second.Name != "rahim" {
		t.Fatalf("existing account renamed to %q", second.Name)
	}
	if first.IsAdmin || first.TotalBalance() != 0 || first.TotalMatchesJoined != 0 {
		t.Fatalf("new account not zeroed: %+v", first)
	}
}

func TestNewAccountDisplayName(t *testing.T) {
	cases := []struct {
		identity Identity
		want     string
	}{
		{Identity{ID: "a", DisplayName: "Karim", Email: "k@x.com"}, "Karim"},
		{Identity{ID: "a", Email: "karim.k@x.com"}, "karim.k"},
		{Identity{ID: "a", Phone: "+8801700000000"}, "+8801700000000"},
		{Identity{ID: "a"}, "Soldier"},
	}
	for _, tc := range cases {
		if got := NewAccount(tc.identity).Name; got != tc.want {
			t.Errorf("NewAccount(%+v).Name = %q, want %q", tc.identity, got, tc.want)
		}
	}
}

func TestLoadOrCreateRequiresIdentity(t *testing.T) {
	e := newTestEnv(t)
	_, err := e.accounts.LoadOrCreate(e.ctx, Identity{})
	wantKind(t, err, KindMissingField)
}

func TestUpdateProfileAndAdmin(t *testing.T) {
	e := newTestEnv(t)
	e.account(t, "u1", 0, 0)

	a, err := e.accounts.UpdateProfile(e.ctx, "u1", " Nayeem ", "017", "")
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if a.Name != "Nayeem" || a.Phone != "017" {
		t.Fatalf("profile = %+v", a)
	}
	if _, err := e.accounts.UpdateProfile(e.ctx, "u1", "  ", "", ""); !IsValidation(err, KindMissingField) {
		t.Fatalf("blank name err = %v", err)
	}

	if err := e.accounts.SetAdmin(e.ctx, "u1", true); err != nil {
		t.Fatalf("SetAdmin: %v", err)
	}
	if err := e.accounts.SetAdmin(e.ctx, "u1", true); err != nil {
		t.Fatalf("SetAdmin repeated: %v", err)
	}
	if !e.reload(t, "u1").IsAdmin {
		t.Fatal("admin flag not stored")
	}
	if err := e.accounts.SetAdmin(e.ctx, "missing", true); err != repository.ErrAccountNotFound {
		t.Fatalf("SetAdmin(missing) err = %v", err)
	}
}

func TestLeaderboardOrderingAndCache(t *testing.T) {
	e := newTestEnv(t)
	m := e.match(t, 0, 10)
	for _, id := range []string{"a", "b", "c"} {
		e.account(t, id, 0, 0)
		e.join(t, m.ID, id)
	}
	_, err := e.settlement.CompleteMatch(e.ctx, m.ID, []MatchResult{
		{AccountID: "a", Kills: 2, Earnings: 100},
		{AccountID: "b", Kills: 7, Earnings: 100},
		{AccountID: "c", Kills: 9, Earnings: 50},
	})
	if err != nil {
		t.Fatalf("CompleteMatch: %v", err)
	}

	board, err := e.accounts.Leaderboard(e.ctx)
	if err != nil {
		t.Fatalf("Leaderboard: %v", err)
	}
	got := []string{board[0].ID, board[1].ID, board[2].ID}
	if got[0] != "b" || got[1] != "a" || got[2] != "c" {
		t.Fatalf("order = %v, want [b a c]", got)
	}
	if board[0].Rank != 1 || board[2].Rank != 3 {
		t.Fatalf("ranks = %d, %d", board[0].Rank, board[2].Rank)
	}

	// 缓存命中后，账户变动事件应使其失效
	if !e.mr.Exists("ffarena:leaderboard") {
		t.Fatal("leaderboard not cached")
	}
	e.account(t, "d", 0, 0)
	if e.mr.Exists("ffarena:leaderboard") {
		t.Fatal("leaderboard cache survived an accounts change")
	}
}
