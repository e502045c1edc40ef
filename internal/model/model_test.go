package model

import (
	"testing"

	"gorm.io/datatypes"
)

func TestSplitEntryFee(t *testing.T) {
	cases := []struct {
		name             string
		deposit, winning int64
		fee              int64
		wantDep, wantWin int64
		wantOK           bool
	}{
		{"deposit covers", 100, 50, 30, 30, 0, true},
		{"fee equals deposit", 50, 80, 50, 50, 0, true},
		{"spill into winnings", 30, 100, 50, 30, 20, true},
		{"fee equals total", 30, 20, 50, 30, 20, true},
		{"free match", 0, 0, 0, 0, 0, true},
		{"insufficient", 30, 10, 50, 0, 0, false},
		{"negative fee", 10, 10, -1, 0, 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dep, win, ok := SplitEntryFee(tc.deposit, tc.winning, tc.fee)
			if ok != tc.wantOK || dep != tc.wantDep || win != tc.wantWin {
				t.Fatalf("SplitEntryFee(%d,%d,%d) = (%d,%d,%v), want (%d,%d,%v)",
					tc.deposit, tc.winning, tc.fee, dep, win, ok, tc.wantDep, tc.wantWin, tc.wantOK)
			}
		})
	}
}

// 对所有 F <= D+W：F <= D 时结果为 (D-F, W)，否则为 (0, W-(F-D))
func TestSplitEntryFeeOrdering(t *testing.T) {
	for d := int64(0); d <= 20; d++ {
		for w := int64(0); w <= 20; w++ {
			for f := int64(0); f <= d+w; f++ {
				fromDep, fromWin, ok := SplitEntryFee(d, w, f)
				if !ok {
					t.Fatalf("D=%d W=%d F=%d unexpectedly rejected", d, w, f)
				}
				newD, newW := d-fromDep, w-fromWin
				if f <= d {
					if newD != d-f || newW != w {
						t.Fatalf("D=%d W=%d F=%d -> (%d,%d)", d, w, f, newD, newW)
					}
				} else if newD != 0 || newW != w-(f-d) {
					t.Fatalf("D=%d W=%d F=%d -> (%d,%d)", d, w, f, newD, newW)
				}
				if newD < 0 || newW < 0 {
					t.Fatalf("negative balance D=%d W=%d F=%d", d, w, f)
				}
			}
		}
	}
}

func TestTransactionTransitions(t *testing.T) {
	if !CanTransitionTo(TransactionStatusPending, TransactionStatusCompleted) {
		t.Error("Pending -> Completed should be allowed")
	}
	if !CanTransitionTo(TransactionStatusPending, TransactionStatusRejected) {
		t.Error("Pending -> Rejected should be allowed")
	}
	for _, from := range []string{TransactionStatusCompleted, TransactionStatusRejected} {
		for _, to := range []string{TransactionStatusPending, TransactionStatusCompleted, TransactionStatusRejected} {
			if CanTransitionTo(from, to) {
				t.Errorf("%s -> %s should be rejected", from, to)
			}
		}
	}
}

func TestMatchHelpers(t *testing.T) {
	m := &Match{
		TotalSlots:     2,
		PrizePerKill:   10,
		IsPointSystem:  true,
		PointsPerKill:  2,
		PositionPoints: datatypes.NewJSONType(DefaultPositionPoints()),
		JoinedSlots:    []string{"u1"},
	}
	if !m.HasJoined("u1") || m.HasJoined("u2") {
		t.Error("HasJoined mismatch")
	}
	if m.IsFull() {
		t.Error("one of two slots taken, should not be full")
	}
	m.JoinedSlots = append(m.JoinedSlots, "u2")
	if !m.IsFull() {
		t.Error("should be full")
	}
	if got := m.KillPayout(5); got != 50 {
		t.Errorf("KillPayout = %d", got)
	}
	if got := m.PointTotal(3, 1); got != 3*2+12 {
		t.Errorf("PointTotal rank 1 = %d", got)
	}
	if got := m.PointTotal(3, 25); got != 6 {
		t.Errorf("PointTotal unranked = %d", got)
	}
	if m.HasRoomCredentials() {
		t.Error("no credentials yet")
	}
	m.RoomID, m.RoomPass = "123", "abc"
	if !m.HasRoomCredentials() {
		t.Error("credentials published")
	}
}
