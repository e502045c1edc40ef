package event

import (
	"testing"
)

func TestSubscribeByKind(t *testing.T) {
	bus := NewBus()

	var accounts, matches, all int
	bus.Subscribe(KindAccounts, func(Event) { accounts++ })
	bus.Subscribe(KindMatches, func(Event) { matches++ })
	bus.SubscribeAll(func(Event) { all++ })

	bus.Publish(New(KindAccounts, "update", "u1"), New(KindTransactions, "create", "t1"))

	if accounts != 1 || matches != 0 || all != 2 {
		t.Fatalf("accounts=%d matches=%d all=%d", accounts, matches, all)
	}
}

func TestUnsubscribe(t *testing.T) {
	bus := NewBus()

	calls := 0
	cancel := bus.Subscribe(KindSettings, func(Event) { calls++ })
	bus.Publish(New(KindSettings, "update"))
	cancel()
	bus.Publish(New(KindSettings, "update"))

	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestPanickingSubscriberIsIsolated(t *testing.T) {
	bus := NewBus()

	got := 0
	bus.Subscribe(KindMatches, func(Event) { panic("boom") })
	bus.Subscribe(KindMatches, func(Event) { got++ })

	bus.Publish(New(KindMatches, "complete", "m1"))
	if got != 1 {
		t.Fatalf("healthy subscriber ran %d times", got)
	}
}

func TestEventPayload(t *testing.T) {
	bus := NewBus()

	var seen Event
	bus.Subscribe(KindMatches, func(e Event) { seen = e })
	bus.Publish(New(KindMatches, "join", "m1", "u1"))

	if seen.Action != "join" || len(seen.IDs) != 2 || seen.IDs[0] != "m1" || seen.At.IsZero() {
		t.Fatalf("unexpected event %+v", seen)
	}
}

func TestScopedTo(t *testing.T) {
	settle := New(KindAccounts, "settle", "u1", "u2")
	if e, ok := settle.ScopedTo("u2"); !ok || len(e.IDs) != 1 || e.IDs[0] != "u2" {
		t.Fatalf("settle scoped to u2 = %+v, %v", e, ok)
	}
	if _, ok := settle.ScopedTo("u3"); ok {
		t.Fatal("u3 sees other accounts")
	}
	if len(settle.IDs) != 2 {
		t.Fatalf("original event mutated: %v", settle.IDs)
	}

	trans := New(KindTransactions, "create", "TXN1").WithOwners("u1")
	if _, ok := trans.ScopedTo("u2"); ok {
		t.Fatal("u2 sees u1 transaction")
	}
	if e, ok := trans.ScopedTo("u1"); !ok || e.IDs[0] != "TXN1" {
		t.Fatalf("owner view = %+v, %v", e, ok)
	}

	if _, ok := New(KindTransactions, "create", "TXN2").ScopedTo("u1"); ok {
		t.Fatal("ownerless transaction event delivered")
	}
	if _, ok := New(KindMatches, "room", "m1").ScopedTo("u9"); !ok {
		t.Fatal("match events are public")
	}
}
