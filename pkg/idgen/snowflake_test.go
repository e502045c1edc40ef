package idgen

import (
	"strings"
	"sync"
	"testing"
)

func TestGenerateUnique(t *testing.T) {
	g, err := NewSnowflake(7)
	if err != nil {
		t.Fatalf("NewSnowflake: %v", err)
	}

	const workers, perWorker = 8, 2000
	var mu sync.Mutex
	seen := make(map[int64]struct{}, workers*perWorker)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				id := g.Generate()
				mu.Lock()
				if _, dup := seen[id]; dup {
					t.Errorf("duplicate id %d", id)
				}
				seen[id] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
}

func TestNewSnowflakeRejectsWorkerID(t *testing.T) {
	if _, err := NewSnowflake(-1); err == nil {
		t.Error("negative worker id accepted")
	}
	if _, err := NewSnowflake(maxWorkerID + 1); err == nil {
		t.Error("oversized worker id accepted")
	}
}

func TestPrefixes(t *testing.T) {
	if id := GenerateMatchID(); !strings.HasPrefix(id, "m") {
		t.Errorf("match id %q", id)
	}
	if id := GenerateTransactionID(); !strings.HasPrefix(id, "TXN") || len(id) < 4 {
		t.Errorf("transaction id %q", id)
	}
	if id := GenerateFlowNo(); !strings.HasPrefix(id, "FLW") {
		t.Errorf("flow no %q", id)
	}
	if ref := GenerateWithdrawReference(); !strings.HasPrefix(ref, "EXTRACT-") || len(ref) <= len("EXTRACT-") {
		t.Errorf("withdraw reference %q", ref)
	}
}

func TestNumericIDRange(t *testing.T) {
	for i := 0; i < 10000; i++ {
		n := NumericID()
		if n < 100000 || n > 999999 {
			t.Fatalf("NumericID() = %d out of range", n)
		}
	}
}
