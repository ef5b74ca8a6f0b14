package dataType

import (
	"sync"
	"testing"
	"time"
)

func TestDenyCounterWindow(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	dc := NewDenyCounter(4, time.Minute)
	dc.now = func() time.Time { return now }

	dc.Add("203.0.113.1")
	dc.Add("203.0.113.1")
	dc.Add("203.0.113.1")
	dc.Add("8.8.8.8")

	if got := dc.Query("203.0.113.1"); got != 3 {
		t.Errorf("Query = %d, want 3", got)
	}
	if got := dc.Total(); got != 4 {
		t.Errorf("Total = %d, want 4", got)
	}

	now = now.Add(59 * time.Second)
	if got := dc.Query("203.0.113.1"); got != 3 {
		t.Errorf("Query inside window = %d, want 3", got)
	}

	now = now.Add(time.Second)
	if got := dc.Total(); got != 0 {
		t.Errorf("Total after window = %d, want 0", got)
	}

	dc.GC()
	for _, s := range dc.shards {
		if len(s.slots) != 0 {
			t.Errorf("GC left %d keys in a shard", len(s.slots))
		}
	}
}

func TestDenyCounterSlotReuse(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	dc := NewDenyCounter(1, 10*time.Second)
	dc.now = func() time.Time { return now }

	dc.Add("k")
	now = now.Add(10 * time.Second) // same slot index, next lap
	dc.Add("k")
	if got := dc.Query("k"); got != 1 {
		t.Errorf("Query after lap = %d, want 1", got)
	}
}

func TestDenyCounterConcurrency(t *testing.T) {
	dc := NewDenyCounter(8, time.Minute)
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				dc.Add("198.51.100.7")
			}
		}()
	}
	wg.Wait()
	if got := dc.Query("198.51.100.7"); got != 1000 {
		t.Errorf("Query = %d, want 1000", got)
	}
}
