package dataType

import (
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

type denySlot struct {
	second int64
	count  int64
}

type denyShard struct {
	mu    sync.Mutex
	slots map[uint64][]denySlot
}

// DenyCounter counts denied requests per requester over a sliding window of
// one-second slots. Keys are sharded by hash so concurrent requests rarely share a lock.
type DenyCounter struct {
	shards []*denyShard
	window int64
	now    func() time.Time
}

func NewDenyCounter(shardCount int, window time.Duration) *DenyCounter {
	if shardCount < 1 {
		shardCount = 1
	}
	seconds := int64(window / time.Second)
	if seconds < 1 {
		seconds = 1
	}
	dc := &DenyCounter{
		shards: make([]*denyShard, shardCount),
		window: seconds,
		now:    time.Now,
	}
	for i := range dc.shards {
		dc.shards[i] = &denyShard{slots: make(map[uint64][]denySlot)}
	}
	return dc
}

func (dc *DenyCounter) shard(key string) (*denyShard, uint64) {
	h := xxhash.Sum64String(key)
	return dc.shards[h%uint64(len(dc.shards))], h
}

func (dc *DenyCounter) Add(key string) {
	sec := dc.now().Unix()
	s, h := dc.shard(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	ring, ok := s.slots[h]
	if !ok {
		ring = make([]denySlot, dc.window)
		s.slots[h] = ring
	}
	idx := sec % dc.window
	if ring[idx].second != sec {
		ring[idx] = denySlot{second: sec}
	}
	ring[idx].count++
}

// Query returns the denials recorded for key within the window.
func (dc *DenyCounter) Query(key string) int64 {
	sec := dc.now().Unix()
	s, h := dc.shard(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	return sumSlots(s.slots[h], sec, dc.window)
}

// Total returns the denials recorded for all keys within the window.
func (dc *DenyCounter) Total() int64 {
	sec := dc.now().Unix()
	var total int64
	for _, s := range dc.shards {
		s.mu.Lock()
		for _, ring := range s.slots {
			total += sumSlots(ring, sec, dc.window)
		}
		s.mu.Unlock()
	}
	return total
}

// GC drops keys with no denial inside the window.
func (dc *DenyCounter) GC() {
	sec := dc.now().Unix()
	for _, s := range dc.shards {
		s.mu.Lock()
		for h, ring := range s.slots {
			if sumSlots(ring, sec, dc.window) == 0 {
				delete(s.slots, h)
			}
		}
		s.mu.Unlock()
	}
}

func sumSlots(ring []denySlot, now, window int64) int64 {
	var sum int64
	for _, slot := range ring {
		if slot.second > now-window && slot.second <= now {
			sum += slot.count
		}
	}
	return sum
}

func StartDenyCounterGC(counter *DenyCounter, interval time.Duration, stopCh <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			counter.GC()
		case <-stopCh:
			return
		}
	}
}
