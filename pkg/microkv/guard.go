package microkv

import (
	"sync"
	"sync/atomic"
)

// GuardStats is a snapshot of the store lock's instrumentation counters.
type GuardStats struct {
	ActiveReaders int64
	ActiveWriters int64
	MaxReaders    int64 // most readers ever holding the lock at once
	MaxWriters    int64 // most writers ever holding the lock at once
	Violations    int64 // times a reader and writer, or two writers, overlapped
	Reads         uint64
	Writes        uint64
}

// guard is the store's reader/writer lock.
// Counters are updated only while the lock is held, so a writer always
// observes zero readers unless exclusion is broken.
type guard struct {
	mu sync.RWMutex

	readers    atomic.Int64
	writers    atomic.Int64
	maxReaders atomic.Int64
	maxWriters atomic.Int64
	violations atomic.Int64
	reads      atomic.Uint64
	writes     atomic.Uint64
}

func (g *guard) rlock() {
	g.mu.RLock()
	n := g.readers.Add(1)
	raise(&g.maxReaders, n)
	if g.writers.Load() != 0 {
		g.violations.Add(1)
	}
	g.reads.Add(1)
}

func (g *guard) runlock() {
	g.readers.Add(-1)
	g.mu.RUnlock()
}

func (g *guard) lock() {
	g.mu.Lock()
	n := g.writers.Add(1)
	raise(&g.maxWriters, n)
	if n > 1 || g.readers.Load() != 0 {
		g.violations.Add(1)
	}
	g.writes.Add(1)
}

func (g *guard) unlock() {
	g.writers.Add(-1)
	g.mu.Unlock()
}

func (g *guard) stats() GuardStats {
	return GuardStats{
		ActiveReaders: g.readers.Load(),
		ActiveWriters: g.writers.Load(),
		MaxReaders:    g.maxReaders.Load(),
		MaxWriters:    g.maxWriters.Load(),
		Violations:    g.violations.Load(),
		Reads:         g.reads.Load(),
		Writes:        g.writes.Load(),
	}
}

func raise(max *atomic.Int64, n int64) {
	for {
		cur := max.Load()
		if n <= cur || max.CompareAndSwap(cur, n) {
			return
		}
	}
}
