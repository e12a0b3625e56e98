package relay

import (
	"sync"
	"time"

	"ltprelay/internal/domain"
)

type throttleEntry struct {
	mu            sync.Mutex
	latest        domain.PriceUpdate
	has           bool
	emittedSeq    uint64
	lastEmittedAt time.Time
}

// Throttler coalesces the tick stream into at most one update per
// instrument per flush period, last value wins. The entry set is fixed at
// construction (the instrument set is immutable for the process), so
// Record and Flush only ever take per-entry locks.
type Throttler struct {
	order   []string // security ids in configured order, for stable flush output
	entries map[string]*throttleEntry
}

func NewThrottler(instruments []domain.Instrument) *Throttler {
	order := make([]string, 0, len(instruments))
	entries := make(map[string]*throttleEntry, len(instruments))
	for _, inst := range instruments {
		order = append(order, inst.SecurityID)
		entries[inst.SecurityID] = &throttleEntry{}
	}
	return &Throttler{order: order, entries: entries}
}

// Record overwrites the pending update for the tick's instrument. O(1),
// non-blocking beyond the entry lock.
func (t *Throttler) Record(u domain.PriceUpdate) {
	e, ok := t.entries[u.Instrument.SecurityID]
	if !ok {
		return
	}
	e.mu.Lock()
	e.latest = u
	e.has = true
	e.mu.Unlock()
}

// Flush returns the newest update for every instrument that ticked since
// the previous flush. Instruments with nothing new yield nothing, so a
// quiet market produces no messages.
func (t *Throttler) Flush(now time.Time) []domain.PriceUpdate {
	var out []domain.PriceUpdate
	for _, id := range t.order {
		e := t.entries[id]
		e.mu.Lock()
		if e.has && e.latest.Sequence > e.emittedSeq {
			e.emittedSeq = e.latest.Sequence
			e.lastEmittedAt = now
			out = append(out, e.latest)
		}
		e.mu.Unlock()
	}
	return out
}
