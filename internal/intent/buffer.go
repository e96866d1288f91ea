// Package intent buffers directional votes from operators on the relay side.
//
// The buffer holds at most one live Intent per operator: a newer vote from
// the same operator overwrites the older one, with no history. Entries expire
// after a fixed duration so a vanished operator's last command cannot drive
// the rover indefinitely, while an active operator's repeated-but-lagging
// votes survive between rover polls.
package intent

import (
	"sync"
	"time"

	"github.com/mfitzp/kropbot/internal/direction"
)

// DefaultTTL is how long a vote stays live without being refreshed.
const DefaultTTL = 3 * time.Second

// Intent is one operator's most recent vote. Immutable once created.
type Intent struct {
	Operator   string
	Direction  direction.Code
	ReceivedAt time.Time
}

// Buffer is a multi-producer map of operator id to latest Intent.
// All mutation is serialized through one lock; keys are independent so no
// cross-key ordering is needed.
type Buffer struct {
	mu      sync.RWMutex
	intents map[string]Intent
	ttl     time.Duration
	now     func() time.Time
}

// NewBuffer creates a buffer whose entries expire after ttl.
func NewBuffer(ttl time.Duration) *Buffer {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Buffer{
		intents: make(map[string]Intent),
		ttl:     ttl,
		now:     time.Now,
	}
}

// SetClock overrides the buffer's time source. Test seam.
func (b *Buffer) SetClock(now func() time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.now = now
}

// Record stores the latest vote for an operator, overwriting any prior one
// with a fresh timestamp. An out-of-range direction is coerced to Stop: the
// operator is treated as currently wanting no motion, never rejected.
func (b *Buffer) Record(operator string, d direction.Code) {
	if !d.Valid() {
		d = direction.Stop
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.intents[operator] = Intent{
		Operator:   operator,
		Direction:  d,
		ReceivedAt: b.now(),
	}
}

// EvictExpired removes every intent older than the buffer TTL as of now and
// returns how many were dropped. Must run immediately before answering a
// rover poll so the rover never receives stale votes.
func (b *Buffer) EvictExpired(now time.Time) int {
	threshold := now.Add(-b.ttl)
	b.mu.Lock()
	defer b.mu.Unlock()
	evicted := 0
	for op, it := range b.intents {
		if it.ReceivedAt.Before(threshold) {
			delete(b.intents, op)
			evicted++
		}
	}
	return evicted
}

// Snapshot returns the surviving votes' directions, anonymized: the
// aggregator sees the multiset of votes, never which operator cast which.
func (b *Buffer) Snapshot() []direction.Code {
	b.mu.RLock()
	defer b.mu.RUnlock()
	dirs := make([]direction.Code, 0, len(b.intents))
	for _, it := range b.intents {
		dirs = append(dirs, it.Direction)
	}
	return dirs
}

// Len returns the number of live intents.
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.intents)
}

// Janitor evicts expired intents every interval until done closes. The relay
// runs one alongside the HTTP server so the buffer does not accumulate dead
// entries between rover polls.
func (b *Buffer) Janitor(done <-chan struct{}, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case now := <-ticker.C:
			b.EvictExpired(now)
		}
	}
}
