package auth

import (
	"sync"
	"time"
)

// LoginAttemptState is the failure window and block of one throttle key.
type LoginAttemptState struct {
	WindowStart  time.Time
	FailureCount int
	BlockedUntil time.Time
	// ExpiresAt is the last instant the record is still live.
	ExpiresAt time.Time
}

func (s LoginAttemptState) expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// AttemptStore keeps LoginAttemptState per key with expiry. Update must
// run fn atomically with respect to other calls for the same key.
//
// fn receives the current state (found is false when absent or expired)
// and returns the state to store, or keep=false to delete the key.
type AttemptStore interface {
	Load(key string, now time.Time) (LoginAttemptState, bool)
	Update(key string, now time.Time, fn func(state LoginAttemptState, found bool) (next LoginAttemptState, keep bool)) LoginAttemptState
	Delete(key string)
}

type attemptSlot struct {
	mu    sync.Mutex
	state LoginAttemptState
	set   bool
	// dead marks a slot that was removed from the map; holders must reload.
	dead bool
}

// DefaultSweepInterval is how often Update scans for expired records when
// no interval is configured.
const DefaultSweepInterval = time.Minute

// MemoryAttemptStore is a process-local AttemptStore. Each key has its own
// lock; expired records are dropped when they are next touched, and Update
// sweeps all keys at most once per sweep interval so keys that are never
// seen again are freed too. It does not share state between processes, so
// every node of a multi-node deployment throttles independently.
type MemoryAttemptStore struct {
	slots sync.Map // string -> *attemptSlot

	sweepMu    sync.Mutex
	sweepEvery time.Duration
	lastSweep  time.Time
}

type MemoryStoreOption func(*MemoryAttemptStore)

// WithSweepInterval sets the minimum time between full sweeps.
func WithSweepInterval(d time.Duration) MemoryStoreOption {
	return func(m *MemoryAttemptStore) {
		if d > 0 {
			m.sweepEvery = d
		}
	}
}

func NewMemoryAttemptStore(opts ...MemoryStoreOption) *MemoryAttemptStore {
	m := &MemoryAttemptStore{sweepEvery: DefaultSweepInterval}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *MemoryAttemptStore) Load(key string, now time.Time) (LoginAttemptState, bool) {
	v, ok := m.slots.Load(key)
	if !ok {
		return LoginAttemptState{}, false
	}
	slot := v.(*attemptSlot)

	slot.mu.Lock()
	defer slot.mu.Unlock()

	if slot.dead || !slot.set {
		return LoginAttemptState{}, false
	}
	if slot.state.expired(now) {
		m.evictLocked(key, slot)
		return LoginAttemptState{}, false
	}
	return slot.state, true
}

func (m *MemoryAttemptStore) Update(key string, now time.Time, fn func(LoginAttemptState, bool) (LoginAttemptState, bool)) LoginAttemptState {
	m.sweep(now)
	for {
		v, _ := m.slots.LoadOrStore(key, &attemptSlot{})
		slot := v.(*attemptSlot)

		slot.mu.Lock()
		if slot.dead {
			slot.mu.Unlock()
			continue
		}

		current, found := slot.state, slot.set && !slot.state.expired(now)
		if !found {
			current = LoginAttemptState{}
		}

		next, keep := fn(current, found)
		if !keep {
			m.evictLocked(key, slot)
			slot.mu.Unlock()
			return LoginAttemptState{}
		}

		slot.state, slot.set = next, true
		slot.mu.Unlock()
		return next
	}
}

func (m *MemoryAttemptStore) Delete(key string) {
	v, ok := m.slots.Load(key)
	if !ok {
		return
	}
	slot := v.(*attemptSlot)

	slot.mu.Lock()
	defer slot.mu.Unlock()
	if !slot.dead {
		m.evictLocked(key, slot)
	}
}

// sweep evicts every expired record, at most once per sweep interval. It
// must be called without any slot lock held.
func (m *MemoryAttemptStore) sweep(now time.Time) {
	m.sweepMu.Lock()
	if !m.lastSweep.IsZero() && now.Sub(m.lastSweep) < m.sweepEvery {
		m.sweepMu.Unlock()
		return
	}
	m.lastSweep = now
	m.sweepMu.Unlock()

	m.slots.Range(func(k, v any) bool {
		slot := v.(*attemptSlot)
		slot.mu.Lock()
		if !slot.dead && slot.set && slot.state.expired(now) {
			m.evictLocked(k.(string), slot)
		}
		slot.mu.Unlock()
		return true
	})
}

// evictLocked removes slot from the map; slot.mu must be held.
func (m *MemoryAttemptStore) evictLocked(key string, slot *attemptSlot) {
	slot.dead = true
	slot.set = false
	m.slots.CompareAndDelete(key, slot)
}

// Len reports the number of keys currently held, expired or not.
func (m *MemoryAttemptStore) Len() int {
	n := 0
	m.slots.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
