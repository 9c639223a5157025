package inventory

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"railbook/pkg/models"
)

// Key identifies one seat pool: a train, a travel date and a class.
type Key struct {
	TrainID    int
	TravelDate string // YYYY-MM-DD
	Class      models.TicketClass
}

func (k Key) String() string {
	return fmt.Sprintf("%d:%s:%s", k.TrainID, k.TravelDate, k.Class)
}

// Token is the opaque handle for one successful reservation. Required to
// release or commit exactly that reservation.
type Token struct {
	ID        string
	Key       Key
	Count     int
	ExpiresAt time.Time
}

// Expired reports whether the hold window for this token has passed.
func (t *Token) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

type entry struct {
	mu       sync.Mutex
	capacity int
	reserved int
	holds    map[string]*Token // uncommitted holds; committed seats only move reserved
}

// Manager owns every seat counter. All mutation goes through
// Reserve/Release/Commit; the raw counters are never exposed.
type Manager struct {
	mu         sync.RWMutex
	entries    map[Key]*entry
	holdWindow time.Duration
}

func NewManager(holdWindow time.Duration) *Manager {
	return &Manager{
		entries:    make(map[Key]*entry),
		holdWindow: holdWindow,
	}
}

// entryFor lazily creates the pool for a key. Capacity is pinned on first
// touch from the catalog value the caller supplies.
func (m *Manager) entryFor(key Key, capacity int) *entry {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()
	if ok {
		return e
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok = m.entries[key]; ok {
		return e
	}
	e = &entry{capacity: capacity, holds: make(map[string]*Token)}
	m.entries[key] = e
	return e
}

// Reserve atomically checks capacity and claims count seats. The check and
// the increment happen under the same per-key lock, so concurrent callers
// can never drive reserved above capacity.
func (m *Manager) Reserve(key Key, capacity, count int) (*Token, error) {
	if count <= 0 {
		return nil, fmt.Errorf("%w: reserve count %d", models.ErrInvalidInput, count)
	}

	e := m.entryFor(key, capacity)
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.reserved+count > e.capacity {
		return nil, fmt.Errorf("%w: %d requested, %d left on %s",
			models.ErrInsufficientSeats, count, e.capacity-e.reserved, key)
	}

	tok := &Token{
		ID:        uuid.NewString(),
		Key:       key,
		Count:     count,
		ExpiresAt: time.Now().Add(m.holdWindow),
	}
	e.reserved += count
	e.holds[tok.ID] = tok
	return tok, nil
}

// Release gives the token's seats back. Exactly-once: a second release of
// the same token returns ErrAlreadyReleased and leaves the counter alone.
// Committed tokens cannot be released.
func (m *Manager) Release(tok *Token) error {
	e := m.lookup(tok.Key)
	if e == nil {
		return models.ErrAlreadyReleased
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, held := e.holds[tok.ID]; !held {
		return models.ErrAlreadyReleased
	}
	delete(e.holds, tok.ID)
	e.reserved -= tok.Count
	return nil
}

// Commit makes the reservation permanent: the seats stay reserved and the
// token can no longer be released or expired.
func (m *Manager) Commit(tok *Token) error {
	e := m.lookup(tok.Key)
	if e == nil {
		return models.ErrAlreadyReleased
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, held := e.holds[tok.ID]; !held {
		return models.ErrAlreadyReleased
	}
	delete(e.holds, tok.ID)
	return nil
}

// Available is an approximate read for search results. A reserve right
// after a positive answer may still lose the race; callers retry.
func (m *Manager) Available(key Key, capacity int) int {
	e := m.lookup(key)
	if e == nil {
		return capacity
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.capacity - e.reserved
}

// Restore pre-seeds a pool with already-committed seats, used at startup
// to rebuild counters from confirmed bookings in the store.
func (m *Manager) Restore(key Key, capacity, reserved int) {
	e := m.entryFor(key, capacity)
	e.mu.Lock()
	e.reserved = reserved
	e.mu.Unlock()
}

func (m *Manager) lookup(key Key) *entry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.entries[key]
}
