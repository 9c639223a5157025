package inventory

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"railbook/pkg/models"
)

var testKey = Key{TrainID: 7, TravelDate: "2026-09-01", Class: models.ClassSecond}

func TestReserve_Basic(t *testing.T) {
	m := NewManager(15 * time.Minute)

	tok, err := m.Reserve(testKey, 10, 2)
	require.NoError(t, err)
	require.NotNil(t, tok)
	assert.Equal(t, 2, tok.Count)
	assert.Equal(t, 8, m.Available(testKey, 10))
}

func TestReserve_InsufficientSeats(t *testing.T) {
	m := NewManager(15 * time.Minute)

	_, err := m.Reserve(testKey, 3, 2)
	require.NoError(t, err)

	_, err = m.Reserve(testKey, 3, 2)
	assert.ErrorIs(t, err, models.ErrInsufficientSeats)
	assert.Equal(t, 1, m.Available(testKey, 3))
}

func TestReserve_InvalidCount(t *testing.T) {
	m := NewManager(15 * time.Minute)
	_, err := m.Reserve(testKey, 10, 0)
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestRelease_ReturnsSeatsOnce(t *testing.T) {
	m := NewManager(15 * time.Minute)

	tok, err := m.Reserve(testKey, 10, 4)
	require.NoError(t, err)
	assert.Equal(t, 6, m.Available(testKey, 10))

	require.NoError(t, m.Release(tok))
	assert.Equal(t, 10, m.Available(testKey, 10))

	// Double release must not double-decrement.
	err = m.Release(tok)
	assert.ErrorIs(t, err, models.ErrAlreadyReleased)
	assert.Equal(t, 10, m.Available(testKey, 10))
}

func TestCommit_PinsSeats(t *testing.T) {
	m := NewManager(15 * time.Minute)

	tok, err := m.Reserve(testKey, 10, 3)
	require.NoError(t, err)
	require.NoError(t, m.Commit(tok))

	// Committed seats stay gone and the token is dead.
	assert.Equal(t, 7, m.Available(testKey, 10))
	assert.ErrorIs(t, m.Release(tok), models.ErrAlreadyReleased)
	assert.ErrorIs(t, m.Commit(tok), models.ErrAlreadyReleased)
	assert.Equal(t, 7, m.Available(testKey, 10))
}

func TestReserve_ConcurrentNeverOversells(t *testing.T) {
	const capacity = 25
	m := NewManager(15 * time.Minute)

	var wg sync.WaitGroup
	var mu sync.Mutex
	granted := 0

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := m.Reserve(testKey, capacity, 1); err == nil {
				mu.Lock()
				granted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, capacity, granted)
	assert.Equal(t, 0, m.Available(testKey, capacity))
}

func TestReserve_ConcurrentMixedReleases(t *testing.T) {
	const capacity = 10
	m := NewManager(15 * time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tok, err := m.Reserve(testKey, capacity, 2)
			if err != nil {
				return
			}
			m.Release(tok)
		}()
	}
	wg.Wait()

	// Every successful hold was released; the pool must be whole again.
	assert.Equal(t, capacity, m.Available(testKey, capacity))
}

func TestToken_Expiry(t *testing.T) {
	m := NewManager(time.Minute)

	tok, err := m.Reserve(testKey, 10, 1)
	require.NoError(t, err)

	assert.False(t, tok.Expired(time.Now()))
	assert.True(t, tok.Expired(time.Now().Add(2*time.Minute)))
}

func TestKeys_AreIndependent(t *testing.T) {
	m := NewManager(15 * time.Minute)
	otherDay := Key{TrainID: 7, TravelDate: "2026-09-02", Class: models.ClassSecond}

	_, err := m.Reserve(testKey, 2, 2)
	require.NoError(t, err)

	// Same train, next day: full pool.
	tok, err := m.Reserve(otherDay, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, tok.Count)
	assert.Equal(t, 0, m.Available(testKey, 2))
	assert.Equal(t, 0, m.Available(otherDay, 2))
}

func TestRestore_SeedsCommittedSeats(t *testing.T) {
	m := NewManager(15 * time.Minute)
	m.Restore(testKey, 10, 6)

	assert.Equal(t, 4, m.Available(testKey, 10))
	_, err := m.Reserve(testKey, 10, 5)
	assert.ErrorIs(t, err, models.ErrInsufficientSeats)
}
