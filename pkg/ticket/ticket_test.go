package ticket

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeatLabel_Layout(t *testing.T) {
	// 4 seats per row, row letter advances, train suffix prefixes.
	assert.Equal(t, "80A1", SeatLabel("1080", 0))
	assert.Equal(t, "80A4", SeatLabel("1080", 3))
	assert.Equal(t, "80B1", SeatLabel("1080", 4))
	assert.Equal(t, "80C2", SeatLabel("1080", 9))
}

func TestSeatLabel_ShortTrainNumber(t *testing.T) {
	assert.Equal(t, "45A1", SeatLabel("45", 0))
	assert.Equal(t, "9A1", SeatLabel("9", 0))
}

func TestIssue_DeterministicLabels(t *testing.T) {
	a := Issue("4017", 6)
	b := Issue("4017", 6)

	require.Len(t, a.SeatLabels, 6)
	assert.Equal(t, a.SeatLabels, b.SeatLabels, "same train and size must reproduce the same layout")
	assert.Equal(t, []string{"17A1", "17A2", "17A3", "17A4", "17B1", "17B2"}, a.SeatLabels)

	// Labels within one booking never repeat.
	seen := map[string]bool{}
	for _, l := range a.SeatLabels {
		assert.False(t, seen[l], "duplicate label %s", l)
		seen[l] = true
	}
}

func TestNewNumber_ShapeAndUniqueness(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 1000; i++ {
		n := NewNumber()
		require.True(t, strings.HasPrefix(n, "TK-"))
		require.Len(t, n, 13)
		assert.False(t, seen[n], "collision at %d: %s", i, n)
		seen[n] = true
	}
}
