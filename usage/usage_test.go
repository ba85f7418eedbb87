package usage

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type file struct{ name string }

func TestDerivedClaims(t *testing.T) {
	m := NewDerived(20)
	a, b := &file{"A"}, &file{"B"}

	require.NoError(t, m.MarkSystem(0, 6))
	require.NoError(t, m.ClaimRange(6, 10, a))
	require.NoError(t, m.ClaimRange(9, 12, b))

	require.Same(t, a, m.Owner(9))
	require.True(t, m.IsConflicted(9))
	require.False(t, m.IsConflicted(10))
	require.Equal(t, System, m.Owner(0))

	s := m.Analyze()
	require.Equal(t, Summary{MarkedUsed: 11, Conflicts: 1}, s)
	require.Equal(t, 8, m.FreeCount())
	require.Equal(t, []Owner{a, b}, m.ConflictingOwners())

	// claiming the same block twice for one owner is not a conflict
	require.NoError(t, m.Claim(6, a))
	require.False(t, m.IsConflicted(6))

	require.Error(t, m.Claim(20, a))
	require.Error(t, m.Claim(-1, a))
}

func TestRelease(t *testing.T) {
	m := NewDerived(10)
	a, b := &file{"A"}, &file{"B"}

	require.NoError(t, m.ClaimRange(2, 5, a))
	require.NoError(t, m.ClaimRange(4, 6, b))

	freed := m.Release(a)
	require.Equal(t, 2, freed)
	require.Same(t, b, m.Owner(4))
	require.False(t, m.IsConflicted(4))
	require.Nil(t, m.Owner(2))
	require.Equal(t, Summary{MarkedUsed: 2}, m.Analyze())

	require.Equal(t, 2, m.Release(b))
	require.Equal(t, 10, m.FreeCount())
	require.Equal(t, Summary{}, m.Analyze())
}

func TestBitmapAnalysis(t *testing.T) {
	m := New(8)
	a := &file{"A"}

	require.NoError(t, m.ClaimRange(0, 3, a))
	require.NoError(t, m.SetMarked(0, true))
	require.NoError(t, m.SetMarked(1, true))
	// block 2 claimed but free in the bitmap, block 5 marked with no owner
	require.NoError(t, m.SetMarked(5, true))

	require.Equal(t, Summary{
		MarkedUsed:    2,
		UnusedMarked:  1,
		UsedNotMarked: 1,
	}, m.Analyze())
}
