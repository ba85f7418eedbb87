package fsys

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNotes(t *testing.T) {
	var n Notes
	require.Zero(t, n.Count())

	n.AddI("scanned %d files", 3)
	n.AddW("Found %d conflicting block(s)", 1)
	n.AddE("bad extent")

	require.Equal(t, 3, n.Count())
	require.True(t, n.Has("1 conflicting block"))
	require.False(t, n.Has("2 conflicting"))
	require.Equal(t, "I: scanned 3 files\nW: Found 1 conflicting block(s)\nE: bad extent\n", n.String())

	list := n.List()
	list[0].Text = "changed"
	require.Equal(t, "scanned 3 files", n.List()[0].Text)

	n.Clear()
	require.Zero(t, n.Count())
	require.Empty(t, n.String())
}
