package recording

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestKeyedInsertionOrder verifies that keys and values iterate in
// registration order regardless of key values.
func TestKeyedInsertionOrder(t *testing.T) {
	t.Parallel()

	c := NewKeyed[string, int]()
	c.Set("zulu", 1)
	c.Set("alpha", 2)
	c.Set("mike", 3)

	require.Equal(t, []string{"zulu", "alpha", "mike"}, c.Keys())
	require.Equal(t, []int{1, 2, 3}, c.Values())
	require.Equal(t, 3, c.Len())
}

// TestKeyedReplaceKeepsPosition verifies that overwriting a key replaces the
// value without moving the entry to the end.
func TestKeyedReplaceKeepsPosition(t *testing.T) {
	t.Parallel()

	c := NewKeyed[string, int]()
	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("a", 10)

	require.Equal(t, []string{"a", "b"}, c.Keys())
	require.Equal(t, []int{10, 2}, c.Values())

	v, ok := c.Get("a")
	require.True(t, ok)
	require.Equal(t, 10, v)
}

// TestKeyedMissingKey verifies the zero value and false are returned for
// unknown keys.
func TestKeyedMissingKey(t *testing.T) {
	t.Parallel()

	c := NewKeyed[string, *ContinuousStream]()

	v, ok := c.Get("missing")
	require.False(t, ok)
	require.Nil(t, v)
}
