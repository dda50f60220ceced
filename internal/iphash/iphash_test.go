package iphash

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashStableAndSalted(t *testing.T) {
	require := require.New(t)

	h := New("salt-a")
	first := h.Hash("203.0.113.7")
	require.Len(first, 64)
	require.Equal(first, h.Hash("203.0.113.7"))
	require.NotEqual(first, h.Hash("203.0.113.8"))

	// A different salt must produce unrelated hashes.
	require.NotEqual(first, New("salt-b").Hash("203.0.113.7"))
}

func TestHashEmptyAddress(t *testing.T) {
	require := require.New(t)

	h := New("salt")
	require.Len(h.Hash(""), 64)
	require.Equal(h.Hash(""), h.Hash(""))
}
