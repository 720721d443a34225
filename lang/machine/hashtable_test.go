package machine_test

import (
	"testing"

	"github.com/mna/ely/lang/machine"
	"github.com/stretchr/testify/require"
)

func TestHashTableGetSet(t *testing.T) {
	ht := machine.NewHashTable(0)
	_, found := ht.Get("k")
	require.False(t, found)
	require.Equal(t, 0, ht.Len())

	ht.Set("k", machine.String("v"))
	v, found := ht.Get("k")
	require.True(t, found)
	require.Equal(t, machine.String("v"), v)
	require.Equal(t, 1, ht.Len())

	// overwriting an existing key must not grow the cached count.
	ht.Set("k", machine.String("v2"))
	require.Equal(t, 1, ht.Len())

	ht.Set("k2", machine.Number(2))
	require.Equal(t, 2, ht.Len())
}
