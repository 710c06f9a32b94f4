package store

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInMemoryGetSetDelete(t *testing.T) {
	s := NewInMemory()

	_, ok, err := s.Get([]byte("dest-proof:abc"))
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.Set([]byte("dest-proof:abc"), []byte("proof-bytes")))
	v, ok, err := s.Get([]byte("dest-proof:abc"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("proof-bytes"), v)

	require.NoError(t, s.Delete([]byte("dest-proof:abc")))
	_, ok, err = s.Get([]byte("dest-proof:abc"))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestInMemoryListPrefix(t *testing.T) {
	s := NewInMemory()
	require.NoError(t, s.Set([]byte("dest-proof:abc"), []byte("1")))
	require.NoError(t, s.Set([]byte("get-request:abc"), []byte("2")))
	require.NoError(t, s.Set([]byte("dest-proof:def"), []byte("3")))

	keys, err := s.List([]byte("dest-proof:"))
	require.NoError(t, err)
	require.Len(t, keys, 2)
}
