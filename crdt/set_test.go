package crdt

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGSet(t *testing.T) {
	s := NewGSet()
	require.True(t, s.Add(2))
	require.True(t, s.Add(4))
	require.False(t, s.Add(2))
	require.Equal(t, 2, s.Len())

	t.Run("merge is union", func(t *testing.T) {
		s.Merge([]int64{1, 2, 3})
		require.Equal(t, []int64{1, 2, 3, 4}, s.Values())
	})

	t.Run("repeated merge of the same snapshot is a no-op", func(t *testing.T) {
		before := s.Values()
		s.Merge(before)
		require.Equal(t, before, s.Values())
	})

	t.Run("merge result is a superset of both inputs", func(t *testing.T) {
		remote := []int64{7, 8}
		s.Merge(remote)
		for _, v := range remote {
			require.True(t, s.Contains(v))
		}
		require.True(t, s.Contains(4))
	})
}

func TestGSetMergeIsCommutative(t *testing.T) {
	a := NewGSet()
	a.Merge([]int64{1, 2})
	a.Merge([]int64{2, 3})

	b := NewGSet()
	b.Merge([]int64{2, 3})
	b.Merge([]int64{1, 2})

	require.Equal(t, a.Values(), b.Values())
}
