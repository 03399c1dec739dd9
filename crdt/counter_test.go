package crdt

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGCounter(t *testing.T) {
	c := NewGCounter()
	require.Equal(t, int64(0), c.Sum())

	c.Add("n1", 3)
	c.Add("n1", 4)
	require.Equal(t, int64(7), c.Sum())

	t.Run("merge keeps the highest value per entry", func(t *testing.T) {
		c.Merge(map[string]int64{"n2": 10, "n3": 2})
		require.Equal(t, int64(19), c.Sum())
		c.Merge(map[string]int64{"n2": 4})
		require.Equal(t, int64(19), c.Sum())
	})

	t.Run("merge never decreases an entry", func(t *testing.T) {
		c.Merge(map[string]int64{"n1": 1})
		require.Equal(t, int64(7), c.Snapshot()["n1"])
	})

	t.Run("merge is idempotent", func(t *testing.T) {
		before := c.Snapshot()
		c.Merge(before)
		require.Equal(t, before, c.Snapshot())
	})
}

func TestGCounterMergeIsCommutativeAndAssociative(t *testing.T) {
	snapshots := []map[string]int64{
		{"n1": 5, "n2": 1},
		{"n2": 7},
		{"n1": 2, "n3": 9},
	}

	a := NewGCounter()
	for _, s := range snapshots {
		a.Merge(s)
	}
	b := NewGCounter()
	for i := len(snapshots) - 1; i >= 0; i-- {
		b.Merge(snapshots[i])
	}
	require.Equal(t, a.Snapshot(), b.Snapshot())
	require.Equal(t, a.Sum(), b.Sum())

	// Replaying an overlapping subset changes nothing.
	b.Merge(snapshots[1])
	b.Merge(snapshots[1])
	require.Equal(t, a.Snapshot(), b.Snapshot())
}

func TestGCounterSnapshotIsACopy(t *testing.T) {
	c := NewGCounter()
	c.Add("n1", 2)
	snapshot := c.Snapshot()
	snapshot["n1"] = 99
	require.Equal(t, int64(2), c.Sum())
}
