// Package crdt implements the state-based replicated data types gossiped
// between nodes. Merging two states always yields a state at least as
// complete as both inputs; merge is commutative, idempotent and associative.
//
// The types are not safe for concurrent use on their own: the owning service
// serializes access under its state lock.
package crdt

// GCounter is a grow-only counter: one non-negative increment total per node.
// A node only ever increments its own entry, so a remote entry can never
// report a smaller value than one previously seen, and per-key max is a valid
// merge.
type GCounter struct {
	counts map[string]int64
}

func NewGCounter() *GCounter {
	return &GCounter{counts: map[string]int64{}}
}

// Add increments the entry owned by the given node.
func (c *GCounter) Add(node string, delta int64) {
	c.counts[node] += delta
}

// Merge folds a remote snapshot in, keeping the highest value per entry.
// Merging never decreases any entry.
func (c *GCounter) Merge(remote map[string]int64) {
	for node, count := range remote {
		if count > c.counts[node] {
			c.counts[node] = count
		}
	}
}

// Sum is the locally visible global value.
func (c *GCounter) Sum() int64 {
	total := int64(0)
	for _, count := range c.counts {
		total += count
	}
	return total
}

// Snapshot copies the full state for gossiping.
func (c *GCounter) Snapshot() map[string]int64 {
	out := make(map[string]int64, len(c.counts))
	for node, count := range c.counts {
		out[node] = count
	}
	return out
}
