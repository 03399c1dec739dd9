package crdt

import "sort"

// GSet is a grow-only set of integer elements.
type GSet struct {
	elements map[int64]struct{}
}

func NewGSet() *GSet {
	return &GSet{elements: map[int64]struct{}{}}
}

// Add inserts one element and reports whether it was new.
func (s *GSet) Add(v int64) bool {
	if _, ok := s.elements[v]; ok {
		return false
	}
	s.elements[v] = struct{}{}
	return true
}

func (s *GSet) Contains(v int64) bool {
	_, ok := s.elements[v]
	return ok
}

func (s *GSet) Len() int {
	return len(s.elements)
}

// Merge folds a remote snapshot in by union.
func (s *GSet) Merge(remote []int64) {
	for _, v := range remote {
		s.elements[v] = struct{}{}
	}
}

// Values returns the elements in ascending order. The wire format does not
// require an order, but a deterministic one keeps snapshots comparable.
func (s *GSet) Values() []int64 {
	out := make([]int64, 0, len(s.elements))
	for v := range s.elements {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
