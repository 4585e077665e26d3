package state

import (
	"iter"
)

// Set is a mutable set of configurations under Config.Equal.
//
// A Set is not safe for concurrent use. Searches running in parallel should
// each own a Set, or serialize access themselves.
type Set struct {
	buckets map[uint64][]Config
	size    int
}

func NewSet() *Set {
	return &Set{buckets: make(map[uint64][]Config)}
}

// Add inserts c if no equal configuration is present and returns s.
func (s *Set) Add(c Config) *Set {
	s.Insert(c)
	return s
}

// Insert adds c and reports whether it was not already present.
func (s *Set) Insert(c Config) bool {
	h := c.Hash()
	bucket := s.buckets[h]
	for _, existing := range bucket {
		if existing.Equal(c) {
			return false
		}
	}
	s.buckets[h] = append(bucket, c)
	s.size++
	return true
}

func (s *Set) Contains(c Config) bool {
	for _, existing := range s.buckets[c.Hash()] {
		if existing.Equal(c) {
			return true
		}
	}
	return false
}

func (s *Set) Len() int {
	return s.size
}

// All yields every configuration in no particular order. s must not be
// modified while the sequence is being ranged over.
func (s *Set) All() iter.Seq[Config] {
	return func(yield func(Config) bool) {
		for _, bucket := range s.buckets {
			for _, c := range bucket {
				if !yield(c) {
					return
				}
			}
		}
	}
}

// Slice returns the configurations of s in no particular order.
func (s *Set) Slice() []Config {
	out := make([]Config, 0, s.size)
	for c := range s.All() {
		out = append(out, c)
	}
	return out
}
