// Package slab implements a fixed-capacity pool of uniformly sized records.
//
// Records are addressed by a byte index so that a slab index fits in one
// ring-buffer element; capacity is therefore at most 256.
package slab

import "errors"

// MaxCapacity is the largest slab a byte index can address.
const MaxCapacity = 256

var (
	ErrFull       = errors.New("slab: no free record")
	ErrBadIndex   = errors.New("slab: index out of range")
	ErrDoubleFree = errors.New("slab: record already free")
)

const none = -1

// Slab holds cap records of T. Alloc and Free are O(1).
//
// Slab is not safe for concurrent use; callers provide the lock.
type Slab[T any] struct {
	recs  []T
	next  []int16 // free-list link, valid while the record is free
	used  []bool
	free  int16
	inUse int
}

// New creates a slab with n records.
func New[T any](n int) (*Slab[T], error) {
	if n <= 0 || n > MaxCapacity {
		return nil, ErrBadIndex
	}
	s := &Slab[T]{
		recs: make([]T, n),
		next: make([]int16, n),
		used: make([]bool, n),
	}
	for i := 0; i < n-1; i++ {
		s.next[i] = int16(i + 1)
	}
	s.next[n-1] = none
	s.free = 0
	return s, nil
}

// Cap returns the number of records.
func (s *Slab[T]) Cap() int { return len(s.recs) }

// InUse returns the number of allocated records.
func (s *Slab[T]) InUse() int { return s.inUse }

// Alloc takes a free record without blocking.
func (s *Slab[T]) Alloc() (uint8, *T, error) {
	if s.free == none {
		return 0, nil, ErrFull
	}
	i := s.free
	s.free = s.next[i]
	s.used[i] = true
	s.inUse++
	return uint8(i), &s.recs[i], nil
}

// At returns the record at idx. It does not check allocation state.
func (s *Slab[T]) At(idx uint8) *T {
	if int(idx) >= len(s.recs) {
		return nil
	}
	return &s.recs[idx]
}

// Free returns the record at idx to the pool and zeroes it.
func (s *Slab[T]) Free(idx uint8) error {
	i := int16(idx)
	if int(i) >= len(s.recs) {
		return ErrBadIndex
	}
	if !s.used[i] {
		return ErrDoubleFree
	}
	var zero T
	s.recs[i] = zero
	s.used[i] = false
	s.next[i] = s.free
	s.free = i
	s.inUse--
	return nil
}
