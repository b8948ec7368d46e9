// Package sigset implements fixed-size signal sets.
package sigset

import (
	"math/bits"

	"sparkrt/sparkos/errno"
)

// MaxSignal is the highest valid signal number. Signal 0 is reserved.
const MaxSignal = 127

// RTMin is the first real-time signal number.
const RTMin = 32

const (
	wordBits = 64
	words    = (MaxSignal + wordBits) / wordBits
)

// Set is a subset of {1..MaxSignal}. The zero value is the empty set.
type Set struct {
	w [words]uint64
}

func valid(signo int) bool {
	return signo >= 1 && signo <= MaxSignal
}

// Valid reports whether signo is in [1, MaxSignal].
func Valid(signo int) bool { return valid(signo) }

// Of returns a set with the given members; invalid numbers are ignored.
func Of(signos ...int) Set {
	var s Set
	for _, n := range signos {
		_ = s.Add(n)
	}
	return s
}

// Full returns the set of every valid signal.
func Full() Set {
	var s Set
	s.Fill()
	return s
}

// Add inserts signo.
func (s *Set) Add(signo int) error {
	if !valid(signo) {
		return errno.EINVAL
	}
	s.w[signo/wordBits] |= 1 << (uint(signo) % wordBits)
	return nil
}

// Del removes signo.
func (s *Set) Del(signo int) error {
	if !valid(signo) {
		return errno.EINVAL
	}
	s.w[signo/wordBits] &^= 1 << (uint(signo) % wordBits)
	return nil
}

// IsMember reports whether signo is in the set.
func (s Set) IsMember(signo int) (bool, error) {
	if !valid(signo) {
		return false, errno.EINVAL
	}
	return s.has(signo), nil
}

// Has is IsMember without the range error; out-of-range numbers are never members.
func (s Set) Has(signo int) bool {
	return valid(signo) && s.has(signo)
}

func (s Set) has(signo int) bool {
	return s.w[signo/wordBits]&(1<<(uint(signo)%wordBits)) != 0
}

// Fill makes s the full set.
func (s *Set) Fill() {
	for i := range s.w {
		s.w[i] = ^uint64(0)
	}
	// bit 0 is signal 0, bits past MaxSignal do not exist.
	s.w[0] &^= 1
	if extra := (words*wordBits - 1) - MaxSignal; extra > 0 {
		s.w[words-1] &= ^uint64(0) >> uint(extra)
	}
}

// Empty makes s the empty set.
func (s *Set) Empty() {
	s.w = [words]uint64{}
}

// IsEmpty reports whether the set has no members.
func (s Set) IsEmpty() bool {
	for _, w := range s.w {
		if w != 0 {
			return false
		}
	}
	return true
}

// Or returns s ∪ o.
func (s Set) Or(o Set) Set {
	for i := range s.w {
		s.w[i] |= o.w[i]
	}
	return s
}

// And returns s ∩ o.
func (s Set) And(o Set) Set {
	for i := range s.w {
		s.w[i] &= o.w[i]
	}
	return s
}

// AndNot returns s with every member of o removed.
func (s Set) AndNot(o Set) Set {
	for i := range s.w {
		s.w[i] &^= o.w[i]
	}
	return s
}

// Lowest returns the lowest member at or above from.
func (s Set) Lowest(from int) (int, bool) {
	if from < 1 {
		from = 1
	}
	for i := from / wordBits; i < words; i++ {
		w := s.w[i]
		if i == from/wordBits {
			w &= ^uint64(0) << (uint(from) % wordBits)
		}
		if w != 0 {
			n := i*wordBits + bits.TrailingZeros64(w)
			if n > MaxSignal {
				return 0, false
			}
			return n, true
		}
	}
	return 0, false
}

// LowestRT returns the lowest real-time member (signo >= rtmin).
func (s Set) LowestRT(rtmin int) (int, bool) {
	return s.Lowest(rtmin)
}

// Members lists the set in ascending order.
func (s Set) Members() []int {
	var out []int
	for n, ok := s.Lowest(1); ok; n, ok = s.Lowest(n + 1) {
		out = append(out, n)
	}
	return out
}
