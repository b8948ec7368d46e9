// Package ringbuf implements a fixed-capacity FIFO of byte elements.
package ringbuf

import "errors"

// MaxCapacity is the largest ring; elements are slab indices.
const MaxCapacity = 256

var ErrCapacity = errors.New("ringbuf: capacity out of range")

// Ring is a circular FIFO. It does not allocate after New and is not safe
// for concurrent use.
type Ring struct {
	head  uint16 // next slot to read
	count uint16
	slots []byte
}

// New creates a ring holding up to n elements.
func New(n int) (*Ring, error) {
	if n <= 0 || n > MaxCapacity {
		return nil, ErrCapacity
	}
	return &Ring{slots: make([]byte, n)}, nil
}

// Cap returns the capacity.
func (r *Ring) Cap() int { return len(r.slots) }

// Len returns the number of queued elements.
func (r *Ring) Len() int { return int(r.count) }

// Put appends b, returning false if the ring is full.
func (r *Ring) Put(b byte) bool {
	if int(r.count) >= len(r.slots) {
		return false
	}
	r.slots[(int(r.head)+int(r.count))%len(r.slots)] = b
	r.count++
	return true
}

// Get removes the oldest element, returning false if the ring is empty.
func (r *Ring) Get() (byte, bool) {
	if r.count == 0 {
		return 0, false
	}
	b := r.slots[r.head]
	r.head = uint16((int(r.head) + 1) % len(r.slots))
	r.count--
	return b, true
}

// Reset drops every element.
func (r *Ring) Reset() {
	r.head = 0
	r.count = 0
}
