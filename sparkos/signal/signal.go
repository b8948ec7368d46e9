// Package signal implements queued signal delivery between kernel threads.
//
// Pending signals live in a fixed slab; a ring of byte slab indices keeps
// arrival order. Queueing never wakes a particular thread: it broadcasts a
// readiness event and waiters rescan the ring for records addressed to them.
//
// Records that no thread consumes stay queued for as long as their target
// lives and are freed when it is aborted.
package signal

import (
	"fmt"
	"sync"

	"sparkrt/sparkos/errno"
	"sparkrt/sparkos/internal/ringbuf"
	"sparkrt/sparkos/internal/slab"
	"sparkrt/sparkos/kernel"
	"sparkrt/sparkos/sigset"
)

// How selects the Mask operation.
type How uint8

const (
	Block How = iota
	Unblock
	SetMask
)

func (h How) String() string {
	switch h {
	case Block:
		return "block"
	case Unblock:
		return "unblock"
	case SetMask:
		return "setmask"
	default:
		return "unknown"
	}
}

// CodeQueue marks signals sent with Queue.
const CodeQueue = -1

// Value is the payload carried with a signal.
type Value struct {
	Int int
	Ptr any
}

// Info describes a delivered signal.
type Info struct {
	Signo int
	Code  int
	Value Value
}

// Config sizes the subsystem.
type Config struct {
	// QueueSize is the number of signals that may be pending at once.
	QueueSize int
	// RTMin is the first real-time signal number.
	RTMin int
}

// DefaultConfig returns the stock configuration.
func DefaultConfig() Config {
	return Config{QueueSize: 32, RTMin: sigset.RTMin}
}

func (c Config) validate() error {
	if c.QueueSize <= 0 || c.QueueSize > slab.MaxCapacity {
		return fmt.Errorf("signal: queue size %d out of range [1, %d]", c.QueueSize, slab.MaxCapacity)
	}
	if !sigset.Valid(c.RTMin) {
		return fmt.Errorf("signal: rtmin %d out of range [1, %d]", c.RTMin, sigset.MaxSignal)
	}
	return nil
}

type record struct {
	target kernel.ThreadID
	signo  int
	value  Value
}

// Subsystem is one signal queue shared by every thread of a kernel.
type Subsystem struct {
	k   *kernel.Kernel
	cfg Config

	mu    sync.Mutex
	slab  *slab.Slab[record]
	ring  *ringbuf.Ring
	ready chan struct{} // closed and replaced on every queue
}

// New creates the subsystem and registers its abort hook with k.
func New(k *kernel.Kernel, cfg Config) (*Subsystem, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	sl, err := slab.New[record](cfg.QueueSize)
	if err != nil {
		return nil, err
	}
	ring, err := ringbuf.New(cfg.QueueSize)
	if err != nil {
		return nil, err
	}
	s := &Subsystem{
		k:     k,
		cfg:   cfg,
		slab:  sl,
		ring:  ring,
		ready: make(chan struct{}),
	}
	k.OnAbort(s.purge)
	return s, nil
}

// Queue sends signo with value v to target on behalf of the calling thread.
//
// signo 0 only checks that target exists and is accessible. A user thread
// needs an access grant for target.
func (s *Subsystem) Queue(c *kernel.Context, target *kernel.Thread, signo int, v Value) error {
	if c == nil {
		return errno.EINVAL
	}
	return s.queue(c.Thread(), target, signo, v)
}

// QueueFromISR sends a signal from interrupt context. No permission check
// applies; a full queue fails with EAGAIN.
func (s *Subsystem) QueueFromISR(target *kernel.Thread, signo int, v Value) error {
	return s.queue(nil, target, signo, v)
}

func (s *Subsystem) queue(caller, target *kernel.Thread, signo int, v Value) error {
	if signo < 0 || signo > sigset.MaxSignal {
		return errno.EINVAL
	}
	if !s.k.Alive(target) {
		return errno.ESRCH
	}
	if caller != nil && !s.k.HasAccess(caller, target) {
		return errno.EPERM
	}
	if signo == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx, rec, err := s.slab.Alloc()
	if err != nil {
		return errno.EAGAIN
	}
	*rec = record{target: target.ID(), signo: signo, value: v}
	if !s.ring.Put(idx) {
		// The ring is as large as the slab.
		_ = s.slab.Free(idx)
		return errno.EAGAIN
	}
	s.raiseLocked()
	return nil
}

func (s *Subsystem) raiseLocked() {
	close(s.ready)
	s.ready = make(chan struct{})
}

// TimedWait waits for a queued signal in set that the caller does not mask.
//
// When several match, the lowest real-time number wins; otherwise the oldest
// matching record is taken. It fails with EAGAIN when timeout elapses.
func (s *Subsystem) TimedWait(c *kernel.Context, set sigset.Set, timeout kernel.Timeout) (Info, error) {
	if c == nil {
		return Info{}, errno.EINVAL
	}
	t := c.Thread()
	deadline, cancel := s.k.After(timeout)
	defer cancel()

	for {
		if !s.k.Alive(t) {
			return Info{}, errno.ESRCH
		}
		mask := c.SignalMask()

		s.mu.Lock()
		match := set.And(s.pendingLocked(t.ID())).AndNot(mask)
		if !match.IsEmpty() {
			info, err := s.takeLocked(t, match)
			s.mu.Unlock()
			return info, err
		}
		ready := s.ready
		s.mu.Unlock()

		_ = s.k.SetStateBit(t, kernel.StatePended)
		select {
		case <-ready:
			_ = s.k.ResetStateBit(t, kernel.StatePended)
			c.Checkpoint()
		case <-deadline:
			_ = s.k.ResetStateBit(t, kernel.StatePended)
			if !c.Checkpoint() {
				return Info{}, errno.ESRCH
			}
			return Info{}, errno.EAGAIN
		}
	}
}

// Wait is TimedWait without a deadline.
func (s *Subsystem) Wait(c *kernel.Context, set sigset.Set) (Info, error) {
	return s.TimedWait(c, set, kernel.Forever)
}

// takeLocked removes the record chosen from match and frees it. The ring is
// drained and refilled so the remaining records keep their order.
func (s *Subsystem) takeLocked(t *kernel.Thread, match sigset.Set) (Info, error) {
	want := 0
	if rt, ok := match.LowestRT(s.cfg.RTMin); ok {
		want = rt
	}

	found := -1
	n := s.ring.Len()
	for i := 0; i < n; i++ {
		idx, _ := s.ring.Get()
		rec := s.slab.At(idx)
		if found < 0 && rec.target == t.ID() {
			if (want != 0 && rec.signo == want) || (want == 0 && match.Has(rec.signo)) {
				found = int(idx)
				continue
			}
		}
		s.ring.Put(idx)
	}
	if found < 0 {
		return Info{}, errno.EAGAIN
	}

	rec := *s.slab.At(uint8(found))
	err := s.slab.Free(uint8(found))
	if err := s.k.Assert(err == nil, errno.EINVAL, t, "signal record %d: %v", found, err); err != nil {
		return Info{}, err
	}
	return Info{Signo: rec.signo, Code: CodeQueue, Value: rec.value}, nil
}

// pendingLocked scans the ring without consuming it.
func (s *Subsystem) pendingLocked(tid kernel.ThreadID) sigset.Set {
	var set sigset.Set
	n := s.ring.Len()
	for i := 0; i < n; i++ {
		idx, _ := s.ring.Get()
		if rec := s.slab.At(idx); rec.target == tid {
			_ = set.Add(rec.signo)
		}
		s.ring.Put(idx)
	}
	return set
}

// Pending returns every signal queued for the caller, masked or not.
func (s *Subsystem) Pending(c *kernel.Context) sigset.Set {
	if c == nil {
		return sigset.Set{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pendingLocked(c.Thread().ID())
}

// Mask changes the caller's blocked set and returns the previous one. A nil
// set only reads the mask.
func (s *Subsystem) Mask(c *kernel.Context, how How, set *sigset.Set) (sigset.Set, error) {
	if c == nil {
		return sigset.Set{}, errno.EINVAL
	}
	old := c.SignalMask()
	if set == nil {
		return old, nil
	}
	var next sigset.Set
	switch how {
	case Block:
		next = old.Or(*set)
	case Unblock:
		next = old.AndNot(*set)
	case SetMask:
		next = *set
	default:
		return old, errno.EINVAL
	}
	c.SetSignalMask(next)
	return old, nil
}

// Len returns the number of queued records.
func (s *Subsystem) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ring.Len()
}

// Cap returns the queue capacity.
func (s *Subsystem) Cap() int { return s.cfg.QueueSize }

// purge frees every record addressed to t and wakes waiters so that a
// retired thread's wait returns.
func (s *Subsystem) purge(t *kernel.Thread) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.ring.Len()
	for i := 0; i < n; i++ {
		idx, _ := s.ring.Get()
		if s.slab.At(idx).target == t.ID() {
			_ = s.slab.Free(idx)
			continue
		}
		s.ring.Put(idx)
	}
	s.raiseLocked()
}
