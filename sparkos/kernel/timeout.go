package kernel

// Timeout is a wait bound in ticks.
type Timeout int64

const (
	// NoWait makes a blocking call fail instead of waiting.
	NoWait Timeout = 0
	// Forever waits without a deadline.
	Forever Timeout = -1
)

type timer struct {
	deadline uint64
	fn       func()
	armed    bool
}

// timerQueue is kept sorted by deadline; equal deadlines fire in arming order.
type timerQueue struct {
	list []*timer
}

func (q *timerQueue) add(t *timer) {
	i := len(q.list)
	for i > 0 && q.list[i-1].deadline > t.deadline {
		i--
	}
	q.list = append(q.list, nil)
	copy(q.list[i+1:], q.list[i:])
	q.list[i] = t
	t.armed = true
}

func (q *timerQueue) remove(t *timer) bool {
	if t == nil || !t.armed {
		return false
	}
	for i, x := range q.list {
		if x == t {
			q.list = append(q.list[:i], q.list[i+1:]...)
			t.armed = false
			return true
		}
	}
	return false
}

// expire pops every timer due at now.
func (q *timerQueue) expire(now uint64) []*timer {
	n := 0
	for n < len(q.list) && q.list[n].deadline <= now {
		n++
	}
	if n == 0 {
		return nil
	}
	due := make([]*timer, n)
	copy(due, q.list[:n])
	q.list = append(q.list[:0], q.list[n:]...)
	for _, t := range due {
		t.armed = false
	}
	return due
}

// arm schedules fn after d ticks. Caller holds the interrupt lock.
func (k *Kernel) arm(d Timeout, fn func()) *timer {
	t := &timer{deadline: k.tick + uint64(d), fn: fn}
	k.timers.add(t)
	return t
}

// Now returns the current tick.
func (k *Kernel) Now() uint64 {
	s := k.irq.Disable()
	defer k.irq.Restore(s)
	return k.tick
}

// Tick advances the clock by one tick.
func (k *Kernel) Tick() {
	s := k.irq.Disable()
	k.advance(k.tick + 1)
	k.irq.Restore(s)
}

// TickTo advances the clock to seq. Older values are ignored.
func (k *Kernel) TickTo(seq uint64) {
	s := k.irq.Disable()
	if seq > k.tick {
		k.advance(seq)
	}
	k.irq.Restore(s)
}

func (k *Kernel) advance(now uint64) {
	k.tick = now
	for _, t := range k.timers.expire(now) {
		t.fn()
	}
	k.reschedule()
}

// After returns a channel closed once d ticks elapse, and a cancel func.
//
// NoWait yields a closed channel; Forever yields nil, which never fires.
func (k *Kernel) After(d Timeout) (<-chan struct{}, func()) {
	switch {
	case d == NoWait:
		ch := make(chan struct{})
		close(ch)
		return ch, func() {}
	case d < 0:
		return nil, func() {}
	}

	ch := make(chan struct{})
	s := k.irq.Disable()
	t := k.arm(d, func() { close(ch) })
	k.irq.Restore(s)
	return ch, func() {
		s := k.irq.Disable()
		k.timers.remove(t)
		k.irq.Restore(s)
	}
}
