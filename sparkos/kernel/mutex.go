package kernel

import "sparkrt/sparkos/errno"

// Mutex is a recursive lock with priority inheritance.
//
// While contended the owner runs at the best of its base priority and the
// head waiter of every mutex it owns, a waiter counting for no better than
// Config.PriorityCeiling. The owner's priority is recomputed on every
// change, so mutexes may be released in any order.
type Mutex struct {
	k *Kernel

	owner *Thread
	level int

	waiters ThreadID // head; sorted by priority, FIFO among equals
}

// NewMutex creates an unlocked mutex bound to k.
func (k *Kernel) NewMutex() *Mutex {
	return &Mutex{k: k, waiters: noThread}
}

// Lock acquires m for the calling thread.
//
// Nested locks by the owner bump the recursion level. Against another owner
// NoWait fails with EBUSY; a finite timeout that elapses fails with EAGAIN.
func (m *Mutex) Lock(c *Context, timeout Timeout) error {
	if c == nil || c.k != m.k {
		return errno.EINVAL
	}
	k := m.k
	t := c.t

	s := k.irq.Disable()
	if t.state&StateTerminated != 0 {
		k.irq.Restore(s)
		return errno.ESRCH
	}
	if m.level == 0 || m.owner == t {
		if m.level == 0 {
			m.owner = t
			t.owned = append(t.owned, m)
		}
		m.level++
		k.irq.Restore(s)
		return nil
	}
	if timeout == NoWait {
		k.irq.Restore(s)
		return errno.EBUSY
	}

	k.setState(t, StateLockWait)
	m.insertWaiter(t)
	t.waitingOn = m
	if timeout > 0 {
		t.timer = k.arm(timeout, func() { m.expire(t) })
	}

	m.adjustOwner()
	k.reschedule()
	k.irq.Restore(s)

	err := <-t.wake
	// Other causes (a suspend while waiting) keep the caller off the CPU.
	if !k.park(t) && err == nil {
		err = errno.ESRCH
	}
	return err
}

// Unlock releases one level of m. Only the owner may unlock.
func (m *Mutex) Unlock(c *Context) error {
	if c == nil || c.k != m.k {
		return errno.EINVAL
	}
	k := m.k

	s := k.irq.Disable()
	defer k.irq.Restore(s)

	if err := k.check(m.level > 0, errno.EINVAL, c.t, "unlock of unlocked mutex"); err != nil {
		return err
	}
	if err := k.check(m.owner == c.t, errno.EPERM, c.t,
		"unlock by thread %d, owner is %d", c.t.id, m.owner.id); err != nil {
		return err
	}

	m.level--
	if m.level > 0 {
		return nil
	}
	m.release()
	k.reschedule()
	return nil
}

// release drops ownership and hands m to the head waiter, if any. Caller
// holds the interrupt lock.
func (m *Mutex) release() {
	k := m.k
	old := m.owner
	for i, x := range old.owned {
		if x == m {
			old.owned = append(old.owned[:i], old.owned[i+1:]...)
			break
		}
	}
	k.setPriority(old, k.inherited(old))

	w := k.tab.get(m.waiters)
	if w == nil {
		m.owner = nil
		m.level = 0
		return
	}
	m.removeWaiter(w)
	w.waitingOn = nil
	if w.timer != nil {
		k.timers.remove(w.timer)
		w.timer = nil
	}

	m.owner = w
	m.level = 1
	w.owned = append(w.owned, m)
	k.setPriority(w, k.inherited(w))

	k.resetState(w, StateLockWait)
	w.wake <- nil
}

// expire is the timeout reply: withdraw t and drop the owner's boost to what
// the remaining waiters justify.
func (m *Mutex) expire(t *Thread) {
	if t.waitingOn != m {
		return
	}
	m.removeWaiter(t)
	t.waitingOn = nil
	t.timer = nil
	m.adjustOwner()
	m.k.resetState(t, StateLockWait)
	t.wake <- errno.EAGAIN
}

// boosted clamps a waiter priority to the ceiling.
func (m *Mutex) boosted(prio int) int {
	if c := m.k.cfg.PriorityCeiling; prio < c {
		return c
	}
	return prio
}

// adjustOwner recomputes the owner's priority after the waiter list changed.
func (m *Mutex) adjustOwner() {
	if m.owner != nil {
		m.k.setPriority(m.owner, m.k.inherited(m.owner))
	}
}

// inherited returns the priority t is entitled to: its base priority raised
// by the head waiter of each mutex it owns. Caller holds the interrupt lock.
func (k *Kernel) inherited(t *Thread) int {
	p := t.base
	for _, m := range t.owned {
		if w := k.tab.get(m.waiters); w != nil {
			if b := m.boosted(w.prio); b < p {
				p = b
			}
		}
	}
	return p
}

func (m *Mutex) insertWaiter(t *Thread) {
	tab := &m.k.tab
	prev := noThread
	id := m.waiters
	for id != noThread {
		if tab.get(id).prio > t.prio {
			break
		}
		prev = id
		id = tab.get(id).next
	}
	t.next = id
	if prev == noThread {
		m.waiters = t.id
	} else {
		tab.get(prev).next = t.id
	}
}

func (m *Mutex) removeWaiter(t *Thread) {
	tab := &m.k.tab
	prev := noThread
	for id := m.waiters; id != noThread; id = tab.get(id).next {
		if id != t.id {
			prev = id
			continue
		}
		if prev == noThread {
			m.waiters = t.next
		} else {
			tab.get(prev).next = t.next
		}
		break
	}
	t.next = noThread
}

// Owner returns the owning thread, or nil.
func (m *Mutex) Owner() *Thread {
	s := m.k.irq.Disable()
	defer m.k.irq.Restore(s)
	return m.owner
}

// Level returns the recursion level; 0 means unlocked.
func (m *Mutex) Level() int {
	s := m.k.irq.Disable()
	defer m.k.irq.Restore(s)
	return m.level
}

// OwnerPriority returns the owner's base and current priority, or -1, -1
// while m is unlocked.
func (m *Mutex) OwnerPriority() (base, cur int) {
	s := m.k.irq.Disable()
	defer m.k.irq.Restore(s)
	if m.owner == nil {
		return -1, -1
	}
	return m.owner.base, m.owner.prio
}

// Waiters returns the waiter list, head first.
func (m *Mutex) Waiters() []*Thread {
	s := m.k.irq.Disable()
	defer m.k.irq.Restore(s)
	var out []*Thread
	for id := m.waiters; id != noThread; id = m.k.tab.get(id).next {
		out = append(out, m.k.tab.get(id))
	}
	return out
}
