package kernel

import (
	"slices"

	"sparkrt/sparkos/errno"
)

// setState ORs bits into t's mask; on the 0 -> non-zero edge t leaves its
// ready level. Caller holds the interrupt lock.
func (k *Kernel) setState(t *Thread, bits State) {
	if bits == 0 {
		return
	}
	old := t.state
	t.state |= bits
	if old == 0 {
		k.rq.remove(t)
	}
	if t.state != old {
		k.tracer.ThreadState(t, old, t.state)
	}
}

// resetState clears bits from t's mask; on the non-zero -> 0 edge t is
// appended to its ready level. StateTerminated is sticky.
func (k *Kernel) resetState(t *Thread, bits State) {
	bits &^= StateTerminated
	if bits == 0 {
		return
	}
	old := t.state
	t.state &^= bits
	if t.state == old {
		return
	}
	if t.state == 0 {
		k.rq.push(t)
		k.unpark(t)
	}
	k.tracer.ThreadState(t, old, t.state)
}

// reschedule records the thread the dispatcher runs next.
func (k *Kernel) reschedule() {
	next := k.rq.first()
	if next == k.current {
		return
	}
	prev := k.current
	k.current = next
	k.tracer.ThreadSwitch(prev, next)
}

// setPriority moves t to prio. A runnable thread is requeued through the
// priority-change bit; a lock waiter is re-sorted in its waiter list.
func (k *Kernel) setPriority(t *Thread, prio int) {
	if t.prio == prio {
		return
	}
	old := t.prio
	if t.state == 0 {
		k.setState(t, StatePrioChange)
		t.prio = prio
		k.resetState(t, StatePrioChange)
	} else {
		t.prio = prio
		if m := t.waitingOn; m != nil {
			m.removeWaiter(t)
			m.insertWaiter(t)
			m.adjustOwner()
		}
	}
	k.tracer.PriorityChange(t, old, prio)
}

func (k *Kernel) own(t *Thread) error {
	if t == nil || t.k != k {
		return errno.ESRCH
	}
	return nil
}

// SetStateBit ORs bits into t's state mask.
func (k *Kernel) SetStateBit(t *Thread, bits State) error {
	if err := k.own(t); err != nil {
		return err
	}
	s := k.irq.Disable()
	k.setState(t, bits)
	k.reschedule()
	k.irq.Restore(s)
	return nil
}

// ResetStateBit clears bits from t's state mask. StateTerminated cannot be
// cleared.
func (k *Kernel) ResetStateBit(t *Thread, bits State) error {
	if err := k.own(t); err != nil {
		return err
	}
	s := k.irq.Disable()
	k.resetState(t, bits)
	k.reschedule()
	k.irq.Restore(s)
	return nil
}

// Suspend stops t from being scheduled. A running goroutine notices at its
// next reschedule point.
func (k *Kernel) Suspend(t *Thread) error { return k.SetStateBit(t, StateSuspended) }

// Resume clears StateSuspended.
func (k *Kernel) Resume(t *Thread) error { return k.ResetStateBit(t, StateSuspended) }

// SetPriority changes t's priority.
func (k *Kernel) SetPriority(t *Thread, prio int) error {
	if err := k.own(t); err != nil {
		return err
	}
	s := k.irq.Disable()
	defer k.irq.Restore(s)
	if err := k.check(prio >= 0 && prio < k.cfg.Priorities, errno.EINVAL, t,
		"priority %d outside [0, %d)", prio, k.cfg.Priorities); err != nil {
		return err
	}
	t.base = prio
	k.setPriority(t, k.inherited(t))
	k.reschedule()
	return nil
}

// Abort retires t. Mutexes it owns are force-released with waiter promotion,
// a pending lock request is withdrawn as if it timed out, and abort hooks run.
func (k *Kernel) Abort(t *Thread) error {
	if err := k.own(t); err != nil {
		return err
	}
	s := k.irq.Disable()
	if t.state&StateTerminated != 0 {
		k.irq.Restore(s)
		return nil
	}

	for len(t.owned) > 0 {
		t.owned[len(t.owned)-1].release()
	}
	waiting := t.waitingOn != nil
	if m := t.waitingOn; m != nil {
		m.removeWaiter(t)
		t.waitingOn = nil
		m.adjustOwner()
	}
	if t.timer != nil {
		k.timers.remove(t.timer)
		t.timer = nil
	}

	k.setState(t, StateTerminated)
	if waiting {
		select {
		case t.wake <- errno.ESRCH:
		default:
		}
	}
	k.unpark(t)
	k.reschedule()
	hooks := slices.Clone(k.abortHooks)
	k.irq.Restore(s)

	for _, fn := range hooks {
		fn(t)
	}
	return nil
}

// Yield moves the caller behind the other runnable threads of its priority.
func (k *Kernel) Yield(c *Context) {
	if c == nil {
		return
	}
	t := c.t
	s := k.irq.Disable()
	if t.state == 0 {
		k.rq.remove(t)
		k.rq.push(t)
	}
	k.reschedule()
	k.irq.Restore(s)
	k.park(t)
}

// PickNext returns the head of the highest-priority non-empty level.
func (k *Kernel) PickNext() *Thread {
	s := k.irq.Disable()
	defer k.irq.Restore(s)
	return k.rq.first()
}

// Current returns the thread the dispatcher last switched to.
func (k *Kernel) Current() *Thread {
	s := k.irq.Disable()
	defer k.irq.Restore(s)
	return k.current
}

// ReadyAt returns the runnable threads at prio in FIFO order.
func (k *Kernel) ReadyAt(prio int) []*Thread {
	if prio < 0 || prio >= k.cfg.Priorities {
		return nil
	}
	s := k.irq.Disable()
	defer k.irq.Restore(s)
	var out []*Thread
	for _, id := range k.rq.snapshot(prio) {
		out = append(out, k.tab.get(id))
	}
	return out
}
