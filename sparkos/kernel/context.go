package kernel

import "sparkrt/sparkos/sigset"

// Context provides thread-local access to kernel operations.
type Context struct {
	k *Kernel
	t *Thread
}

// Thread returns the calling thread.
func (c *Context) Thread() *Thread { return c.t }

// Kernel returns the kernel the thread belongs to.
func (c *Context) Kernel() *Kernel { return c.k }

// Yield requeues the caller behind runnable threads of equal priority.
func (c *Context) Yield() { c.k.Yield(c) }

// Now returns the current tick.
func (c *Context) Now() uint64 { return c.k.Now() }

// Sleep blocks the caller for d ticks. It reports false if the thread was
// aborted while asleep.
func (c *Context) Sleep(d Timeout) bool {
	k := c.k
	t := c.t
	if d <= 0 {
		c.Yield()
		return k.Alive(t)
	}

	s := k.irq.Disable()
	k.setState(t, StateSleeping)
	t.timer = k.arm(d, func() {
		t.timer = nil
		k.resetState(t, StateSleeping)
	})
	k.reschedule()
	k.irq.Restore(s)

	return k.park(t)
}

// Checkpoint parks the caller while it is suspended. It reports false once
// the thread has been aborted.
func (c *Context) Checkpoint() bool { return c.k.park(c.t) }

// SignalMask returns the caller's blocked-signal set.
func (c *Context) SignalMask() sigset.Set {
	s := c.k.irq.Disable()
	defer c.k.irq.Restore(s)
	return c.t.sigMask
}

// SetSignalMask replaces the caller's blocked-signal set and returns the old one.
func (c *Context) SetSignalMask(set sigset.Set) sigset.Set {
	s := c.k.irq.Disable()
	defer c.k.irq.Restore(s)
	old := c.t.sigMask
	c.t.sigMask = set
	return old
}
