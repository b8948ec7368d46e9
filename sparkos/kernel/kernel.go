// Package kernel implements the concurrency core: the thread state machine
// over a priority ready queue, tick-driven timeouts, and mutexes with
// priority inheritance.
//
// Every mutation of thread state, the ready queue or mutex bookkeeping runs
// with the interrupt lock held. On hosted ports each thread executes on its
// own goroutine and parks on a channel while its state mask is non-zero.
package kernel

import (
	"sync"
	"sync/atomic"

	"sparkrt/sparkos/errno"
)

// Kernel is one scheduler instance.
type Kernel struct {
	cfg    Config
	irq    IRQ
	tracer Tracer

	tab     threadTable
	rq      readyQueue
	current *Thread

	tick   uint64
	timers timerQueue

	abortHooks []func(*Thread)

	panicOnce    sync.Once
	panicActive  atomic.Bool
	panicHandler atomic.Value // func(PanicInfo)
}

// New creates a kernel instance.
func New(cfg Config) (*Kernel, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	k := &Kernel{cfg: cfg, irq: cfg.IRQ, tracer: cfg.Tracer}
	if k.irq == nil {
		k.irq = &lockIRQ{}
	}
	if k.tracer == nil {
		k.tracer = nopTracer{}
	}
	if cfg.OnPanic != nil {
		k.panicHandler.Store(cfg.OnPanic)
	}
	k.rq = newReadyQueue(&k.tab, cfg.Priorities)
	return k, nil
}

// Config returns the configuration the kernel was built with.
func (k *Kernel) Config() Config { return k.cfg }

// NewThread adds a thread to the table. Unless cfg.Suspended is set the
// thread is appended to its ready level.
func (k *Kernel) NewThread(cfg ThreadConfig) (*Thread, error) {
	s := k.irq.Disable()
	defer k.irq.Restore(s)

	if err := k.check(cfg.Priority >= 0 && cfg.Priority < k.cfg.Priorities, errno.EINVAL, nil,
		"priority %d outside [0, %d)", cfg.Priority, k.cfg.Priorities); err != nil {
		return nil, err
	}

	if len(k.tab.slots) >= k.cfg.Threads {
		return nil, errno.ENOMEM
	}
	t := &Thread{
		k:    k,
		id:   ThreadID(len(k.tab.slots)),
		name: cfg.Name,
		user: cfg.User,
		prio: cfg.Priority,
		base: cfg.Priority,
		next: noThread,
		wake: make(chan error, 1),
		run:  make(chan struct{}, 1),
	}
	k.tab.slots = append(k.tab.slots, t)

	if cfg.Suspended {
		t.state = StateSuspended
		k.tracer.ThreadState(t, 0, t.state)
	} else {
		k.rq.push(t)
	}
	k.reschedule()
	return t, nil
}

// Spawn creates a thread and runs entry on its own goroutine. The entry
// starts once the thread is runnable; returning from it retires the thread.
func (k *Kernel) Spawn(cfg ThreadConfig, entry func(*Context)) (*Thread, error) {
	t, err := k.NewThread(cfg)
	if err != nil {
		return nil, err
	}
	go k.run(t, entry)
	return t, nil
}

func (k *Kernel) run(t *Thread, entry func(*Context)) {
	ctx := &Context{k: k, t: t}
	defer func() {
		if r := recover(); r != nil {
			k.triggerPanic(PanicInfo{Thread: t.id, Value: r})
			if _, halted := r.(*AssertionError); halted {
				// The assertion fired with the interrupt lock held.
				return
			}
		}
		_ = k.Abort(t)
	}()

	if !k.park(t) {
		return
	}
	entry(ctx)
}

// park blocks the calling goroutine while t's mask is non-zero. It reports
// false if t was terminated meanwhile.
func (k *Kernel) park(t *Thread) bool {
	for {
		s := k.irq.Disable()
		if t.state&StateTerminated != 0 {
			k.irq.Restore(s)
			return false
		}
		if t.state == 0 {
			k.irq.Restore(s)
			return true
		}
		t.parked = true
		k.irq.Restore(s)
		<-t.run
	}
}

// unpark releases a parked goroutine. Caller holds the interrupt lock.
func (k *Kernel) unpark(t *Thread) {
	if !t.parked {
		return
	}
	t.parked = false
	select {
	case t.run <- struct{}{}:
	default:
	}
}

// ContextOf binds a context to t for code that drives t from a goroutine
// other than the one Spawn started (tests, the boot thread).
func (k *Kernel) ContextOf(t *Thread) *Context {
	if t == nil || t.k != k {
		return nil
	}
	return &Context{k: k, t: t}
}

// Thread looks up a thread by ID.
func (k *Kernel) Thread(id ThreadID) *Thread {
	s := k.irq.Disable()
	defer k.irq.Restore(s)
	return k.tab.get(id)
}

// Threads returns every thread ever created, retired ones included.
func (k *Kernel) Threads() []*Thread {
	s := k.irq.Disable()
	defer k.irq.Restore(s)
	out := make([]*Thread, len(k.tab.slots))
	copy(out, k.tab.slots)
	return out
}

// Alive reports whether t belongs to k and has not been terminated.
func (k *Kernel) Alive(t *Thread) bool {
	if t == nil || t.k != k {
		return false
	}
	return t.State()&StateTerminated == 0
}

// GrantAccess lets user thread to operate on obj.
func (k *Kernel) GrantAccess(obj, to *Thread) error {
	if obj == nil || to == nil || obj.k != k || to.k != k {
		return errno.ESRCH
	}
	s := k.irq.Disable()
	defer k.irq.Restore(s)
	if to.grants == nil {
		to.grants = make(map[ThreadID]struct{})
	}
	to.grants[obj.id] = struct{}{}
	return nil
}

// HasAccess reports whether caller may operate on obj. Supervisor threads
// and self-access always pass.
func (k *Kernel) HasAccess(caller, obj *Thread) bool {
	if caller == nil || obj == nil {
		return false
	}
	if !caller.user || caller == obj {
		return true
	}
	s := k.irq.Disable()
	defer k.irq.Restore(s)
	_, ok := caller.grants[obj.id]
	return ok
}

// OnAbort registers a teardown hook. Hooks run after the thread is retired,
// outside the interrupt lock.
func (k *Kernel) OnAbort(fn func(*Thread)) {
	s := k.irq.Disable()
	k.abortHooks = append(k.abortHooks, fn)
	k.irq.Restore(s)
}
