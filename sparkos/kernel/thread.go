package kernel

import (
	"strings"

	"sparkrt/sparkos/sigset"
)

// ThreadID is a stable thread handle; it indexes the thread table.
type ThreadID uint16

// noThread terminates ready-queue and waiter links.
const noThread ThreadID = 0xFFFF

// State is the not-runnable mask. A thread is schedulable iff it is zero.
type State uint16

const (
	StateSuspended State = 1 << iota
	StateTerminated
	// StatePended marks a wait on a kernel object (signals, events).
	StatePended
	StateLockWait
	StatePrioChange
	StateSleeping
)

var stateNames = []struct {
	bit  State
	name string
}{
	{StateSuspended, "suspended"},
	{StateTerminated, "terminated"},
	{StatePended, "pended"},
	{StateLockWait, "lockwait"},
	{StatePrioChange, "prio"},
	{StateSleeping, "sleeping"},
}

func (s State) String() string {
	if s == 0 {
		return "ready"
	}
	var b strings.Builder
	for _, n := range stateNames {
		if s&n.bit == 0 {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('|')
		}
		b.WriteString(n.name)
	}
	return b.String()
}

// ThreadConfig describes a thread at creation.
type ThreadConfig struct {
	Name     string
	Priority int
	// Suspended creates the thread with StateSuspended set.
	Suspended bool
	// User marks a constrained thread: object access needs a grant.
	User bool
}

// Thread is a thread control block. It is owned by its kernel; queues and
// mutexes refer to it by ID.
type Thread struct {
	k    *Kernel
	id   ThreadID
	name string
	user bool

	prio  int // effective, including inheritance
	base  int // assigned by NewThread and SetPriority
	state State
	next  ThreadID

	waitingOn *Mutex
	owned     []*Mutex
	timer     *timer

	// wake carries the reply to a blocked mutex request.
	wake chan error
	// run releases a parked goroutine once the mask clears.
	run    chan struct{}
	parked bool

	sigMask sigset.Set
	grants  map[ThreadID]struct{}
}

func (t *Thread) ID() ThreadID    { return t.id }
func (t *Thread) Name() string    { return t.name }
func (t *Thread) IsUser() bool    { return t.user }
func (t *Thread) Kernel() *Kernel { return t.k }

// Priority returns the current (possibly boosted) priority.
func (t *Thread) Priority() int {
	s := t.k.irq.Disable()
	defer t.k.irq.Restore(s)
	return t.prio
}

// State returns the not-runnable mask.
func (t *Thread) State() State {
	s := t.k.irq.Disable()
	defer t.k.irq.Restore(s)
	return t.state
}

// Runnable reports whether the mask is zero.
func (t *Thread) Runnable() bool { return t.State() == 0 }

// threadTable is the TCB arena.
type threadTable struct {
	slots []*Thread
}

func (tab *threadTable) get(id ThreadID) *Thread {
	if id == noThread || int(id) >= len(tab.slots) {
		return nil
	}
	return tab.slots[id]
}
