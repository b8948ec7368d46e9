package kernel

import (
	"fmt"
	"sync"
)

const (
	// MaxPriorities bounds the number of priority levels.
	MaxPriorities = 256
	// MaxThreads bounds the thread table; ThreadID 0xFFFF is the "none" link.
	MaxThreads = 4096
)

// AssertMode selects how invariant violations surface.
type AssertMode uint8

const (
	// AssertReturn returns the documented errno (production builds).
	AssertReturn AssertMode = iota
	// AssertPanic invokes the panic handler and halts the offending context.
	AssertPanic
)

func (m AssertMode) String() string {
	switch m {
	case AssertReturn:
		return "return"
	case AssertPanic:
		return "panic"
	default:
		return "unknown"
	}
}

// IRQ is the interrupt lock consumed from the architecture layer.
//
// Disable masks preemption and returns a token that Restore takes back.
// Calls do not nest.
type IRQ interface {
	Disable() uintptr
	Restore(state uintptr)
}

// Config carries the kernel's build-time constants and collaborators.
type Config struct {
	// Priorities is the number of levels; 0 is the highest priority.
	Priorities int
	// PriorityCeiling is the best priority a boosted mutex owner may reach.
	PriorityCeiling int
	// Threads is the thread table size.
	Threads int

	Assert AssertMode

	// IRQ defaults to a single-owner lock for hosted ports.
	IRQ IRQ
	// Tracer receives task-monitor events under the interrupt lock.
	Tracer Tracer
	// OnPanic is invoked at most once, on the first kernel panic.
	OnPanic func(PanicInfo)
}

// DefaultConfig returns the stock configuration.
func DefaultConfig() Config {
	return Config{
		Priorities:      32,
		PriorityCeiling: 0,
		Threads:         64,
		Assert:          AssertReturn,
	}
}

func (c Config) validate() error {
	if c.Priorities <= 0 || c.Priorities > MaxPriorities {
		return fmt.Errorf("kernel: priorities %d out of range [1, %d]", c.Priorities, MaxPriorities)
	}
	if c.PriorityCeiling < 0 || c.PriorityCeiling >= c.Priorities {
		return fmt.Errorf("kernel: priority ceiling %d out of range [0, %d)", c.PriorityCeiling, c.Priorities)
	}
	if c.Threads <= 0 || c.Threads > MaxThreads {
		return fmt.Errorf("kernel: threads %d out of range [1, %d]", c.Threads, MaxThreads)
	}
	switch c.Assert {
	case AssertReturn, AssertPanic:
	default:
		return fmt.Errorf("kernel: invalid assert mode %d", c.Assert)
	}
	return nil
}

// lockIRQ is the hosted interrupt lock: one owner at a time.
type lockIRQ struct {
	mu sync.Mutex
}

func (l *lockIRQ) Disable() uintptr {
	l.mu.Lock()
	return 0
}

func (l *lockIRQ) Restore(uintptr) {
	l.mu.Unlock()
}
