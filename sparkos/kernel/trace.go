package kernel

// Tracer receives task-monitor events.
//
// Methods run with the interrupt lock held: they must not call back into the
// kernel and should only copy what they need. Thread ID and Name are safe to
// read.
type Tracer interface {
	// ThreadState reports a mask change; old^cur are the bits that moved.
	ThreadState(t *Thread, old, cur State)
	// ThreadSwitch reports a new dispatcher choice. Either side may be nil.
	ThreadSwitch(prev, next *Thread)
	PriorityChange(t *Thread, old, cur int)
}

type nopTracer struct{}

func (nopTracer) ThreadState(*Thread, State, State) {}
func (nopTracer) ThreadSwitch(*Thread, *Thread)     {}
func (nopTracer) PriorityChange(*Thread, int, int)  {}
