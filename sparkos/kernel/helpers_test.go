package kernel

import (
	"testing"
	"time"
)

const testTimeout = 1 * time.Second

func newTestKernel(t *testing.T, mutate func(*Config)) *Kernel {
	t.Helper()
	cfg := DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	k, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return k
}

func newThread(t *testing.T, k *Kernel, name string, prio int, suspended bool) *Thread {
	t.Helper()
	th, err := k.NewThread(ThreadConfig{Name: name, Priority: prio, Suspended: suspended})
	if err != nil {
		t.Fatalf("NewThread(%s): %v", name, err)
	}
	return th
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(testTimeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func recvWithTimeout[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(testTimeout):
		t.Fatal("timed out waiting for value")
	}
	var zero T
	return zero
}

func lockAsync(m *Mutex, c *Context, timeout Timeout) <-chan error {
	ch := make(chan error, 1)
	go func() { ch <- m.Lock(c, timeout) }()
	return ch
}

// recTracer records events for assertions.
type recTracer struct {
	states   []State
	switches []ThreadID
	prios    [][2]int
}

func (r *recTracer) ThreadState(_ *Thread, old, cur State) { r.states = append(r.states, old^cur) }

func (r *recTracer) ThreadSwitch(_, next *Thread) {
	if next == nil {
		r.switches = append(r.switches, noThread)
		return
	}
	r.switches = append(r.switches, next.id)
}

func (r *recTracer) PriorityChange(_ *Thread, old, cur int) {
	r.prios = append(r.prios, [2]int{old, cur})
}
