package kernel

import (
	"testing"
	"time"
)

func TestAfter(t *testing.T) {
	k := newTestKernel(t, nil)

	ch, cancel := k.After(2)
	defer cancel()
	k.Tick()
	select {
	case <-ch:
		t.Fatal("After(2) fired after one tick")
	default:
	}
	k.Tick()
	select {
	case <-ch:
	default:
		t.Fatal("After(2) did not fire after two ticks")
	}

	now, _ := k.After(NoWait)
	select {
	case <-now:
	default:
		t.Fatal("After(NoWait) is not closed")
	}

	never, _ := k.After(Forever)
	if never != nil {
		t.Fatal("After(Forever) returned a channel")
	}

	cancelled, stop := k.After(1)
	stop()
	k.TickTo(10)
	select {
	case <-cancelled:
		t.Fatal("cancelled timer fired")
	default:
	}
}

func TestTickToIgnoresPast(t *testing.T) {
	k := newTestKernel(t, nil)
	k.TickTo(7)
	k.TickTo(3)
	if got := k.Now(); got != 7 {
		t.Fatalf("Now() = %d, want 7", got)
	}
}

func TestSpawnRunsEntryAndRetires(t *testing.T) {
	k := newTestKernel(t, nil)
	ran := make(chan ThreadID, 1)

	th, err := k.Spawn(ThreadConfig{Name: "worker", Priority: 3}, func(c *Context) {
		ran <- c.Thread().ID()
	})
	if err != nil {
		t.Fatal(err)
	}
	if got := recvWithTimeout(t, ran); got != th.ID() {
		t.Fatalf("entry ran as %d, want %d", got, th.ID())
	}
	waitFor(t, "worker to retire", func() bool { return !k.Alive(th) })
}

func TestSpawnSuspendedWaitsForResume(t *testing.T) {
	k := newTestKernel(t, nil)
	ran := make(chan struct{}, 1)

	th, err := k.Spawn(ThreadConfig{Name: "late", Priority: 3, Suspended: true}, func(*Context) {
		ran <- struct{}{}
	})
	if err != nil {
		t.Fatal(err)
	}
	select {
	case <-ran:
		t.Fatal("suspended thread ran before Resume")
	case <-time.After(20 * time.Millisecond):
	}

	if err := k.Resume(th); err != nil {
		t.Fatal(err)
	}
	recvWithTimeout(t, ran)
}

func TestAbortParkedThreadNeverRuns(t *testing.T) {
	k := newTestKernel(t, nil)
	ran := make(chan struct{}, 1)
	th, err := k.Spawn(ThreadConfig{Priority: 3, Suspended: true}, func(*Context) {
		ran <- struct{}{}
	})
	if err != nil {
		t.Fatal(err)
	}
	_ = k.Abort(th)
	select {
	case <-ran:
		t.Fatal("aborted thread ran")
	case <-time.After(20 * time.Millisecond):
	}
}

func TestSpawnPanicInvokesHandler(t *testing.T) {
	infos := make(chan PanicInfo, 1)
	k := newTestKernel(t, func(c *Config) {
		c.OnPanic = func(info PanicInfo) { infos <- info }
	})

	th, err := k.Spawn(ThreadConfig{Priority: 1}, func(*Context) { panic("boom") })
	if err != nil {
		t.Fatal(err)
	}
	info := recvWithTimeout(t, infos)
	if info.Thread != th.ID() || info.Value != "boom" {
		t.Fatalf("panic info = %+v", info)
	}
	if len(info.Stack) == 0 {
		t.Fatal("panic info has no stack")
	}
	waitFor(t, "panicked thread to retire", func() bool { return !k.Alive(th) })
}

func TestSleepWakesOnDeadline(t *testing.T) {
	k := newTestKernel(t, nil)
	woke := make(chan uint64, 1)

	th, err := k.Spawn(ThreadConfig{Priority: 2}, func(c *Context) {
		if c.Sleep(3) {
			woke <- c.Now()
		}
	})
	if err != nil {
		t.Fatal(err)
	}
	waitFor(t, "thread to sleep", hasState(th, StateSleeping))

	k.TickTo(2)
	select {
	case <-woke:
		t.Fatal("woke before the deadline")
	case <-time.After(10 * time.Millisecond):
	}
	k.TickTo(3)
	if got := recvWithTimeout(t, woke); got != 3 {
		t.Fatalf("woke at tick %d, want 3", got)
	}
}

func TestAccessGrants(t *testing.T) {
	k := newTestKernel(t, nil)
	sup := newThread(t, k, "sup", 1, false)
	obj := newThread(t, k, "obj", 1, false)
	usr, err := k.NewThread(ThreadConfig{Name: "usr", Priority: 1, User: true})
	if err != nil {
		t.Fatal(err)
	}

	if !k.HasAccess(sup, obj) {
		t.Fatal("supervisor denied")
	}
	if !k.HasAccess(usr, usr) {
		t.Fatal("self access denied")
	}
	if k.HasAccess(usr, obj) {
		t.Fatal("user thread has access without a grant")
	}
	if err := k.GrantAccess(obj, usr); err != nil {
		t.Fatal(err)
	}
	if !k.HasAccess(usr, obj) {
		t.Fatal("grant not honoured")
	}
}

func TestAbortHooksRunOnce(t *testing.T) {
	k := newTestKernel(t, nil)
	th := newThread(t, k, "t", 1, false)
	var got []ThreadID
	k.OnAbort(func(x *Thread) { got = append(got, x.ID()) })

	_ = k.Abort(th)
	_ = k.Abort(th)
	if len(got) != 1 || got[0] != th.ID() {
		t.Fatalf("abort hooks saw %v, want [%d]", got, th.ID())
	}
}

func TestStateString(t *testing.T) {
	if got := State(0).String(); got != "ready" {
		t.Fatalf("State(0) = %q", got)
	}
	if got := (StateSuspended | StateLockWait).String(); got != "suspended|lockwait" {
		t.Fatalf("String() = %q", got)
	}
}
