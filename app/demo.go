package app

import (
	"context"
	"errors"
	"fmt"

	"sparkrt/sparkos/kernel"
	"sparkrt/sparkos/signal"
	"sparkrt/sparkos/sigset"

	"golang.org/x/sync/errgroup"
)

var errThreadPanicked = errors.New("thread panicked")

// Demo timeouts, in ticks.
const (
	demoHold    kernel.Timeout = 4
	demoLockTTL kernel.Timeout = 500
	demoSigTTL  kernel.Timeout = 500
)

// spawnIn runs entry on a new kernel thread as a member of g. The member
// returns entry's error, or ctx's when the group is cancelled first, in which
// case the thread is aborted.
func spawnIn(ctx context.Context, g *errgroup.Group, k *kernel.Kernel, cfg kernel.ThreadConfig, entry func(*kernel.Context) error) (*kernel.Thread, error) {
	done := make(chan error, 1)
	th, err := k.Spawn(cfg, func(c *kernel.Context) {
		err := errThreadPanicked
		defer func() { done <- err }()
		err = entry(c)
	})
	if err != nil {
		return nil, fmt.Errorf("spawn %s: %w", cfg.Name, err)
	}
	g.Go(func() error {
		select {
		case err := <-done:
			if err != nil {
				return fmt.Errorf("%s: %w", cfg.Name, err)
			}
			return nil
		case <-ctx.Done():
			_ = k.Abort(th)
			return ctx.Err()
		}
	})
	return th, nil
}

// announceHeld tells to that the caller holds m. If the signal cannot be
// queued, m is released before returning.
func announceHeld(c *kernel.Context, sigs *signal.Subsystem, m *kernel.Mutex, to *kernel.Thread, signo, round int) error {
	if err := sigs.Queue(c, to, signo, signal.Value{Int: round}); err != nil {
		return errors.Join(fmt.Errorf("round %d: queue held: %w", round, err), m.Unlock(c))
	}
	return nil
}

// runDemo drives two scenarios for the given number of rounds:
//
//   - priority inversion: "low" takes a mutex and tells "high" through a
//     real-time signal; "high" then blocks on the mutex and boosts "low"
//     above the CPU-bound "mid" until the mutex changes hands.
//   - ping/pong: "ping" and "pong" bounce a counter through queued
//     real-time signals.
func runDemo(ctx context.Context, s *System, rounds int) error {
	k, sigs := s.k, s.sigs
	levels := k.Config().Priorities
	if levels < 3 {
		return fmt.Errorf("demo needs 3 priority levels, profile has %d", levels)
	}
	rt := s.prof.Signal.RTMin
	sigHeld, sigPing, sigPong := rt, rt+1, rt+2
	for _, n := range []int{sigHeld, sigPing, sigPong} {
		if !sigset.Valid(n) {
			return fmt.Errorf("demo signal %d out of range", n)
		}
	}
	hiPrio, midPrio, loPrio := 1, levels/2, levels-1

	g, ctx := errgroup.WithContext(ctx)
	m := k.NewMutex()
	led := s.h.LED()

	high, err := spawnIn(ctx, g, k, kernel.ThreadConfig{Name: "high", Priority: hiPrio}, func(c *kernel.Context) error {
		for i := 0; i < rounds; i++ {
			if _, err := sigs.TimedWait(c, sigset.Of(sigHeld), demoSigTTL); err != nil {
				return fmt.Errorf("round %d: wait held: %w", i, err)
			}
			if err := m.Lock(c, demoLockTTL); err != nil {
				return fmt.Errorf("round %d: lock: %w", i, err)
			}
			s.mon.Printf("ev=demo scenario=inversion round=%d got=high", i)
			if err := m.Unlock(c); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	_, err = spawnIn(ctx, g, k, kernel.ThreadConfig{Name: "low", Priority: loPrio}, func(c *kernel.Context) error {
		for i := 0; i < rounds; i++ {
			if err := m.Lock(c, kernel.Forever); err != nil {
				return err
			}
			if led != nil {
				led.High()
			}
			if err := announceHeld(c, sigs, m, high, sigHeld, i); err != nil {
				return err
			}
			c.Sleep(demoHold)
			_, cur := m.OwnerPriority()
			s.mon.Printf("ev=demo scenario=inversion round=%d holder=low prio=%d", i, cur)
			if led != nil {
				led.Low()
			}
			if err := m.Unlock(c); err != nil {
				return err
			}
			c.Sleep(1)
		}
		return nil
	})
	if err != nil {
		return err
	}

	_, err = spawnIn(ctx, g, k, kernel.ThreadConfig{Name: "mid", Priority: midPrio}, func(c *kernel.Context) error {
		for i := 0; i < rounds*int(demoHold); i++ {
			if !c.Sleep(1) {
				return nil
			}
			c.Yield()
		}
		return nil
	})
	if err != nil {
		return err
	}

	var ping, pong *kernel.Thread
	pong, err = spawnIn(ctx, g, k, kernel.ThreadConfig{Name: "pong", Priority: midPrio, Suspended: true}, func(c *kernel.Context) error {
		for i := 0; i < rounds; i++ {
			info, err := sigs.TimedWait(c, sigset.Of(sigPing), demoSigTTL)
			if err != nil {
				return fmt.Errorf("round %d: wait ping: %w", i, err)
			}
			if err := sigs.Queue(c, ping, sigPong, signal.Value{Int: info.Value.Int + 1}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	ping, err = spawnIn(ctx, g, k, kernel.ThreadConfig{Name: "ping", Priority: midPrio, Suspended: true}, func(c *kernel.Context) error {
		n := 0
		for i := 0; i < rounds; i++ {
			if err := sigs.Queue(c, pong, sigPing, signal.Value{Int: n}); err != nil {
				return err
			}
			info, err := sigs.TimedWait(c, sigset.Of(sigPong), demoSigTTL)
			if err != nil {
				return fmt.Errorf("round %d: wait pong: %w", i, err)
			}
			if info.Value.Int != n+1 {
				return fmt.Errorf("round %d: pong carried %d, want %d", i, info.Value.Int, n+1)
			}
			n = info.Value.Int
			s.mon.Printf("ev=demo scenario=pingpong round=%d value=%d", i, n)
		}
		return nil
	})
	if err != nil {
		return err
	}
	_ = k.Resume(pong)
	_ = k.Resume(ping)

	return g.Wait()
}
