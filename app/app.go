package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sparkrt/hal"
	"sparkrt/internal/buildinfo"
	"sparkrt/internal/profile"
	"sparkrt/sparkos/kernel"
	"sparkrt/sparkos/services/monitor"
	"sparkrt/sparkos/signal"
)

var (
	// ErrDemoDone is returned by the step function once the demo workload
	// has completed successfully.
	ErrDemoDone = errors.New("demo finished")
	// ErrPanicked is returned by the step function after a kernel panic.
	ErrPanicked = errors.New("kernel panic")
)

type Config struct {
	// Profile selects the kernel, signal and monitor configuration; nil
	// means profile.Default().
	Profile *profile.Profile
	// Demo runs the priority-inversion and signal ping/pong workload.
	Demo bool
}

// System is a running kernel with its signal subsystem and monitor.
type System struct {
	h       hal.HAL
	prof    *profile.Profile
	k       *kernel.Kernel
	sigs    *signal.Subsystem
	mon     *monitor.Service
	cancel  context.CancelFunc
	demoErr chan error
}

// NewSystem builds and starts the runtime over h.
func NewSystem(h hal.HAL, cfg Config) (*System, error) {
	p := cfg.Profile
	if p == nil {
		p = profile.Default()
	}

	mon := monitor.New(h.Logger(), h.Display(), p.MonitorConfig())
	kc := p.KernelConfig()
	kc.IRQ = h.IRQ()
	kc.Tracer = mon
	kc.OnPanic = panicHandler(h)

	k, err := kernel.New(kc)
	if err != nil {
		return nil, fmt.Errorf("kernel: %w", err)
	}
	sigs, err := signal.New(k, p.SignalConfig())
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &System{
		h:      h,
		prof:   p,
		k:      k,
		sigs:   sigs,
		mon:    mon,
		cancel: cancel,
	}
	mon.Printf("ev=boot %s profile=%s levels=%d threads=%d assert=%s",
		buildinfo.Long(), p.Name, kc.Priorities, kc.Threads, kc.Assert)
	go func() { _ = mon.Run(ctx) }()
	s.startTicks(ctx)

	if cfg.Demo {
		s.demoErr = make(chan error, 1)
		go func() { s.demoErr <- runDemo(ctx, s, p.Demo.Rounds) }()
	}
	return s, nil
}

func (s *System) startTicks(ctx context.Context) {
	ht := s.h.Time()
	if ht == nil {
		return
	}
	ch := ht.Ticks()
	if ch == nil {
		return
	}
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case seq := <-ch:
				s.k.TickTo(seq)
			}
		}
	}()
}

func (s *System) Kernel() *kernel.Kernel     { return s.k }
func (s *System) Signals() *signal.Subsystem { return s.sigs }
func (s *System) Monitor() *monitor.Service  { return s.mon }

// Step reports the system status once per frame.
func (s *System) Step() error {
	if s.k.InPanicMode() {
		return ErrPanicked
	}
	if s.demoErr == nil {
		return nil
	}
	select {
	case err := <-s.demoErr:
		s.demoErr = nil
		if err != nil {
			return fmt.Errorf("demo: %w", err)
		}
		s.mon.Snapshot(s.k)
		s.mon.SignalStats(s.sigs)
		return ErrDemoDone
	default:
		return nil
	}
}

// Close stops the tick pump, the monitor and any demo threads.
func (s *System) Close() {
	s.cancel()
}

// NewWithConfig initializes the runtime and returns its step function.
func NewWithConfig(h hal.HAL, cfg Config) func() error {
	s, err := NewSystem(h, cfg)
	if err != nil {
		return func() error { return err }
	}
	return s.Step
}

// Run starts the runtime and blocks forever (TinyGo/native entrypoint).
func Run(h hal.HAL, cfg Config) {
	s, err := NewSystem(h, cfg)
	if err != nil {
		h.Logger().WriteLineString("sparkrt: " + err.Error())
		select {}
	}
	for {
		if err := s.Step(); err != nil {
			h.Logger().WriteLineString("sparkrt: " + err.Error())
			select {}
		}
		time.Sleep(10 * time.Millisecond)
	}
}
