// Package monitor renders kernel trace events as key=value lines on the HAL
// logger and, when a framebuffer is present, a tinyterm console.
//
// Tracer callbacks run with kernel interrupts masked, so they only format and
// enqueue; Run does the writing. Events that do not fit in the queue are
// counted and dropped.
package monitor

import (
	"context"
	"fmt"
	"sync/atomic"

	"sparkrt/hal"
	"sparkrt/sparkos/kernel"
	"sparkrt/sparkos/signal"
)

// Config tunes the monitor.
type Config struct {
	// Buffer is the number of lines queued ahead of Run.
	Buffer int
	// Console mirrors lines on the display.
	Console bool
	// Switches logs every dispatcher switch.
	Switches bool
}

// DefaultConfig returns the stock configuration.
func DefaultConfig() Config {
	return Config{Buffer: 256, Console: true}
}

type Service struct {
	log  hal.Logger
	disp hal.Display
	cfg  Config

	lines   chan string
	dropped atomic.Uint64
}

var _ kernel.Tracer = (*Service)(nil)

func New(log hal.Logger, disp hal.Display, cfg Config) *Service {
	if cfg.Buffer <= 0 {
		cfg.Buffer = DefaultConfig().Buffer
	}
	return &Service{
		log:   log,
		disp:  disp,
		cfg:   cfg,
		lines: make(chan string, cfg.Buffer),
	}
}

func (s *Service) emit(line string) {
	select {
	case s.lines <- line:
	default:
		s.dropped.Add(1)
	}
}

// Printf queues a free-form line.
func (s *Service) Printf(format string, args ...any) {
	s.emit(fmt.Sprintf(format, args...))
}

// Dropped returns the number of lines lost to a full queue.
func (s *Service) Dropped() uint64 { return s.dropped.Load() }

func (s *Service) ThreadState(t *kernel.Thread, old, cur kernel.State) {
	s.emit(fmt.Sprintf("ev=state tid=%d name=%s old=%s new=%s", t.ID(), t.Name(), old, cur))
}

func (s *Service) ThreadSwitch(prev, next *kernel.Thread) {
	if !s.cfg.Switches {
		return
	}
	s.emit(fmt.Sprintf("ev=switch from=%s to=%s", threadName(prev), threadName(next)))
}

func (s *Service) PriorityChange(t *kernel.Thread, old, cur int) {
	s.emit(fmt.Sprintf("ev=prio tid=%d name=%s old=%d new=%d", t.ID(), t.Name(), old, cur))
}

func threadName(t *kernel.Thread) string {
	if t == nil {
		return "idle"
	}
	if t.Name() == "" {
		return fmt.Sprintf("#%d", t.ID())
	}
	return t.Name()
}

// Snapshot queues one line per thread of k.
func (s *Service) Snapshot(k *kernel.Kernel) {
	for _, t := range k.Threads() {
		s.emit(fmt.Sprintf("ev=thread tid=%d name=%s prio=%d state=%s", t.ID(), t.Name(), t.Priority(), t.State()))
	}
}

// SignalStats queues the occupancy of a signal queue.
func (s *Service) SignalStats(sub *signal.Subsystem) {
	s.emit(fmt.Sprintf("ev=sigq len=%d cap=%d", sub.Len(), sub.Cap()))
}

// Run writes queued lines until ctx is done, then flushes what is left.
func (s *Service) Run(ctx context.Context) error {
	var con *console
	if s.cfg.Console {
		con = newConsole(s.disp)
	}
	for {
		select {
		case line := <-s.lines:
			s.write(con, line)
			s.drain(con)
			if con != nil {
				con.flush()
			}
		case <-ctx.Done():
			s.drain(con)
			if con != nil {
				con.flush()
			}
			return ctx.Err()
		}
	}
}

func (s *Service) drain(con *console) {
	for {
		select {
		case line := <-s.lines:
			s.write(con, line)
		default:
			return
		}
	}
}

func (s *Service) write(con *console, line string) {
	if con != nil {
		con.writeLine(line)
	}
	if s.log != nil {
		s.log.WriteLineString(line)
	}
}
