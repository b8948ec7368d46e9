package monitor

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"sparkrt/hal"
	"sparkrt/sparkos/kernel"
	"sparkrt/sparkos/signal"
)

type memLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *memLogger) WriteLineString(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, s)
}

func (l *memLogger) WriteLineBytes(b []byte) { l.WriteLineString(string(b)) }

func (l *memLogger) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.lines...)
}

type memFB struct {
	w, h int
	buf  []byte
}

func (f *memFB) Width() int              { return f.w }
func (f *memFB) Height() int             { return f.h }
func (f *memFB) Format() hal.PixelFormat { return hal.PixelFormatRGB565 }
func (f *memFB) StrideBytes() int        { return f.w * 2 }
func (f *memFB) Buffer() []byte          { return f.buf }
func (f *memFB) Present() error          { return nil }
func (f *memFB) ClearRGB(r, g, b uint8) {
	p := hal.RGB565(r, g, b)
	for i := 0; i+1 < len(f.buf); i += 2 {
		f.buf[i], f.buf[i+1] = byte(p), byte(p>>8)
	}
}

type memDisplay struct{ fb *memFB }

func (d memDisplay) Framebuffer() hal.Framebuffer { return d.fb }

func runUntil(t *testing.T, s *Service, done func() bool) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- s.Run(ctx) }()

	deadline := time.Now().Add(time.Second)
	for !done() {
		if time.Now().After(deadline) {
			cancel()
			t.Fatal("timed out waiting for monitor output")
		}
		time.Sleep(time.Millisecond)
	}
	cancel()
	if err := <-errc; !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() = %v, want context.Canceled", err)
	}
}

func contains(lines []string, want string) bool {
	for _, l := range lines {
		if l == want {
			return true
		}
	}
	return false
}

func TestKernelEventsFormatted(t *testing.T) {
	log := &memLogger{}
	mon := New(log, nil, Config{Buffer: 64})

	cfg := kernel.DefaultConfig()
	cfg.Tracer = mon
	k, err := kernel.New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	th, err := k.NewThread(kernel.ThreadConfig{Name: "A", Priority: 4})
	if err != nil {
		t.Fatal(err)
	}
	if err := k.SetPriority(th, 9); err != nil {
		t.Fatal(err)
	}
	_ = k.Suspend(th)
	mon.Snapshot(k)

	wants := []string{
		"ev=prio tid=0 name=A old=4 new=9",
		"ev=state tid=0 name=A old=ready new=suspended",
		"ev=thread tid=0 name=A prio=9 state=suspended",
	}
	runUntil(t, mon, func() bool {
		lines := log.snapshot()
		for _, w := range wants {
			if !contains(lines, w) {
				return false
			}
		}
		return true
	})
	for _, l := range log.snapshot() {
		if strings.HasPrefix(l, "ev=switch") {
			t.Fatalf("switch event logged with Switches off: %q", l)
		}
	}
}

func TestSwitchEvents(t *testing.T) {
	log := &memLogger{}
	mon := New(log, nil, Config{Buffer: 16, Switches: true})
	cfg := kernel.DefaultConfig()
	cfg.Tracer = mon
	k, err := kernel.New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := k.NewThread(kernel.ThreadConfig{Name: "A", Priority: 1}); err != nil {
		t.Fatal(err)
	}
	runUntil(t, mon, func() bool { return contains(log.snapshot(), "ev=switch from=idle to=A") })
}

func TestFullQueueDrops(t *testing.T) {
	mon := New(&memLogger{}, nil, Config{Buffer: 2})
	for i := 0; i < 5; i++ {
		mon.Printf("line %d", i)
	}
	if got := mon.Dropped(); got != 3 {
		t.Fatalf("Dropped() = %d, want 3", got)
	}
}

func TestSignalStats(t *testing.T) {
	log := &memLogger{}
	mon := New(log, nil, Config{Buffer: 4})
	k, err := kernel.New(kernel.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	sub, err := signal.New(k, signal.Config{QueueSize: 8, RTMin: 32})
	if err != nil {
		t.Fatal(err)
	}
	mon.SignalStats(sub)
	runUntil(t, mon, func() bool { return contains(log.snapshot(), "ev=sigq len=0 cap=8") })
}

func TestConsoleDrawsOnFramebuffer(t *testing.T) {
	fb := &memFB{w: 64, h: 32, buf: make([]byte, 64*32*2)}
	log := &memLogger{}
	mon := New(log, memDisplay{fb: fb}, Config{Buffer: 4, Console: true})
	mon.Printf("hello")

	runUntil(t, mon, func() bool { return len(log.snapshot()) == 1 })
	lit := false
	for _, b := range fb.buf {
		if b != 0 {
			lit = true
			break
		}
	}
	if !lit {
		t.Fatal("console left the framebuffer blank")
	}
}

func TestConsoleHonoursColorSequences(t *testing.T) {
	fb := &memFB{w: 64, h: 32, buf: make([]byte, 64*32*2)}
	log := &memLogger{}
	mon := New(log, memDisplay{fb: fb}, Config{Buffer: 4, Console: true})
	mon.Printf("\x1b[31mX")

	runUntil(t, mon, func() bool { return len(log.snapshot()) == 1 })
	red := hal.RGB565(0xCD, 0, 0)
	for i := 0; i+1 < len(fb.buf); i += 2 {
		if uint16(fb.buf[i])|uint16(fb.buf[i+1])<<8 == red {
			return
		}
	}
	t.Fatal("no red pixel after SGR 31")
}
