package app

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"sparkrt/hal"
	"sparkrt/internal/profile"
	"sparkrt/sparkos/errno"
	"sparkrt/sparkos/kernel"
	"sparkrt/sparkos/signal"
	"sparkrt/sparkos/sigset"
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

func (l *memLogger) has(prefix string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, line := range l.lines {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	return false
}

type nopLED struct{}

func (nopLED) High() {}
func (nopLED) Low()  {}

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

type chanTime struct{ ch chan uint64 }

func (t chanTime) Ticks() <-chan uint64 { return t.ch }

type lockIRQ struct{ mu sync.Mutex }

func (l *lockIRQ) Disable() uintptr { l.mu.Lock(); return 0 }
func (l *lockIRQ) Restore(uintptr)  { l.mu.Unlock() }

type testHAL struct {
	log  *memLogger
	fb   *memFB
	time chanTime
	irq  *lockIRQ
}

func newTestHAL() *testHAL {
	return &testHAL{
		log:  &memLogger{},
		fb:   &memFB{w: 96, h: 64, buf: make([]byte, 96*64*2)},
		time: chanTime{ch: make(chan uint64, 16)},
		irq:  &lockIRQ{},
	}
}

func (h *testHAL) Logger() hal.Logger   { return h.log }
func (h *testHAL) LED() hal.LED         { return nopLED{} }
func (h *testHAL) Display() hal.Display { return memDisplay{fb: h.fb} }
func (h *testHAL) Time() hal.Time       { return h.time }
func (h *testHAL) IRQ() hal.IRQ         { return h.irq }

// pumpTicks feeds a tick every 100µs until stop is closed.
func pumpTicks(h *testHAL, stop <-chan struct{}) {
	go func() {
		var seq uint64
		for {
			seq++
			select {
			case h.time.ch <- seq:
			case <-stop:
				return
			}
			time.Sleep(100 * time.Microsecond)
		}
	}()
}

func TestDemoCompletes(t *testing.T) {
	h := newTestHAL()
	p := profile.Default()
	p.Demo.Rounds = 3
	p.Monitor.Console = false
	p.Monitor.Buffer = 4096

	s, err := NewSystem(h, Config{Profile: p, Demo: true})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	stop := make(chan struct{})
	defer close(stop)
	pumpTicks(h, stop)

	deadline := time.Now().Add(5 * time.Second)
	for {
		err := s.Step()
		if errors.Is(err, ErrDemoDone) {
			break
		}
		if err != nil {
			t.Fatalf("Step() = %v", err)
		}
		if time.Now().After(deadline) {
			t.Fatal("demo did not finish")
		}
		time.Sleep(time.Millisecond)
	}

	waitLog := func(prefix string) {
		t.Helper()
		for !h.log.has(prefix) {
			if time.Now().After(deadline) {
				t.Fatalf("no log line starting with %q", prefix)
			}
			time.Sleep(time.Millisecond)
		}
	}
	waitLog("ev=boot ")
	waitLog("ev=demo scenario=pingpong round=2 value=3")
	waitLog("ev=demo scenario=inversion round=2 got=high")
	waitLog("ev=prio tid=1 name=low old=31 new=1")
	waitLog("ev=sigq len=0")

	if s.Signals().Len() != 0 {
		t.Fatalf("signal queue left with %d records", s.Signals().Len())
	}
	if err := s.Step(); err != nil {
		t.Fatalf("Step() after completion = %v", err)
	}
}

func TestDemoRejectsTooFewLevels(t *testing.T) {
	h := newTestHAL()
	p := profile.Default()
	p.Kernel.Priorities = 2

	s, err := NewSystem(h, Config{Profile: p, Demo: true})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	deadline := time.Now().Add(time.Second)
	for {
		err := s.Step()
		if err != nil {
			if errors.Is(err, ErrDemoDone) {
				t.Fatal("demo succeeded with two levels")
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("demo did not fail")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestBadProfileFailsStep(t *testing.T) {
	p := profile.Default()
	p.Kernel.Threads = 0
	step := NewWithConfig(newTestHAL(), Config{Profile: p})
	if err := step(); err == nil {
		t.Fatal("step succeeded with an invalid kernel config")
	}
}

func TestPanicScreen(t *testing.T) {
	h := newTestHAL()
	panicHandler(h)(kernel.PanicInfo{Thread: 3, Value: "boom", Stack: []byte("frame one\nframe two\n")})

	if !h.log.has("panic: boom") || !h.log.has("frame two") {
		t.Fatalf("panic lines not logged: %v", h.log.lines)
	}
	white := hal.RGB565(255, 255, 255)
	dark := 0
	for i := 0; i+1 < len(h.fb.buf); i += 2 {
		if uint16(h.fb.buf[i])|uint16(h.fb.buf[i+1])<<8 != white {
			dark++
		}
	}
	if dark == 0 {
		t.Fatal("panic screen has no text")
	}
}

func TestTakeRunes(t *testing.T) {
	tests := []struct {
		s          string
		n          int16
		head, tail string
	}{
		{"abcdef", 4, "abcd", "ef"},
		{"abc", 4, "abc", ""},
		{"héllo", 2, "hé", "llo"},
		{"x", 0, "", "x"},
	}
	for _, tc := range tests {
		head, tail := takeRunes(tc.s, tc.n)
		if head != tc.head || tail != tc.tail {
			t.Fatalf("takeRunes(%q, %d) = %q, %q", tc.s, tc.n, head, tail)
		}
	}
}

func TestAnnounceHeldReleasesOnFailure(t *testing.T) {
	k, err := kernel.New(kernel.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	sigs, err := signal.New(k, signal.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	low, err := k.NewThread(kernel.ThreadConfig{Name: "low", Priority: 9})
	if err != nil {
		t.Fatal(err)
	}
	high, err := k.NewThread(kernel.ThreadConfig{Name: "high", Priority: 1})
	if err != nil {
		t.Fatal(err)
	}
	c := k.ContextOf(low)
	m := k.NewMutex()
	if err := m.Lock(c, kernel.NoWait); err != nil {
		t.Fatal(err)
	}
	_ = k.Abort(high)

	err = announceHeld(c, sigs, m, high, sigset.RTMin, 0)
	if !errors.Is(err, errno.ESRCH) {
		t.Fatalf("announceHeld err = %v, want ESRCH", err)
	}
	if m.Level() != 0 {
		t.Fatalf("mutex level = %d after failed announce, want 0", m.Level())
	}
}
