package kernel

import "fmt"

// PanicInfo contains details about a kernel panic.
type PanicInfo struct {
	Thread ThreadID
	Value  any
	Stack  []byte
}

// AssertionError is the panic value of a failed invariant check.
type AssertionError struct {
	Thread ThreadID
	Err    error
	Msg    string
}

func (e *AssertionError) Error() string {
	return fmt.Sprintf("kernel assertion: thread=%d %s (%v)", e.Thread, e.Msg, e.Err)
}

func (e *AssertionError) Unwrap() error { return e.Err }

// InPanicMode reports whether the kernel has panicked.
func (k *Kernel) InPanicMode() bool {
	return k.panicActive.Load()
}

// SetPanicHandler installs the panic handler, replacing Config.OnPanic.
//
// The handler is invoked at most once (on the first panic). It must not panic.
func (k *Kernel) SetPanicHandler(fn func(PanicInfo)) {
	k.panicHandler.Store(fn)
}

func (k *Kernel) triggerPanic(info PanicInfo) {
	k.panicOnce.Do(func() {
		k.panicActive.Store(true)
		info.Stack = captureStack()
		if v := k.panicHandler.Load(); v != nil {
			if fn, ok := v.(func(PanicInfo)); ok && fn != nil {
				fn(info)
			}
		}
	})
}

// check enforces an invariant. In AssertReturn mode a violation returns err;
// in AssertPanic mode it panics with an *AssertionError after running the
// panic handler.
func (k *Kernel) check(ok bool, err error, t *Thread, format string, args ...any) error {
	if ok {
		return nil
	}
	if k.cfg.Assert != AssertPanic {
		return err
	}
	ae := &AssertionError{Err: err, Msg: fmt.Sprintf(format, args...)}
	if t != nil {
		ae.Thread = t.id
	}
	k.triggerPanic(PanicInfo{Thread: ae.Thread, Value: ae})
	panic(ae)
}

// Assert applies the kernel's assertion strategy on behalf of subsystems
// layered over it.
func (k *Kernel) Assert(ok bool, err error, t *Thread, format string, args ...any) error {
	return k.check(ok, err, t, format, args...)
}
