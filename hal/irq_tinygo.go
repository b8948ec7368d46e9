//go:build tinygo && baremetal

package hal

import "runtime/interrupt"

// interruptIRQ masks interrupts on the MCU core.
type interruptIRQ struct{}

func (interruptIRQ) Disable() uintptr {
	return uintptr(interrupt.Disable())
}

func (interruptIRQ) Restore(state uintptr) {
	interrupt.Restore(interrupt.State(state))
}
