// Package platform is the thin host/MCU façade the kernel and bus layers
// depend on instead of touching hardware registers or OS primitives
// directly: a clock, a source of random IDs, interrupt masking, and reboot
// control. It follows the teacher's x/fmtx and x/strconvx host/mcu build-tag
// split (spec.md §9 Design Notes: "Interrupt-disable critical sections...
// expose a thin abstraction with_interrupts_masked(...) that maps to
// platform facilities; in hosted builds... the masking primitive is a
// no-op").
package platform

import "manuvr-go/x/timex"

// Clock is the kernel's source of elapsed time, grounded on x/timex (the
// teacher's own millisecond-clock helper).
type Clock struct{}

// NowMs returns the current time in milliseconds, matching the resolution
// the scheduler ticks in (spec.md §4.4, GLOSSARY "Tick").
func (Clock) NowMs() int64 { return timex.NowMs() }

// DefaultClock is the Clock every production Kernel wires in; tests supply
// their own fake satisfying the same interface instead.
var DefaultClock Clock
