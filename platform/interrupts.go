package platform

import "sync"

// interruptLock stands in for a real MCU's interrupt-mask register on
// hosted builds: a plain mutex makes "mask interrupts while touching the ISR
// queue" and "a goroutine raising an event from an ISR-like context" behave
// the same way under `go test` as they would cross-core on a microcontroller.
var interruptLock sync.Mutex

// MaskInterrupts runs fn with the platform's interrupt-mask critical section
// held, mirroring the teacher's pattern of keeping ISR-to-channel handoffs
// short and non-blocking (services/hal/gpio_worker.go). On an MCU build this
// would disable and restore the IRQ mask instead of taking a mutex.
func MaskInterrupts(fn func()) {
	interruptLock.Lock()
	defer interruptLock.Unlock()
	fn()
}
