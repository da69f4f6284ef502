// Package kernel implements the event/message dispatch engine at the center
// of the system: a subscriber registry, three intake queues (execute, ISR,
// schedule), a cooperative run loop, a Message preallocation pool, and
// call-ahead/call-back listener hooks. It is grounded on the teacher's
// services/hal/hal.go run loop (select-driven dispatch over a handful of
// channels) generalized from a fixed device set to an open subscriber list,
// and on services/hal/gpio_worker.go for the ISR-safe intake pattern.
package kernel

import (
	"sync"
	"time"

	"manuvr-go/errcode"
	"manuvr-go/message"
	"manuvr-go/platform"
	"manuvr-go/receiver"
)

// Config bounds the run loop's behavior. Zero-value Config is usable; see
// DefaultConfig for the values a production Kernel should start from.
type Config struct {
	// MaxEventsPerLoop caps how many Messages ProcIdleFlags pops per call.
	// Zero means "use EventBudget instead" (spec.md §4.4.2).
	MaxEventsPerLoop int
	// EventBudget is the wall-clock ceiling for a single ProcIdleFlags call
	// when MaxEventsPerLoop is zero.
	EventBudget time.Duration
	// MaxIdleCount is how many consecutive no-op loops trigger the platform
	// idle hook.
	MaxIdleCount int
	// PreallocCount sizes the Message preallocation pool
	// (EVENT_MANAGER_PREALLOC_COUNT in the original).
	PreallocCount int
	// MaxSequentialSkips is the threshold past which, if SkipFailsafe is
	// set, the kernel asks the platform to reboot into the bootloader
	// (spec.md §4.4.3, §9 Design Notes).
	MaxSequentialSkips int
	// SkipFailsafe gates the bootloader-jump behavior above.
	SkipFailsafe bool
}

// DefaultConfig mirrors the original's usual tuning: a modest preallocation
// pool, a 1200us dispatch budget, and the skip failsafe armed.
func DefaultConfig() Config {
	return Config{
		EventBudget:        1200 * time.Microsecond,
		MaxIdleCount:       8,
		PreallocCount:      16,
		MaxSequentialSkips: 4,
		SkipFailsafe:       true,
	}
}

type subscription struct {
	r        receiver.Receiver
	priority int
}

// IdleHook is invoked when the run loop has done zero work for
// Config.MaxIdleCount consecutive calls. Production builds wire a
// platform-specific low-power wait; tests typically leave it nil.
type IdleHook func()

// Kernel is the dispatch engine. Build one with New and register Receivers
// with Subscribe before the first ProcIdleFlags call.
type Kernel struct {
	mu   sync.Mutex
	subs []subscription

	execQ *priorityQueue
	isrQ  []*message.Message

	schedules []*message.Message

	pool *preallocPool

	registry *message.Registry

	caListeners map[message.Code][]Listener
	cbListeners map[message.Code][]Listener

	profiler *profiler

	clock    clock
	rng      rng
	rebooter platform.Rebooter

	cfg Config

	accMu         sync.Mutex
	accumulatorMs uint32
	skipLatch     bool

	skipsObserved    int
	laggedSchedules  int
	insertionDenials int
	deadEvents       int
	queueDepthMax    int

	idleCount int
	idleHook  IdleHook

	booted bool

	nextPID uint32
}

// clock and rng are the minimal slices of platform.Clock/platform.RNG the
// kernel actually needs, declared locally so tests can fake them without
// importing platform.
type clock interface{ NowMs() int64 }
type rng interface{ Uint32() uint32 }

// New constructs a Kernel using the given message Registry and config. It
// wires in the production platform.Clock/RNG/Rebooter by default; override
// via WithClock/WithRNG/WithRebooter before booting for tests.
func New(registry *message.Registry, cfg Config) *Kernel {
	k := &Kernel{
		execQ:       &priorityQueue{},
		registry:    registry,
		caListeners: map[message.Code][]Listener{},
		cbListeners: map[message.Code][]Listener{},
		profiler:    newProfiler(),
		clock:       platform.DefaultClock,
		rng:         platform.DefaultRNG,
		rebooter:    platform.DefaultRebooter,
		cfg:         cfg,
	}
	k.pool = newPreallocPool(cfg.PreallocCount)
	return k
}

// WithClock overrides the kernel's time source (for deterministic tests).
func (k *Kernel) WithClock(c clock) *Kernel { k.clock = c; return k }

// WithRNG overrides the kernel's randomness source.
func (k *Kernel) WithRNG(r rng) *Kernel { k.rng = r; return k }

// WithRebooter overrides the kernel's failsafe reboot target.
func (k *Kernel) WithRebooter(r platform.Rebooter) *Kernel { k.rebooter = r; return k }

// WithIdleHook installs the platform idle callback.
func (k *Kernel) WithIdleHook(h IdleHook) *Kernel { k.idleHook = h; return k }

// Registry returns the kernel's message schema registry.
func (k *Kernel) Registry() *message.Registry { return k.registry }

// Subscribe registers r at the given priority. If the kernel has already
// booted (Bootstrap or ProcIdleFlags has run at least once), r.Attached()
// is invoked immediately, matching "subscribers joining after boot have
// attached() invoked on insertion" (spec.md §4.4.1). Receivers registered
// before boot get Attached() from Bootstrap instead, once, in one batch.
func (k *Kernel) Subscribe(r receiver.Receiver, priority int) error {
	k.mu.Lock()
	k.subs = append(k.subs, subscription{r: r, priority: priority})
	sortSubsByPriority(k.subs)
	booted := k.booted
	k.mu.Unlock()
	if booted {
		return r.Attached()
	}
	return nil
}

// Bootstrap implements spec.md §4.3/§4.4.1's boot lifecycle and §8
// scenario 1 ("Boot broadcast"): it calls Attached() once on every
// receiver already registered, marks the kernel booted so any later
// Subscribe gets its Attached() call immediately instead, and raises
// CodeBootCompleted addressed to the Kernel itself so the completion
// callback "runs on the Kernel" once the broadcast has reached every
// subscriber. Call this once, after the initial round of Subscribe calls
// and before the first ProcIdleFlags. A second call is a no-op.
func (k *Kernel) Bootstrap() error {
	k.mu.Lock()
	if k.booted {
		k.mu.Unlock()
		return nil
	}
	k.booted = true
	subs := make([]subscription, len(k.subs))
	copy(subs, k.subs)
	k.mu.Unlock()

	for _, s := range subs {
		if err := s.r.Attached(); err != nil {
			return err
		}
	}
	_, err := k.RaiseEvent(message.CodeBootCompleted, k, 0)
	return err
}

// Notify implements message.Target so the Kernel can originate its own
// Bootstrap boot-completed Message. The Kernel is never a broadcast
// subscriber, only ever an originator, so Notify is never called in
// practice and takes no action.
func (k *Kernel) Notify(m *message.Message) (int8, error) { return 0, nil }

// CallbackProc implements message.Target for the Kernel's own
// boot-completed Message: once every subscriber has observed it, reap it.
func (k *Kernel) CallbackProc(m *message.Message) message.CallbackCode {
	return message.Reap
}

// Unsubscribe removes r from the subscriber registry.
func (k *Kernel) Unsubscribe(r receiver.Receiver) {
	k.mu.Lock()
	defer k.mu.Unlock()
	for i, s := range k.subs {
		if s.r == r {
			k.subs = append(k.subs[:i], k.subs[i+1:]...)
			return
		}
	}
}

func sortSubsByPriority(subs []subscription) {
	// insertion sort: subscriber lists are small and this keeps insertion
	// order stable among equal priorities, same rationale as priorityQueue.
	for i := 1; i < len(subs); i++ {
		j := i
		for j > 0 && subs[j-1].priority < subs[j].priority {
			subs[j-1], subs[j] = subs[j], subs[j-1]
			j--
		}
	}
}

// Validation error codes, matching spec.md §4.4.1's numbered rejections.
const (
	ErrNullMessage      errcode.Code = "kernel_null_message"
	ErrUndefinedCode     errcode.Code = "kernel_undefined_code"
	ErrDuplicatePointer errcode.Code = "kernel_duplicate_pointer"
	ErrIdempotencyBlock errcode.Code = "kernel_idempotency_block"
)

// ErrorNumber maps a validate_insertion rejection to the small negative
// integer the original spec's C API returned, for callers/tests that want
// the literal "-3" form spec.md §8 describes.
func ErrorNumber(err error) int8 {
	switch err {
	case ErrNullMessage:
		return -1
	case ErrUndefinedCode:
		return -2
	case ErrDuplicatePointer:
		return -3
	case ErrIdempotencyBlock:
		return -4
	default:
		return 0
	}
}

// validateInsertion enforces spec.md §4.4.1's rejection list against the
// execute queue. Idempotency-flagged codes already queued are rejected
// silently per the original's "second is rejected without error" rule; the
// caller (RaiseEvent/StaticRaiseEvent) decides whether to surface that as a
// no-op rather than an error, matching "rejected without error."
func (k *Kernel) validateInsertion(m *message.Message) error {
	if m == nil {
		return ErrNullMessage
	}
	if m.Code() == message.Undefined_ {
		return ErrUndefinedCode
	}
	if k.execQ.contains(m) {
		return ErrDuplicatePointer
	}
	if def, ok := k.registry.Lookup(m.Code()); ok && def.Idempotent() {
		if k.execQ.hasCode(m.Code()) {
			return ErrIdempotencyBlock
		}
	}
	return nil
}

// RaiseEvent builds a Message for code (preferring the preallocation pool)
// and enqueues it, addressed to originator for the completion callback.
// Idempotency-blocked raises are not errors (spec.md: "rejected without
// error") but are reported via ok=false so callers/tests can still observe
// them. Every validation failure, idempotency blocks included, increments
// insertionDenials; every failure other than an idempotency block is also
// returned as an error.
func (k *Kernel) RaiseEvent(code message.Code, originator message.Target, priority int8) (ok bool, err error) {
	m := k.pool.acquire(code, priority)
	m.SetOriginator(originator)
	return k.enqueue(m)
}

// StaticRaiseEvent enqueues an already-constructed Message, same validation
// and disposition rules as RaiseEvent.
func (k *Kernel) StaticRaiseEvent(m *message.Message) (ok bool, err error) {
	return k.enqueue(m)
}

func (k *Kernel) enqueue(m *message.Message) (bool, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if err := k.validateInsertion(m); err != nil {
		if err == ErrIdempotencyBlock {
			k.insertionDenials++
			k.reclaimLocked(m)
			return false, nil
		}
		k.insertionDenials++
		k.reclaimLocked(m)
		return false, err
	}
	m.SetDequeuer(k)
	k.execQ.push(m)
	if k.execQ.len() > k.queueDepthMax {
		k.queueDepthMax = k.execQ.len()
	}
	return true, nil
}

// IsrRaiseEvent enqueues m into the ISR queue under an interrupt-masked
// critical section (spec.md §4.4.1, §5). Safe to call from an interrupt or
// I/O-thread context; it does no queue traversal beyond a linear duplicate
// check bounded by the ISR queue's (small) size.
func (k *Kernel) IsrRaiseEvent(m *message.Message) (ok bool, err error) {
	if m == nil {
		return false, ErrNullMessage
	}
	platform.MaskInterrupts(func() {
		for _, x := range k.isrQ {
			if x == m {
				err = ErrDuplicatePointer
				return
			}
		}
		m.SetDequeuer(k)
		k.isrQ = append(k.isrQ, m)
		ok = true
	})
	return ok, err
}

// Dequeue implements message.Dequeuer for Abort: it removes m from whatever
// queue currently holds it. It reports false if m is not found in either
// queue (e.g. it is the currently-executing Message, per spec.md §5
// "abort() on the currently-executing Message returns false without
// effect").
func (k *Kernel) Dequeue(m *message.Message) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.execQ.remove(m) {
		return true
	}
	return k.removeFromISRQueue(m)
}

func (k *Kernel) removeFromISRQueue(m *message.Message) bool {
	removed := false
	platform.MaskInterrupts(func() {
		for i, x := range k.isrQ {
			if x == m {
				k.isrQ = append(k.isrQ[:i], k.isrQ[i+1:]...)
				removed = true
				return
			}
		}
	})
	return removed
}

// reclaimLocked disposes of m per its ownership rule (spec.md §4.2
// "Ownership rules at end-of-life"). Callers must hold k.mu.
func (k *Kernel) reclaimLocked(m *message.Message) {
	switch m.Ownership() {
	case message.Pooled:
		k.pool.release(m)
	case message.Borrowed, message.Scheduled:
		// left alone: an external owner, or the schedule queue, still holds it.
	default:
		// Owned and otherwise unreferenced: nothing to do, the Go GC reclaims
		// it once this was the last reference.
	}
}

// Stats is a snapshot of the kernel's health counters, independent of
// whether the optional profiler is enabled (spec.md §4.4.6 distinguishes
// "optional per-code profile records" from counters that matter for
// degraded-mode diagnosis regardless).
type Stats struct {
	InsertionDenials int
	DeadEvents       int
	QueueDepthMax    int
	LaggedSchedules  int
	SkipsObserved    int
	PreallocStarved  int
}

// Stats returns a snapshot of the kernel's always-on health counters.
func (k *Kernel) Stats() Stats {
	k.mu.Lock()
	defer k.mu.Unlock()
	return Stats{
		InsertionDenials: k.insertionDenials,
		DeadEvents:       k.deadEvents,
		QueueDepthMax:    k.queueDepthMax,
		LaggedSchedules:  k.laggedSchedules,
		SkipsObserved:    k.skipsObserved,
		PreallocStarved:  k.pool.starved,
	}
}
