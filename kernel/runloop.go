package kernel

import (
	"time"

	"manuvr-go/message"
	"manuvr-go/platform"
)

// ProcIdleFlags runs one pass of the dispatch loop (spec.md §4.4.2):
//  1. Service due scheduled Messages, promoting them into the execute queue.
//  2. Drain the ISR queue into the execute queue under an interrupt mask.
//  3. Pop and dispatch Messages while the queue is non-empty and the budget
//     (Config.MaxEventsPerLoop, or Config.EventBudget wall time) allows.
//  4. (Pending pipe-I/O callbacks: left to BufferPipe implementations
//     registered as ordinary subscribers in this port; there is no separate
//     nextTick queue here.)
//  5. If the loop did zero work for Config.MaxIdleCount consecutive calls,
//     invoke the idle hook.
func (k *Kernel) ProcIdleFlags() {
	k.mu.Lock()
	k.booted = true
	k.mu.Unlock()

	k.serviceSchedules()
	k.drainISRQueue()

	start := time.Now()
	events := 0
	for {
		k.mu.Lock()
		if k.execQ.len() == 0 {
			k.mu.Unlock()
			break
		}
		if k.cfg.MaxEventsPerLoop > 0 && events >= k.cfg.MaxEventsPerLoop {
			k.mu.Unlock()
			break
		}
		if k.cfg.MaxEventsPerLoop == 0 && k.cfg.EventBudget > 0 && time.Since(start) >= k.cfg.EventBudget {
			k.mu.Unlock()
			break
		}
		m := k.execQ.pop()
		k.mu.Unlock()

		k.dispatch(m)
		events++
	}

	if events == 0 {
		k.idleCount++
		if k.idleCount >= k.cfg.MaxIdleCount && k.idleHook != nil {
			k.idleHook()
			k.idleCount = 0
		}
	} else {
		k.idleCount = 0
	}

	k.profiler.recordLoop(events, time.Since(start), events == 0)
}

// drainISRQueue moves every pending ISR-raised Message into the execute
// queue, preserving arrival order, under the platform's interrupt mask.
func (k *Kernel) drainISRQueue() {
	var pending []*message.Message
	platform.MaskInterrupts(func() {
		pending = k.isrQ
		k.isrQ = nil
	})
	for _, m := range pending {
		k.mu.Lock()
		if err := k.validateInsertion(m); err != nil {
			k.insertionDenials++
			k.reclaimLocked(m)
			k.mu.Unlock()
			continue
		}
		k.execQ.push(m)
		if k.execQ.len() > k.queueDepthMax {
			k.queueDepthMax = k.execQ.len()
		}
		k.mu.Unlock()
	}
}

// dispatch runs one Message through call-ahead, broadcast/targeted
// delivery, call-back, profiling, and the originator's completion callback
// (spec.md §4.4.2 step 3).
func (k *Kernel) dispatch(m *message.Message) {
	start := time.Now()

	activity := k.runCallAhead(m)

	if target := m.SpecificTarget(); target != nil {
		n, _ := m.Execute(target)
		if n < 0 {
			if dbg, ok := target.(interface {
				PrintDebug(int, string, ...any)
			}); ok {
				dbg.PrintDebug(0, "notify reported bad state for code %v", m.Code())
			}
		}
		if n != 0 {
			activity = 1
		}
	} else {
		k.mu.Lock()
		subs := make([]subscription, len(k.subs))
		copy(subs, k.subs)
		k.mu.Unlock()
		for _, s := range subs {
			n, _ := s.r.Notify(m)
			if n < 0 {
				s.r.PrintDebug(0, "notify reported bad state for code %v", m.Code())
			}
			if n != 0 {
				activity = 1
			}
		}
	}

	if cbActivity := k.runCallBack(m); cbActivity != 0 {
		activity = 1
	}

	k.profiler.recordEvent(m.Code(), time.Since(start))

	if activity == 0 {
		k.mu.Lock()
		k.deadEvents++
		k.mu.Unlock()
	}

	k.finishMessage(m)
}

// finishMessage invokes the originator's completion callback and applies
// its disposition (spec.md §4.4.2 step 3e, §4.3).
func (k *Kernel) finishMessage(m *message.Message) {
	switch m.CallbackOriginator() {
	case message.Recycle:
		k.mu.Lock()
		k.execQ.push(m)
		k.mu.Unlock()
	default:
		k.mu.Lock()
		k.reclaimLocked(m)
		k.mu.Unlock()
	}
}
