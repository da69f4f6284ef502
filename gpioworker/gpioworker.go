// Package gpioworker bridges GPIO interrupts into the kernel's ISR queue.
// It is grounded on the teacher's services/hal/gpio_worker.go: an ISR
// handler does nothing but capture a pin level and push onto a small
// buffered channel, a background goroutine drains that channel, debounces,
// and turns qualifying edges into events for a consumer — here, instead of
// a hal-service-owned output channel, the consumer is kernel.IsrRaiseEvent,
// so a GPIO edge becomes an ordinary Message any Receiver can subscribe to
// (spec.md §4.4.1 "isrRaiseEvent... callable from an interrupt context").
package gpioworker

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"manuvr-go/kernel"
	"manuvr-go/message"
	"manuvr-go/platform"
	"manuvr-go/value"
)

// CodeGPIOEdge is raised once per debounced, edge-matching transition. Its
// arguments are (devID Str, level Uint8, edge Uint8, ts_ms Int64).
const CodeGPIOEdge message.Code = 0x1070

type isrEvent struct {
	devID string
	level bool
}

type watch struct {
	devID     string
	pin       platform.IRQPin
	edge      platform.Edge
	debounce  time.Duration
	invert    bool
	lastLevel bool
	lastEvent time.Time
	cancelIRQ func()
}

// Worker owns the ISR-safe intake channel and per-pin debounce state. Build
// one with New, call Start once a Kernel is running, and RegisterInput per
// GPIO-backed device.
type Worker struct {
	k *kernel.Kernel

	isrQ chan isrEvent

	mu     sync.RWMutex
	inputs map[string]*watch

	drops uint32
}

// New builds a Worker that raises CodeGPIOEdge Messages into k. isrBuf sizes
// the ISR-to-goroutine handoff channel (defaults to 64 if <= 0).
func New(k *kernel.Kernel, isrBuf int) *Worker {
	if isrBuf <= 0 {
		isrBuf = 64
	}
	return &Worker{
		k:      k,
		isrQ:   make(chan isrEvent, isrBuf),
		inputs: map[string]*watch{},
	}
}

// Start runs the debounce/dispatch goroutine until ctx is done.
func (w *Worker) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-w.isrQ:
				w.handleISR(ev)
			}
		}
	}()
}

// RegisterInput arms edge in response on pin, identified by devID. The
// returned func deregisters the IRQ and drops the watch.
func (w *Worker) RegisterInput(devID string, pin platform.IRQPin, edge platform.Edge, debounceMS int, invert bool) (func(), error) {
	if edge == platform.EdgeNone {
		return func() {}, nil
	}
	wh := &watch{
		devID:     devID,
		pin:       pin,
		edge:      edge,
		debounce:  time.Duration(debounceMS) * time.Millisecond,
		invert:    invert,
		lastLevel: pin.Get(),
	}

	// ISR handler: fast register read + non-blocking channel send. Must
	// never block or allocate on MCU builds.
	handler := func() {
		l := pin.Get()
		select {
		case w.isrQ <- isrEvent{devID: devID, level: l}:
		default:
			atomic.AddUint32(&w.drops, 1)
		}
	}
	if err := pin.SetIRQ(edge, handler); err != nil {
		return nil, err
	}
	wh.cancelIRQ = func() { _ = pin.ClearIRQ() }

	w.mu.Lock()
	w.inputs[devID] = wh
	w.mu.Unlock()

	return func() {
		w.mu.Lock()
		if cur, ok := w.inputs[devID]; ok {
			if cur.cancelIRQ != nil {
				cur.cancelIRQ()
			}
			delete(w.inputs, devID)
		}
		w.mu.Unlock()
	}, nil
}

// ISRDrops reports how many ISR events were dropped because the intake
// channel was full or the kernel rejected the resulting raise, the same
// failsafe counter the teacher's worker kept.
func (w *Worker) ISRDrops() uint32 { return atomic.LoadUint32(&w.drops) }

func (w *Worker) handleISR(ev isrEvent) {
	w.mu.RLock()
	wh := w.inputs[ev.devID]
	w.mu.RUnlock()
	if wh == nil {
		return
	}
	raw := ev.level
	if wh.invert {
		raw = !raw
	}
	now := time.Now()

	if !wh.lastEvent.IsZero() && now.Sub(wh.lastEvent) < wh.debounce {
		return
	}

	var e platform.Edge
	switch {
	case !wh.lastLevel && raw:
		e = platform.EdgeRising
	case wh.lastLevel && !raw:
		e = platform.EdgeFalling
	default:
		return
	}

	wh.lastLevel = raw
	wh.lastEvent = now

	if wh.edge != platform.EdgeBoth && wh.edge != e {
		return
	}

	m := message.New(CodeGPIOEdge, 0)
	_ = m.AddArg(ev.devID, value.Str, false)
	level := uint8(0)
	if raw {
		level = 1
	}
	_ = m.AddArg(level, value.Uint8, false)
	_ = m.AddArg(uint8(e), value.Uint8, false)
	_ = m.AddArg(now.UnixMilli(), value.Int64, false)

	if ok, err := w.k.IsrRaiseEvent(m); !ok && err != nil {
		atomic.AddUint32(&w.drops, 1)
	}
}
