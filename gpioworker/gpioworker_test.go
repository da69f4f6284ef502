package gpioworker

import (
	"context"
	"testing"
	"time"

	"manuvr-go/kernel"
	"manuvr-go/message"
	"manuvr-go/platform"
	"manuvr-go/receiver"
)

// fakePin is a platform.IRQPin test double whose level is driven directly
// by the test and whose handler is invoked synchronously, standing in for
// an ISR firing on a real pin.
type fakePin struct {
	level   bool
	handler func()
}

func (p *fakePin) ConfigureInput(pull platform.Pull) error { return nil }
func (p *fakePin) ConfigureOutput(initial bool) error      { p.level = initial; return nil }
func (p *fakePin) Set(level bool)                          { p.level = level }
func (p *fakePin) Get() bool                               { return p.level }
func (p *fakePin) Toggle()                                 { p.level = !p.level }
func (p *fakePin) Number() int                              { return 1 }
func (p *fakePin) SetIRQ(edge platform.Edge, handler func()) error {
	p.handler = handler
	return nil
}
func (p *fakePin) ClearIRQ() error { p.handler = nil; return nil }

// fire flips the pin to level and invokes the armed handler, simulating one
// interrupt the way a real MCU ISR would call it.
func (p *fakePin) fire(level bool) {
	p.level = level
	if p.handler != nil {
		p.handler()
	}
}

type recordingReceiver struct {
	*receiver.Base
	notified []*message.Message
}

func newRecordingReceiver() *recordingReceiver {
	return &recordingReceiver{Base: receiver.NewBase(7)}
}

func (r *recordingReceiver) Attached() error { return nil }

func (r *recordingReceiver) ProcDirectDebugInstruction(instruction string) error { return nil }

func (r *recordingReceiver) Notify(m *message.Message) (int8, error) {
	r.notified = append(r.notified, m)
	return 1, nil
}

func (r *recordingReceiver) CallbackProc(m *message.Message) message.CallbackCode {
	return message.Reap
}

func waitFor(t *testing.T, k *kernel.Kernel, rec *recordingReceiver, n int) {
	t.Helper()
	deadline := time.After(time.Second)
	for {
		k.ProcIdleFlags()
		if len(rec.notified) >= n {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for %d notifications, got %d", n, len(rec.notified))
		case <-time.After(time.Millisecond):
		}
	}
}

func TestRisingEdgeRaisesGPIOEdgeMessage(t *testing.T) {
	reg := message.NewRegistry()
	k := kernel.New(reg, kernel.DefaultConfig())
	rec := newRecordingReceiver()
	if err := k.Subscribe(rec, 0); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	w := New(k, 8)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)

	pin := &fakePin{level: false}
	if _, err := w.RegisterInput("btn0", pin, platform.EdgeRising, 0, false); err != nil {
		t.Fatalf("RegisterInput: %v", err)
	}

	pin.fire(true)
	waitFor(t, k, rec, 1)

	if rec.notified[0].Code() != CodeGPIOEdge {
		t.Fatalf("code = 0x%x, want CodeGPIOEdge", rec.notified[0].Code())
	}
}

func TestFallingEdgeIgnoredWhenWatchingRisingOnly(t *testing.T) {
	reg := message.NewRegistry()
	k := kernel.New(reg, kernel.DefaultConfig())
	rec := newRecordingReceiver()
	if err := k.Subscribe(rec, 0); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	w := New(k, 8)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)

	pin := &fakePin{level: true}
	if _, err := w.RegisterInput("btn0", pin, platform.EdgeRising, 0, false); err != nil {
		t.Fatalf("RegisterInput: %v", err)
	}

	pin.fire(false) // falling edge, not being watched
	time.Sleep(20 * time.Millisecond)
	k.ProcIdleFlags()

	if len(rec.notified) != 0 {
		t.Fatalf("got %d notifications, want 0", len(rec.notified))
	}
}

func TestDebounceSuppressesRepeatWithinWindow(t *testing.T) {
	reg := message.NewRegistry()
	k := kernel.New(reg, kernel.DefaultConfig())
	rec := newRecordingReceiver()
	if err := k.Subscribe(rec, 0); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	w := New(k, 8)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)

	pin := &fakePin{level: false}
	if _, err := w.RegisterInput("btn0", pin, platform.EdgeBoth, 1000, false); err != nil {
		t.Fatalf("RegisterInput: %v", err)
	}

	pin.fire(true)
	waitFor(t, k, rec, 1)

	pin.fire(false) // within the 1s debounce window
	time.Sleep(20 * time.Millisecond)
	k.ProcIdleFlags()

	if len(rec.notified) != 1 {
		t.Fatalf("got %d notifications, want 1 (second edge debounced)", len(rec.notified))
	}
}

func TestRegisterInputWithEdgeNoneIsANoop(t *testing.T) {
	reg := message.NewRegistry()
	k := kernel.New(reg, kernel.DefaultConfig())
	w := New(k, 8)

	pin := &fakePin{}
	cancel, err := w.RegisterInput("btn0", pin, platform.EdgeNone, 0, false)
	if err != nil {
		t.Fatalf("RegisterInput: %v", err)
	}
	cancel()

	if pin.handler != nil {
		t.Fatal("expected no IRQ armed for EdgeNone")
	}
}
