package bridge

import (
	"context"
	"testing"
	"time"

	"manuvr-go/bus"
	"manuvr-go/kernel"
	"manuvr-go/message"
	"manuvr-go/receiver"
)

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

func TestReceiverRelaysBridgeStateAsMessage(t *testing.T) {
	reg := message.NewRegistry()
	k := kernel.New(reg, kernel.DefaultConfig())

	rec := newRecordingReceiver()
	if err := k.Subscribe(rec, 0); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	b := bus.NewBus(4)
	conn := b.NewConnection("bridge-receiver-test")

	r := NewReceiver(k, conn)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.Start(ctx)

	conn.Publish(&bus.Message{
		Topic:    bus.Topic{"bridge", "state"},
		Payload:  map[string]any{"level": "ready", "status": "linked"},
		Retained: true,
	})

	deadline := time.After(time.Second)
	for {
		k.ProcIdleFlags()
		for _, m := range rec.notified {
			if m.Code() == CodeState {
				if m.ArgCount() != 1 {
					t.Fatalf("ArgCount = %d, want 1", m.ArgCount())
				}
				return
			}
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for CodeState relay")
		case <-time.After(time.Millisecond):
		}
	}
}
