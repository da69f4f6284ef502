package config

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

func TestReceiverRelaysConfigLoadedAsMessage(t *testing.T) {
	reg := message.NewRegistry()
	k := kernel.New(reg, kernel.DefaultConfig())

	rec := newRecordingReceiver()
	if err := k.Subscribe(rec, 0); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	b := bus.NewBus(4)
	conn := b.NewConnection("config-receiver-test")

	r := NewReceiver(k, conn)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.Start(ctx)

	conn.Publish(&bus.Message{
		Topic:    topicConfigLoaded,
		Payload:  map[string]any{"device": "pico", "keys": 3},
		Retained: true,
	})

	deadline := time.After(time.Second)
	for {
		k.ProcIdleFlags()
		for _, m := range rec.notified {
			if m.Code() == CodeLoaded {
				v, err := m.GetArgAs(0)
				if err != nil {
					t.Fatalf("GetArgAs: %v", err)
				}
				if v.(string) != "pico" {
					t.Fatalf("device = %v, want pico", v)
				}
				return
			}
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for CodeLoaded relay")
		case <-time.After(time.Millisecond):
		}
	}
}
