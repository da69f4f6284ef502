package bridge

import (
	"context"
	"encoding/json"

	"manuvr-go/bus"
	"manuvr-go/kernel"
	"manuvr-go/message"
	"manuvr-go/receiver"
	"manuvr-go/value"
)

// CodeState is raised once per "bridge/state" publish, letting the kernel
// observe the link's lifecycle (spec.md §4.6's promise that the core makes
// no assumptions about a driver's shape) without the bridge itself knowing
// about Receivers or Messages beyond this one adapter.
const CodeState message.Code = 0x1080

// Receiver bridges bus "bridge/state" retained messages onto the kernel.
// It never participates in the bridge's own pub/sub wiring beyond
// subscribing to the one topic it relays.
type Receiver struct {
	*receiver.Base
	k    *kernel.Kernel
	conn *bus.Connection
}

// NewReceiver builds a Receiver that relays conn's bridge/state topic onto
// k. Call Start once both conn and k are running.
func NewReceiver(k *kernel.Kernel, conn *bus.Connection) *Receiver {
	return &Receiver{Base: receiver.NewBase(0), k: k, conn: conn}
}

// Start runs the relay goroutine until ctx is done.
func (r *Receiver) Start(ctx context.Context) {
	sub := r.conn.Subscribe(bus.Topic{"bridge", "state"})
	go func() {
		defer r.conn.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case m := <-sub.Channel():
				r.relay(m)
			}
		}
	}()
}

func (r *Receiver) relay(m *bus.Message) {
	b, err := json.Marshal(m.Payload)
	if err != nil {
		r.PrintDebug(3, "bridge state marshal failed: %v", err)
		return
	}
	out := message.New(CodeState, 0)
	if err := out.AddArg(string(b), value.Str, false); err != nil {
		r.PrintDebug(3, "bridge state AddArg failed: %v", err)
		return
	}
	if _, err := r.k.StaticRaiseEvent(out); err != nil {
		r.PrintDebug(3, "bridge state raise failed: %v", err)
	}
}

func (r *Receiver) Attached() error { return nil }

func (r *Receiver) ProcDirectDebugInstruction(instruction string) error { return nil }

// Notify never sees inbound kernel Messages; this Receiver only emits. It
// still implements message.Target so it can subscribe to the kernel if a
// future operation needs to push configuration into the bridge.
func (r *Receiver) Notify(m *message.Message) (int8, error) { return 0, nil }

func (r *Receiver) CallbackProc(m *message.Message) message.CallbackCode {
	return message.Reap
}
