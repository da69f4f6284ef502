package heartbeat

import (
	"context"

	"manuvr-go/bus"
	"manuvr-go/kernel"
	"manuvr-go/message"
	"manuvr-go/receiver"
	"manuvr-go/value"
)

// CodeTick is raised once per heartbeat/tick publish, an idempotency-free
// liveness signal the kernel can subscribe any Receiver to.
const CodeTick message.Code = 0x1081

// Receiver relays conn's heartbeat/tick topic onto k.
type Receiver struct {
	*receiver.Base
	k    *kernel.Kernel
	conn *bus.Connection
}

func NewReceiver(k *kernel.Kernel, conn *bus.Connection) *Receiver {
	return &Receiver{Base: receiver.NewBase(0), k: k, conn: conn}
}

func (r *Receiver) Start(ctx context.Context) {
	sub := r.conn.Subscribe(topicHeartbeatTick)
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
	ts, _ := m.Payload.(map[string]any)["ts_ms"].(int64)
	out := message.New(CodeTick, 0)
	if err := out.AddArg(ts, value.Int64, false); err != nil {
		r.PrintDebug(3, "heartbeat tick AddArg failed: %v", err)
		return
	}
	if _, err := r.k.StaticRaiseEvent(out); err != nil {
		r.PrintDebug(3, "heartbeat tick raise failed: %v", err)
	}
}

func (r *Receiver) Attached() error { return nil }

func (r *Receiver) ProcDirectDebugInstruction(instruction string) error { return nil }

func (r *Receiver) Notify(m *message.Message) (int8, error) { return 0, nil }

func (r *Receiver) CallbackProc(m *message.Message) message.CallbackCode {
	return message.Reap
}
