package config

import (
	"context"

	"manuvr-go/bus"
	"manuvr-go/kernel"
	"manuvr-go/message"
	"manuvr-go/receiver"
	"manuvr-go/value"
)

// CodeLoaded is raised once config/loaded is published, telling the kernel
// a device's embedded configuration has been published as retained topics.
const CodeLoaded message.Code = 0x1082

// Receiver relays conn's config/loaded topic onto k.
type Receiver struct {
	*receiver.Base
	k    *kernel.Kernel
	conn *bus.Connection
}

func NewReceiver(k *kernel.Kernel, conn *bus.Connection) *Receiver {
	return &Receiver{Base: receiver.NewBase(0), k: k, conn: conn}
}

func (r *Receiver) Start(ctx context.Context) {
	sub := r.conn.Subscribe(topicConfigLoaded)
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
	device, _ := m.Payload.(map[string]any)["device"].(string)
	out := message.New(CodeLoaded, 0)
	if err := out.AddArg(device, value.Str, false); err != nil {
		r.PrintDebug(3, "config loaded AddArg failed: %v", err)
		return
	}
	if _, err := r.k.StaticRaiseEvent(out); err != nil {
		r.PrintDebug(3, "config loaded raise failed: %v", err)
	}
}

func (r *Receiver) Attached() error { return nil }

func (r *Receiver) ProcDirectDebugInstruction(instruction string) error { return nil }

func (r *Receiver) Notify(m *message.Message) (int8, error) { return 0, nil }

func (r *Receiver) CallbackProc(m *message.Message) message.CallbackCode {
	return message.Reap
}
