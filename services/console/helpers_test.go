package console

import (
	"context"
	"io"
	"sync"

	"manuvr-go/message"
	"manuvr-go/receiver"
)

// receiverBaseStub satisfies everything in receiver.Receiver except
// ProcDirectDebugInstruction, which fakeReceiver overrides.
type receiverBaseStub struct{ *receiver.Base }

func (r *receiverBaseStub) Attached() error { return nil }

func (r *receiverBaseStub) Notify(m *message.Message) (int8, error) { return 0, nil }

func (r *receiverBaseStub) CallbackProc(m *message.Message) message.CallbackCode {
	return message.Reap
}

var _ receiver.Receiver = (*fakeReceiver)(nil)

// loopbackPort is a Port fake that never yields a read and records writes.
type loopbackPort struct {
	mu      sync.Mutex
	written []byte
}

func (p *loopbackPort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.written = append(p.written, b...)
	return len(b), nil
}

func (p *loopbackPort) RecvSomeContext(ctx context.Context, buf []byte) (int, error) {
	<-ctx.Done()
	return 0, io.EOF
}
