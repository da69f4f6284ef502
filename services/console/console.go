// Package console is the debug/REPL pipe spec.md §4.3 describes: a byte
// transport carrying operator instructions of the form "<receiver> <verb>
// [args...]", routed to the named Receiver's ProcDirectDebugInstruction
// without the kernel itself knowing any instruction syntax.
package console

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"github.com/google/shlex"

	"manuvr-go/receiver"
	"manuvr-go/x/shmring"
)

// ringSize is the byte-ring capacity backing the producer (serial reader)
// and consumer (line splitter) goroutines; must be a power of two.
const ringSize = 1024

// Console multiplexes one byte stream (platform.SerialPort or any
// equivalent read/writer) across the named Receivers registered with it.
type Console struct {
	mu      sync.Mutex
	targets map[string]receiver.Receiver

	port Port
	ring *shmring.Ring
}

// Port is the minimal byte-stream contract Console needs; platform.SerialPort
// satisfies it.
type Port interface {
	Write(b []byte) (int, error)
	RecvSomeContext(ctx context.Context, buf []byte) (int, error)
}

// New returns a Console reading and writing over port.
func New(port Port) *Console {
	return &Console{
		targets: make(map[string]receiver.Receiver),
		port:    port,
		ring:    shmring.New(ringSize),
	}
}

// Register makes name resolvable as an instruction target. Safe to call
// concurrently with Start.
func (c *Console) Register(name string, r receiver.Receiver) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.targets[name] = r
}

// Start runs the producer and consumer goroutines until ctx is done.
func (c *Console) Start(ctx context.Context) {
	go c.readLoop(ctx)
	go c.dispatchLoop(ctx)
}

// readLoop is shmring's sole producer: it pulls bytes off the port and
// feeds them into the ring, dropping whatever doesn't fit if a line is
// never consumed in time.
func (c *Console) readLoop(ctx context.Context) {
	buf := make([]byte, 256)
	for {
		n, err := c.port.RecvSomeContext(ctx, buf)
		if err != nil {
			return
		}
		if n > 0 {
			c.ring.TryWriteFrom(buf[:n])
		}
	}
}

// dispatchLoop is shmring's sole consumer: it drains the ring, splits on
// newlines, and dispatches each complete line.
func (c *Console) dispatchLoop(ctx context.Context) {
	var pending []byte
	chunk := make([]byte, 256)
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.ring.Readable():
		}
		for {
			n := c.ring.TryReadInto(chunk)
			if n == 0 {
				break
			}
			pending = append(pending, chunk[:n]...)
		}
		for {
			i := bytes.IndexByte(pending, '\n')
			if i < 0 {
				break
			}
			line := string(bytes.TrimRight(pending[:i], "\r"))
			pending = pending[i+1:]
			c.dispatch(line)
		}
	}
}

func (c *Console) dispatch(line string) {
	if line == "" {
		return
	}
	target, instruction, err := parseLine(line)
	if err != nil {
		c.reply(fmt.Sprintf("ERR: %v\n", err))
		return
	}
	c.mu.Lock()
	r, ok := c.targets[target]
	c.mu.Unlock()
	if !ok {
		c.reply(fmt.Sprintf("ERR: unknown target %q\n", target))
		return
	}
	if err := r.ProcDirectDebugInstruction(instruction); err != nil {
		c.reply(fmt.Sprintf("ERR: %v\n", err))
		return
	}
	c.reply("OK\n")
}

func (c *Console) reply(s string) {
	_, _ = c.port.Write([]byte(s))
}

// parseLine tokenizes a line the way a shell would (honoring quoting), then
// splits it into a target name and the remainder as the instruction string
// ProcDirectDebugInstruction receives.
func parseLine(line string) (target, instruction string, err error) {
	fields, err := shlex.Split(line)
	if err != nil {
		return "", "", fmt.Errorf("console: %w", err)
	}
	if len(fields) == 0 {
		return "", "", fmt.Errorf("console: empty instruction")
	}
	target = fields[0]
	instruction = joinFields(fields[1:])
	return target, instruction, nil
}

func joinFields(fields []string) string {
	if len(fields) == 0 {
		return ""
	}
	out := fields[0]
	for _, f := range fields[1:] {
		out += " " + f
	}
	return out
}
