// Package receiver defines the uniform attach point every kernel subscriber
// implements: a capability set in place of the teacher's shared base-class
// dispatch (spec.md §9 Design Notes), plus a small local log buffer every
// subsystem gets for free.
package receiver

import (
	"sync"

	"manuvr-go/message"
	"manuvr-go/x/fmtx"
)

// Receiver is the full contract a kernel subscriber offers. It embeds
// message.Target (Notify + CallbackProc) so any Receiver structurally
// satisfies Target without the message package ever importing this one.
type Receiver interface {
	message.Target

	// Attached is called once, when the kernel accepts this Receiver into
	// its subscriber registry (at boot, or when joining post-boot).
	Attached() error

	// PrintDebug appends a formatted line to the Receiver's local log
	// buffer, gated by verbosity.
	PrintDebug(verbosity int, format string, args ...any)

	// ProcDirectDebugInstruction lets an operator poke at a Receiver's
	// internal state from a console/debug transport without inventing a new
	// message code per subsystem.
	ProcDirectDebugInstruction(instruction string) error
}

// Base is embeddable scaffolding implementing the logging half of Receiver
// (local buffer + verbosity), mirroring the pattern of a per-subsystem debug
// ring the teacher's services keep for their own diagnostics. Embedders
// still implement Notify, CallbackProc, Attached, and
// ProcDirectDebugInstruction themselves.
type Base struct {
	mu        sync.Mutex
	verbosity int
	log       []string
	maxLines  int
}

// NewBase returns a Base with the given verbosity threshold (0-7, higher is
// noisier) and a bounded log buffer.
func NewBase(verbosity int) *Base {
	return &Base{verbosity: verbosity, maxLines: 256}
}

// Verbosity returns the current log threshold.
func (b *Base) Verbosity() int { return b.verbosity }

// SetVerbosity changes the log threshold.
func (b *Base) SetVerbosity(v int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.verbosity = v
}

// PrintDebug appends a line if verbosity passes the Base's threshold.
func (b *Base) PrintDebug(verbosity int, format string, args ...any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if verbosity > b.verbosity {
		return
	}
	line := fmtx.Sprintf(format, args...)
	b.log = append(b.log, line)
	if len(b.log) > b.maxLines {
		b.log = b.log[len(b.log)-b.maxLines:]
	}
}

// FlushLocalLog drains and returns every buffered log line, oldest first.
func (b *Base) FlushLocalLog() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.log
	b.log = nil
	return out
}
