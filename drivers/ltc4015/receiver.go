package ltc4015

import (
	"fmt"
	"strconv"
	"strings"

	"manuvr-go/message"
	"manuvr-go/receiver"
	"manuvr-go/value"
)

// CodeReadNow asks the Receiver to take a telemetry Snapshot and report it
// back to the originator (spec.md §4.6).
const CodeReadNow message.Code = 0x1060

// CodeSnapshotReady is raised back at the requesting originator once a
// Snapshot completes, carrying pack millivolts and battery current as
// Int32 arguments.
const CodeSnapshotReady message.Code = 0x1061

// Receiver wraps a Device as a kernel Receiver and an i2c.Slave.
type Receiver struct {
	*receiver.Base
	dev  *Device
	id   string
	last Snapshot
}

// NewReceiver builds a Receiver around dev, identified by id for logging.
func NewReceiver(dev *Device, id string) *Receiver {
	return &Receiver{Base: receiver.NewBase(0), dev: dev, id: id}
}

// Address implements busqueue/i2c.Slave.
func (r *Receiver) Address() uint16 { return r.dev.addr }

func (r *Receiver) Attached() error { return nil }

// ProcDirectDebugInstruction supports "read-now" (force a Snapshot) and
// "set-verbosity N" from a console/debug transport.
func (r *Receiver) ProcDirectDebugInstruction(instruction string) error {
	fields := strings.Fields(instruction)
	if len(fields) == 0 {
		return fmt.Errorf("ltc4015: empty instruction")
	}
	switch fields[0] {
	case "read-now":
		r.dev.SnapshotInto(&r.last)
		return nil
	case "set-verbosity":
		if len(fields) != 2 {
			return fmt.Errorf("ltc4015: set-verbosity requires one argument")
		}
		v, err := strconv.Atoi(fields[1])
		if err != nil {
			return fmt.Errorf("ltc4015: invalid verbosity %q", fields[1])
		}
		r.SetVerbosity(v)
		return nil
	default:
		return fmt.Errorf("ltc4015: unknown instruction %q", fields[0])
	}
}

// Notify services CodeReadNow by taking a Snapshot and forwarding the
// result to the originator.
func (r *Receiver) Notify(m *message.Message) (int8, error) {
	if m.Code() != CodeReadNow {
		return 0, nil
	}
	r.dev.SnapshotInto(&r.last)
	if originator := m.Originator(); originator != nil {
		reply := message.New(CodeSnapshotReady, m.Priority())
		reply.SetOriginator(originator)
		_ = reply.AddArg(r.last.Pack_mV, value.Int32, false)
		_ = reply.AddArg(r.last.IBat_mA, value.Int32, false)
		if _, err := originator.Notify(reply); err != nil {
			r.PrintDebug(3, "%s: snapshot-ready delivery failed: %v", r.id, err)
		}
	}
	return 1, nil
}

// CallbackProc releases the Message once delivered.
func (r *Receiver) CallbackProc(m *message.Message) message.CallbackCode {
	return message.Reap
}

// Last returns the most recent Snapshot.
func (r *Receiver) Last() Snapshot { return r.last }
