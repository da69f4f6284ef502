package aht20

import (
	"fmt"
	"strconv"
	"strings"

	"manuvr-go/message"
	"manuvr-go/receiver"
	"manuvr-go/value"
)

// CodeReadNow asks the Receiver to perform one Trigger+Collect cycle and
// report the result via its originator callback, the user-space message
// code this driver listens for (spec.md §4.6: "each driver registers as a
// receiver... and reacts to a small, driver-specific set of message
// codes").
const CodeReadNow message.Code = 0x1050

// CodeSampleReady is raised (targeted at the original requester) once a
// Read cycle completes, carrying the deci-Celsius/deci-%RH pair as two
// Int32 arguments.
const CodeSampleReady message.Code = 0x1051

// Receiver wraps a Device as a kernel Receiver and an i2c.Slave, so the
// kernel can address this sensor with an ordinary Message instead of a
// caller holding a *Device directly.
type Receiver struct {
	*receiver.Base
	dev  Device
	id   string
	last Sample
}

// NewReceiver builds a Receiver around dev, identified by id for logging.
func NewReceiver(dev Device, id string) *Receiver {
	return &Receiver{Base: receiver.NewBase(0), dev: dev, id: id}
}

// Address implements busqueue/i2c.Slave.
func (r *Receiver) Address() uint16 { return r.dev.Address }

func (r *Receiver) Attached() error { return nil }

// ProcDirectDebugInstruction supports two console verbs: "read-now" forces
// an immediate Read cycle, and "set-verbosity N" adjusts the local log
// threshold. Anything else is rejected rather than silently ignored.
func (r *Receiver) ProcDirectDebugInstruction(instruction string) error {
	fields := strings.Fields(instruction)
	if len(fields) == 0 {
		return fmt.Errorf("aht20: empty instruction")
	}
	switch fields[0] {
	case "read-now":
		if err := r.dev.Read(); err != nil {
			return err
		}
		r.last = Sample{RawHumidity: r.dev.RawHumidity(), RawTemp: r.dev.RawTemp()}
		return nil
	case "set-verbosity":
		if len(fields) != 2 {
			return fmt.Errorf("aht20: set-verbosity requires one argument")
		}
		v, err := strconv.Atoi(fields[1])
		if err != nil {
			return fmt.Errorf("aht20: invalid verbosity %q", fields[1])
		}
		r.SetVerbosity(v)
		return nil
	default:
		return fmt.Errorf("aht20: unknown instruction %q", fields[0])
	}
}

// Notify runs a full Read cycle on CodeReadNow and reports the sample back
// to the Message's originator via CodeSampleReady, or returns a negative
// disposition if the read failed.
func (r *Receiver) Notify(m *message.Message) (int8, error) {
	if m.Code() != CodeReadNow {
		return 0, nil
	}
	if err := r.dev.Read(); err != nil {
		r.PrintDebug(3, "%s: read failed: %v", r.id, err)
		return -1, err
	}
	s := Sample{RawHumidity: r.dev.RawHumidity(), RawTemp: r.dev.RawTemp()}
	r.last = s
	if originator := m.Originator(); originator != nil {
		reply := message.New(CodeSampleReady, m.Priority())
		reply.SetOriginator(originator)
		_ = reply.AddArg(s.DeciCelsius(), value.Int32, false)
		_ = reply.AddArg(s.DeciRelHumidity(), value.Int32, false)
		if _, err := originator.Notify(reply); err != nil {
			r.PrintDebug(3, "%s: sample-ready delivery failed: %v", r.id, err)
		}
	}
	return 1, nil
}

// CallbackProc reports completion and releases the Message.
func (r *Receiver) CallbackProc(m *message.Message) message.CallbackCode {
	return message.Reap
}

// Last returns the most recently collected sample.
func (r *Receiver) Last() Sample { return r.last }
