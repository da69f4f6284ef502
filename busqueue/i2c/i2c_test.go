package i2c

import (
	"testing"

	"manuvr-go/busqueue"
)

// fakeBus mimics a simulated I²C bus that ACKs one set of addresses and
// NACKs another, grounding spec.md §8's "I²C probe" scenario.
type fakeBus struct {
	present map[uint16]bool
}

func (b *fakeBus) Tx(addr uint16, w, r []byte) error {
	if b.present[addr] {
		return nil
	}
	return errNack{}
}

type errNack struct{}

func (errNack) Error() string { return "nack" }

func TestPingAllMarksPresentAndAbsent(t *testing.T) {
	bus := &fakeBus{present: map[uint16]bool{0x27: true}}
	a := NewAdapter(bus, 4, 0)
	a.PingAll()
	m := a.DumpPingMap()
	if m[0x27] != Present {
		t.Fatalf("0x27 = %v, want Present", m[0x27])
	}
	if m[0x42] != NoDevice {
		t.Fatalf("0x42 = %v, want NoDevice", m[0x42])
	}
	for addr, st := range m {
		if addr == 0x27 || addr == 0x42 {
			continue
		}
		if st != NoDevice && st != Unprobed {
			t.Fatalf("unexpected state at %d: %v", addr, st)
		}
	}
}

type fakeSlaveCallback struct {
	faults []busqueue.FaultCode
}

func (c *fakeSlaveCallback) IOOpCallahead(op *busqueue.BusOp) int8 { return 0 }
func (c *fakeSlaveCallback) IOOpCallback(op *busqueue.BusOp) int8 {
	c.faults = append(c.faults, op.Fault)
	return 0
}

func TestNACKonTxMarksBusFault(t *testing.T) {
	bus := &fakeBus{present: map[uint16]bool{}}
	a := NewAdapter(bus, 2, 0)
	cb := &fakeSlaveCallback{}
	op := a.NewOp(busqueue.OpTx, cb)
	op.TargetAddr = 0x42
	op.Buffer = []byte{0x01}
	if err := a.QueueIOJob(op); err != nil {
		t.Fatalf("QueueIOJob: %v", err)
	}
	a.AdvanceWorkQueue()
	if len(cb.faults) != 1 || cb.faults[0] != busqueue.FaultBus {
		t.Fatalf("faults = %v, want exactly one FaultBus", cb.faults)
	}
	if a.Depth() != 0 {
		t.Fatalf("queue should be drained after a faulted op, depth=%d", a.Depth())
	}
}

type fakeSlave struct{ addr uint16 }

func (s *fakeSlave) Address() uint16 { return s.addr }

func TestAttachSlaveRejectsDuplicateAddress(t *testing.T) {
	a := NewAdapter(&fakeBus{}, 1, 0)
	s1 := &fakeSlave{addr: 0x10}
	s2 := &fakeSlave{addr: 0x10}
	if err := a.AttachSlave(s1); err != nil {
		t.Fatalf("first AttachSlave: %v", err)
	}
	err := a.AttachSlave(s2)
	if code, ok := Fault(err); !ok || code != busqueue.FaultCollision {
		t.Fatalf("AttachSlave duplicate = %v, want FaultCollision", err)
	}
}
