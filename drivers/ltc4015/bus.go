package ltc4015

import "manuvr-go/busqueue"

// PinInput returns logical level of an input pin.
type PinInput func() bool

// SMBALERT is active-low; this helper keeps the driver portable.
func (d *Device) AlertActive(get PinInput) bool { return !get() }

// opCallback captures a single synchronously-drained BusOp's outcome,
// mirroring aht20's blocking helper of the same name — the bus-queue
// adapter runs an op to completion within one AdvanceWorkQueue call, so
// there is no channel hand-off needed here.
type opCallback struct {
	done  bool
	fault busqueue.FaultCode
}

func (c *opCallback) IOOpCallahead(op *busqueue.BusOp) int8 { return 0 }
func (c *opCallback) IOOpCallback(op *busqueue.BusOp) int8  { c.done = true; c.fault = op.Fault; return 0 }

func (d *Device) doOp(addr uint16, opcode busqueue.Opcode, subAddr int32, buf []byte) error {
	cb := &opCallback{}
	op := d.adapter.NewOp(opcode, cb)
	op.TargetAddr = addr
	op.SubAddr = subAddr
	op.Buffer = buf
	if err := d.adapter.QueueIOJob(op); err != nil {
		return err
	}
	for !cb.done {
		if !d.adapter.AdvanceWorkQueue() {
			break
		}
	}
	if cb.fault != busqueue.FaultNone {
		return faultErr(cb.fault)
	}
	return nil
}

type faultErr busqueue.FaultCode

func (f faultErr) Error() string { return busqueue.FaultCode(f).String() }

// SMBus ARA handshake. Returns true if LTC4015 identified itself.
func (d *Device) AcknowledgeAlert() (bool, error) {
	var r [1]byte
	if err := d.doOp(ARAAddress, busqueue.OpRx, busqueue.NoSubAddress, r[:]); err != nil {
		return false, err
	}
	expected := byte((d.addr << 1) | 1)
	return r[0] == expected, nil
}

// I2C 16-bit word operations (Little-endian: LOW then HIGH).

func (d *Device) readWord(reg byte) (uint16, error) {
	d.r[0], d.r[1] = 0, 0
	if err := d.doOp(d.addr, busqueue.OpRx, int32(reg), d.r[:2]); err != nil {
		return 0, err
	}
	return uint16(d.r[0]) | uint16(d.r[1])<<8, nil
}

func (d *Device) readS16(reg byte) (int16, error) {
	u, err := d.readWord(reg)
	return int16(u), err
}

func (d *Device) writeWord(reg byte, val uint16) error {
	d.w[0] = byte(val)      // low
	d.w[1] = byte(val >> 8) // high
	return d.doOp(d.addr, busqueue.OpTx, int32(reg), d.w[:2])
}
