package i2c

import "manuvr-go/busqueue"

// transactor drives one BusOp through the I²C-specific cut of the
// INITIATE -> ADDR -> IO -> COMPLETE state machine (spec.md §4.5). Each
// call to Step advances the op by exactly one stage so AdvanceWorkQueue's
// loop stays a plain state machine instead of a single monolithic
// transaction function — mirrors the explicit multi-step shape of the
// teacher's measureWorker trigger/collect split.
type transactor struct {
	bus Bus
}

func (t *transactor) Step(op *busqueue.BusOp) {
	switch op.State {
	case busqueue.StateInitiate:
		op.State = busqueue.StateAddr
	case busqueue.StateAddr:
		if op.SubAddr >= 0 && !op.SubAddrSent() {
			if err := t.bus.Tx(op.TargetAddr, []byte{byte(op.SubAddr)}, nil); err != nil {
				op.MarkComplete(busqueue.FaultBus)
				return
			}
			op.MarkSubAddrSent()
		}
		op.State = busqueue.StateIO
	case busqueue.StateIO:
		t.stepIO(op)
	default:
		op.MarkComplete(busqueue.FaultInvalid)
	}
}

func (t *transactor) stepIO(op *busqueue.BusOp) {
	switch op.Opcode {
	case busqueue.OpTxCmd, busqueue.OpPing:
		if err := t.bus.Tx(op.TargetAddr, nil, nil); err != nil {
			op.MarkComplete(busqueue.FaultNotFound)
			return
		}
	case busqueue.OpTx:
		if err := t.bus.Tx(op.TargetAddr, op.Buffer, nil); err != nil {
			op.MarkComplete(busqueue.FaultBus)
			return
		}
	case busqueue.OpRx:
		if err := t.bus.Tx(op.TargetAddr, nil, op.Buffer); err != nil {
			op.MarkComplete(busqueue.FaultBus)
			return
		}
	default:
		op.MarkComplete(busqueue.FaultInvalid)
		return
	}
	op.MarkComplete(busqueue.FaultNone)
}
