package busqueue

import "testing"

type fakeTransactor struct {
	fault FaultCode
}

func (f *fakeTransactor) Step(op *BusOp) {
	op.MarkComplete(f.fault)
}

type recordingCallback struct {
	vetoed    bool
	completed int
	lastFault FaultCode
}

func (c *recordingCallback) IOOpCallahead(op *BusOp) int8 {
	if c.vetoed {
		return 1
	}
	return 0
}

func (c *recordingCallback) IOOpCallback(op *BusOp) int8 {
	c.completed++
	c.lastFault = op.Fault
	return 0
}

func TestQueueIOJobDispatchesByPriority(t *testing.T) {
	a := NewAdapter(&fakeTransactor{}, 4, 0)
	var order []uint16

	cbFor := func(addr uint16) Callback {
		return &trackingCallback{addr: addr, order: &order}
	}

	low := a.NewOp(OpTxCmd, cbFor(1))
	low.TargetAddr = 1
	low.Priority = 0

	high := a.NewOp(OpTxCmd, cbFor(2))
	high.TargetAddr = 2
	high.Priority = 5

	if err := a.QueueIOJob(low); err != nil {
		t.Fatalf("QueueIOJob low: %v", err)
	}
	if err := a.QueueIOJob(high); err != nil {
		t.Fatalf("QueueIOJob high: %v", err)
	}

	a.AdvanceWorkQueue()
	a.AdvanceWorkQueue()

	if len(order) != 2 || order[0] != 2 || order[1] != 1 {
		t.Fatalf("dispatch order = %v, want [2 1]", order)
	}
}

type trackingCallback struct {
	addr  uint16
	order *[]uint16
}

func (c *trackingCallback) IOOpCallahead(op *BusOp) int8 { return 0 }
func (c *trackingCallback) IOOpCallback(op *BusOp) int8 {
	*c.order = append(*c.order, c.addr)
	return 0
}

func TestCallaheadVetoSkipsIO(t *testing.T) {
	a := NewAdapter(&fakeTransactor{}, 2, 0)
	cb := &recordingCallback{vetoed: true}
	op := a.NewOp(OpTx, cb)
	op.TargetAddr = 0x42
	if err := a.QueueIOJob(op); err != nil {
		t.Fatalf("QueueIOJob: %v", err)
	}
	a.AdvanceWorkQueue()
	if cb.completed != 1 || cb.lastFault != FaultInvalid {
		t.Fatalf("callback=%d fault=%v, want 1/FaultInvalid", cb.completed, cb.lastFault)
	}
}

func TestOpDoneHookFiresOnce(t *testing.T) {
	a := NewAdapter(&fakeTransactor{}, 2, 0)
	fires := 0
	a.SetOpDoneHook(func(op *BusOp) { fires++ })
	cb := &recordingCallback{}
	op := a.NewOp(OpTx, cb)
	if err := a.QueueIOJob(op); err != nil {
		t.Fatalf("QueueIOJob: %v", err)
	}
	a.AdvanceWorkQueue()
	if fires != 1 {
		t.Fatalf("hook fired %d times, want 1", fires)
	}
}

func TestQueueDepthCapRejects(t *testing.T) {
	a := NewAdapter(&fakeTransactor{}, 2, 1)
	cb := &recordingCallback{}
	op1 := a.NewOp(OpTx, cb)
	op2 := a.NewOp(OpTx, cb)
	if err := a.QueueIOJob(op1); err != nil {
		t.Fatalf("first QueueIOJob: %v", err)
	}
	if err := a.QueueIOJob(op2); err != ErrQueueFull {
		t.Fatalf("second QueueIOJob = %v, want ErrQueueFull", err)
	}
}
