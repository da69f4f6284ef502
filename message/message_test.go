package message

import (
	"testing"

	"manuvr-go/value"
)

type recordingTarget struct {
	notified int
	last     *Message
	cb       CallbackCode
}

func (r *recordingTarget) Notify(m *Message) (int8, error) {
	r.notified++
	r.last = m
	return 1, nil
}

func (r *recordingTarget) CallbackProc(m *Message) CallbackCode {
	return r.cb
}

func TestAddArgAndConsume(t *testing.T) {
	m := New(CodeDeferredFxn, 0)
	if err := m.AddArg(int32(7), value.Int32, true); err != nil {
		t.Fatalf("AddArg: %v", err)
	}
	if err := m.AddArg("hello", value.Str, true); err != nil {
		t.Fatalf("AddArg: %v", err)
	}
	if m.ArgCount() != 2 {
		t.Fatalf("ArgCount = %d, want 2", m.ArgCount())
	}
	v, err := m.ConsumeArgAs(0)
	if err != nil {
		t.Fatalf("ConsumeArgAs: %v", err)
	}
	if v.(int32) != 7 {
		t.Fatalf("got %v, want 7", v)
	}
	if m.ArgCount() != 1 {
		t.Fatalf("ArgCount after consume = %d, want 1", m.ArgCount())
	}
	v2, err := m.GetArgAs(0)
	if err != nil {
		t.Fatalf("GetArgAs: %v", err)
	}
	if v2.(string) != "hello" {
		t.Fatalf("got %v, want hello", v2)
	}
	if m.ArgCount() != 1 {
		t.Fatalf("GetArgAs must not consume; ArgCount = %d, want 1", m.ArgCount())
	}
}

func TestExecuteAndCallback(t *testing.T) {
	target := &recordingTarget{cb: Reap}
	m := New(CodeBootCompleted, 5)
	m.SetOriginator(target)
	n, err := m.Execute(target)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if n != 1 || target.notified != 1 || target.last != m {
		t.Fatalf("unexpected execute result: n=%d notified=%d", n, target.notified)
	}
	if got := m.CallbackOriginator(); got != Reap {
		t.Fatalf("CallbackOriginator = %v, want REAP", got)
	}
}

// scheduleRecurrence verifies spec.md §8's "Schedule recurrence" property: a
// schedule of period P with recurrence R fires exactly R+1 times before
// disabling.
func TestScheduleRecurrenceFiresRPlusOne(t *testing.T) {
	m := New(CodeDeferredFxn, 0)
	m.Schedule(5, 3)
	fires := 0
	for i := 0; i < 100; i++ {
		switch m.ApplyTime(5) {
		case FireAndRetain:
			fires++
		case FireAndDrop:
			fires++
			goto done
		case NoAction:
			// not yet due
		case DropWithoutFire:
			t.Fatalf("schedule dropped early at iteration %d", i)
		}
	}
done:
	if fires != 4 {
		t.Fatalf("fires = %d, want 4 (R+1 with R=3)", fires)
	}
	if m.ApplyTime(5) != DropWithoutFire {
		t.Fatalf("schedule should be exhausted after firing out its recurrence")
	}
}

// TestScheduleLagFiresOnce verifies spec.md §8's "Schedule lag" property:
// advancing by 10*P in one call fires once, not ten times.
func TestScheduleLagFiresOnce(t *testing.T) {
	m := New(CodeDeferredFxn, 0)
	m.Schedule(10, InfiniteRecurrence)
	got := m.ApplyTime(250)
	if got != FireAndRetain {
		t.Fatalf("ApplyTime(250) = %v, want FireAndRetain", got)
	}
	// The exact over-slip is discarded, not caught up on: next
	// time-to-wait is the full period, not zero and not the remainder.
	if ttw := m.TimeToWait(); ttw != 10 {
		t.Fatalf("time-to-wait after lag = %d, want == 10 (period)", ttw)
	}
}

type fakeDequeuer struct {
	dequeued *Message
}

func (f *fakeDequeuer) Dequeue(m *Message) bool {
	f.dequeued = m
	return true
}

func TestAbortCallsDequeuer(t *testing.T) {
	m := New(CodeSysReboot, 0)
	d := &fakeDequeuer{}
	m.SetDequeuer(d)
	if !m.Abort() {
		t.Fatalf("Abort returned false")
	}
	if d.dequeued != m {
		t.Fatalf("Dequeue was not called with the aborted message")
	}
}

func TestAbortWithoutDequeuerIsNoop(t *testing.T) {
	m := New(CodeSysReboot, 0)
	if m.Abort() {
		t.Fatalf("Abort on an unenqueued message should report false")
	}
}

func TestMatchFormAmbiguity(t *testing.T) {
	d := Def{
		Code: 0x3000,
		Forms: [][]value.TypeCode{
			{value.Int32},
			{value.Float32},
		},
	}
	if _, err := d.MatchForm(4); err != ErrAmbiguousForm {
		t.Fatalf("MatchForm(4) = %v, want ErrAmbiguousForm", err)
	}
	if _, err := d.MatchForm(8); err != ErrNoMatchingForm {
		t.Fatalf("MatchForm(8) = %v, want ErrNoMatchingForm", err)
	}
}

func TestLegendRoundTrip(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(Def{
		Code:  0x2001,
		Flags: FlagExportable,
		Label: "custom_telemetry",
		Forms: [][]value.TypeCode{{value.Float32, value.Float32}},
	}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	dump := DumpLegend(r)
	parsed, err := ParseLegend(dump)
	if err != nil {
		t.Fatalf("ParseLegend: %v", err)
	}
	want := r.All()
	if len(parsed) != len(want) {
		t.Fatalf("parsed %d defs, want %d", len(parsed), len(want))
	}
	seen := map[Code]Def{}
	for _, d := range parsed {
		seen[d.Code] = d
	}
	for _, d := range want {
		got, ok := seen[d.Code]
		if !ok {
			t.Fatalf("missing code %v after round trip", d.Code)
		}
		if got.Label != d.Label || got.Flags != d.Flags {
			t.Fatalf("code %v round-tripped as %+v, want %+v", d.Code, got, d)
		}
	}
}
