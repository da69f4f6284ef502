package message

import (
	"manuvr-go/errcode"
	"manuvr-go/value"
	"manuvr-go/x/mathx"
)

// Ownership resolves the bitfield-authoritative "who frees this Message"
// question of the original kernel (spec.md §4.2, Design Notes) into a single
// enum a Go garbage collector can mostly ignore but the preallocation pool
// still needs: a Message borrowed from the pool must be returned there
// instead of dropped, and a Scheduled Message must survive past one
// broadcast cycle.
type Ownership uint8

const (
	// Owned means the caller who built this Message keeps no further
	// interest in it; the kernel is free to let it go once spent.
	Owned Ownership = iota
	// Borrowed means some component other than the kernel holds a reference
	// and must not have it recycled out from under it.
	Borrowed
	// Pooled means this Message was handed out by a kernel preallocation
	// pool and must be returned there, not garbage-collected.
	Pooled
	// Scheduled means this Message is the live instance backing a recurring
	// schedule and must not be reclaimed while the schedule is active.
	Scheduled
)

func (o Ownership) String() string {
	switch o {
	case Borrowed:
		return "BORROWED"
	case Pooled:
		return "POOLED"
	case Scheduled:
		return "SCHEDULED"
	default:
		return "OWNED"
	}
}

// TimeApplied is the four-way disposition ApplyTime returns, letting the
// scheduler decide what to do with a Message after one tick (spec.md §4.4.3).
type TimeApplied uint8

const (
	// NoAction means the schedule has not yet reached its deadline.
	NoAction TimeApplied = iota
	// FireAndRetain means the schedule fired and should remain armed
	// (recurrence > 0, or infinite recurrence).
	FireAndRetain
	// FireAndDrop means the schedule fired for the last time and should be
	// torn down.
	FireAndDrop
	// DropWithoutFire means the schedule's recurrence budget was already
	// exhausted or it was disabled; no broadcast should happen.
	DropWithoutFire
)

// InfiniteRecurrence marks a schedule that repeats until explicitly disabled.
const InfiniteRecurrence int32 = -1

// schedule holds the optional recurring-timer state for a Message that was
// registered with the kernel's schedule queue (spec.md §4.4).
type schedule struct {
	periodMs   uint32
	timeToWait uint32 // ms remaining until next fire
	recurrence int32  // remaining fire count after the next one, or InfiniteRecurrence
	enabled    bool
	exhausted  bool
	lastLagged bool
	// pid is the schedule's public handle, assigned by the kernel when the
	// schedule is registered (0 means unregistered).
	pid uint32
}

// Message is the schema-keyed unit of work that flows through the kernel: a
// code, an ordered list of arguments, routing information, optional
// scheduling, and a refcount/ownership pair that lets a preallocation pool
// reclaim it (spec.md §4.2).
type Message struct {
	code  Code
	flags Flags

	args     *value.Argument // head of the ordered argument list
	argsTail *value.Argument

	priority int8

	originator     Target
	specificTarget Target

	ownership Ownership
	refcount  int32

	sched *schedule

	dequeuer Dequeuer
}

// Dequeuer is the minimal contract a Message needs from whatever owns its
// queues in order to honor Abort: remove this Message from the execute and
// schedule queues without the message package importing the kernel package.
type Dequeuer interface {
	Dequeue(m *Message) bool
}

// New constructs a Message for code with the given priority. The Message
// starts Owned with no arguments.
func New(code Code, priority int8) *Message {
	return &Message{code: code, priority: priority, ownership: Owned}
}

// Code returns the message's schema code.
func (m *Message) Code() Code { return m.code }

// Priority returns the message's queue priority.
func (m *Message) Priority() int8 { return m.priority }

// Ownership reports how this Message's lifetime is managed.
func (m *Message) Ownership() Ownership { return m.ownership }

// SetOwnership is used by the kernel's preallocation pool and scheduler to
// mark a Message as Pooled or Scheduled when it hands one out.
func (m *Message) SetOwnership(o Ownership) { m.ownership = o }

// Originator returns the Target that raised this Message, if any.
func (m *Message) Originator() Target { return m.originator }

// SetOriginator records who raised this Message, for later callback.
func (m *Message) SetOriginator(t Target) { m.originator = t }

// SpecificTarget returns the single Target this Message is addressed to, or
// nil if it should broadcast to every subscriber.
func (m *Message) SpecificTarget() Target { return m.specificTarget }

// SetSpecificTarget addresses this Message to exactly one Target.
func (m *Message) SetSpecificTarget(t Target) { m.specificTarget = t }

// SetDequeuer wires the kernel hook Abort needs. Called once by the kernel
// when it accepts a Message into a queue.
func (m *Message) SetDequeuer(d Dequeuer) { m.dequeuer = d }

// Retain bumps the refcount a preallocation pool uses to decide whether a
// Pooled Message can be recycled.
func (m *Message) Retain() { m.refcount++ }

// Release drops the refcount. It returns true once the count reaches zero,
// at which point a Pooled Message is eligible for return to its pool.
func (m *Message) Release() bool {
	if m.refcount > 0 {
		m.refcount--
	}
	return m.refcount == 0
}

// AddArg appends v, tagged as tag, to the argument list. reap controls
// whether the Argument frees its boxed storage on Release.
func (m *Message) AddArg(v any, tag value.TypeCode, reap bool) error {
	a, err := value.New(v, tag, reap)
	if err != nil {
		return err
	}
	if m.args == nil {
		m.args = a
		m.argsTail = a
		return nil
	}
	m.argsTail.SetNext(a)
	m.argsTail = a
	return nil
}

// ArgCount returns the number of arguments currently attached.
func (m *Message) ArgCount() int {
	n := 0
	for a := m.args; a != nil; a = a.Next() {
		n++
	}
	return n
}

// ArgAt returns the idx'th argument (0-based), or nil if out of range.
func (m *Message) ArgAt(idx int) *value.Argument {
	i := 0
	for a := m.args; a != nil; a = a.Next() {
		if i == idx {
			return a
		}
		i++
	}
	return nil
}

// GetArgAs decodes the idx'th argument's value without consuming it.
func (m *Message) GetArgAs(idx int) (any, error) {
	a := m.ArgAt(idx)
	if a == nil {
		return nil, ErrArgIndexOutOfRange
	}
	return a.Value()
}

// ConsumeArgAs decodes and removes the idx'th argument, shrinking the list.
// It resolves the same ambiguity the C++ API's overload-based consumeArgAs
// left implicit: the caller always gets back a decoded Go value plus an
// explicit error, never a silently-truncated buffer (spec.md Open Question,
// resolved in the expanded spec).
func (m *Message) ConsumeArgAs(idx int) (any, error) {
	var prev *value.Argument
	cur := m.args
	i := 0
	for cur != nil {
		if i == idx {
			v, err := cur.Value()
			if err != nil {
				return nil, err
			}
			if prev == nil {
				m.args = cur.Next()
			} else {
				prev.SetNext(cur.Next())
			}
			if cur == m.argsTail {
				m.argsTail = prev
			}
			cur.Release()
			return v, nil
		}
		prev = cur
		cur = cur.Next()
		i++
	}
	return nil, ErrArgIndexOutOfRange
}

// Repurpose resets a Message in place for reuse from a preallocation pool:
// new code and priority, arguments released and cleared, routing cleared.
// The refcount and schedule are untouched by design — a pool only repurposes
// Messages whose refcount has already reached zero.
func (m *Message) Repurpose(code Code, priority int8) {
	for a := m.args; a != nil; {
		next := a.Next()
		a.Release()
		a = next
	}
	m.args = nil
	m.argsTail = nil
	m.code = code
	m.priority = priority
	m.originator = nil
	m.specificTarget = nil
	m.flags = 0
}

// Schedule arms this Message as a recurring (or one-shot) timer entry.
// periodMs is the tick interval; recurrence is the number of fires after the
// first, so the schedule fires recurrence+1 times in total
// (InfiniteRecurrence to repeat forever).
func (m *Message) Schedule(periodMs uint32, recurrence int32) {
	m.sched = &schedule{periodMs: periodMs, timeToWait: periodMs, recurrence: recurrence, enabled: true}
}

// HasSchedule reports whether Schedule has been called on this Message.
func (m *Message) HasSchedule() bool { return m.sched != nil }

// LastFireLagged reports whether the most recent ApplyTime firing detected
// the tick source overshooting by more than a full period.
func (m *Message) LastFireLagged() bool {
	if m.sched == nil {
		return false
	}
	return m.sched.lastLagged
}

// TimeToWait returns the schedule's remaining countdown in ms, or 0 if
// unscheduled. Exposed mainly for tests verifying lag-clamp behavior.
func (m *Message) TimeToWait() uint32 {
	if m.sched == nil {
		return 0
	}
	return m.sched.timeToWait
}

// SchedulePID returns the schedule's public handle, or 0 if unscheduled.
func (m *Message) SchedulePID() uint32 {
	if m.sched == nil {
		return 0
	}
	return m.sched.pid
}

// SetSchedulePID is called once by the kernel when registering the schedule.
func (m *Message) SetSchedulePID(pid uint32) {
	if m.sched != nil {
		m.sched.pid = pid
	}
}

// AlterSchedulePeriod changes the tick interval of an armed schedule.
func (m *Message) AlterSchedulePeriod(periodMs uint32) error {
	if m.sched == nil {
		return ErrNoSchedule
	}
	m.sched.periodMs = periodMs
	return nil
}

// AlterScheduleRecurrence changes the remaining fire count of an armed
// schedule.
func (m *Message) AlterScheduleRecurrence(recurrence int32) error {
	if m.sched == nil {
		return ErrNoSchedule
	}
	m.sched.recurrence = recurrence
	return nil
}

// AlterSchedule changes both period and recurrence atomically.
func (m *Message) AlterSchedule(periodMs uint32, recurrence int32) error {
	if m.sched == nil {
		return ErrNoSchedule
	}
	m.sched.periodMs = periodMs
	m.sched.recurrence = recurrence
	return nil
}

// DelaySchedule pushes the next fire time out by extraMs without otherwise
// altering the schedule.
func (m *Message) DelaySchedule(extraMs uint32) error {
	if m.sched == nil {
		return ErrNoSchedule
	}
	m.sched.timeToWait += extraMs
	return nil
}

// EnableSchedule arms or disarms a schedule without discarding its period
// and recurrence configuration.
func (m *Message) EnableSchedule(enabled bool) error {
	if m.sched == nil {
		return ErrNoSchedule
	}
	m.sched.enabled = enabled
	return nil
}

// ApplyTime advances the schedule by elapsedMs and reports what the
// scheduler should do next (spec.md §4.4.3). recurrence counts the fires
// remaining after the one about to happen: a schedule armed with recurrence
// R fires R+1 times in total before FireAndDrop.
func (m *Message) ApplyTime(elapsedMs uint32) TimeApplied {
	s := m.sched
	if s == nil || !s.enabled || s.exhausted {
		return DropWithoutFire
	}
	if elapsedMs < s.timeToWait {
		s.timeToWait -= elapsedMs
		s.lastLagged = false
		return NoAction
	}
	// Fired, exactly once regardless of how large elapsedMs is. If the
	// overshoot beyond the due time exceeds a full period, the tick source
	// is lagging: discard the exact over-slip and set the next
	// time-to-wait back to a full period rather than trying to catch up
	// (spec.md §4.4.3).
	overshoot := elapsedMs - s.timeToWait
	s.lastLagged = overshoot > s.periodMs
	if s.lastLagged {
		s.timeToWait = s.periodMs
	} else {
		s.timeToWait = s.periodMs - mathx.Min(overshoot, s.periodMs)
	}
	if s.recurrence < 0 {
		return FireAndRetain
	}
	if s.recurrence == 0 {
		s.exhausted = true
		return FireAndDrop
	}
	s.recurrence--
	return FireAndRetain
}

// Execute delivers this Message to target and returns target's Notify
// result, or returns ErrNoTarget when target is nil. It does not consult
// SpecificTarget (the kernel picks the recipient and handles the broadcast
// fan-out itself; Execute is the single-recipient delivery primitive).
func (m *Message) Execute(target Target) (int8, error) {
	if target == nil {
		return -1, ErrNoTarget
	}
	return target.Notify(m)
}

// CallbackOriginator invokes the originator's completion callback, if an
// originator was recorded, and reports its disposition.
func (m *Message) CallbackOriginator() CallbackCode {
	if m.originator == nil {
		return Undefined
	}
	return m.originator.CallbackProc(m)
}

// Abort asks whatever queue currently holds this Message to remove it. It is
// a no-op, reporting false, if the Message was never enqueued with a
// Dequeuer attached.
func (m *Message) Abort() bool {
	if m.dequeuer == nil {
		return false
	}
	return m.dequeuer.Dequeue(m)
}

const (
	ErrArgIndexOutOfRange errcode.Code = "message_arg_index_out_of_range"
	ErrNoSchedule         errcode.Code = "message_no_schedule"
	ErrNoTarget           errcode.Code = "message_no_target"
)
