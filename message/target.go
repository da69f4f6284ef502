// Package message implements the Message/Runnable unit of work that flows
// through the kernel: a schema-keyed code, an ordered argument list,
// routing, and an optional recurring schedule.
package message

// CallbackCode is the disposition a Receiver's completion callback selects
// for a Message that has finished its broadcast cycle (spec.md §4.3).
type CallbackCode int8

const (
	Undefined CallbackCode = iota
	Reap
	Drop
	Recycle
	CallbackError
)

func (c CallbackCode) String() string {
	switch c {
	case Reap:
		return "REAP"
	case Drop:
		return "DROP"
	case Recycle:
		return "RECYCLE"
	case CallbackError:
		return "ERROR"
	default:
		return "UNDEFINED"
	}
}

// Target is the minimal contract the kernel needs to route and complete a
// Message: deliver it, and learn what to do once it has finished its
// broadcast cycle. The receiver package's full Receiver interface satisfies
// Target structurally — this package never imports receiver, avoiding an
// import cycle between "the thing Messages are routed to" and "the thing
// that carries Messages".
type Target interface {
	// Notify delivers msg. 0 means no action taken, >=1 means acted, -1 means
	// the receiver is in a bad state (spec.md §4.3).
	Notify(msg *Message) (int8, error)
	// CallbackProc is invoked when a Message this Target originated has
	// completed its broadcast cycle.
	CallbackProc(msg *Message) CallbackCode
}
