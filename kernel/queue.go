package kernel

import "manuvr-go/message"

// priorityQueue is a priority-ordered, FIFO-within-priority queue of
// Messages (spec.md §8 "Priority + FIFO": dispatch order is determined
// solely by priority, with insertion order preserved among equals). It is
// implemented as an insertion-sorted slice: the queues involved are small
// (bounded by preallocation pool sizes in practice), so an O(n) insert is
// simpler and cache-friendlier than a heap, and keeps the stable-FIFO
// property trivial to reason about.
type priorityQueue struct {
	items []*message.Message
}

// push inserts m ahead of the first lower-priority item, after every
// equal-or-higher-priority item already queued.
func (q *priorityQueue) push(m *message.Message) {
	i := 0
	for i < len(q.items) && q.items[i].Priority() >= m.Priority() {
		i++
	}
	q.items = append(q.items, nil)
	copy(q.items[i+1:], q.items[i:])
	q.items[i] = m
}

// pop removes and returns the head of the queue, or nil if empty.
func (q *priorityQueue) pop() *message.Message {
	if len(q.items) == 0 {
		return nil
	}
	m := q.items[0]
	q.items = q.items[1:]
	return m
}

// contains reports whether m (by pointer identity) is already queued, used
// to enforce the "same Message pointer twice" rejection (spec.md §4.4.1).
func (q *priorityQueue) contains(m *message.Message) bool {
	for _, x := range q.items {
		if x == m {
			return true
		}
	}
	return false
}

// remove drops m from the queue if present, reporting whether it was found.
func (q *priorityQueue) remove(m *message.Message) bool {
	for i, x := range q.items {
		if x == m {
			q.items = append(q.items[:i], q.items[i+1:]...)
			return true
		}
	}
	return false
}

// hasCode reports whether any queued Message carries code, used for
// idempotency checks.
func (q *priorityQueue) hasCode(code message.Code) bool {
	for _, x := range q.items {
		if x.Code() == code {
			return true
		}
	}
	return false
}

func (q *priorityQueue) len() int { return len(q.items) }
