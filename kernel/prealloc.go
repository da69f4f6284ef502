package kernel

import "manuvr-go/message"

// preallocPool is the kernel's fixed pool of Pooled Messages (spec.md
// §4.4.4, "EVENT_MANAGER_PREALLOC_COUNT"). acquire prefers a free pool slot;
// once exhausted it heap-allocates and bumps starved, matching "it is never
// fatal" (spec.md §5).
type preallocPool struct {
	free    []*message.Message
	starved int
}

func newPreallocPool(size int) *preallocPool {
	p := &preallocPool{free: make([]*message.Message, 0, size)}
	for i := 0; i < size; i++ {
		m := message.New(message.Undefined_, 0)
		m.SetOwnership(message.Pooled)
		p.free = append(p.free, m)
	}
	return p
}

// acquire returns a Message repurposed for code/priority, from the pool if
// one is free, otherwise a fresh heap allocation (counted as starvation).
func (p *preallocPool) acquire(code message.Code, priority int8) *message.Message {
	if len(p.free) > 0 {
		m := p.free[len(p.free)-1]
		p.free = p.free[:len(p.free)-1]
		m.Repurpose(code, priority)
		m.SetOwnership(message.Pooled)
		return m
	}
	p.starved++
	m := message.New(code, priority)
	m.SetOwnership(message.Owned)
	return m
}

// release returns a Pooled Message to the free list, args cleared. Messages
// that were heap-allocated during starvation (Ownership == Owned) are
// simply dropped; the Go GC reclaims them.
func (p *preallocPool) release(m *message.Message) {
	if m.Ownership() != message.Pooled {
		return
	}
	m.Repurpose(message.Undefined_, 0)
	if len(p.free) < cap(p.free) {
		p.free = append(p.free, m)
	}
}
