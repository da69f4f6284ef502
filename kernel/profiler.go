package kernel

import (
	"sync"
	"time"

	"manuvr-go/message"
)

// codeProfile is one message code's running execution-time statistics
// (spec.md §4.4.6).
type codeProfile struct {
	executions int
	last       time.Duration
	best       time.Duration
	worst      time.Duration
	total       time.Duration
}

func (c *codeProfile) record(d time.Duration) {
	c.executions++
	c.last = d
	c.total += d
	if c.executions == 1 || d < c.best {
		c.best = d
	}
	if d > c.worst {
		c.worst = d
	}
}

func (c *codeProfile) average() time.Duration {
	if c.executions == 0 {
		return 0
	}
	return c.total / time.Duration(c.executions)
}

// profiler is the optional, togglable execution-time tracker. Toggling it
// clears every accumulator (spec.md §4.4.6: "Toggling the profiler clears
// accumulators").
type profiler struct {
	mu      sync.Mutex
	enabled bool

	perCode map[message.Code]*codeProfile

	totalLoops  int
	totalEvents int

	idleLoopMaxTime time.Duration
	maxEventsSeen   int
}

func newProfiler() *profiler {
	return &profiler{perCode: map[message.Code]*codeProfile{}}
}

func (p *profiler) setEnabled(v bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.enabled = v
	p.perCode = map[message.Code]*codeProfile{}
	p.totalLoops = 0
	p.totalEvents = 0
	p.idleLoopMaxTime = 0
	p.maxEventsSeen = 0
}

func (p *profiler) recordEvent(code message.Code, d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.enabled {
		return
	}
	cp, ok := p.perCode[code]
	if !ok {
		cp = &codeProfile{}
		p.perCode[code] = cp
	}
	cp.record(d)
	p.totalEvents++
}

func (p *profiler) recordLoop(eventsThisLoop int, idleDuration time.Duration, wasIdle bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.enabled {
		return
	}
	p.totalLoops++
	if eventsThisLoop > p.maxEventsSeen {
		p.maxEventsSeen = eventsThisLoop
	}
	if wasIdle && idleDuration > p.idleLoopMaxTime {
		p.idleLoopMaxTime = idleDuration
	}
}

// Snapshot is a read-only copy of one code's profile record.
type Snapshot struct {
	Code       message.Code
	Executions int
	Last       time.Duration
	Best       time.Duration
	Worst      time.Duration
	Average    time.Duration
}

// EnableProfiler turns the profiler on, clearing prior accumulators.
func (k *Kernel) EnableProfiler() { k.profiler.setEnabled(true) }

// DisableProfiler turns the profiler off, clearing accumulators.
func (k *Kernel) DisableProfiler() { k.profiler.setEnabled(false) }

// ProfilerDump returns a snapshot of every code the profiler has observed
// since it was last enabled.
func (k *Kernel) ProfilerDump() []Snapshot {
	k.profiler.mu.Lock()
	defer k.profiler.mu.Unlock()
	out := make([]Snapshot, 0, len(k.profiler.perCode))
	for code, cp := range k.profiler.perCode {
		out = append(out, Snapshot{
			Code:       code,
			Executions: cp.executions,
			Last:       cp.last,
			Best:       cp.best,
			Worst:      cp.worst,
			Average:    cp.average(),
		})
	}
	return out
}
