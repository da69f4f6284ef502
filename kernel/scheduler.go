package kernel

import "manuvr-go/message"

// AddSchedule registers m (which must already have message.Schedule called
// on it) with the kernel's schedule queue and assigns it a public PID
// handle. m is marked Scheduled so reclaimLocked leaves it alone.
func (k *Kernel) AddSchedule(m *message.Message) (pid uint32, err error) {
	if !m.HasSchedule() {
		return 0, ErrNoScheduleArmed
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	k.nextPID++
	pid = k.nextPID
	m.SetSchedulePID(pid)
	m.SetOwnership(message.Scheduled)
	k.schedules = append(k.schedules, m)
	return pid, nil
}

// RemoveSchedule drops the schedule with the given PID from the queue.
func (k *Kernel) RemoveSchedule(pid uint32) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	for i, m := range k.schedules {
		if m.SchedulePID() == pid {
			k.schedules = append(k.schedules[:i], k.schedules[i+1:]...)
			return true
		}
	}
	return false
}

// EnableSchedule arms or disarms the schedule with the given PID without
// removing it from the queue.
func (k *Kernel) EnableSchedule(pid uint32, enabled bool) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	for _, m := range k.schedules {
		if m.SchedulePID() == pid {
			_ = m.EnableSchedule(enabled)
			return true
		}
	}
	return false
}

// AdvanceScheduler is the external tick input. It may be called from any
// context, including interrupts: it only touches an accumulator and a
// bistable skip latch (spec.md §4.4.3, §5).
func (k *Kernel) AdvanceScheduler(ms uint32) {
	k.accMu.Lock()
	defer k.accMu.Unlock()
	if k.accumulatorMs > 0 {
		// A second call landed before the run loop drained the first: the
		// tick source is outrunning the dispatch loop.
		k.skipLatch = true
	}
	k.accumulatorMs += ms
}

// serviceSchedules is called once per ProcIdleFlags entry. It drains the
// tick accumulator, walks every scheduled Message, and promotes due ones
// into the execute queue (spec.md §4.4.3).
func (k *Kernel) serviceSchedules() {
	k.accMu.Lock()
	elapsed := k.accumulatorMs
	k.accumulatorMs = 0
	skipped := k.skipLatch
	k.skipLatch = false
	k.accMu.Unlock()

	if elapsed == 0 {
		return
	}

	k.mu.Lock()
	due := make([]*message.Message, 0, 4)
	live := k.schedules[:0]
	laggedThisPass := 0
	for _, m := range k.schedules {
		result := m.ApplyTime(elapsed)
		switch result {
		case message.FireAndRetain:
			due = append(due, m)
			live = append(live, m)
		case message.FireAndDrop:
			due = append(due, m)
			// dropped: not re-appended to live.
		case message.NoAction:
			live = append(live, m)
		case message.DropWithoutFire:
			// disabled or exhausted already; drop silently.
		}
		if (result == message.FireAndRetain || result == message.FireAndDrop) && m.LastFireLagged() {
			laggedThisPass++
		}
	}
	k.schedules = live
	k.laggedSchedules += laggedThisPass
	k.mu.Unlock()

	for _, m := range due {
		m.SetDequeuer(k)
		k.mu.Lock()
		k.execQ.push(m)
		if k.execQ.len() > k.queueDepthMax {
			k.queueDepthMax = k.execQ.len()
		}
		k.mu.Unlock()
	}

	// The skip latch tracks overlapping AdvanceScheduler calls, a distinct
	// concern from a single schedule's own tick lagging behind (spec.md
	// §4.4.3: "If the skip-latch was set on entry... increment
	// _skips_observed").
	k.mu.Lock()
	if skipped {
		k.skipsObserved++
	} else {
		k.skipsObserved = 0
	}
	observed := k.skipsObserved
	k.mu.Unlock()
	if skipped && k.cfg.SkipFailsafe && observed > k.cfg.MaxSequentialSkips {
		k.rebooter.Bootloader()
	}
}

const ErrNoScheduleArmed = scheduleNotArmed("kernel_schedule_not_armed")

type scheduleNotArmed string

func (e scheduleNotArmed) Error() string { return string(e) }
