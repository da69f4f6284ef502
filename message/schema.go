package message

import (
	"sync"

	"manuvr-go/errcode"
	"manuvr-go/value"
)

// Code identifies a registered message definition. Codes 0x0000-0x1FFF are
// reserved for core semantics; 0x1000 and above is user space (spec.md §3).
// (The two ranges deliberately overlap at 0x1000-0x1FFF: that band is
// reserved core territory that happens to also satisfy "user space starts at
// 0x1000" — user code should stay at/above 0x2000 in practice, but nothing
// in this package enforces that beyond the single reserved range check.)
type Code uint16

const (
	Undefined_ Code = 0x0000

	CodeBootCompleted          Code = 0x0001
	CodeSysReboot              Code = 0x0002
	CodeSysShutdown            Code = 0x0003
	CodeSysBootloader          Code = 0x0004
	CodeSysConfLoad            Code = 0x0005
	CodeSysConfSave            Code = 0x0006
	CodeSysSetDatetime         Code = 0x0007
	CodeSysReportDatetime      Code = 0x0008
	CodeSysDatetimeChanged     Code = 0x0009
	CodeSysLogVerbosity        Code = 0x000A
	CodeSysIssueLogItem        Code = 0x000B
	CodeSysAdvertiseService    Code = 0x000C
	CodeSysRetractService      Code = 0x000D
	CodeLegendMessages         Code = 0x000E
	CodeSelfDescribe           Code = 0x000F
	CodeUserDebugInput         Code = 0x0010
	CodeXportSend              Code = 0x0011
	CodeXportReceive           Code = 0x0012
	CodeXportQueueReady        Code = 0x0013
	CodeXportCBQueueReady      Code = 0x0014
	CodeDeferredFxn            Code = 0x0015
	CodeSchedulerEnableByPID   Code = 0x0016
	CodeSchedulerDisableByPID  Code = 0x0017
	CodeSchedulerProfilerStart Code = 0x0018
	CodeSchedulerProfilerStop  Code = 0x0019
	CodeSchedulerProfilerDump  Code = 0x001A
	CodeCreateThreadID         Code = 0x001B
	CodeDestroyThreadID        Code = 0x001C
	CodeUnblockThread          Code = 0x001D
	CodeOICReady               Code = 0x001E
	CodeOICDiscovery           Code = 0x001F
	CodeOICPing                Code = 0x0020

	// ReservedCoreCeiling is the top of the reserved core code space.
	ReservedCoreCeiling Code = 0x1FFF
	// UserSpaceFloor is where user space begins. Codes from here up to
	// ReservedCoreCeiling also lie in the reserved core range (see Code).
	UserSpaceFloor Code = 0x1000
)

// Flags describes a message definition's static properties (spec.md §3).
type Flags uint16

const (
	FlagExportable Flags = 1 << iota
	FlagDemandsACK
	FlagIdempotent // at most one instance of this code may be queued at once
	FlagAuthOnly
	FlagEmits
	FlagListens
)

func (f Flags) Has(bit Flags) bool { return f&bit != 0 }

// Def is a registered message definition: a schema record keyed by Code.
type Def struct {
	Code    Code
	Flags   Flags
	Label   string
	Forms   [][]value.TypeCode // grammatical forms, null-separated on the wire
	Semantic []string           // optional semantic labels
}

func (d Def) Idempotent() bool  { return d.Flags.Has(FlagIdempotent) }
func (d Def) Exportable() bool  { return d.Flags.Has(FlagExportable) }

// minFormLen returns a form's minimum encoded length: fixed types count their
// fixed size, variable-length types count their minimum (spec.md §4.2.1).
func minFormLen(form []value.TypeCode) int {
	total := 0
	for _, t := range form {
		total += t.FixedSize()
	}
	return total
}

func formHasVariableLength(form []value.TypeCode) bool {
	for _, t := range form {
		if t.VariableLength() {
			return true
		}
	}
	return false
}

// MatchForm implements the grammar-matching algorithm of spec.md §4.2.1:
// collect every form whose minimum length equals L, or whose minimum length
// is less than L and which contains a variable-length component. Exactly one
// match is required; zero or more than one is a failure.
func (d Def) MatchForm(l int) ([]value.TypeCode, error) {
	var matched []value.TypeCode
	count := 0
	for _, form := range d.Forms {
		min := minFormLen(form)
		if min == l || (min < l && formHasVariableLength(form)) {
			matched = form
			count++
		}
	}
	switch count {
	case 0:
		return nil, ErrNoMatchingForm
	case 1:
		return matched, nil
	default:
		return nil, ErrAmbiguousForm
	}
}

// Registry is a process-wide (or per-test) registry of message definitions,
// seeded with the built-in core codes and extensible at runtime by any
// component (spec.md §3), mirroring the teacher's RegisterBuilder idiom in
// services/hal/registry.go — register-by-key, reject duplicates loudly.
type Registry struct {
	mu   sync.RWMutex
	defs map[Code]Def
}

// NewRegistry returns a Registry seeded with the built-in core message
// definitions.
func NewRegistry() *Registry {
	r := &Registry{defs: map[Code]Def{}}
	for _, d := range builtinDefs() {
		r.defs[d.Code] = d
	}
	return r
}

// Register installs a definition. It is an error to register Undefined_
// (0x0000) or to overwrite an existing code.
func (r *Registry) Register(d Def) error {
	if d.Code == Undefined_ {
		return ErrUndefinedCode
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.defs[d.Code]; exists {
		return ErrCodeAlreadyRegistered
	}
	r.defs[d.Code] = d
	return nil
}

// Lookup returns the definition for code, if any.
func (r *Registry) Lookup(code Code) (Def, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.defs[code]
	return d, ok
}

// All returns every registered definition, for legend dumps.
func (r *Registry) All() []Def {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Def, 0, len(r.defs))
	for _, d := range r.defs {
		out = append(out, d)
	}
	return out
}

func builtinDefs() []Def {
	mk := func(c Code, label string, flags Flags) Def {
		return Def{Code: c, Label: label, Flags: flags | FlagExportable}
	}
	return []Def{
		mk(CodeBootCompleted, "boot_completed", 0),
		mk(CodeSysReboot, "sys_reboot", 0),
		mk(CodeSysShutdown, "sys_shutdown", 0),
		mk(CodeSysBootloader, "sys_bootloader", 0),
		mk(CodeSysConfLoad, "sys_conf_load", 0),
		mk(CodeSysConfSave, "sys_conf_save", 0),
		mk(CodeSysSetDatetime, "sys_set_datetime", 0),
		mk(CodeSysReportDatetime, "sys_report_datetime", 0),
		mk(CodeSysDatetimeChanged, "sys_datetime_changed", 0),
		mk(CodeSysLogVerbosity, "sys_log_verbosity", 0),
		mk(CodeSysIssueLogItem, "sys_issue_log_item", 0),
		mk(CodeSysAdvertiseService, "sys_advertise_service", 0),
		mk(CodeSysRetractService, "sys_retract_service", 0),
		mk(CodeLegendMessages, "legend_messages", 0),
		mk(CodeSelfDescribe, "self_describe", 0),
		mk(CodeUserDebugInput, "user_debug_input", 0),
		mk(CodeXportSend, "xport_send", 0),
		mk(CodeXportReceive, "xport_receive", 0),
		mk(CodeXportQueueReady, "xport_queue_ready", 0),
		mk(CodeXportCBQueueReady, "xport_cb_queue_ready", 0),
		mk(CodeDeferredFxn, "deferred_fxn", 0),
		mk(CodeSchedulerEnableByPID, "scheduler_enable_by_pid", 0),
		mk(CodeSchedulerDisableByPID, "scheduler_disable_by_pid", 0),
		mk(CodeSchedulerProfilerStart, "scheduler_profiler_start", 0),
		mk(CodeSchedulerProfilerStop, "scheduler_profiler_stop", 0),
		mk(CodeSchedulerProfilerDump, "scheduler_profiler_dump", 0),
		mk(CodeCreateThreadID, "create_thread_id", 0),
		mk(CodeDestroyThreadID, "destroy_thread_id", 0),
		mk(CodeUnblockThread, "unblock_thread", 0),
		mk(CodeOICReady, "oic_ready", 0),
		mk(CodeOICDiscovery, "oic_discovery", 0),
		mk(CodeOICPing, "oic_ping", 0),
	}
}

const (
	ErrUndefinedCode          errcode.Code = "message_undefined_code"
	ErrCodeAlreadyRegistered  errcode.Code = "message_code_already_registered"
	ErrNoMatchingForm         errcode.Code = "message_no_matching_form"
	ErrAmbiguousForm          errcode.Code = "message_ambiguous_form"
)
