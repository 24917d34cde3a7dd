// Package tracer defines the contract this module calls into, but never
// implements beyond a demo: the host tracer's syscall decoding engine and
// tracee registry. These are out of scope per spec.md §1 and are modeled
// here as an interface so the controller can be exercised and tested
// without a real tracer attached.
package tracer

import "github.com/rs/xid"

// Tracee flag bits, read and written by the controller.
const (
	FlagAttached  uint32 = 1 << iota // process was attached to, not forked by us
	FlagStartup                      // first stop for this tracee hasn't been processed yet
	FlagInSyscall                    // currently between a syscall-entry and its return
)

// Tracee is the minimum record the core reads/writes through the Tracer
// interface. Ownership of the full record belongs to the external
// registry; this struct only carries the fields spec.md §3 names.
type Tracee struct {
	PID      int32
	Flags    uint32
	Scno     int64
	CurrPers int32
	SPrevEnt int64
	SEnt     int64

	// ID is additive: a per-tracee correlation id for log lines, not part
	// of spec.md's contract and never consulted by Tracer callback logic.
	ID xid.ID
}

// HasFlag reports whether all bits in flag are set.
func (t *Tracee) HasFlag(flag uint32) bool { return t.Flags&flag == flag }

// SetFlag sets the given bits.
func (t *Tracee) SetFlag(flag uint32) { t.Flags |= flag }

// ClearFlag clears the given bits.
func (t *Tracee) ClearFlag(flag uint32) { t.Flags &^= flag }

// Tracer is the set of external collaborator operations the controller
// calls into: tracee registry primitives, the syscall decoding engine, the
// signal-name table, and the personality switch. Implementations are
// expected to be backed by the host tracer's own state; this module never
// defines tracee lifecycle semantics beyond what spec.md §4.7 requires of
// its callers.
type Tracer interface {
	// AllocTCB registers a new tracee for pid and returns its record.
	AllocTCB(pid int32) *Tracee
	// DropTCB removes t from the registry.
	DropTCB(t *Tracee)
	// Pid2TCB looks up an already-registered tracee by pid, or nil.
	Pid2TCB(pid int32) *Tracee
	// NewOutF opens whatever per-tracee output file the tracer uses for t.
	NewOutF(t *Tracee)

	// GetRegs refreshes the register snapshot the tracer holds for t.
	GetRegs(t *Tracee) error
	// GetScno returns the last decoded syscall number for t.
	GetScno(t *Tracee) (int64, error)
	// Exiting reports whether t is currently past syscall entry (i.e. a
	// syscall-return event for it should be dispatched).
	Exiting(t *Tracee) bool
	// TraceSyscall decodes and reports the syscall currently in t.Scno.
	TraceSyscall(t *Tracee)

	// PrintStopped reports a signal delivery, with optional raw siginfo_t
	// bytes and the already-translated target signal number.
	PrintStopped(t *Tracee, siginfo []byte, targetSignal int32)
	// PrintExited reports a normal exit with the W_EXITCODE-style status.
	PrintExited(t *Tracee, status int32)
	// PrintSignalled reports a fatal-signal termination with the
	// W_EXITCODE-style status.
	PrintSignalled(t *Tracee, status int32)

	// SigName returns the target-OS name of signal number sig under
	// personality, or "" if there is none. The signal map compares these
	// names against the RSP name table.
	SigName(personality int32, sig int32) string
	// NSignals returns the number of target signal numbers known for
	// personality.
	NSignals(personality int32) int32
	// CurrentPersonality returns the process-wide personality selector.
	CurrentPersonality() int32
	// SetPersonality mutates the process-wide personality selector.
	SetPersonality(p int32)
	// SupportedPersonalities lists every personality the signal map must
	// be computed for.
	SupportedPersonalities() []int32

	// CurrentTCP returns the tracee the controller currently considers
	// "current" (used in the non-multiprocess fallback).
	CurrentTCP() *Tracee
	// SetCurrentTCP updates that pointer.
	SetCurrentTCP(t *Tracee)

	// Debug reports whether sent/received packets should be traced.
	Debug() bool
}
