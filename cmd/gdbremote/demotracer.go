package main

import (
	"github.com/rs/xid"
	"github.com/sirupsen/logrus"

	"github.com/simeonmiteff/gdbremote/pkg/signum"
	"github.com/simeonmiteff/gdbremote/pkg/tracer"
)

// demoTracer is the external collaborator pkg/tracer.Tracer models but
// never implements: the host tracer's syscall decoding engine and tracee
// registry. This implementation logs every callback instead of decoding
// anything, so cmd/gdbremote can drive and observe the whole stack without
// a real strace-style backend.
type demoTracer struct {
	log   *logrus.Entry
	byPID map[int32]*tracer.Tracee
	cur   *tracer.Tracee

	debug bool
}

func newDemoTracer(log *logrus.Entry, debug bool) *demoTracer {
	return &demoTracer{
		log:   log,
		byPID: make(map[int32]*tracer.Tracee),
		debug: debug,
	}
}

func (d *demoTracer) AllocTCB(pid int32) *tracer.Tracee {
	t := &tracer.Tracee{PID: pid, ID: xid.New()}
	d.byPID[pid] = t
	d.log.WithFields(logrus.Fields{"pid": pid, "tracee": t.ID.String()}).Info("demotracer: alloctcb")
	return t
}

func (d *demoTracer) DropTCB(t *tracer.Tracee) {
	delete(d.byPID, t.PID)
	d.log.WithFields(logrus.Fields{"pid": t.PID, "tracee": t.ID.String()}).Info("demotracer: droptcb")
	if d.cur == t {
		d.cur = nil
	}
}

func (d *demoTracer) Pid2TCB(pid int32) *tracer.Tracee { return d.byPID[pid] }

func (d *demoTracer) NewOutF(t *tracer.Tracee) {
	d.log.WithField("pid", t.PID).Debug("demotracer: newoutf")
}

// GetRegs, GetScno and Exiting stand in for ptrace-backed register/syscall
// decoding: there is no real tracee memory to read here, so GetScno simply
// echoes back whatever scno the last stop-reply carried, and Exiting
// alternates per tracee, which is enough to drive the entry/return
// dispatch rule in pkg/controller without a real decoder.
func (d *demoTracer) GetRegs(t *tracer.Tracee) error { return nil }

func (d *demoTracer) GetScno(t *tracer.Tracee) (int64, error) { return t.Scno, nil }

func (d *demoTracer) Exiting(t *tracer.Tracee) bool {
	return t.HasFlag(tracer.FlagInSyscall)
}

func (d *demoTracer) TraceSyscall(t *tracer.Tracee) {
	entering := !t.HasFlag(tracer.FlagInSyscall)
	if entering {
		t.SetFlag(tracer.FlagInSyscall)
	} else {
		t.ClearFlag(tracer.FlagInSyscall)
	}
	d.log.WithFields(logrus.Fields{
		"pid":      t.PID,
		"scno":     t.Scno,
		"entering": entering,
	}).Info("demotracer: trace_syscall")
}

func (d *demoTracer) PrintStopped(t *tracer.Tracee, siginfo []byte, targetSignal int32) {
	d.log.WithFields(logrus.Fields{
		"pid":         t.PID,
		"signal":      targetSignal,
		"siginfo_len": len(siginfo),
	}).Info("demotracer: print_stopped")
}

func (d *demoTracer) PrintExited(t *tracer.Tracee, status int32) {
	d.log.WithFields(logrus.Fields{"pid": t.PID, "status": status}).Info("demotracer: print_exited")
}

func (d *demoTracer) PrintSignalled(t *tracer.Tracee, status int32) {
	d.log.WithFields(logrus.Fields{"pid": t.PID, "status": status}).Info("demotracer: print_signalled")
}

// SigName answers from the RSP name table directly: the demo runs a
// single personality whose target signal numbering is assumed identical
// to the RSP numbering, which makes signum.Build's translation a
// same-number passthrough for signals 1-31. SIGPWR (32) and SIGPOLL (33)
// are not below NSignals, so they translate to -1.
func (d *demoTracer) SigName(personality int32, rspSignal int32) string {
	return signum.Name(rspSignal)
}

func (d *demoTracer) NSignals(personality int32) int32 { return 32 }

func (d *demoTracer) CurrentPersonality() int32 { return 0 }

func (d *demoTracer) SetPersonality(p int32) {}

func (d *demoTracer) SupportedPersonalities() []int32 { return []int32{0} }

func (d *demoTracer) CurrentTCP() *tracer.Tracee { return d.cur }

func (d *demoTracer) SetCurrentTCP(t *tracer.Tracee) { d.cur = t }

func (d *demoTracer) Debug() bool { return d.debug }

var _ tracer.Tracer = (*demoTracer)(nil)
