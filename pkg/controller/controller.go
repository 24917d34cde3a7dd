// Package controller implements the event loop §4.7 describes: startup,
// the continue/stop cycle, per-event dispatch into the external tracer,
// and teardown. It is the top of the stack — every other package here is
// a collaborator it drives.
package controller

import (
	"fmt"

	"github.com/simeonmiteff/gdbremote/pkg/session"
	"github.com/simeonmiteff/gdbremote/pkg/signum"
	"github.com/simeonmiteff/gdbremote/pkg/stopreply"
	"github.com/simeonmiteff/gdbremote/pkg/tracer"
	"github.com/simeonmiteff/gdbremote/pkg/wire"
)

// Controller owns the session and the external tracer, plus the small
// amount of state the continue/resume cycle needs to carry between one
// stop and the next.
type Controller struct {
	Sess *session.Session
	Tcr  tracer.Tracer
	Sigs signum.Table

	// pendingGdbSig is the RSP signal code from the last signal stop,
	// remembered so the next resume can inject it via vCont;C or C.
	pendingGdbSig int32
	havePending   bool
}

// New builds a Controller over an already-handshaken session, computing
// the signal map immediately (§4.5's "single critical section" guidance).
func New(sess *session.Session, tcr tracer.Tracer) *Controller {
	return &Controller{
		Sess: sess,
		Tcr:  tcr,
		Sigs: session.BuildSignalMap(tcr),
	}
}

func (c *Controller) translate(personality, rspSignal int32) int32 {
	return c.Sigs.Translate(personality, rspSignal)
}

// expectOK sends payload and requires a literal "OK" reply, returning an
// error (fatal per §7 kind 1) otherwise.
func (c *Controller) expectOK(payload string) error {
	if err := c.Sess.Send(payload); err != nil {
		return err
	}
	pkt, err := c.Sess.Recv(false)
	if err != nil {
		return err
	}
	if string(pkt.Body) != "OK" {
		return fmt.Errorf("controller: %q: expected OK, got %q", payload, pkt.Body)
	}
	return nil
}

// catchSyscallsForCurrent issues QCatchSyscalls:1 for whichever thread is
// currently selected in the stub, warning (not failing) on refusal per
// §4.4's degraded-capability rule.
func (c *Controller) catchSyscallsForCurrent() error {
	return c.Sess.CatchSyscalls()
}

// setStubThread issues Hg<tid> to make tid the stub's current thread for
// subsequent single-thread operations (g, QCatchSyscalls:1).
func (c *Controller) setStubThread(tid int32) error {
	payload := "Hg" + string(wire.EncodeBytes(hexOf(tid)))
	return c.expectOK(payload)
}

// hexOf renders a TID/PID the way the stub expects in Hg/vAttach/D/T
// payloads and inside vCont;t:p<pid>.-1: a bare big-endian hex integer,
// not wire.ThreadID's pPID.TID form.
func hexOf(v int32) []byte {
	s := fmt.Sprintf("%x", uint32(v))
	if len(s)%2 != 0 {
		s = "0" + s
	}
	b := make([]byte, len(s)/2)
	for i := range b {
		hi, lo := s[i*2], s[i*2+1]
		v, _ := wire.DecodeByte(hi, lo)
		b[i] = v
	}
	return b
}

// registerTracee allocates a tracee record for pid, sets the attached +
// startup flags, and issues QCatchSyscalls:1 for it.
func (c *Controller) registerTracee(pid int32, attached bool) *tracer.Tracee {
	t := c.Tcr.AllocTCB(pid)
	if attached {
		t.SetFlag(tracer.FlagAttached)
	}
	t.SetFlag(tracer.FlagStartup)
	t.CurrPers = c.Tcr.CurrentPersonality()
	c.Tcr.NewOutF(t)
	if err := c.catchSyscallsForCurrent(); err != nil {
		c.Sess.Log.WithError(err).Warn("controller: QCatchSyscalls:1 failed for new tracee")
	}
	c.Sess.Metrics.ActiveTracees.Inc()
	return t
}

// dropTracee removes t from the registry and keeps the active-tracee gauge
// in sync; every dispatch path that ends a tracee's lifecycle goes
// through this instead of calling Tcr.DropTCB directly.
func (c *Controller) dropTracee(t *tracer.Tracee) {
	c.Tcr.DropTCB(t)
	c.Sess.Metrics.ActiveTracees.Dec()
}

// resolveTracee implements §4.7 step 2.
func (c *Controller) resolveTracee(r stopreply.Reply) (*tracer.Tracee, error) {
	if !c.Sess.Multiprocess {
		t := c.Tcr.CurrentTCP()
		if t == nil {
			return nil, fmt.Errorf("controller: no current tracee and multiprocess is disabled")
		}
		return t, nil
	}

	// W/X stop-replies carry no thread: field, only an optional process:
	// one; fall back to it so exit/termination events under multiprocess
	// can still be resolved to a tracee.
	id := r.TID
	if id < 0 {
		id = r.PID
	}
	if id < 0 {
		return nil, fmt.Errorf("controller: stop-reply missing thread id under multiprocess")
	}
	t := c.Tcr.Pid2TCB(id)
	if t == nil {
		if err := c.setStubThread(id); err != nil {
			c.Sess.Log.WithError(err).Warn("controller: Hg failed while registering new thread")
		}
		t = c.registerTracee(id, true)
	}
	c.Tcr.SetCurrentTCP(t)
	return t, nil
}
