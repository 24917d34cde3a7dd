package controller

import (
	"fmt"

	"github.com/simeonmiteff/gdbremote/pkg/dataplane"
	"github.com/simeonmiteff/gdbremote/pkg/stopreply"
	"github.com/simeonmiteff/gdbremote/pkg/tracer"
)

// hostSiginfoSize is a stand-in for the external tracer's real siginfo_t
// size (32 or 64-bit ABI dependent); a package-level setting, changed via
// SetHostSiginfoSize, so a real host tracer can override it without this
// package depending on the host ABI. 0 means "never match", i.e. always pass a nil siginfo through.
var hostSiginfoSize = 0

// SetHostSiginfoSize lets the embedding tracer declare its siginfo_t size
// for the qXfer:siginfo:read length check in §4.7 step 9.
func SetHostSiginfoSize(n int) { hostSiginfoSize = n }

// wExitcode mirrors the source's W_EXITCODE(ret, sig) macro: (ret << 8) |
// sig, the packed status external print_exited/print_signalled expect.
func wExitcode(ret, sig int32) int32 {
	return (ret << 8) | sig
}

// Trace runs one iteration of §4.7's main loop: receive a stop-reply,
// dispatch it and everything the dispatch drains from the notification
// queue, then resume if any dispatched event called for it. It returns
// cont=false when the loop should stop (an 'error' stop-reply, or a
// non-multiprocess exit/termination).
func (c *Controller) Trace() (cont bool, err error) {
	pkt, err := c.Sess.Recv(true)
	if err != nil {
		return false, err
	}
	r, err := stopreply.Parse(pkt.Body)
	if err != nil {
		return false, fmt.Errorf("controller: trace: %w", err)
	}

	cont, resume, lastTID, err := c.dispatch(r)
	if err != nil {
		return false, err
	}
	if !cont {
		return false, nil
	}

	for {
		notifPkt, ok := c.Sess.Notify.Pop()
		if !ok {
			break
		}
		c.Sess.Metrics.NotificationsDequeued.Inc()
		nr, err := stopreply.Parse(notifPkt.Body)
		if err != nil {
			return false, fmt.Errorf("controller: trace: deferred notification: %w", err)
		}
		nc, nResume, nTID, err := c.dispatch(nr)
		if err != nil {
			return false, err
		}
		if !nc {
			return false, nil
		}
		if nResume {
			resume = true
			lastTID = nTID
		}
	}

	if resume {
		if err := c.resumeAfterStop(lastTID); err != nil {
			return false, err
		}
	}
	return true, nil
}

// dispatch implements §4.7 steps 1-9 for a single stop-reply record.
func (c *Controller) dispatch(r stopreply.Reply) (cont, resume bool, tid int32, err error) {
	c.Sess.Metrics.StopReplyKind.WithLabelValues(r.Kind.String()).Inc()

	switch r.Kind {
	case stopreply.KindUnknown:
		return false, false, 0, fmt.Errorf("controller: unknown stop-reply kind")
	case stopreply.KindError:
		return false, false, 0, nil
	}

	t, err := c.resolveTracee(r)
	if err != nil {
		return false, false, 0, err
	}

	switch r.Kind {
	case stopreply.KindExited:
		c.Tcr.PrintExited(t, wExitcode(r.Code, 0))
		c.dropTracee(t)
		return c.Sess.Multiprocess, false, 0, nil
	case stopreply.KindTerminated:
		target := c.translate(t.CurrPers, r.Code)
		c.Tcr.PrintSignalled(t, wExitcode(0, target))
		c.dropTracee(t)
		return c.Sess.Multiprocess, false, 0, nil
	}

	if err := c.Tcr.GetRegs(t); err != nil {
		return false, false, 0, fmt.Errorf("controller: get_regs: %w", err)
	}
	if t.HasFlag(tracer.FlagStartup) {
		t.ClearFlag(tracer.FlagStartup)
		if scno, err := c.Tcr.GetScno(t); err == nil && scno == 1 {
			t.SPrevEnt = t.SEnt
		}
	}

	switch r.Kind {
	case stopreply.KindTrap:
		// no-op dispatch
	case stopreply.KindSyscallEntry:
		t.ClearFlag(tracer.FlagInSyscall)
		t.Scno = int64(r.Code)
		c.Tcr.TraceSyscall(t)
	case stopreply.KindSyscallReturn:
		if c.Tcr.Exiting(t) {
			t.Scno = int64(r.Code)
			c.Tcr.TraceSyscall(t)
		}
	case stopreply.KindSignal:
		si := dataplane.ReadSiginfo(c.Sess, hostSiginfoSize)
		target := c.translate(t.CurrPers, r.Code)
		c.Tcr.PrintStopped(t, si, target)
		c.pendingGdbSig = r.Code
		c.havePending = true
	}

	return true, true, t.PID, nil
}
