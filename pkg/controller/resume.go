package controller

import "fmt"

// Resume implements §4.7's plain continuation: vCont;c if the stub
// negotiated vCont, else the single-thread fallback c.
func (c *Controller) Resume() error {
	if c.Sess.VCont {
		return c.Sess.Send("vCont;c")
	}
	return c.Sess.Send("c")
}

// ResumeWithSignal injects gdbSig into tid and continues, using
// vCont;C<sig>:<tid>;c when vCont is available (continuing every other
// thread plainly) or falling back to C<sig> (which, without vCont, can
// only resume the stub's single current thread).
func (c *Controller) ResumeWithSignal(gdbSig int32, tid int32) error {
	if c.Sess.VCont {
		payload := fmt.Sprintf("vCont;C%02x:%x;c", uint8(gdbSig), uint32(tid))
		return c.Sess.Send(payload)
	}
	return c.Sess.Send(fmt.Sprintf("C%02x", uint8(gdbSig)))
}

// resumeAfterStop dispatches to Resume or ResumeWithSignal depending on
// whether the previous stop batch left a pending signal to inject, per
// §4.7's continuation rule, then clears the pending state.
func (c *Controller) resumeAfterStop(tid int32) error {
	if c.havePending {
		sig := c.pendingGdbSig
		c.havePending = false
		return c.ResumeWithSignal(sig, tid)
	}
	return c.Resume()
}
