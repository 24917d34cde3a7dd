package controller

import (
	"bytes"
	"fmt"

	"github.com/simeonmiteff/gdbremote/pkg/dataplane"
	"github.com/simeonmiteff/gdbremote/pkg/stopreply"
	"github.com/simeonmiteff/gdbremote/pkg/tracer"
	"github.com/simeonmiteff/gdbremote/pkg/wire"
)

// StartupChild implements §4.7's startup_child: launch argv under the stub
// via vRun, requiring extended mode. The single resulting trap registers
// the first tracee.
func (c *Controller) StartupChild(argv []string) (*tracer.Tracee, error) {
	if !c.Sess.Extended {
		return nil, fmt.Errorf("controller: vRun requires extended mode ('!'), which the stub refused")
	}

	payload := bytes.NewBufferString("vRun")
	for _, arg := range argv {
		payload.WriteByte(';')
		payload.Write(wire.EncodeBytes([]byte(arg)))
	}
	if err := c.Sess.Send(payload.String()); err != nil {
		return nil, err
	}
	pkt, err := c.Sess.Recv(true)
	if err != nil {
		return nil, err
	}
	r, err := stopreply.Parse(pkt.Body)
	if err != nil {
		return nil, fmt.Errorf("controller: vRun: %w", err)
	}
	if r.Kind != stopreply.KindTrap {
		return nil, fmt.Errorf("controller: vRun: expected trap, got kind %v (code=%#x)", r.Kind, r.Code)
	}

	pid := r.TID
	if pid < 0 {
		pid = r.PID
	}
	t := c.registerTracee(pid, true)
	c.Tcr.SetCurrentTCP(t)
	return t, nil
}

// StartupAttach implements §4.7's startup_attach: try the non-stop attach
// dialogue first, falling back to an all-stop vAttach if QNonStop:1 or the
// thread-stop round fails. Requires extended mode.
func (c *Controller) StartupAttach(pid int32) ([]*tracer.Tracee, error) {
	if !c.Sess.Extended {
		return nil, fmt.Errorf("controller: vAttach requires extended mode ('!'), which the stub refused")
	}

	if err := c.attachNonStop(pid); err != nil {
		c.Sess.Log.WithError(err).Warn("controller: non-stop attach failed, falling back to all-stop")
		if fbErr := c.attachAllStop(pid); fbErr != nil {
			return nil, fbErr
		}
	}

	return c.enumerateAndRegisterThreads(pid)
}

func (c *Controller) attachNonStop(pid int32) error {
	if err := c.Sess.Send("QNonStop:1"); err != nil {
		return err
	}
	pkt, err := c.Sess.Recv(false)
	if err != nil {
		return err
	}
	if string(pkt.Body) != "OK" {
		return fmt.Errorf("controller: QNonStop:1 refused")
	}
	c.Sess.NonStop = true

	if err := c.vAttach(pid); err != nil {
		c.Sess.NonStop = false
		return err
	}

	payload := "vCont;t:p" + string(wire.EncodeBytes(hexOf(pid))) + ".-1"
	if err := c.Sess.Send(payload); err != nil {
		return err
	}
	return c.drainVStopped()
}

// vAttach sends vAttach;<hex-pid> and requires a plain OK (the non-stop
// case: no stop-reply accompanies the attach itself).
func (c *Controller) vAttach(pid int32) error {
	return c.expectOK("vAttach;" + string(wire.EncodeBytes(hexOf(pid))))
}

// drainVStopped consumes the plain OK the stub sends for the vCont;t
// request itself plus the first async notification it produces (the two
// can arrive in either order), then loops issuing vStopped until the stub
// answers OK, registering a tracee for each thread reported along the way.
func (c *Controller) drainVStopped() error {
	var pkt wire.Packet
	sawOK, sawStop := false, false
	for !sawOK || !sawStop {
		p, err := c.Sess.Recv(true)
		if err != nil {
			return err
		}
		if p.Notification {
			pkt, sawStop = p, true
			continue
		}
		if string(p.Body) != "OK" {
			return fmt.Errorf("controller: vCont;t: expected OK, got %q", p.Body)
		}
		sawOK = true
	}
	for {
		if string(pkt.Body) == "OK" {
			return nil
		}
		r, err := stopreply.Parse(pkt.Body)
		if err != nil {
			return fmt.Errorf("controller: vStopped drain: %w", err)
		}
		if r.TID >= 0 && c.Tcr.Pid2TCB(r.TID) == nil {
			c.registerTracee(r.TID, true)
		}
		if err := c.Sess.Send("vStopped"); err != nil {
			return err
		}
		pkt, err = c.Sess.Recv(true)
		if err != nil {
			return err
		}
	}
}

// attachAllStop is the §4.7 fallback: QNonStop:0, retry vAttach, require a
// synchronous trap or signal(0).
func (c *Controller) attachAllStop(pid int32) error {
	if err := c.Sess.Send("QNonStop:0"); err != nil {
		return err
	}
	if _, err := c.Sess.Recv(false); err != nil {
		return err
	}
	c.Sess.NonStop = false

	if err := c.Sess.Send("vAttach;" + string(wire.EncodeBytes(hexOf(pid)))); err != nil {
		return err
	}
	pkt, err := c.Sess.Recv(true)
	if err != nil {
		return err
	}
	r, err := stopreply.Parse(pkt.Body)
	if err != nil {
		return fmt.Errorf("controller: vAttach fallback: %w", err)
	}
	// Parse classifies signal(0) as a provisional trap, so KindTrap alone
	// covers both stops the fallback accepts.
	if r.Kind != stopreply.KindTrap {
		return fmt.Errorf("controller: vAttach fallback: expected trap or signal(0), got kind %v", r.Kind)
	}
	return nil
}

// enumerateAndRegisterThreads implements the qfThreadInfo/qsThreadInfo loop
// from §4.7's post-attach paragraph.
func (c *Controller) enumerateAndRegisterThreads(pid int32) ([]*tracer.Tracee, error) {
	tids, err := dataplane.EnumerateThreads(c.Sess)
	if err != nil {
		return nil, err
	}

	var registered []*tracer.Tracee
	for _, tid := range tids {
		t := c.Tcr.Pid2TCB(tid)
		if t == nil {
			if err := c.setStubThread(tid); err != nil {
				c.Sess.Log.WithError(err).Warn("controller: Hg failed while enumerating threads")
			}
			t = c.registerTracee(tid, true)
			registered = append(registered, t)
		}
		if c.Tcr.CurrentTCP() == nil {
			c.Tcr.SetCurrentTCP(t)
		}
	}
	return registered, nil
}
