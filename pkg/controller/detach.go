package controller

import (
	"fmt"

	"github.com/simeonmiteff/gdbremote/pkg/wire"
)

// Detach implements §4.7's teardown: D;<hex-pid> under multiprocess, else
// bare D. On a non-OK reply it probes liveness with T;<hex-pid> before
// deciding whether the target was already gone.
func (c *Controller) Detach(pid int32) error {
	payload := "D"
	if c.Sess.Multiprocess {
		payload = "D;" + string(wire.EncodeBytes(hexOf(pid)))
	}
	if err := c.Sess.Send(payload); err != nil {
		return err
	}
	pkt, err := c.Sess.Recv(false)
	if err != nil {
		return err
	}
	if string(pkt.Body) == "OK" {
		return nil
	}

	alive, err := c.probeLiveness(pid)
	if err != nil {
		return err
	}
	if alive {
		return fmt.Errorf("controller: detach of pid %#x failed and target is still alive", pid)
	}
	c.Sess.Log.WithField("pid", fmt.Sprintf("%#x", pid)).Debug("controller: detach failed but target already gone")
	return nil
}

func (c *Controller) probeLiveness(pid int32) (bool, error) {
	if err := c.Sess.Send("T;" + string(wire.EncodeBytes(hexOf(pid)))); err != nil {
		return false, err
	}
	pkt, err := c.Sess.Recv(false)
	if err != nil {
		return false, err
	}
	return string(pkt.Body) == "OK", nil
}
