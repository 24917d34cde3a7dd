// Package dataplane implements the auxiliary per-tracee operations:
// register read, chunked memory read, qXfer transfers, and remote
// readlink. Every function here assumes the stub's current thread has
// already been set to the caller's target (via Hg).
package dataplane

import (
	"fmt"

	"github.com/simeonmiteff/gdbremote/pkg/session"
	"github.com/simeonmiteff/gdbremote/pkg/wire"
)

// ReadRegisters sends 'g' and returns the raw decoded register bytes for
// whichever thread is currently selected in the stub.
func ReadRegisters(sess *session.Session) ([]byte, error) {
	if err := sess.Send("g"); err != nil {
		return nil, err
	}
	pkt, err := sess.Recv(false)
	if err != nil {
		return nil, err
	}
	if len(pkt.Body) > 0 && pkt.Body[0] == 'E' {
		return nil, fmt.Errorf("dataplane: g: stub error %s", pkt.Body)
	}
	return wire.DecodeBuf(pkt.Body)
}
