package dataplane

import (
	"bytes"
	"fmt"

	"github.com/simeonmiteff/gdbremote/pkg/session"
	"github.com/simeonmiteff/gdbremote/pkg/wire"
)

// EnumerateThreads drives qfThreadInfo/qsThreadInfo to completion,
// returning every thread id the stub reports. Each round's reply is
// "m<tid>[,<tid>]*" (comma-tokenized in full — see the deviation note in
// DESIGN.md) until a round replies "l".
func EnumerateThreads(sess *session.Session) ([]int32, error) {
	var tids []int32

	if err := sess.Send("qfThreadInfo"); err != nil {
		return nil, err
	}
	pkt, err := sess.Recv(false)
	if err != nil {
		return nil, err
	}

	for {
		if len(pkt.Body) == 0 {
			return nil, fmt.Errorf("dataplane: thread enumeration: empty reply")
		}
		switch pkt.Body[0] {
		case 'l':
			return tids, nil
		case 'm':
			for _, tok := range bytes.Split(pkt.Body[1:], []byte(",")) {
				if len(tok) == 0 {
					continue
				}
				tid, err := wire.ParseThreadID(tok)
				if err != nil {
					return nil, fmt.Errorf("dataplane: thread enumeration: %w", err)
				}
				tids = append(tids, tid.TID)
			}
		default:
			return nil, fmt.Errorf("dataplane: thread enumeration: unexpected reply %q", pkt.Body)
		}

		if err := sess.Send("qsThreadInfo"); err != nil {
			return nil, err
		}
		pkt, err = sess.Recv(false)
		if err != nil {
			return nil, err
		}
	}
}
