// Package notify holds the FIFO of deferred stop notifications that
// arrive while the framer is waiting on a synchronous reply, in non-stop
// mode.
package notify

import (
	"bytes"

	"github.com/simeonmiteff/gdbremote/pkg/wire"
)

// Queue is an unbounded, oldest-first FIFO of cached notification packets.
// No locking: one goroutine drives the whole session.
type Queue struct {
	pending []wire.Packet
}

// New returns an empty Queue.
func New() *Queue {
	return &Queue{}
}

// Push accepts pkt only if its body, after the leading type byte and two
// hex code digits, contains the substring "syscall"; anything else is
// silently dropped.
func (q *Queue) Push(pkt wire.Packet) {
	if !hasSyscallSubstring(pkt.Body) {
		return
	}
	q.pending = append(q.pending, pkt)
}

func hasSyscallSubstring(body []byte) bool {
	if len(body) < 3 {
		return false
	}
	return bytes.Contains(body[3:], []byte("syscall"))
}

// Pop removes and returns the oldest stored packet. ok is false if the
// queue is empty.
func (q *Queue) Pop() (pkt wire.Packet, ok bool) {
	if len(q.pending) == 0 {
		return wire.Packet{}, false
	}
	pkt = q.pending[0]
	q.pending = q.pending[1:]
	return pkt, true
}

// Len reports the number of packets currently queued.
func (q *Queue) Len() int {
	return len(q.pending)
}
