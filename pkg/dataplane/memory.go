package dataplane

import (
	"bytes"
	"fmt"

	"github.com/simeonmiteff/gdbremote/pkg/session"
	"github.com/simeonmiteff/gdbremote/pkg/wire"
)

// MaxChunk is the largest single 'm' request this package ever emits,
// per §4.8.
const MaxChunk = 0x1000

// MemoryResult is the outcome of ReadMemory: the bytes actually read, and
// whether reading stopped early because checkNil found a NUL byte.
type MemoryResult struct {
	Data         []byte
	StoppedAtNUL bool
}

// ReadMemory reads length bytes starting at addr, chunked at MaxChunk, per
// §4.8's "Memory read". If checkNil is set, reading stops at the first NUL
// byte encountered (inclusive) and StoppedAtNUL is true. A data-plane
// error (an 'E..' reply) is returned as an *Errno error, per §7 kind 4 —
// the caller decides whether that is fatal.
func ReadMemory(sess *session.Session, addr uint64, length int, checkNil bool) (MemoryResult, error) {
	var out bytes.Buffer
	remaining := length
	cur := addr

	for remaining > 0 {
		chunkLen := remaining
		if chunkLen > MaxChunk {
			chunkLen = MaxChunk
		}

		payload := fmt.Sprintf("m%x,%x", cur, chunkLen)
		if err := sess.Send(payload); err != nil {
			return MemoryResult{}, err
		}
		pkt, err := sess.Recv(false)
		if err != nil {
			return MemoryResult{}, err
		}
		if len(pkt.Body) > 0 && pkt.Body[0] == 'E' {
			errno, _ := wire.DecodeN(pkt.Body[1:], 2)
			return MemoryResult{}, &Errno{Op: "m", Code: int32(errno)}
		}
		if len(pkt.Body) > 2*chunkLen {
			return MemoryResult{}, fmt.Errorf("dataplane: m: reply longer than requested chunk")
		}
		chunk, err := wire.DecodeBuf(pkt.Body)
		if err != nil {
			return MemoryResult{}, fmt.Errorf("dataplane: m: %w", err)
		}

		if checkNil {
			if idx := bytes.IndexByte(chunk, 0); idx >= 0 {
				out.Write(chunk[:idx+1])
				return MemoryResult{Data: out.Bytes(), StoppedAtNUL: true}, nil
			}
		}
		out.Write(chunk)
		if len(chunk) < chunkLen {
			break // stub returned short; nothing further to request
		}
		cur += uint64(chunkLen)
		remaining -= chunkLen
	}
	return MemoryResult{Data: out.Bytes()}, nil
}

// Errno is a data-plane error carrying the stub's reported errno, per §7
// kind 4 ("return a negative result and an errno to the caller").
type Errno struct {
	Op   string
	Code int32
}

func (e *Errno) Error() string {
	return fmt.Sprintf("dataplane: %s: stub errno %d", e.Op, e.Code)
}
