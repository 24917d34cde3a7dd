package dataplane

import (
	"bytes"
	"fmt"

	"github.com/simeonmiteff/gdbremote/pkg/session"
	"github.com/simeonmiteff/gdbremote/pkg/wire"
)

// MaxXferChunk is the maxlen this package always requests per qXfer round,
// per §4.8 and the siginfo read's literal "0,0xfff" in §4.7 step 9.
const MaxXferChunk = 0xfff

// ReadXfer drives the qXfer:<obj>:read:<annex>:<offset>,<maxlen> loop,
// concatenating 'm' (more) chunks until an 'l' (last) chunk, and
// surfacing an 'E..' reply as an *Errno.
func ReadXfer(sess *session.Session, obj, annex string) ([]byte, error) {
	var out bytes.Buffer
	offset := 0

	for {
		payload := fmt.Sprintf("qXfer:%s:read:%s:%x,%x", obj, annex, offset, MaxXferChunk)
		if err := sess.Send(payload); err != nil {
			return nil, err
		}
		pkt, err := sess.Recv(false)
		if err != nil {
			return nil, err
		}
		if len(pkt.Body) == 0 {
			return nil, fmt.Errorf("dataplane: qXfer:%s: empty reply", obj)
		}
		kind, data := pkt.Body[0], pkt.Body[1:]
		switch kind {
		case 'E':
			var code int32
			if n, err := wire.DecodeN(data, 2); err == nil {
				code = int32(n)
			}
			return nil, &Errno{Op: "qXfer:" + obj, Code: code}
		case 'm':
			out.Write(data)
			offset += len(data)
		case 'l':
			out.Write(data)
			return out.Bytes(), nil
		default:
			return nil, fmt.Errorf("dataplane: qXfer:%s: unexpected reply kind %q", obj, kind)
		}
	}
}

// ReadSiginfo implements §4.7 step 9's qXfer:siginfo:read::0,0xfff call,
// returning nil (not an error) if the transfer fails or the result's
// length doesn't match the host siginfo_t size — the controller passes a
// nil siginfo through to print_stopped in that case rather than failing.
func ReadSiginfo(sess *session.Session, hostSiginfoSize int) []byte {
	data, err := ReadXfer(sess, "siginfo", "")
	if err != nil {
		sess.Log.WithError(err).Debug("dataplane: qXfer:siginfo:read failed")
		return nil
	}
	if len(data) != hostSiginfoSize {
		return nil
	}
	return data
}
