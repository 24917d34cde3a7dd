package wire

import "fmt"

// Packet is a decoded RSP body: the payload bytes after framing has been
// stripped, plus whether it arrived as a '%Stop:' asynchronous notification
// rather than a regular '$...' reply.
type Packet struct {
	Body         []byte
	Notification bool
}

// Checksum computes the RSP mod-256 checksum of payload.
func Checksum(payload []byte) byte {
	var sum byte
	for _, b := range payload {
		sum += b
	}
	return sum
}

// ThreadID is an RSP thread identifier, either bare ("TID", PID assumed
// equal to TID) or multiprocess ("pPID.TID"). TID == -1 means "all threads
// of PID".
type ThreadID struct {
	PID          int32
	TID          int32
	Multiprocess bool
}

// String renders t in multiprocess form if t.Multiprocess is set, else the
// bare TID form.
func (t ThreadID) String() string {
	if t.Multiprocess {
		if t.TID == -1 {
			return fmt.Sprintf("p%x.-1", t.PID)
		}
		return fmt.Sprintf("p%x.%x", t.PID, t.TID)
	}
	return fmt.Sprintf("%x", t.TID)
}

// ParseThreadID parses the three accepted forms: "pPID.TID", "pPID" (TID
// defaults to -1, meaning all threads), or a bare "TID" (PID assumed equal
// to TID).
func ParseThreadID(s []byte) (ThreadID, error) {
	if len(s) == 0 {
		return ThreadID{}, fmt.Errorf("wire: empty thread id")
	}
	if s[0] != 'p' {
		v, n := DecodeSignedStr(s)
		if n != len(s) {
			return ThreadID{}, fmt.Errorf("wire: trailing garbage in thread id %q", s)
		}
		tid := int32(v)
		return ThreadID{PID: tid, TID: tid}, nil
	}
	rest := s[1:]
	pid, n := DecodeSignedStr(rest)
	if n == 0 {
		return ThreadID{}, fmt.Errorf("wire: malformed multiprocess thread id %q", s)
	}
	rest = rest[n:]
	if len(rest) == 0 {
		return ThreadID{PID: int32(pid), TID: -1, Multiprocess: true}, nil
	}
	if rest[0] != '.' {
		return ThreadID{}, fmt.Errorf("wire: malformed multiprocess thread id %q", s)
	}
	tid, n2 := DecodeSignedStr(rest[1:])
	if n2 != len(rest)-1 {
		return ThreadID{}, fmt.Errorf("wire: trailing garbage in thread id %q", s)
	}
	return ThreadID{PID: int32(pid), TID: int32(tid), Multiprocess: true}, nil
}
