// Package stopreply converts a raw RSP stop packet body into a typed
// record.
package stopreply

import (
	"bytes"
	"fmt"

	"github.com/simeonmiteff/gdbremote/pkg/wire"
)

// Kind tags the variant of a Reply.
type Kind int

const (
	KindError Kind = iota
	KindTrap
	KindSignal
	KindSyscallEntry
	KindSyscallReturn
	KindExited
	KindTerminated
	KindUnknown
)

// String renders k as the lower-case label pkg/session's metrics collector
// uses for its per-kind counter.
func (k Kind) String() string {
	switch k {
	case KindError:
		return "error"
	case KindTrap:
		return "trap"
	case KindSignal:
		return "signal"
	case KindSyscallEntry:
		return "syscall-entry"
	case KindSyscallReturn:
		return "syscall-return"
	case KindExited:
		return "exited"
	case KindTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// SignalTrap and SignalZero are the two RSP signal codes that provisionally
// mean "trap" rather than "signal" on an S/T reply, per spec.md §4.6.
const (
	SignalTrap = 5
	SignalZero = 0
)

// Reply is the tagged stop-reply record. PID/TID default to -1
// ("unrecoverable") when the body carries no thread information.
type Reply struct {
	Kind Kind

	// Code carries: the E error code, the S/T signal number, or the W/X
	// exit status / termination signal, depending on Kind.
	Code int32

	PID int32
	TID int32
}

// Parse dispatches on the first byte of body. body is caller-owned; Parse
// never retains a reference to it.
func Parse(body []byte) (Reply, error) {
	if len(body) == 0 {
		return Reply{}, fmt.Errorf("stopreply: empty stop packet")
	}
	r := Reply{PID: -1, TID: -1}
	switch body[0] {
	case 'E':
		code, err := wire.DecodeN(body[1:], 2)
		if err != nil {
			return Reply{}, fmt.Errorf("stopreply: malformed E packet: %w", err)
		}
		r.Kind = KindError
		r.Code = int32(code)
		return r, nil
	case 'S', 'T':
		return parseSignal(body)
	case 'W':
		return parseExitLike(body[1:], KindExited)
	case 'X':
		return parseExitLike(body[1:], KindTerminated)
	default:
		r.Kind = KindUnknown
		return r, nil
	}
}

func parseSignal(body []byte) (Reply, error) {
	code, err := wire.DecodeN(body[1:], 2)
	if err != nil {
		return Reply{}, fmt.Errorf("stopreply: malformed %c packet: %w", body[0], err)
	}
	r := Reply{PID: -1, TID: -1, Code: int32(code)}
	if code == SignalTrap || code == SignalZero {
		r.Kind = KindTrap
	} else {
		r.Kind = KindSignal
	}

	rest := body[3:]
	for _, field := range bytes.Split(bytes.TrimSuffix(rest, []byte(";")), []byte(";")) {
		if len(field) == 0 {
			continue
		}
		name, value, ok := cutColon(field)
		if !ok {
			continue
		}
		switch string(name) {
		case "thread":
			tid, err := wire.ParseThreadID(value)
			if err != nil {
				return Reply{}, fmt.Errorf("stopreply: %w", err)
			}
			r.PID = tid.PID
			r.TID = tid.TID
		case "syscall_entry":
			if r.Kind == KindTrap {
				scno, _ := wire.DecodeStr(value)
				r.Kind = KindSyscallEntry
				r.Code = int32(scno)
			}
		case "syscall_return":
			if r.Kind == KindTrap {
				scno, _ := wire.DecodeStr(value)
				r.Kind = KindSyscallReturn
				r.Code = int32(scno)
			}
		}
	}
	return r, nil
}

func parseExitLike(rest []byte, kind Kind) (Reply, error) {
	v, n := wire.DecodeStr(rest)
	r := Reply{Kind: kind, Code: int32(v), PID: -1, TID: -1}
	rest = rest[n:]
	for _, field := range bytes.Split(bytes.TrimSuffix(rest, []byte(";")), []byte(";")) {
		if len(field) == 0 {
			continue
		}
		name, value, ok := cutColon(field)
		if !ok {
			continue
		}
		if string(name) == "process" {
			pid, _ := wire.DecodeStr(value)
			r.PID = int32(pid)
		}
	}
	return r, nil
}

func cutColon(field []byte) (name, value []byte, ok bool) {
	idx := bytes.IndexByte(field, ':')
	if idx < 0 {
		return nil, nil, false
	}
	return field[:idx], field[idx+1:], true
}
