package controller

import (
	"bytes"

	"github.com/simeonmiteff/gdbremote/pkg/session"
	"github.com/simeonmiteff/gdbremote/pkg/tracer"
	"github.com/simeonmiteff/gdbremote/pkg/wire"
)

// fakeTransport is an in-memory transport.Transport identical in shape to
// pkg/session's test double: staged scripted replies in, accumulated
// writes out.
type fakeTransport struct {
	in  *bytes.Buffer
	out *bytes.Buffer
}

func newFakeTransport(staged string) *fakeTransport {
	return &fakeTransport{in: bytes.NewBufferString(staged), out: &bytes.Buffer{}}
}

func (f *fakeTransport) Read(p []byte) (int, error) { return f.in.Read(p) }
func (f *fakeTransport) Write(p []byte) (int, error) { return f.out.Write(p) }
func (f *fakeTransport) Close() error { return nil }

func stagedReply(body string) string {
	cs := wire.Checksum([]byte(body))
	return "$" + body + "#" + string(wire.EncodeByte(cs))
}

func stagedNotification(body string) string {
	full := "Stop:" + body
	cs := wire.Checksum([]byte(full))
	return "%" + full + "#" + string(wire.EncodeByte(cs))
}

// noAckSession builds a Session directly in no-ack/vcont/multiprocess/
// extended mode, bypassing Handshake so controller tests can script only
// the packets under test.
func noAckSession(staged string) (*session.Session, *fakeTransport) {
	tr := newFakeTransport(staged)
	s := session.New(tr)
	s.Ack = false
	s.Extended = true
	s.Multiprocess = true
	s.VCont = true
	return s, tr
}

// fakeTracer implements tracer.Tracer with an in-memory registry and call
// logs the tests assert against.
type fakeTracer struct {
	byPID map[int32]*tracer.Tracee

	traceSyscallCalls []int64
	exitedCalls       []int32
	signalledCalls    []int32
	stoppedCalls      []int32
	currentTCP        *tracer.Tracee
	exitingReturn     bool
}

func newFakeTracer() *fakeTracer {
	return &fakeTracer{byPID: make(map[int32]*tracer.Tracee)}
}

func (f *fakeTracer) AllocTCB(pid int32) *tracer.Tracee {
	t := &tracer.Tracee{PID: pid}
	f.byPID[pid] = t
	return t
}
func (f *fakeTracer) DropTCB(t *tracer.Tracee) { delete(f.byPID, t.PID) }
func (f *fakeTracer) Pid2TCB(pid int32) *tracer.Tracee { return f.byPID[pid] }
func (f *fakeTracer) NewOutF(t *tracer.Tracee) {}

func (f *fakeTracer) GetRegs(t *tracer.Tracee) error { return nil }
func (f *fakeTracer) GetScno(t *tracer.Tracee) (int64, error) { return t.Scno, nil }
func (f *fakeTracer) Exiting(t *tracer.Tracee) bool { return f.exitingReturn }
func (f *fakeTracer) TraceSyscall(t *tracer.Tracee) { f.traceSyscallCalls = append(f.traceSyscallCalls, t.Scno) }

func (f *fakeTracer) PrintStopped(t *tracer.Tracee, siginfo []byte, targetSignal int32) {
	f.stoppedCalls = append(f.stoppedCalls, targetSignal)
}
func (f *fakeTracer) PrintExited(t *tracer.Tracee, status int32) {
	f.exitedCalls = append(f.exitedCalls, status)
}
func (f *fakeTracer) PrintSignalled(t *tracer.Tracee, status int32) {
	f.signalledCalls = append(f.signalledCalls, status)
}

func (f *fakeTracer) SigName(personality int32, rspSignal int32) string {
	switch rspSignal {
	case 5:
		return "SIGTRAP"
	case 11:
		return "SIGSEGV"
	default:
		return ""
	}
}
func (f *fakeTracer) NSignals(personality int32) int32 { return 32 }
func (f *fakeTracer) CurrentPersonality() int32 { return 0 }
func (f *fakeTracer) SetPersonality(p int32) {}
func (f *fakeTracer) SupportedPersonalities() []int32 { return []int32{0} }
func (f *fakeTracer) CurrentTCP() *tracer.Tracee { return f.currentTCP }
func (f *fakeTracer) SetCurrentTCP(t *tracer.Tracee) { f.currentTCP = t }
func (f *fakeTracer) Debug() bool { return false }

var _ tracer.Tracer = (*fakeTracer)(nil)
