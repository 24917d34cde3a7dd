package session

import (
	"bytes"
	"testing"

	"gotest.tools/v3/assert"

	"github.com/simeonmiteff/gdbremote/pkg/wire"
)

// fakeTransport is an in-memory transport.Transport: reads come from in,
// writes accumulate in out. Tests stage a full scripted conversation in in
// ahead of time, since the Session/Framer protocol is strictly
// request-then-reply with no concurrent I/O.
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

// ack is the '+' the stub sends for each packet it accepts while ack mode
// is still on; Framer.Send consumes it before the staged reply is read.
const ack = "+"

func TestHandshakeFullCapability(t *testing.T) {
	staged := ack + stagedReply("OK") +
		stagedReply("multiprocess+;qXfer:features:read+") +
		stagedReply("OK") +
		stagedReply("vCont;c;C;s;S")
	tr := newFakeTransport(staged)

	s, err := Handshake(tr)
	assert.NilError(t, err)
	assert.Equal(t, s.Ack, false)
	assert.Equal(t, s.Multiprocess, true)
	assert.Equal(t, s.Extended, true)
	assert.Equal(t, s.VCont, true)
}

func TestHandshakeDegradesWhenStubRefusesEverything(t *testing.T) {
	staged := ack + stagedReply("") + ack + stagedReply("") +
		ack + stagedReply("") + ack + stagedReply("")
	tr := newFakeTransport(staged)

	s, err := Handshake(tr)
	assert.NilError(t, err)
	assert.Equal(t, s.Ack, true)
	assert.Equal(t, s.Multiprocess, false)
	assert.Equal(t, s.Extended, false)
	assert.Equal(t, s.VCont, false)
}

func TestHandshakeSendsCapabilityPackets(t *testing.T) {
	staged := ack + stagedReply("OK") + stagedReply("") + stagedReply("OK") + stagedReply("")
	tr := newFakeTransport(staged)

	_, err := Handshake(tr)
	assert.NilError(t, err)
	assert.Assert(t, bytes.Contains(tr.out.Bytes(), []byte("QStartNoAckMode")))
	assert.Assert(t, bytes.Contains(tr.out.Bytes(), []byte("qSupported:multiprocess+")))
	assert.Assert(t, bytes.Contains(tr.out.Bytes(), []byte("vCont?")))
}

func TestCatchSyscallsOK(t *testing.T) {
	tr := newFakeTransport(stagedReply("OK"))
	s := New(tr)
	s.Ack = false
	assert.NilError(t, s.CatchSyscalls())
}
