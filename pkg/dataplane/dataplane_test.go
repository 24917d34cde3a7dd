package dataplane

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"gotest.tools/v3/assert"

	"github.com/simeonmiteff/gdbremote/pkg/session"
	"github.com/simeonmiteff/gdbremote/pkg/wire"
)

// fakeTransport is the same in-memory transport double the session and
// controller tests use: staged scripted replies in, accumulated writes out.
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

func noAckSession(staged string) (*session.Session, *fakeTransport) {
	tr := newFakeTransport(staged)
	s := session.New(tr)
	s.Ack = false
	return s, tr
}

func TestReadMemoryChunksLargeReads(t *testing.T) {
	staged := stagedReply(strings.Repeat("61", MaxChunk)) +
		stagedReply(strings.Repeat("62", 0x800))
	sess, tr := noAckSession(staged)

	res, err := ReadMemory(sess, 0x1000, 0x1800, false)
	assert.NilError(t, err)
	assert.Equal(t, len(res.Data), 0x1800)
	assert.Assert(t, !res.StoppedAtNUL)
	// Chunks cover [addr, addr+len) in ascending order with no gaps.
	assert.Assert(t, bytes.Contains(tr.out.Bytes(), []byte("$m1000,1000#")))
	assert.Assert(t, bytes.Contains(tr.out.Bytes(), []byte("$m2000,800#")))
}

func TestReadMemoryStopsAtNUL(t *testing.T) {
	sess, _ := noAckSession(stagedReply("616200636465"))

	res, err := ReadMemory(sess, 0x400, 6, true)
	assert.NilError(t, err)
	assert.Assert(t, res.StoppedAtNUL)
	assert.Assert(t, bytes.Equal(res.Data, []byte{'a', 'b', 0}))
}

func TestReadMemoryErrno(t *testing.T) {
	sess, _ := noAckSession(stagedReply("E0e"))

	_, err := ReadMemory(sess, 0x400, 16, false)
	var errno *Errno
	assert.Assert(t, errors.As(err, &errno))
	assert.Equal(t, errno.Code, int32(0x0e))
}

func TestReadMemoryRejectsOverlongReply(t *testing.T) {
	sess, _ := noAckSession(stagedReply(strings.Repeat("61", 32)))

	_, err := ReadMemory(sess, 0x400, 16, false)
	assert.ErrorContains(t, err, "longer than requested")
}

func TestReadRegisters(t *testing.T) {
	sess, tr := noAckSession(stagedReply("deadbeef"))

	regs, err := ReadRegisters(sess)
	assert.NilError(t, err)
	assert.Assert(t, bytes.Equal(regs, []byte{0xde, 0xad, 0xbe, 0xef}))
	assert.Assert(t, bytes.Contains(tr.out.Bytes(), []byte("$g#")))
}

func TestReadXferConcatenatesChunks(t *testing.T) {
	staged := stagedReply("mabc") + stagedReply("ldef")
	sess, tr := noAckSession(staged)

	data, err := ReadXfer(sess, "siginfo", "")
	assert.NilError(t, err)
	assert.Equal(t, string(data), "abcdef")
	assert.Assert(t, bytes.Contains(tr.out.Bytes(), []byte("qXfer:siginfo:read::0,fff")))
	assert.Assert(t, bytes.Contains(tr.out.Bytes(), []byte("qXfer:siginfo:read::3,fff")))
}

func TestReadXferErrno(t *testing.T) {
	sess, _ := noAckSession(stagedReply("E16"))

	_, err := ReadXfer(sess, "siginfo", "")
	var errno *Errno
	assert.Assert(t, errors.As(err, &errno))
	assert.Equal(t, errno.Code, int32(0x16))
}

func TestReadSiginfoNilOnSizeMismatch(t *testing.T) {
	sess, _ := noAckSession(stagedReply("l" + strings.Repeat("x", 64)))

	assert.Assert(t, ReadSiginfo(sess, 128) == nil)
}

func TestReadSiginfoPassesThroughOnSizeMatch(t *testing.T) {
	sess, _ := noAckSession(stagedReply("l" + strings.Repeat("x", 64)))

	si := ReadSiginfo(sess, 64)
	assert.Equal(t, len(si), 64)
}

func TestReadLink(t *testing.T) {
	sess, tr := noAckSession(stagedReply("F6;/bin/x"))

	target, err := ReadLink(sess, "/proc/self/exe", 4096)
	assert.NilError(t, err)
	assert.Equal(t, target, "/bin/x")
	assert.Assert(t, bytes.Contains(tr.out.Bytes(),
		[]byte("vFile:readlink:"+string(wire.EncodeBytes([]byte("/proc/self/exe"))))))
}

func TestReadLinkTruncatesToBuffer(t *testing.T) {
	sess, _ := noAckSession(stagedReply("F6;/bin/x"))

	target, err := ReadLink(sess, "/proc/self/exe", 4)
	assert.NilError(t, err)
	assert.Equal(t, target, "/bi")
}

func TestReadLinkErrno(t *testing.T) {
	sess, _ := noAckSession(stagedReply("F-1,2"))

	_, err := ReadLink(sess, "/nonexistent", 4096)
	var errno *Errno
	assert.Assert(t, errors.As(err, &errno))
	assert.Equal(t, errno.Code, int32(2))
}

func TestReadLinkRejectsShortAttachment(t *testing.T) {
	sess, _ := noAckSession(stagedReply("F6;/bin"))

	_, err := ReadLink(sess, "/proc/self/exe", 4096)
	assert.ErrorContains(t, err, "attachment length")
}

func TestEnumerateThreadsMultiRound(t *testing.T) {
	staged := stagedReply("m1234,1235") + stagedReply("m1236") + stagedReply("l")
	sess, tr := noAckSession(staged)

	tids, err := EnumerateThreads(sess)
	assert.NilError(t, err)
	assert.DeepEqual(t, tids, []int32{0x1234, 0x1235, 0x1236})
	assert.Assert(t, bytes.Contains(tr.out.Bytes(), []byte("qfThreadInfo")))
	assert.Assert(t, bytes.Contains(tr.out.Bytes(), []byte("qsThreadInfo")))
}
