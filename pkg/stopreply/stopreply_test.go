package stopreply

import (
	"testing"

	"gotest.tools/v3/assert"
)

func TestParseError(t *testing.T) {
	r, err := Parse([]byte("E01"))
	assert.NilError(t, err)
	assert.Equal(t, r.Kind, KindError)
	assert.Equal(t, r.Code, int32(1))
}

func TestParseTrapWithThread(t *testing.T) {
	r, err := Parse([]byte("T05thread:p1234.1234;"))
	assert.NilError(t, err)
	assert.Equal(t, r.Kind, KindTrap)
	assert.Equal(t, r.PID, int32(0x1234))
	assert.Equal(t, r.TID, int32(0x1234))
}

func TestParseSignalNonTrap(t *testing.T) {
	r, err := Parse([]byte("T0bthread:p1234.1235;"))
	assert.NilError(t, err)
	assert.Equal(t, r.Kind, KindSignal)
	assert.Equal(t, r.Code, int32(0x0b))
}

func TestParseSyscallEntry(t *testing.T) {
	r, err := Parse([]byte("T05syscall_entry:3b;thread:p1234.1234;"))
	assert.NilError(t, err)
	assert.Equal(t, r.Kind, KindSyscallEntry)
	assert.Equal(t, r.Code, int32(0x3b))
	assert.Equal(t, r.TID, int32(0x1234))
}

func TestParseSyscallReturn(t *testing.T) {
	r, err := Parse([]byte("T05syscall_return:3b;thread:p1234.1234;"))
	assert.NilError(t, err)
	assert.Equal(t, r.Kind, KindSyscallReturn)
	assert.Equal(t, r.Code, int32(0x3b))
}

func TestSyscallSubFieldIgnoredWhenNotTrap(t *testing.T) {
	// code 0x0b is a real signal, not a provisional trap: a syscall_entry
	// sub-field here must not promote the kind.
	r, err := Parse([]byte("T0bsyscall_entry:3b;"))
	assert.NilError(t, err)
	assert.Equal(t, r.Kind, KindSignal)
}

func TestParseExited(t *testing.T) {
	r, err := Parse([]byte("W00;process:1234"))
	assert.NilError(t, err)
	assert.Equal(t, r.Kind, KindExited)
	assert.Equal(t, r.Code, int32(0))
	assert.Equal(t, r.PID, int32(0x1234))
}

func TestParseExitedWithoutProcess(t *testing.T) {
	r, err := Parse([]byte("W2a"))
	assert.NilError(t, err)
	assert.Equal(t, r.Kind, KindExited)
	assert.Equal(t, r.Code, int32(0x2a))
	assert.Equal(t, r.PID, int32(-1))
}

func TestParseTerminated(t *testing.T) {
	r, err := Parse([]byte("X0b;process:1234"))
	assert.NilError(t, err)
	assert.Equal(t, r.Kind, KindTerminated)
	assert.Equal(t, r.Code, int32(0x0b))
	assert.Equal(t, r.PID, int32(0x1234))
}

func TestParseUnknown(t *testing.T) {
	r, err := Parse([]byte("Q"))
	assert.NilError(t, err)
	assert.Equal(t, r.Kind, KindUnknown)
}

func TestParseEmptyIsError(t *testing.T) {
	_, err := Parse(nil)
	assert.ErrorContains(t, err, "empty")
}
