package signum

import (
	"testing"

	"gotest.tools/v3/assert"
)

// fakeHost is a minimal SigNamer+NSignaler backed by a single target
// signal-name table shared across all personalities, standing in for a
// real tracer.Tracer during unit tests.
type fakeHost struct {
	names   map[int32]string
	nsig    int32
	diverge map[int32]int32 // personality -> different nsig, if set
}

func (h fakeHost) SigName(personality, signal int32) string { return h.names[signal] }
func (h fakeHost) NSignals(personality int32) int32 {
	if n, ok := h.diverge[personality]; ok {
		return n
	}
	return h.nsig
}

func straightHost() fakeHost {
	names := make(map[int32]string)
	for g, n := range rspNames {
		if n != "" {
			names[int32(g)] = n
		}
	}
	return fakeHost{names: names, nsig: 33}
}

func TestSignalZeroAlwaysMapsToZero(t *testing.T) {
	tbl := Build([]int32{0}, straightHost())
	assert.Equal(t, tbl.Translate(0, GDBSignal0), int32(0))
}

func TestRealtimeSlotsAreContiguous(t *testing.T) {
	tbl := Build([]int32{0}, straightHost())
	assert.Equal(t, tbl.Translate(0, GDBSignalRealtime32), int32(32))
	assert.Equal(t, tbl.Translate(0, GDBSignalRealtime33), int32(33))
	assert.Equal(t, tbl.Translate(0, GDBSignalRealtime63), int32(63))
	assert.Equal(t, tbl.Translate(0, GDBSignalRealtime64), int32(64))
	assert.Equal(t, tbl.Translate(0, GDBSignalRealtime127), int32(127))
}

func TestDirectIndexWhenNamesAlign(t *testing.T) {
	tbl := Build([]int32{0}, straightHost())
	// SIGTRAP is at g=5 in both the RSP table and our fake host: should map
	// straight through without needing the linear scan.
	assert.Equal(t, tbl.Translate(0, 5), int32(5))
}

func TestLinearScanWhenNamesDiverge(t *testing.T) {
	// Host numbers SIGINT as target 9 instead of 2; the table must find it
	// by name, not position.
	host := straightHost()
	host.names[2] = ""
	host.names[9] = "SIGINT"
	tbl := Build([]int32{0}, host)
	assert.Equal(t, tbl.Translate(0, 2), int32(9))
}

func TestNoMatchReturnsMinusOne(t *testing.T) {
	host := straightHost()
	delete(host.names, 6) // SIGABRT has no target equivalent at all
	tbl := Build([]int32{0}, host)
	assert.Equal(t, tbl.Translate(0, 6), int32(-1))
}

func TestUnnamedRSPSignalReturnsMinusOne(t *testing.T) {
	tbl := Build([]int32{0}, straightHost())
	assert.Equal(t, tbl.Translate(0, 34), int32(-1)) // gap in the RSP table
}

func TestOutOfRangeTranslateReturnsMinusOne(t *testing.T) {
	tbl := Build([]int32{0}, straightHost())
	assert.Equal(t, tbl.Translate(1, 5), int32(-1))     // unbuilt personality
	assert.Equal(t, tbl.Translate(0, 99999), int32(-1)) // out of range
}
