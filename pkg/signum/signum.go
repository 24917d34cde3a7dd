// Package signum builds the per-personality table translating RSP signal
// numbers to target-OS signal numbers, per spec.md §4.5.
package signum

// RSP signal number constants, from the standard GDB target-signal
// numbering (independent of any particular OS's signal numbers — that's
// the entire reason a translation table is needed).
const (
	GDBSignal0           int32 = 0
	GDBSignalTrap        int32 = 5
	GDBSignalRealtime33  int32 = 45
	GDBSignalRealtime63  int32 = 75
	GDBSignalRealtime32  int32 = 77
	GDBSignalRealtime64  int32 = 78
	GDBSignalRealtime127 int32 = 141
	GDBSignalLast        int32 = 152
)

// rspNames is the static RSP signal name table referenced by step 5 of the
// translation algorithm. Entries beyond the classic POSIX range, and gaps
// within it, are "" (no name, translation always yields -1).
var rspNames = buildRSPNames()

func buildRSPNames() []string {
	names := make([]string, GDBSignalLast)
	table := []struct {
		n    int32
		name string
	}{
		{1, "SIGHUP"}, {2, "SIGINT"}, {3, "SIGQUIT"}, {4, "SIGILL"},
		{5, "SIGTRAP"}, {6, "SIGABRT"}, {7, "SIGEMT"}, {8, "SIGFPE"},
		{9, "SIGKILL"}, {10, "SIGBUS"}, {11, "SIGSEGV"}, {12, "SIGSYS"},
		{13, "SIGPIPE"}, {14, "SIGALRM"}, {15, "SIGTERM"}, {16, "SIGURG"},
		{17, "SIGSTOP"}, {18, "SIGTSTP"}, {19, "SIGCONT"}, {20, "SIGCHLD"},
		{21, "SIGTTIN"}, {22, "SIGTTOU"}, {23, "SIGIO"}, {24, "SIGXCPU"},
		{25, "SIGXFSZ"}, {26, "SIGVTALRM"}, {27, "SIGPROF"}, {28, "SIGWINCH"},
		{29, "SIGLOST"}, {30, "SIGUSR1"}, {31, "SIGUSR2"}, {32, "SIGPWR"},
		{33, "SIGPOLL"},
	}
	for _, e := range table {
		names[e.n] = e.name
	}
	return names
}

// Name returns the RSP name for signal g, or "" if g has none.
func Name(g int32) string {
	if g < 0 || g >= int32(len(rspNames)) {
		return ""
	}
	return rspNames[g]
}

// SigNamer and NSignaler are the two host-tracer contracts the build
// algorithm needs; pkg/tracer.Tracer satisfies both.
type SigNamer interface {
	SigName(personality int32, signal int32) string
}
type NSignaler interface {
	NSignals(personality int32) int32
}

// Table is the immutable [personality][rspSignal] -> targetSignal map.
// A missing mapping is represented as -1.
type Table map[int32][]int32

// Translate returns the target signal number for rspSignal under
// personality, or -1 if personality or rspSignal is out of range.
func (t Table) Translate(personality int32, rspSignal int32) int32 {
	row, ok := t[personality]
	if !ok || rspSignal < 0 || rspSignal >= int32(len(row)) {
		return -1
	}
	return row[rspSignal]
}

// Build computes the table for every personality in personalities,
// following spec.md §4.5's seven-step algorithm.
func Build(personalities []int32, host interface {
	SigNamer
	NSignaler
}) Table {
	t := make(Table, len(personalities))
	for _, p := range personalities {
		t[p] = buildRow(p, host)
	}
	return t
}

func buildRow(personality int32, host interface {
	SigNamer
	NSignaler
}) []int32 {
	row := make([]int32, GDBSignalLast)
	nsig := host.NSignals(personality)
	for g := int32(0); g < GDBSignalLast; g++ {
		row[g] = translateOne(g, personality, nsig, host)
	}
	return row
}

func translateOne(g, personality, nsig int32, host SigNamer) int32 {
	switch {
	case g == GDBSignal0:
		return 0
	case g == GDBSignalRealtime32:
		return 32
	case g >= GDBSignalRealtime33 && g <= GDBSignalRealtime63:
		return g - GDBSignalRealtime33 + 33
	case g >= GDBSignalRealtime64 && g <= GDBSignalRealtime127:
		return g - GDBSignalRealtime64 + 64
	}

	name := Name(g)
	if name == "" {
		return -1
	}
	if g < nsig && name == host.SigName(personality, g) {
		return g
	}
	for target := int32(1); target <= nsig; target++ {
		if target == g {
			continue
		}
		if name == host.SigName(personality, target) {
			return target
		}
	}
	return -1
}
