package session

import (
	"github.com/simeonmiteff/gdbremote/pkg/signum"
	"github.com/simeonmiteff/gdbremote/pkg/tracer"
)

// BuildSignalMap computes the signal translation table for every
// personality tcr supports. The design notes call for doing this with the
// process-wide personality selector saved and restored around the
// computation, even though signum.Build itself takes each personality as
// an explicit parameter and never consults the selector — this wrapper
// exists only to honor that save/restore contract for callers (host
// tracers) that key other global state off CurrentPersonality while the
// table is being built.
func BuildSignalMap(tcr tracer.Tracer) signum.Table {
	saved := tcr.CurrentPersonality()
	defer tcr.SetPersonality(saved)

	personalities := tcr.SupportedPersonalities()
	for _, p := range personalities {
		tcr.SetPersonality(p)
	}
	tcr.SetPersonality(saved)

	return signum.Build(personalities, tcr)
}
