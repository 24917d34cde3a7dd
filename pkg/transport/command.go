package transport

import (
	"fmt"
	"os"
	"os/exec"
	"os/signal"

	"golang.org/x/sys/unix"
)

// commandTransport wraps the session's end of a socket pair whose other
// end is bound to a spawned /bin/sh -c child's stdin and stdout.
type commandTransport struct {
	*os.File
	cmd *exec.Cmd
}

// OpenCommand spawns "/bin/sh -c shellCmd" with its stdin/stdout bound to
// one end of a socket pair, the session keeping the other end. The session
// process also installs a SIGPIPE-ignore, since writing to a child that
// has exited would otherwise kill the tracer.
func OpenCommand(shellCmd string) (Transport, error) {
	signal.Ignore(unix.SIGPIPE)

	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, fmt.Errorf("transport: socketpair: %w", err)
	}
	ours := os.NewFile(uintptr(fds[0]), "gdbremote-session")
	theirs := os.NewFile(uintptr(fds[1]), "gdbremote-stub")
	defer theirs.Close()

	cmd := exec.Command("/bin/sh", "-c", shellCmd)
	cmd.Stdin = theirs
	cmd.Stdout = theirs
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		ours.Close()
		return nil, fmt.Errorf("transport: starting %q: %w", shellCmd, err)
	}

	t := &commandTransport{File: ours, cmd: cmd}
	if err := primeLineDiscipline(t); err != nil {
		t.Close()
		return nil, fmt.Errorf("transport: priming line discipline: %w", err)
	}
	return t, nil
}

// Close closes the session's end of the socket pair. The child is not
// waited on here: spec.md's teardown is driven by the RSP 'D' exchange,
// not process-level supervision.
func (t *commandTransport) Close() error {
	return t.File.Close()
}
