package transport

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// pathTransport wraps a file opened O_RDWR: a serial device or a FIFO.
type pathTransport struct {
	*os.File
}

// OpenPath opens path O_RDWR. If path names a character device (a serial
// port, as opposed to a FIFO), it is additionally switched into raw mode —
// no line editing, no signal characters, 8-bit clean — following the same
// termios recipe goserial's Port.MakeRaw uses, since a cooked tty would
// mangle RSP's raw framing bytes.
func OpenPath(path string) (Transport, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("transport: open %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("transport: stat %s: %w", path, err)
	}
	if info.Mode()&os.ModeCharDevice != 0 {
		if err := makeRaw(int(f.Fd())); err != nil {
			f.Close()
			return nil, fmt.Errorf("transport: configuring raw mode on %s: %w", path, err)
		}
	}
	t := &pathTransport{File: f}
	if err := primeLineDiscipline(t); err != nil {
		f.Close()
		return nil, fmt.Errorf("transport: priming line discipline: %w", err)
	}
	return t, nil
}

// makeRaw disables cooked-mode line discipline on fd: no signal chars, no
// canonical editing, no software flow control, 8-bit clean, one byte at a
// time with no inter-byte timeout.
func makeRaw(fd int) error {
	t, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return err
	}
	t.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP |
		unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON
	t.Oflag &^= unix.OPOST
	t.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
	t.Cflag &^= unix.CSIZE | unix.PARENB
	t.Cflag |= unix.CS8
	t.Cc[unix.VMIN] = 1
	t.Cc[unix.VTIME] = 0
	return unix.IoctlSetTermios(fd, unix.TCSETS, t)
}
