package transport

import (
	"fmt"
	"net"

	"github.com/higebu/netfd"
	"golang.org/x/sys/unix"
)

// tcpTransport wraps a dialed net.Conn.
type tcpTransport struct {
	net.Conn
}

// DialTCP connects to host:port over IPv4 TCP (spec.md's Non-goals exclude
// IPv6), disables Nagle's algorithm since RSP is a small-packet
// request/reply protocol, and primes the stub's line discipline.
func DialTCP(host, port string) (Transport, error) {
	conn, err := net.Dial("tcp4", net.JoinHostPort(host, port))
	if err != nil {
		return nil, fmt.Errorf("transport: dial %s:%s: %w", host, port, err)
	}
	if err := disableNagle(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("transport: configuring socket: %w", err)
	}
	t := &tcpTransport{Conn: conn}
	if err := primeLineDiscipline(t); err != nil {
		conn.Close()
		return nil, fmt.Errorf("transport: priming line discipline: %w", err)
	}
	return t, nil
}

func disableNagle(conn net.Conn) error {
	if _, ok := conn.(*net.TCPConn); !ok {
		return nil
	}
	fd := netfd.GetFdFromConn(conn)
	return unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_NODELAY, 1)
}
