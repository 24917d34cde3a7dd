package session

import (
	"bytes"
	"fmt"

	"github.com/simeonmiteff/gdbremote/pkg/transport"
)

// Handshake wraps the already-open tr in a new Session and performs the exact
// four-step capability negotiation from spec.md §4.4's table. Non-stop
// activation happens lazily in StartupAttach, not here.
func Handshake(tr transport.Transport) (*Session, error) {
	s := New(tr)

	if err := s.negotiateNoAck(); err != nil {
		return nil, err
	}
	if err := s.negotiateMultiprocess(); err != nil {
		return nil, err
	}
	if err := s.negotiateExtended(); err != nil {
		return nil, err
	}
	if err := s.negotiateVCont(); err != nil {
		return nil, err
	}
	return s, nil
}

// Open is a convenience wrapping transport.Open + Handshake.
func Open(endpoint string) (*Session, error) {
	tr, err := transport.Open(endpoint)
	if err != nil {
		return nil, err
	}
	s, err := Handshake(tr)
	if err != nil {
		tr.Close()
		return nil, err
	}
	return s, nil
}

// Step 1: QStartNoAckMode. A non-OK reply is a degraded capability: ack
// stays on and execution continues, per spec.md §7 kind 3.
func (s *Session) negotiateNoAck() error {
	if err := s.Send("QStartNoAckMode"); err != nil {
		return err
	}
	pkt, err := s.Recv(false)
	if err != nil {
		return fmt.Errorf("session: QStartNoAckMode: %w", err)
	}
	if bytes.Equal(pkt.Body, []byte("OK")) {
		s.Ack = false
		return nil
	}
	s.Log.Warn("stub did not honor QStartNoAckMode; continuing with acks enabled")
	return nil
}

// Step 2: qSupported:multiprocess+.
func (s *Session) negotiateMultiprocess() error {
	if err := s.Send("qSupported:multiprocess+"); err != nil {
		return err
	}
	pkt, err := s.Recv(false)
	if err != nil {
		return fmt.Errorf("session: qSupported: %w", err)
	}
	s.Multiprocess = bytes.Contains(pkt.Body, []byte("multiprocess+"))
	if !s.Multiprocess {
		s.Log.Warn("stub does not advertise multiprocess+; falling back to single-process tracking")
	}
	return nil
}

// Step 3: '!' extended mode. vRun requires this; its absence is only fatal
// when startup actually attempts vRun (checked there), not here.
func (s *Session) negotiateExtended() error {
	if err := s.Send("!"); err != nil {
		return err
	}
	pkt, err := s.Recv(false)
	if err != nil {
		return fmt.Errorf("session: extended mode: %w", err)
	}
	s.Extended = bytes.Equal(pkt.Body, []byte("OK"))
	if !s.Extended {
		s.Log.Warn("stub rejected extended mode ('!'); vRun/vAttach startup will be unavailable")
	}
	return nil
}

// Step 4: vCont?.
func (s *Session) negotiateVCont() error {
	if err := s.Send("vCont?"); err != nil {
		return err
	}
	pkt, err := s.Recv(false)
	if err != nil {
		return fmt.Errorf("session: vCont?: %w", err)
	}
	s.VCont = bytes.HasPrefix(pkt.Body, []byte("vCont"))
	if !s.VCont {
		s.Log.Warn("stub does not support vCont; falling back to single-thread 'c'/'C' continuation")
	}
	return nil
}

// CatchSyscalls issues QCatchSyscalls:1, the per-tracee call spec.md §4.4
// requires after each new thread is registered (it is thread-current in
// the stub at that point). A refusal is a degraded capability: subsequent
// syscall-entry/return events simply won't arrive for that thread.
func (s *Session) CatchSyscalls() error {
	if err := s.Send("QCatchSyscalls:1"); err != nil {
		return err
	}
	pkt, err := s.Recv(false)
	if err != nil {
		return fmt.Errorf("session: QCatchSyscalls:1: %w", err)
	}
	if !bytes.Equal(pkt.Body, []byte("OK")) {
		s.Log.Warn("stub rejected QCatchSyscalls:1 for current thread")
	}
	return nil
}
