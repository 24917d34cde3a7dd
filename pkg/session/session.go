// Package session performs the RSP capability handshake and owns the
// process-wide session state spec.md §3 describes: the negotiated
// capability flags, the framer, and the notification queue. Exactly one
// Session exists per connection to a stub, created at startup and torn
// down at cleanup, per the design notes' "single Session value" guidance.
package session

import (
	"fmt"

	"github.com/rs/xid"
	"github.com/sirupsen/logrus"

	"github.com/simeonmiteff/gdbremote/pkg/notify"
	"github.com/simeonmiteff/gdbremote/pkg/transport"
	"github.com/simeonmiteff/gdbremote/pkg/wire"
)

// Session holds the fields spec.md §3 assigns to it: the transport handle
// and the four negotiated capability booleans, plus the framer and
// notification queue those booleans gate the behavior of.
type Session struct {
	ID xid.ID

	Transport transport.Transport
	Framer    *wire.Framer
	Notify    *notify.Queue
	Metrics   *Metrics

	Ack          bool
	NonStop      bool
	Multiprocess bool
	Extended     bool
	VCont        bool

	Log *logrus.Entry
}

// New wraps an already-open transport in a Session, wiring the framer's
// ack-mode check and notification deferral to the session's own fields,
// and logs the host kernel version once for diagnostic context.
func New(tr transport.Transport) *Session {
	id := xid.New()
	s := &Session{
		ID:        id,
		Transport: tr,
		Notify:    notify.New(),
		Metrics:   NewMetrics(),
		Ack:       true,
	}
	s.Framer = wire.NewFramer(tr, func() bool { return s.Ack })
	s.Framer.NotifyPush = func(p wire.Packet) {
		s.Notify.Push(p)
		s.Metrics.NotificationsEnqueued.Inc()
	}
	s.Framer.OnChecksumRetry = func() { s.Metrics.ChecksumRetries.Inc() }
	s.Log = logrus.WithFields(logrus.Fields{"session": id.String()})
	logHostKernel(s.Log)
	return s
}

// Close releases the transport. Safe to call once cleanup has begun on any
// exit path, including after a fatal error.
func (s *Session) Close() error {
	if s.Transport == nil {
		return nil
	}
	err := s.Transport.Close()
	s.Transport = nil
	return err
}

// Send wraps Framer.Send with the session's packet-level debug tracing and
// sent-packet metric; every outbound packet in the session/controller code
// goes through it.
func (s *Session) Send(payload string) error {
	if s.Log.Logger.IsLevelEnabled(logrus.DebugLevel) {
		s.Log.WithField("send", payload).Debug("rsp: sending packet")
	}
	s.Metrics.PacketsSent.Inc()
	if err := s.Framer.Send([]byte(payload)); err != nil {
		return fmt.Errorf("session: send %q: %w", payload, err)
	}
	return nil
}

// Recv is Framer.Recv with the session's debug tracing and
// received-packet metric.
func (s *Session) Recv(wantStop bool) (wire.Packet, error) {
	pkt, err := s.Framer.Recv(wantStop)
	if err != nil {
		return wire.Packet{}, err
	}
	s.Metrics.PacketsReceived.Inc()
	if s.Log.Logger.IsLevelEnabled(logrus.DebugLevel) {
		s.Log.WithField("recv", string(pkt.Body)).Debug("rsp: received packet")
	}
	return pkt, nil
}
