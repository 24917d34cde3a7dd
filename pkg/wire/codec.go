package wire

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
)

// Framer is the single full-duplex RSP framing endpoint for a session: it
// owns the one bufio.Reader that both ack bytes and packet bodies are read
// from, since a session has exactly one outstanding request at a time
// (spec invariant) and acks/bodies from the same stream must be read in
// strict order.
//
// Outbound framing never escapes or run-length-encodes the payload: the
// stub is not required to accept either on packets it receives. Inbound
// framing accepts both.
type Framer struct {
	rw io.ReadWriter
	r  *bufio.Reader

	// AckEnabled reports whether the session is still in ack mode. Checked
	// fresh on every Send/Recv since QStartNoAckMode flips it mid-session.
	AckEnabled func() bool

	// NotifyPush receives any packet whose body begins with "T05syscall"
	// (framed as a '%Stop:' notification or as a '$' reply) that Recv had
	// to defer because the caller wanted a synchronous reply. Other
	// notifications are returned to the caller. Left nil where the caller
	// never sees these (plain all-stop).
	NotifyPush func(Packet)

	// OnChecksumRetry, if set, is called once per inbound packet dropped
	// for a checksum mismatch, for the session's retry metric.
	OnChecksumRetry func()
}

// NewFramer builds a Framer over rw. ackEnabled is re-evaluated on every
// Send and Recv.
func NewFramer(rw io.ReadWriter, ackEnabled func() bool) *Framer {
	return &Framer{rw: rw, r: bufio.NewReader(rw), AckEnabled: ackEnabled}
}

// Send frames payload as "$<payload>#<2 hex checksum>", writes it, and (if
// ack mode is enabled) reads and retries on the single-byte ack until it
// sees '+'.
func (f *Framer) Send(payload []byte) error {
	buf := make([]byte, 0, len(payload)+4)
	buf = append(buf, '$')
	buf = append(buf, payload...)
	buf = append(buf, '#')
	buf = append(buf, EncodeByte(Checksum(payload))...)
	for {
		if _, err := f.rw.Write(buf); err != nil {
			return fmt.Errorf("wire: transport write: %w", err)
		}
		if f.AckEnabled != nil && !f.AckEnabled() {
			return nil
		}
		ack, err := f.r.ReadByte()
		if err != nil {
			return fmt.Errorf("wire: reading ack: %w", err)
		}
		switch ack {
		case '+':
			return nil
		case '-':
			continue // resend, no retry cap per spec
		default:
			return fmt.Errorf("wire: unexpected ack byte %q", ack)
		}
	}
}

// Recv reads the next packet. If wantStop is false and the body turns out
// to begin with "T05syscall" (the race where a non-stop notification
// arrives ahead of the reply to a pending command), the packet is handed
// to NotifyPush and Recv reads again, transparently to the caller.
func (f *Framer) Recv(wantStop bool) (Packet, error) {
	for {
		pkt, err := f.recvOne()
		if err != nil {
			return Packet{}, err
		}
		if !wantStop && bytes.HasPrefix(pkt.Body, []byte("T05syscall")) {
			if f.NotifyPush != nil {
				f.NotifyPush(pkt)
			}
			continue
		}
		return pkt, nil
	}
}

func (f *Framer) recvOne() (Packet, error) {
	for {
		lead, err := f.r.ReadByte()
		if err != nil {
			return Packet{}, fmt.Errorf("wire: transport read: %w", err)
		}
		if lead != '$' && lead != '%' {
			continue
		}
		body, notification, ok, err := f.readBody(lead)
		if err != nil {
			return Packet{}, err
		}
		ackOn := f.AckEnabled == nil || f.AckEnabled()
		if ackOn {
			ackByte := byte('+')
			if !ok {
				ackByte = '-'
			}
			if _, werr := f.rw.Write([]byte{ackByte}); werr != nil {
				return Packet{}, fmt.Errorf("wire: writing ack: %w", werr)
			}
		}
		if !ok {
			if f.OnChecksumRetry != nil {
				f.OnChecksumRetry()
			}
			continue // nacked (or ack disabled): read again per spec's uncapped retry
		}
		return Packet{Body: body, Notification: notification}, nil
	}
}

// readBody consumes one packet body (the bytes between the leading '$'/'%'
// and the trailing '#cc'), applying escape and RLE expansion, and reports
// whether the computed checksum matched the transmitted one.
func (f *Framer) readBody(lead byte) (body []byte, notification bool, checksumOK bool, err error) {
restart:
	var buf bytes.Buffer
	var sum byte
	notification = lead == '%'
	if notification {
		var tag [5]byte
		if _, err := io.ReadFull(f.r, tag[:]); err != nil {
			return nil, false, false, fmt.Errorf("wire: reading notification tag: %w", err)
		}
		if string(tag[:]) != "Stop:" {
			return nil, false, false, fmt.Errorf("wire: unknown async packet prefix %q", tag[:])
		}
		sum += Checksum(tag[:])
	}
	for {
		c, err := f.r.ReadByte()
		if err != nil {
			return nil, false, false, fmt.Errorf("wire: transport read: %w", err)
		}
		switch c {
		case '$':
			lead = c
			goto restart
		case '#':
			var cs [2]byte
			if _, err := io.ReadFull(f.r, cs[:]); err != nil {
				return nil, false, false, fmt.Errorf("wire: reading checksum: %w", err)
			}
			received, err := DecodeByte(cs[0], cs[1])
			if err != nil {
				return nil, false, false, err
			}
			return buf.Bytes(), notification, received == sum, nil
		case '}':
			lit, err := f.r.ReadByte()
			if err != nil {
				return nil, false, false, fmt.Errorf("wire: transport read: %w", err)
			}
			sum += c
			sum += lit
			buf.WriteByte(lit ^ 0x20)
		case '*':
			c2, err := f.r.ReadByte()
			if err != nil {
				return nil, false, false, fmt.Errorf("wire: transport read: %w", err)
			}
			if c2 < 29 || c2 > 126 || c2 == '$' || c2 == '#' {
				// Not a valid run length: '*' is literal, c2 unread so the
				// main loop sees it fresh.
				sum += c
				buf.WriteByte(c)
				if err := f.r.UnreadByte(); err != nil {
					return nil, false, false, err
				}
				continue
			}
			if buf.Len() == 0 {
				return nil, false, false, fmt.Errorf("wire: RLE with no preceding byte")
			}
			sum += c
			sum += c2
			count := int(c2) - 29
			last := buf.Bytes()[buf.Len()-1]
			for i := 0; i < count; i++ {
				buf.WriteByte(last)
			}
		default:
			sum += c
			buf.WriteByte(c)
		}
	}
}
