package dataplane

import (
	"bytes"
	"fmt"

	"github.com/simeonmiteff/gdbremote/pkg/session"
	"github.com/simeonmiteff/gdbremote/pkg/wire"
)

// ReadLink issues vFile:readlink:<hex-path> and returns the link target,
// truncated to at most bufSize-1 bytes so callers that NUL-terminate into
// a fixed buffer (as the source does) stay within bounds.
func ReadLink(sess *session.Session, path string, bufSize int) (string, error) {
	payload := "vFile:readlink:" + string(wire.EncodeBytes([]byte(path)))
	if err := sess.Send(payload); err != nil {
		return "", err
	}
	pkt, err := sess.Recv(false)
	if err != nil {
		return "", err
	}
	if len(pkt.Body) == 0 || pkt.Body[0] != 'F' {
		return "", fmt.Errorf("dataplane: vFile:readlink: malformed reply %q", pkt.Body)
	}

	rest := pkt.Body[1:]
	semi := bytes.IndexByte(rest, ';')
	header := rest
	var attachment []byte
	if semi >= 0 {
		header = rest[:semi]
		attachment = rest[semi+1:]
	}

	comma := bytes.IndexByte(header, ',')
	resultField := header
	if comma >= 0 {
		resultField = header[:comma]
	}
	result, n := wire.DecodeSignedStr(resultField)
	if n != len(resultField) {
		return "", fmt.Errorf("dataplane: vFile:readlink: malformed result %q", resultField)
	}
	if result < 0 {
		var errno int64
		if comma >= 0 {
			errno, _ = wire.DecodeSignedStr(header[comma+1:])
		}
		return "", &Errno{Op: "vFile:readlink", Code: int32(errno)}
	}
	if int64(len(attachment)) != result {
		return "", fmt.Errorf("dataplane: vFile:readlink: attachment length %d != result %d", len(attachment), result)
	}

	if bufSize > 0 && len(attachment) > bufSize-1 {
		attachment = attachment[:bufSize-1]
	}
	return string(attachment), nil
}
