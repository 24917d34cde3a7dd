package session

import (
	"github.com/docker/docker/pkg/parsers/kernel"
	"github.com/sirupsen/logrus"
)

// logHostKernel records the host kernel version in the session's first log
// line. It is purely diagnostic: RSP capability negotiation is entirely
// stub-driven (§4.4), never gated on the host kernel.
func logHostKernel(log *logrus.Entry) {
	v, err := kernel.GetKernelVersion()
	if err != nil {
		log.WithError(err).Debug("session: could not determine host kernel version")
		return
	}
	log.WithField("host_kernel", v.String()).Debug("session: starting")
}
