// Command gdbremote is a runnable driver for the RSP client core: it opens
// a session against a stub, launches or attaches to a target, and runs the
// event loop to completion, logging every dispatched event through a demo
// tracer instead of a real syscall decoder. It exists to exercise
// pkg/session, pkg/controller and pkg/dataplane end to end; the actual
// syscall tracing engine is out of scope per spec.md §1.
package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/simeonmiteff/gdbremote/pkg/controller"
	"github.com/simeonmiteff/gdbremote/pkg/session"
)

func main() {
	endpoint := flag.String("endpoint", "", "stub endpoint: host:port, a filesystem path, or |shell-command")
	attach := flag.Int("attach", 0, "pid to attach to, instead of launching -run")
	run := flag.String("run", "", "space-separated argv to launch via vRun")
	metricsAddr := flag.String("metrics-addr", "", "if set, serve Prometheus /metrics on this address")
	debug := flag.Bool("debug", false, "log every RSP packet sent and received")
	flag.Parse()

	if *debug {
		logrus.SetLevel(logrus.DebugLevel)
	}

	if *endpoint == "" {
		fmt.Fprintln(os.Stderr, "gdbremote: -endpoint is required")
		os.Exit(2)
	}
	if *attach == 0 && *run == "" {
		fmt.Fprintln(os.Stderr, "gdbremote: one of -attach or -run is required")
		os.Exit(2)
	}

	sess, err := session.Open(*endpoint)
	if err != nil {
		logrus.WithError(err).Fatal("gdbremote: session open failed")
	}
	defer sess.Close()

	if *metricsAddr != "" {
		prometheus.MustRegister(sess.Metrics)
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		go func() {
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
				sess.Log.WithError(err).Warn("gdbremote: metrics server stopped")
			}
		}()
		sess.Log.WithField("addr", *metricsAddr).Info("gdbremote: serving metrics")
	}

	tcr := newDemoTracer(sess.Log, *debug)
	ctrl := controller.New(sess, tcr)

	var pid int32
	if *attach != 0 {
		tracees, err := ctrl.StartupAttach(int32(*attach))
		if err != nil {
			logrus.WithError(err).Fatal("gdbremote: attach failed")
		}
		pid = int32(*attach)
		sess.Log.WithField("threads", len(tracees)).Info("gdbremote: attached")
	} else {
		t, err := ctrl.StartupChild(strings.Fields(*run))
		if err != nil {
			logrus.WithError(err).Fatal("gdbremote: launch failed")
		}
		pid = t.PID
	}

	// The target is stopped at its startup trap (or attach stop); set it
	// running before entering the event loop.
	if err := ctrl.Resume(); err != nil {
		logrus.WithError(err).Fatal("gdbremote: initial resume failed")
	}

	for {
		cont, err := ctrl.Trace()
		if err != nil {
			logrus.WithError(err).Fatal("gdbremote: trace loop failed")
		}
		if !cont {
			break
		}
	}

	if err := ctrl.Detach(pid); err != nil {
		sess.Log.WithError(err).Warn("gdbremote: detach failed")
	}
}
