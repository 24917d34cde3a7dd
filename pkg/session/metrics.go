package session

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics is a prometheus.Collector exposing session/controller activity:
// packets sent/received, checksum-retry count, notification queue
// traffic, active tracee count, and per-kind stop-reply counts. This is
// ambient observability (§2b), not a traced feature, so it runs
// unconditionally rather than behind any capability flag.
//
// Collect/Describe run on the Prometheus scrape goroutine, concurrently
// with the single-threaded controller loop updating the counters, so
// Metrics alone needs a mutex guarding those two methods against each
// other (the counters themselves are already safe for concurrent use).
type Metrics struct {
	mu sync.Mutex

	PacketsSent           prometheus.Counter
	PacketsReceived       prometheus.Counter
	ChecksumRetries       prometheus.Counter
	NotificationsEnqueued prometheus.Counter
	NotificationsDequeued prometheus.Counter
	ActiveTracees         prometheus.Gauge
	StopReplyKind         *prometheus.CounterVec
}

// NewMetrics builds an unregistered Metrics. Callers that want it scraped
// call prometheus.MustRegister on the result, as cmd/gdbremote does when
// -metrics-addr is set.
func NewMetrics() *Metrics {
	return &Metrics{
		PacketsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gdbremote_packets_sent_total",
			Help: "RSP packets sent to the stub.",
		}),
		PacketsReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gdbremote_packets_received_total",
			Help: "RSP packets received from the stub.",
		}),
		ChecksumRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gdbremote_checksum_retries_total",
			Help: "Inbound packets dropped for a checksum mismatch and re-read.",
		}),
		NotificationsEnqueued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gdbremote_notifications_enqueued_total",
			Help: "Stop notifications deferred into the notification queue.",
		}),
		NotificationsDequeued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gdbremote_notifications_dequeued_total",
			Help: "Stop notifications drained from the notification queue.",
		}),
		ActiveTracees: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gdbremote_active_tracees",
			Help: "Tracees currently registered with the controller.",
		}),
		StopReplyKind: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gdbremote_stop_reply_kind_total",
			Help: "Stop replies processed, labeled by kind.",
		}, []string{"kind"}),
	}
}

// Describe implements prometheus.Collector.
func (m *Metrics) Describe(descs chan<- *prometheus.Desc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PacketsSent.Describe(descs)
	m.PacketsReceived.Describe(descs)
	m.ChecksumRetries.Describe(descs)
	m.NotificationsEnqueued.Describe(descs)
	m.NotificationsDequeued.Describe(descs)
	m.ActiveTracees.Describe(descs)
	m.StopReplyKind.Describe(descs)
}

// Collect implements prometheus.Collector.
func (m *Metrics) Collect(metrics chan<- prometheus.Metric) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PacketsSent.Collect(metrics)
	m.PacketsReceived.Collect(metrics)
	m.ChecksumRetries.Collect(metrics)
	m.NotificationsEnqueued.Collect(metrics)
	m.NotificationsDequeued.Collect(metrics)
	m.ActiveTracees.Collect(metrics)
	m.StopReplyKind.Collect(metrics)
}
