// Package metrics exposes a Prometheus-backed mirror of the
// publisher's internal counters for host-side scraping. It never
// changes or replaces those counters — the publisher's own
// mutex-guarded fields remain the source of truth for what goes into
// each upload's meta-metric event; this package only mirrors them.
package metrics

import (
	"io"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/common/expfmt"
)

// Collector holds the process's Prometheus registry and metric
// handles. All increment/set methods are nil-receiver safe, so a host
// that never wires metrics up at all can still pass a nil *Collector
// around.
type Collector struct {
	mu sync.Mutex

	registry *prometheus.Registry

	eventsLogged        prometheus.Counter
	filesRotated        *prometheus.CounterVec
	publishAttempts     prometheus.Counter
	publishSuccesses    prometheus.Counter
	failedConnections   prometheus.Counter
	failedServerReplies prometheus.Counter
	bytesSentLastUpload prometheus.Gauge
}

// NewCollector builds a Collector with its own registry, so a host
// can mount it under its own /metrics endpoint without colliding with
// other libraries registering against prometheus.DefaultRegisterer.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	c := &Collector{
		registry: reg,
		eventsLogged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "beacon_events_logged_total",
			Help: "Events successfully written to the active spool file.",
		}),
		filesRotated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "beacon_files_rotated_total",
			Help: "Spool file rotations, labeled by trigger.",
		}, []string{"reason"}),
		publishAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "beacon_publish_attempts_total",
			Help: "Upload attempts made by the publisher.",
		}),
		publishSuccesses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "beacon_publish_successes_total",
			Help: "Uploads that completed with a 2xx response.",
		}),
		failedConnections: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "beacon_failed_connections_total",
			Help: "Upload attempts that failed before a server reply.",
		}),
		failedServerReplies: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "beacon_failed_server_replies_total",
			Help: "Uploads that received a non-2xx response.",
		}),
		bytesSentLastUpload: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "beacon_bytes_sent_last_upload",
			Help: "Size in bytes of the most recently sent upload body.",
		}),
	}

	reg.MustRegister(
		c.eventsLogged,
		c.filesRotated,
		c.publishAttempts,
		c.publishSuccesses,
		c.failedConnections,
		c.failedServerReplies,
		c.bytesSentLastUpload,
	)
	return c
}

// Registry returns the underlying registry for mounting under a
// host's own promhttp.HandlerFor.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return prometheus.NewRegistry()
	}
	return c.registry
}

// Handler returns an http.Handler serving this Collector's registry at
// GET /metrics.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.Registry(), promhttp.HandlerOpts{})
}

// WriteTo renders the current metric values in Prometheus text
// exposition format, for the CLI's non-interactive status dump.
func (c *Collector) WriteTo(w io.Writer) error {
	if c == nil {
		return nil
	}
	fams, err := c.registry.Gather()
	if err != nil {
		return err
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, fam := range fams {
		if err := enc.Encode(fam); err != nil {
			return err
		}
	}
	return nil
}

func (c *Collector) IncEventsLogged() {
	if c == nil {
		return
	}
	c.eventsLogged.Inc()
}

func (c *Collector) IncFilesRotated(reason string) {
	if c == nil {
		return
	}
	c.filesRotated.WithLabelValues(reason).Inc()
}

func (c *Collector) IncPublishAttempts() {
	if c == nil {
		return
	}
	c.publishAttempts.Inc()
}

func (c *Collector) IncPublishSuccesses() {
	if c == nil {
		return
	}
	c.publishSuccesses.Inc()
}

// SetFailureCounters adds the given numbers of new connection failures
// and non-2xx replies to the Prometheus counters. Those counters are
// running totals: unlike the publisher's own failedConnections/
// failedServerReplies, they are not reset after a successful upload.
func (c *Collector) SetFailureCounters(newFailedConnections, newFailedServerReplies int64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if newFailedConnections > 0 {
		c.failedConnections.Add(float64(newFailedConnections))
	}
	if newFailedServerReplies > 0 {
		c.failedServerReplies.Add(float64(newFailedServerReplies))
	}
}

func (c *Collector) SetBytesSentLastUpload(n int64) {
	if c == nil {
		return
	}
	c.bytesSentLastUpload.Set(float64(n))
}
