// Package metrics exposes replay counters in the Prometheus format.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "vdrplayer"

// Recorder counts what a replay session does. A nil *Recorder records nothing.
type Recorder struct {
	rowsSent    *prometheus.CounterVec
	bytesSent   *prometheus.CounterVec
	rowsSkipped *prometheus.CounterVec
	rowsDropped prometheus.Counter
	passes      prometheus.Counter
	clients     prometheus.Gauge
}

// NewRecorder creates the counters and registers them with reg.
func NewRecorder(reg prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{
		rowsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "replay",
			Name:      "rows_sent_total",
			Help:      "Rows encoded and handed to the transport",
		}, []string{"kind"}),
		bytesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "replay",
			Name:      "bytes_sent_total",
			Help:      "Encoded bytes handed to the transport",
		}, []string{"kind"}),
		rowsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "replay",
			Name:      "rows_skipped_total",
			Help:      "Rows discarded before sending",
		}, []string{"reason"}), // reason: malformed, bad_timestamp, encode, empty
		rowsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "replay",
			Name:      "rows_dropped_total",
			Help:      "Datagrams the transport failed to send",
		}),
		passes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "replay",
			Name:      "passes_completed_total",
			Help:      "Complete passes over the log file",
		}),
		clients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "transport",
			Name:      "clients_connected",
			Help:      "Peers currently connected to the replay server",
		}),
	}

	for _, c := range []prometheus.Collector{r.rowsSent, r.bytesSent, r.rowsSkipped, r.rowsDropped, r.passes, r.clients} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
	}
	return r, nil
}

// RowSent counts one delivered frame of n bytes.
func (r *Recorder) RowSent(kind string, n int) {
	if r == nil {
		return
	}
	r.rowsSent.WithLabelValues(kind).Inc()
	r.bytesSent.WithLabelValues(kind).Add(float64(n))
}

// RowSkipped counts a discarded row.
func (r *Recorder) RowSkipped(reason string) {
	if r == nil {
		return
	}
	r.rowsSkipped.WithLabelValues(reason).Inc()
}

// RowDropped counts a frame lost by the transport.
func (r *Recorder) RowDropped() {
	if r == nil {
		return
	}
	r.rowsDropped.Inc()
}

// PassCompleted counts a finished pass.
func (r *Recorder) PassCompleted() {
	if r == nil {
		return
	}
	r.passes.Inc()
}

// ClientConnected tracks the number of connected peers.
func (r *Recorder) ClientConnected(connected bool) {
	if r == nil {
		return
	}
	if connected {
		r.clients.Inc()
	} else {
		r.clients.Dec()
	}
}
