package remotehost

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics aggregates the wire-level counters for remote host sessions.
// All methods are nil-safe so sessions can run unmetered.
type Metrics struct {
	framesSent     prometheus.Counter
	framesReceived prometheus.Counter
	bytesSent      prometheus.Counter
	bytesReceived  prometheus.Counter

	opsSent         prometheus.Counter
	eventsReceived  prometheus.Counter
	eventsConsumed  prometheus.Counter
	eventsDropped   prometheus.Counter
	measureTimeouts prometheus.Counter

	measureRTT prometheus.Histogram
}

// NewMetrics registers the session metrics with reg. A nil registerer
// falls back to the default one.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	counter := func(name, help string) prometheus.Counter {
		return factory.NewCounter(prometheus.CounterOpts{
			Namespace: "inkwell",
			Subsystem: "remotehost",
			Name:      name,
			Help:      help,
		})
	}

	return &Metrics{
		framesSent:     counter("frames_sent_total", "Protocol frames written to the client."),
		framesReceived: counter("frames_received_total", "Protocol frames read from the client."),
		bytesSent:      counter("bytes_sent_total", "Payload bytes written to the client."),
		bytesReceived:  counter("bytes_received_total", "Payload bytes read from the client."),
		opsSent:        counter("ops_sent_total", "Host mutation ops flushed to the client."),
		eventsReceived: counter("events_received_total", "Raw input events received."),
		eventsConsumed: counter("events_consumed_total", "Input events consumed by the editor."),
		eventsDropped:  counter("events_dropped_total", "Input events that failed to decode."),
		measureTimeouts: counter("measure_timeouts_total",
			"Measurement requests that timed out."),
		measureRTT: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "inkwell",
			Subsystem: "remotehost",
			Name:      "measure_rtt_seconds",
			Help:      "Measurement request round-trip time.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) frameSent(payloadBytes int) {
	if m == nil {
		return
	}
	m.framesSent.Inc()
	m.bytesSent.Add(float64(payloadBytes))
}

func (m *Metrics) frameReceived(payloadBytes int) {
	if m == nil {
		return
	}
	m.framesReceived.Inc()
	m.bytesReceived.Add(float64(payloadBytes))
}

func (m *Metrics) recordOps(n int) {
	if m == nil {
		return
	}
	m.opsSent.Add(float64(n))
}

func (m *Metrics) eventReceived() {
	if m == nil {
		return
	}
	m.eventsReceived.Inc()
}

func (m *Metrics) eventConsumed() {
	if m == nil {
		return
	}
	m.eventsConsumed.Inc()
}

func (m *Metrics) eventDropped() {
	if m == nil {
		return
	}
	m.eventsDropped.Inc()
}

func (m *Metrics) measureTimeout() {
	if m == nil {
		return
	}
	m.measureTimeouts.Inc()
}

func (m *Metrics) measureRoundTrip(seconds float64) {
	if m == nil {
		return
	}
	m.measureRTT.Observe(seconds)
}
