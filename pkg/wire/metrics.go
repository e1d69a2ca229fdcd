package wire

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics tracks codec-level Prometheus metrics.
//
// All metrics use the wire_ prefix. A Message with metrics attached
// (SetMetrics) records encode finalisations, header decodes, decode
// failures and descriptor attachment itself; a Queue with metrics
// attached keeps the depth gauge current. Every helper is nil-safe so
// instrumentation stays optional.
type Metrics struct {
	// FramesDecoded counts inbound frames by message type.
	FramesDecoded *prometheus.CounterVec

	// FramesEncoded counts outbound frames by message type.
	FramesEncoded *prometheus.CounterVec

	// PayloadBytes tracks the payload size distribution of completed
	// frames in both directions.
	PayloadBytes prometheus.Histogram

	// FDsAttached counts descriptors attached to outbound messages.
	FDsAttached prometheus.Counter

	// TxQueueDepth tracks the current transmit queue depth.
	TxQueueDepth prometheus.Gauge

	// DecodeErrors counts frames rejected during decode.
	DecodeErrors prometheus.Counter
}

// NewMetrics creates codec metrics registered against reg. Panics if
// registration fails (expected during initialization only).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		FramesDecoded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wire_frames_decoded_total",
				Help: "Total inbound frames decoded, by message type",
			},
			[]string{"type"},
		),
		FramesEncoded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wire_frames_encoded_total",
				Help: "Total outbound frames encoded, by message type",
			},
			[]string{"type"},
		),
		PayloadBytes: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "wire_payload_bytes",
				Help:    "Payload size of completed frames in bytes",
				Buckets: prometheus.ExponentialBuckets(64, 4, 12),
			},
		),
		FDsAttached: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "wire_fds_attached_total",
				Help: "Total file descriptors attached to outbound messages",
			},
		),
		TxQueueDepth: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "wire_txqueue_depth",
				Help: "Current number of messages pending transmission",
			},
		),
		DecodeErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "wire_decode_errors_total",
				Help: "Total frames rejected during decode",
			},
		),
	}

	reg.MustRegister(
		m.FramesDecoded,
		m.FramesEncoded,
		m.PayloadBytes,
		m.FDsAttached,
		m.TxQueueDepth,
		m.DecodeErrors,
	)

	return m
}

// RecordDecoded records one successfully decoded frame.
func (m *Metrics) RecordDecoded(t Type, payloadBytes int) {
	if m == nil {
		return
	}
	m.FramesDecoded.WithLabelValues(t.String()).Inc()
	m.PayloadBytes.Observe(float64(payloadBytes))
}

// RecordEncoded records one finalised outbound frame.
func (m *Metrics) RecordEncoded(t Type, payloadBytes int) {
	if m == nil {
		return
	}
	m.FramesEncoded.WithLabelValues(t.String()).Inc()
	m.PayloadBytes.Observe(float64(payloadBytes))
}

// RecordFDAttached records one descriptor attached to a message.
func (m *Metrics) RecordFDAttached() {
	if m == nil {
		return
	}
	m.FDsAttached.Inc()
}

// RecordDecodeError records one rejected inbound frame.
func (m *Metrics) RecordDecodeError() {
	if m == nil {
		return
	}
	m.DecodeErrors.Inc()
}

// QueuePushed bumps the transmit queue depth gauge.
func (m *Metrics) QueuePushed() {
	if m == nil {
		return
	}
	m.TxQueueDepth.Inc()
}

// QueueServed drops the transmit queue depth gauge.
func (m *Metrics) QueueServed() {
	if m == nil {
		return
	}
	m.TxQueueDepth.Dec()
}
