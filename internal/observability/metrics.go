// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Event ingestion metrics
	EventsDecoded         *prometheus.CounterVec
	EventDecodeErrors     prometheus.Counter
	ParticipationsStored  prometheus.Counter
	ParticipationsSkipped *prometheus.CounterVec

	// Replay metrics
	ReplayPagesFetched    prometheus.Counter
	ReplayEventsRecovered prometheus.Counter

	// Scheduler metrics
	StatusTransitions *prometheus.CounterVec
	ArmedTimers       prometheus.Gauge

	// Chain client metrics
	RPCCallLatency  *prometheus.HistogramVec
	RPCCallErrors   *prometheus.CounterVec
	TxSubmitted     *prometheus.CounterVec
	RetryExhausted  *prometheus.CounterVec
	WSReconnects    prometheus.Counter
	HighestSlotSeen prometheus.Gauge

	// Distribution metrics
	PositionsAssigned prometheus.Counter
	DrawsCompleted    prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "meme_land"
	}

	return &Metrics{
		EventsDecoded: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "decoded_total",
			Help:      "Total number of program events decoded by type",
		}, []string{"event"}),
		EventDecodeErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "decode_errors_total",
			Help:      "Total number of malformed event payloads dropped",
		}),
		ParticipationsStored: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "participation",
			Name:      "stored_total",
			Help:      "Total number of participation rows stored",
		}),
		ParticipationsSkipped: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "participation",
			Name:      "skipped_total",
			Help:      "Total number of participation events skipped by reason",
		}, []string{"reason"}),

		ReplayPagesFetched: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "replay",
			Name:      "pages_fetched_total",
			Help:      "Total number of signature pages fetched during replay",
		}),
		ReplayEventsRecovered: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "replay",
			Name:      "events_recovered_total",
			Help:      "Total number of events recovered from transaction history",
		}),

		StatusTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "status_transitions_total",
			Help:      "Total number of campaign status transitions fired",
		}, []string{"status"}),
		ArmedTimers: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "armed_timers",
			Help:      "Number of pending campaign lifecycle timers",
		}),

		RPCCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_latency_seconds",
			Help:      "Solana RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		RPCCallErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_errors_total",
			Help:      "Total number of failed Solana RPC calls",
		}, []string{"method"}),
		TxSubmitted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "transactions_submitted_total",
			Help:      "Total number of transactions submitted by operation",
		}, []string{"operation"}),
		RetryExhausted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "retry_exhausted_total",
			Help:      "Total number of operations that exhausted their retry budget",
		}, []string{"operation"}),
		WSReconnects: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "ws_reconnects_total",
			Help:      "Total number of WebSocket reconnections",
		}),
		HighestSlotSeen: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "highest_slot_seen",
			Help:      "Highest Solana slot number seen",
		}),

		PositionsAssigned: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "distribution",
			Name:      "positions_assigned_total",
			Help:      "Total number of distribution positions assigned",
		}),
		DrawsCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "distribution",
			Name:      "draws_completed_total",
			Help:      "Total number of campaign draws completed",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordEventDecoded increments the decoded-events counter for an event type.
func RecordEventDecoded(event string) {
	DefaultMetrics.EventsDecoded.WithLabelValues(event).Inc()
}

// RecordDecodeError increments the malformed-payload counter.
func RecordDecodeError() {
	DefaultMetrics.EventDecodeErrors.Inc()
}

// RecordParticipationStored increments the stored-participations counter.
func RecordParticipationStored() {
	DefaultMetrics.ParticipationsStored.Inc()
}

// RecordParticipationSkipped increments the skipped-participations counter.
func RecordParticipationSkipped(reason string) {
	DefaultMetrics.ParticipationsSkipped.WithLabelValues(reason).Inc()
}

// RecordReplayPage increments the replay page counter.
func RecordReplayPage() {
	DefaultMetrics.ReplayPagesFetched.Inc()
}

// RecordEventsRecovered adds to the replay recovery counter.
func RecordEventsRecovered(n int) {
	DefaultMetrics.ReplayEventsRecovered.Add(float64(n))
}

// RecordStatusTransition increments the transition counter for a status.
func RecordStatusTransition(status string) {
	DefaultMetrics.StatusTransitions.WithLabelValues(status).Inc()
}

// RecordTimerArmed increments the pending-timer gauge.
func RecordTimerArmed() {
	DefaultMetrics.ArmedTimers.Inc()
}

// RecordTimerDone decrements the pending-timer gauge.
func RecordTimerDone() {
	DefaultMetrics.ArmedTimers.Dec()
}

// RecordRPCCall records latency for a Solana RPC call and counts failures.
func RecordRPCCall(method string, seconds float64, err error) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
	if err != nil {
		DefaultMetrics.RPCCallErrors.WithLabelValues(method).Inc()
	}
}

// RecordTxSubmitted increments the submitted-transactions counter.
func RecordTxSubmitted(operation string) {
	DefaultMetrics.TxSubmitted.WithLabelValues(operation).Inc()
}

// RecordRetryExhausted increments the exhausted-retry counter.
func RecordRetryExhausted(operation string) {
	DefaultMetrics.RetryExhausted.WithLabelValues(operation).Inc()
}

// RecordWSReconnect increments the WebSocket reconnect counter.
func RecordWSReconnect() {
	DefaultMetrics.WSReconnects.Inc()
}

// RecordHighestSlot updates the highest-slot gauge.
func RecordHighestSlot(slot int64) {
	DefaultMetrics.HighestSlotSeen.Set(float64(slot))
}

// RecordPositionsAssigned adds to the assigned-positions counter.
func RecordPositionsAssigned(n int) {
	DefaultMetrics.PositionsAssigned.Add(float64(n))
}

// RecordDrawCompleted increments the completed-draws counter.
func RecordDrawCompleted() {
	DefaultMetrics.DrawsCompleted.Inc()
}
