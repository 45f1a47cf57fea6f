// Package metrics registers every Prometheus series the vault
// exports. One Metrics value is built at startup and threaded through
// the layers that observe it; a nil *Metrics disables observation
// without nil checks at every call site.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the vault.
type Metrics struct {
	BlocksAppended  *prometheus.CounterVec
	MiningDuration  prometheus.Histogram
	ChainLength     prometheus.Gauge
	Validations     *prometheus.CounterVec
	Verifications   *prometheus.CounterVec
	ProofsGenerated *prometheus.CounterVec
	ProofsVerified  *prometheus.CounterVec
	SnapshotSaves   *prometheus.CounterVec
	SnapshotLatency prometheus.Histogram
	AuditEvents     *prometheus.CounterVec
	HTTPLatency     *prometheus.HistogramVec
}

// New registers the vault metrics with reg. Pass
// prometheus.DefaultRegisterer in main and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		BlocksAppended: f.NewCounterVec(prometheus.CounterOpts{
			Name: "credchain_blocks_appended_total",
			Help: "Blocks mined and appended, by payload kind",
		}, []string{"kind"}),

		MiningDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "credchain_mining_duration_seconds",
			Help:    "Time spent searching for a satisfying nonce",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 15},
		}),

		ChainLength: f.NewGauge(prometheus.GaugeOpts{
			Name: "credchain_chain_length",
			Help: "Current number of blocks, genesis included",
		}),

		Validations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "credchain_validations_total",
			Help: "Full-chain validations, by verdict",
		}, []string{"result"}),

		Verifications: f.NewCounterVec(prometheus.CounterOpts{
			Name: "credchain_attribute_verifications_total",
			Help: "Attribute verifications against the ledger, by verdict",
		}, []string{"result"}),

		ProofsGenerated: f.NewCounterVec(prometheus.CounterOpts{
			Name: "credchain_proofs_generated_total",
			Help: "Claim proofs generated, by claim kind",
		}, []string{"kind"}),

		ProofsVerified: f.NewCounterVec(prometheus.CounterOpts{
			Name: "credchain_proofs_verified_total",
			Help: "Claim proofs verified, by claim kind and verdict",
		}, []string{"kind", "result"}),

		SnapshotSaves: f.NewCounterVec(prometheus.CounterOpts{
			Name: "credchain_snapshot_saves_total",
			Help: "Snapshot persistence attempts after mutations, by outcome",
		}, []string{"result"}),

		SnapshotLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "credchain_snapshot_save_duration_seconds",
			Help:    "Time spent persisting the serialized chain",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}),

		AuditEvents: f.NewCounterVec(prometheus.CounterOpts{
			Name: "credchain_audit_events_total",
			Help: "Audit events routed through the pipeline, by category and outcome",
		}, []string{"category", "outcome"}),

		HTTPLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "credchain_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"route", "method", "status"}),
	}
}

// ObserveBlockAppended records one mined block and the time it took.
func (m *Metrics) ObserveBlockAppended(kind string, took time.Duration, chainLength int) {
	if m == nil {
		return
	}
	m.BlocksAppended.WithLabelValues(kind).Inc()
	m.MiningDuration.Observe(took.Seconds())
	m.ChainLength.Set(float64(chainLength))
}

// IncrementValidation records a full-chain validation verdict.
func (m *Metrics) IncrementValidation(valid bool) {
	if m == nil {
		return
	}
	m.Validations.WithLabelValues(verdict(valid)).Inc()
}

// IncrementVerification records an attribute verification verdict.
func (m *Metrics) IncrementVerification(ok bool) {
	if m == nil {
		return
	}
	m.Verifications.WithLabelValues(verdict(ok)).Inc()
}

// IncrementProofGenerated records one generated claim proof.
func (m *Metrics) IncrementProofGenerated(kind string) {
	if m == nil {
		return
	}
	m.ProofsGenerated.WithLabelValues(kind).Inc()
}

// IncrementProofVerified records one claim verification verdict.
func (m *Metrics) IncrementProofVerified(kind string, ok bool) {
	if m == nil {
		return
	}
	m.ProofsVerified.WithLabelValues(kind, verdict(ok)).Inc()
}

// ObserveSnapshotSave records a persistence attempt.
func (m *Metrics) ObserveSnapshotSave(err error, took time.Duration) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.SnapshotSaves.WithLabelValues(result).Inc()
	m.SnapshotLatency.Observe(took.Seconds())
}

// IncrementAuditEvent records one audit event outcome.
func (m *Metrics) IncrementAuditEvent(category, outcome string) {
	if m == nil {
		return
	}
	m.AuditEvents.WithLabelValues(category, outcome).Inc()
}

// ObserveHTTPRequest records one served request.
func (m *Metrics) ObserveHTTPRequest(route, method, status string, took time.Duration) {
	if m == nil {
		return
	}
	m.HTTPLatency.WithLabelValues(route, method, status).Observe(took.Seconds())
}

func verdict(ok bool) string {
	if ok {
		return "valid"
	}
	return "invalid"
}
