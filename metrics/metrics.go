// Package metrics provides Prometheus metrics collection for core operations.
package metrics

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dotsetlabs/axion/utils"
)

// Metrics holds the Prometheus collectors for crypto, manifest, and sync operations.
type Metrics struct {
	// Crypto / KDF
	EncryptOpsTotal   *prometheus.CounterVec
	DecryptOpsTotal   *prometheus.CounterVec
	KDFDuration       prometheus.Histogram

	// Key rotation
	RotationsTotal    *prometheus.CounterVec
	RotationDuration  prometheus.Histogram

	// Manifest resolution
	ResolveOpsTotal   *prometheus.CounterVec
	ResolveDuration   *prometheus.HistogramVec

	// Sync arbiter
	SyncOpsTotal      *prometheus.CounterVec
	SyncDuration      *prometheus.HistogramVec
	SyncConflicts     prometheus.Counter

	// Process injection
	InjectOpsTotal    *prometheus.CounterVec

	// Errors
	ErrorsTotal       *prometheus.CounterVec

	// Agent health
	AgentUptime       prometheus.Gauge
	AgentInfo         *prometheus.GaugeVec
}

// New creates a new Metrics instance with all collectors registered against the
// default Prometheus registerer.
func New(agentVersion string) *Metrics {
	return NewWithRegistry(agentVersion, prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a new Metrics instance with a custom registry.
func NewWithRegistry(agentVersion string, registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		EncryptOpsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "axion_encrypt_operations_total",
				Help: "Total number of envelope encrypt operations",
			},
			[]string{"status"},
		),
		DecryptOpsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "axion_decrypt_operations_total",
				Help: "Total number of envelope decrypt operations",
			},
			[]string{"status"},
		),
		KDFDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "axion_kdf_duration_seconds",
				Help:    "Argon2id key derivation duration in seconds",
				Buckets: []float64{.05, .1, .25, .5, 1, 2, 5, 10},
			},
		),

		RotationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "axion_key_rotations_total",
				Help: "Total number of key rotation attempts",
			},
			[]string{"outcome"},
		),
		RotationDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "axion_key_rotation_duration_seconds",
				Help:    "Key rotation duration in seconds",
				Buckets: []float64{.01, .05, .1, .5, 1, 5, 10, 30},
			},
		),

		ResolveOpsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "axion_resolve_operations_total",
				Help: "Total number of manifest key resolutions",
			},
			[]string{"scope", "status"},
		),
		ResolveDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "axion_resolve_duration_seconds",
				Help:    "Manifest resolution duration in seconds",
				Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1},
			},
			[]string{"scope"},
		),

		SyncOpsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "axion_sync_operations_total",
				Help: "Total number of sync arbiter reconciliations",
			},
			[]string{"direction", "status"},
		),
		SyncDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "axion_sync_duration_seconds",
				Help:    "Sync reconciliation duration in seconds",
				Buckets: []float64{.01, .05, .1, .5, 1, 2, 5, 10, 30},
			},
			[]string{"direction"},
		),
		SyncConflicts: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "axion_sync_conflicts_total",
				Help: "Total number of version conflicts resolved during sync",
			},
		),

		InjectOpsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "axion_inject_operations_total",
				Help: "Total number of process injections",
			},
			[]string{"status"},
		),

		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "axion_errors_total",
				Help: "Total number of errors by kind",
			},
			[]string{"kind", "operation"},
		),

		AgentUptime: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "axion_agent_uptime_seconds",
				Help: "Agent process uptime in seconds",
			},
		),
		AgentInfo: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "axion_agent_info",
				Help: "Agent build information",
			},
			[]string{"version", "environment"},
		),
	}

	if registerer != nil {
		registerer.MustRegister(
			m.EncryptOpsTotal,
			m.DecryptOpsTotal,
			m.KDFDuration,
			m.RotationsTotal,
			m.RotationDuration,
			m.ResolveOpsTotal,
			m.ResolveDuration,
			m.SyncOpsTotal,
			m.SyncDuration,
			m.SyncConflicts,
			m.InjectOpsTotal,
			m.ErrorsTotal,
			m.AgentUptime,
			m.AgentInfo,
		)
	}

	m.AgentInfo.WithLabelValues(agentVersion, Environment()).Set(1)

	return m
}

// RecordEncrypt records an envelope encrypt operation.
func (m *Metrics) RecordEncrypt(status string) {
	m.EncryptOpsTotal.WithLabelValues(status).Inc()
}

// RecordDecrypt records an envelope decrypt operation.
func (m *Metrics) RecordDecrypt(status string) {
	m.DecryptOpsTotal.WithLabelValues(status).Inc()
}

// RecordKDF records the time spent deriving a key.
func (m *Metrics) RecordKDF(duration time.Duration) {
	m.KDFDuration.Observe(duration.Seconds())
}

// RecordRotation records a key rotation attempt and its outcome.
func (m *Metrics) RecordRotation(outcome string, duration time.Duration) {
	m.RotationsTotal.WithLabelValues(outcome).Inc()
	m.RotationDuration.Observe(duration.Seconds())
}

// RecordResolve records a manifest key resolution.
func (m *Metrics) RecordResolve(scope, status string, duration time.Duration) {
	m.ResolveOpsTotal.WithLabelValues(scope, status).Inc()
	m.ResolveDuration.WithLabelValues(scope).Observe(duration.Seconds())
}

// RecordSync records a sync reconciliation.
func (m *Metrics) RecordSync(direction, status string, duration time.Duration) {
	m.SyncOpsTotal.WithLabelValues(direction, status).Inc()
	m.SyncDuration.WithLabelValues(direction).Observe(duration.Seconds())
}

// RecordSyncConflict increments the version-conflict counter.
func (m *Metrics) RecordSyncConflict() {
	m.SyncConflicts.Inc()
}

// RecordInject records a process injection.
func (m *Metrics) RecordInject(status string) {
	m.InjectOpsTotal.WithLabelValues(status).Inc()
}

// RecordError records an error by kind and originating operation.
func (m *Metrics) RecordError(kind, operation string) {
	m.ErrorsTotal.WithLabelValues(kind, operation).Inc()
}

// UpdateUptime sets the agent uptime gauge relative to startTime.
func (m *Metrics) UpdateUptime(startTime time.Time) {
	m.AgentUptime.Set(time.Since(startTime).Seconds())
}

// Environment returns the runtime environment name, defaulting to "development".
//
// Axion has no production/TEE distinction of its own; AXION_ENV simply labels
// metrics emitted by the running agent.
func Environment() string {
	env := strings.ToLower(utils.GetEnvOptional("AXION_ENV"))
	if env == "" {
		return "development"
	}
	return env
}

// Enabled returns whether Prometheus metrics should be exposed.
//
// Defaults to enabled; set METRICS_ENABLED=false to opt out (e.g. for a
// short-lived CLI invocation that shouldn't start a metrics endpoint).
func Enabled() bool {
	raw := strings.ToLower(utils.GetEnvOptional("METRICS_ENABLED"))
	if raw == "" {
		return true
	}
	switch raw {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// Global metrics instance.
var (
	globalMetrics *Metrics
	globalMu      sync.Mutex
)

// Init initializes the global metrics instance.
func Init(agentVersion string) *Metrics {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalMetrics == nil {
		globalMetrics = New(agentVersion)
	}
	return globalMetrics
}

// Global returns the global metrics instance, creating it with an "unknown"
// version label if Init has not been called yet.
func Global() *Metrics {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalMetrics == nil {
		globalMetrics = New("unknown")
	}
	return globalMetrics
}
