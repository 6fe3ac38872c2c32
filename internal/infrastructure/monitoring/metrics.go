package monitoring

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "opencode_tui"

// Metrics holds all Prometheus metrics
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Terminal metrics
	SessionsActive  prometheus.Gauge
	SessionsCreated prometheus.Counter
	SessionExits    *prometheus.CounterVec
	OutputBytes     prometheus.Counter

	// WebSocket metrics
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec

	// Sidecar metrics
	PortsInUse      prometheus.Gauge
	ServiceCalls    *prometheus.CounterVec
	ServiceDuration *prometheus.HistogramVec
	SidecarHealth   *prometheus.CounterVec

	// Domain metrics
	LinkResolutions  *prometheus.CounterVec
	ConsentDecisions *prometheus.CounterVec
	Commands         *prometheus.CounterVec

	// System metrics
	Uptime    prometheus.GaugeFunc
	startTime time.Time

	snapshot Snapshot
	mu       sync.RWMutex
}

// Snapshot holds current values for the JSON health endpoint
type Snapshot struct {
	TotalRequests     int64   `json:"total_requests"`
	TotalErrors       int64   `json:"total_errors"`
	ActiveSessions    int64   `json:"active_sessions"`
	ActiveConnections int64   `json:"active_connections"`
	AvgLatencyMS      float64 `json:"avg_latency_ms"`
	UptimeSeconds     float64 `json:"uptime_seconds"`

	totalDuration float64
}

// NewMetrics creates a new metrics collector with a private registry
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	m := &Metrics{
		registry:  reg,
		startTime: time.Now(),

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),

		SessionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "terminal_sessions_active",
			Help:      "Number of live terminal sessions",
		}),
		SessionsCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "terminal_sessions_created_total",
			Help:      "Total number of terminal sessions created",
		}),
		SessionExits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "terminal_session_exits_total",
				Help:      "Terminal sessions that ended, by reason",
			},
			[]string{"reason"},
		),
		OutputBytes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "terminal_output_bytes_total",
			Help:      "Bytes read from terminal sessions",
		}),

		WSConnections: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ws_connections",
			Help:      "Number of attached websocket views",
		}),
		WSMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ws_messages_total",
				Help:      "Websocket messages by direction and type",
			},
			[]string{"direction", "type"},
		),

		PortsInUse: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sidecar_ports_in_use",
			Help:      "Ports currently assigned to OpenCode processes",
		}),
		ServiceCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "service_calls_total",
				Help:      "Outbound service calls by status",
			},
			[]string{"service", "method", "status"},
		),
		ServiceDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "service_duration_seconds",
				Help:      "Outbound service call duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"service", "method"},
		),
		SidecarHealth: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sidecar_health_checks_total",
				Help:      "Sidecar health waits by outcome",
			},
			[]string{"healthy"},
		),

		LinkResolutions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "link_resolutions_total",
				Help:      "File reference resolutions by outcome",
			},
			[]string{"outcome"},
		),
		ConsentDecisions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "consent_decisions_total",
				Help:      "Foreign terminal consent answers",
			},
			[]string{"decision"},
		),
		Commands: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "commands_total",
				Help:      "Command executions by name and status",
			},
			[]string{"command", "status"},
		),
	}

	m.Uptime = factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "uptime_seconds",
		Help:      "Daemon uptime in seconds",
	}, func() float64 {
		return time.Since(m.startTime).Seconds()
	})

	return m
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())

	m.mu.Lock()
	m.snapshot.TotalRequests++
	m.snapshot.totalDuration += duration.Seconds()
	if len(status) > 0 && (status[0] == '4' || status[0] == '5') {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// RecordServiceCall records an outbound call
func (m *Metrics) RecordServiceCall(service, method, status string, duration time.Duration) {
	m.ServiceCalls.WithLabelValues(service, method, status).Inc()
	m.ServiceDuration.WithLabelValues(service, method).Observe(duration.Seconds())
}

// RecordSidecarHealth records the outcome of a health wait
func (m *Metrics) RecordSidecarHealth(healthy bool) {
	label := "false"
	if healthy {
		label = "true"
	}
	m.SidecarHealth.WithLabelValues(label).Inc()
}

// RecordWSMessage records a websocket message
func (m *Metrics) RecordWSMessage(direction, msgType string) {
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}

// RecordSessionCreated counts a new terminal session
func (m *Metrics) RecordSessionCreated() {
	m.SessionsCreated.Inc()
	m.SessionsActive.Inc()
	m.mu.Lock()
	m.snapshot.ActiveSessions++
	m.mu.Unlock()
}

// RecordSessionEnded counts a session that exited or was killed
func (m *Metrics) RecordSessionEnded(reason string) {
	m.SessionExits.WithLabelValues(reason).Inc()
	m.SessionsActive.Dec()
	m.mu.Lock()
	if m.snapshot.ActiveSessions > 0 {
		m.snapshot.ActiveSessions--
	}
	m.mu.Unlock()
}

// AddOutputBytes counts terminal output
func (m *Metrics) AddOutputBytes(n int) {
	m.OutputBytes.Add(float64(n))
}

// SetPortsInUse sets the number of assigned sidecar ports
func (m *Metrics) SetPortsInUse(count int) {
	m.PortsInUse.Set(float64(count))
}

// RecordLinkResolution counts a link resolution by outcome
func (m *Metrics) RecordLinkResolution(outcome string) {
	m.LinkResolutions.WithLabelValues(outcome).Inc()
}

// RecordConsent counts a consent answer
func (m *Metrics) RecordConsent(decision string) {
	m.ConsentDecisions.WithLabelValues(decision).Inc()
}

// RecordCommand counts a command execution
func (m *Metrics) RecordCommand(command, status string) {
	m.Commands.WithLabelValues(command, status).Inc()
}

// IncWSConnections increments websocket connections
func (m *Metrics) IncWSConnections() {
	m.WSConnections.Inc()
	m.mu.Lock()
	m.snapshot.ActiveConnections++
	m.mu.Unlock()
}

// DecWSConnections decrements websocket connections
func (m *Metrics) DecWSConnections() {
	m.WSConnections.Dec()
	m.mu.Lock()
	if m.snapshot.ActiveConnections > 0 {
		m.snapshot.ActiveConnections--
	}
	m.mu.Unlock()
}

// Snapshot returns current values
func (m *Metrics) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := m.snapshot
	if s.TotalRequests > 0 {
		s.AvgLatencyMS = s.totalDuration / float64(s.TotalRequests) * 1000
	}
	s.UptimeSeconds = time.Since(m.startTime).Seconds()
	return s
}
