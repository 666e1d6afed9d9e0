package infra

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "clinicapos"

// Metrics holds the process-wide Prometheus collectors. A nil *Metrics is
// valid and records nothing, so services can be built without it in tests.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	TurnosAbiertos    prometheus.Counter
	TurnosCerrados    *prometheus.CounterVec
	Liquidaciones     *prometheus.CounterVec
	Recalculos        prometheus.Counter
	RecalculoFilas    prometheus.Histogram
	AuditoriaDesvios  prometheus.Gauge
	NotificacionesDLQ prometheus.Counter

	CircuitBreakerState *prometheus.GaugeVec
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{registry: registry}

	m.HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
	m.HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "path"},
	)
	m.TurnosAbiertos = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "turnos_abiertos_total",
		Help:      "Shifts opened",
	})
	m.TurnosCerrados = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "turnos_cerrados_total",
			Help:      "Shifts closed, by whether the discrepancy needed authorization",
		},
		[]string{"autorizado"},
	)
	m.Liquidaciones = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "comisiones_operaciones_total",
			Help:      "Commission settlements and voids",
		},
		[]string{"operacion"},
	)
	m.Recalculos = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "banco_recalculos_total",
		Help:      "Full running-balance recomputations",
	})
	m.RecalculoFilas = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Name:      "banco_recalculo_filas",
		Help:      "Ledger rows walked per recomputation",
		Buckets:   prometheus.ExponentialBuckets(10, 4, 7),
	})
	m.AuditoriaDesvios = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "banco_auditoria_desvios",
		Help:      "Ledger rows whose stored running balance drifted at the last audit",
	})
	m.NotificacionesDLQ = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "notificaciones_dlq_total",
		Help:      "Notification jobs moved to the dead-letter queue",
	})
	m.CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.TurnosAbiertos,
		m.TurnosCerrados,
		m.Liquidaciones,
		m.Recalculos,
		m.RecalculoFilas,
		m.AuditoriaDesvios,
		m.NotificacionesDLQ,
		m.CircuitBreakerState,
	)
	return m
}

// Handler serves the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

func (m *Metrics) RecordTurnoAbierto() {
	if m == nil {
		return
	}
	m.TurnosAbiertos.Inc()
}

func (m *Metrics) RecordTurnoCerrado(autorizado bool) {
	if m == nil {
		return
	}
	m.TurnosCerrados.WithLabelValues(strconv.FormatBool(autorizado)).Inc()
}

// RecordComision counts "liquidacion" or "anulacion".
func (m *Metrics) RecordComision(operacion string) {
	if m == nil {
		return
	}
	m.Liquidaciones.WithLabelValues(operacion).Inc()
}

func (m *Metrics) RecordRecalculo(filas int) {
	if m == nil {
		return
	}
	m.Recalculos.Inc()
	m.RecalculoFilas.Observe(float64(filas))
}

func (m *Metrics) SetAuditoriaDesvios(n int) {
	if m == nil {
		return
	}
	m.AuditoriaDesvios.Set(float64(n))
}

func (m *Metrics) RecordDLQ() {
	if m == nil {
		return
	}
	m.NotificacionesDLQ.Inc()
}

func (m *Metrics) SetCircuitBreakerState(name string, state int) {
	if m == nil {
		return
	}
	m.CircuitBreakerState.WithLabelValues(name).Set(float64(state))
}
