package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics of the exchange. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	// Engine
	OperationsTotal  *prometheus.CounterVec
	TxRetriesTotal   *prometheus.CounterVec
	PointsCredited   *prometheus.CounterVec
	PointsDebited    *prometheus.CounterVec
	SettlementsTotal *prometheus.CounterVec

	// Verification gate
	TicketsIssuedTotal   *prometheus.CounterVec
	TicketsRejectedTotal *prometheus.CounterVec

	// HTTP
	HTTPRequestsTotal          *prometheus.CounterVec
	HTTPRequestDurationSeconds *prometheus.HistogramVec

	registry *prometheus.Registry
}

// New creates a new Metrics instance with all metrics registered on a
// private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		OperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "exchange_operations_total",
				Help: "Total number of ledger operations by outcome",
			},
			[]string{"op", "outcome"},
		),
		TxRetriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "exchange_tx_retries_total",
				Help: "Total number of transactions retried after a conflict",
			},
			[]string{"op"},
		),
		PointsCredited: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "exchange_points_credited_total",
				Help: "Total number of points credited to users",
			},
			[]string{"kind"},
		),
		PointsDebited: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "exchange_points_debited_total",
				Help: "Total number of points spent by users",
			},
			[]string{"kind"},
		),
		SettlementsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "exchange_settlements_total",
				Help: "Total number of settled task completions",
			},
			[]string{"exhausted"},
		),
		TicketsIssuedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "exchange_gate_tickets_issued_total",
				Help: "Total number of verification tickets issued",
			},
			[]string{"purpose"},
		),
		TicketsRejectedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "exchange_gate_tickets_rejected_total",
				Help: "Total number of verification tokens rejected",
			},
			[]string{"reason"},
		),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "exchange_http_requests_total",
				Help: "Total number of API requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDurationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "exchange_http_request_duration_seconds",
				Help:    "API request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "route"},
		),
		registry: reg,
	}

	reg.MustRegister(
		m.OperationsTotal,
		m.TxRetriesTotal,
		m.PointsCredited,
		m.PointsDebited,
		m.SettlementsTotal,
		m.TicketsIssuedTotal,
		m.TicketsRejectedTotal,
		m.HTTPRequestsTotal,
		m.HTTPRequestDurationSeconds,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveOperation counts one engine operation. outcome is "ok" or an error
// code.
func (m *Metrics) ObserveOperation(op, outcome string) {
	if m != nil {
		m.OperationsTotal.WithLabelValues(op, outcome).Inc()
	}
}

// IncTxRetry counts a transaction retried after a conflict.
func (m *Metrics) IncTxRetry(op string) {
	if m != nil {
		m.TxRetriesTotal.WithLabelValues(op).Inc()
	}
}

// AddPoints records a committed balance adjustment of amount points.
func (m *Metrics) AddPoints(kind string, amount float64) {
	if m == nil || amount == 0 {
		return
	}
	if amount > 0 {
		m.PointsCredited.WithLabelValues(kind).Add(amount)
		return
	}
	m.PointsDebited.WithLabelValues(kind).Add(-amount)
}

// IncSettlement counts a settled completion.
func (m *Metrics) IncSettlement(exhausted bool) {
	if m == nil {
		return
	}
	label := "false"
	if exhausted {
		label = "true"
	}
	m.SettlementsTotal.WithLabelValues(label).Inc()
}

// IncTicketIssued counts an issued verification ticket.
func (m *Metrics) IncTicketIssued(purpose string) {
	if m != nil {
		m.TicketsIssuedTotal.WithLabelValues(purpose).Inc()
	}
}

// IncTicketRejected counts a rejected verification token.
func (m *Metrics) IncTicketRejected(reason string) {
	if m != nil {
		m.TicketsRejectedTotal.WithLabelValues(reason).Inc()
	}
}

// ObserveHTTP records one served request.
func (m *Metrics) ObserveHTTP(method, route, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	m.HTTPRequestDurationSeconds.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
