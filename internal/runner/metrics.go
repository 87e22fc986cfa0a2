package runner

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics: собственный registry, чтобы тесты могли создавать их сколько угодно.
type Metrics struct {
	Registry *prometheus.Registry

	trades          *prometheus.CounterVec // result
	tradeDuration   prometheus.Histogram
	protection      *prometheus.CounterVec // kind, result
	guardianOutcome *prometheus.CounterVec // outcome
	guardiansActive prometheus.Gauge
	forceCloses     *prometheus.CounterVec // reason, result
}

func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		trades: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "guard_trades_total",
				Help: "Trade executions by result",
			},
			[]string{"result"},
		),
		tradeDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "guard_trade_duration_seconds",
				Help:    "Synchronous execution time, lock to return",
				Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30},
			},
		),
		protection: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "guard_protection_orders_total",
				Help: "Conditional orders placed by kind and result",
			},
			[]string{"kind", "result"},
		),
		guardianOutcome: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "guard_guardian_outcomes_total",
				Help: "Finished guardian tasks by outcome",
			},
			[]string{"outcome"},
		),
		guardiansActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "guard_guardians_active",
				Help: "Guardian tasks currently waiting or checking",
			},
		),
		forceCloses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "guard_force_closes_total",
				Help: "Market closes issued by the service",
			},
			[]string{"reason", "result"},
		),
	}
	m.Registry.MustRegister(
		m.trades,
		m.tradeDuration,
		m.protection,
		m.guardianOutcome,
		m.guardiansActive,
		m.forceCloses,
	)
	return m
}

func (m *Metrics) observeTrade(err error, took time.Duration) {
	m.trades.WithLabelValues(resultLabel(err)).Inc()
	m.tradeDuration.Observe(took.Seconds())
}

func (m *Metrics) observeProtection(kind string, err error) {
	res := "ok"
	if err != nil {
		res = "error"
	}
	m.protection.WithLabelValues(kind, res).Inc()
}

func (m *Metrics) observeClose(reason string, err error) {
	res := "ok"
	if err != nil {
		res = "error"
	}
	m.forceCloses.WithLabelValues(reason, res).Inc()
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrLockContention):
		return "lock_contention"
	case errors.Is(err, ErrInvalidQuantity):
		return "invalid_quantity"
	case errors.Is(err, ErrFillTimeout):
		return "fill_timeout"
	case errors.Is(err, ErrTpSlMismatch):
		return "tp_sl_mismatch"
	case errors.Is(err, ErrGateway):
		return "gateway_error"
	}
	return "other"
}
