package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "bridgewatch"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	probeResults      *prom.CounterVec
	sessionDuration   *prom.HistogramVec
	sessionOutcomes   *prom.CounterVec
	sessionInProgress prom.Gauge
	connected         prom.Gauge
	reconnects        prom.Counter
	signals           *prom.CounterVec
}

// NewPrometheusRecorder constructs the metrics and registers them on reg.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		probeResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "probe_results_total",
			Help:      "Identity probe results by classification",
		}, []string{"result"}),
		sessionDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "discovery_session_duration_seconds",
			Help:      "Duration of discovery sessions",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 5, 15, 30, 60, 120},
		}, []string{"outcome"}),
		sessionOutcomes: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "discovery_sessions_total",
			Help:      "Discovery sessions by outcome",
		}, []string{"outcome"}),
		sessionInProgress: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "discovery_in_progress",
			Help:      "1 while a discovery session is running",
		}),
		connected: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "connected",
			Help:      "1 while connected to a validated server",
		}),
		reconnects: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "reconnects_scheduled_total",
			Help:      "Automatic reconnect attempts scheduled",
		}),
		signals: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "signals_total",
			Help:      "Inbound signals by type",
		}, []string{"type"}),
	}
	reg.MustRegister(pr.probeResults, pr.sessionDuration, pr.sessionOutcomes,
		pr.sessionInProgress, pr.connected, pr.reconnects, pr.signals)
	return pr
}

func (p *PrometheusRecorder) IncProbeResult(result string) {
	if p == nil {
		return
	}
	p.probeResults.WithLabelValues(result).Inc()
}

func (p *PrometheusRecorder) ObserveSessionDuration(outcome string, d time.Duration) {
	if p == nil {
		return
	}
	p.sessionDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncSessionOutcome(outcome string) {
	if p == nil {
		return
	}
	p.sessionOutcomes.WithLabelValues(outcome).Inc()
}

func (p *PrometheusRecorder) SetSessionInProgress(running bool) {
	if p == nil {
		return
	}
	p.sessionInProgress.Set(boolToFloat(running))
}

func (p *PrometheusRecorder) SetConnected(connected bool) {
	if p == nil {
		return
	}
	p.connected.Set(boolToFloat(connected))
}

func (p *PrometheusRecorder) IncReconnectScheduled() {
	if p == nil {
		return
	}
	p.reconnects.Inc()
}

func (p *PrometheusRecorder) IncSignal(signalType string) {
	if p == nil {
		return
	}
	p.signals.WithLabelValues(signalType).Inc()
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
