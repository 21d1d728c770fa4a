// Package metrics exposes service counters in the Prometheus text format.
package metrics

import (
	"io"
	"net/http"

	"github.com/harmonia-vision/harmonia/internal/model"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/common/expfmt"
)

// Metrics owns a private registry so tests and multiple services do not collide.
type Metrics struct {
	Registry *prometheus.Registry

	SettingsWrites  *prometheus.CounterVec
	ExternalChanges prometheus.Counter
	BreakOutcomes   *prometheus.CounterVec
	PausePhase      *prometheus.GaugeVec
	RPCRequests     *prometheus.CounterVec
}

// New creates and registers every collector.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		SettingsWrites: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harmonia_settings_writes_total",
				Help: "Editor settings writes by mode and result.",
			},
			[]string{"mode", "result"}, // debounced | immediate, ok | error
		),
		ExternalChanges: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "harmonia_external_changes_total",
			Help: "Editor settings changes not caused by this service.",
		}),
		BreakOutcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harmonia_break_outcomes_total",
				Help: "Prompted breaks by outcome.",
			},
			[]string{"outcome"},
		),
		PausePhase: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "harmonia_pause_phase",
				Help: "1 for the current break-reminder phase, 0 otherwise.",
			},
			[]string{"phase"},
		),
		RPCRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harmonia_rpc_requests_total",
				Help: "Socket RPC requests by method and result.",
			},
			[]string{"method", "result"},
		),
	}
	m.Registry.MustRegister(m.SettingsWrites, m.ExternalChanges, m.BreakOutcomes, m.PausePhase, m.RPCRequests)
	return m
}

// ObserveWrite counts one settings write.
func (m *Metrics) ObserveWrite(mode string, err error) {
	if m == nil {
		return
	}
	m.SettingsWrites.WithLabelValues(mode, resultLabel(err)).Inc()
}

// ObserveRPC counts one socket RPC request.
func (m *Metrics) ObserveRPC(method string, err error) {
	if m == nil {
		return
	}
	m.RPCRequests.WithLabelValues(method, resultLabel(err)).Inc()
}

// ObserveOutcome counts one break outcome.
func (m *Metrics) ObserveOutcome(o model.BreakOutcome) {
	if m == nil {
		return
	}
	m.BreakOutcomes.WithLabelValues(string(o)).Inc()
}

// SetPhase marks phase as the current phase.
func (m *Metrics) SetPhase(phase model.Phase) {
	if m == nil {
		return
	}
	for _, p := range []model.Phase{model.PhaseInactive, model.PhaseActive, model.PhaseOnBreak} {
		v := 0.0
		if p == phase {
			v = 1
		}
		m.PausePhase.WithLabelValues(string(p)).Set(v)
	}
}

// Handler serves the registry over HTTP.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// WritePrometheus writes the text exposition format to w.
func (m *Metrics) WritePrometheus(w io.Writer) error {
	families, err := m.Registry.Gather()
	if err != nil {
		return err
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
