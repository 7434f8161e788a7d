package orchestrator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts orchestrator outcomes. A nil *Metrics records nothing.
type Metrics struct {
	requests *prometheus.CounterVec
	lookups  *prometheus.CounterVec
}

// NewMetrics creates the orchestrator metrics and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		// Labels: outcome (none, duplicate, stale, presented)
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "compview",
			Subsystem: "orchestrator",
			Name:      "requests_total",
			Help:      "Show requests by outcome",
		}, []string{"outcome"}),
		// Labels: result (image, not-found), stage (path, dir, name)
		lookups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "compview",
			Subsystem: "orchestrator",
			Name:      "lookups_total",
			Help:      "Completed lookups by result and the stage that decided them",
		}, []string{"result", "stage"}),
	}
}

func (m *Metrics) request(o Outcome) {
	if m != nil {
		m.requests.WithLabelValues(o.String()).Inc()
	}
}

func (m *Metrics) lookup(k Kind, stage string) {
	if m != nil {
		m.lookups.WithLabelValues(k.String(), stage).Inc()
	}
}
