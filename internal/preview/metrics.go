package preview

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts preview cache activity. A nil *Metrics records nothing.
type Metrics struct {
	lookups       *prometheus.CounterVec
	evictions     prometheus.Counter
	invalidations prometheus.Counter
}

// NewMetrics creates the preview metrics and registers them with reg.
// A nil reg leaves them unregistered, which is what tests want.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		// Labels: kind (path, dir, name), result (hit, miss)
		lookups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "compview",
			Subsystem: "preview",
			Name:      "cache_lookups_total",
			Help:      "Preview cache lookups by key kind and result",
		}, []string{"kind", "result"}),
		evictions: f.NewCounter(prometheus.CounterOpts{
			Namespace: "compview",
			Subsystem: "preview",
			Name:      "cache_evictions_total",
			Help:      "Entries evicted because the preview cache was full",
		}),
		invalidations: f.NewCounter(prometheus.CounterOpts{
			Namespace: "compview",
			Subsystem: "preview",
			Name:      "cache_invalidations_total",
			Help:      "Whole-cache invalidations caused by image changes",
		}),
	}
}

func (m *Metrics) lookup(kind string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.lookups.WithLabelValues(kind, result).Inc()
}

func (m *Metrics) evicted() {
	if m != nil {
		m.evictions.Inc()
	}
}

func (m *Metrics) invalidated() {
	if m != nil {
		m.invalidations.Inc()
	}
}
