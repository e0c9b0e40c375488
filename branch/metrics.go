package branch

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts save activity. A nil *Metrics records nothing.
type Metrics struct {
	Saves     *prometheus.CounterVec
	Conflicts *prometheus.CounterVec
	Writes    *prometheus.CounterVec
	SaveKeys  prometheus.Histogram
}

// NewMetrics creates unregistered collectors.
func NewMetrics() *Metrics {
	return &Metrics{
		Saves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "beanstore",
			Subsystem: "branch",
			Name:      "saves_total",
			Help:      "Number of branch saves by result.",
		}, []string{"result"}),
		Conflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "beanstore",
			Subsystem: "branch",
			Name:      "conflicts_total",
			Help:      "Number of conflicting keys found by saves.",
		}, []string{"kind"}),
		Writes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "beanstore",
			Subsystem: "branch",
			Name:      "writes_total",
			Help:      "Number of keys written into parents by saves.",
		}, []string{"kind"}),
		SaveKeys: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "beanstore",
			Subsystem: "branch",
			Name:      "save_keys",
			Help:      "Keys written per committed save.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		}),
	}
}

// Register registers every collector with r.
func (m *Metrics) Register(r prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{m.Saves, m.Conflicts, m.Writes, m.SaveKeys} {
		if err := r.Register(c); err != nil {
			return err
		}
	}
	return nil
}

const (
	resultCommitted = "committed"
	resultConflict  = "conflict"
	resultVetoed    = "vetoed"

	kindLifecycle = "lifecycle"
	kindField     = "field"
)

func (m *Metrics) saved(result string) {
	if m == nil {
		return
	}
	m.Saves.WithLabelValues(result).Inc()
}

func kindOf(lifecycle bool) string {
	if lifecycle {
		return kindLifecycle
	}
	return kindField
}

func (m *Metrics) conflict(lifecycle bool) {
	if m == nil {
		return
	}
	m.Conflicts.WithLabelValues(kindOf(lifecycle)).Inc()
}

func (m *Metrics) wrote(lifecycle bool) {
	if m == nil {
		return
	}
	m.Writes.WithLabelValues(kindOf(lifecycle)).Inc()
}

func (m *Metrics) committed(n int) {
	if m == nil {
		return
	}
	m.Saves.WithLabelValues(resultCommitted).Inc()
	m.SaveKeys.Observe(float64(n))
}
