package storage

import "github.com/prometheus/client_golang/prometheus"

const (
	retryReasonLocked   = "locked"
	retryReasonNotEmpty = "not_empty"
	retryReasonConflict = "conflict"
)

// Metrics counts cache and allocation events. A nil *Metrics is valid and records nothing.
type Metrics struct {
	cacheHits         prometheus.Counter
	cacheMisses       prometheus.Counter
	generated         prometheus.Counter
	allocationRetries *prometheus.CounterVec
	removed           prometheus.Counter
}

func NewMetrics(registerer prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "imagestorage_formatted_cache_hits_total",
			Help: "Formatted image requests served from existing derivatives.",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "imagestorage_formatted_cache_misses_total",
			Help: "Formatted image requests without a usable derivative.",
		}),
		generated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "imagestorage_formatted_generated_total",
			Help: "Derivatives generated and stored.",
		}),
		allocationRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "imagestorage_allocation_retries_total",
			Help: "File allocation candidates abandoned, by reason.",
		}, []string{"reason"}),
		removed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "imagestorage_images_removed_total",
			Help: "Images removed from storage.",
		}),
	}

	if registerer != nil {
		for _, collector := range []prometheus.Collector{
			m.cacheHits, m.cacheMisses, m.generated, m.allocationRetries, m.removed,
		} {
			if err := registerer.Register(collector); err != nil {
				return nil, err
			}
		}
	}

	return m, nil
}

func (m *Metrics) cacheHit() {
	if m != nil {
		m.cacheHits.Inc()
	}
}

func (m *Metrics) cacheMiss() {
	if m != nil {
		m.cacheMisses.Inc()
	}
}

func (m *Metrics) derivativeGenerated() {
	if m != nil {
		m.generated.Inc()
	}
}

func (m *Metrics) allocationRetry(reason string) {
	if m != nil {
		m.allocationRetries.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) imageRemoved() {
	if m != nil {
		m.removed.Inc()
	}
}
