package metrics

import "github.com/prometheus/client_golang/prometheus"

type Metrics struct {
	Resolutions    *prometheus.CounterVec
	Parses         prometheus.Counter
	CacheHits      prometheus.Counter
	CacheMisses    prometheus.Counter
	ArchMismatches prometheus.Counter
	Errors         *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "unwindkit_mapinfo_resolutions_total",
			Help: "Total number of byte-source resolutions by outcome",
		}, []string{"outcome"}),
		Parses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "unwindkit_mapinfo_parses_total",
			Help: "Total number of object parses",
		}),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "unwindkit_mapinfo_object_cache_hits_total",
			Help: "Total number of object cache hits",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "unwindkit_mapinfo_object_cache_misses_total",
			Help: "Total number of object cache misses",
		}),
		ArchMismatches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "unwindkit_mapinfo_arch_mismatches_total",
			Help: "Total number of objects invalidated for an unexpected architecture",
		}),
		Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "unwindkit_mapinfo_errors_total",
			Help: "Total number of errors while building byte sources",
		}, []string{"error"}),
	}

	if reg != nil {
		reg.MustRegister(
			m.Resolutions,
			m.Parses,
			m.CacheHits,
			m.CacheMisses,
			m.ArchMismatches,
			m.Errors,
		)
	}

	return m
}
