package coordinator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds coordinator counters.
type Metrics struct {
	CacheHits          prometheus.Counter
	StoreHits          prometheus.Counter
	GenerationsTotal   prometheus.Counter
	GenerationTimeouts prometheus.Counter
	GenerationFailures prometheus.Counter
	AnswersPersisted   prometheus.Counter
}

// NewMetrics registers coordinator metrics on the given registerer.
// A nil registerer leaves the metrics unregistered, which suits tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		CacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "carad_coordinator_cache_hits_total",
			Help: "Submissions answered from the in-flight cache.",
		}),
		StoreHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "carad_coordinator_store_hits_total",
			Help: "Submissions answered from a recorded answer.",
		}),
		GenerationsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "carad_coordinator_generations_total",
			Help: "Background generations launched.",
		}),
		GenerationTimeouts: factory.NewCounter(prometheus.CounterOpts{
			Name: "carad_coordinator_generation_timeouts_total",
			Help: "Generations that hit the timeout and fell back.",
		}),
		GenerationFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "carad_coordinator_generation_failures_total",
			Help: "Generations that failed with a non-timeout error.",
		}),
		AnswersPersisted: factory.NewCounter(prometheus.CounterOpts{
			Name: "carad_coordinator_answers_persisted_total",
			Help: "Generated answers persisted to the answer store.",
		}),
	}
}
