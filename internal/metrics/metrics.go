// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "shadowcast"

// Registry is the registry served by Handler.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

var (
	// SessionOutcomes counts finished text sessions by kind and final state.
	SessionOutcomes = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "session_outcomes_total",
		Help:      "Streamed text sessions by kind and terminal state.",
	}, []string{"kind", "state"})

	// SessionDuration observes the time from stream start to finalization.
	SessionDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "session_duration_seconds",
		Help:      "Time from stream start to finalized text.",
		Buckets:   prometheus.ExponentialBuckets(0.25, 2, 8),
	}, []string{"kind"})

	// SynthesisCalls counts segment fetches by provider and result.
	SynthesisCalls = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "synthesis_requests_total",
		Help:      "Speech synthesis requests issued by the narration scheduler.",
	}, []string{"provider", "result"})

	// NarrationOutcomes counts finished narration runs.
	NarrationOutcomes = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "narration_outcomes_total",
		Help:      "Narration runs by outcome (completed, stopped, failed).",
	}, []string{"outcome"})

	// SegmentsPlayed counts segments handed to the audio player.
	SegmentsPlayed = factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "segments_played_total",
		Help:      "Narration segments played to completion or stop.",
	})
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// CacheStats is the view of a cache exported as metrics.
type CacheStats struct {
	Hits    uint64
	Misses  uint64
	Entries int
}

// RegisterCache exports hit, miss and size figures for a named cache. Only
// the first registration of a name takes effect.
func RegisterCache(name string, stats func() CacheStats) error {
	labels := prometheus.Labels{"cache": name}
	cs := []prometheus.Collector{
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "cache_hits_total",
			Help:        "Cache lookups answered from stored values.",
			ConstLabels: labels,
		}, func() float64 { return float64(stats().Hits) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "cache_misses_total",
			Help:        "Cache lookups that started or joined a computation.",
			ConstLabels: labels,
		}, func() float64 { return float64(stats().Misses) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "cache_entries",
			Help:        "Values currently stored.",
			ConstLabels: labels,
		}, func() float64 { return float64(stats().Entries) }),
	}
	for _, c := range cs {
		if err := Registry.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	return nil
}

// Handler serves the registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}
