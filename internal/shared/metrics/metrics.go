package metrics

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every collector exposed at /metrics.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

var (
	analysisSubmittedTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "budget_analysis_submitted_total",
		Help: "Total analyses submitted, by kind.",
	}, []string{"kind"})

	analysisFailedTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "budget_analysis_failed_total",
		Help: "Total analyses that failed, by kind and reason.",
	}, []string{"kind", "reason"})

	normalizationSourceTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "budget_normalization_source_total",
		Help: "Which payload source supplied each canonical field.",
	}, []string{"field", "source"})

	offerProjectionsTotal = factory.NewCounter(prometheus.CounterOpts{
		Name: "budget_offer_projections_total",
		Help: "Total offer projections computed.",
	})

	upstreamDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "budget_analyzer_request_duration_ms",
		Help:    "Upstream analyzer latency in milliseconds.",
		Buckets: []float64{100, 250, 500, 1000, 2000, 5000, 10000, 30000, 60000, 120000},
	}, []string{"kind"})
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// IncAnalysisSubmitted increments the submitted counter for kind.
func IncAnalysisSubmitted(kind string) {
	analysisSubmittedTotal.WithLabelValues(kind).Inc()
}

// IncAnalysisFailed increments the failed counter.
func IncAnalysisFailed(kind, reason string) {
	analysisFailedTotal.WithLabelValues(kind, reason).Inc()
}

// ObserveProvenance counts the winning source of every resolved field.
func ObserveProvenance(provenance map[string]string) {
	for field, source := range provenance {
		normalizationSourceTotal.WithLabelValues(field, source).Inc()
	}
}

// IncOfferProjection increments the offer projection counter.
func IncOfferProjection() {
	offerProjectionsTotal.Inc()
}

// ObserveUpstreamDuration records an upstream call duration.
func ObserveUpstreamDuration(kind string, d time.Duration) {
	if d < 0 {
		d = 0
	}
	upstreamDuration.WithLabelValues(kind).Observe(float64(d) / float64(time.Millisecond))
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
	return gin.WrapH(h)
}
