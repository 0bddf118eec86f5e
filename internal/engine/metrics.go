package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("viki.engine")

var (
	lookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "viki_lookups_total",
		Help: "Content service lookups by query and result",
	}, []string{"query", "result"})

	lookupDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "viki_lookup_duration_seconds",
		Help:    "Content service lookup duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
	}, []string{"query"})

	elaborationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "viki_elaborations_total",
		Help: "Elaborations by pass and outcome",
	}, []string{"pass", "outcome"})

	graphNodes = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "viki_graph_nodes",
		Help: "Nodes in the graph by collection",
	}, []string{"collection"})

	graphLinks = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "viki_graph_links",
		Help: "Links in the graph by collection",
	}, []string{"collection"})
)
