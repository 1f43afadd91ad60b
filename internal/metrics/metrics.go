package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Session metrics
	SummarizationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tradesync_session_summarizations_total",
			Help: "Total in-session summarization attempts",
		},
		[]string{"status"}, // status: ok|empty|error
	)

	SessionEventsTrimmed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tradesync_session_events_trimmed_total",
			Help: "Total events dropped from session logs by summarization or the hard cap",
		},
	)

	// Memory metrics
	MemoryConsolidations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tradesync_memory_consolidations_total",
			Help: "Total long-term memory consolidation attempts",
		},
		[]string{"status"}, // status: ok|skipped|error
	)

	// Cache metrics
	CacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tradesync_cache_lookups_total",
			Help: "Similarity-search cache lookups",
		},
		[]string{"cache", "result"}, // cache: memory|knowledge, result: hit|miss
	)

	// Trading metrics
	TradeRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tradesync_trade_requests_total",
			Help: "Trade execution requests by outcome",
		},
		[]string{"outcome"}, // outcome: executed|paper|blocked|rejected|failed
	)
)

// Register registers all collectors with the default registry.
func Register() {
	prometheus.MustRegister(
		SummarizationsTotal,
		SessionEventsTrimmed,
		MemoryConsolidations,
		CacheLookups,
		TradeRequests,
	)
}

// Handler returns the HTTP handler exposing the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
