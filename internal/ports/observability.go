package ports

import "github.com/ghalamif/AegisInsight/internal/domain"

type Observability interface {
	LogInfo(msg string, fields ...Field)
	LogError(msg string, err error, fields ...Field)
	LogCritical(msg string, err error, fields ...Field)

	IncCounter(name string, v float64)
	ObserveLatency(name string, seconds float64)

	SetGauge(name string, v float64)

	RecordAnomaly(w domain.Warning)
}

type Field struct {
	Key   string
	Value any
}

// Metric names understood by Observability implementations.
const (
	MetricQueriesFast     = "aegis_queries_fast_total"
	MetricQueriesAgent    = "aegis_queries_agent_total"
	MetricFetchFailures   = "aegis_fetch_failures_total"
	MetricAnomalies       = "aegis_data_anomalies_total"
	MetricCacheHits       = "aegis_cache_hits_total"
	MetricSinkFailures    = "aegis_sink_failures_total"
	MetricQueryLatency    = "aegis_query_latency_seconds"
	MetricFetchLatency    = "aegis_fetch_latency_seconds"
	MetricInflightQueries = "aegis_inflight_queries"
)
