package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/ghalamif/AegisInsight/internal/domain"
	"github.com/ghalamif/AegisInsight/internal/ports"
)

type PromObs struct {
	log       *zap.Logger
	counters  map[string]prometheus.Counter
	gauges    map[string]prometheus.Gauge
	histos    map[string]prometheus.Observer
	anomalies *prometheus.CounterVec
}

// NewPromObs registers the query metrics on reg, or on the default registerer
// when reg is nil. A nil logger discards logs.
func NewPromObs(reg prometheus.Registerer, logger *zap.Logger) *PromObs {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	fast := prometheus.NewCounter(prometheus.CounterOpts{
		Name: ports.MetricQueriesFast,
		Help: "Queries answered by the fast path.",
	})
	agent := prometheus.NewCounter(prometheus.CounterOpts{
		Name: ports.MetricQueriesAgent,
		Help: "Queries answered by the analysis orchestrator.",
	})
	fetchFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: ports.MetricFetchFailures,
		Help: "Store reads that failed or timed out.",
	})
	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: ports.MetricCacheHits,
		Help: "Analysis results served from the result cache.",
	})
	sinkFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: ports.MetricSinkFailures,
		Help: "Results a sink failed to accept.",
	})
	inflight := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: ports.MetricInflightQueries,
		Help: "Queries currently being processed.",
	})
	queryLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    ports.MetricQueryLatency,
		Help:    "Wall-clock time from query receipt to assembled result.",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
	})
	fetchLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    ports.MetricFetchLatency,
		Help:    "Duration of the parallel fact fetch.",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
	})
	anomalies := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: ports.MetricAnomalies,
		Help: "Data-quality anomalies found in fetched records.",
	}, []string{"code"})

	reg.MustRegister(fast, agent, fetchFailures, cacheHits, sinkFailures, inflight, queryLatency, fetchLatency, anomalies)

	return &PromObs{
		log: logger,
		counters: map[string]prometheus.Counter{
			ports.MetricQueriesFast:   fast,
			ports.MetricQueriesAgent:  agent,
			ports.MetricFetchFailures: fetchFailures,
			ports.MetricCacheHits:     cacheHits,
			ports.MetricSinkFailures:  sinkFailures,
		},
		gauges: map[string]prometheus.Gauge{
			ports.MetricInflightQueries: inflight,
		},
		histos: map[string]prometheus.Observer{
			ports.MetricQueryLatency: queryLatency,
			ports.MetricFetchLatency: fetchLatency,
		},
		anomalies: anomalies,
	}
}

func (p *PromObs) LogInfo(msg string, fields ...ports.Field) {
	p.log.Info(msg, zapFields(fields)...)
}

func (p *PromObs) LogError(msg string, err error, fields ...ports.Field) {
	p.log.Error(msg, append(zapFields(fields), zap.Error(err))...)
}

func (p *PromObs) LogCritical(msg string, err error, fields ...ports.Field) {
	p.log.Error(msg, append(zapFields(fields), zap.Error(err), zap.String("severity", "critical"))...)
}

func (p *PromObs) IncCounter(name string, v float64) {
	if c, ok := p.counters[name]; ok {
		c.Add(v)
	}
}

func (p *PromObs) ObserveLatency(name string, seconds float64) {
	if h, ok := p.histos[name]; ok {
		h.Observe(seconds)
	}
}

func (p *PromObs) SetGauge(name string, v float64) {
	if g, ok := p.gauges[name]; ok {
		g.Set(v)
	}
}

func (p *PromObs) RecordAnomaly(w domain.Warning) {
	p.anomalies.WithLabelValues(w.Code).Inc()
	p.log.Debug("data_anomaly", zap.String("code", w.Code), zap.String("record_id", w.RecordID), zap.String("message", w.Message))
}

func zapFields(fields []ports.Field) []zap.Field {
	out := make([]zap.Field, 0, len(fields)+2)
	for _, f := range fields {
		out = append(out, zap.Any(f.Key, f.Value))
	}
	return out
}

var _ ports.Observability = (*PromObs)(nil)
