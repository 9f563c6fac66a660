package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ghalamif/AegisInsight/internal/app/assembler"
	"github.com/ghalamif/AegisInsight/internal/app/fastpath"
	"github.com/ghalamif/AegisInsight/internal/app/orchestrator"
	"github.com/ghalamif/AegisInsight/internal/classifier"
	"github.com/ghalamif/AegisInsight/internal/domain"
	"github.com/ghalamif/AegisInsight/internal/ports"
	"github.com/ghalamif/AegisInsight/internal/timewindow"
)

// Request is one query. Scope and AnalysisType are optional overrides; a
// forced type always takes the agent tier.
type Request struct {
	Query        string
	Now          time.Time
	Scope        ports.EquipmentScope
	AnalysisType domain.AnalysisType
}

type QueryPipeline struct {
	cls      *classifier.Classifier
	fast     *fastpath.Processor
	agent    *orchestrator.Orchestrator
	cache    ports.ResultCache
	sinks    []ports.ResultSink
	obs      ports.Observability
	tracer   trace.Tracer
	inflight atomic.Int64
}

// NewQueryPipeline wires both tiers. cache may be nil.
func NewQueryPipeline(cls *classifier.Classifier, fast *fastpath.Processor, agent *orchestrator.Orchestrator, cache ports.ResultCache, sinks []ports.ResultSink, obs ports.Observability) *QueryPipeline {
	return &QueryPipeline{
		cls:    cls,
		fast:   fast,
		agent:  agent,
		cache:  cache,
		sinks:  sinks,
		obs:    obs,
		tracer: otel.Tracer("github.com/ghalamif/AegisInsight/internal/app/pipeline"),
	}
}

// Classify exposes the routing decision without answering the query.
func (p *QueryPipeline) Classify(query string) (classifier.Classification, domain.Tier) {
	c := p.cls.Classify(query)
	return c, p.cls.Route(c.RoutingScore)
}

// Process is the single entry point: classify, route, answer, normalize and
// hand the result to every sink.
func (p *QueryPipeline) Process(ctx context.Context, query string, now time.Time) domain.AnalysisResult {
	return p.Handle(ctx, Request{Query: query, Now: now})
}

func (p *QueryPipeline) Handle(ctx context.Context, req Request) domain.AnalysisResult {
	start := time.Now()
	p.obs.SetGauge(ports.MetricInflightQueries, float64(p.inflight.Add(1)))
	defer func() { p.obs.SetGauge(ports.MetricInflightQueries, float64(p.inflight.Add(-1))) }()

	ctx, span := p.tracer.Start(ctx, "pipeline.process")
	defer span.End()

	c, tier := p.Classify(req.Query)
	if req.AnalysisType != "" {
		tier = domain.TierAgent
	}
	span.SetAttributes(
		attribute.String("aegis.tier", string(tier)),
		attribute.Int("aegis.routing_score", c.RoutingScore),
	)

	var res domain.AnalysisResult
	switch tier {
	case domain.TierAgent:
		p.obs.IncCounter(ports.MetricQueriesAgent, 1)
		res = p.analyze(ctx, req)
	default:
		p.obs.IncCounter(ports.MetricQueriesFast, 1)
		res = p.fast.Handle(ctx, req.Query, req.Now)
		res.RoutingScore = c.RoutingScore
	}

	res = assembler.Assemble(res, tier, start)
	p.obs.ObserveLatency(ports.MetricQueryLatency, res.ExecutionTime.Seconds())
	p.deliver(ctx, res)
	return res
}

func (p *QueryPipeline) analyze(ctx context.Context, req Request) domain.AnalysisResult {
	if p.cache == nil {
		return p.agent.Run(ctx, orchestrator.Request(req))
	}

	key := CacheKey(req)
	if hit, ok, err := p.cache.Get(ctx, key); err != nil {
		p.obs.LogError("result_cache_get_failed", err, ports.Field{Key: "key", Value: key})
	} else if ok {
		p.obs.IncCounter(ports.MetricCacheHits, 1)
		hit.ID = ""
		hit.Cached = true
		return hit
	}

	res := p.agent.Run(ctx, orchestrator.Request(req))
	if res.FetchError == "" && !res.NoData {
		if err := p.cache.Set(ctx, key, res); err != nil {
			p.obs.LogError("result_cache_set_failed", err, ports.Field{Key: "key", Value: key})
		}
	}
	return res
}

func (p *QueryPipeline) deliver(ctx context.Context, res domain.AnalysisResult) {
	for _, s := range p.sinks {
		if err := s.Deliver(ctx, res); err != nil {
			p.obs.IncCounter(ports.MetricSinkFailures, 1)
			p.obs.LogError("result_sink_failed", err, ports.Field{Key: "sink", Value: s.Name()}, ports.Field{Key: "result_id", Value: res.ID})
		}
	}
}

// CacheKey identifies an agent answer by normalized query text, the resolved
// window truncated to the minute, the scope and any forced type.
func CacheKey(req Request) string {
	win := timewindow.Extract(req.Query, req.Now)
	raw := fmt.Sprintf("%s|%d|%d|%s|%s",
		strings.Join(strings.Fields(strings.ToLower(req.Query)), " "),
		win.Start.Truncate(time.Minute).Unix(),
		win.End.Truncate(time.Minute).Unix(),
		req.Scope.EquipmentID,
		req.AnalysisType,
	)
	sum := sha256.Sum256([]byte(raw))
	return "aegis:result:" + hex.EncodeToString(sum[:16])
}
