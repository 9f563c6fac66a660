// Package orchestrator runs the analytical path: classify, resolve the time
// window, fetch facts once, compute and build the result.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/ghalamif/AegisInsight/internal/classifier"
	"github.com/ghalamif/AegisInsight/internal/domain"
	"github.com/ghalamif/AegisInsight/internal/kpi"
	"github.com/ghalamif/AegisInsight/internal/ports"
	"github.com/ghalamif/AegisInsight/internal/timewindow"
)

const (
	WarnRowLimitReached  = "row_limit_reached"
	WarnUnknownAnalysis  = "unknown_analysis_type"
	WarnNoDataInWindow   = "no_data_in_window"
	WarnFetchFailed      = "fetch_failed"
	instrumentationScope = "github.com/ghalamif/AegisInsight/internal/app/orchestrator"
)

// Request is one analytical question. Scope and AnalysisType are optional;
// when empty they come from the query text.
type Request struct {
	Query        string
	Now          time.Time
	Scope        ports.EquipmentScope
	AnalysisType domain.AnalysisType
}

type Orchestrator struct {
	store  ports.FactStore
	cls    *classifier.Classifier
	pol    ports.Policy
	obs    ports.Observability
	tracer trace.Tracer
}

func New(store ports.FactStore, cls *classifier.Classifier, pol ports.Policy, obs ports.Observability) *Orchestrator {
	pol = pol.WithDefaults()
	if cls == nil {
		cls = classifier.New(nil, pol.RoutingThreshold)
	}
	return &Orchestrator{
		store:  store,
		cls:    cls,
		pol:    pol,
		obs:    obs,
		tracer: otel.Tracer(instrumentationScope),
	}
}

// Analyze answers query as of now across the scope named in the text, if any.
func (o *Orchestrator) Analyze(ctx context.Context, query string, now time.Time) domain.AnalysisResult {
	return o.Run(ctx, Request{Query: query, Now: now})
}

// Run never returns a partial result: fetch failures and empty windows come
// back as well-formed results with NoData set.
func (o *Orchestrator) Run(ctx context.Context, req Request) domain.AnalysisResult {
	ctx, span := o.tracer.Start(ctx, "orchestrator.run")
	defer span.End()

	c := o.cls.Classify(req.Query)
	kind := c.AnalysisType
	if req.AnalysisType != "" {
		kind = req.AnalysisType
	}
	win := timewindow.Resolve(req.Query, req.Now)
	scope := req.Scope
	if scope.All() {
		scope = ScopeFromQuery(req.Query)
	}
	topN := c.TopN
	if topN <= 0 {
		topN = o.pol.TopN
	}

	span.SetAttributes(
		attribute.String("aegis.analysis_type", string(kind)),
		attribute.Int("aegis.routing_score", c.RoutingScore),
		attribute.String("aegis.window", win.Label),
		attribute.String("aegis.scope", scope.EquipmentID),
	)

	res := domain.AnalysisResult{
		AnalysisType: kind,
		Tier:         domain.TierAgent,
		RoutingScore: c.RoutingScore,
		Window:       win.Range,
		WindowLabel:  win.Label,
	}

	fs, err := o.fetch(ctx, scope, win.Range)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		o.obs.IncCounter(ports.MetricFetchFailures, 1)
		o.obs.LogError("orchestrator_fetch_failed", err,
			ports.Field{Key: "analysis_type", Value: string(kind)},
			ports.Field{Key: "scope", Value: scope.EquipmentID},
		)
		return degenerate(res, err)
	}

	res.Warnings = append(res.Warnings, o.rowLimitWarnings(fs)...)
	anomalies := kpi.Inspect(fs)
	for _, w := range anomalies {
		o.obs.RecordAnomaly(w)
	}
	res.Warnings = append(res.Warnings, anomalies...)

	_, cspan := o.tracer.Start(ctx, "orchestrator.compute")
	res.AnalysisType = o.checkType(kind, &res)
	metrics, warns := compute(res.AnalysisType, fs, win.Range, topN, scope.All())
	cspan.End()

	res.Metrics = &metrics
	res.Warnings = append(res.Warnings, warns...)
	res.DataPoints = fs.DataPoints()
	res.Visualizations = visualizations(res.AnalysisType, metrics)
	res.References = references(res.AnalysisType)
	if fs.Empty() {
		res.NoData = true
		res.Warnings = append(res.Warnings, domain.Warning{
			Code:    WarnNoDataInWindow,
			Message: fmt.Sprintf("no production, downtime or scrap records (%s)", win.Label),
		})
	}
	res.Confidence = Confidence(len(fs.Production), win.Range, o.pol.ExpectedRecordsPerHour, len(anomalies) > 0)
	res.Content = summarize(res.AnalysisType, metrics, win.Label, res.NoData)
	return res
}

// checkType guards the compute switch. An unknown type is a programming
// error: fatal in strict mode, otherwise answered as oee_analysis.
func (o *Orchestrator) checkType(kind domain.AnalysisType, res *domain.AnalysisResult) domain.AnalysisType {
	if kind.Analytical() {
		return kind
	}
	if o.pol.Strict {
		panic(fmt.Sprintf("orchestrator: no calculator for analysis type %q", kind))
	}
	o.obs.LogCritical("orchestrator_unknown_analysis_type", fmt.Errorf("analysis type %q", kind))
	res.Warnings = append(res.Warnings, domain.Warning{
		Code:    WarnUnknownAnalysis,
		Message: fmt.Sprintf("analysis type %q is not supported, answered as %s", kind, domain.AnalysisOEE),
	})
	return domain.AnalysisOEE
}

// fetch issues the four reads in parallel under the fetch timeout. It
// returns as soon as the deadline passes even if a store ignores ctx.
func (o *Orchestrator) fetch(ctx context.Context, scope ports.EquipmentScope, window domain.TimeRange) (kpi.FactSet, error) {
	ctx, span := o.tracer.Start(ctx, "orchestrator.fetch")
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, o.pol.FetchTimeout)
	defer cancel()

	start := time.Now()
	defer func() { o.obs.ObserveLatency(ports.MetricFetchLatency, time.Since(start).Seconds()) }()

	var (
		equipment  []domain.Equipment
		production []domain.ProductionRecord
		downtime   []domain.DowntimeRecord
		scrap      []domain.ScrapRecord
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		if equipment, err = o.store.FetchEquipment(gctx, scope); err != nil {
			return fmt.Errorf("fetch equipment: %w", err)
		}
		return nil
	})
	g.Go(func() (err error) {
		if production, err = o.store.FetchProduction(gctx, scope, window); err != nil {
			return fmt.Errorf("fetch production: %w", err)
		}
		return nil
	})
	g.Go(func() (err error) {
		if downtime, err = o.store.FetchDowntime(gctx, scope, window); err != nil {
			return fmt.Errorf("fetch downtime: %w", err)
		}
		return nil
	})
	g.Go(func() (err error) {
		if scrap, err = o.store.FetchScrap(gctx, scope, window); err != nil {
			return fmt.Errorf("fetch scrap: %w", err)
		}
		return nil
	})

	done := make(chan error, 1)
	go func() { done <- g.Wait() }()

	select {
	case err := <-done:
		if err != nil {
			return kpi.FactSet{}, err
		}
	case <-ctx.Done():
		return kpi.FactSet{}, fmt.Errorf("fetch: %w", ctx.Err())
	}

	span.SetAttributes(
		attribute.Int("aegis.rows.production", len(production)),
		attribute.Int("aegis.rows.downtime", len(downtime)),
		attribute.Int("aegis.rows.scrap", len(scrap)),
	)
	return kpi.FactSet{Equipment: equipment, Production: production, Downtime: downtime, Scrap: scrap}, nil
}

func (o *Orchestrator) rowLimitWarnings(fs kpi.FactSet) []domain.Warning {
	var out []domain.Warning
	for _, r := range []struct {
		name string
		n    int
	}{
		{"production", len(fs.Production)},
		{"downtime", len(fs.Downtime)},
		{"scrap", len(fs.Scrap)},
	} {
		if r.n >= o.pol.RowLimit {
			out = append(out, domain.Warning{
				Code:    WarnRowLimitReached,
				Message: fmt.Sprintf("%s read returned %d rows, the row limit; results may be truncated", r.name, r.n),
			})
		}
	}
	return out
}

// Confidence grows with the share of expected production records found.
// Zero records still score 0.3: an empty window is an answer. A zero-width
// window counts as fully covered only when it returned records.
func Confidence(records int, window domain.TimeRange, perHour float64, anomalies bool) float64 {
	expected := window.Duration().Hours() * perHour
	var coverage float64
	switch {
	case expected > 0:
		coverage = min(1, float64(records)/expected)
	case records > 0:
		coverage = 1
	}
	c := 0.3 + 0.65*coverage
	if anomalies {
		c -= 0.1
	}
	return c
}

func degenerate(res domain.AnalysisResult, err error) domain.AnalysisResult {
	res.Confidence = 0
	res.NoData = true
	res.FetchError = err.Error()
	res.DataPoints = 0
	res.Warnings = append(res.Warnings, domain.Warning{Code: WarnFetchFailed, Message: err.Error()})
	res.Content = "The production data could not be read in time, so no metrics were computed."
	return res
}
