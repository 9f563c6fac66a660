package orchestrator

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/ghalamif/AegisInsight/internal/domain"
	"github.com/ghalamif/AegisInsight/internal/ports"
	"github.com/ghalamif/AegisInsight/internal/timewindow"
)

var now = time.Date(2025, time.March, 12, 15, 30, 0, 0, time.UTC)

type fakeStore struct {
	mu         sync.Mutex
	calls      map[string]int
	scopes     []ports.EquipmentScope
	windows    []domain.TimeRange
	equipment  []domain.Equipment
	production []domain.ProductionRecord
	downtime   []domain.DowntimeRecord
	scrap      []domain.ScrapRecord
	err        error
	block      bool
	ignoreCtx  chan struct{}
	ctxErrs    []error
}

func (f *fakeStore) enter(ctx context.Context, name string, scope ports.EquipmentScope, w domain.TimeRange) error {
	f.mu.Lock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[name]++
	f.scopes = append(f.scopes, scope)
	f.windows = append(f.windows, w)
	f.mu.Unlock()

	if f.ignoreCtx != nil {
		<-f.ignoreCtx
		return nil
	}
	if f.block {
		<-ctx.Done()
		f.mu.Lock()
		f.ctxErrs = append(f.ctxErrs, ctx.Err())
		f.mu.Unlock()
		return ctx.Err()
	}
	return f.err
}

func (f *fakeStore) FetchEquipment(ctx context.Context, scope ports.EquipmentScope) ([]domain.Equipment, error) {
	if err := f.enter(ctx, "equipment", scope, domain.TimeRange{}); err != nil {
		return nil, err
	}
	return f.equipment, nil
}

func (f *fakeStore) FetchProduction(ctx context.Context, scope ports.EquipmentScope, w domain.TimeRange) ([]domain.ProductionRecord, error) {
	if err := f.enter(ctx, "production", scope, w); err != nil {
		return nil, err
	}
	return f.production, nil
}

func (f *fakeStore) FetchDowntime(ctx context.Context, scope ports.EquipmentScope, w domain.TimeRange) ([]domain.DowntimeRecord, error) {
	if err := f.enter(ctx, "downtime", scope, w); err != nil {
		return nil, err
	}
	return f.downtime, nil
}

func (f *fakeStore) FetchScrap(ctx context.Context, scope ports.EquipmentScope, w domain.TimeRange) ([]domain.ScrapRecord, error) {
	if err := f.enter(ctx, "scrap", scope, w); err != nil {
		return nil, err
	}
	return f.scrap, nil
}

type mockObs struct {
	mu        sync.Mutex
	errors    []string
	critical  []string
	anomalies []domain.Warning
	counters  map[string]float64
}

func (m *mockObs) LogInfo(string, ...ports.Field) {}
func (m *mockObs) LogError(msg string, _ error, _ ...ports.Field) {
	m.mu.Lock()
	m.errors = append(m.errors, msg)
	m.mu.Unlock()
}
func (m *mockObs) LogCritical(msg string, _ error, _ ...ports.Field) {
	m.mu.Lock()
	m.critical = append(m.critical, msg)
	m.mu.Unlock()
}
func (m *mockObs) IncCounter(name string, v float64) {
	m.mu.Lock()
	if m.counters == nil {
		m.counters = map[string]float64{}
	}
	m.counters[name] += v
	m.mu.Unlock()
}
func (m *mockObs) ObserveLatency(string, float64) {}
func (m *mockObs) SetGauge(string, float64)       {}
func (m *mockObs) RecordAnomaly(w domain.Warning) {
	m.mu.Lock()
	m.anomalies = append(m.anomalies, w)
	m.mu.Unlock()
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func scrapStore() *fakeStore {
	f := &fakeStore{equipment: []domain.Equipment{{ID: "eq-1", Name: "Press 1", Code: "PRS-01", TheoreticalRate: 100}}}
	reasons := []string{"BURR", "CRACK", "DIM", "PAINT", "WARP", "SCRATCH", "PORE"}
	for i := 0; i < 7*24; i++ {
		id := fmt.Sprintf("p%d", i)
		f.production = append(f.production, domain.ProductionRecord{
			ID:                    id,
			EquipmentID:           "eq-1",
			StartTime:             now.Add(-time.Duration(i+1) * time.Hour),
			EndTime:               now.Add(-time.Duration(i) * time.Hour),
			PlannedProductionTime: time.Hour,
			OperatingTime:         time.Hour,
			TotalParts:            90,
			GoodParts:             90 - int64(i%7),
			ScrapParts:            int64(i % 7),
		})
		if i%7 > 0 {
			f.scrap = append(f.scrap, domain.ScrapRecord{
				ID:                 id + "-s",
				ProductionRecordID: id,
				EquipmentID:        "eq-1",
				ReasonCode:         reasons[i%7],
				Quantity:           int64(i % 7),
			})
		}
	}
	return f
}

func TestTopDefectsThisWeek(t *testing.T) {
	store := scrapStore()
	o := New(store, nil, ports.Policy{}, &mockObs{})

	res := o.Analyze(context.Background(), "What are the top 5 defect types this week?", now)
	if res.AnalysisType != domain.AnalysisQuality {
		t.Fatalf("expected quality_analysis, got %s", res.AnalysisType)
	}
	if res.RoutingScore < 8 {
		t.Fatalf("expected routing score >= 8, got %d", res.RoutingScore)
	}
	if res.Window.Duration() != 7*24*time.Hour || res.Window.End != now {
		t.Fatalf("unexpected window %+v", res.Window)
	}
	r := res.Metrics.Scrap
	if r == nil || len(r.Items) != 5 {
		t.Fatalf("expected top 5 defects, got %+v", r)
	}
	var sum float64
	for _, it := range r.Items {
		sum += it.Percentage
	}
	if sum > 100 || sum <= 0 {
		t.Fatalf("percentages sum to %v", sum)
	}
	if r.Items[0].Reason != "PORE" {
		t.Fatalf("expected PORE first, got %s", r.Items[0].Reason)
	}
	if res.Metrics.Quality == nil || !near(res.Confidence, 0.95) {
		t.Fatalf("unexpected quality/confidence: %+v %v", res.Metrics.Quality, res.Confidence)
	}
	for name, n := range store.calls {
		if n != 1 {
			t.Fatalf("%s fetched %d times", name, n)
		}
	}
	if len(store.calls) != 4 {
		t.Fatalf("expected four reads, got %v", store.calls)
	}
	if len(res.References) == 0 || len(res.Visualizations) == 0 {
		t.Fatalf("expected references and visualizations")
	}
}

func TestOEEWithNoData(t *testing.T) {
	o := New(&fakeStore{}, nil, ports.Policy{}, &mockObs{})

	res := o.Analyze(context.Background(), "Show OEE performance", now)
	if res.AnalysisType != domain.AnalysisOEE {
		t.Fatalf("expected oee_analysis, got %s", res.AnalysisType)
	}
	if res.DataPoints != 0 || !res.NoData {
		t.Fatalf("expected explicit no-data result, got %+v", res)
	}
	if res.Metrics == nil || res.Metrics.OEE == nil || res.Metrics.OEE.OEE != 0 {
		t.Fatalf("expected OEE 0, got %+v", res.Metrics)
	}
	if res.Confidence != 0.3 {
		t.Fatalf("empty window should score 0.3, got %v", res.Confidence)
	}
	if res.FetchError != "" {
		t.Fatalf("no-data is not a fetch error")
	}
}

func TestFetchTimeoutReturnsDegenerateResult(t *testing.T) {
	defer goleak.VerifyNone(t)

	obs := &mockObs{}
	o := New(&fakeStore{block: true}, nil, ports.Policy{FetchTimeout: 20 * time.Millisecond}, obs)

	start := time.Now()
	res := o.Analyze(context.Background(), "oee last week", now)
	if time.Since(start) > time.Second {
		t.Fatalf("fetch timeout not enforced")
	}
	if res.Confidence != 0 || res.FetchError == "" || !res.NoData {
		t.Fatalf("expected degenerate result, got %+v", res)
	}
	if !strings.Contains(res.FetchError, context.DeadlineExceeded.Error()) {
		t.Fatalf("unexpected fetch error %q", res.FetchError)
	}
	if obs.counters[ports.MetricFetchFailures] != 1 {
		t.Fatalf("expected fetch failure counter")
	}
}

func TestFetchTimeoutWithStoreIgnoringContext(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	o := New(&fakeStore{ignoreCtx: release}, nil, ports.Policy{FetchTimeout: 20 * time.Millisecond}, &mockObs{})

	start := time.Now()
	res := o.Analyze(context.Background(), "downtime pareto", now)
	if time.Since(start) > time.Second {
		t.Fatalf("caller was held by a store that ignores ctx")
	}
	if res.FetchError == "" {
		t.Fatalf("expected fetch error")
	}
}

func TestCallerCancellationStopsFetch(t *testing.T) {
	defer goleak.VerifyNone(t)

	store := &fakeStore{block: true}
	o := New(store, nil, ports.Policy{}, &mockObs{})

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(10*time.Millisecond, cancel)

	res := o.Analyze(ctx, "oee last week", now)
	if !strings.Contains(res.FetchError, context.Canceled.Error()) {
		t.Fatalf("expected cancellation, got %q", res.FetchError)
	}
}

func TestStoreErrorIsRecovered(t *testing.T) {
	o := New(&fakeStore{err: ports.ErrStoreUnavailable}, nil, ports.Policy{}, &mockObs{})

	res := o.Analyze(context.Background(), "downtime analysis yesterday", now)
	if res.Confidence != 0 || !strings.Contains(res.FetchError, ports.ErrStoreUnavailable.Error()) {
		t.Fatalf("expected degenerate result, got %+v", res)
	}
	if res.Metrics != nil {
		t.Fatalf("degenerate result carries no metrics")
	}
}

func TestScopeFromQueryReachesStore(t *testing.T) {
	store := &fakeStore{}
	o := New(store, nil, ports.Policy{}, &mockObs{})

	o.Analyze(context.Background(), "OEE for machine CNC-01 last week", now)
	for _, s := range store.scopes {
		if s.EquipmentID != "CNC-01" {
			t.Fatalf("expected CNC-01 scope, got %+v", s)
		}
	}

	store = &fakeStore{}
	o = New(store, nil, ports.Policy{}, &mockObs{})
	o.Run(context.Background(), Request{Query: "oee analysis", Now: now, Scope: ports.SingleEquipment("eq-9")})
	if store.scopes[0].EquipmentID != "eq-9" {
		t.Fatalf("request scope should win, got %+v", store.scopes[0])
	}
}

func TestScopeFromQuery(t *testing.T) {
	cases := []struct {
		query string
		want  string
	}{
		{"oee for machine CNC-01", "CNC-01"},
		{"downtime on press 4 yesterday", "4"},
		{"scrap on PRS-12 this week", "PRS-12"},
		{"top 5 defects this week", ""},
		{"between 2025-01-02 and 2025-01-05", ""},
	}
	for _, tc := range cases {
		if got := ScopeFromQuery(tc.query).EquipmentID; got != tc.want {
			t.Fatalf("ScopeFromQuery(%q) = %q, want %q", tc.query, got, tc.want)
		}
	}
}

func TestUnknownAnalysisType(t *testing.T) {
	obs := &mockObs{}
	o := New(&fakeStore{}, nil, ports.Policy{}, obs)

	res := o.Run(context.Background(), Request{Query: "anything", Now: now, AnalysisType: "capacity_planning"})
	if res.AnalysisType != domain.AnalysisOEE {
		t.Fatalf("expected oee fallback, got %s", res.AnalysisType)
	}
	if len(obs.critical) != 1 {
		t.Fatalf("expected critical log")
	}
	found := false
	for _, w := range res.Warnings {
		found = found || w.Code == WarnUnknownAnalysis
	}
	if !found {
		t.Fatalf("expected unknown analysis warning, got %+v", res.Warnings)
	}

	strict := New(&fakeStore{}, nil, ports.Policy{Strict: true}, obs)
	defer func() {
		if recover() == nil {
			t.Fatalf("strict mode should panic")
		}
	}()
	strict.Run(context.Background(), Request{Query: "anything", Now: now, AnalysisType: "capacity_planning"})
}

func TestRowLimitAndAnomalies(t *testing.T) {
	store := &fakeStore{
		equipment: []domain.Equipment{{ID: "eq-1", TheoreticalRate: 10}},
		production: []domain.ProductionRecord{
			{ID: "p1", EquipmentID: "eq-1", PlannedProductionTime: time.Hour, OperatingTime: time.Hour, TotalParts: 10, GoodParts: 12},
			{ID: "p2", EquipmentID: "eq-1", PlannedProductionTime: time.Hour, OperatingTime: time.Hour, TotalParts: 10, GoodParts: 10},
		},
	}
	obs := &mockObs{}
	o := New(store, nil, ports.Policy{RowLimit: 2}, obs)

	res := o.Analyze(context.Background(), "oee last 2 hours", now)
	codes := map[string]bool{}
	for _, w := range res.Warnings {
		codes[w.Code] = true
	}
	if !codes[WarnRowLimitReached] || !codes["parts_exceed_total"] {
		t.Fatalf("expected row limit and anomaly warnings, got %+v", res.Warnings)
	}
	if len(obs.anomalies) == 0 {
		t.Fatalf("anomalies should be recorded")
	}
	// two records over two hours at one per hour, minus the anomaly penalty
	if want := 0.85; !near(res.Confidence, want) {
		t.Fatalf("confidence = %v, want %v", res.Confidence, want)
	}
	if res.Metrics.OEE.OEE > 1 {
		t.Fatalf("OEE not clamped")
	}
}

func TestAnalysisTypesProduceTheirMetrics(t *testing.T) {
	store := scrapStore()
	store.downtime = []domain.DowntimeRecord{{ID: "d1", ProductionRecordID: "p1", ReasonCode: "JAM", Duration: 10 * time.Minute}}
	o := New(store, nil, ports.Policy{}, &mockObs{})

	cases := []struct {
		query string
		kind  domain.AnalysisType
		check func(domain.KPISet) bool
	}{
		{"downtime pareto last week", domain.AnalysisDowntime, func(m domain.KPISet) bool { return m.Downtime != nil && m.OEE != nil }},
		{"root cause of scrap last week", domain.AnalysisRootCause, func(m domain.KPISet) bool { return m.Downtime != nil && m.Scrap != nil }},
		{"mtbf and mttr last week", domain.AnalysisMaintenance, func(m domain.KPISet) bool { return m.Reliability != nil && m.Reliability.Events == 1 }},
		{"throughput analysis last week", domain.AnalysisProduction, func(m domain.KPISet) bool { return len(m.Trend) == 7 && len(m.ByEquipment) == 1 }},
		{"output trend over time last week", domain.AnalysisTrending, func(m domain.KPISet) bool { return len(m.Trend) == 7 && len(m.ByShift) == 1 && len(m.OEETrend) == 7 }},
	}
	for _, tc := range cases {
		res := o.Analyze(context.Background(), tc.query, now)
		if res.AnalysisType != tc.kind {
			t.Fatalf("%q: got %s, want %s", tc.query, res.AnalysisType, tc.kind)
		}
		if !tc.check(*res.Metrics) {
			t.Fatalf("%q: unexpected metrics %+v", tc.query, res.Metrics)
		}
		if res.Content == "" {
			t.Fatalf("%q: empty content", tc.query)
		}
	}
}

func TestConfidence(t *testing.T) {
	day := domain.TimeRange{Start: now.Add(-24 * time.Hour), End: now}
	if got := Confidence(0, day, 1, false); got != 0.3 {
		t.Fatalf("empty = %v", got)
	}
	if got := Confidence(48, day, 1, false); !near(got, 0.95) {
		t.Fatalf("saturated = %v", got)
	}
	if got := Confidence(12, day, 1, false); !near(got, 0.625) {
		t.Fatalf("half = %v", got)
	}
	if got := Confidence(0, domain.TimeRange{}, 1, false); got != 0.3 {
		t.Fatalf("empty window = %v", got)
	}
	if got := Confidence(3, domain.TimeRange{}, 1, false); !near(got, 0.95) {
		t.Fatalf("empty window with records = %v", got)
	}
	midnight := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	if got := Confidence(0, timewindow.Extract("show oee today", midnight), 1, false); got != 0.3 {
		t.Fatalf("today at midnight = %v", got)
	}
}
