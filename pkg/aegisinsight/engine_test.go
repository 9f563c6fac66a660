package aegisinsight

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/ghalamif/AegisInsight/internal/adapters/journal"
)

var testNow = time.Date(2025, time.March, 12, 15, 30, 0, 0, time.UTC)

func seededStore() *MemoryStore {
	m := NewMemoryStore()
	m.AddEquipment(
		Equipment{ID: "eq-1", Code: "PRESS-01", Name: "Press 1", TheoreticalRate: 100},
		Equipment{ID: "eq-2", Code: "CNC-02", Name: "CNC 2", TheoreticalRate: 60},
	)
	start := testNow.Add(-24 * time.Hour)
	m.AddProduction(
		ProductionRecord{ID: "r1", EquipmentID: "eq-1", StartTime: start, PlannedProductionTime: 8 * time.Hour, OperatingTime: 8 * time.Hour, TotalParts: 640, GoodParts: 608, ScrapParts: 32},
		ProductionRecord{ID: "r2", EquipmentID: "eq-2", StartTime: start.Add(time.Hour), PlannedProductionTime: 8 * time.Hour, OperatingTime: 7 * time.Hour, TotalParts: 400, GoodParts: 390, ScrapParts: 10},
	)
	m.AddScrap(
		ScrapRecord{ID: "s1", ProductionRecordID: "r1", EquipmentID: "eq-1", ReasonCode: "PORE", Quantity: 20},
		ScrapRecord{ID: "s2", ProductionRecordID: "r1", EquipmentID: "eq-1", ReasonCode: "CRACK", Quantity: 12},
		ScrapRecord{ID: "s3", ProductionRecordID: "r2", EquipmentID: "eq-2", ReasonCode: "BURR", Quantity: 10},
	)
	return m
}

func newTestEngine(t *testing.T, opts ...EngineOption) *Engine {
	t.Helper()
	base := []EngineOption{
		WithStore(seededStore()),
		WithLogger(zap.NewNop()),
		WithClock(func() time.Time { return testNow }),
	}
	e, err := NewEngine(DefaultConfig(), append(base, opts...)...)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	t.Cleanup(func() { _ = e.Shutdown(context.Background()) })
	return e
}

func counterValue(t *testing.T, e *Engine, name string) float64 {
	t.Helper()
	mfs, err := e.Gatherer().Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf.GetMetric()[0].GetCounter().GetValue()
		}
	}
	t.Fatalf("metric %s not registered", name)
	return 0
}

func TestEngineFastLookup(t *testing.T) {
	e := newTestEngine(t)

	res := e.Process(context.Background(), "list my machines")
	if res.Tier != TierFast || res.Confidence != 1 {
		t.Fatalf("expected confident fast answer, got %s %.2f", res.Tier, res.Confidence)
	}
	if res.ID == "" || res.ExecutionTime <= 0 {
		t.Fatalf("envelope not assembled: %+v", res)
	}
	if v := counterValue(t, e, "aegis_queries_fast_total"); v != 1 {
		t.Fatalf("expected fast counter 1, got %v", v)
	}
}

func TestEngineDefectRanking(t *testing.T) {
	sink, ch, closeFn := NewChannelSink("nlg", 1)
	defer closeFn()
	e := newTestEngine(t, WithResultSink(sink))

	res := e.Process(context.Background(), "What are the top defects this week?")
	if res.Tier != TierAgent || res.AnalysisType != AnalysisQuality {
		t.Fatalf("expected agent quality analysis, got %s/%s", res.Tier, res.AnalysisType)
	}
	items := res.Metrics.Scrap.Items
	if len(items) != 3 || items[0].Reason != "PORE" {
		t.Fatalf("unexpected ranking %+v", items)
	}

	select {
	case got := <-ch:
		if got.ID != res.ID {
			t.Fatalf("sink received a different result")
		}
	case <-time.After(time.Second):
		t.Fatalf("sink did not receive the result")
	}
}

func TestEngineScopedRequest(t *testing.T) {
	e := newTestEngine(t)

	res := e.Handle(context.Background(), Request{Query: "top defects this week", Scope: SingleEquipment("cnc-02")})
	items := res.Metrics.Scrap.Items
	if len(items) != 1 || items[0].Reason != "BURR" {
		t.Fatalf("expected scrap of CNC-02 only, got %+v", items)
	}
}

func TestEngineClassify(t *testing.T) {
	e := newTestEngine(t)
	c, tier := e.Classify("Why did OEE drop on line 4 yesterday? root cause please")
	if tier != TierAgent || c.RoutingScore < 8 {
		t.Fatalf("expected agent routing, got %s score=%d", tier, c.RoutingScore)
	}
}

func TestNewEngineRequiresConfigAndStore(t *testing.T) {
	if _, err := NewEngine(nil); err == nil {
		t.Fatalf("expected error for nil config")
	}
	if _, err := NewEngine(DefaultConfig(), WithLogger(zap.NewNop())); err == nil {
		t.Fatalf("expected error without a store")
	}
}

func TestNewEngineFromFixture(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plant.yaml")
	doc := `
equipment:
  - {id: eq-1, code: PRESS-01, name: Press 1, theoretical_rate: 100}
production:
  - {id: r1, equipment_id: eq-1, start: 2025-03-12T06:00:00Z, planned: 8h, operating: 8h, total: 800, good: 760, scrap: 40}
`
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	cfg := DefaultConfig()
	cfg.Fixture = path

	e, err := NewEngine(cfg, WithLogger(zap.NewNop()))
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	defer e.Shutdown(context.Background())

	res := e.ProcessAt(context.Background(), "show OEE today", testNow)
	if res.NoData || res.Metrics.OEE == nil {
		t.Fatalf("expected OEE from fixture, got %+v", res)
	}
	if res.Metrics.OEE.Quality != 0.95 {
		t.Fatalf("expected quality 0.95, got %v", res.Metrics.OEE.Quality)
	}
}

func TestEngineWritesResultJournal(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.Journal.Dir = dir

	e, err := NewEngine(cfg, WithStore(seededStore()), WithLogger(zap.NewNop()))
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	res := e.ProcessAt(context.Background(), "hello", testNow)
	if err := e.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	j, err := journal.Open(dir)
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	defer j.Close()
	var ids []string
	if err := j.Pending(func(_ journal.EntryID, r Result) error {
		ids = append(ids, r.ID)
		return nil
	}); err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(ids) != 1 || ids[0] != res.ID {
		t.Fatalf("expected journaled result %s, got %v", res.ID, ids)
	}
}
