package kpi

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghalamif/AegisInsight/internal/domain"
)

var t0 = time.Date(2025, time.March, 10, 6, 0, 0, 0, time.UTC)

func press(rate float64) domain.Equipment {
	return domain.Equipment{ID: "eq-1", Name: "Press 1", Code: "PRS-01", TheoreticalRate: rate}
}

func run(id string, planned, operating time.Duration, total, good, scrap int64) domain.ProductionRecord {
	return domain.ProductionRecord{
		ID:                    id,
		EquipmentID:           "eq-1",
		StartTime:             t0,
		EndTime:               t0.Add(planned),
		PlannedProductionTime: planned,
		OperatingTime:         operating,
		TotalParts:            total,
		GoodParts:             good,
		ScrapParts:            scrap,
	}
}

func randomFactSet(r *rand.Rand) FactSet {
	fs := FactSet{Equipment: []domain.Equipment{
		{ID: "eq-1", TheoreticalRate: float64(r.Intn(200))},
		{ID: "eq-2", TheoreticalRate: float64(r.Intn(200) - 20)},
	}}
	for i := 0; i < r.Intn(8); i++ {
		id := fmt.Sprintf("p%d", i)
		fs.Production = append(fs.Production, domain.ProductionRecord{
			ID:                    id,
			EquipmentID:           fs.Equipment[r.Intn(2)].ID,
			ShiftID:               []string{"", "A", "B"}[r.Intn(3)],
			StartTime:             t0.Add(time.Duration(r.Intn(48)) * time.Hour),
			PlannedProductionTime: time.Duration(r.Intn(10)-1) * time.Hour,
			OperatingTime:         time.Duration(r.Intn(12)-1) * time.Hour,
			TotalParts:            int64(r.Intn(2000) - 100),
			GoodParts:             int64(r.Intn(2500)),
			ScrapParts:            int64(r.Intn(100)),
		})
		for j := 0; j < r.Intn(4); j++ {
			fs.Downtime = append(fs.Downtime, domain.DowntimeRecord{
				ID:                 fmt.Sprintf("%s-d%d", id, j),
				ProductionRecordID: id,
				ReasonCode:         []string{"JAM", "SETUP", "", "BREAKDOWN"}[r.Intn(4)],
				Duration:           time.Duration(r.Intn(300)-20) * time.Minute,
			})
		}
		for j := 0; j < r.Intn(3); j++ {
			fs.Scrap = append(fs.Scrap, domain.ScrapRecord{
				ID:                 fmt.Sprintf("%s-s%d", id, j),
				ProductionRecordID: id,
				ReasonCode:         []string{"BURR", "CRACK", "DIM"}[r.Intn(3)],
				Quantity:           int64(r.Intn(50) - 5),
			})
		}
	}
	return fs
}

func TestOEEIdentityAndBounds(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for i := 0; i < 500; i++ {
		fs := randomFactSet(r)
		b, _ := OEE(fs)
		a, _ := Availability(fs)
		p, _ := Performance(fs)
		q, _ := Quality(fs)

		require.Equal(t, a*p*q, b.OEE, "set %d", i)
		require.Equal(t, a, b.Availability)
		require.Equal(t, p, b.Performance)
		require.Equal(t, q, b.Quality)
		for name, v := range map[string]float64{"availability": a, "performance": p, "quality": q, "oee": b.OEE} {
			require.GreaterOrEqual(t, v, 0.0, "%s set %d", name, i)
			require.LessOrEqual(t, v, 1.0, "%s set %d", name, i)
		}
	}
}

func TestAvailabilityZeroPlanned(t *testing.T) {
	fs := FactSet{
		Equipment:  []domain.Equipment{press(60)},
		Production: []domain.ProductionRecord{run("p1", 0, 2*time.Hour, 100, 100, 0)},
	}
	a, warns := Availability(fs)
	assert.Equal(t, 0.0, a)
	assert.Empty(t, warns)

	b, _ := OEE(fs)
	assert.Equal(t, 0.0, b.OEE)
}

func TestScenarioPerfectAvailability(t *testing.T) {
	fs := FactSet{
		Equipment:  []domain.Equipment{press(20)},
		Production: []domain.ProductionRecord{run("p1", 8*time.Hour, 8*time.Hour, 100, 95, 5)},
	}
	b, warns := OEE(fs)
	require.Empty(t, warns)
	assert.Equal(t, 1.0, b.Availability)
	assert.Equal(t, 0.95, b.Quality)
	assert.Equal(t, 0.625, b.Performance)
	assert.Equal(t, b.Performance*0.95, b.OEE)
}

func TestAvailabilitySubtractsDowntime(t *testing.T) {
	fs := FactSet{
		Equipment:  []domain.Equipment{press(60)},
		Production: []domain.ProductionRecord{run("p1", 8*time.Hour, 8*time.Hour, 360, 360, 0)},
		Downtime: []domain.DowntimeRecord{
			{ID: "d1", ProductionRecordID: "p1", ReasonCode: "JAM", Duration: time.Hour},
			{ID: "d2", ProductionRecordID: "p1", ReasonCode: "SETUP", Duration: time.Hour},
		},
	}
	a, _ := Availability(fs)
	assert.Equal(t, 0.75, a)

	// 6h of run time at 60/h is 360 parts.
	p, _ := Performance(fs)
	assert.Equal(t, 1.0, p)
}

func TestQualityWithoutOutputIsOne(t *testing.T) {
	fs := FactSet{
		Equipment:  []domain.Equipment{press(60)},
		Production: []domain.ProductionRecord{run("p1", 8*time.Hour, 8*time.Hour, 0, 0, 0)},
	}
	q, warns := Quality(fs)
	assert.Equal(t, 1.0, q)
	assert.Empty(t, warns)

	b, _ := OEE(fs)
	assert.Equal(t, 0.0, b.Performance)
	assert.Equal(t, 0.0, b.OEE)

	q, _ = Quality(FactSet{})
	assert.Equal(t, 1.0, q)
}

func TestRatiosAreClampedWithWarning(t *testing.T) {
	fs := FactSet{
		Equipment:  []domain.Equipment{press(10)},
		Production: []domain.ProductionRecord{run("p1", time.Hour, 2*time.Hour, 100, 150, 0)},
	}
	b, warns := OEE(fs)
	assert.Equal(t, 1.0, b.Availability)
	assert.Equal(t, 1.0, b.Performance)
	assert.Equal(t, 1.0, b.Quality)
	assert.Len(t, warns, 3)
	for _, w := range warns {
		assert.Equal(t, WarnRatioClamped, w.Code)
	}

	anomalies := Inspect(fs)
	require.Len(t, anomalies, 1)
	assert.Equal(t, WarnPartsExceedTotal, anomalies[0].Code)
	assert.Equal(t, "p1", anomalies[0].RecordID)
}

func TestDowntimeBeyondOperatingClampsToZero(t *testing.T) {
	fs := FactSet{
		Equipment:  []domain.Equipment{press(10)},
		Production: []domain.ProductionRecord{run("p1", time.Hour, time.Hour, 5, 5, 0)},
		Downtime:   []domain.DowntimeRecord{{ID: "d1", ProductionRecordID: "p1", Duration: 3 * time.Hour}},
	}
	a, warns := Availability(fs)
	assert.Equal(t, 0.0, a)
	require.Len(t, warns, 1)

	codes := map[string]bool{}
	for _, w := range Inspect(fs) {
		codes[w.Code] = true
	}
	assert.True(t, codes[WarnDowntimeExceedsOperating])
}

func TestPerformanceSkipsMissingRate(t *testing.T) {
	fs := FactSet{
		Equipment: []domain.Equipment{press(0)},
		Production: []domain.ProductionRecord{
			run("p1", time.Hour, time.Hour, 50, 50, 0),
		},
	}
	p, warns := Performance(fs)
	assert.Equal(t, 0.0, p)
	require.Len(t, warns, 1)
	assert.Equal(t, WarnMissingTheoreticalRate, warns[0].Code)
	assert.Equal(t, "eq-1", warns[0].RecordID)
}

func TestInspectFlagsRecordAnomalies(t *testing.T) {
	bad := run("p1", -time.Hour, time.Hour, -1, 0, 0)
	bad.EndTime = bad.StartTime.Add(-time.Minute)
	fs := FactSet{
		Production: []domain.ProductionRecord{bad},
		Downtime:   []domain.DowntimeRecord{{ID: "d1", ProductionRecordID: "p1", Duration: -time.Minute}},
		Scrap:      []domain.ScrapRecord{{ID: "s1", ProductionRecordID: "p1", Quantity: 0}},
	}
	codes := map[string]int{}
	for _, w := range Inspect(fs) {
		codes[w.Code]++
	}
	assert.Equal(t, 1, codes[WarnEndBeforeStart])
	assert.Equal(t, 2, codes[WarnNegativeDuration])
	assert.Equal(t, 1, codes[WarnNegativeCount])
	assert.Equal(t, 1, codes[WarnPartsExceedTotal])
	assert.Equal(t, 1, codes[WarnNonPositiveScrap])
}

func TestRankDowntime(t *testing.T) {
	records := []domain.DowntimeRecord{
		{ReasonCode: "JAM", Duration: 30 * time.Minute},
		{ReasonCode: "SETUP", Duration: 45 * time.Minute},
		{ReasonCode: "JAM", Duration: 30 * time.Minute},
		{ReasonCode: "", Duration: 15 * time.Minute},
		{ReasonCode: "BREAKDOWN", Duration: -5 * time.Minute},
	}
	got := RankDowntime(records, 0)
	assert.Equal(t, "minutes", got.Unit)
	assert.Equal(t, 120.0, got.Total)
	require.Len(t, got.Items, 3)
	assert.Equal(t, domain.RankedReason{Reason: "JAM", Value: 60, Count: 2, Percentage: 50}, got.Items[0])
	assert.Equal(t, "SETUP", got.Items[1].Reason)
	assert.Equal(t, UnspecifiedReason, got.Items[2].Reason)
	assert.Equal(t, 100.0, got.Coverage)

	again := RankDowntime(records, 0)
	assert.Equal(t, got, again)
}

func TestRankDowntimeTiesAndTopN(t *testing.T) {
	records := []domain.DowntimeRecord{
		{ReasonCode: "B", Duration: time.Minute},
		{ReasonCode: "A", Duration: time.Minute},
		{ReasonCode: "C", Duration: 3 * time.Minute},
	}
	got := RankDowntime(records, 2)
	require.Len(t, got.Items, 2)
	assert.Equal(t, "C", got.Items[0].Reason)
	assert.Equal(t, "A", got.Items[1].Reason)
	assert.InDelta(t, 80.0, got.Coverage, 1e-9)
}

func TestRankingPercentagesNeverExceedHundred(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		fs := randomFactSet(r)
		for _, rk := range []domain.Ranking{RankDowntime(fs.Downtime, r.Intn(4)), RankScrap(fs.Scrap, r.Intn(4))} {
			var sum float64
			for _, it := range rk.Items {
				sum += it.Percentage
			}
			assert.LessOrEqual(t, sum, 100.0)
			assert.LessOrEqual(t, sum, rk.Coverage)
			assert.InDelta(t, rk.Coverage, sum, 1e-9)
		}
		full := RankDowntime(fs.Downtime, 0)
		if full.Total > 0 {
			assert.Equal(t, 100.0, full.Coverage)
			assert.Equal(t, 100.0, percentSum(full))
		}
	}
}

func TestRankingPercentagesSumToExactlyHundred(t *testing.T) {
	for _, mins := range [][]int{{1, 1, 7}, {33, 33, 37}, {1, 1, 1}, {10, 20, 30, 41}} {
		records := make([]domain.DowntimeRecord, 0, len(mins))
		for i, m := range mins {
			records = append(records, domain.DowntimeRecord{
				ReasonCode: string(rune('A' + i)),
				Duration:   time.Duration(m) * time.Minute,
			})
		}
		got := RankDowntime(records, 0)
		require.Len(t, got.Items, len(mins))
		assert.Equal(t, 100.0, got.Coverage)
		assert.Equal(t, 100.0, percentSum(got), "minutes %v", mins)
	}
}

func percentSum(r domain.Ranking) float64 {
	var sum float64
	for _, it := range r.Items {
		sum += it.Percentage
	}
	return sum
}

func TestRankScrap(t *testing.T) {
	records := []domain.ScrapRecord{
		{ReasonCode: "BURR", Quantity: 6},
		{ReasonCode: "CRACK", Quantity: 2},
		{ReasonCode: "BURR", Quantity: 2},
		{ReasonCode: "DIM", Quantity: 0},
	}
	got := RankScrap(records, 5)
	assert.Equal(t, "parts", got.Unit)
	require.Len(t, got.Items, 2)
	assert.InDelta(t, 80.0, got.Items[0].Percentage, 1e-9)
	assert.InDelta(t, 20.0, got.Items[1].Percentage, 1e-9)

	empty := RankScrap(nil, 5)
	assert.Empty(t, empty.Items)
	assert.Equal(t, 0.0, empty.Coverage)
}

func TestProductionTrend(t *testing.T) {
	window := domain.TimeRange{Start: t0, End: t0.Add(3 * time.Hour)}
	records := []domain.ProductionRecord{
		{StartTime: t0.Add(10 * time.Minute), TotalParts: 10, GoodParts: 9, ScrapParts: 1},
		{StartTime: t0.Add(50 * time.Minute), TotalParts: 10, GoodParts: 10},
		{StartTime: t0.Add(2*time.Hour + time.Minute), TotalParts: 4, GoodParts: 2, ScrapParts: 2},
		{StartTime: t0.Add(-time.Minute), TotalParts: 99},
	}
	step := TrendStep(window)
	require.Equal(t, time.Hour, step)

	got := ProductionTrend(records, window, step)
	require.Len(t, got, 3)
	assert.Equal(t, int64(20), got[0].TotalParts)
	assert.Equal(t, 0.95, got[0].Quality)
	assert.Equal(t, int64(0), got[1].TotalParts)
	assert.Equal(t, 1.0, got[1].Quality)
	assert.Equal(t, 0.5, got[2].Quality)
	assert.Equal(t, window.End, got[2].Window.End)
}

func TestOEETrend(t *testing.T) {
	window := domain.TimeRange{Start: t0, End: t0.Add(3 * time.Hour)}
	fs := FactSet{
		Equipment: []domain.Equipment{
			{ID: "eq-1", Name: "Press 1", TheoreticalRate: 10},
			{ID: "eq-2", Code: "CNC-02", TheoreticalRate: 10},
		},
		Production: []domain.ProductionRecord{
			{ID: "p1", EquipmentID: "eq-2", StartTime: t0.Add(2 * time.Hour), PlannedProductionTime: time.Hour, OperatingTime: time.Hour, TotalParts: 10, GoodParts: 10},
			{ID: "p2", EquipmentID: "eq-1", StartTime: t0.Add(5 * time.Minute), PlannedProductionTime: time.Hour, OperatingTime: time.Hour, TotalParts: 5, GoodParts: 5},
			{ID: "p3", EquipmentID: "eq-1", StartTime: t0.Add(2*time.Hour + 5*time.Minute), PlannedProductionTime: time.Hour, OperatingTime: time.Hour, TotalParts: 10, GoodParts: 10},
			{ID: "p4", EquipmentID: "eq-1", StartTime: t0.Add(-time.Hour), PlannedProductionTime: time.Hour, OperatingTime: time.Hour, TotalParts: 10, GoodParts: 10},
		},
		Downtime: []domain.DowntimeRecord{{ProductionRecordID: "p2", Duration: 30 * time.Minute}},
	}

	got := OEETrend(fs, window, time.Hour)
	require.Len(t, got, 3)

	assert.Equal(t, "eq-1", got[0].Key)
	assert.Equal(t, "Press 1", got[0].Label)
	assert.Equal(t, t0, got[0].Window.Start)
	assert.Equal(t, 0.5, got[0].Availability)
	assert.Equal(t, 0.5, got[0].OEE)

	assert.Equal(t, "eq-1", got[1].Key)
	assert.Equal(t, t0.Add(2*time.Hour), got[1].Window.Start)
	assert.Equal(t, 1.0, got[1].OEE)

	assert.Equal(t, "CNC-02", got[2].Label)
	assert.Equal(t, t0.Add(2*time.Hour), got[2].Window.Start)

	for _, c := range got {
		assert.Equal(t, c.Availability*c.Performance*c.Quality, c.OEE)
	}
	assert.Empty(t, OEETrend(FactSet{}, domain.TimeRange{Start: t0, End: t0}, time.Hour))
}

func TestTrendStep(t *testing.T) {
	day := 24 * time.Hour
	assert.Equal(t, time.Hour, TrendStep(domain.TimeRange{Start: t0, End: t0.Add(48 * time.Hour)}))
	assert.Equal(t, day, TrendStep(domain.TimeRange{Start: t0, End: t0.Add(30 * day)}))
	assert.Equal(t, 7*day, TrendStep(domain.TimeRange{Start: t0, End: t0.Add(90 * day)}))
}

func TestOEEGroups(t *testing.T) {
	fs := FactSet{
		Equipment: []domain.Equipment{
			{ID: "eq-1", Name: "Press 1", TheoreticalRate: 10},
			{ID: "eq-2", Code: "CNC-02", TheoreticalRate: 10},
		},
		Production: []domain.ProductionRecord{
			{ID: "p1", EquipmentID: "eq-2", ShiftID: "B", PlannedProductionTime: time.Hour, OperatingTime: time.Hour, TotalParts: 10, GoodParts: 10},
			{ID: "p2", EquipmentID: "eq-1", PlannedProductionTime: time.Hour, OperatingTime: time.Hour, TotalParts: 5, GoodParts: 5},
		},
		Downtime: []domain.DowntimeRecord{{ProductionRecordID: "p2", Duration: 30 * time.Minute}},
	}

	byEq := OEEByEquipment(fs)
	require.Len(t, byEq, 2)
	assert.Equal(t, "eq-1", byEq[0].Key)
	assert.Equal(t, "Press 1", byEq[0].Label)
	assert.Equal(t, 0.5, byEq[0].Availability)
	assert.Equal(t, "CNC-02", byEq[1].Label)
	assert.Equal(t, 1.0, byEq[1].OEE)

	byShift := OEEByShift(fs)
	require.Len(t, byShift, 2)
	assert.Equal(t, "B", byShift[0].Key)
	assert.Equal(t, UnassignedShift, byShift[1].Key)
}

func TestReliability(t *testing.T) {
	fs := FactSet{
		Production: []domain.ProductionRecord{{ID: "p1", OperatingTime: 10 * time.Hour}},
		Downtime: []domain.DowntimeRecord{
			{ProductionRecordID: "p1", Duration: time.Hour},
			{ProductionRecordID: "p1", Duration: 3 * time.Hour},
			{ProductionRecordID: "p1", Duration: 0},
		},
	}
	got := Reliability(fs)
	assert.Equal(t, 2, got.Events)
	assert.Equal(t, 2*time.Hour, got.MTTR)
	assert.Equal(t, 3*time.Hour, got.MTBF)

	quiet := Reliability(FactSet{Production: fs.Production})
	assert.Equal(t, 0, quiet.Events)
	assert.Equal(t, 10*time.Hour, quiet.MTBF)
}
