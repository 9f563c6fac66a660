package kpi

import (
	"fmt"
	"math"

	"github.com/ghalamif/AegisInsight/internal/domain"
)

// Warning codes.
const (
	WarnPartsExceedTotal         = "parts_exceed_total"
	WarnNegativeDuration         = "negative_duration"
	WarnNegativeCount            = "negative_count"
	WarnEndBeforeStart           = "end_before_start"
	WarnDowntimeExceedsOperating = "downtime_exceeds_operating"
	WarnNonPositiveScrap         = "non_positive_scrap_quantity"
	WarnMissingTheoreticalRate   = "missing_theoretical_rate"
	WarnRatioClamped             = "ratio_clamped"
)

// Inspect reports record-level anomalies. Calculators tolerate every one of
// them; this pass only makes them visible.
func Inspect(fs FactSet) []domain.Warning {
	var out []domain.Warning
	add := func(code, id, format string, args ...any) {
		out = append(out, domain.Warning{Code: code, RecordID: id, Message: fmt.Sprintf(format, args...)})
	}

	downtime := fs.downtimeByRecord()
	for _, r := range fs.Production {
		if !r.StartTime.IsZero() && !r.EndTime.IsZero() && !r.EndTime.After(r.StartTime) {
			add(WarnEndBeforeStart, r.ID, "production record ends at %s, not after its start %s", r.EndTime, r.StartTime)
		}
		if r.PlannedProductionTime < 0 || r.OperatingTime < 0 {
			add(WarnNegativeDuration, r.ID, "negative planned (%s) or operating (%s) time", r.PlannedProductionTime, r.OperatingTime)
		}
		if r.TotalParts < 0 || r.GoodParts < 0 || r.ScrapParts < 0 || r.ReworkParts < 0 {
			add(WarnNegativeCount, r.ID, "negative part count")
		}
		if sum := r.GoodParts + r.ScrapParts + r.ReworkParts; sum > r.TotalParts {
			add(WarnPartsExceedTotal, r.ID, "good+scrap+rework %d exceeds total %d", sum, r.TotalParts)
		}
		if d := downtime[r.ID]; d > nonNegative(r.OperatingTime) {
			add(WarnDowntimeExceedsOperating, r.ID, "downtime %s exceeds operating time %s", d, r.OperatingTime)
		}
	}
	for _, d := range fs.Downtime {
		if d.Duration < 0 {
			add(WarnNegativeDuration, d.ID, "negative downtime duration %s", d.Duration)
		}
	}
	for _, s := range fs.Scrap {
		if s.Quantity <= 0 {
			add(WarnNonPositiveScrap, s.ID, "scrap quantity %d", s.Quantity)
		}
	}
	return out
}

// clamp bounds v to [0,1]. NaN becomes 0.
func clamp(name string, v float64, warns *[]domain.Warning) float64 {
	switch {
	case math.IsNaN(v):
		*warns = append(*warns, domain.Warning{Code: WarnRatioClamped, Message: name + " was not a number, reported as 0"})
		return 0
	case v < 0:
		*warns = append(*warns, domain.Warning{Code: WarnRatioClamped, Message: fmt.Sprintf("%s %.4f clamped to 0", name, v)})
		return 0
	case v > 1:
		*warns = append(*warns, domain.Warning{Code: WarnRatioClamped, Message: fmt.Sprintf("%s %.4f clamped to 1", name, v)})
		return 1
	}
	return v
}
