package kpi

import (
	"fmt"
	"sort"
	"time"

	"github.com/ghalamif/AegisInsight/internal/domain"
)

// Availability is (operating - downtime) / planned over all records. With no
// planned time it is 0.
func Availability(fs FactSet) (float64, []domain.Warning) {
	downtime := fs.downtimeByRecord()
	var planned, operating, down time.Duration
	for _, r := range fs.Production {
		planned += nonNegative(r.PlannedProductionTime)
		operating += nonNegative(r.OperatingTime)
		down += downtime[r.ID]
	}
	if planned <= 0 {
		return 0, nil
	}
	var warns []domain.Warning
	v := clamp("availability", float64(operating-down)/float64(planned), &warns)
	return v, warns
}

// Performance is actual output over the output the equipment could have made
// at its theoretical rate during actual run time. Records on equipment
// without a theoretical rate are left out. With no run time it is 0.
func Performance(fs FactSet) (float64, []domain.Warning) {
	equipment := fs.equipmentByID()
	downtime := fs.downtimeByRecord()

	var (
		warns   []domain.Warning
		missing = make(map[string]struct{})
		run     time.Duration
		ideal   float64
		actual  float64
	)
	for _, r := range fs.Production {
		rt := nonNegative(nonNegative(r.OperatingTime) - downtime[r.ID])
		rate := equipment[r.EquipmentID].TheoreticalRate
		if rate <= 0 {
			if rt > 0 {
				missing[r.EquipmentID] = struct{}{}
			}
			continue
		}
		run += rt
		ideal += rt.Hours() * rate
		actual += float64(nonNegativeCount(r.TotalParts))
	}

	if len(missing) > 0 {
		ids := make([]string, 0, len(missing))
		for id := range missing {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			warns = append(warns, domain.Warning{
				Code:     WarnMissingTheoreticalRate,
				RecordID: id,
				Message:  fmt.Sprintf("equipment %q has no theoretical rate; its runs are excluded from performance", id),
			})
		}
	}

	if run <= 0 || ideal <= 0 {
		return 0, warns
	}
	return clamp("performance", actual/ideal, &warns), warns
}

// Quality is good parts over total parts.
//
// With no parts produced Quality is 1: no output means no observed defects.
// OEE is still 0 in that case because Availability or Performance is.
func Quality(fs FactSet) (float64, []domain.Warning) {
	var good, total int64
	for _, r := range fs.Production {
		good += nonNegativeCount(r.GoodParts)
		total += nonNegativeCount(r.TotalParts)
	}
	if total == 0 {
		return 1, nil
	}
	var warns []domain.Warning
	return clamp("quality", float64(good)/float64(total), &warns), warns
}

// QualityDetail is Quality plus the part counts behind it.
func QualityDetail(fs FactSet) (domain.QualityBreakdown, []domain.Warning) {
	rate, warns := Quality(fs)
	out := domain.QualityBreakdown{Rate: rate}
	for _, r := range fs.Production {
		out.TotalParts += nonNegativeCount(r.TotalParts)
		out.GoodParts += nonNegativeCount(r.GoodParts)
		out.ScrapParts += nonNegativeCount(r.ScrapParts)
		out.ReworkParts += nonNegativeCount(r.ReworkParts)
	}
	return out, warns
}

// OEE multiplies the three clamped factors. It is never stored on its own so
// OEE == Availability * Performance * Quality holds exactly.
func OEE(fs FactSet) (domain.OEEBreakdown, []domain.Warning) {
	a, wa := Availability(fs)
	p, wp := Performance(fs)
	q, wq := Quality(fs)

	warns := make([]domain.Warning, 0, len(wa)+len(wp)+len(wq))
	warns = append(warns, wa...)
	warns = append(warns, wp...)
	warns = append(warns, wq...)

	return domain.OEEBreakdown{
		Availability: a,
		Performance:  p,
		Quality:      q,
		OEE:          a * p * q,
	}, warns
}

// Totals sums the raw production and downtime figures.
func Totals(fs FactSet) domain.ProductionTotals {
	downtime := fs.downtimeByRecord()
	var t domain.ProductionTotals
	for _, r := range fs.Production {
		t.Runs++
		t.TotalParts += nonNegativeCount(r.TotalParts)
		t.GoodParts += nonNegativeCount(r.GoodParts)
		t.ScrapParts += nonNegativeCount(r.ScrapParts)
		t.ReworkParts += nonNegativeCount(r.ReworkParts)
		t.Planned += nonNegative(r.PlannedProductionTime)
		t.Operating += nonNegative(r.OperatingTime)
		t.Downtime += downtime[r.ID]
	}
	return t
}
