package kpi

import (
	"sort"
	"strconv"
	"time"

	"github.com/ghalamif/AegisInsight/internal/domain"
)

// TrendStep picks the bucket size for a window: hourly up to two days, daily
// up to two months, weekly beyond.
func TrendStep(window domain.TimeRange) time.Duration {
	switch d := window.Duration(); {
	case d <= 48*time.Hour:
		return time.Hour
	case d <= 62*24*time.Hour:
		return 24 * time.Hour
	default:
		return 7 * 24 * time.Hour
	}
}

// ProductionTrend buckets production by record start time. Records starting
// outside the window are ignored. Empty buckets report Quality 1, the same
// zero-output convention as Quality.
func ProductionTrend(records []domain.ProductionRecord, window domain.TimeRange, step time.Duration) []domain.TrendBucket {
	windows := window.Buckets(step)
	if len(windows) == 0 {
		return nil
	}
	out := make([]domain.TrendBucket, len(windows))
	for i, w := range windows {
		out[i].Window = w
	}
	for _, r := range records {
		if !window.Contains(r.StartTime) {
			continue
		}
		i := int(r.StartTime.Sub(window.Start) / step)
		if i >= len(out) {
			i = len(out) - 1
		}
		out[i].TotalParts += nonNegativeCount(r.TotalParts)
		out[i].GoodParts += nonNegativeCount(r.GoodParts)
		out[i].ScrapParts += nonNegativeCount(r.ScrapParts)
	}
	for i := range out {
		out[i].Quality = 1
		if out[i].TotalParts > 0 {
			q := float64(out[i].GoodParts) / float64(out[i].TotalParts)
			if q > 1 {
				q = 1
			}
			out[i].Quality = q
		}
	}
	return out
}

// OEETrend computes OEE per equipment per sub-window, the hourly heatmap when
// step is an hour. Only cells with production are returned, ordered by
// equipment ID then time. Records starting outside the window are ignored.
func OEETrend(fs FactSet, window domain.TimeRange, step time.Duration) []domain.OEECell {
	windows := window.Buckets(step)
	if len(windows) == 0 {
		return nil
	}
	slot := func(r domain.ProductionRecord) int {
		i := int(r.StartTime.Sub(window.Start) / step)
		return min(i, len(windows)-1)
	}

	var in FactSet
	in.Equipment = fs.Equipment
	in.Downtime, in.Scrap = fs.Downtime, fs.Scrap
	for _, r := range fs.Production {
		if window.Contains(r.StartTime) {
			in.Production = append(in.Production, r)
		}
	}

	label := equipmentLabel(fs)
	byEquipment := in.Partition(func(r domain.ProductionRecord) string { return r.EquipmentID })
	ids := make([]string, 0, len(byEquipment))
	for id := range byEquipment {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var out []domain.OEECell
	for _, id := range ids {
		slots := byEquipment[id].Partition(func(r domain.ProductionRecord) string {
			return strconv.Itoa(slot(r))
		})
		idx := make([]int, 0, len(slots))
		for k := range slots {
			n, _ := strconv.Atoi(k)
			idx = append(idx, n)
		}
		sort.Ints(idx)
		for _, i := range idx {
			b, _ := OEE(slots[strconv.Itoa(i)])
			out = append(out, domain.OEECell{
				Window:       windows[i],
				Key:          id,
				Label:        label(id),
				OEEBreakdown: b,
			})
		}
	}
	return out
}
