// Package kpi computes OEE, its factors and Pareto rankings from fact records
// that were already fetched. Nothing here performs I/O.
package kpi

import (
	"time"

	"github.com/ghalamif/AegisInsight/internal/domain"
)

// FactSet is everything one analysis reads, fetched once per query.
type FactSet struct {
	Equipment  []domain.Equipment
	Production []domain.ProductionRecord
	Downtime   []domain.DowntimeRecord
	Scrap      []domain.ScrapRecord
}

// DataPoints counts the fact rows in the set. Equipment rows are dimensions
// and do not count.
func (fs FactSet) DataPoints() int {
	return len(fs.Production) + len(fs.Downtime) + len(fs.Scrap)
}

func (fs FactSet) Empty() bool { return fs.DataPoints() == 0 }

// downtimeByRecord sums non-negative downtime per production record.
func (fs FactSet) downtimeByRecord() map[string]time.Duration {
	out := make(map[string]time.Duration, len(fs.Production))
	for _, d := range fs.Downtime {
		if d.Duration > 0 {
			out[d.ProductionRecordID] += d.Duration
		}
	}
	return out
}

func (fs FactSet) equipmentByID() map[string]domain.Equipment {
	out := make(map[string]domain.Equipment, len(fs.Equipment))
	for _, e := range fs.Equipment {
		out[e.ID] = e
	}
	return out
}

// Partition splits the set by key(record). Downtime and scrap follow their
// production record; equipment follows by ID.
func (fs FactSet) Partition(key func(domain.ProductionRecord) string) map[string]FactSet {
	out := make(map[string]FactSet)
	owner := make(map[string]string, len(fs.Production))
	for _, r := range fs.Production {
		k := key(r)
		owner[r.ID] = k
		part := out[k]
		part.Production = append(part.Production, r)
		out[k] = part
	}
	for _, d := range fs.Downtime {
		k, ok := owner[d.ProductionRecordID]
		if !ok {
			continue
		}
		part := out[k]
		part.Downtime = append(part.Downtime, d)
		out[k] = part
	}
	for _, s := range fs.Scrap {
		k, ok := owner[s.ProductionRecordID]
		if !ok {
			continue
		}
		part := out[k]
		part.Scrap = append(part.Scrap, s)
		out[k] = part
	}
	for k, part := range out {
		part.Equipment = fs.Equipment
		out[k] = part
	}
	return out
}

func nonNegative(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d
}

func nonNegativeCount(n int64) int64 {
	if n < 0 {
		return 0
	}
	return n
}
