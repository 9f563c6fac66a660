package kpi

import (
	"sort"

	"github.com/ghalamif/AegisInsight/internal/domain"
)

// UnassignedShift labels records without a shift.
const UnassignedShift = "unassigned"

// OEEByEquipment computes OEE per equipment, ordered by equipment ID.
func OEEByEquipment(fs FactSet) []domain.GroupOEE {
	return groupOEE(fs, func(r domain.ProductionRecord) string { return r.EquipmentID }, equipmentLabel(fs))
}

// equipmentLabel names equipment by Name, then Code, then ID.
func equipmentLabel(fs FactSet) func(string) string {
	names := make(map[string]string, len(fs.Equipment))
	for _, e := range fs.Equipment {
		label := e.Name
		if label == "" {
			label = e.Code
		}
		names[e.ID] = label
	}
	return func(k string) string {
		if n, ok := names[k]; ok && n != "" {
			return n
		}
		return k
	}
}

// OEEByShift computes OEE per shift, ordered by shift ID.
func OEEByShift(fs FactSet) []domain.GroupOEE {
	return groupOEE(fs, func(r domain.ProductionRecord) string {
		if r.ShiftID == "" {
			return UnassignedShift
		}
		return r.ShiftID
	}, func(k string) string { return k })
}

func groupOEE(fs FactSet, key func(domain.ProductionRecord) string, label func(string) string) []domain.GroupOEE {
	parts := fs.Partition(key)
	keys := make([]string, 0, len(parts))
	for k := range parts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]domain.GroupOEE, 0, len(keys))
	for _, k := range keys {
		b, _ := OEE(parts[k])
		out = append(out, domain.GroupOEE{Key: k, Label: label(k), OEEBreakdown: b})
	}
	return out
}
