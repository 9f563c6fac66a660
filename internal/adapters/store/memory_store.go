package store

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/ghalamif/AegisInsight/internal/domain"
	"github.com/ghalamif/AegisInsight/internal/ports"
)

// MemoryStore is an in-process Store for embedding, demos and tests. Reads
// return copies filtered the same way the SQL store filters.
type MemoryStore struct {
	mu         sync.RWMutex
	rowLimit   int
	equipment  []domain.Equipment
	products   []domain.Product
	sites      []domain.Site
	production []domain.ProductionRecord
	downtime   []domain.DowntimeRecord
	scrap      []domain.ScrapRecord
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

// SetRowLimit caps every fact read, 0 for no cap.
func (m *MemoryStore) SetRowLimit(n int) {
	m.mu.Lock()
	m.rowLimit = n
	m.mu.Unlock()
}

func (m *MemoryStore) AddEquipment(e ...domain.Equipment) {
	m.mu.Lock()
	m.equipment = append(m.equipment, e...)
	m.mu.Unlock()
}

func (m *MemoryStore) AddProducts(p ...domain.Product) {
	m.mu.Lock()
	m.products = append(m.products, p...)
	m.mu.Unlock()
}

func (m *MemoryStore) AddSites(s ...domain.Site) {
	m.mu.Lock()
	m.sites = append(m.sites, s...)
	m.mu.Unlock()
}

func (m *MemoryStore) AddProduction(r ...domain.ProductionRecord) {
	m.mu.Lock()
	m.production = append(m.production, r...)
	m.mu.Unlock()
}

func (m *MemoryStore) AddDowntime(d ...domain.DowntimeRecord) {
	m.mu.Lock()
	m.downtime = append(m.downtime, d...)
	m.mu.Unlock()
}

func (m *MemoryStore) AddScrap(s ...domain.ScrapRecord) {
	m.mu.Lock()
	m.scrap = append(m.scrap, s...)
	m.mu.Unlock()
}

func (m *MemoryStore) FetchEquipment(ctx context.Context, scope ports.EquipmentScope) ([]domain.Equipment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.Equipment
	for _, e := range m.equipment {
		if matches(scope, e) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (m *MemoryStore) FetchProduction(ctx context.Context, scope ports.EquipmentScope, window domain.TimeRange) ([]domain.ProductionRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	runs := m.runsIn(scope, window)
	out := make([]domain.ProductionRecord, 0, len(runs))
	for _, r := range m.production {
		if _, ok := runs[r.ID]; ok {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return limit(out, m.rowLimit), nil
}

func (m *MemoryStore) FetchDowntime(ctx context.Context, scope ports.EquipmentScope, window domain.TimeRange) ([]domain.DowntimeRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	runs := m.runsIn(scope, window)
	var out []domain.DowntimeRecord
	for _, d := range m.downtime {
		if _, ok := runs[d.ProductionRecordID]; ok {
			out = append(out, d)
		}
	}
	return limit(out, m.rowLimit), nil
}

func (m *MemoryStore) FetchScrap(ctx context.Context, scope ports.EquipmentScope, window domain.TimeRange) ([]domain.ScrapRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	runs := m.runsIn(scope, window)
	var out []domain.ScrapRecord
	for _, s := range m.scrap {
		if _, ok := runs[s.ProductionRecordID]; ok {
			out = append(out, s)
		}
	}
	return limit(out, m.rowLimit), nil
}

func (m *MemoryStore) ListEquipment(ctx context.Context) ([]domain.Equipment, error) {
	return m.FetchEquipment(ctx, ports.AllEquipment())
}

func (m *MemoryStore) ListProducts(ctx context.Context) ([]domain.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := slices.Clone(m.products)
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (m *MemoryStore) ListSites(ctx context.Context) ([]domain.Site, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := slices.Clone(m.sites)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *MemoryStore) RecentActivity(ctx context.Context, window domain.TimeRange) (domain.ActivitySummary, error) {
	if err := ctx.Err(); err != nil {
		return domain.ActivitySummary{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	sum := domain.ActivitySummary{Window: window}
	runs := m.runsIn(ports.AllEquipment(), window)
	for _, r := range m.production {
		if _, ok := runs[r.ID]; ok {
			sum.ProductionRuns++
			sum.TotalParts += r.TotalParts
			sum.GoodParts += r.GoodParts
			sum.ScrapParts += r.ScrapParts
		}
	}
	for _, d := range m.downtime {
		if _, ok := runs[d.ProductionRecordID]; ok {
			sum.DowntimeEvents++
			sum.Downtime += d.Duration
		}
	}
	return sum, nil
}

// runsIn returns the IDs of production records in scope starting inside
// window. Callers hold the read lock.
func (m *MemoryStore) runsIn(scope ports.EquipmentScope, window domain.TimeRange) map[string]struct{} {
	inScope := make(map[string]bool, len(m.equipment))
	for _, e := range m.equipment {
		inScope[e.ID] = matches(scope, e)
	}
	out := make(map[string]struct{})
	for _, r := range m.production {
		if !window.Contains(r.StartTime) {
			continue
		}
		if !scope.All() && !inScope[r.EquipmentID] && r.EquipmentID != scope.EquipmentID {
			continue
		}
		out[r.ID] = struct{}{}
	}
	return out
}

func matches(scope ports.EquipmentScope, e domain.Equipment) bool {
	return scope.All() || e.ID == scope.EquipmentID || strings.EqualFold(e.Code, scope.EquipmentID)
}

func limit[T any](rows []T, n int) []T {
	if n > 0 && len(rows) > n {
		return rows[:n]
	}
	return rows
}

var _ ports.Store = (*MemoryStore)(nil)
