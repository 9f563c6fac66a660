package ports

import (
	"context"
	"errors"

	"github.com/ghalamif/AegisInsight/internal/domain"
)

// ErrStoreUnavailable wraps infrastructure failures reported by store adapters.
var ErrStoreUnavailable = errors.New("store unavailable")

// EquipmentScope narrows fact reads to one piece of equipment. The zero value
// means all equipment. EquipmentID may hold an equipment ID or code.
type EquipmentScope struct {
	EquipmentID string
}

func AllEquipment() EquipmentScope { return EquipmentScope{} }

func SingleEquipment(id string) EquipmentScope { return EquipmentScope{EquipmentID: id} }

func (s EquipmentScope) All() bool { return s.EquipmentID == "" }

// FactStore is the read-only boundary the orchestrator fetches through.
// Implementations must honour ctx cancellation.
type FactStore interface {
	FetchEquipment(ctx context.Context, scope EquipmentScope) ([]domain.Equipment, error)
	FetchProduction(ctx context.Context, scope EquipmentScope, window domain.TimeRange) ([]domain.ProductionRecord, error)
	FetchDowntime(ctx context.Context, scope EquipmentScope, window domain.TimeRange) ([]domain.DowntimeRecord, error)
	FetchScrap(ctx context.Context, scope EquipmentScope, window domain.TimeRange) ([]domain.ScrapRecord, error)
}

// CatalogStore serves the fast path lookups.
type CatalogStore interface {
	ListEquipment(ctx context.Context) ([]domain.Equipment, error)
	ListProducts(ctx context.Context) ([]domain.Product, error)
	ListSites(ctx context.Context) ([]domain.Site, error)
	RecentActivity(ctx context.Context, window domain.TimeRange) (domain.ActivitySummary, error)
}

type Store interface {
	FactStore
	CatalogStore
}
