package ports

import (
	"context"

	"github.com/ghalamif/AegisInsight/internal/domain"
)

// StatusReader reads live equipment state tags.
type StatusReader interface {
	ReadStatus(ctx context.Context) ([]domain.EquipmentStatus, error)
}
