package ports

import (
	"context"

	"github.com/ghalamif/AegisInsight/internal/domain"
)

// ResultCache memoizes orchestrator results for a short TTL.
type ResultCache interface {
	Get(ctx context.Context, key string) (domain.AnalysisResult, bool, error)
	Set(ctx context.Context, key string, r domain.AnalysisResult) error
}
