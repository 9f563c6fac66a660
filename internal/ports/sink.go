package ports

import (
	"context"

	"github.com/ghalamif/AegisInsight/internal/domain"
)

// ResultSink receives finished results verbatim, typically the NLG layer.
type ResultSink interface {
	Deliver(ctx context.Context, r domain.AnalysisResult) error
	Name() string
}
