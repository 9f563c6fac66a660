// Package assembler is where the fast and agent tiers converge on one
// normalized envelope.
package assembler

import (
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/ghalamif/AegisInsight/internal/domain"
)

// Assemble normalizes r as answered by tier for a request that started at
// start. Confidence is clamped to [0,1] with NaN as 0, nil slices become
// empty, DataPoints is never negative and ExecutionTime is always positive.
func Assemble(r domain.AnalysisResult, tier domain.Tier, start time.Time) domain.AnalysisResult {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	r.Tier = tier
	if r.AnalysisType == "" {
		r.AnalysisType = domain.AnalysisOEE
	}

	switch {
	case math.IsNaN(r.Confidence), r.Confidence < 0:
		r.Confidence = 0
	case r.Confidence > 1:
		r.Confidence = 1
	}

	if r.DataPoints < 0 {
		r.DataPoints = 0
	}
	if r.Visualizations == nil {
		r.Visualizations = []domain.Visualization{}
	}
	if r.References == nil {
		r.References = []domain.Reference{}
	}
	if r.Warnings == nil {
		r.Warnings = []domain.Warning{}
	}

	r.ExecutionTime = time.Since(start)
	if r.ExecutionTime <= 0 {
		r.ExecutionTime = time.Nanosecond
	}
	return r
}
