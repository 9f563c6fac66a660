package aegisinsight

import (
	"github.com/ghalamif/AegisInsight/internal/adapters/store"
	"github.com/ghalamif/AegisInsight/internal/app/pipeline"
	"github.com/ghalamif/AegisInsight/internal/classifier"
	"github.com/ghalamif/AegisInsight/internal/domain"
	"github.com/ghalamif/AegisInsight/internal/ports"
)

// Result is the envelope handed to the presentation layer.
type Result = domain.AnalysisResult

// Request carries a query plus optional scope and analysis type overrides.
type Request = pipeline.Request

type (
	AnalysisType     = domain.AnalysisType
	Tier             = domain.Tier
	Warning          = domain.Warning
	Visualization    = domain.Visualization
	Reference        = domain.Reference
	KPISet           = domain.KPISet
	TimeRange        = domain.TimeRange
	Equipment        = domain.Equipment
	Product          = domain.Product
	Site             = domain.Site
	ProductionRecord = domain.ProductionRecord
	DowntimeRecord   = domain.DowntimeRecord
	ScrapRecord      = domain.ScrapRecord
	EquipmentStatus  = domain.EquipmentStatus
	ActivitySummary  = domain.ActivitySummary
	Classification   = classifier.Classification
)

// Store is the read boundary over the fact and catalog tables.
type Store = ports.Store

// FactStore serves the four orchestrator reads.
type FactStore = ports.FactStore

// CatalogStore serves the fast path lookups.
type CatalogStore = ports.CatalogStore

// EquipmentScope narrows fact reads to one piece of equipment.
type EquipmentScope = ports.EquipmentScope

// StatusReader reads live equipment state, typically from OPC UA.
type StatusReader = ports.StatusReader

// ResultCache memoizes analysis results.
type ResultCache = ports.ResultCache

// ResultSink receives every finished result.
type ResultSink = ports.ResultSink

// Observability emits metrics and structured logs.
type Observability = ports.Observability

// Field is a structured log field used by Observability implementations.
type Field = ports.Field

// MemoryStore is an in-process Store for embedding and tests.
type MemoryStore = store.MemoryStore

const (
	AnalysisQuality     = domain.AnalysisQuality
	AnalysisOEE         = domain.AnalysisOEE
	AnalysisDowntime    = domain.AnalysisDowntime
	AnalysisMaintenance = domain.AnalysisMaintenance
	AnalysisProduction  = domain.AnalysisProduction
	AnalysisRootCause   = domain.AnalysisRootCause
	AnalysisTrending    = domain.AnalysisTrending

	TierFast  = domain.TierFast
	TierAgent = domain.TierAgent
)

var ErrStoreUnavailable = ports.ErrStoreUnavailable

func NewMemoryStore() *MemoryStore { return store.NewMemoryStore() }

// LoadFixture reads a YAML fixture of equipment and facts into a MemoryStore.
func LoadFixture(path string) (*MemoryStore, error) { return store.LoadFixture(path) }

func AllEquipment() EquipmentScope { return ports.AllEquipment() }

func SingleEquipment(idOrCode string) EquipmentScope { return ports.SingleEquipment(idOrCode) }
