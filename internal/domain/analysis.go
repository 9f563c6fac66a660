package domain

import "time"

// AnalysisType tags what kind of answer a query produced.
type AnalysisType string

const (
	AnalysisQuality     AnalysisType = "quality_analysis"
	AnalysisOEE         AnalysisType = "oee_analysis"
	AnalysisDowntime    AnalysisType = "downtime_analysis"
	AnalysisMaintenance AnalysisType = "maintenance_analysis"
	AnalysisProduction  AnalysisType = "production_analysis"
	AnalysisRootCause   AnalysisType = "root_cause_analysis"
	AnalysisTrending    AnalysisType = "performance_trending"

	// Fast path lookups.
	LookupEquipment       AnalysisType = "equipment_listing"
	LookupProducts        AnalysisType = "product_listing"
	LookupSites           AnalysisType = "site_listing"
	LookupEquipmentStatus AnalysisType = "equipment_status"
	LookupActivity        AnalysisType = "activity_summary"
	LookupGreeting        AnalysisType = "greeting"
	LookupHelp            AnalysisType = "help"
)

// AnalysisTypes lists the analytical types in tie-break order.
var AnalysisTypes = []AnalysisType{
	AnalysisOEE,
	AnalysisRootCause,
	AnalysisDowntime,
	AnalysisQuality,
	AnalysisMaintenance,
	AnalysisProduction,
	AnalysisTrending,
}

// Analytical reports whether t is one of the orchestrator analysis types.
func (t AnalysisType) Analytical() bool {
	for _, a := range AnalysisTypes {
		if a == t {
			return true
		}
	}
	return false
}

// Tier names the path that answered a query.
type Tier string

const (
	TierFast  Tier = "fast"
	TierAgent Tier = "agent"
)

// AnalysisResult is the envelope handed to the presentation/NLG layer. Both
// tiers produce it and the assembler normalizes it.
type AnalysisResult struct {
	ID             string          `json:"id"`
	AnalysisType   AnalysisType    `json:"analysis_type"`
	Tier           Tier            `json:"tier"`
	RoutingScore   int             `json:"routing_score"`
	Content        string          `json:"content"`
	Confidence     float64         `json:"confidence"`
	Visualizations []Visualization `json:"visualizations"`
	References     []Reference     `json:"references"`
	Warnings       []Warning       `json:"warnings"`
	Metrics        *KPISet         `json:"metrics,omitempty"`
	Listing        any             `json:"listing,omitempty"`
	Window         TimeRange       `json:"window"`
	WindowLabel    string          `json:"window_label"`
	ExecutionTime  time.Duration   `json:"execution_time"`
	DataPoints     int             `json:"data_points"`
	NoData         bool            `json:"no_data"`
	FetchError     string          `json:"fetch_error,omitempty"`
	Cached         bool            `json:"cached"`
}

// Visualization describes a chart for the presentation layer; it carries data,
// not rendering instructions.
type Visualization struct {
	Type   string   `json:"type"` // gauge_chart, big_number_total, line, area, bar, pie, table, heatmap
	Title  string   `json:"title"`
	XAxis  string   `json:"x_axis,omitempty"`
	YAxis  string   `json:"y_axis,omitempty"`
	Series []Series `json:"series"`
}

type Series struct {
	Name   string  `json:"name"`
	Points []Point `json:"points"`
}

type Point struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// Reference points at the industry standard a metric definition follows.
type Reference struct {
	Standard string `json:"standard"`
	Title    string `json:"title"`
	Clause   string `json:"clause,omitempty"`
}

// Warning is a non-fatal data-quality finding raised during calculation.
type Warning struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	RecordID string `json:"record_id,omitempty"`
}

// KPISet holds whatever the calculators produced for one analysis. Nil
// members were not computed.
type KPISet struct {
	OEE         *OEEBreakdown     `json:"oee,omitempty"`
	Quality     *QualityBreakdown `json:"quality,omitempty"`
	Downtime    *Ranking          `json:"downtime,omitempty"`
	Scrap       *Ranking          `json:"scrap,omitempty"`
	Trend       []TrendBucket     `json:"trend,omitempty"`
	ByEquipment []GroupOEE        `json:"by_equipment,omitempty"`
	ByShift     []GroupOEE        `json:"by_shift,omitempty"`
	OEETrend    []OEECell         `json:"oee_trend,omitempty"`
	Reliability *Reliability      `json:"reliability,omitempty"`
	Totals      ProductionTotals  `json:"totals"`
}

type OEEBreakdown struct {
	Availability float64 `json:"availability"`
	Performance  float64 `json:"performance"`
	Quality      float64 `json:"quality"`
	OEE          float64 `json:"oee"`
}

type QualityBreakdown struct {
	Rate        float64 `json:"rate"`
	TotalParts  int64   `json:"total_parts"`
	GoodParts   int64   `json:"good_parts"`
	ScrapParts  int64   `json:"scrap_parts"`
	ReworkParts int64   `json:"rework_parts"`
}

// Ranking is a Pareto ordering of reasons. Percentages are of Total, so they
// add up to Coverage, which is 100 unless items were cut by the top-N limit.
type Ranking struct {
	Unit     string         `json:"unit"`
	Total    float64        `json:"total"`
	Coverage float64        `json:"coverage"`
	Items    []RankedReason `json:"items"`
}

type RankedReason struct {
	Reason     string  `json:"reason"`
	Value      float64 `json:"value"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

type TrendBucket struct {
	Window     TimeRange `json:"window"`
	TotalParts int64     `json:"total_parts"`
	GoodParts  int64     `json:"good_parts"`
	ScrapParts int64     `json:"scrap_parts"`
	Quality    float64   `json:"quality"`
}

type GroupOEE struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	OEEBreakdown
}

// OEECell is one equipment's OEE over one sub-window.
type OEECell struct {
	Window TimeRange `json:"window"`
	Key    string    `json:"key"`
	Label  string    `json:"label"`
	OEEBreakdown
}

type Reliability struct {
	Events   int           `json:"events"`
	Downtime time.Duration `json:"downtime"`
	MTTR     time.Duration `json:"mttr"`
	MTBF     time.Duration `json:"mtbf"`
}

type ProductionTotals struct {
	Runs        int           `json:"runs"`
	TotalParts  int64         `json:"total_parts"`
	GoodParts   int64         `json:"good_parts"`
	ScrapParts  int64         `json:"scrap_parts"`
	ReworkParts int64         `json:"rework_parts"`
	Planned     time.Duration `json:"planned"`
	Operating   time.Duration `json:"operating"`
	Downtime    time.Duration `json:"downtime"`
}
