package classifier

import "github.com/ghalamif/AegisInsight/internal/domain"

// Rule attributes a weight to a keyword or phrase. Rules with an empty Type
// are complexity modifiers: they add to the routing score without voting for
// an analysis type.
type Rule struct {
	Type   domain.AnalysisType
	Weight int
}

// DefaultRules is the keyword table. Keys are lowercase and at most
// maxPhraseWords words long.
var DefaultRules = map[string]Rule{
	// quality
	"quality":          {domain.AnalysisQuality, 6},
	"defect":           {domain.AnalysisQuality, 5},
	"defects":          {domain.AnalysisQuality, 5},
	"scrap":            {domain.AnalysisQuality, 5},
	"reject":           {domain.AnalysisQuality, 4},
	"rejects":          {domain.AnalysisQuality, 4},
	"rework":           {domain.AnalysisQuality, 4},
	"yield":            {domain.AnalysisQuality, 6},
	"first pass yield": {domain.AnalysisQuality, 8},
	"nonconformance":   {domain.AnalysisQuality, 6},

	// oee
	"oee":                             {domain.AnalysisOEE, 8},
	"overall equipment effectiveness": {domain.AnalysisOEE, 10},
	"effectiveness":                   {domain.AnalysisOEE, 6},
	"availability":                    {domain.AnalysisOEE, 6},
	"utilization":                     {domain.AnalysisOEE, 5},
	"six big losses":                  {domain.AnalysisOEE, 8},

	// downtime
	"downtime":   {domain.AnalysisDowntime, 8},
	"stoppage":   {domain.AnalysisDowntime, 6},
	"stoppages":  {domain.AnalysisDowntime, 6},
	"breakdown":  {domain.AnalysisDowntime, 6},
	"breakdowns": {domain.AnalysisDowntime, 6},
	"idle":       {domain.AnalysisDowntime, 4},
	"stopped":    {domain.AnalysisDowntime, 4},

	// maintenance
	"maintenance": {domain.AnalysisMaintenance, 6},
	"preventive":  {domain.AnalysisMaintenance, 4},
	"repair":      {domain.AnalysisMaintenance, 4},
	"repairs":     {domain.AnalysisMaintenance, 4},
	"failure":     {domain.AnalysisMaintenance, 5},
	"failures":    {domain.AnalysisMaintenance, 5},
	"mtbf":        {domain.AnalysisMaintenance, 8},
	"mttr":        {domain.AnalysisMaintenance, 8},
	"work order":  {domain.AnalysisMaintenance, 5},

	// production
	"production":     {domain.AnalysisProduction, 4},
	"output":         {domain.AnalysisProduction, 4},
	"throughput":     {domain.AnalysisProduction, 6},
	"parts produced": {domain.AnalysisProduction, 6},
	"volume":         {domain.AnalysisProduction, 3},
	"units":          {domain.AnalysisProduction, 2},

	// root cause
	"root cause": {domain.AnalysisRootCause, 10},
	"why":        {domain.AnalysisRootCause, 5},
	"cause":      {domain.AnalysisRootCause, 5},
	"causes":     {domain.AnalysisRootCause, 5},
	"5 whys":     {domain.AnalysisRootCause, 10},
	"fishbone":   {domain.AnalysisRootCause, 10},
	"ishikawa":   {domain.AnalysisRootCause, 10},

	// trending
	"trend":       {domain.AnalysisTrending, 6},
	"trends":      {domain.AnalysisTrending, 6},
	"trending":    {domain.AnalysisTrending, 6},
	"over time":   {domain.AnalysisTrending, 5},
	"performance": {domain.AnalysisTrending, 3},
	"hourly":      {domain.AnalysisTrending, 4},
	"compare":     {domain.AnalysisTrending, 4},
	"comparison":  {domain.AnalysisTrending, 4},

	// modifiers
	"top":       {"", 3},
	"pareto":    {"", 5},
	"worst":     {"", 3},
	"rank":      {"", 3},
	"ranking":   {"", 3},
	"analyze":   {"", 4},
	"analyse":   {"", 4},
	"analysis":  {"", 4},
	"improve":   {"", 3},
	"recommend": {"", 3},
	"by shift":  {"", 3},
}

const maxPhraseWords = 3
