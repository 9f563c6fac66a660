// Package fastpath answers low-complexity queries straight from the catalog
// store: greetings, help, entity listings, live status and a recent activity
// summary. It never runs the metric calculators.
package fastpath

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/ghalamif/AegisInsight/internal/domain"
	"github.com/ghalamif/AegisInsight/internal/ports"
	"github.com/ghalamif/AegisInsight/internal/timewindow"
)

// WarnStatusUnavailable is attached when a status query falls back to the
// equipment listing because no live reader is configured.
const WarnStatusUnavailable = "status_unavailable"

const helpText = `I can answer questions about the shop floor, for example:
  - list my machines / products / sites
  - machine status
  - what happened today
  - OEE for machine CNC-01 last week
  - top 5 defect types this week
  - downtime pareto yesterday
  - output trend over time this month`

type intent struct {
	kind    domain.AnalysisType
	pattern *regexp.Regexp
}

// Intents are tried in order; the first match wins. No match means an
// activity summary over the resolved window.
var intents = []intent{
	{domain.LookupGreeting, regexp.MustCompile(`(?i)^\s*(hi|hello|hey|good\s+(morning|afternoon|evening))\b`)},
	{domain.LookupHelp, regexp.MustCompile(`(?i)^\s*(help|what\s+can\s+you\s+do|\?)\s*[?!.]*\s*$`)},
	{domain.LookupEquipmentStatus, regexp.MustCompile(`(?i)\b(status|state|running|live)\b`)},
	{domain.LookupProducts, regexp.MustCompile(`(?i)\b(products?|part\s+numbers?|skus?)\b`)},
	{domain.LookupSites, regexp.MustCompile(`(?i)\b(sites?|plants?|factory|factories|areas?)\b`)},
	{domain.LookupEquipment, regexp.MustCompile(`(?i)\b(machines?|equipment|assets?|presses|lines?)\b`)},
}

// Match reports which lookup a query maps to.
func Match(query string) domain.AnalysisType {
	for _, in := range intents {
		if in.pattern.MatchString(query) {
			return in.kind
		}
	}
	return domain.LookupActivity
}

type Processor struct {
	catalog ports.CatalogStore
	status  ports.StatusReader
	pol     ports.Policy
	obs     ports.Observability
}

// New builds a processor. status may be nil.
func New(catalog ports.CatalogStore, status ports.StatusReader, pol ports.Policy, obs ports.Observability) *Processor {
	return &Processor{catalog: catalog, status: status, pol: pol.WithDefaults(), obs: obs}
}

// Handle answers query within the fast path budget. Store failures come back
// as a result with confidence 0 and FetchError set, never as an error.
func (p *Processor) Handle(ctx context.Context, query string, now time.Time) domain.AnalysisResult {
	ctx, cancel := context.WithTimeout(ctx, p.pol.FastPathBudget)
	defer cancel()

	kind := Match(query)
	res := domain.AnalysisResult{AnalysisType: kind, Tier: domain.TierFast, Confidence: 1}

	var err error
	switch kind {
	case domain.LookupGreeting:
		res.Content = "Hello! Ask me about OEE, downtime, scrap or production on your equipment. Type 'help' for examples."
	case domain.LookupHelp:
		res.Content = helpText
	case domain.LookupEquipment:
		err = p.listEquipment(ctx, &res)
	case domain.LookupProducts:
		err = p.listProducts(ctx, &res)
	case domain.LookupSites:
		err = p.listSites(ctx, &res)
	case domain.LookupEquipmentStatus:
		err = p.equipmentStatus(ctx, &res)
	default:
		err = p.activity(ctx, query, now, &res)
	}

	if err != nil {
		p.obs.IncCounter(ports.MetricFetchFailures, 1)
		p.obs.LogError("fast_path_fetch_failed", err, ports.Field{Key: "lookup", Value: string(kind)})
		res.Confidence = 0
		res.FetchError = err.Error()
		res.NoData = true
		res.DataPoints = 0
		res.Listing = nil
		res.Visualizations = nil
		res.Content = "The data store did not answer in time. Please try again."
	}
	return res
}

func (p *Processor) listEquipment(ctx context.Context, res *domain.AnalysisResult) error {
	items, err := p.catalog.ListEquipment(ctx)
	if err != nil {
		return fmt.Errorf("list equipment: %w", err)
	}
	names := make([]string, 0, len(items))
	for _, e := range items {
		names = append(names, label(e.Name, e.Code))
	}
	fillListing(res, "Equipment", items, names)
	return nil
}

func (p *Processor) listProducts(ctx context.Context, res *domain.AnalysisResult) error {
	items, err := p.catalog.ListProducts(ctx)
	if err != nil {
		return fmt.Errorf("list products: %w", err)
	}
	names := make([]string, 0, len(items))
	for _, pr := range items {
		names = append(names, label(pr.Name, pr.Code))
	}
	fillListing(res, "Products", items, names)
	return nil
}

func (p *Processor) listSites(ctx context.Context, res *domain.AnalysisResult) error {
	items, err := p.catalog.ListSites(ctx)
	if err != nil {
		return fmt.Errorf("list sites: %w", err)
	}
	names := make([]string, 0, len(items))
	for _, s := range items {
		n := label(s.Name, s.Code)
		if len(s.Areas) > 0 {
			n += " (" + strings.Join(s.Areas, ", ") + ")"
		}
		names = append(names, n)
	}
	fillListing(res, "Sites", items, names)
	return nil
}

func (p *Processor) equipmentStatus(ctx context.Context, res *domain.AnalysisResult) error {
	if p.status == nil {
		res.AnalysisType = domain.LookupEquipment
		res.Warnings = append(res.Warnings, domain.Warning{
			Code:    WarnStatusUnavailable,
			Message: "no live status source is configured; showing the equipment list instead",
		})
		return p.listEquipment(ctx, res)
	}
	items, err := p.status.ReadStatus(ctx)
	if err != nil {
		return fmt.Errorf("read status: %w", err)
	}
	names := make([]string, 0, len(items))
	for _, s := range items {
		names = append(names, fmt.Sprintf("%s: %s", s.EquipmentID, s.State))
	}
	fillListing(res, "Equipment status", items, names)
	return nil
}

func (p *Processor) activity(ctx context.Context, query string, now time.Time, res *domain.AnalysisResult) error {
	win := timewindow.Resolve(query, now)
	res.Window = win.Range
	res.WindowLabel = win.Label

	sum, err := p.catalog.RecentActivity(ctx, win.Range)
	if err != nil {
		return fmt.Errorf("recent activity: %w", err)
	}
	res.Listing = sum
	res.DataPoints = int(sum.ProductionRuns + sum.DowntimeEvents)
	if res.DataPoints == 0 {
		res.NoData = true
		res.Confidence = 0.5
		res.Content = fmt.Sprintf("No production activity recorded (%s).", strings.ToLower(win.Label))
		return nil
	}
	res.Confidence = 0.9
	res.Content = fmt.Sprintf("%s: %d runs, %d parts (%d good, %d scrap), %d downtime events totalling %s.",
		win.Label, sum.ProductionRuns, sum.TotalParts, sum.GoodParts, sum.ScrapParts, sum.DowntimeEvents, sum.Downtime.Round(time.Minute))
	res.Visualizations = []domain.Visualization{{
		Type:  "big_number_total",
		Title: "Parts produced",
		Series: []domain.Series{{Name: "parts", Points: []domain.Point{
			{Label: "total", Value: float64(sum.TotalParts)},
			{Label: "good", Value: float64(sum.GoodParts)},
			{Label: "scrap", Value: float64(sum.ScrapParts)},
		}}},
	}}
	return nil
}

func fillListing[T any](res *domain.AnalysisResult, title string, items []T, names []string) {
	res.Listing = items
	res.DataPoints = len(items)
	res.NoData = len(items) == 0
	if len(items) == 0 {
		res.Content = fmt.Sprintf("%s: none found.", title)
		return
	}
	res.Content = fmt.Sprintf("%s (%d): %s", title, len(items), strings.Join(names, ", "))
	points := make([]domain.Point, 0, len(names))
	for _, n := range names {
		points = append(points, domain.Point{Label: n})
	}
	res.Visualizations = []domain.Visualization{{Type: "table", Title: title, Series: []domain.Series{{Name: strings.ToLower(title), Points: points}}}}
}

func label(name, code string) string {
	switch {
	case name == "":
		return code
	case code == "" || code == name:
		return name
	}
	return name + " [" + code + "]"
}
