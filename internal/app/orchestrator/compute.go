package orchestrator

import (
	"fmt"
	"strings"

	"github.com/ghalamif/AegisInsight/internal/domain"
	"github.com/ghalamif/AegisInsight/internal/kpi"
)

// compute runs the calculators for one analysis type. kind must be
// analytical; checkType has already vetted it.
func compute(kind domain.AnalysisType, fs kpi.FactSet, window domain.TimeRange, topN int, allEquipment bool) (domain.KPISet, []domain.Warning) {
	var (
		out   = domain.KPISet{Totals: kpi.Totals(fs)}
		warns []domain.Warning
	)
	oee := func() {
		b, w := kpi.OEE(fs)
		out.OEE = &b
		warns = append(warns, w...)
	}
	downtime := func() {
		r := kpi.RankDowntime(fs.Downtime, topN)
		out.Downtime = &r
	}
	scrap := func() {
		r := kpi.RankScrap(fs.Scrap, topN)
		out.Scrap = &r
	}
	trend := func() {
		out.Trend = kpi.ProductionTrend(fs.Production, window, kpi.TrendStep(window))
	}

	switch kind {
	case domain.AnalysisOEE:
		oee()
		if allEquipment {
			out.ByEquipment = kpi.OEEByEquipment(fs)
		}
	case domain.AnalysisDowntime:
		downtime()
		oee()
	case domain.AnalysisRootCause:
		downtime()
		scrap()
		oee()
	case domain.AnalysisQuality:
		scrap()
		q, w := kpi.QualityDetail(fs)
		out.Quality = &q
		warns = append(warns, w...)
	case domain.AnalysisMaintenance:
		r := kpi.Reliability(fs)
		out.Reliability = &r
		downtime()
		oee()
	case domain.AnalysisProduction:
		trend()
		if allEquipment {
			out.ByEquipment = kpi.OEEByEquipment(fs)
		}
	case domain.AnalysisTrending:
		trend()
		oee()
		out.ByShift = kpi.OEEByShift(fs)
		out.OEETrend = kpi.OEETrend(fs, window, kpi.TrendStep(window))
	}
	return out, warns
}

func visualizations(kind domain.AnalysisType, m domain.KPISet) []domain.Visualization {
	var out []domain.Visualization
	if m.OEE != nil {
		out = append(out,
			domain.Visualization{
				Type:   "gauge_chart",
				Title:  "OEE",
				Series: []domain.Series{{Name: "oee", Points: []domain.Point{{Label: "OEE", Value: m.OEE.OEE}}}},
			},
			domain.Visualization{
				Type:  "bar",
				Title: "OEE factors",
				YAxis: "ratio",
				Series: []domain.Series{{Name: "factors", Points: []domain.Point{
					{Label: "Availability", Value: m.OEE.Availability},
					{Label: "Performance", Value: m.OEE.Performance},
					{Label: "Quality", Value: m.OEE.Quality},
				}}},
			},
		)
	}
	if m.Quality != nil {
		out = append(out, domain.Visualization{
			Type:   "big_number_total",
			Title:  "Quality rate",
			Series: []domain.Series{{Name: "quality", Points: []domain.Point{{Label: "Quality", Value: m.Quality.Rate}}}},
		})
	}
	if m.Downtime != nil {
		out = append(out, pareto("Downtime by reason", m.Downtime))
	}
	if m.Scrap != nil {
		title := "Scrap by reason"
		if kind == domain.AnalysisQuality {
			title = "Top defect types"
		}
		out = append(out, pareto(title, m.Scrap))
	}
	if m.Reliability != nil {
		out = append(out, domain.Visualization{
			Type:  "big_number_total",
			Title: "Reliability",
			YAxis: "hours",
			Series: []domain.Series{{Name: "reliability", Points: []domain.Point{
				{Label: "MTBF", Value: m.Reliability.MTBF.Hours()},
				{Label: "MTTR", Value: m.Reliability.MTTR.Hours()},
				{Label: "Events", Value: float64(m.Reliability.Events)},
			}}},
		})
	}
	if len(m.Trend) > 0 {
		parts := domain.Series{Name: "total_parts"}
		good := domain.Series{Name: "good_parts"}
		quality := domain.Series{Name: "quality"}
		for _, b := range m.Trend {
			l := b.Window.Start.Format("2006-01-02 15:04")
			parts.Points = append(parts.Points, domain.Point{Label: l, Value: float64(b.TotalParts)})
			good.Points = append(good.Points, domain.Point{Label: l, Value: float64(b.GoodParts)})
			quality.Points = append(quality.Points, domain.Point{Label: l, Value: b.Quality})
		}
		out = append(out,
			domain.Visualization{Type: "area", Title: "Production over time", XAxis: "time", YAxis: "parts", Series: []domain.Series{parts, good}},
			domain.Visualization{Type: "line", Title: "Quality over time", XAxis: "time", YAxis: "ratio", Series: []domain.Series{quality}},
		)
	}
	if len(m.ByEquipment) > 0 {
		out = append(out, groupChart("heatmap", "OEE by equipment", "equipment", m.ByEquipment))
	}
	if len(m.OEETrend) > 0 {
		out = append(out, oeeHeatmap(m.OEETrend))
	}
	if len(m.ByShift) > 0 {
		out = append(out, groupChart("bar", "Shift performance", "shift", m.ByShift))
	}
	return out
}

func pareto(title string, r *domain.Ranking) domain.Visualization {
	values := domain.Series{Name: r.Unit}
	shares := domain.Series{Name: "percentage"}
	for _, it := range r.Items {
		values.Points = append(values.Points, domain.Point{Label: it.Reason, Value: it.Value})
		shares.Points = append(shares.Points, domain.Point{Label: it.Reason, Value: it.Percentage})
	}
	return domain.Visualization{Type: "bar", Title: title, XAxis: "reason", YAxis: r.Unit, Series: []domain.Series{values, shares}}
}

func groupChart(typ, title, axis string, groups []domain.GroupOEE) domain.Visualization {
	names := []string{"availability", "performance", "quality", "oee"}
	series := make([]domain.Series, len(names))
	for i, n := range names {
		series[i].Name = n
	}
	for _, g := range groups {
		for i, v := range []float64{g.Availability, g.Performance, g.Quality, g.OEE} {
			series[i].Points = append(series[i].Points, domain.Point{Label: g.Label, Value: v})
		}
	}
	return domain.Visualization{Type: typ, Title: title, XAxis: axis, YAxis: "ratio", Series: series}
}

// oeeHeatmap has one series per equipment, one point per populated sub-window.
func oeeHeatmap(cells []domain.OEECell) domain.Visualization {
	var (
		series []domain.Series
		key    string
	)
	for i, c := range cells {
		if i == 0 || c.Key != key {
			key = c.Key
			series = append(series, domain.Series{Name: c.Label})
		}
		s := &series[len(series)-1]
		s.Points = append(s.Points, domain.Point{Label: c.Window.Start.Format("2006-01-02 15:04"), Value: c.OEE})
	}
	return domain.Visualization{Type: "heatmap", Title: "OEE by equipment over time", XAxis: "time", YAxis: "equipment", Series: series}
}

var (
	refOEE          = domain.Reference{Standard: "ISO 22400-2", Title: "Key performance indicators for manufacturing operations management", Clause: "OEE index"}
	refProductivity = domain.Reference{Standard: "SEMI E79", Title: "Specification for Definition and Measurement of Equipment Productivity"}
	refRAM          = domain.Reference{Standard: "SEMI E10", Title: "Specification for Definition and Measurement of Equipment Reliability, Availability, and Maintainability"}
	refNonconform   = domain.Reference{Standard: "ISO 9001:2015", Title: "Quality management systems", Clause: "8.7 Control of nonconforming outputs"}
	refCorrective   = domain.Reference{Standard: "ISO 9001:2015", Title: "Quality management systems", Clause: "10.2 Nonconformity and corrective action"}
	refQualityRatio = domain.Reference{Standard: "ISO 22400-2", Title: "Key performance indicators for manufacturing operations management", Clause: "Quality ratio"}
	refThroughput   = domain.Reference{Standard: "ISO 22400-2", Title: "Key performance indicators for manufacturing operations management", Clause: "Throughput rate"}
)

func references(kind domain.AnalysisType) []domain.Reference {
	switch kind {
	case domain.AnalysisOEE:
		return []domain.Reference{refOEE, refProductivity}
	case domain.AnalysisDowntime:
		return []domain.Reference{refRAM, refOEE}
	case domain.AnalysisMaintenance:
		return []domain.Reference{refRAM}
	case domain.AnalysisQuality:
		return []domain.Reference{refQualityRatio, refNonconform}
	case domain.AnalysisRootCause:
		return []domain.Reference{refCorrective, refRAM}
	case domain.AnalysisProduction, domain.AnalysisTrending:
		return []domain.Reference{refThroughput, refOEE}
	}
	return nil
}

// summarize writes the placeholder content. Prose is the NLG layer's job.
func summarize(kind domain.AnalysisType, m domain.KPISet, window string, noData bool) string {
	window = strings.ToLower(window)
	if noData {
		return fmt.Sprintf("No production data was recorded (%s). OEE is reported as 0.", window)
	}
	var b strings.Builder
	switch kind {
	case domain.AnalysisQuality:
		fmt.Fprintf(&b, "Quality %s over %d parts (%s).", pct(m.Quality.Rate), m.Quality.TotalParts, window)
		topReasons(&b, "defect", m.Scrap)
	case domain.AnalysisDowntime, domain.AnalysisRootCause:
		fmt.Fprintf(&b, "%.0f minutes of downtime (%s), availability %s.", m.Downtime.Total, window, pct(m.OEE.Availability))
		topReasons(&b, "downtime", m.Downtime)
		if m.Scrap != nil {
			topReasons(&b, "scrap", m.Scrap)
		}
	case domain.AnalysisMaintenance:
		fmt.Fprintf(&b, "%d downtime events (%s), MTTR %s, MTBF %s.", m.Reliability.Events, window, m.Reliability.MTTR, m.Reliability.MTBF)
		topReasons(&b, "downtime", m.Downtime)
	case domain.AnalysisProduction, domain.AnalysisTrending:
		fmt.Fprintf(&b, "%d parts produced in %d runs (%s), %d good.", m.Totals.TotalParts, m.Totals.Runs, window, m.Totals.GoodParts)
		if m.OEE != nil {
			fmt.Fprintf(&b, " OEE %s.", pct(m.OEE.OEE))
		}
	default:
		fmt.Fprintf(&b, "OEE %s (availability %s, performance %s, quality %s) over %d runs (%s).",
			pct(m.OEE.OEE), pct(m.OEE.Availability), pct(m.OEE.Performance), pct(m.OEE.Quality), m.Totals.Runs, window)
	}
	return b.String()
}

func topReasons(b *strings.Builder, what string, r *domain.Ranking) {
	if r == nil || len(r.Items) == 0 {
		return
	}
	parts := make([]string, 0, len(r.Items))
	for _, it := range r.Items {
		parts = append(parts, fmt.Sprintf("%s %.1f%%", it.Reason, it.Percentage))
	}
	fmt.Fprintf(b, " Top %s reasons: %s.", what, strings.Join(parts, ", "))
}

func pct(v float64) string { return fmt.Sprintf("%.1f%%", v*100) }
