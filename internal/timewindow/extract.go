// Package timewindow turns temporal phrases in operator questions into
// concrete [start, end) windows.
package timewindow

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ghalamif/AegisInsight/internal/domain"
)

// DefaultWindow is used when a query carries no recognizable phrase.
const DefaultWindow = 24 * time.Hour

const dateLayout = "2006-01-02"

// Resolution is the outcome of matching a query against the phrase table.
type Resolution struct {
	Range     domain.TimeRange
	Phrase    string
	Label     string
	Defaulted bool
}

type matcher struct {
	re      *regexp.Regexp
	resolve func(m []string, now time.Time) (domain.TimeRange, string, bool)
}

// Tiers in priority order: explicit ranges, named days, rolling windows,
// calendar boundaries. The first matcher that resolves wins.
var matchers = []matcher{
	{regexp.MustCompile(`\bbetween\s+(\d{4}-\d{2}-\d{2})\s+and\s+(\d{4}-\d{2}-\d{2})\b`), explicitRange},
	{regexp.MustCompile(`\bfrom\s+(\d{4}-\d{2}-\d{2})\s+(?:to|until|through)\s+(\d{4}-\d{2}-\d{2})\b`), explicitRange},
	{regexp.MustCompile(`\bon\s+(\d{4}-\d{2}-\d{2})\b`), explicitDay},

	{regexp.MustCompile(`\btoday\b`), today},
	{regexp.MustCompile(`\byesterday\b`), yesterday},

	{regexp.MustCompile(`\b(?:last|past|previous)\s+(\d{1,4})\s+(hours?|hrs?|days?|weeks?)\b`), rollingN},
	{regexp.MustCompile(`\b(?:last|past|previous)\s+hour\b`), rolling(time.Hour, "Last hour")},
	{regexp.MustCompile(`\b(?:last|past|previous)\s+day\b`), rolling(24*time.Hour, "Last 24 hours")},
	{regexp.MustCompile(`\b(?:last|past|previous|this)\s+week\b`), rolling(7*24*time.Hour, "Last 7 days")},
	{regexp.MustCompile(`\b(?:last|past|previous)\s+month\b`), rolling(30*24*time.Hour, "Last 30 days")},

	{regexp.MustCompile(`\b(?:this\s+month|month\s+to\s+date|mtd)\b`), thisMonth},
	{regexp.MustCompile(`\b(?:this\s+year|year\s+to\s+date|ytd)\b`), thisYear},
}

// Extract returns the window implied by query relative to now. It never
// fails: unknown or empty text yields the trailing 24 hours.
func Extract(query string, now time.Time) domain.TimeRange {
	return Resolve(query, now).Range
}

// Resolve is Extract plus the matched phrase and a display label.
func Resolve(query string, now time.Time) Resolution {
	text := strings.ToLower(query)
	for _, m := range matchers {
		groups := m.re.FindStringSubmatch(text)
		if groups == nil {
			continue
		}
		r, label, ok := m.resolve(groups, now)
		if !ok {
			continue
		}
		return Resolution{Range: r, Phrase: groups[0], Label: label}
	}
	return Resolution{
		Range:     domain.TimeRange{Start: now.Add(-DefaultWindow), End: now},
		Label:     "Last 24 hours",
		Defaulted: true,
	}
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func parseDay(s string, loc *time.Location) (time.Time, bool) {
	t, err := time.ParseInLocation(dateLayout, s, loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func explicitRange(m []string, now time.Time) (domain.TimeRange, string, bool) {
	a, okA := parseDay(m[1], now.Location())
	b, okB := parseDay(m[2], now.Location())
	if !okA || !okB {
		return domain.TimeRange{}, "", false
	}
	if b.Before(a) {
		a, b = b, a
	}
	end := time.Date(b.Year(), b.Month(), b.Day()+1, 0, 0, 0, 0, b.Location())
	return domain.TimeRange{Start: a, End: end}, fmt.Sprintf("%s to %s", a.Format(dateLayout), b.Format(dateLayout)), true
}

func explicitDay(m []string, now time.Time) (domain.TimeRange, string, bool) {
	d, ok := parseDay(m[1], now.Location())
	if !ok {
		return domain.TimeRange{}, "", false
	}
	end := time.Date(d.Year(), d.Month(), d.Day()+1, 0, 0, 0, 0, d.Location())
	return domain.TimeRange{Start: d, End: end}, d.Format(dateLayout), true
}

func today(_ []string, now time.Time) (domain.TimeRange, string, bool) {
	return domain.TimeRange{Start: startOfDay(now), End: now}, "Today", true
}

func yesterday(_ []string, now time.Time) (domain.TimeRange, string, bool) {
	end := startOfDay(now)
	start := time.Date(end.Year(), end.Month(), end.Day()-1, 0, 0, 0, 0, end.Location())
	return domain.TimeRange{Start: start, End: end}, "Yesterday", true
}

func rolling(d time.Duration, label string) func([]string, time.Time) (domain.TimeRange, string, bool) {
	return func(_ []string, now time.Time) (domain.TimeRange, string, bool) {
		return domain.TimeRange{Start: now.Add(-d), End: now}, label, true
	}
}

func rollingN(m []string, now time.Time) (domain.TimeRange, string, bool) {
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return domain.TimeRange{}, "", false
	}
	var unit time.Duration
	var name string
	switch {
	case strings.HasPrefix(m[2], "h"):
		unit, name = time.Hour, "hours"
	case strings.HasPrefix(m[2], "d"):
		unit, name = 24*time.Hour, "days"
	default:
		unit, name = 7*24*time.Hour, "weeks"
	}
	if n == 1 {
		name = strings.TrimSuffix(name, "s")
	}
	d := time.Duration(n) * unit
	return domain.TimeRange{Start: now.Add(-d), End: now}, fmt.Sprintf("Last %d %s", n, name), true
}

func thisMonth(_ []string, now time.Time) (domain.TimeRange, string, bool) {
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	return domain.TimeRange{Start: start, End: now}, "This month", true
}

func thisYear(_ []string, now time.Time) (domain.TimeRange, string, bool) {
	start := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())
	return domain.TimeRange{Start: start, End: now}, "This year", true
}
