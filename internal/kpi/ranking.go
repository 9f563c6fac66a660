package kpi

import (
	"math"
	"sort"

	"github.com/ghalamif/AegisInsight/internal/domain"
)

// UnspecifiedReason labels records that carry no reason code.
const UnspecifiedReason = "UNSPECIFIED"

type bucket struct {
	reason string
	value  float64
	count  int
}

// rank groups items by reason, sums their value, orders descending (reason
// ascending on ties) and keeps the first topN. topN <= 0 keeps everything.
// Items for which value reports false are excluded.
func rank[T any](items []T, reason func(T) string, value func(T) (float64, bool), topN int, unit string) domain.Ranking {
	index := make(map[string]int)
	var buckets []bucket
	for _, it := range items {
		v, ok := value(it)
		if !ok {
			continue
		}
		key := reason(it)
		if key == "" {
			key = UnspecifiedReason
		}
		i, seen := index[key]
		if !seen {
			i = len(buckets)
			index[key] = i
			buckets = append(buckets, bucket{reason: key})
		}
		buckets[i].value += v
		buckets[i].count++
	}

	sort.Slice(buckets, func(i, j int) bool {
		if buckets[i].value != buckets[j].value {
			return buckets[i].value > buckets[j].value
		}
		return buckets[i].reason < buckets[j].reason
	})

	keep := len(buckets)
	if topN > 0 && topN < keep {
		keep = topN
	}

	// Total and kept are summed in the same order so Coverage is exactly 100
	// when nothing is cut.
	var total, kept float64
	for i, b := range buckets {
		total += b.value
		if i < keep {
			kept += b.value
		}
	}

	out := domain.Ranking{Unit: unit, Total: total, Items: make([]domain.RankedReason, 0, keep)}
	for _, b := range buckets[:keep] {
		item := domain.RankedReason{Reason: b.reason, Value: b.value, Count: b.count}
		if total > 0 {
			item.Percentage = b.value / total * 100
		}
		out.Items = append(out.Items, item)
	}
	if total > 0 {
		out.Coverage = kept / total * 100
	}
	settle(out.Items, out.Coverage)
	return out
}

// settle adjusts the last item so the percentages, summed in order, land on
// coverage without passing it.
func settle(items []domain.RankedReason, coverage float64) {
	if len(items) == 0 || coverage <= 0 {
		return
	}
	last := len(items) - 1
	var prev float64
	for i := range items[:last] {
		if prev+items[i].Percentage > coverage {
			items[i].Percentage = max(0, coverage-prev)
		}
		prev += items[i].Percentage
	}
	p := max(0, coverage-prev)
	for p > 0 && prev+p > coverage {
		p = math.Nextafter(p, 0)
	}
	for next := math.Nextafter(p, math.Inf(1)); prev+next <= coverage && prev+p < coverage; next = math.Nextafter(p, math.Inf(1)) {
		p = next
	}
	items[last].Percentage = p
}

// RankDowntime is the downtime Pareto in minutes. Negative durations are
// excluded.
func RankDowntime(records []domain.DowntimeRecord, topN int) domain.Ranking {
	return rank(records,
		func(d domain.DowntimeRecord) string { return d.ReasonCode },
		func(d domain.DowntimeRecord) (float64, bool) { return d.Duration.Minutes(), d.Duration >= 0 },
		topN, "minutes")
}

// RankScrap is the scrap Pareto in parts. Non-positive quantities are
// excluded.
func RankScrap(records []domain.ScrapRecord, topN int) domain.Ranking {
	return rank(records,
		func(s domain.ScrapRecord) string { return s.ReasonCode },
		func(s domain.ScrapRecord) (float64, bool) { return float64(s.Quantity), s.Quantity > 0 },
		topN, "parts")
}
