package domain

import "time"

// TimeRange is the half-open interval [Start, End).
type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func (r TimeRange) Duration() time.Duration {
	if r.End.Before(r.Start) {
		return 0
	}
	return r.End.Sub(r.Start)
}

func (r TimeRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && t.Before(r.End)
}

func (r TimeRange) IsZero() bool {
	return r.Start.IsZero() && r.End.IsZero()
}

// Buckets splits the range into consecutive sub-windows of size step. The
// last bucket is cut at End.
func (r TimeRange) Buckets(step time.Duration) []TimeRange {
	if step <= 0 || r.Duration() == 0 {
		return nil
	}
	out := make([]TimeRange, 0, int(r.Duration()/step)+1)
	for start := r.Start; start.Before(r.End); start = start.Add(step) {
		end := start.Add(step)
		if end.After(r.End) {
			end = r.End
		}
		out = append(out, TimeRange{Start: start, End: end})
	}
	return out
}
