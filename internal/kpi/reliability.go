package kpi

import (
	"time"

	"github.com/ghalamif/AegisInsight/internal/domain"
)

// Reliability derives MTTR and MTBF from downtime events. An event is a
// downtime record with a positive duration. With no events MTTR is 0 and MTBF
// is the whole run time.
func Reliability(fs FactSet) domain.Reliability {
	var out domain.Reliability
	for _, d := range fs.Downtime {
		if d.Duration > 0 {
			out.Events++
			out.Downtime += d.Duration
		}
	}
	var operating time.Duration
	for _, r := range fs.Production {
		operating += nonNegative(r.OperatingTime)
	}
	run := nonNegative(operating - out.Downtime)
	if out.Events == 0 {
		out.MTBF = run
		return out
	}
	out.MTTR = out.Downtime / time.Duration(out.Events)
	out.MTBF = run / time.Duration(out.Events)
	return out
}
