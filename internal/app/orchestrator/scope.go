package orchestrator

import (
	"regexp"

	"github.com/ghalamif/AegisInsight/internal/ports"
)

var (
	// "machine cnc-01", "press 4", "on line L2"
	namedEquipment = regexp.MustCompile(`(?i)\b(?:machine|equipment|press|line|asset|station|cell)\s+#?([a-z0-9][a-z0-9_-]*\d[a-z0-9_-]*)\b`)
	// bare asset codes such as CNC-01 or PRS-12
	assetCode = regexp.MustCompile(`\b([A-Z]{2,}-\d+[A-Z0-9]*)\b`)
)

// ScopeFromQuery picks a single equipment out of the query text. No match
// means all equipment.
func ScopeFromQuery(query string) ports.EquipmentScope {
	if m := namedEquipment.FindStringSubmatch(query); m != nil {
		return ports.SingleEquipment(m[1])
	}
	if m := assetCode.FindStringSubmatch(query); m != nil {
		return ports.SingleEquipment(m[1])
	}
	return ports.AllEquipment()
}
