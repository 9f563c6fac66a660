package domain

import "time"

// Equipment is a producing asset and its position in the site hierarchy.
type Equipment struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Code            string  `json:"code"`
	TheoreticalRate float64 `json:"theoretical_rate"` // parts per hour
	WorkCenterID    string  `json:"work_center_id,omitempty"`
	WorkCenter      string  `json:"work_center,omitempty"`
	AreaID          string  `json:"area_id,omitempty"`
	Area            string  `json:"area,omitempty"`
	SiteID          string  `json:"site_id,omitempty"`
	Site            string  `json:"site,omitempty"`
}

type Product struct {
	ID   string `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}

type Site struct {
	ID    string   `json:"id"`
	Code  string   `json:"code"`
	Name  string   `json:"name"`
	Areas []string `json:"areas,omitempty"`
}

// ProductionRecord is one production run of a product on a piece of equipment.
// GoodParts+ScrapParts+ReworkParts should never exceed TotalParts.
type ProductionRecord struct {
	ID                    string        `json:"id"`
	EquipmentID           string        `json:"equipment_id"`
	ProductID             string        `json:"product_id"`
	ShiftID               string        `json:"shift_id,omitempty"`
	StartTime             time.Time     `json:"start_time"`
	EndTime               time.Time     `json:"end_time"`
	PlannedProductionTime time.Duration `json:"planned_production_time"`
	OperatingTime         time.Duration `json:"operating_time"`
	TotalParts            int64         `json:"total_parts"`
	GoodParts             int64         `json:"good_parts"`
	ScrapParts            int64         `json:"scrap_parts"`
	ReworkParts           int64         `json:"rework_parts"`
}

// DowntimeRecord is a stoppage attributed to a production run.
type DowntimeRecord struct {
	ID                 string        `json:"id"`
	ProductionRecordID string        `json:"production_record_id"`
	EquipmentID        string        `json:"equipment_id"`
	ReasonCode         string        `json:"reason_code"`
	Category           string        `json:"category,omitempty"`
	Duration           time.Duration `json:"duration"`
	StartTime          time.Time     `json:"start_time"`
}

// ScrapRecord is a quantity of scrapped parts attributed to a production run.
type ScrapRecord struct {
	ID                 string `json:"id"`
	ProductionRecordID string `json:"production_record_id"`
	EquipmentID        string `json:"equipment_id"`
	ProductID          string `json:"product_id"`
	ReasonCode         string `json:"reason_code"`
	Quantity           int64  `json:"quantity"`
}

// EquipmentStatus is a live reading of an equipment state tag.
type EquipmentStatus struct {
	EquipmentID string    `json:"equipment_id"`
	NodeID      string    `json:"node_id"`
	State       string    `json:"state"`
	Value       float64   `json:"value"`
	ObservedAt  time.Time `json:"observed_at"`
}

// ActivitySummary is a cheap aggregate over a window, served by the fast path.
type ActivitySummary struct {
	Window         TimeRange     `json:"window"`
	ProductionRuns int64         `json:"production_runs"`
	TotalParts     int64         `json:"total_parts"`
	GoodParts      int64         `json:"good_parts"`
	ScrapParts     int64         `json:"scrap_parts"`
	DowntimeEvents int64         `json:"downtime_events"`
	Downtime       time.Duration `json:"downtime"`
}
