package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/georgysavva/scany/v2/sqlscan"

	"github.com/ghalamif/AegisInsight/internal/domain"
	"github.com/ghalamif/AegisInsight/internal/ports"
)

const equipmentSelect = `SELECT e.id, e.name, e.code, e.theoretical_rate,
	COALESCE(wc.id, '') AS work_center_id, COALESCE(wc.name, '') AS work_center,
	COALESCE(a.id, '') AS area_id, COALESCE(a.name, '') AS area,
	COALESCE(s.id, '') AS site_id, COALESCE(s.name, '') AS site
FROM equipment e
LEFT JOIN work_centers wc ON wc.id = e.work_center_id
LEFT JOIN areas a ON a.id = wc.area_id
LEFT JOIN sites s ON s.id = a.site_id`

const productionSelect = `SELECT p.id, p.equipment_id, COALESCE(p.product_id, '') AS product_id,
	COALESCE(p.shift_id, '') AS shift_id, p.start_time, p.end_time,
	p.planned_production_seconds, p.operating_seconds,
	p.total_parts, p.good_parts, p.scrap_parts, p.rework_parts
FROM production_records p
JOIN equipment e ON e.id = p.equipment_id
WHERE p.start_time >= $1 AND p.start_time < $2`

// Downtime and scrap belong to the window of their production record.
const downtimeSelect = `SELECT d.id, d.production_record_id, d.equipment_id, d.reason_code, d.category,
	d.duration_seconds, d.start_time
FROM downtime_records d
JOIN production_records p ON p.id = d.production_record_id
JOIN equipment e ON e.id = p.equipment_id
WHERE p.start_time >= $1 AND p.start_time < $2`

const scrapSelect = `SELECT sr.id, sr.production_record_id, sr.equipment_id, COALESCE(sr.product_id, '') AS product_id,
	sr.reason_code, sr.quantity
FROM scrap_records sr
JOIN production_records p ON p.id = sr.production_record_id
JOIN equipment e ON e.id = p.equipment_id
WHERE p.start_time >= $1 AND p.start_time < $2`

const scopeClause = ` AND (e.id = $%d OR lower(e.code) = lower($%d))`

const activitySelect = `SELECT
	(SELECT COUNT(*) FROM production_records p WHERE p.start_time >= $1 AND p.start_time < $2) AS production_runs,
	(SELECT COALESCE(SUM(total_parts), 0) FROM production_records p WHERE p.start_time >= $1 AND p.start_time < $2) AS total_parts,
	(SELECT COALESCE(SUM(good_parts), 0) FROM production_records p WHERE p.start_time >= $1 AND p.start_time < $2) AS good_parts,
	(SELECT COALESCE(SUM(scrap_parts), 0) FROM production_records p WHERE p.start_time >= $1 AND p.start_time < $2) AS scrap_parts,
	(SELECT COUNT(*) FROM downtime_records d JOIN production_records p ON p.id = d.production_record_id
		WHERE p.start_time >= $1 AND p.start_time < $2) AS downtime_events,
	(SELECT COALESCE(SUM(d.duration_seconds), 0) FROM downtime_records d JOIN production_records p ON p.id = d.production_record_id
		WHERE p.start_time >= $1 AND p.start_time < $2) AS downtime_seconds`

type equipmentRow struct {
	ID              string  `db:"id"`
	Name            string  `db:"name"`
	Code            string  `db:"code"`
	TheoreticalRate float64 `db:"theoretical_rate"`
	WorkCenterID    string  `db:"work_center_id"`
	WorkCenter      string  `db:"work_center"`
	AreaID          string  `db:"area_id"`
	Area            string  `db:"area"`
	SiteID          string  `db:"site_id"`
	Site            string  `db:"site"`
}

type productionRow struct {
	ID                       string       `db:"id"`
	EquipmentID              string       `db:"equipment_id"`
	ProductID                string       `db:"product_id"`
	ShiftID                  string       `db:"shift_id"`
	StartTime                time.Time    `db:"start_time"`
	EndTime                  sql.NullTime `db:"end_time"`
	PlannedProductionSeconds float64      `db:"planned_production_seconds"`
	OperatingSeconds         float64      `db:"operating_seconds"`
	TotalParts               int64        `db:"total_parts"`
	GoodParts                int64        `db:"good_parts"`
	ScrapParts               int64        `db:"scrap_parts"`
	ReworkParts              int64        `db:"rework_parts"`
}

type downtimeRow struct {
	ID                 string       `db:"id"`
	ProductionRecordID string       `db:"production_record_id"`
	EquipmentID        string       `db:"equipment_id"`
	ReasonCode         string       `db:"reason_code"`
	Category           string       `db:"category"`
	DurationSeconds    float64      `db:"duration_seconds"`
	StartTime          sql.NullTime `db:"start_time"`
}

type scrapRow struct {
	ID                 string `db:"id"`
	ProductionRecordID string `db:"production_record_id"`
	EquipmentID        string `db:"equipment_id"`
	ProductID          string `db:"product_id"`
	ReasonCode         string `db:"reason_code"`
	Quantity           int64  `db:"quantity"`
}

type siteRow struct {
	ID    string `db:"id"`
	Code  string `db:"code"`
	Name  string `db:"name"`
	Areas string `db:"areas"`
}

type activityRow struct {
	ProductionRuns  int64   `db:"production_runs"`
	TotalParts      int64   `db:"total_parts"`
	GoodParts       int64   `db:"good_parts"`
	ScrapParts      int64   `db:"scrap_parts"`
	DowntimeEvents  int64   `db:"downtime_events"`
	DowntimeSeconds float64 `db:"downtime_seconds"`
}

// TimescaleStore reads facts and catalog entries from the Timescale/Postgres
// schema created by Migrate. It never writes.
type TimescaleStore struct {
	db           *sql.DB
	rowLimit     int
	queryTimeout time.Duration
}

// NewTimescaleStore caps every fact read at rowLimit rows (0 for no cap) and
// every statement at queryTimeout (0 for none).
func NewTimescaleStore(db *sql.DB, rowLimit int, queryTimeout time.Duration) *TimescaleStore {
	return &TimescaleStore{db: db, rowLimit: rowLimit, queryTimeout: queryTimeout}
}

func (t *TimescaleStore) Name() string { return "timescaledb" }

func (t *TimescaleStore) FetchEquipment(ctx context.Context, scope ports.EquipmentScope) ([]domain.Equipment, error) {
	q := equipmentSelect
	var args []any
	if !scope.All() {
		q += " WHERE e.id = $1 OR lower(e.code) = lower($1)"
		args = append(args, scope.EquipmentID)
	}
	q += " ORDER BY e.code"

	var rows []equipmentRow
	if err := t.selectRows(ctx, "equipment", &rows, q, args...); err != nil {
		return nil, err
	}
	out := make([]domain.Equipment, len(rows))
	for i, r := range rows {
		out[i] = domain.Equipment(r)
	}
	return out, nil
}

func (t *TimescaleStore) FetchProduction(ctx context.Context, scope ports.EquipmentScope, window domain.TimeRange) ([]domain.ProductionRecord, error) {
	q, args := t.factQuery(productionSelect, "p.start_time, p.id", scope, window)
	var rows []productionRow
	if err := t.selectRows(ctx, "production", &rows, q, args...); err != nil {
		return nil, err
	}
	out := make([]domain.ProductionRecord, len(rows))
	for i, r := range rows {
		out[i] = domain.ProductionRecord{
			ID:                    r.ID,
			EquipmentID:           r.EquipmentID,
			ProductID:             r.ProductID,
			ShiftID:               r.ShiftID,
			StartTime:             r.StartTime,
			EndTime:               r.EndTime.Time,
			PlannedProductionTime: seconds(r.PlannedProductionSeconds),
			OperatingTime:         seconds(r.OperatingSeconds),
			TotalParts:            r.TotalParts,
			GoodParts:             r.GoodParts,
			ScrapParts:            r.ScrapParts,
			ReworkParts:           r.ReworkParts,
		}
	}
	return out, nil
}

func (t *TimescaleStore) FetchDowntime(ctx context.Context, scope ports.EquipmentScope, window domain.TimeRange) ([]domain.DowntimeRecord, error) {
	q, args := t.factQuery(downtimeSelect, "p.start_time, d.id", scope, window)
	var rows []downtimeRow
	if err := t.selectRows(ctx, "downtime", &rows, q, args...); err != nil {
		return nil, err
	}
	out := make([]domain.DowntimeRecord, len(rows))
	for i, r := range rows {
		out[i] = domain.DowntimeRecord{
			ID:                 r.ID,
			ProductionRecordID: r.ProductionRecordID,
			EquipmentID:        r.EquipmentID,
			ReasonCode:         r.ReasonCode,
			Category:           r.Category,
			Duration:           seconds(r.DurationSeconds),
			StartTime:          r.StartTime.Time,
		}
	}
	return out, nil
}

func (t *TimescaleStore) FetchScrap(ctx context.Context, scope ports.EquipmentScope, window domain.TimeRange) ([]domain.ScrapRecord, error) {
	q, args := t.factQuery(scrapSelect, "p.start_time, sr.id", scope, window)
	var rows []scrapRow
	if err := t.selectRows(ctx, "scrap", &rows, q, args...); err != nil {
		return nil, err
	}
	out := make([]domain.ScrapRecord, len(rows))
	for i, r := range rows {
		out[i] = domain.ScrapRecord(r)
	}
	return out, nil
}

func (t *TimescaleStore) ListEquipment(ctx context.Context) ([]domain.Equipment, error) {
	return t.FetchEquipment(ctx, ports.AllEquipment())
}

func (t *TimescaleStore) ListProducts(ctx context.Context) ([]domain.Product, error) {
	var out []domain.Product
	err := t.selectRows(ctx, "products", &out, `SELECT id, code, name FROM products ORDER BY code`)
	return out, err
}

func (t *TimescaleStore) ListSites(ctx context.Context) ([]domain.Site, error) {
	var rows []siteRow
	q := `SELECT s.id, s.code, s.name, COALESCE(string_agg(a.name, ',' ORDER BY a.name), '') AS areas
FROM sites s
LEFT JOIN areas a ON a.site_id = s.id
GROUP BY s.id, s.code, s.name
ORDER BY s.name`
	if err := t.selectRows(ctx, "sites", &rows, q); err != nil {
		return nil, err
	}
	out := make([]domain.Site, len(rows))
	for i, r := range rows {
		out[i] = domain.Site{ID: r.ID, Code: r.Code, Name: r.Name}
		if r.Areas != "" {
			out[i].Areas = strings.Split(r.Areas, ",")
		}
	}
	return out, nil
}

func (t *TimescaleStore) RecentActivity(ctx context.Context, window domain.TimeRange) (domain.ActivitySummary, error) {
	ctx, cancel := t.withTimeout(ctx)
	defer cancel()

	var row activityRow
	if err := sqlscan.Get(ctx, t.db, &row, activitySelect, window.Start, window.End); err != nil {
		return domain.ActivitySummary{}, fmt.Errorf("activity: %w: %w", ports.ErrStoreUnavailable, err)
	}
	return domain.ActivitySummary{
		Window:         window,
		ProductionRuns: row.ProductionRuns,
		TotalParts:     row.TotalParts,
		GoodParts:      row.GoodParts,
		ScrapParts:     row.ScrapParts,
		DowntimeEvents: row.DowntimeEvents,
		Downtime:       seconds(row.DowntimeSeconds),
	}, nil
}

func (t *TimescaleStore) factQuery(base, order string, scope ports.EquipmentScope, window domain.TimeRange) (string, []any) {
	args := []any{window.Start, window.End}
	q := base
	if !scope.All() {
		args = append(args, scope.EquipmentID)
		q += fmt.Sprintf(scopeClause, len(args), len(args))
	}
	q += " ORDER BY " + order
	if t.rowLimit > 0 {
		args = append(args, t.rowLimit)
		q += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	return q, args
}

func (t *TimescaleStore) selectRows(ctx context.Context, what string, dst any, q string, args ...any) error {
	ctx, cancel := t.withTimeout(ctx)
	defer cancel()
	if err := sqlscan.Select(ctx, t.db, dst, q, args...); err != nil {
		return fmt.Errorf("%s: %w: %w", what, ports.ErrStoreUnavailable, err)
	}
	return nil
}

func (t *TimescaleStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if t.queryTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, t.queryTimeout)
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

var _ ports.Store = (*TimescaleStore)(nil)
