package store

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ghalamif/AegisInsight/internal/domain"
)

// Fixture is the YAML layout accepted by LoadFixture.
type Fixture struct {
	Sites      []domain.Site       `yaml:"sites"`
	Products   []domain.Product    `yaml:"products"`
	Equipment  []fixtureEquipment  `yaml:"equipment"`
	Production []fixtureProduction `yaml:"production"`
}

type fixtureEquipment struct {
	ID              string  `yaml:"id"`
	Name            string  `yaml:"name"`
	Code            string  `yaml:"code"`
	TheoreticalRate float64 `yaml:"theoretical_rate"`
	WorkCenter      string  `yaml:"work_center"`
	Area            string  `yaml:"area"`
	Site            string  `yaml:"site"`
}

type fixtureProduction struct {
	ID          string            `yaml:"id"`
	EquipmentID string            `yaml:"equipment_id"`
	ProductID   string            `yaml:"product_id"`
	ShiftID     string            `yaml:"shift_id"`
	Start       time.Time         `yaml:"start"`
	Planned     time.Duration     `yaml:"planned"`
	Operating   time.Duration     `yaml:"operating"`
	Total       int64             `yaml:"total"`
	Good        int64             `yaml:"good"`
	Scrap       int64             `yaml:"scrap"`
	Rework      int64             `yaml:"rework"`
	Downtime    []fixtureDowntime `yaml:"downtime"`
	Defects     []fixtureDefect   `yaml:"defects"`
}

type fixtureDowntime struct {
	Reason   string        `yaml:"reason"`
	Category string        `yaml:"category"`
	Duration time.Duration `yaml:"duration"`
}

type fixtureDefect struct {
	Reason   string `yaml:"reason"`
	Quantity int64  `yaml:"quantity"`
}

// LoadFixture reads a YAML fixture into a new MemoryStore. Each run ends
// after its planned time; its downtime events follow each other from start.
func LoadFixture(path string) (*MemoryStore, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var fx Fixture
	if err := yaml.Unmarshal(raw, &fx); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return fx.Store(), nil
}

func (fx Fixture) Store() *MemoryStore {
	m := NewMemoryStore()
	m.AddSites(fx.Sites...)
	m.AddProducts(fx.Products...)
	for _, e := range fx.Equipment {
		m.AddEquipment(domain.Equipment{
			ID:              e.ID,
			Name:            e.Name,
			Code:            e.Code,
			TheoreticalRate: e.TheoreticalRate,
			WorkCenter:      e.WorkCenter,
			Area:            e.Area,
			Site:            e.Site,
		})
	}
	for _, p := range fx.Production {
		m.AddProduction(domain.ProductionRecord{
			ID:                    p.ID,
			EquipmentID:           p.EquipmentID,
			ProductID:             p.ProductID,
			ShiftID:               p.ShiftID,
			StartTime:             p.Start,
			EndTime:               p.Start.Add(p.Planned),
			PlannedProductionTime: p.Planned,
			OperatingTime:         p.Operating,
			TotalParts:            p.Total,
			GoodParts:             p.Good,
			ScrapParts:            p.Scrap,
			ReworkParts:           p.Rework,
		})
		offset := time.Duration(0)
		for i, d := range p.Downtime {
			m.AddDowntime(domain.DowntimeRecord{
				ID:                 fmt.Sprintf("%s-d%d", p.ID, i+1),
				ProductionRecordID: p.ID,
				EquipmentID:        p.EquipmentID,
				ReasonCode:         d.Reason,
				Category:           d.Category,
				Duration:           d.Duration,
				StartTime:          p.Start.Add(offset),
			})
			offset += d.Duration
		}
		for i, d := range p.Defects {
			m.AddScrap(domain.ScrapRecord{
				ID:                 fmt.Sprintf("%s-s%d", p.ID, i+1),
				ProductionRecordID: p.ID,
				EquipmentID:        p.EquipmentID,
				ProductID:          p.ProductID,
				ReasonCode:         d.Reason,
				Quantity:           d.Quantity,
			})
		}
	}
	return m
}
