package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/ghalamif/AegisInsight/pkg/aegisinsight"
)

func main() {
	now := time.Date(2025, time.March, 12, 15, 0, 0, 0, time.UTC)

	store := aegisinsight.NewMemoryStore()
	store.AddEquipment(aegisinsight.Equipment{ID: "eq-1", Code: "CNC-01", Name: "CNC 1", TheoreticalRate: 20})
	store.AddProduction(aegisinsight.ProductionRecord{
		ID:                    "run-1",
		EquipmentID:           "eq-1",
		StartTime:             now.Add(-6 * time.Hour),
		EndTime:               now.Add(-2 * time.Hour),
		PlannedProductionTime: 4 * time.Hour,
		OperatingTime:         4 * time.Hour,
		TotalParts:            50,
		GoodParts:             47,
		ScrapParts:            3,
	})

	callback := func(r aegisinsight.Result) error {
		fmt.Printf("%s tier=%s type=%s confidence=%.2f took=%s\n",
			r.ID, r.Tier, r.AnalysisType, r.Confidence, r.ExecutionTime)
		return nil
	}

	engine, err := aegisinsight.NewEngine(aegisinsight.DefaultConfig(),
		aegisinsight.WithStore(store),
		aegisinsight.WithResultSink(aegisinsight.NewCallbackSink("stdout", callback)),
		aegisinsight.WithClock(func() time.Time { return now }),
	)
	if err != nil {
		log.Fatalf("start engine: %v", err)
	}
	defer engine.Shutdown(context.Background())

	for _, q := range []string{"hello", "list my machines", "Show OEE for machine CNC-01 today"} {
		res := engine.Process(context.Background(), q)
		fmt.Println(res.Content)
	}
}
