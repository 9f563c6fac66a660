package main

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ghalamif/AegisInsight/pkg/aegisinsight"
)

func main() {
	store, err := aegisinsight.LoadFixture("../../data/plant.yaml")
	if err != nil {
		log.Fatalf("load fixture: %v", err)
	}

	sink, results, closeResults := aegisinsight.NewChannelSink("nlg", 8)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		narrate("nlg", results)
	}()

	engine, err := aegisinsight.NewEngine(aegisinsight.DefaultConfig(),
		aegisinsight.WithStore(store),
		aegisinsight.WithResultSink(sink),
	)
	if err != nil {
		log.Fatalf("start engine: %v", err)
	}

	at := time.Date(2025, time.March, 12, 9, 0, 0, 0, time.UTC)
	questions := []string{
		"What are the top 3 defect types this week?",
		"Show downtime pareto for PRESS-01 this week",
		"MTBF and MTTR this week",
	}
	for _, q := range questions {
		engine.ProcessAt(context.Background(), q, at)
	}

	closeResults()
	wg.Wait()
	_ = engine.Shutdown(context.Background())
}

func narrate(name string, results <-chan aegisinsight.Result) {
	for r := range results {
		fmt.Printf("[%s] %s (%s, confidence %.2f)\n%s\n\n", name, r.AnalysisType, r.WindowLabel, r.Confidence, r.Content)
	}
}
