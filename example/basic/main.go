package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"

	aegisinsight "github.com/ghalamif/AegisInsight"
)

func main() {
	cfg, err := aegisinsight.LoadConfig("../../data/config.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	engine, err := aegisinsight.NewEngine(cfg)
	if err != nil {
		log.Fatalf("start engine: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := engine.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("engine exited: %v", err)
	}
}
