package main

import (
	"context"
	"log"

	"github.com/trendsense/trendsense/internal/app"
	"github.com/trendsense/trendsense/internal/config"
)

// One-shot entry point: run a single ingestion cycle and exit. Useful for
// manual triggering and cron-external scheduling.
func main() {
	cfg := config.Load()

	a, err := app.New(cfg)
	if err != nil {
		log.Fatalf("init failed: %v", err)
	}

	report, err := a.All.RunCycle(context.Background())
	if err != nil {
		log.Fatalf("cycle failed: %v", err)
	}

	log.Printf("cycle complete: %s", report)
}
