package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/trendsense/trendsense/internal/app"
	"github.com/trendsense/trendsense/internal/config"
)

// Continuous scrape loop: one full cycle, sleep, repeat. A failed cycle
// (persistence-level only; source failures are contained inside the
// pipeline) retries after a shorter backoff. Interrupt stops cleanly
// between cycles; batch atomicity keeps a killed cycle from leaving
// partial state behind.
func main() {
	cfg := config.Load()

	a, err := app.New(cfg)
	if err != nil {
		log.Fatalf("init failed: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Printf("starting scrape loop (interval %s)...", cfg.ScrapeInterval)

	for {
		wait := cfg.ScrapeInterval

		report, err := a.All.RunCycle(ctx)
		if err != nil {
			log.Printf("cycle failed: %v (retrying in %s)", err, cfg.RetryBackoff)
			wait = cfg.RetryBackoff
		} else {
			log.Printf("cycle complete: %s", report)
		}

		select {
		case <-ctx.Done():
			log.Println("scrape loop stopped")
			return
		case <-time.After(wait):
		}
	}
}
