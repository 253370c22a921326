package main

import (
	"context"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/trendsense/trendsense/internal/api"
	"github.com/trendsense/trendsense/internal/app"
	"github.com/trendsense/trendsense/internal/config"
	"github.com/trendsense/trendsense/internal/scheduler"
)

func main() {
	cfg := config.Load()

	a, err := app.New(cfg)
	if err != nil {
		log.Fatalf("init failed: %v", err)
	}

	jobs := []scheduler.Job{
		{Name: "scrape_news", Spec: "*/15 * * * *", Run: func() error {
			_, err := a.News.RunCycle(context.Background())
			return err
		}},
		{Name: "scrape_social", Spec: "*/30 * * * *", Run: func() error {
			_, err := a.Social.RunCycle(context.Background())
			return err
		}},
		{Name: "cluster_topics", Spec: "0 */2 * * *", Run: a.Clusterer.Update},
		{Name: "trend_rollup", Spec: "0 */6 * * *", Run: a.Rollup.Run},
	}

	s, err := scheduler.New(jobs)
	if err != nil {
		log.Fatalf("init scheduler failed: %v", err)
	}
	s.Start()

	r := gin.Default()
	apiServer := api.NewServer(a.Store)
	apiServer.RegisterRoutes(r)

	addr := ":" + cfg.AppPort
	log.Printf("starting api server at %s ...", addr)
	if err := r.Run(addr); err != nil {
		log.Fatalf("server exit: %v", err)
	}
}
