package app

import (
	"fmt"
	"time"

	"github.com/trendsense/trendsense/internal/collector"
	"github.com/trendsense/trendsense/internal/config"
	"github.com/trendsense/trendsense/internal/pipeline"
	"github.com/trendsense/trendsense/internal/processor"
	"github.com/trendsense/trendsense/internal/sentiment"
	"github.com/trendsense/trendsense/internal/storage"
	"github.com/trendsense/trendsense/internal/topics"
)

// App wires configuration into the store, the adapters and the pipelines.
// All commands build exactly one App at startup.
type App struct {
	Cfg   *config.Config
	Store *storage.Store

	// News covers the article sources, Social the discussion sources; the
	// scheduler runs them on different intervals. All spans every source
	// for one-shot and loop commands.
	News   *pipeline.Pipeline
	Social *pipeline.Pipeline
	All    *pipeline.Pipeline

	Clusterer *topics.Clusterer
	Rollup    *topics.Rollup
}

func New(cfg *config.Config) (*App, error) {
	store, err := storage.NewStore(cfg.PostgresDSN, cfg.RedisAddr)
	if err != nil {
		return nil, fmt.Errorf("app: init store: %w", err)
	}

	newsFetchers, socialFetchers := buildFetchers(cfg)

	normalizer := processor.NewNormalizer()
	tagger := sentiment.NewTagger(sentiment.NewVaderScorer())

	all := append(append([]collector.Fetcher{}, newsFetchers...), socialFetchers...)

	return &App{
		Cfg:       cfg,
		Store:     store,
		News:      pipeline.New(newsFetchers, normalizer, tagger, store),
		Social:    pipeline.New(socialFetchers, normalizer, tagger, store),
		All:       pipeline.New(all, normalizer, tagger, store),
		Clusterer: topics.NewClusterer(store),
		Rollup:    topics.NewRollup(store, 6*time.Hour),
	}, nil
}

func buildFetchers(cfg *config.Config) (news, social []collector.Fetcher) {
	if cfg.EnableFeeds {
		news = append(news, collector.NewFeedFetcher(
			cfg.Sources.Feeds, cfg.Sources.FeedIndexPages, cfg.HTTPTimeout))
	}
	if cfg.EnableNewsAPI {
		news = append(news, collector.NewNewsAPIFetcher(
			cfg.NewsAPIKey, cfg.TargetRegion, cfg.LookbackHours, cfg.MaxPerSource, cfg.HTTPTimeout))
	}
	if cfg.EnableHackerNews {
		social = append(social, collector.NewHackerNewsFetcher(
			cfg.MaxPerSource, cfg.LookbackHours,
			cfg.Sources.TechKeywords, cfg.Sources.RegionKeywords, cfg.HTTPTimeout))
	}
	if cfg.EnableReddit {
		social = append(social, collector.NewRedditFetcher(
			cfg.RedditClientID, cfg.RedditClientSecret, cfg.RedditUserAgent,
			cfg.Sources.Communities, cfg.Sources.TrendingCommunities,
			cfg.RecencyDays, cfg.HTTPTimeout))
	}
	return news, social
}
