package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const sourcesFileEnv = "TRENDSENSE_SOURCES"

// Config is built once at startup and handed to every adapter, the pipeline
// and the store. Nothing reads the environment after Load returns.
type Config struct {
	AppPort string

	PostgresDSN string
	RedisAddr   string

	NewsAPIKey         string
	RedditClientID     string
	RedditClientSecret string
	RedditUserAgent    string

	TargetRegion string

	EnableFeeds      bool
	EnableNewsAPI    bool
	EnableHackerNews bool
	EnableReddit     bool

	ScrapeInterval   time.Duration // continuous scrape loop period
	RetryBackoff     time.Duration // wait after a failed cycle
	HTTPTimeout      time.Duration // per-request ceiling for all adapters
	LookbackHours    int           // NewsAPI / Hacker News recency window
	RecencyDays      int           // Reddit recency window
	FetchConcurrency int           // per-adapter fan-out ceiling
	MaxPerSource     int

	Sources Sources
}

// Sources holds the list-shaped configuration. Lists are awkward in env
// vars, so they come from an optional YAML file with sane defaults.
type Sources struct {
	Feeds               []string `yaml:"feeds"`
	FeedIndexPages      []string `yaml:"feedIndexPages"`
	Communities         []string `yaml:"communities"`
	TrendingCommunities []string `yaml:"trendingCommunities"`
	TechKeywords        []string `yaml:"techKeywords"`
	RegionKeywords      []string `yaml:"regionKeywords"`
}

func Load() *Config {
	cfg := &Config{
		AppPort:     getEnv("APP_PORT", "9000"),
		PostgresDSN: getEnv("POSTGRES_DSN", "host=localhost user=trendsense password=trendsense dbname=trendsense port=5432 sslmode=disable TimeZone=UTC"),
		RedisAddr:   getEnv("REDIS_ADDR", "localhost:6379"),

		NewsAPIKey:         getEnv("NEWS_API_KEY", ""),
		RedditClientID:     getEnv("REDDIT_CLIENT_ID", ""),
		RedditClientSecret: getEnv("REDDIT_CLIENT_SECRET", ""),
		RedditUserAgent:    getEnv("REDDIT_USER_AGENT", "TrendSense/1.0"),

		TargetRegion: getEnv("TARGET_REGION", "Singapore"),

		EnableFeeds:      getEnvBool("ENABLE_FEEDS", true),
		EnableNewsAPI:    getEnvBool("ENABLE_NEWSAPI", true),
		EnableHackerNews: getEnvBool("ENABLE_HACKERNEWS", true),
		EnableReddit:     getEnvBool("ENABLE_REDDIT", true),

		ScrapeInterval:   getEnvDuration("SCRAPE_INTERVAL", 300*time.Second),
		RetryBackoff:     getEnvDuration("RETRY_BACKOFF", 60*time.Second),
		HTTPTimeout:      getEnvDuration("HTTP_TIMEOUT", 10*time.Second),
		LookbackHours:    getEnvInt("LOOKBACK_HOURS", 24),
		RecencyDays:      getEnvInt("RECENCY_DAYS", 7),
		FetchConcurrency: getEnvInt("FETCH_CONCURRENCY", 5),
		MaxPerSource:     getEnvInt("MAX_PER_SOURCE", 100),

		Sources: defaultSources(),
	}

	if path := os.Getenv(sourcesFileEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (using default sources)", path, err)
		} else {
			var fileSources Sources
			if err := yaml.Unmarshal(raw, &fileSources); err != nil {
				log.Printf("config: cannot parse %s: %v (using default sources)", path, err)
			} else {
				cfg.Sources = mergeSources(cfg.Sources, fileSources)
			}
		}
	}

	log.Printf("config loaded: port=%s region=%s interval=%s feeds=%d communities=%d",
		cfg.AppPort, cfg.TargetRegion, cfg.ScrapeInterval, len(cfg.Sources.Feeds), len(cfg.Sources.Communities))
	return cfg
}

func defaultSources() Sources {
	return Sources{
		Feeds: []string{
			"https://www.channelnewsasia.com/api/v1/rss-outbound-feed?_format=xml",
			"https://www.straitstimes.com/news/singapore/rss.xml",
			"https://www.todayonline.com/feed",
		},
		Communities: []string{
			"singapore", "singaporefi", "asksingapore", "sgexams",
			"technology", "programming", "startups", "MachineLearning",
		},
		TrendingCommunities: []string{
			"news", "worldnews", "technology", "business", "investing",
		},
		TechKeywords: []string{
			"ai", "machine learning", "llm", "startup", "software", "cloud",
			"programming", "open source", "security", "database", "fintech",
			"blockchain", "robotics", "semiconductor", "api", "developer",
		},
		RegionKeywords: []string{
			"singapore", "singaporean", "southeast asia", "asean",
			"ntu", "nus", "singapore-based",
		},
	}
}

// mergeSources overrides only lists the file actually sets, so a partial
// YAML file keeps the remaining defaults.
func mergeSources(base, override Sources) Sources {
	if len(override.Feeds) > 0 {
		base.Feeds = override.Feeds
	}
	if len(override.FeedIndexPages) > 0 {
		base.FeedIndexPages = override.FeedIndexPages
	}
	if len(override.Communities) > 0 {
		base.Communities = override.Communities
	}
	if len(override.TrendingCommunities) > 0 {
		base.TrendingCommunities = override.TrendingCommunities
	}
	if len(override.TechKeywords) > 0 {
		base.TechKeywords = override.TechKeywords
	}
	if len(override.RegionKeywords) > 0 {
		base.RegionKeywords = override.RegionKeywords
	}
	return base
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	// Accept bare seconds ("300") as well as Go durations ("5m").
	if n, err := strconv.Atoi(v); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		return d
	}
	return def
}
