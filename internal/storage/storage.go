package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/trendsense/trendsense/internal/collector"
	"github.com/trendsense/trendsense/internal/processor"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// NewsArticle holds feed and NewsAPI items. Identity is the article URL.
type NewsArticle struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Platform string `gorm:"size:50;index" json:"platform"` // feed | news_api
	Title    string `gorm:"size:500" json:"title"`
	Content  string `gorm:"type:text" json:"content"`
	URL      string `gorm:"size:1000;uniqueIndex" json:"url"`
	Source   string `gorm:"size:100;index" json:"source"`
	Author   string `gorm:"size:100" json:"author"`

	PublishedAt time.Time `gorm:"index" json:"publishedAt"`
	ScrapedAt   time.Time `json:"scrapedAt"`

	SentimentScore *float64 `gorm:"index" json:"sentimentScore"`
	SentimentLabel string   `gorm:"size:20" json:"sentimentLabel"`

	TopicID *uint             `gorm:"index" json:"topicId"`
	Extra   datatypes.JSONMap `gorm:"type:jsonb" json:"extra"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// SocialPost holds Hacker News and Reddit items. Identity is the
// (platform, post_id) pair.
type SocialPost struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Platform string `gorm:"size:50;index;uniqueIndex:idx_platform_post" json:"platform"`
	PostID   string `gorm:"size:100;uniqueIndex:idx_platform_post" json:"postId"`
	Title    string `gorm:"size:500" json:"title"`
	Content  string `gorm:"type:text" json:"content"`
	Author   string `gorm:"size:100" json:"author"`
	URL      string `gorm:"size:1000" json:"url"`

	Score         int `gorm:"index" json:"score"`
	CommentsCount int `json:"commentsCount"`

	PostedAt  time.Time `gorm:"index" json:"postedAt"`
	ScrapedAt time.Time `json:"scrapedAt"`

	SentimentScore *float64 `gorm:"index" json:"sentimentScore"`
	SentimentLabel string   `gorm:"size:20" json:"sentimentLabel"`

	TopicID *uint             `gorm:"index" json:"topicId"`
	Extra   datatypes.JSONMap `gorm:"type:jsonb" json:"extra"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Store struct {
	DB    *gorm.DB
	Redis *redis.Client
}

func NewStore(dsn, redisAddr string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&NewsArticle{}, &SocialPost{}, &Topic{}, &TrendMetric{}); err != nil {
		return nil, err
	}

	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Printf("warn: redis ping failed: %v", err)
	}

	return &Store{DB: db, Redis: rdb}, nil
}

func isArticlePlatform(p collector.Platform) bool {
	return p == collector.PlatformFeed || p == collector.PlatformNewsAPI
}

// UpsertBatch persists a batch inside one transaction. Each item is checked
// by its natural identity; existing rows are skipped, never overwritten.
// Any failure rolls the whole batch back and reports zero inserts.
func (s *Store) UpsertBatch(items []processor.Item) (int, error) {
	inserted := 0

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		for _, it := range items {
			if it.NaturalID == "" {
				log.Printf("storage: skip %s item with empty natural id", it.Platform)
				continue
			}

			if isArticlePlatform(it.Platform) {
				var count int64
				if err := tx.Model(&NewsArticle{}).Where("url = ?", it.NaturalID).Count(&count).Error; err != nil {
					return err
				}
				if count > 0 {
					continue
				}
				if err := tx.Create(articleFromItem(it)).Error; err != nil {
					return err
				}
			} else {
				var count int64
				if err := tx.Model(&SocialPost{}).
					Where("platform = ? AND post_id = ?", string(it.Platform), it.NaturalID).
					Count(&count).Error; err != nil {
					return err
				}
				if count > 0 {
					continue
				}
				if err := tx.Create(postFromItem(it)).Error; err != nil {
					return err
				}
			}
			inserted++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("storage: upsert batch: %w", err)
	}

	return inserted, nil
}

func articleFromItem(it processor.Item) *NewsArticle {
	source := ""
	if v, ok := it.Extra["source"].(string); ok {
		source = v
	}
	return &NewsArticle{
		Platform:       string(it.Platform),
		Title:          it.Title,
		Content:        it.Body,
		URL:            it.NaturalID,
		Source:         source,
		Author:         it.Author,
		PublishedAt:    it.PublishedAt,
		ScrapedAt:      it.IngestedAt,
		SentimentScore: it.SentimentScore,
		SentimentLabel: it.SentimentLabel,
		TopicID:        it.TopicID,
		Extra:          datatypes.JSONMap(it.Extra),
	}
}

func postFromItem(it processor.Item) *SocialPost {
	return &SocialPost{
		Platform:       string(it.Platform),
		PostID:         it.NaturalID,
		Title:          it.Title,
		Content:        it.Body,
		Author:         it.Author,
		URL:            it.Link,
		Score:          it.Score,
		CommentsCount:  it.Comments,
		PostedAt:       it.PublishedAt,
		ScrapedAt:      it.IngestedAt,
		SentimentScore: it.SentimentScore,
		SentimentLabel: it.SentimentLabel,
		TopicID:        it.TopicID,
		Extra:          datatypes.JSONMap(it.Extra),
	}
}

const queryCacheTTL = 5 * time.Minute

// QueryFilter narrows dashboard reads.
type QueryFilter struct {
	Platform     string
	MinScore     int      // engagement threshold, posts only
	MinSentiment *float64 // sentiment threshold
	Since        time.Time
	Limit        int
}

func (f *QueryFilter) normalize() {
	if f.Limit <= 0 || f.Limit > 1000 {
		f.Limit = 50
	}
}

// cacheKey is stable across requests that mean the same query: the sentiment
// pointer is dereferenced and the cutoff is bucketed to the minute, so
// repeated dashboard reads within a bucket share one cache entry.
func (f QueryFilter) cacheKey(kind string) string {
	sentiment := "none"
	if f.MinSentiment != nil {
		sentiment = strconv.FormatFloat(*f.MinSentiment, 'f', -1, 64)
	}
	return fmt.Sprintf("%s:%s:%d:%s:%d:%d",
		kind, f.Platform, f.MinScore, sentiment, f.Since.Truncate(time.Minute).Unix(), f.Limit)
}

// QueryRecentArticles serves the dashboard's article reads with a short
// Redis cache in front of Postgres.
func (s *Store) QueryRecentArticles(f QueryFilter) ([]NewsArticle, error) {
	f.normalize()

	ctx := context.Background()
	cacheKey := f.cacheKey("articles")
	if s.Redis != nil {
		if bs, err := s.Redis.Get(ctx, cacheKey).Bytes(); err == nil {
			var cached []NewsArticle
			if err := json.Unmarshal(bs, &cached); err == nil {
				return cached, nil
			}
		}
	}

	var list []NewsArticle
	db := s.DB.Model(&NewsArticle{}).Where("published_at >= ?", f.Since)
	if f.Platform != "" {
		db = db.Where("platform = ?", f.Platform)
	}
	if f.MinSentiment != nil {
		db = db.Where("sentiment_score >= ?", *f.MinSentiment)
	}
	if err := db.Order("published_at DESC").Limit(f.Limit).Find(&list).Error; err != nil {
		return nil, err
	}

	s.cacheSet(ctx, cacheKey, list)
	return list, nil
}

// QueryRecentPosts serves the dashboard's social reads.
func (s *Store) QueryRecentPosts(f QueryFilter) ([]SocialPost, error) {
	f.normalize()

	ctx := context.Background()
	cacheKey := f.cacheKey("posts")
	if s.Redis != nil {
		if bs, err := s.Redis.Get(ctx, cacheKey).Bytes(); err == nil {
			var cached []SocialPost
			if err := json.Unmarshal(bs, &cached); err == nil {
				return cached, nil
			}
		}
	}

	var list []SocialPost
	db := s.DB.Model(&SocialPost{}).Where("posted_at >= ?", f.Since)
	if f.Platform != "" {
		db = db.Where("platform = ?", f.Platform)
	}
	if f.MinScore > 0 {
		db = db.Where("score >= ?", f.MinScore)
	}
	if f.MinSentiment != nil {
		db = db.Where("sentiment_score >= ?", *f.MinSentiment)
	}
	if err := db.Order("posted_at DESC").Limit(f.Limit).Find(&list).Error; err != nil {
		return nil, err
	}

	s.cacheSet(ctx, cacheKey, list)
	return list, nil
}

func (s *Store) cacheSet(ctx context.Context, key string, v any) {
	if s.Redis == nil {
		return
	}
	if bs, err := json.Marshal(v); err == nil {
		_ = s.Redis.Set(ctx, key, bs, queryCacheTTL).Err()
	}
}
