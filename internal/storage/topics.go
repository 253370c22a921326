package storage

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Topic is a named cluster aggregate. Items reference at most one topic;
// the clustering job owns topic lifecycle.
type Topic struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	Name       string         `gorm:"size:200;uniqueIndex" json:"name"`
	Keywords   datatypes.JSON `gorm:"type:jsonb" json:"keywords"`
	IsTrending bool           `gorm:"index" json:"isTrending"`
	TrendScore float64        `json:"trendScore"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TrendMetric is one append-only rollup row for a topic at a timestamp.
// Rows are never mutated after creation.
type TrendMetric struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	TopicID   uint      `gorm:"index:idx_topic_timestamp" json:"topicId"`
	Timestamp time.Time `gorm:"index:idx_topic_timestamp;index" json:"timestamp"`

	MentionCount    int     `json:"mentionCount"`
	SentimentAvg    float64 `json:"sentimentAvg"`
	EngagementScore float64 `json:"engagementScore"`
	ViralityScore   float64 `json:"viralityScore"`
}

// EnsureTopic returns the topic with the given name, creating it if absent.
func (s *Store) EnsureTopic(name string, keywords []byte) (*Topic, error) {
	t := &Topic{}
	if err := s.DB.Where("name = ?", name).First(t).Error; err == nil {
		return t, nil
	}

	t = &Topic{Name: name, Keywords: keywords}
	if err := s.DB.Create(t).Error; err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Store) ListTopics(limit int) ([]Topic, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var topics []Topic
	err := s.DB.Order("trend_score DESC").Limit(limit).Find(&topics).Error
	return topics, err
}

// DeleteTopic removes a topic. Items referencing it are detached, never
// deleted with it.
func (s *Store) DeleteTopic(id uint) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&NewsArticle{}).Where("topic_id = ?", id).Update("topic_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Model(&SocialPost{}).Where("topic_id = ?", id).Update("topic_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&Topic{}, id).Error
	})
}

// AttachTopic points a set of persisted items at a topic. The clustering
// job calls this after grouping.
func (s *Store) AttachTopic(topicID uint, articleIDs, postIDs []uint) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		if len(articleIDs) > 0 {
			if err := tx.Model(&NewsArticle{}).Where("id IN ?", articleIDs).Update("topic_id", topicID).Error; err != nil {
				return err
			}
		}
		if len(postIDs) > 0 {
			if err := tx.Model(&SocialPost{}).Where("id IN ?", postIDs).Update("topic_id", topicID).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// UpdateTopicTrend refreshes a topic's derived trend state.
func (s *Store) UpdateTopicTrend(id uint, score float64, trending bool) error {
	return s.DB.Model(&Topic{}).Where("id = ?", id).
		Updates(map[string]any{"trend_score": score, "is_trending": trending}).Error
}

// AppendTrendMetric inserts one rollup row. Append-only by contract.
func (s *Store) AppendTrendMetric(m *TrendMetric) error {
	return s.DB.Create(m).Error
}

func (s *Store) RecentTrendMetrics(topicID uint, since time.Time, limit int) ([]TrendMetric, error) {
	if limit <= 0 || limit > 1000 {
		limit = 200
	}
	var metrics []TrendMetric
	err := s.DB.
		Where("topic_id = ? AND timestamp >= ?", topicID, since).
		Order("timestamp DESC").
		Limit(limit).
		Find(&metrics).Error
	return metrics, err
}

// TopicMentions gathers the raw inputs the trend rollup needs for one topic
// since a cutoff: mention count, sentiment sum/count, engagement and
// comment totals across both item tables.
func (s *Store) TopicMentions(topicID uint, since time.Time) (TopicMentionStats, error) {
	var stats TopicMentionStats

	var articles []NewsArticle
	if err := s.DB.Where("topic_id = ? AND published_at >= ?", topicID, since).Find(&articles).Error; err != nil {
		return stats, err
	}
	for _, a := range articles {
		stats.Mentions++
		if a.SentimentScore != nil {
			stats.SentimentSum += *a.SentimentScore
			stats.SentimentCount++
		}
	}

	var posts []SocialPost
	if err := s.DB.Where("topic_id = ? AND posted_at >= ?", topicID, since).Find(&posts).Error; err != nil {
		return stats, err
	}
	for _, p := range posts {
		stats.Mentions++
		stats.EngagementSum += p.Score
		stats.CommentSum += p.CommentsCount
		if p.SentimentScore != nil {
			stats.SentimentSum += *p.SentimentScore
			stats.SentimentCount++
		}
	}

	return stats, nil
}

// TopicMentionStats is the aggregate input for one rollup row.
type TopicMentionStats struct {
	Mentions       int
	SentimentSum   float64
	SentimentCount int
	EngagementSum  int
	CommentSum     int
}
