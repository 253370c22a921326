package topics

import (
	"log"
	"time"

	"github.com/trendsense/trendsense/internal/storage"
)

// Clusterer will group items into topics. The algorithm is intentionally
// deferred; Update is a no-op so the scheduling and storage surfaces are in
// place for when it lands.
type Clusterer struct {
	store *storage.Store
}

func NewClusterer(store *storage.Store) *Clusterer {
	return &Clusterer{store: store}
}

func (c *Clusterer) Update() error {
	log.Println("topics: clustering update completed (placeholder)")
	return nil
}

// Rollup appends one TrendMetric row per topic, aggregating mentions since
// the given window. Rows are append-only; re-running a rollup adds new rows
// rather than rewriting old ones.
type Rollup struct {
	store  *storage.Store
	window time.Duration
	now    func() time.Time
}

func NewRollup(store *storage.Store, window time.Duration) *Rollup {
	return &Rollup{store: store, window: window, now: time.Now}
}

func (r *Rollup) Run() error {
	topicList, err := r.store.ListTopics(0)
	if err != nil {
		return err
	}

	now := r.now()
	since := now.Add(-r.window)

	for _, topic := range topicList {
		stats, err := r.store.TopicMentions(topic.ID, since)
		if err != nil {
			log.Printf("topics: rollup %q: %v", topic.Name, err)
			continue
		}
		if stats.Mentions == 0 {
			continue
		}

		metric := Compute(topic.ID, now, stats)
		if err := r.store.AppendTrendMetric(&metric); err != nil {
			log.Printf("topics: append metric %q: %v", topic.Name, err)
			continue
		}
		if err := r.store.UpdateTopicTrend(topic.ID, metric.ViralityScore, stats.Mentions >= trendingMentionFloor); err != nil {
			log.Printf("topics: update trend %q: %v", topic.Name, err)
		}
	}

	log.Printf("topics: rollup done for %d topics", len(topicList))
	return nil
}

// A topic needs this many mentions in the window before it is flagged
// trending.
const trendingMentionFloor = 5

// Compute derives one metric row from mention stats. Engagement is the raw
// upvote total; virality weights discussion volume on top of it, per
// mention so large windows don't dominate.
func Compute(topicID uint, ts time.Time, stats storage.TopicMentionStats) storage.TrendMetric {
	sentimentAvg := 0.0
	if stats.SentimentCount > 0 {
		sentimentAvg = stats.SentimentSum / float64(stats.SentimentCount)
	}

	engagement := float64(stats.EngagementSum)
	virality := 0.0
	if stats.Mentions > 0 {
		virality = (engagement + 2*float64(stats.CommentSum)) / float64(stats.Mentions)
	}

	return storage.TrendMetric{
		TopicID:         topicID,
		Timestamp:       ts,
		MentionCount:    stats.Mentions,
		SentimentAvg:    sentimentAvg,
		EngagementScore: engagement,
		ViralityScore:   virality,
	}
}
