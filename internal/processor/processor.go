package processor

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/trendsense/trendsense/internal/collector"
)

// Item is the canonical record every raw shape normalizes into. Identity is
// (Platform, NaturalID); a second ingestion of the same pair is a skip.
type Item struct {
	Platform  collector.Platform
	NaturalID string

	Title    string
	Body     string
	Author   string
	Link     string
	Score    int
	Comments int

	PublishedAt time.Time
	IngestedAt  time.Time

	SentimentScore *float64
	SentimentLabel string

	TopicID *uint

	Extra map[string]any
}

// Normalizer converts raw records into Items. It never fails: malformed
// input degrades to defaults, unparseable dates fall back to the ingestion
// clock.
type Normalizer struct {
	now func() time.Time
}

func NewNormalizer() *Normalizer {
	return &Normalizer{now: time.Now}
}

// NewNormalizerWithClock pins the ingestion clock, for tests.
func NewNormalizerWithClock(now func() time.Time) *Normalizer {
	return &Normalizer{now: now}
}

// Normalize is total over the RawRecord variant set. A record with no
// variant set yields a best-effort empty Item rather than an error.
func (n *Normalizer) Normalize(rec collector.RawRecord) Item {
	ingested := n.now()

	switch {
	case rec.Feed != nil:
		return n.normalizeFeed(rec.Feed, ingested)
	case rec.News != nil:
		return n.normalizeNews(rec.News, ingested)
	case rec.Story != nil:
		return n.normalizeStory(rec.Story, ingested)
	case rec.Social != nil:
		return n.normalizeSocial(rec.Social, ingested)
	}

	return Item{
		Platform:    rec.Platform,
		PublishedAt: ingested,
		IngestedAt:  ingested,
	}
}

func (n *Normalizer) normalizeFeed(e *collector.FeedEntry, ingested time.Time) Item {
	published := ingested
	if e.Published != nil && !e.Published.IsZero() {
		published = *e.Published
	}

	return Item{
		Platform:    collector.PlatformFeed,
		NaturalID:   e.Link,
		Title:       CleanText(e.Title),
		Body:        CleanText(e.Summary),
		Author:      strings.TrimSpace(e.Author),
		Link:        e.Link,
		PublishedAt: published,
		IngestedAt:  ingested,
		Extra:       map[string]any{"feed_url": e.FeedURL, "source": extractDomain(e.Link)},
	}
}

func (n *Normalizer) normalizeNews(a *collector.NewsArticle, ingested time.Time) Item {
	body := a.Description
	if body == "" {
		body = a.Content
	}

	return Item{
		Platform:    collector.PlatformNewsAPI,
		NaturalID:   a.URL,
		Title:       CleanText(a.Title),
		Body:        CleanText(body),
		Author:      strings.TrimSpace(a.Author),
		Link:        a.URL,
		PublishedAt: ParseDate(a.PublishedAt, ingested),
		IngestedAt:  ingested,
		Extra:       map[string]any{"source": a.SourceName},
	}
}

func (n *Normalizer) normalizeStory(s *collector.LinkStory, ingested time.Time) Item {
	link := s.URL
	if link == "" {
		link = fmt.Sprintf("https://news.ycombinator.com/item?id=%d", s.ID)
	}

	published := ingested
	if s.Time > 0 {
		published = time.Unix(s.Time, 0)
	}

	return Item{
		Platform:    collector.PlatformHackerNews,
		NaturalID:   fmt.Sprint(s.ID),
		Title:       CleanText(s.Title),
		Body:        CleanText(s.Text),
		Author:      strings.TrimSpace(s.By),
		Link:        link,
		Score:       clampNonNegative(s.Score),
		Comments:    clampNonNegative(s.Comments),
		PublishedAt: published,
		IngestedAt:  ingested,
	}
}

func (n *Normalizer) normalizeSocial(p *collector.SocialPost, ingested time.Time) Item {
	body := CleanText(p.SelfText)
	if body == "" {
		body = CleanText(p.Title)
	}

	author := strings.TrimSpace(p.Author)
	if author == "" {
		author = "[deleted]"
	}

	published := ingested
	if p.CreatedUTC > 0 {
		published = time.Unix(p.CreatedUTC, 0)
	}

	return Item{
		Platform:    collector.PlatformReddit,
		NaturalID:   p.ID,
		Title:       CleanText(p.Title),
		Body:        body,
		Author:      author,
		Link:        p.Permalink,
		Score:       clampNonNegative(p.Score),
		Comments:    clampNonNegative(p.Comments),
		PublishedAt: published,
		IngestedAt:  ingested,
		Extra:       map[string]any{"subreddit": p.Subreddit},
	}
}

// Dedupe keeps the first occurrence of each (platform, natural ID) pair,
// preserving order. The store's existence check stays the authoritative
// guard; this pass just avoids re-tagging the same item within a cycle.
func Dedupe(items []Item) []Item {
	type key struct {
		platform collector.Platform
		id       string
	}

	seen := make(map[key]struct{}, len(items))
	out := make([]Item, 0, len(items))
	for _, it := range items {
		k := key{it.Platform, it.NaturalID}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, it)
	}
	return out
}

var whitespaceRE = regexp.MustCompile(`\s+`)

// CleanText strips markup and collapses whitespace. Feed summaries often
// arrive as HTML fragments.
func CleanText(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if strings.ContainsRune(s, '<') {
		if doc, err := goquery.NewDocumentFromReader(strings.NewReader(s)); err == nil {
			s = doc.Text()
		}
	}
	return strings.TrimSpace(whitespaceRE.ReplaceAllString(s, " "))
}

// ParseDate tries ISO-8601 first, then the common feed date format, and
// falls back to the ingestion clock.
func ParseDate(s string, fallback time.Time) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return fallback
	}
	for _, layout := range []string{time.RFC3339, time.RFC1123Z, time.RFC1123} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return fallback
}

func extractDomain(link string) string {
	link = strings.TrimPrefix(link, "https://")
	link = strings.TrimPrefix(link, "http://")
	link = strings.TrimPrefix(link, "www.")
	if i := strings.IndexByte(link, '/'); i >= 0 {
		link = link[:i]
	}
	return link
}

func clampNonNegative(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
