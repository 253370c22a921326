package collector

import (
	"context"
	"time"
)

// Platform identifies the origin of a raw record.
type Platform string

const (
	PlatformFeed       Platform = "feed"
	PlatformNewsAPI    Platform = "news_api"
	PlatformHackerNews Platform = "hackernews"
	PlatformReddit     Platform = "reddit"
)

// RawRecord is the closed set of source-native record shapes. Exactly one
// variant is non-nil; Platform names which. Each variant carries only the
// fields its source can actually supply, so the normalizer never has to
// guess at missing keys.
type RawRecord struct {
	Platform Platform

	Feed   *FeedEntry
	News   *NewsArticle
	Story  *LinkStory
	Social *SocialPost
}

// FeedEntry is one RSS/Atom entry.
type FeedEntry struct {
	Title     string
	Summary   string
	Link      string
	Author    string
	Published *time.Time // nil when the feed omits or mangles the date
	FeedURL   string
}

// NewsArticle is one NewsAPI search result.
type NewsArticle struct {
	Title       string
	Description string
	Content     string
	URL         string
	SourceName  string
	Author      string
	PublishedAt string // raw wire string, parsed best-effort downstream
}

// LinkStory is one Hacker News story.
type LinkStory struct {
	ID       int
	Title    string
	Text     string
	URL      string
	By       string
	Score    int
	Comments int
	Time     int64 // unix seconds
}

// SocialPost is one Reddit submission.
type SocialPost struct {
	ID         string
	Title      string
	SelfText   string
	Author     string
	Permalink  string
	Score      int
	Comments   int
	CreatedUTC int64
	Subreddit  string
}

// Fetcher abstracts one external source. Fetch performs live network I/O
// and must contain its own transport failures where it can; a returned
// error means the whole source contributed nothing this cycle.
type Fetcher interface {
	Name() string
	Platform() Platform
	// Enabled reports whether the source has the credentials/config it
	// needs. Disabled fetchers are skipped with a warning, never an error.
	Enabled() bool
	Fetch(ctx context.Context) ([]RawRecord, error)
}
