package collector

import (
	"context"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/mmcdole/gofeed"
)

// FeedFetcher pulls configured RSS/Atom feeds. Each feed fails
// independently: a parse or transport error skips that feed and the rest
// proceed.
type FeedFetcher struct {
	feedURLs   []string
	indexPages []string
	parser     *gofeed.Parser
	timeout    time.Duration

	discovered []string
	discovery  sync.Once
}

func NewFeedFetcher(feedURLs, indexPages []string, timeout time.Duration) *FeedFetcher {
	parser := gofeed.NewParser()
	parser.Client = &http.Client{Timeout: timeout}
	parser.UserAgent = "TrendSense/1.0"

	return &FeedFetcher{
		feedURLs:   feedURLs,
		indexPages: indexPages,
		parser:     parser,
		timeout:    timeout,
	}
}

func (f *FeedFetcher) Name() string { return "rss_feeds" }

func (f *FeedFetcher) Platform() Platform { return PlatformFeed }

func (f *FeedFetcher) Enabled() bool {
	return len(f.feedURLs) > 0 || len(f.indexPages) > 0
}

func (f *FeedFetcher) Fetch(ctx context.Context) ([]RawRecord, error) {
	f.discovery.Do(func() {
		f.discovered = discoverFeeds(f.indexPages, f.timeout)
	})

	urls := append(append([]string{}, f.feedURLs...), f.discovered...)
	records := make([]RawRecord, 0, 64)

	for _, url := range urls {
		feed, err := f.parser.ParseURLWithContext(url, ctx)
		if err != nil {
			log.Printf("feeds: parse %s error: %v", url, err)
			continue
		}

		for _, entry := range feed.Items {
			published := entry.PublishedParsed
			if published == nil {
				published = entry.UpdatedParsed
			}

			author := ""
			if entry.Author != nil {
				author = entry.Author.Name
			}

			records = append(records, RawRecord{
				Platform: PlatformFeed,
				Feed: &FeedEntry{
					Title:     entry.Title,
					Summary:   entry.Description,
					Link:      entry.Link,
					Author:    author,
					Published: published,
					FeedURL:   url,
				},
			})
		}
		log.Printf("feeds: %s yielded %d entries", url, len(feed.Items))
	}

	return records, nil
}

// discoverFeeds crawls publisher "RSS feeds" index pages and extracts the
// linked feed URLs. Run once per process; index pages change rarely.
func discoverFeeds(indexPages []string, timeout time.Duration) []string {
	if len(indexPages) == 0 {
		return nil
	}

	seen := make(map[string]struct{})
	found := make([]string, 0, 16)

	c := colly.NewCollector(colly.UserAgent("TrendSense/1.0"))
	c.SetRequestTimeout(timeout)

	c.OnHTML("a[href]", func(e *colly.HTMLElement) {
		href := e.Request.AbsoluteURL(e.Attr("href"))
		if !looksLikeFeedURL(href) {
			return
		}
		if _, ok := seen[href]; ok {
			return
		}
		seen[href] = struct{}{}
		found = append(found, href)
	})

	for _, page := range indexPages {
		if err := c.Visit(page); err != nil {
			log.Printf("feeds: discover %s error: %v", page, err)
		}
	}

	log.Printf("feeds: discovered %d feed links from %d index pages", len(found), len(indexPages))
	return found
}

func looksLikeFeedURL(href string) bool {
	h := strings.ToLower(href)
	return strings.HasSuffix(h, ".xml") ||
		strings.HasSuffix(h, "/rss") ||
		strings.HasSuffix(h, "/feed") ||
		strings.Contains(h, "rss.xml") ||
		strings.Contains(h, "format=xml")
}
