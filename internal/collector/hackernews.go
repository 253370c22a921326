package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"
)

const (
	hnMaxResponseBytes = 1 << 20 // 1MB
	hnConcurrency      = 5       // in-flight detail requests, keep it gentle
	hnMinScore         = 10      // below this a story is noise, not an error
)

// HackerNewsFetcher reads the official Firebase API: resolve the top/new
// story ID lists, then fetch item details with bounded parallelism and keep
// only stories that clear the engagement bar and match a relevance keyword.
type HackerNewsFetcher struct {
	baseURL        string
	limit          int
	recency        time.Duration
	techKeywords   []string
	regionKeywords []string
	client         *http.Client
}

func NewHackerNewsFetcher(limit, lookbackHours int, techKeywords, regionKeywords []string, timeout time.Duration) *HackerNewsFetcher {
	if limit <= 0 {
		limit = 50
	}
	return &HackerNewsFetcher{
		baseURL:        "https://hacker-news.firebaseio.com/v0",
		limit:          limit,
		recency:        time.Duration(lookbackHours) * time.Hour,
		techKeywords:   techKeywords,
		regionKeywords: regionKeywords,
		client:         &http.Client{Timeout: timeout},
	}
}

func (h *HackerNewsFetcher) Name() string { return "hackernews" }

func (h *HackerNewsFetcher) Platform() Platform { return PlatformHackerNews }

func (h *HackerNewsFetcher) Enabled() bool { return true }

type hnItem struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	Text        string `json:"text"`
	URL         string `json:"url"`
	Score       int    `json:"score"`
	Descendants int    `json:"descendants"`
	By          string `json:"by"`
	Time        int64  `json:"time"`
	Type        string `json:"type"`
}

func (h *HackerNewsFetcher) Fetch(ctx context.Context) ([]RawRecord, error) {
	log.Println("hackernews: fetch top + new stories...")

	topIDs, err := h.fetchIDs(ctx, "topstories")
	if err != nil {
		return nil, err
	}
	newIDs, err := h.fetchIDs(ctx, "newstories")
	if err != nil {
		log.Printf("hackernews: new stories list: %v", err)
		newIDs = nil
	}

	half := h.limit / 2
	if len(topIDs) > half {
		topIDs = topIDs[:half]
	}
	if len(newIDs) > half {
		newIDs = newIDs[:half]
	}

	cutoff := time.Now().Add(-h.recency)
	stories := h.fetchDetails(ctx, topIDs, time.Time{})
	stories = append(stories, h.fetchDetails(ctx, newIDs, cutoff)...)

	seen := make(map[int]struct{}, len(stories))
	records := make([]RawRecord, 0, len(stories))
	for _, it := range stories {
		if _, ok := seen[it.ID]; ok {
			continue
		}
		seen[it.ID] = struct{}{}
		if !h.relevant(it) {
			continue
		}
		records = append(records, RawRecord{
			Platform: PlatformHackerNews,
			Story: &LinkStory{
				ID:       it.ID,
				Title:    it.Title,
				Text:     it.Text,
				URL:      it.URL,
				By:       it.By,
				Score:    it.Score,
				Comments: it.Descendants,
				Time:     it.Time,
			},
		})
	}

	log.Printf("hackernews: kept %d of %d fetched stories", len(records), len(stories))
	return records, nil
}

// fetchDetails resolves story details with a bounded worker fan-out.
// A non-zero cutoff drops stories older than it.
func (h *HackerNewsFetcher) fetchDetails(ctx context.Context, ids []int, cutoff time.Time) []hnItem {
	var (
		mu    sync.Mutex
		wg    sync.WaitGroup
		sem   = make(chan struct{}, hnConcurrency)
		items = make([]hnItem, 0, len(ids))
	)

	for _, id := range ids {
		wg.Add(1)
		sem <- struct{}{}
		go func(id int) {
			defer wg.Done()
			defer func() { <-sem }()

			it, err := h.fetchItem(ctx, id)
			if err != nil {
				log.Printf("hackernews: fetch item %d: %v", id, err)
				return
			}
			if it.Type != "story" || it.Title == "" {
				return
			}
			if it.Score < hnMinScore {
				return
			}
			if !cutoff.IsZero() && time.Unix(it.Time, 0).Before(cutoff) {
				return
			}

			mu.Lock()
			items = append(items, it)
			mu.Unlock()
		}(id)
	}
	wg.Wait()

	return items
}

func (h *HackerNewsFetcher) fetchIDs(ctx context.Context, list string) ([]int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.baseURL+"/"+list+".json", nil)
	if err != nil {
		return nil, fmt.Errorf("hackernews: build %s request: %w", list, err)
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("hackernews: fetch %s: %w", list, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("hackernews: %s status %d", list, resp.StatusCode)
	}

	var ids []int
	if err := json.NewDecoder(io.LimitReader(resp.Body, hnMaxResponseBytes)).Decode(&ids); err != nil {
		return nil, fmt.Errorf("hackernews: decode %s: %w", list, err)
	}
	return ids, nil
}

func (h *HackerNewsFetcher) fetchItem(ctx context.Context, id int) (hnItem, error) {
	url := fmt.Sprintf("%s/item/%d.json", h.baseURL, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return hnItem{}, err
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return hnItem{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return hnItem{}, fmt.Errorf("status %d", resp.StatusCode)
	}

	var it hnItem
	if err := json.NewDecoder(io.LimitReader(resp.Body, hnMaxResponseBytes)).Decode(&it); err != nil {
		return hnItem{}, err
	}
	return it, nil
}

// relevant keeps stories matching either the tech or the region keyword
// lists; with no keywords configured everything passes.
func (h *HackerNewsFetcher) relevant(it hnItem) bool {
	if len(h.techKeywords) == 0 && len(h.regionKeywords) == 0 {
		return true
	}
	haystack := strings.ToLower(it.Title + " " + it.Text + " " + it.URL)
	for _, kw := range h.techKeywords {
		if strings.Contains(haystack, kw) {
			return true
		}
	}
	for _, kw := range h.regionKeywords {
		if strings.Contains(haystack, kw) {
			return true
		}
	}
	return false
}
