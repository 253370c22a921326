package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"
)

const newsAPIMaxResponseBytes = 4 << 20

// NewsAPIFetcher runs one time-windowed search against the NewsAPI
// "everything" endpoint. Without an API key the fetcher self-disables.
type NewsAPIFetcher struct {
	apiKey   string
	region   string
	lookback time.Duration
	pageSize int
	baseURL  string
	client   *http.Client
}

func NewNewsAPIFetcher(apiKey, region string, lookbackHours, pageSize int, timeout time.Duration) *NewsAPIFetcher {
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 100
	}
	return &NewsAPIFetcher{
		apiKey:   apiKey,
		region:   region,
		lookback: time.Duration(lookbackHours) * time.Hour,
		pageSize: pageSize,
		baseURL:  "https://newsapi.org/v2",
		client:   &http.Client{Timeout: timeout},
	}
}

func (n *NewsAPIFetcher) Name() string { return "newsapi" }

func (n *NewsAPIFetcher) Platform() Platform { return PlatformNewsAPI }

func (n *NewsAPIFetcher) Enabled() bool { return n.apiKey != "" }

type newsAPIResponse struct {
	Status   string `json:"status"`
	Message  string `json:"message"`
	Articles []struct {
		Source struct {
			Name string `json:"name"`
		} `json:"source"`
		Author      string `json:"author"`
		Title       string `json:"title"`
		Description string `json:"description"`
		URL         string `json:"url"`
		PublishedAt string `json:"publishedAt"`
		Content     string `json:"content"`
	} `json:"articles"`
}

func (n *NewsAPIFetcher) Fetch(ctx context.Context) ([]RawRecord, error) {
	if !n.Enabled() {
		log.Println("newsapi: API key not configured, skipping")
		return nil, nil
	}

	from := time.Now().Add(-n.lookback).UTC().Format("2006-01-02")
	q := url.Values{}
	q.Set("q", fmt.Sprintf("%s OR %q", n.region, n.region))
	q.Set("from", from)
	q.Set("language", "en")
	q.Set("sortBy", "publishedAt")
	q.Set("pageSize", fmt.Sprint(n.pageSize))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.baseURL+"/everything?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("newsapi: build request: %w", err)
	}
	req.Header.Set("X-Api-Key", n.apiKey)

	resp, err := n.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("newsapi: fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("newsapi: unexpected status %d", resp.StatusCode)
	}

	var out newsAPIResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, newsAPIMaxResponseBytes)).Decode(&out); err != nil {
		return nil, fmt.Errorf("newsapi: decode: %w", err)
	}
	if out.Status != "ok" {
		return nil, fmt.Errorf("newsapi: api error: %s", out.Message)
	}

	records := make([]RawRecord, 0, len(out.Articles))
	for _, a := range out.Articles {
		records = append(records, RawRecord{
			Platform: PlatformNewsAPI,
			News: &NewsArticle{
				Title:       a.Title,
				Description: a.Description,
				Content:     a.Content,
				URL:         a.URL,
				SourceName:  a.Source.Name,
				Author:      a.Author,
				PublishedAt: a.PublishedAt,
			},
		})
	}

	log.Printf("newsapi: fetched %d articles", len(records))
	return records, nil
}
