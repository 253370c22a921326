package collector

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestRedditFetchDisabledWithoutCredentials(t *testing.T) {
	f := NewRedditFetcher("", "", "TrendSense/1.0", []string{"singapore"}, nil, 7, time.Second)

	if f.Enabled() {
		t.Fatalf("fetcher must self-disable without credentials")
	}

	records, err := f.Fetch(context.Background())
	if err != nil {
		t.Fatalf("missing credentials is a degradation, not an error: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("disabled fetcher returned %d records", len(records))
	}
}

func redditPostJSON(id string, score, comments int, createdUTC int64, over18 bool) string {
	return fmt.Sprintf(`{"data":{"id":%q,"title":"post %s","selftext":"","author":"bob","permalink":"/r/test/%s","score":%d,"num_comments":%d,"created_utc":%d,"subreddit":"test","over_18":%t}}`,
		id, id, id, score, comments, createdUTC, over18)
}

func newRedditTestServer(t *testing.T, listings map[string]string) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/access_token", func(w http.ResponseWriter, r *http.Request) {
		if _, _, ok := r.BasicAuth(); !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, `{"access_token": "tok", "expires_in": 3600}`)
	})
	mux.HandleFunc("/r/", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		body, ok := listings[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, body)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestRedditFetcher(srv *httptest.Server, communities, trending []string) *RedditFetcher {
	f := NewRedditFetcher("id", "secret", "TrendSense/1.0", communities, trending, 7, 5*time.Second)
	f.tokenURL = srv.URL + "/api/v1/access_token"
	f.apiBase = srv.URL
	// No need to pace requests against a local test server.
	f.limiter.SetLimit(1000)
	return f
}

func TestRedditFetchDedupsAcrossSortOrders(t *testing.T) {
	now := time.Now().Unix()
	listing := `{"data":{"children":[` + redditPostJSON("a1", 10, 2, now, false) + `]}}`
	listings := map[string]string{
		"/r/singapore/hot.json": listing,
		"/r/singapore/new.json": listing,
		"/r/singapore/top.json": listing,
	}
	srv := newRedditTestServer(t, listings)
	f := newTestRedditFetcher(srv, []string{"singapore"}, nil)

	records, err := f.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("same post across sorts must dedup to 1 record, got %d", len(records))
	}
	p := records[0].Social
	if p == nil || p.ID != "a1" || p.Subreddit != "test" {
		t.Fatalf("unexpected record: %+v", records[0])
	}
	if !strings.HasPrefix(p.Permalink, "https://reddit.com/") {
		t.Fatalf("permalink not absolute: %q", p.Permalink)
	}
}

func TestRedditFetchRecencyAndNSFWFilters(t *testing.T) {
	now := time.Now().Unix()
	stale := time.Now().Add(-8 * 24 * time.Hour).Unix()
	listing := `{"data":{"children":[` +
		redditPostJSON("fresh", 10, 2, now, false) + `,` +
		redditPostJSON("stale", 10, 2, stale, false) + `,` +
		redditPostJSON("nsfw", 10, 2, now, true) +
		`]}}`
	listings := map[string]string{
		"/r/singapore/hot.json": listing,
		"/r/singapore/new.json": `{"data":{"children":[]}}`,
		"/r/singapore/top.json": `{"data":{"children":[]}}`,
	}
	srv := newRedditTestServer(t, listings)
	f := newTestRedditFetcher(srv, []string{"singapore"}, nil)

	records, err := f.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(records) != 1 || records[0].Social.ID != "fresh" {
		t.Fatalf("expected only the fresh sfw post, got %+v", records)
	}
}

func TestRedditFetchTrendingKeepsHighEngagementOnly(t *testing.T) {
	now := time.Now().Unix()
	listings := map[string]string{
		"/r/news/top.json": `{"data":{"children":[` +
			redditPostJSON("viral", 500, 80, now, false) + `,` +
			redditPostJSON("quiet", 20, 3, now, false) +
			`]}}`,
	}
	srv := newRedditTestServer(t, listings)
	f := newTestRedditFetcher(srv, nil, []string{"news"})

	records, err := f.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(records) != 1 || records[0].Social.ID != "viral" {
		t.Fatalf("trending pull must keep high-engagement posts only, got %+v", records)
	}
}

func TestRedditFetchFailingCommunitySkipsNotFails(t *testing.T) {
	now := time.Now().Unix()
	listings := map[string]string{
		// r/broken has no entries at all; every listing 404s.
		"/r/healthy/hot.json": `{"data":{"children":[` + redditPostJSON("ok", 10, 2, now, false) + `]}}`,
		"/r/healthy/new.json": `{"data":{"children":[]}}`,
		"/r/healthy/top.json": `{"data":{"children":[]}}`,
	}
	srv := newRedditTestServer(t, listings)
	f := newTestRedditFetcher(srv, []string{"broken", "healthy"}, nil)

	records, err := f.Fetch(context.Background())
	if err != nil {
		t.Fatalf("one failing community must not fail the fetch: %v", err)
	}
	if len(records) != 1 || records[0].Social.ID != "ok" {
		t.Fatalf("expected the healthy community's post, got %+v", records)
	}
}

func TestRedditConcurrentFetchesShareOneToken(t *testing.T) {
	now := time.Now().Unix()
	var tokenRequests atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/access_token", func(w http.ResponseWriter, r *http.Request) {
		tokenRequests.Add(1)
		fmt.Fprint(w, `{"access_token": "tok", "expires_in": 3600}`)
	})
	mux.HandleFunc("/r/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":{"children":[`+redditPostJSON("a1", 10, 2, now, false)+`]}}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	f := newTestRedditFetcher(srv, []string{"singapore"}, nil)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.Fetch(context.Background()); err != nil {
				t.Errorf("Fetch: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := tokenRequests.Load(); got != 1 {
		t.Fatalf("concurrent fetches must share one token, requested %d", got)
	}
}

func TestRedditTokenFailureFailsFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	f := newTestRedditFetcher(srv, []string{"singapore"}, nil)
	f.tokenURL = srv.URL

	if _, err := f.Fetch(context.Background()); err == nil {
		t.Fatalf("token failure means the whole source is unavailable")
	}
}
