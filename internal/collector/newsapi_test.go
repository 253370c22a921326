package collector

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNewsAPIFetchDisabledWithoutKey(t *testing.T) {
	f := NewNewsAPIFetcher("", "Singapore", 24, 100, time.Second)

	if f.Enabled() {
		t.Fatalf("fetcher must self-disable without an API key")
	}

	records, err := f.Fetch(context.Background())
	if err != nil {
		t.Fatalf("missing key is a degradation, not an error: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("disabled fetcher returned %d records", len(records))
	}
}

func TestNewsAPIFetchMapsArticles(t *testing.T) {
	var gotQuery, gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		gotKey = r.Header.Get("X-Api-Key")
		fmt.Fprint(w, `{
			"status": "ok",
			"articles": [
				{
					"source": {"name": "CNA"},
					"author": "reporter",
					"title": "Tech investment grows",
					"description": "Summary text",
					"url": "https://example.com/a",
					"publishedAt": "2024-05-30T10:00:00Z",
					"content": "Full content"
				}
			]
		}`)
	}))
	defer srv.Close()

	f := NewNewsAPIFetcher("secret", "Singapore", 24, 100, 5*time.Second)
	f.baseURL = srv.URL

	records, err := f.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("records = %d, want 1", len(records))
	}

	if gotKey != "secret" {
		t.Fatalf("API key header = %q", gotKey)
	}
	if gotQuery != `Singapore OR "Singapore"` {
		t.Fatalf("query = %q", gotQuery)
	}

	a := records[0].News
	if a == nil || records[0].Platform != PlatformNewsAPI {
		t.Fatalf("unexpected record shape: %+v", records[0])
	}
	if a.Title != "Tech investment grows" || a.URL != "https://example.com/a" {
		t.Fatalf("article fields not mapped: %+v", a)
	}
	if a.SourceName != "CNA" || a.PublishedAt != "2024-05-30T10:00:00Z" {
		t.Fatalf("article metadata not mapped: %+v", a)
	}
}

func TestNewsAPIFetchAPIErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status": "error", "message": "rate limited"}`)
	}))
	defer srv.Close()

	f := NewNewsAPIFetcher("secret", "Singapore", 24, 100, 5*time.Second)
	f.baseURL = srv.URL

	if _, err := f.Fetch(context.Background()); err == nil {
		t.Fatalf("api-level error status must surface as an error")
	}
}
