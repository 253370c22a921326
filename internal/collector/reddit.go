package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	redditMaxResponseBytes = 4 << 20
	// High-engagement bar for the trending pull.
	redditTrendingMinScore    = 100
	redditTrendingMinComments = 20
)

// RedditFetcher reads configured communities through the OAuth listing API,
// covering three sort orders per community to maximize coverage. Without
// app credentials the fetcher self-disables.
type RedditFetcher struct {
	clientID     string
	clientSecret string
	userAgent    string
	communities  []string
	trending     []string
	recency      time.Duration
	tokenURL     string
	apiBase      string
	client       *http.Client
	limiter      *rate.Limiter

	tokenMu      sync.Mutex
	token        string
	tokenExpires time.Time
}

func NewRedditFetcher(clientID, clientSecret, userAgent string, communities, trending []string, recencyDays int, timeout time.Duration) *RedditFetcher {
	return &RedditFetcher{
		clientID:     clientID,
		clientSecret: clientSecret,
		userAgent:    userAgent,
		communities:  communities,
		trending:     trending,
		recency:      time.Duration(recencyDays) * 24 * time.Hour,
		tokenURL:     "https://www.reddit.com/api/v1/access_token",
		apiBase:      "https://oauth.reddit.com",
		client:       &http.Client{Timeout: timeout},
		// Reddit allows 60 requests/min for script apps; stay under it.
		limiter: rate.NewLimiter(rate.Every(1100*time.Millisecond), 1),
	}
}

func (r *RedditFetcher) Name() string { return "reddit" }

func (r *RedditFetcher) Platform() Platform { return PlatformReddit }

func (r *RedditFetcher) Enabled() bool {
	return r.clientID != "" && r.clientSecret != ""
}

type redditListing struct {
	Data struct {
		Children []struct {
			Data struct {
				ID          string  `json:"id"`
				Title       string  `json:"title"`
				SelfText    string  `json:"selftext"`
				Author      string  `json:"author"`
				Permalink   string  `json:"permalink"`
				Score       int     `json:"score"`
				NumComments int     `json:"num_comments"`
				CreatedUTC  float64 `json:"created_utc"`
				Subreddit   string  `json:"subreddit"`
				Over18      bool    `json:"over_18"`
			} `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

func (r *RedditFetcher) Fetch(ctx context.Context) ([]RawRecord, error) {
	if !r.Enabled() {
		log.Println("reddit: credentials not configured, skipping")
		return nil, nil
	}

	posts, err := r.fetchCommunities(ctx)
	if err != nil {
		return nil, err
	}
	posts = append(posts, r.fetchTrending(ctx)...)

	// Dedup across communities and sort orders before handing off.
	seen := make(map[string]struct{}, len(posts))
	records := make([]RawRecord, 0, len(posts))
	for _, p := range posts {
		if _, ok := seen[p.ID]; ok {
			continue
		}
		seen[p.ID] = struct{}{}
		records = append(records, RawRecord{Platform: PlatformReddit, Social: p})
	}

	log.Printf("reddit: %d unique posts from %d communities", len(records), len(r.communities)+len(r.trending))
	return records, nil
}

// fetchCommunities walks the configured list across hot/new/top. A failing
// listing skips that community+sort only.
func (r *RedditFetcher) fetchCommunities(ctx context.Context) ([]*SocialPost, error) {
	if err := r.ensureToken(ctx); err != nil {
		return nil, err
	}

	var posts []*SocialPost
	for _, community := range r.communities {
		for _, sort := range []string{"hot", "new", "top"} {
			listing, err := r.fetchListing(ctx, community, sort, 25)
			if err != nil {
				log.Printf("reddit: r/%s %s: %v", community, sort, err)
				continue
			}
			posts = append(posts, listing...)
		}
	}
	return posts, nil
}

// fetchTrending pulls weekly top posts from broad communities and keeps
// only high-engagement ones.
func (r *RedditFetcher) fetchTrending(ctx context.Context) []*SocialPost {
	var posts []*SocialPost
	for _, community := range r.trending {
		listing, err := r.fetchListing(ctx, community, "top", 15)
		if err != nil {
			log.Printf("reddit: trending r/%s: %v", community, err)
			continue
		}
		for _, p := range listing {
			if p.Score > redditTrendingMinScore && p.Comments > redditTrendingMinComments {
				posts = append(posts, p)
			}
		}
	}
	return posts
}

func (r *RedditFetcher) fetchListing(ctx context.Context, community, sort string, limit int) ([]*SocialPost, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("limit", fmt.Sprint(limit))
	if sort == "top" {
		q.Set("t", "week")
	}
	endpoint := fmt.Sprintf("%s/r/%s/%s.json?%s", r.apiBase, community, sort, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+r.bearerToken())
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	var listing redditListing
	if err := json.NewDecoder(io.LimitReader(resp.Body, redditMaxResponseBytes)).Decode(&listing); err != nil {
		return nil, err
	}

	cutoff := time.Now().Add(-r.recency)
	posts := make([]*SocialPost, 0, len(listing.Data.Children))
	for _, child := range listing.Data.Children {
		d := child.Data
		if d.Over18 {
			continue
		}
		created := time.Unix(int64(d.CreatedUTC), 0)
		if created.Before(cutoff) {
			continue
		}
		posts = append(posts, &SocialPost{
			ID:         d.ID,
			Title:      d.Title,
			SelfText:   d.SelfText,
			Author:     d.Author,
			Permalink:  "https://reddit.com" + d.Permalink,
			Score:      d.Score,
			Comments:   d.NumComments,
			CreatedUTC: int64(d.CreatedUTC),
			Subreddit:  d.Subreddit,
		})
	}
	return posts, nil
}

func (r *RedditFetcher) bearerToken() string {
	r.tokenMu.Lock()
	defer r.tokenMu.Unlock()
	return r.token
}

// ensureToken obtains or refreshes the client-credentials token. The mutex
// keeps concurrent fetches from racing the refresh; the loser of the race
// sees the fresh token and returns without a second request.
func (r *RedditFetcher) ensureToken(ctx context.Context) error {
	r.tokenMu.Lock()
	defer r.tokenMu.Unlock()

	if r.token != "" && time.Now().Before(r.tokenExpires) {
		return nil
	}

	if err := r.limiter.Wait(ctx); err != nil {
		return err
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("reddit: build token request: %w", err)
	}
	req.SetBasicAuth(r.clientID, r.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("reddit: token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("reddit: token status %d", resp.StatusCode)
	}

	var tok struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&tok); err != nil {
		return fmt.Errorf("reddit: decode token: %w", err)
	}
	if tok.AccessToken == "" {
		return fmt.Errorf("reddit: empty access token")
	}

	r.token = tok.AccessToken
	r.tokenExpires = time.Now().Add(time.Duration(tok.ExpiresIn-60) * time.Second)
	return nil
}
