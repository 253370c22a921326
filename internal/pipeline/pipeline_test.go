package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/trendsense/trendsense/internal/collector"
	"github.com/trendsense/trendsense/internal/processor"
	"github.com/trendsense/trendsense/internal/sentiment"
)

type fakeFetcher struct {
	name    string
	enabled bool
	records []collector.RawRecord
	err     error
	calls   int
}

func (f *fakeFetcher) Name() string { return f.name }

func (f *fakeFetcher) Platform() collector.Platform { return collector.PlatformHackerNews }

func (f *fakeFetcher) Enabled() bool { return f.enabled }

func (f *fakeFetcher) Fetch(context.Context) ([]collector.RawRecord, error) {
	f.calls++
	return f.records, f.err
}

// memSink mimics the store's idempotent upsert against an in-memory key
// set: first sighting of a natural identity inserts, repeats skip.
type memSink struct {
	rows     map[string]processor.Item
	failWith error
}

func newMemSink() *memSink {
	return &memSink{rows: make(map[string]processor.Item)}
}

func (m *memSink) UpsertBatch(items []processor.Item) (int, error) {
	if m.failWith != nil {
		// Commit-level failure: nothing from this batch lands.
		return 0, m.failWith
	}

	inserted := 0
	for _, it := range items {
		key := string(it.Platform) + "/" + it.NaturalID
		if _, ok := m.rows[key]; ok {
			continue
		}
		m.rows[key] = it
		inserted++
	}
	return inserted, nil
}

func storyRecords(n int) []collector.RawRecord {
	records := make([]collector.RawRecord, 0, n)
	for i := 0; i < n; i++ {
		records = append(records, collector.RawRecord{
			Platform: collector.PlatformHackerNews,
			Story:    &collector.LinkStory{ID: i + 1, Title: fmt.Sprintf("story %d", i+1), Score: 50},
		})
	}
	return records
}

func newTestPipeline(sink Sink, fetchers ...collector.Fetcher) *Pipeline {
	return New(fetchers, processor.NewNormalizer(), sentiment.NewTagger(), sink)
}

func TestRunCyclePartialSourceFailureContained(t *testing.T) {
	good := &fakeFetcher{name: "a", enabled: true, records: storyRecords(5)}
	bad := &fakeFetcher{name: "b", enabled: true, err: errors.New("connection refused")}

	sink := newMemSink()
	p := newTestPipeline(sink, good, bad)

	report, err := p.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("adapter failure must not fail the cycle: %v", err)
	}
	if report.Inserted != 5 {
		t.Fatalf("inserted = %d, want 5 from the healthy adapter", report.Inserted)
	}
	if report.SourceErrors != 1 {
		t.Fatalf("source errors = %d, want 1", report.SourceErrors)
	}
	if len(sink.rows) != 5 {
		t.Fatalf("persisted rows = %d, want 5", len(sink.rows))
	}
}

func TestRunCycleIdempotentReIngestion(t *testing.T) {
	f := &fakeFetcher{name: "a", enabled: true, records: storyRecords(4)}
	sink := newMemSink()
	p := newTestPipeline(sink, f)

	first, err := p.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("first cycle: %v", err)
	}
	if first.Inserted != 4 || first.Skipped != 0 {
		t.Fatalf("first cycle: inserted=%d skipped=%d, want 4/0", first.Inserted, first.Skipped)
	}

	second, err := p.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("second cycle: %v", err)
	}
	if second.Inserted != 0 || second.Skipped != 4 {
		t.Fatalf("second cycle: inserted=%d skipped=%d, want 0/4", second.Inserted, second.Skipped)
	}
	if len(sink.rows) != 4 {
		t.Fatalf("row count changed on re-ingestion: %d", len(sink.rows))
	}
}

func TestRunCycleDedupsWithinCycle(t *testing.T) {
	// Two adapters returning an overlapping story.
	shared := collector.RawRecord{
		Platform: collector.PlatformHackerNews,
		Story:    &collector.LinkStory{ID: 7, Title: "shared", Score: 50},
	}
	a := &fakeFetcher{name: "a", enabled: true, records: []collector.RawRecord{shared}}
	b := &fakeFetcher{name: "b", enabled: true, records: []collector.RawRecord{shared}}

	sink := newMemSink()
	p := newTestPipeline(sink, a, b)

	report, err := p.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("cycle: %v", err)
	}
	if report.Fetched != 2 || report.Deduped != 1 {
		t.Fatalf("fetched=%d deduped=%d, want 2/1", report.Fetched, report.Deduped)
	}
	if report.Inserted != 1 {
		t.Fatalf("inserted = %d, want 1", report.Inserted)
	}
}

func TestRunCycleSkipsDisabledFetchers(t *testing.T) {
	disabled := &fakeFetcher{name: "no-creds", enabled: false, records: storyRecords(3)}
	sink := newMemSink()
	p := newTestPipeline(sink, disabled)

	report, err := p.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("cycle: %v", err)
	}
	if disabled.calls != 0 {
		t.Fatalf("disabled fetcher must not be invoked")
	}
	if report.Fetched != 0 || report.Inserted != 0 {
		t.Fatalf("disabled fetcher contributed items: %+v", report)
	}
}

func TestRunCyclePersistFailurePropagates(t *testing.T) {
	f := &fakeFetcher{name: "a", enabled: true, records: storyRecords(2)}
	sink := newMemSink()
	sink.failWith = errors.New("connection lost")
	p := newTestPipeline(sink, f)

	report, err := p.RunCycle(context.Background())
	if err == nil {
		t.Fatalf("persistence failure must propagate to the caller")
	}
	if report.Inserted != 0 {
		t.Fatalf("rolled-back batch must report 0 inserts, got %d", report.Inserted)
	}
	if len(sink.rows) != 0 {
		t.Fatalf("rolled-back batch must leave no rows, got %d", len(sink.rows))
	}
}

func TestRunCycleTagsItems(t *testing.T) {
	f := &fakeFetcher{name: "a", enabled: true, records: []collector.RawRecord{{
		Platform: collector.PlatformHackerNews,
		Story:    &collector.LinkStory{ID: 1, Title: "awesome release", Score: 50},
	}}}

	sink := newMemSink()
	p := newTestPipeline(sink, f)

	if _, err := p.RunCycle(context.Background()); err != nil {
		t.Fatalf("cycle: %v", err)
	}

	for _, it := range sink.rows {
		if it.SentimentScore == nil || it.SentimentLabel == "" {
			t.Fatalf("item not tagged: %+v", it)
		}
	}
}
