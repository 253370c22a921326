package pipeline

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/trendsense/trendsense/internal/collector"
	"github.com/trendsense/trendsense/internal/processor"
	"github.com/trendsense/trendsense/internal/sentiment"
)

// Sink is the persistence contract the pipeline writes through.
// storage.Store satisfies it.
type Sink interface {
	UpsertBatch(items []processor.Item) (int, error)
}

// Report summarizes one cycle for the operator.
type Report struct {
	Fetched      int
	Deduped      int
	Inserted     int
	Skipped      int // items the store declined: already persisted, or lacking a natural identity
	SourceErrors int
}

func (r Report) String() string {
	return fmt.Sprintf("fetched=%d deduped=%d inserted=%d skipped=%d source_errors=%d",
		r.Fetched, r.Deduped, r.Inserted, r.Skipped, r.SourceErrors)
}

// Pipeline runs fetch, normalize, dedup, tag and persist once per cycle.
// Adapter failures are contained; only a persistence failure is returned to
// the caller, which retries the cycle after a backoff.
type Pipeline struct {
	fetchers   []collector.Fetcher
	normalizer *processor.Normalizer
	tagger     *sentiment.Tagger
	sink       Sink
}

func New(fetchers []collector.Fetcher, normalizer *processor.Normalizer, tagger *sentiment.Tagger, sink Sink) *Pipeline {
	return &Pipeline{
		fetchers:   fetchers,
		normalizer: normalizer,
		tagger:     tagger,
		sink:       sink,
	}
}

// RunCycle executes one full ingestion cycle. Stages are sequential; only
// the fetch stage fans out, one goroutine per adapter.
func (p *Pipeline) RunCycle(ctx context.Context) (Report, error) {
	var report Report

	raw := p.fetchAll(ctx, &report)
	report.Fetched = len(raw)

	items := make([]processor.Item, 0, len(raw))
	for _, rec := range raw {
		items = append(items, p.normalizer.Normalize(rec))
	}

	items = processor.Dedupe(items)
	report.Deduped = len(items)

	for i := range items {
		text := items[i].Body
		if text == "" {
			text = items[i].Title
		}
		res := p.tagger.Tag(text)
		score := res.Score
		items[i].SentimentScore = &score
		items[i].SentimentLabel = string(res.Label)
	}

	if len(items) > 0 {
		inserted, err := p.sink.UpsertBatch(items)
		if err != nil {
			return report, fmt.Errorf("pipeline: persist: %w", err)
		}
		report.Inserted = inserted
		report.Skipped = len(items) - inserted
	}

	log.Printf("pipeline: cycle done: %s", report)
	return report, nil
}

// fetchAll runs every enabled adapter concurrently. A failing adapter
// contributes nothing and the cycle proceeds with the rest.
func (p *Pipeline) fetchAll(ctx context.Context, report *Report) []collector.RawRecord {
	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		out []collector.RawRecord
	)

	for _, f := range p.fetchers {
		if !f.Enabled() {
			log.Printf("pipeline: %s disabled, reduced coverage this cycle", f.Name())
			continue
		}

		fetcher := f
		wg.Add(1)
		go func() {
			defer wg.Done()

			records, err := fetcher.Fetch(ctx)
			if err != nil {
				log.Printf("pipeline: fetch %s error: %v", fetcher.Name(), err)
				mu.Lock()
				report.SourceErrors++
				mu.Unlock()
				return
			}

			mu.Lock()
			out = append(out, records...)
			mu.Unlock()
		}()
	}
	wg.Wait()

	return out
}
