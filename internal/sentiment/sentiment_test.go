package sentiment

import (
	"errors"
	"testing"
)

type fixedScorer struct {
	name  string
	score float64
	err   error
}

func (f fixedScorer) Name() string { return f.name }

func (f fixedScorer) Score(string) (float64, error) { return f.score, f.err }

func TestTagLabelThresholds(t *testing.T) {
	cases := []struct {
		score float64
		want  Label
	}{
		{0.15, LabelPositive},
		{-0.15, LabelNegative},
		{0.05, LabelNeutral},
		{0.1, LabelNeutral},  // boundary is exclusive
		{-0.1, LabelNeutral},
	}

	for _, c := range cases {
		tagger := NewTagger(fixedScorer{name: "fixed", score: c.score})
		res := tagger.Tag("some text")
		if res.Label != c.want {
			t.Fatalf("score %v: label = %s, want %s", c.score, res.Label, c.want)
		}
		if res.Score != c.score {
			t.Fatalf("score %v: got %v", c.score, res.Score)
		}
		wantConf := c.score
		if wantConf < 0 {
			wantConf = -wantConf
		}
		if res.Confidence != wantConf {
			t.Fatalf("score %v: confidence = %v, want %v", c.score, res.Confidence, wantConf)
		}
	}
}

func TestTagEmptyTextShortCircuits(t *testing.T) {
	called := false
	tagger := NewTagger(scorerFunc(func(string) (float64, error) {
		called = true
		return 1, nil
	}))

	res := tagger.Tag("   ")
	if res.Score != 0 || res.Label != LabelNeutral || res.Confidence != 0 {
		t.Fatalf("empty text should yield (0, neutral, 0), got %+v", res)
	}
	if called {
		t.Fatalf("empty text must not invoke any scorer")
	}
}

type scorerFunc func(string) (float64, error)

func (f scorerFunc) Name() string { return "func" }

func (f scorerFunc) Score(text string) (float64, error) { return f(text) }

func TestTagAveragesRegisteredScorers(t *testing.T) {
	tagger := NewTagger(
		fixedScorer{name: "a", score: 0.5},
		fixedScorer{name: "b", score: 0.1},
	)

	res := tagger.Tag("text")
	if res.Score != 0.3 {
		t.Fatalf("mean of 0.5 and 0.1 should be 0.3, got %v", res.Score)
	}
}

func TestTagSkipsFailingScorer(t *testing.T) {
	tagger := NewTagger(
		fixedScorer{name: "broken", err: errors.New("boom")},
		fixedScorer{name: "ok", score: 0.4},
	)

	res := tagger.Tag("text")
	if res.Score != 0.4 {
		t.Fatalf("failing scorer should be skipped, got score %v", res.Score)
	}
}

func TestTagFallsBackToLexiconWithNoScorers(t *testing.T) {
	tagger := NewTagger()

	// Single positive word: (1 - 0) / 1 = 1.0.
	res := tagger.Tag("awesome")
	if res.Score != 1 || res.Label != LabelPositive {
		t.Fatalf("lexicon fallback: got %+v, want score 1 positive", res)
	}

	// Two negative words over two words: clamped mean stays at -1.
	res = tagger.Tag("terrible awful")
	if res.Score != -1 || res.Label != LabelNegative {
		t.Fatalf("lexicon fallback: got %+v, want score -1 negative", res)
	}

	// No lexicon hits at all.
	res = tagger.Tag("the quarterly report was published")
	if res.Score != 0 || res.Label != LabelNeutral {
		t.Fatalf("lexicon fallback: got %+v, want neutral 0", res)
	}
}

func TestLexiconScoreDilutedByLength(t *testing.T) {
	// One positive hit across four words: 1/4.
	got := lexiconScore("good morning dear reader")
	if got != 0.25 {
		t.Fatalf("lexiconScore = %v, want 0.25", got)
	}
}

func TestVaderScorerDirection(t *testing.T) {
	v := NewVaderScorer()

	pos, err := v.Score("This is wonderful, I love it!")
	if err != nil {
		t.Fatalf("vader error: %v", err)
	}
	neg, err := v.Score("This is horrible, I hate it.")
	if err != nil {
		t.Fatalf("vader error: %v", err)
	}

	if pos <= 0 {
		t.Fatalf("expected positive compound for positive text, got %v", pos)
	}
	if neg >= 0 {
		t.Fatalf("expected negative compound for negative text, got %v", neg)
	}
}
