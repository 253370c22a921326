package sentiment

import "github.com/jonreiter/govader"

// VaderScorer wraps the VADER intensity analyzer. Its compound score is
// already normalized to [-1, 1].
type VaderScorer struct {
	analyzer *govader.SentimentIntensityAnalyzer
}

func NewVaderScorer() *VaderScorer {
	return &VaderScorer{analyzer: govader.NewSentimentIntensityAnalyzer()}
}

func (v *VaderScorer) Name() string { return "vader" }

func (v *VaderScorer) Score(text string) (float64, error) {
	return v.analyzer.PolarityScores(text).Compound, nil
}
