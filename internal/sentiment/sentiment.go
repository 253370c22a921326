package sentiment

import (
	"log"
	"math"
	"strings"
)

// Label buckets a polarity score.
type Label string

const (
	LabelPositive Label = "positive"
	LabelNeutral  Label = "neutral"
	LabelNegative Label = "negative"

	// Scores within (-threshold, +threshold) are neutral.
	threshold = 0.1
)

// Result is one tagging outcome. Confidence is |score|.
type Result struct {
	Score      float64
	Label      Label
	Confidence float64
}

// Scorer is one polarity scoring method. Optional methods are represented
// by registration: an unavailable scorer is simply never registered.
type Scorer interface {
	Name() string
	Score(text string) (float64, error)
}

// Tagger combines every registered scorer by unweighted mean. With no
// scorers registered (or all of them failing) it falls back to the
// rule-based lexicon.
type Tagger struct {
	scorers []Scorer
}

func NewTagger(scorers ...Scorer) *Tagger {
	return &Tagger{scorers: scorers}
}

func (t *Tagger) Register(s Scorer) {
	t.scorers = append(t.scorers, s)
}

func (t *Tagger) Tag(text string) Result {
	if strings.TrimSpace(text) == "" {
		return Result{Score: 0, Label: LabelNeutral, Confidence: 0}
	}

	var (
		sum   float64
		count int
	)
	for _, s := range t.scorers {
		score, err := s.Score(text)
		if err != nil {
			log.Printf("sentiment: scorer %s: %v", s.Name(), err)
			continue
		}
		sum += score
		count++
	}

	var score float64
	if count > 0 {
		score = sum / float64(count)
	} else {
		score = lexiconScore(text)
	}
	score = round3(score)

	label := LabelNeutral
	switch {
	case score > threshold:
		label = LabelPositive
	case score < -threshold:
		label = LabelNegative
	}

	return Result{Score: score, Label: label, Confidence: round3(math.Abs(score))}
}

var (
	positiveWords = []string{
		"good", "great", "excellent", "awesome", "amazing", "love", "like",
		"best", "wonderful", "fantastic",
	}
	negativeWords = []string{
		"bad", "terrible", "awful", "hate", "worst", "horrible",
		"disgusting", "disappointing", "sad", "angry",
	}
)

// lexiconScore is the rule-based fallback: (positive matches - negative
// matches) / word count, clamped to [-1, 1].
func lexiconScore(text string) float64 {
	words := strings.Fields(text)
	if len(words) == 0 {
		return 0
	}

	lower := strings.ToLower(text)
	var pos, neg int
	for _, w := range positiveWords {
		if strings.Contains(lower, w) {
			pos++
		}
	}
	for _, w := range negativeWords {
		if strings.Contains(lower, w) {
			neg++
		}
	}

	score := float64(pos-neg) / float64(len(words))
	return math.Max(-1, math.Min(1, score))
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
