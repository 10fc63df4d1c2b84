// Package sentiment scores message polarity.
package sentiment

import "github.com/jonreiter/govader"

// Scorer returns a compound polarity score in [-1, 1].
type Scorer interface {
	Score(text string) float64
}

// Vader scores text with the VADER lexicon.
type Vader struct {
	analyzer *govader.SentimentIntensityAnalyzer
}

// NewVader builds the analyzer once; the lexicon load is the expensive part.
func NewVader() *Vader {
	return &Vader{analyzer: govader.NewSentimentIntensityAnalyzer()}
}

func (v *Vader) Score(text string) float64 {
	return v.analyzer.PolarityScores(text).Compound
}
