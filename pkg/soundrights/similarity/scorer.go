// Package similarity scores pairs of AudioFeatures and ranks a corpus of
// stored tracks against a query.
package similarity

import (
	"math"

	"github.com/soundrights/soundrights/pkg/models"
)

// Classification thresholds. A score must be strictly greater than the bound.
const (
	ExactThreshold   = 0.95
	PartialThreshold = 0.85
	SimilarThreshold = 0.70
)

// bpmSpan is the tempo difference at which the bpm term reaches zero.
const bpmSpan = 200.0

// Weights is the per-axis contribution to the combined score.
type Weights struct {
	BPM          float64 `json:"bpm" yaml:"bpm" mapstructure:"bpm"`
	Energy       float64 `json:"energy" yaml:"energy" mapstructure:"energy"`
	Danceability float64 `json:"danceability" yaml:"danceability" mapstructure:"danceability"`
	Valence      float64 `json:"valence" yaml:"valence" mapstructure:"valence"`
	Duration     float64 `json:"duration" yaml:"duration" mapstructure:"duration"`
}

// DefaultWeights favours tempo, then energy and danceability.
func DefaultWeights() Weights {
	return Weights{
		BPM:          0.30,
		Energy:       0.20,
		Danceability: 0.20,
		Valence:      0.15,
		Duration:     0.15,
	}
}

// Scorer combines per-axis similarities using Weights.
type Scorer struct {
	Weights Weights
}

// NewScorer returns a Scorer with DefaultWeights.
func NewScorer() *Scorer {
	return &Scorer{Weights: DefaultWeights()}
}

var defaultScorer = NewScorer()

// Score compares a and b with DefaultWeights.
func Score(a, b models.AudioFeatures) float64 {
	return defaultScorer.Score(a, b)
}

// Score returns a similarity in [0,1]. Equal non-empty fingerprints score 1.
// An axis whose value is missing or non-finite on either side contributes 0.
func (s *Scorer) Score(a, b models.AudioFeatures) float64 {
	if a.Fingerprint != "" && a.Fingerprint == b.Fingerprint {
		return 1.0
	}

	w := s.Weights
	total := w.BPM*positiveTerm(a.BPM, b.BPM, func(x, y float64) float64 {
		return 1 - math.Abs(x-y)/bpmSpan
	}) +
		w.Energy*unitTerm(a.Energy, b.Energy) +
		w.Danceability*unitTerm(a.Danceability, b.Danceability) +
		w.Valence*unitTerm(a.Valence, b.Valence) +
		w.Duration*positiveTerm(a.Duration, b.Duration, func(x, y float64) float64 {
			return 1 - math.Abs(x-y)/math.Max(x, y)
		})

	return clamp(total)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func unitTerm(x, y float64) float64 {
	if !finite(x) || !finite(y) {
		return 0
	}
	return 1 - math.Abs(x-y)
}

func positiveTerm(x, y float64, f func(x, y float64) float64) float64 {
	if !finite(x) || !finite(y) || x <= 0 || y <= 0 {
		return 0
	}
	return f(x, y)
}

func clamp(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Classify maps a score to its match tier. ok is false for scores that are
// never reported.
func Classify(similarity float64) (models.MatchType, bool) {
	switch {
	case similarity > ExactThreshold:
		return models.MatchExact, true
	case similarity > PartialThreshold:
		return models.MatchPartial, true
	case similarity > SimilarThreshold:
		return models.MatchSimilar, true
	default:
		return "", false
	}
}
