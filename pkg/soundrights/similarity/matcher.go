package similarity

import (
	"sort"

	"github.com/soundrights/soundrights/pkg/models"
)

const (
	DefaultMinSimilarity = SimilarThreshold
	DefaultLimit         = 10
)

// Matcher ranks stored tracks against a query. A zero Matcher scores with
// DefaultWeights and applies no limit.
type Matcher struct {
	Scorer        *Scorer
	MinSimilarity float64
	Limit         int
}

// NewMatcher returns a Matcher with the default threshold and limit.
func NewMatcher() *Matcher {
	return &Matcher{
		Scorer:        NewScorer(),
		MinSimilarity: DefaultMinSimilarity,
		Limit:         DefaultLimit,
	}
}

// FindSimilarFunc runs FindSimilar with default weights, threshold and limit.
func FindSimilarFunc(features models.AudioFeatures, corpus []models.Track) []models.SimilarityMatch {
	return NewMatcher().FindSimilar(features, corpus)
}

// FindSimilar scores every track that has features, keeps those above
// MinSimilarity and returns at most Limit of them, best first. Ties keep
// corpus order.
func (m *Matcher) FindSimilar(features models.AudioFeatures, corpus []models.Track) []models.SimilarityMatch {
	scorer := m.Scorer
	if scorer == nil {
		scorer = defaultScorer
	}

	matches := make([]models.SimilarityMatch, 0)
	for _, track := range corpus {
		if track.Features == nil {
			continue
		}

		sim := scorer.Score(features, *track.Features)
		if sim <= m.MinSimilarity {
			continue
		}
		matchType, ok := Classify(sim)
		if !ok {
			continue
		}

		matches = append(matches, models.SimilarityMatch{
			TrackID:    track.ID,
			Title:      track.Title,
			Artist:     track.Artist,
			Similarity: sim,
			MatchType:  matchType,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})

	if m.Limit > 0 && len(matches) > m.Limit {
		matches = matches[:m.Limit]
	}
	return matches
}

// HasExact reports whether any match is an exact duplicate.
func HasExact(matches []models.SimilarityMatch) bool {
	for _, match := range matches {
		if match.MatchType == models.MatchExact {
			return true
		}
	}
	return false
}
