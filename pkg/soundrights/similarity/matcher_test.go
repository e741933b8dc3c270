package similarity

import (
	"fmt"
	"testing"

	"github.com/soundrights/soundrights/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func track(id string, f *models.AudioFeatures) models.Track {
	return models.Track{ID: id, Title: "Title " + id, Artist: "Artist " + id, Status: models.StatusAnalyzed, Features: f}
}

func TestFindSimilarEmptyCorpus(t *testing.T) {
	matches := FindSimilarFunc(baseFeatures("q"), nil)
	assert.NotNil(t, matches)
	assert.Empty(t, matches)
}

func TestFindSimilarThresholds(t *testing.T) {
	query := baseFeatures("q")

	exact := baseFeatures("e")
	exact.Energy = 0.3 // 0.96

	partial := baseFeatures("p")
	partial.Energy = 1.0 // 0.90

	// bpm 50 off, energy and danceability 0.5 off: 0.225 + 0.1 + 0.1 + 0.15 + 0.15
	similar := baseFeatures("s")
	similar.BPM = 170
	similar.Energy = 0
	similar.Danceability = 1

	// bpm term bottoms out at 0: 0 + 0.1 + 0.1 + 0.15 + 0.15
	excluded := baseFeatures("x")
	excluded.BPM = 320
	excluded.Energy = 0
	excluded.Danceability = 1

	corpus := []models.Track{
		track("excluded", &excluded),
		track("similar", &similar),
		track("partial", &partial),
		track("exact", &exact),
	}
	matches := FindSimilarFunc(query, corpus)
	require.Len(t, matches, 3)

	assert.Equal(t, "exact", matches[0].TrackID)
	assert.Equal(t, models.MatchExact, matches[0].MatchType)
	assert.InDelta(t, 0.96, matches[0].Similarity, 1e-9)

	assert.Equal(t, "partial", matches[1].TrackID)
	assert.Equal(t, models.MatchPartial, matches[1].MatchType)
	assert.InDelta(t, 0.90, matches[1].Similarity, 1e-9)

	assert.Equal(t, "similar", matches[2].TrackID)
	assert.Equal(t, models.MatchSimilar, matches[2].MatchType)
	assert.InDelta(t, 0.725, matches[2].Similarity, 1e-9)

	assert.InDelta(t, 0.5, Score(query, excluded), 1e-9)
}

func TestFindSimilarCapsAndSorts(t *testing.T) {
	query := baseFeatures("q")
	corpus := make([]models.Track, 0, 50)
	for i := 0; i < 50; i++ {
		f := baseFeatures(fmt.Sprintf("fp%02d", i))
		f.BPM = 120 + float64(i) // bpm term 1 - i/200, all well above 0.70
		corpus = append(corpus, track(fmt.Sprintf("t%02d", i), &f))
	}

	matches := FindSimilarFunc(query, corpus)
	require.Len(t, matches, 10)
	for i := 1; i < len(matches); i++ {
		assert.GreaterOrEqual(t, matches[i-1].Similarity, matches[i].Similarity)
	}
	assert.Equal(t, "t00", matches[0].TrackID)
	assert.Equal(t, "t09", matches[9].TrackID)
}

func TestFindSimilarSkipsMissingFeatures(t *testing.T) {
	query := baseFeatures("q")
	same := baseFeatures("q")
	corpus := []models.Track{
		{ID: "failed", Status: models.StatusAnalysisFailed},
		track("dup", &same),
	}
	matches := FindSimilarFunc(query, corpus)
	require.Len(t, matches, 1)
	assert.Equal(t, "dup", matches[0].TrackID)
	assert.Equal(t, 1.0, matches[0].Similarity)
	assert.Equal(t, models.MatchExact, matches[0].MatchType)
	assert.True(t, HasExact(matches))
}

func TestFindSimilarStableTies(t *testing.T) {
	query := baseFeatures("q")
	a := baseFeatures("a")
	b := baseFeatures("b")
	matches := FindSimilarFunc(query, []models.Track{track("first", &a), track("second", &b)})
	require.Len(t, matches, 2)
	assert.Equal(t, "first", matches[0].TrackID)
	assert.Equal(t, "second", matches[1].TrackID)
}

func TestMatcherOptions(t *testing.T) {
	query := baseFeatures("q")
	partial := baseFeatures("p")
	partial.Energy = 1.0
	exact := baseFeatures("q")

	m := NewMatcher()
	m.MinSimilarity = 0.95
	matches := m.FindSimilar(query, []models.Track{track("p", &partial), track("e", &exact)})
	require.Len(t, matches, 1)
	assert.Equal(t, "e", matches[0].TrackID)

	m = NewMatcher()
	m.Limit = 1
	matches = m.FindSimilar(query, []models.Track{track("p", &partial), track("e", &exact)})
	require.Len(t, matches, 1)
	assert.False(t, HasExact(nil))
}
