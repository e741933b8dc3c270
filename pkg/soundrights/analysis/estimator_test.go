package analysis

import (
	"context"
	"testing"

	"github.com/soundrights/soundrights/pkg/models"
	"github.com/soundrights/soundrights/pkg/soundrights/audio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeuristicEstimatorDeterministic(t *testing.T) {
	in := EstimateInput{Fingerprint: FingerprintBytes([]byte("track")), Metadata: &audio.Metadata{DurationSec: 200}}
	a, err := HeuristicEstimator{}.Estimate(context.Background(), in)
	require.NoError(t, err)
	b, err := HeuristicEstimator{}.Estimate(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestHeuristicEstimatorRanges(t *testing.T) {
	tests := []struct {
		duration float64
		lo, hi   float64
	}{
		{30, 120, 160},
		{119.9, 120, 160},
		{120, 90, 130},
		{239, 90, 130},
		{240, 70, 110},
		{3600, 70, 110},
	}
	for _, tt := range tests {
		for i := 0; i < 25; i++ {
			fp := FingerprintBytes([]byte{byte(i), byte(tt.duration)})
			p, err := HeuristicEstimator{}.Estimate(context.Background(), EstimateInput{
				Fingerprint: fp,
				Metadata:    &audio.Metadata{DurationSec: tt.duration},
			})
			require.NoError(t, err)

			assert.GreaterOrEqual(t, p.BPM, tt.lo)
			assert.LessOrEqual(t, p.BPM, tt.hi)
			assert.True(t, models.ValidKey(p.Key), p.Key)
			assert.GreaterOrEqual(t, p.Energy, 0.6)
			assert.LessOrEqual(t, p.Energy, 1.0)
			assert.GreaterOrEqual(t, p.Danceability, 0.4)
			assert.LessOrEqual(t, p.Danceability, 0.9)
			assert.GreaterOrEqual(t, p.Valence, 0.2)
			assert.LessOrEqual(t, p.Valence, 0.9)
			assert.LessOrEqual(t, p.Acousticness, 0.5)
			assert.LessOrEqual(t, p.Instrumentalness, 0.3)
		}
	}
}

func TestHeuristicEstimatorNilMetadata(t *testing.T) {
	p, err := HeuristicEstimator{}.Estimate(context.Background(), EstimateInput{Fingerprint: "abc"})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, p.BPM, 120.0)
}

func TestNewEstimator(t *testing.T) {
	for name, want := range map[string]string{"": "heuristic", "heuristic": "heuristic", "spectral": "spectral"} {
		est, err := NewEstimator(name)
		require.NoError(t, err)
		assert.Equal(t, want, est.Name())
	}
	_, err := NewEstimator("neural")
	assert.Error(t, err)
}
