package analysis

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/soundrights/soundrights/internal/testutil"
	"github.com/soundrights/soundrights/pkg/soundrights/audio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFixture(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestHamming(t *testing.T) {
	w := Hamming(5)
	assert.InDelta(t, 0.08, w[0], 1e-9)
	assert.InDelta(t, 1.0, w[2], 1e-9)
	assert.InDelta(t, 0.08, w[4], 1e-9)
}

func TestSTFTShape(t *testing.T) {
	spec, err := STFT(make([]float64, 4096), 1024, 256, Hamming(1024))
	require.NoError(t, err)
	assert.Len(t, spec, 13)
	assert.Len(t, spec[0], 512)

	_, err = STFT(make([]float64, 100), 1024, 256, Hamming(1024))
	assert.Error(t, err)
}

func TestSpectralEstimatorClickTempo(t *testing.T) {
	data := testutil.ClickTrackWAV(t, 8000, 8, 120)
	path := writeFixture(t, "clicks.wav", data)

	p, err := NewSpectralEstimator().Estimate(context.Background(), EstimateInput{
		Path:        path,
		Metadata:    &audio.Metadata{DurationSec: 8},
		Fingerprint: FingerprintBytes(data),
	})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, p.BPM, 110.0)
	assert.LessOrEqual(t, p.BPM, 130.0)
}

func TestSpectralEstimatorSine(t *testing.T) {
	data := testutil.SineWAV(t, 8000, 2, 440)
	path := writeFixture(t, "tone.wav", data)

	p, err := NewSpectralEstimator().Estimate(context.Background(), EstimateInput{
		Path:        path,
		Metadata:    &audio.Metadata{DurationSec: 2},
		Fingerprint: FingerprintBytes(data),
	})
	require.NoError(t, err)

	// 0.5 amplitude sine: about -9 dBFS RMS.
	assert.InDelta(t, 0.85, p.Energy, 0.02)
	assert.Greater(t, p.Acousticness, 0.8)
}

func TestSpectralEstimatorNonWAVFallsBack(t *testing.T) {
	path := writeFixture(t, "notes.txt", []byte("not audio at all"))
	in := EstimateInput{Path: path, Metadata: &audio.Metadata{DurationSec: 100}, Fingerprint: "00112233445566778899aabbccddeeff"}

	got, err := NewSpectralEstimator().Estimate(context.Background(), in)
	require.NoError(t, err)
	want, err := HeuristicEstimator{}.Estimate(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
