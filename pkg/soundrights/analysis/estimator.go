package analysis

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"math/rand"

	"github.com/soundrights/soundrights/pkg/models"
	"github.com/soundrights/soundrights/pkg/soundrights/audio"
)

// Perceptual holds the descriptors an Estimator derives; duration and
// fingerprint are filled in by the Extractor.
type Perceptual struct {
	BPM              float64
	Key              string
	Energy           float64
	Danceability     float64
	Valence          float64
	Acousticness     float64
	Instrumentalness float64
}

type EstimateInput struct {
	Path        string
	Metadata    *audio.Metadata
	Fingerprint string
}

// Estimator derives perceptual features for a probed file.
type Estimator interface {
	Name() string
	Estimate(ctx context.Context, in EstimateInput) (Perceptual, error)
}

// HeuristicEstimator samples bounded placeholder values. The random source is
// seeded from the fingerprint, so identical content yields identical features.
// It performs no signal analysis.
type HeuristicEstimator struct{}

func (HeuristicEstimator) Name() string { return "heuristic" }

func (HeuristicEstimator) Estimate(_ context.Context, in EstimateInput) (Perceptual, error) {
	hasher := fnv.New64a()
	_, _ = hasher.Write([]byte(in.Fingerprint))
	// #nosec G404 -- reproducible placeholder values, not security sensitive
	rng := rand.New(rand.NewSource(int64(hasher.Sum64())))

	between := func(min, max float64) float64 {
		return min + rng.Float64()*(max-min)
	}

	duration := 0.0
	if in.Metadata != nil {
		duration = in.Metadata.DurationSec
	}
	lo, hi := bpmRange(duration)

	key := models.PitchClasses[rng.Intn(len(models.PitchClasses))] + " " + models.Modes[rng.Intn(len(models.Modes))]

	return Perceptual{
		BPM:              round(between(lo, hi), 1),
		Key:              key,
		Energy:           round(between(0.6, 1.0), 3),
		Danceability:     round(between(0.4, 0.9), 3),
		Valence:          round(between(0.2, 0.9), 3),
		Acousticness:     round(between(0.0, 0.5), 3),
		Instrumentalness: round(between(0.0, 0.3), 3),
	}, nil
}

// bpmRange buckets plausible tempi by track length: short clips skew fast,
// long pieces skew slow.
func bpmRange(durationSec float64) (float64, float64) {
	switch {
	case durationSec < 120:
		return 120, 160
	case durationSec < 240:
		return 90, 130
	default:
		return 70, 110
	}
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// NewEstimator returns the estimator registered under name.
func NewEstimator(name string) (Estimator, error) {
	switch name {
	case "", "heuristic":
		return HeuristicEstimator{}, nil
	case "spectral":
		return NewSpectralEstimator(), nil
	default:
		return nil, fmt.Errorf("unknown estimator %q", name)
	}
}
