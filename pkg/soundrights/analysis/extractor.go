package analysis

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/soundrights/soundrights/pkg/models"
	"github.com/soundrights/soundrights/pkg/soundrights/audio"
	"github.com/soundrights/soundrights/pkg/utils"
)

// FallbackFeatures is the fixed feature set used when no probe tool is available.
func FallbackFeatures(fingerprint string) *models.AudioFeatures {
	return &models.AudioFeatures{
		Duration:         180,
		BPM:              120,
		Key:              "C major",
		Energy:           0.7,
		Danceability:     0.6,
		Valence:          0.5,
		Acousticness:     0.3,
		Instrumentalness: 0.1,
		Fingerprint:      fingerprint,
	}
}

// Extractor turns raw upload bytes into AudioFeatures. It keeps no per-call
// state, so a single Extractor may serve concurrent Analyze calls.
type Extractor struct {
	prober        audio.Prober
	estimator     Estimator
	fingerprinter *Fingerprinter
	tempDir       string
	log           Logger
}

type ExtractorOption func(*Extractor)

func WithProber(p audio.Prober) ExtractorOption {
	return func(e *Extractor) { e.prober = p }
}

func WithEstimator(est Estimator) ExtractorOption {
	return func(e *Extractor) { e.estimator = est }
}

func WithFingerprinter(f *Fingerprinter) ExtractorOption {
	return func(e *Extractor) { e.fingerprinter = f }
}

func WithTempDir(dir string) ExtractorOption {
	return func(e *Extractor) { e.tempDir = dir }
}

func WithLogger(l Logger) ExtractorOption {
	return func(e *Extractor) { e.log = l }
}

func NewExtractor(opts ...ExtractorOption) *Extractor {
	e := &Extractor{
		prober:    audio.NewFFProbe("", audio.DefaultProbeTimeout),
		estimator: HeuristicEstimator{},
		tempDir:   os.TempDir(),
		log:       nopLogger{},
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.fingerprinter == nil {
		e.fingerprinter = NewFingerprinter(false, e.log)
	}
	return e
}

// Analyze stores data in a private temp file, fingerprints and probes it, and
// removes the file before returning on every path.
//
// A missing or failing probe tool yields FallbackFeatures. A probe whose output
// cannot be parsed returns *audio.MetadataParseError.
func (e *Extractor) Analyze(ctx context.Context, data []byte, filename string) (*models.AudioFeatures, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path, err := e.writeTemp(data, filename)
	if err != nil {
		return nil, err
	}
	defer e.removeTemp(path)

	fp, err := e.fingerprinter.Fingerprint(path)
	if err != nil {
		return nil, err
	}

	meta, err := e.prober.Probe(ctx, path)
	if err != nil {
		if errors.Is(err, audio.ErrToolUnavailable) {
			e.log.Warnf("Probe unavailable for %s, using default features: %v", filename, err)
			return FallbackFeatures(fp), nil
		}
		return nil, fmt.Errorf("probe %s: %w", filename, err)
	}

	p, err := e.estimator.Estimate(ctx, EstimateInput{Path: path, Metadata: meta, Fingerprint: fp})
	if err != nil {
		return nil, fmt.Errorf("estimate features (%s): %w", e.estimator.Name(), err)
	}

	e.log.Debugf("Analyzed %s: duration=%.2fs bpm=%.1f key=%s fp=%s", filename, meta.DurationSec, p.BPM, p.Key, fp)

	duration := round(meta.DurationSec, 3)
	if duration <= 0 {
		// sub-millisecond clip
		duration = meta.DurationSec
	}
	features := &models.AudioFeatures{
		Duration:         duration,
		BPM:              p.BPM,
		Key:              p.Key,
		Energy:           p.Energy,
		Danceability:     p.Danceability,
		Valence:          p.Valence,
		Acousticness:     p.Acousticness,
		Instrumentalness: p.Instrumentalness,
		Fingerprint:      fp,
	}
	if err := features.Validate(); err != nil {
		return nil, &audio.MetadataParseError{Tool: e.estimator.Name(), Reason: "invalid features", Err: err}
	}
	return features, nil
}

func (e *Extractor) writeTemp(data []byte, filename string) (string, error) {
	if err := utils.MakeDir(e.tempDir); err != nil {
		return "", fmt.Errorf("create temp dir: %w", err)
	}
	path := filepath.Join(e.tempDir, utils.UniqueTempName("analysis", filename))

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		e.removeTemp(path)
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		e.removeTemp(path)
		return "", fmt.Errorf("close temp file: %w", err)
	}
	return path, nil
}

func (e *Extractor) removeTemp(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		e.log.Warnf("Failed to remove temp file %s: %v", path, err)
	}
}
