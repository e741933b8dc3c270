package analysis

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/soundrights/soundrights/internal/testutil"
	"github.com/soundrights/soundrights/pkg/soundrights/audio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertDirEmpty(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "temp files left behind")
}

func TestAnalyzeFallbackWithoutProbe(t *testing.T) {
	dir := t.TempDir()
	e := NewExtractor(
		WithTempDir(dir),
		WithProber(audio.NewFFProbe("soundrights-no-such-ffprobe", time.Second)),
	)

	data := []byte("pretend this is an mp3")
	f, err := e.Analyze(context.Background(), data, "song.mp3")
	require.NoError(t, err)

	want := FallbackFeatures(FingerprintBytes(data))
	assert.Equal(t, want, f)
	assert.Equal(t, 180.0, f.Duration)
	assert.Equal(t, 120.0, f.BPM)
	assert.Equal(t, "C major", f.Key)
	assertDirEmpty(t, dir)
}

func TestAnalyzeWithProbe(t *testing.T) {
	dir := t.TempDir()
	probe := testutil.EchoProbe(t, testutil.FFProbeJSON(95.25))
	e := NewExtractor(WithTempDir(dir), WithProber(audio.NewFFProbe(probe, 5*time.Second)))

	data := []byte("some audio bytes")
	f, err := e.Analyze(context.Background(), data, "../../etc/passwd")
	require.NoError(t, err)

	assert.InDelta(t, 95.25, f.Duration, 1e-9)
	assert.Equal(t, FingerprintBytes(data), f.Fingerprint)
	assert.GreaterOrEqual(t, f.BPM, 120.0)
	assert.LessOrEqual(t, f.BPM, 160.0)
	require.NoError(t, f.Validate())
	assertDirEmpty(t, dir)

	again, err := e.Analyze(context.Background(), data, "copy.mp3")
	require.NoError(t, err)
	assert.Equal(t, f, again)
}

func TestAnalyzeParseErrorPropagates(t *testing.T) {
	dir := t.TempDir()
	probe := testutil.EchoProbe(t, `{"streams":[{"codec_type":"video"}],"format":{"duration":"3"}}`)
	e := NewExtractor(WithTempDir(dir), WithProber(audio.NewFFProbe(probe, 5*time.Second)))

	f, err := e.Analyze(context.Background(), []byte("x"), "clip.mp4")
	assert.Nil(t, f)
	var perr *audio.MetadataParseError
	assert.ErrorAs(t, err, &perr)
	assertDirEmpty(t, dir)
}

func TestAnalyzeProbeFailureFallsBack(t *testing.T) {
	dir := t.TempDir()
	probe := testutil.FakeProbe(t, "echo boom >&2; exit 1")
	e := NewExtractor(WithTempDir(dir), WithProber(audio.NewFFProbe(probe, 5*time.Second)))

	f, err := e.Analyze(context.Background(), []byte("y"), "a.wav")
	require.NoError(t, err)
	assert.Equal(t, 180.0, f.Duration)
	assertDirEmpty(t, dir)
}

func TestAnalyzeWAVProberSpectral(t *testing.T) {
	dir := t.TempDir()
	e := NewExtractor(WithTempDir(dir), WithProber(audio.WAVProber{}), WithEstimator(NewSpectralEstimator()))

	data := testutil.ClickTrackWAV(t, 8000, 8, 120)
	f, err := e.Analyze(context.Background(), data, "clicks.wav")
	require.NoError(t, err)
	assert.InDelta(t, 8.0, f.Duration, 0.01)
	require.NoError(t, f.Validate())
	assertDirEmpty(t, dir)
}

func TestAnalyzeSubMillisecondClip(t *testing.T) {
	dir := t.TempDir()
	e := NewExtractor(WithTempDir(dir), WithProber(audio.WAVProber{}))

	f, err := e.Analyze(context.Background(), testutil.SineWAV(t, 8000, 0.000375, 440), "blip.wav")
	require.NoError(t, err)
	assert.InDelta(t, 0.000375, f.Duration, 1e-9)
	require.NoError(t, f.Validate())
	assertDirEmpty(t, dir)
}

func TestAnalyzeInfiniteProbeDuration(t *testing.T) {
	dir := t.TempDir()
	probe := testutil.EchoProbe(t, `{"streams":[{"codec_type":"audio"}],"format":{"duration":"inf"}}`)
	e := NewExtractor(WithTempDir(dir), WithProber(audio.NewFFProbe(probe, 5*time.Second)))

	f, err := e.Analyze(context.Background(), []byte("stream"), "live.mp3")
	assert.Nil(t, f)
	var perr *audio.MetadataParseError
	assert.ErrorAs(t, err, &perr)
	assertDirEmpty(t, dir)
}

type badKeyEstimator struct{}

func (badKeyEstimator) Name() string { return "bad-key" }

func (badKeyEstimator) Estimate(context.Context, EstimateInput) (Perceptual, error) {
	return Perceptual{BPM: 120, Key: "H major", Energy: 0.5}, nil
}

func TestAnalyzeRejectsInvalidFeatures(t *testing.T) {
	dir := t.TempDir()
	e := NewExtractor(WithTempDir(dir), WithProber(audio.WAVProber{}), WithEstimator(badKeyEstimator{}))

	f, err := e.Analyze(context.Background(), testutil.SineWAV(t, 8000, 0.5, 440), "tone.wav")
	assert.Nil(t, f)
	var perr *audio.MetadataParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "bad-key", perr.Tool)
	assertDirEmpty(t, dir)
}

func TestAnalyzeCancelledContext(t *testing.T) {
	dir := t.TempDir()
	e := NewExtractor(WithTempDir(dir))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Analyze(ctx, []byte("z"), "z.wav")
	assert.ErrorIs(t, err, context.Canceled)
	assertDirEmpty(t, dir)
}

func TestAnalyzeConcurrent(t *testing.T) {
	dir := t.TempDir()
	e := NewExtractor(WithTempDir(dir), WithProber(audio.NewFFProbe("soundrights-no-such-ffprobe", time.Second)))

	var wg sync.WaitGroup
	results := make([]string, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			f, err := e.Analyze(context.Background(), []byte(fmt.Sprintf("payload-%d", i)), "same-name.mp3")
			if assert.NoError(t, err) {
				results[i] = f.Fingerprint
			}
		}(i)
	}
	wg.Wait()

	for i, fp := range results {
		assert.Equal(t, FingerprintBytes([]byte(fmt.Sprintf("payload-%d", i))), fp)
	}
	assertDirEmpty(t, dir)
}

func TestAnalyzeStrictFingerprintReadableFile(t *testing.T) {
	e := NewExtractor(
		WithTempDir(t.TempDir()),
		WithFingerprinter(NewFingerprinter(true, nil)),
		WithProber(audio.NewFFProbe("soundrights-no-such-ffprobe", time.Second)),
	)
	f, err := e.Analyze(context.Background(), []byte("ok"), "ok.wav")
	require.NoError(t, err)
	assert.Equal(t, FingerprintBytes([]byte("ok")), f.Fingerprint)
}
