package analysis

import (
	"context"
	"errors"
	"math"
	"math/cmplx"
	"os"

	"github.com/go-audio/wav"
	"github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/floats"
)

const (
	WindowSize = 1024
	HopSize    = 256

	// DefaultMaxSeconds caps how much audio the spectral pass decodes.
	DefaultMaxSeconds = 60.0

	minTempo = 60.0
	maxTempo = 200.0
)

// SpectralEstimator measures energy, acousticness and tempo from PCM WAV
// input. Everything it cannot measure, and any non-WAV input, comes from
// Fallback.
type SpectralEstimator struct {
	Fallback   Estimator
	MaxSeconds float64
}

func NewSpectralEstimator() *SpectralEstimator {
	return &SpectralEstimator{Fallback: HeuristicEstimator{}, MaxSeconds: DefaultMaxSeconds}
}

func (s *SpectralEstimator) Name() string { return "spectral" }

func (s *SpectralEstimator) Estimate(ctx context.Context, in EstimateInput) (Perceptual, error) {
	fallback := s.Fallback
	if fallback == nil {
		fallback = HeuristicEstimator{}
	}
	base, err := fallback.Estimate(ctx, in)
	if err != nil {
		return Perceptual{}, err
	}

	samples, sampleRate, err := readMonoPCM(in.Path, s.maxSeconds())
	if err != nil || len(samples) < WindowSize {
		return base, nil
	}
	if err := ctx.Err(); err != nil {
		return Perceptual{}, err
	}

	spec, err := STFT(samples, WindowSize, HopSize, Hamming(WindowSize))
	if err != nil {
		return base, nil
	}

	base.Energy = round(rmsEnergy(samples), 3)
	base.Acousticness = round(clamp01(1-meanFlatness(spec)), 3)
	if bpm, ok := tempoFromFlux(spec, float64(sampleRate)/HopSize); ok {
		base.BPM = round(bpm, 1)
	}
	return base, nil
}

func (s *SpectralEstimator) maxSeconds() float64 {
	if s.MaxSeconds <= 0 {
		return DefaultMaxSeconds
	}
	return s.MaxSeconds
}

// readMonoPCM decodes a PCM WAV file to mono samples in [-1,1].
func readMonoPCM(path string, maxSeconds float64) ([]float64, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		return nil, 0, errors.New("not a PCM WAV file")
	}
	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, 0, err
	}
	if buf == nil || buf.Format == nil || buf.Format.NumChannels <= 0 || buf.Format.SampleRate <= 0 {
		return nil, 0, errors.New("wav buffer has no format")
	}

	channels := buf.Format.NumChannels
	bitDepth := buf.SourceBitDepth
	if bitDepth <= 0 {
		bitDepth = int(d.BitDepth)
	}
	scale := 1.0 / float64(int64(1)<<uint(bitDepth-1))

	frames := len(buf.Data) / channels
	if limit := int(maxSeconds * float64(buf.Format.SampleRate)); frames > limit {
		frames = limit
	}
	out := make([]float64, frames)
	for i := 0; i < frames; i++ {
		sum := 0.0
		for c := 0; c < channels; c++ {
			sum += float64(buf.Data[i*channels+c])
		}
		out[i] = sum / float64(channels) * scale
	}
	return out, buf.Format.SampleRate, nil
}

func Hamming(n int) []float64 {
	w := make([]float64, n)
	for i := 0; i < n; i++ {
		w[i] = 0.54 - 0.46*math.Cos(2*math.Pi*float64(i)/float64(n-1))
	}
	return w
}

func MagnitudeSpectrum(spectrum []complex128) []float64 {
	half := len(spectrum) / 2
	mag := make([]float64, half)
	for i := 0; i < half; i++ {
		mag[i] = cmplx.Abs(spectrum[i])
	}
	return mag
}

// STFT returns one magnitude spectrum per hop.
func STFT(samples []float64, windowSize, hopSize int, window []float64) ([][]float64, error) {
	if len(window) != windowSize {
		return nil, errors.New("window length must equal windowSize")
	}
	if len(samples) < windowSize {
		return nil, errors.New("input shorter than window size")
	}

	spectrogram := make([][]float64, 0, (len(samples)-windowSize)/hopSize+1)
	frame := make([]float64, windowSize)
	for start := 0; start+windowSize <= len(samples); start += hopSize {
		copy(frame, samples[start:start+windowSize])
		floats.Mul(frame, window)
		spectrogram = append(spectrogram, MagnitudeSpectrum(fft.FFTReal(frame)))
	}
	return spectrogram, nil
}

// rmsEnergy maps RMS level onto [0,1] across a 60 dB range below full scale.
func rmsEnergy(samples []float64) float64 {
	rms := math.Sqrt(floats.Dot(samples, samples) / float64(len(samples)))
	if rms <= 0 {
		return 0
	}
	return clamp01((20*math.Log10(rms) + 60) / 60)
}

// meanFlatness is the average spectral flatness (geometric / arithmetic mean)
// over non-silent frames: ~0 for pure tones, ~1 for white noise.
func meanFlatness(spec [][]float64) float64 {
	const eps = 1e-12
	total, n := 0.0, 0
	for _, mag := range spec {
		arith := floats.Sum(mag) / float64(len(mag))
		if arith < 1e-6 {
			continue
		}
		logSum := 0.0
		for _, m := range mag {
			logSum += math.Log(m + eps)
		}
		total += math.Exp(logSum/float64(len(mag))) / arith
		n++
	}
	if n == 0 {
		return 0
	}
	return total / float64(n)
}

// tempoFromFlux autocorrelates the half-wave rectified spectral flux and picks
// the lag in the 60-200 BPM window, weighted towards 120 BPM to avoid octave errors.
func tempoFromFlux(spec [][]float64, frameRate float64) (float64, bool) {
	if len(spec) < 2 {
		return 0, false
	}
	flux := make([]float64, len(spec)-1)
	for i := 1; i < len(spec); i++ {
		sum := 0.0
		for k := range spec[i] {
			if d := spec[i][k] - spec[i-1][k]; d > 0 {
				sum += d
			}
		}
		flux[i-1] = sum
	}
	mean := floats.Sum(flux) / float64(len(flux))
	floats.AddConst(-mean, flux)
	if floats.Norm(flux, 2) == 0 {
		return 0, false
	}

	minLag := int(math.Ceil(frameRate * 60 / maxTempo))
	maxLag := int(math.Floor(frameRate * 60 / minTempo))
	if minLag < 1 {
		minLag = 1
	}
	if maxLag >= len(flux) {
		maxLag = len(flux) - 1
	}

	bestLag, bestScore := 0, 0.0
	for lag := minLag; lag <= maxLag; lag++ {
		ac := floats.Dot(flux[:len(flux)-lag], flux[lag:])
		bpm := 60 * frameRate / float64(lag)
		prior := math.Exp(-0.5 * math.Pow(math.Log2(bpm/120), 2))
		if score := ac * prior; score > bestScore {
			bestScore, bestLag = score, lag
		}
	}
	if bestLag == 0 {
		return 0, false
	}
	return 60 * frameRate / float64(bestLag), true
}
