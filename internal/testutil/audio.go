// Package testutil builds audio fixtures and fake probe binaries for tests.
package testutil

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// SineWAV renders a 16-bit mono PCM WAV of a sine tone and returns its bytes.
func SineWAV(tb testing.TB, sampleRate int, seconds, freq float64) []byte {
	tb.Helper()
	n := int(float64(sampleRate) * seconds)
	data := make([]int, n)
	for i := range data {
		data[i] = int(0.5 * 32767 * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate)))
	}
	return encodeWAV(tb, sampleRate, data)
}

// ClickTrackWAV renders short noise bursts at the given tempo over silence.
func ClickTrackWAV(tb testing.TB, sampleRate int, seconds, bpm float64) []byte {
	tb.Helper()
	n := int(float64(sampleRate) * seconds)
	data := make([]int, n)
	period := int(float64(sampleRate) * 60 / bpm)
	burst := sampleRate / 50
	seed := uint32(2463534242)
	for start := 0; start < n; start += period {
		for i := 0; i < burst && start+i < n; i++ {
			seed ^= seed << 13
			seed ^= seed >> 17
			seed ^= seed << 5
			data[start+i] = int(seed%60000) - 30000
		}
	}
	return encodeWAV(tb, sampleRate, data)
}

func encodeWAV(tb testing.TB, sampleRate int, data []int) []byte {
	tb.Helper()
	path := filepath.Join(tb.TempDir(), "fixture.wav")
	f, err := os.Create(path)
	if err != nil {
		tb.Fatalf("create wav fixture: %v", err)
	}
	enc := wav.NewEncoder(f, sampleRate, 16, 1, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		tb.Fatalf("encode wav fixture: %v", err)
	}
	if err := enc.Close(); err != nil {
		tb.Fatalf("close wav encoder: %v", err)
	}
	if err := f.Close(); err != nil {
		tb.Fatalf("close wav fixture: %v", err)
	}
	out, err := os.ReadFile(path)
	if err != nil {
		tb.Fatalf("read wav fixture: %v", err)
	}
	return out
}

// FakeProbe writes an executable shell script standing in for ffprobe and
// returns its path. Skips the test on Windows.
func FakeProbe(tb testing.TB, body string) string {
	tb.Helper()
	if runtime.GOOS == "windows" {
		tb.Skip("fake probe scripts need a POSIX shell")
	}
	path := filepath.Join(tb.TempDir(), "fake-ffprobe")
	script := "#!/bin/sh\n" + body + "\n"
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		tb.Fatalf("write fake probe: %v", err)
	}
	return path
}

// FFProbeJSON is a minimal ffprobe report with one audio stream.
func FFProbeJSON(duration float64) string {
	return fmt.Sprintf(`{"streams":[{"codec_type":"audio","sample_rate":"44100","channels":2,"bits_per_sample":16}],`+
		`"format":{"filename":"x","duration":"%.3f","format_name":"wav","tags":{"title":"Probe Title","artist":"Probe Artist"}}}`, duration)
}

// EchoProbe returns a fake probe that prints out verbatim.
func EchoProbe(tb testing.TB, out string) string {
	tb.Helper()
	return FakeProbe(tb, "cat <<'JSON'\n"+out+"\nJSON")
}
