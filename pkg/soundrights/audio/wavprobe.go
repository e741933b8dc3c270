package audio

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/go-audio/wav"
)

// WAVProber reads PCM WAV headers in-process. Anything that is not a RIFF/WAVE
// file is reported as ErrToolUnavailable so callers degrade the same way they do
// when ffprobe is missing.
type WAVProber struct{}

func (WAVProber) Probe(ctx context.Context, path string) (*Metadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrToolUnavailable, err)
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		return nil, fmt.Errorf("%w: %s is not a PCM WAV file", ErrToolUnavailable, filepath.Base(path))
	}

	if err := d.FwdToPCM(); err != nil {
		return nil, &MetadataParseError{Tool: "wav", Reason: "data chunk", Err: err}
	}
	bytesPerSec := float64(d.SampleRate) * float64(d.NumChans) * float64(d.BitDepth) / 8
	if bytesPerSec <= 0 {
		return nil, &MetadataParseError{Tool: "wav", Reason: "zero byte rate in fmt chunk"}
	}
	if d.PCMLen() <= 0 {
		return nil, &MetadataParseError{Tool: "wav", Reason: "empty data chunk"}
	}

	duration := float64(d.PCMLen()) / bytesPerSec
	if !(duration > 0) || math.IsInf(duration, 0) {
		return nil, &MetadataParseError{Tool: "wav", Reason: fmt.Sprintf("invalid duration %v", duration)}
	}

	meta := &Metadata{
		Filename:    filepath.Base(path),
		DurationSec: duration,
		SampleRate:  int(d.SampleRate),
		Channels:    int(d.NumChans),
		BitDepth:    int(d.BitDepth),
		Format:      "wav",
	}

	// INFO chunks may sit after the data chunk; read them with a fresh decoder.
	if _, err := f.Seek(0, io.SeekStart); err == nil {
		md := wav.NewDecoder(f)
		md.ReadMetadata()
		if md.Err() == nil && md.Metadata != nil {
			meta.Title = md.Metadata.Title
			meta.Artist = md.Metadata.Artist
			meta.Album = md.Metadata.Product
		}
	}

	return meta, nil
}
