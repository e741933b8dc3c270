package audio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// DefaultProbeTimeout bounds a single probe when the caller's context has no deadline.
const DefaultProbeTimeout = 10 * time.Second

// ErrToolUnavailable means the probing tool is missing, exited non-zero or timed out.
// Callers recover from it with default features.
var ErrToolUnavailable = errors.New("audio probe unavailable")

// MetadataParseError means the probing tool ran but its output was not the expected JSON.
type MetadataParseError struct {
	Tool   string
	Reason string
	Err    error
}

func (e *MetadataParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s returned unparseable metadata: %s: %v", e.Tool, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s returned unparseable metadata: %s", e.Tool, e.Reason)
}

func (e *MetadataParseError) Unwrap() error { return e.Err }

type Metadata struct {
	Filename    string
	Title       string
	Artist      string
	Album       string
	Encoder     string
	DurationSec float64
	SampleRate  int
	Channels    int
	BitDepth    int
	Format      string
}

// Prober reads container and stream metadata for a file on disk.
type Prober interface {
	Probe(ctx context.Context, path string) (*Metadata, error)
}

type ffprobeOutput struct {
	Format struct {
		Filename string            `json:"filename"`
		Duration string            `json:"duration"`
		Format   string            `json:"format_name"`
		Tags     map[string]string `json:"tags"`
	} `json:"format"`
	Streams []ffprobeStream `json:"streams"`
}

type ffprobeStream struct {
	CodecType     string `json:"codec_type"`
	SampleRate    string `json:"sample_rate"`
	Channels      int    `json:"channels"`
	BitsPerSample int    `json:"bits_per_sample"`
	Duration      string `json:"duration"`
}

func (p *ffprobeOutput) firstAudioStream() *ffprobeStream {
	for i := range p.Streams {
		if p.Streams[i].CodecType == "audio" {
			return &p.Streams[i]
		}
	}
	return nil
}

// FFProbe runs the ffprobe binary and decodes its JSON report.
type FFProbe struct {
	Binary  string        // defaults to "ffprobe" on PATH
	Timeout time.Duration // defaults to DefaultProbeTimeout
}

func NewFFProbe(binary string, timeout time.Duration) *FFProbe {
	return &FFProbe{Binary: binary, Timeout: timeout}
}

func (p *FFProbe) binary() string {
	if p.Binary == "" {
		return "ffprobe"
	}
	return p.Binary
}

func (p *FFProbe) Probe(ctx context.Context, path string) (*Metadata, error) {
	bin, err := exec.LookPath(p.binary())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrToolUnavailable, err)
	}

	probeCtx := ctx
	if _, ok := ctx.Deadline(); !ok {
		timeout := p.Timeout
		if timeout <= 0 {
			timeout = DefaultProbeTimeout
		}
		var cancel context.CancelFunc
		probeCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(
		probeCtx,
		bin,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)

	out, err := cmd.Output()
	if err != nil {
		// The caller went away: not a tool problem.
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if probeCtx.Err() != nil {
			return nil, fmt.Errorf("%w: timed out: %v", ErrToolUnavailable, probeCtx.Err())
		}
		return nil, fmt.Errorf("%w: %v", ErrToolUnavailable, err)
	}

	return parseFFProbeOutput(out, path)
}

func parseFFProbeOutput(out []byte, path string) (*Metadata, error) {
	var probe ffprobeOutput
	if err := json.Unmarshal(out, &probe); err != nil {
		return nil, &MetadataParseError{Tool: "ffprobe", Reason: "invalid json", Err: err}
	}

	audioStream := probe.firstAudioStream()
	if audioStream == nil {
		return nil, &MetadataParseError{Tool: "ffprobe", Reason: "no audio stream found"}
	}

	rawDuration := strings.TrimSpace(probe.Format.Duration)
	if rawDuration == "" || rawDuration == "N/A" {
		rawDuration = strings.TrimSpace(audioStream.Duration)
	}
	duration, err := strconv.ParseFloat(rawDuration, 64)
	if err != nil {
		return nil, &MetadataParseError{Tool: "ffprobe", Reason: fmt.Sprintf("duration %q", rawDuration), Err: err}
	}
	if !(duration > 0) || math.IsInf(duration, 0) {
		return nil, &MetadataParseError{Tool: "ffprobe", Reason: fmt.Sprintf("invalid duration %v", duration)}
	}
	sampleRate, _ := strconv.Atoi(audioStream.SampleRate)

	meta := &Metadata{
		Filename:    filepath.Base(path),
		DurationSec: duration,
		SampleRate:  sampleRate,
		Channels:    audioStream.Channels,
		BitDepth:    audioStream.BitsPerSample,
		Format:      probe.Format.Format,
	}

	if probe.Format.Tags != nil {
		meta.Title = probe.Format.Tags["title"]
		meta.Artist = probe.Format.Tags["artist"]
		meta.Album = probe.Format.Tags["album"]
		meta.Encoder = probe.Format.Tags["encoder"]
	}

	return meta, nil
}
