package audio

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/dhowden/tag"
	"github.com/h2non/filetype"
)

// ErrNotAudio is returned by Sniff when the payload is positively identified as
// something other than an audio or audio-bearing video container.
var ErrNotAudio = errors.New("payload is not audio")

// Tags holds the embedded title/artist found in an upload, if any.
type Tags struct {
	Title  string
	Artist string
	Album  string
}

// ReadTags extracts ID3/MP4/FLAC/OGG tags from an in-memory payload.
func ReadTags(data []byte) (*Tags, error) {
	m, err := tag.ReadFrom(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("reading tags: %w", err)
	}
	return &Tags{
		Title:  strings.TrimSpace(m.Title()),
		Artist: strings.TrimSpace(m.Artist()),
		Album:  strings.TrimSpace(m.Album()),
	}, nil
}

// Sniff inspects the leading bytes of data. Unknown formats pass, since the
// probe decides what it can read; only recognised non-audio kinds are rejected.
// The returned string is the detected extension, or "" when unknown.
func Sniff(data []byte) (string, error) {
	head := data
	if len(head) > 8192 {
		head = head[:8192]
	}
	kind, err := filetype.Match(head)
	if err != nil || kind == filetype.Unknown {
		return "", nil
	}
	if filetype.IsAudio(head) || filetype.IsVideo(head) {
		return kind.Extension, nil
	}
	return kind.Extension, fmt.Errorf("%w: detected %s (%s)", ErrNotAudio, kind.Extension, kind.MIME.Value)
}
