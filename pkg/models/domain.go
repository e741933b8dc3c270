package models

import (
	"fmt"
	"math"
	"time"
)

// PitchClasses lists the twelve pitch classes a Key may start with.
var PitchClasses = []string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// Modes lists the modes a Key may end with.
var Modes = []string{"major", "minor"}

// FingerprintLength is the number of hex characters in a content fingerprint.
const FingerprintLength = 32

// AudioFeatures is the derived description of one audio asset.
type AudioFeatures struct {
	Duration         float64 `json:"duration" bson:"duration" yaml:"duration"`                           // Seconds
	BPM              float64 `json:"bpm" bson:"bpm" yaml:"bpm"`                                          // Estimated tempo
	Key              string  `json:"key" bson:"key" yaml:"key"`                                          // e.g. "C major"
	Energy           float64 `json:"energy" bson:"energy" yaml:"energy"`                                 // [0,1]
	Danceability     float64 `json:"danceability" bson:"danceability" yaml:"danceability"`               // [0,1]
	Valence          float64 `json:"valence" bson:"valence" yaml:"valence"`                              // [0,1]
	Acousticness     float64 `json:"acousticness" bson:"acousticness" yaml:"acousticness"`               // [0,1]
	Instrumentalness float64 `json:"instrumentalness" bson:"instrumentalness" yaml:"instrumentalness"`   // [0,1]
	Fingerprint      string  `json:"fingerprint" bson:"fingerprint" yaml:"fingerprint"`                  // 32 hex chars
}

// Validate reports the first field that falls outside its documented range.
func (f AudioFeatures) Validate() error {
	if !(f.Duration > 0) || math.IsInf(f.Duration, 0) {
		return fmt.Errorf("duration must be positive, got %v", f.Duration)
	}
	if !(f.BPM > 0) || math.IsInf(f.BPM, 0) {
		return fmt.Errorf("bpm must be positive, got %v", f.BPM)
	}
	unit := []struct {
		name  string
		value float64
	}{
		{"energy", f.Energy},
		{"danceability", f.Danceability},
		{"valence", f.Valence},
		{"acousticness", f.Acousticness},
		{"instrumentalness", f.Instrumentalness},
	}
	for _, u := range unit {
		if !(u.value >= 0 && u.value <= 1) {
			return fmt.Errorf("%s must be within [0,1], got %v", u.name, u.value)
		}
	}
	if !ValidKey(f.Key) {
		return fmt.Errorf("invalid key %q", f.Key)
	}
	if len(f.Fingerprint) != FingerprintLength {
		return fmt.Errorf("fingerprint must be %d hex chars, got %d", FingerprintLength, len(f.Fingerprint))
	}
	for _, r := range f.Fingerprint {
		if !(r >= '0' && r <= '9' || r >= 'a' && r <= 'f') {
			return fmt.Errorf("fingerprint contains non-hex character %q", r)
		}
	}
	return nil
}

// ValidKey reports whether key is "<pitch class> <mode>".
func ValidKey(key string) bool {
	for _, pc := range PitchClasses {
		for _, m := range Modes {
			if key == pc+" "+m {
				return true
			}
		}
	}
	return false
}

// TrackStatus describes the analysis state of a stored track.
type TrackStatus string

const (
	StatusAnalyzed       TrackStatus = "analyzed"
	StatusAnalysisFailed TrackStatus = "analysis_failed"
)

// Track is a previously ingested audio asset owned by one user.
type Track struct {
	ID        string         `json:"id" bson:"_id" yaml:"id"`
	OwnerID   string         `json:"owner_id" bson:"owner_id" yaml:"owner_id"`
	Title     string         `json:"title" bson:"title" yaml:"title"`
	Artist    string         `json:"artist" bson:"artist" yaml:"artist"`
	Filename  string         `json:"filename" bson:"filename" yaml:"filename"`
	Status    TrackStatus    `json:"status" bson:"status" yaml:"status"`
	Features  *AudioFeatures `json:"features,omitempty" bson:"features,omitempty" yaml:"features,omitempty"`
	CreatedAt time.Time      `json:"created_at" bson:"created_at" yaml:"created_at"`
}

// MatchType is the similarity tier of a reported match.
type MatchType string

const (
	MatchExact   MatchType = "exact"
	MatchPartial MatchType = "partial"
	MatchSimilar MatchType = "similar"
)

// SimilarityMatch is the result of comparing a new asset against one stored track.
type SimilarityMatch struct {
	TrackID    string    `json:"track_id" yaml:"track_id"`
	Title      string    `json:"title" yaml:"title"`
	Artist     string    `json:"artist" yaml:"artist"`
	Similarity float64   `json:"similarity" yaml:"similarity"`
	MatchType  MatchType `json:"match_type" yaml:"match_type"`
}
