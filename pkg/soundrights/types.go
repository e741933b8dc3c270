package soundrights

import (
	"errors"

	"github.com/soundrights/soundrights/pkg/models"
)

var (
	ErrEmptyUpload      = errors.New("upload is empty")
	ErrUnsupportedMedia = errors.New("upload is not an audio file")
	ErrMissingOwner     = errors.New("owner id is required")
	ErrNotAnalyzed      = errors.New("track has no features")
)

const UnknownArtist = "Unknown Artist"

// UploadRequest is one asset submitted for registration. Title and Artist
// may be empty; they are then taken from embedded tags or the filename.
type UploadRequest struct {
	OwnerID  string
	Title    string
	Artist   string
	Filename string
	Data     []byte
}

// UploadResult is the stored track plus what it matched in the owner's corpus.
// Matches are computed before the new track is persisted, so it never matches itself.
type UploadResult struct {
	Track                   *models.Track            `json:"track" yaml:"track"`
	Matches                 []models.SimilarityMatch `json:"matches" yaml:"matches"`
	EligibleForRegistration bool                     `json:"eligible_for_registration" yaml:"eligible_for_registration"`
}

// Comparison is the pairwise score between two stored tracks. MatchType is
// empty when the score falls below the reporting threshold.
type Comparison struct {
	TrackA     string           `json:"track_a" yaml:"track_a"`
	TrackB     string           `json:"track_b" yaml:"track_b"`
	Similarity float64          `json:"similarity" yaml:"similarity"`
	MatchType  models.MatchType `json:"match_type,omitempty" yaml:"match_type,omitempty"`
}

type Stats struct {
	TrackCount int64  `json:"track_count" yaml:"track_count"`
	Driver     string `json:"storage_driver" yaml:"storage_driver"`
}
