package soundrights

import (
	"context"

	"github.com/soundrights/soundrights/pkg/models"
)

type Service interface {
	UploadTrack(ctx context.Context, req UploadRequest) (*UploadResult, error)
	AnalyzeAudio(ctx context.Context, data []byte, filename string) (*models.AudioFeatures, error)
	FindSimilar(ctx context.Context, ownerID string, features models.AudioFeatures) ([]models.SimilarityMatch, error)
	CompareTracks(ctx context.Context, idA, idB string) (*Comparison, error)
	GetTrack(ctx context.Context, id string) (*models.Track, error)
	ListTracks(ctx context.Context, ownerID string) ([]models.Track, error)
	DeleteTrack(ctx context.Context, id string) error
	Stats(ctx context.Context) (*Stats, error)
	Close() error
}

// Store is implemented by storage.SQLiteStore and storage.MongoStore.
type Store interface {
	SaveTrack(ctx context.Context, t *models.Track) error
	GetTrack(ctx context.Context, id string) (*models.Track, error)
	ListTracks(ctx context.Context, ownerID string) ([]models.Track, error)
	DeleteTrack(ctx context.Context, id string) error
	CountTracks(ctx context.Context) (int64, error)
	Driver() string
	Close() error
}

type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	Debugf(format string, args ...any)
}
