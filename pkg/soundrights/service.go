package soundrights

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/soundrights/soundrights/pkg/logger"
	"github.com/soundrights/soundrights/pkg/models"
	"github.com/soundrights/soundrights/pkg/soundrights/analysis"
	"github.com/soundrights/soundrights/pkg/soundrights/audio"
	"github.com/soundrights/soundrights/pkg/soundrights/similarity"
	"github.com/soundrights/soundrights/pkg/soundrights/storage"
	"github.com/soundrights/soundrights/pkg/utils"
)

// soundService is the default implementation of the Service interface.
type soundService struct {
	store     Store
	extractor *analysis.Extractor
	matcher   *similarity.Matcher
	log       Logger
	config    *Config
}

func NewService(opts ...Option) (Service, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.Logger == nil {
		cfg.Logger = logger.GetLogger().WithPrefix("soundrights")
	}

	store := cfg.Storage
	if store == nil {
		sqlite, err := storage.NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to create storage: %w", err)
		}
		store = sqlite
	}

	extractorOpts := []analysis.ExtractorOption{
		analysis.WithTempDir(cfg.TempDir),
		analysis.WithLogger(cfg.Logger),
		analysis.WithFingerprinter(analysis.NewFingerprinter(cfg.StrictFingerprint, cfg.Logger)),
	}
	if cfg.Prober != nil {
		extractorOpts = append(extractorOpts, analysis.WithProber(cfg.Prober))
	}
	if cfg.Estimator != nil {
		extractorOpts = append(extractorOpts, analysis.WithEstimator(cfg.Estimator))
	}

	return &soundService{
		store:     store,
		extractor: analysis.NewExtractor(extractorOpts...),
		matcher: &similarity.Matcher{
			Scorer:        &similarity.Scorer{Weights: cfg.Weights},
			MinSimilarity: cfg.MinSimilarity,
			Limit:         cfg.MatchLimit,
		},
		log:    cfg.Logger,
		config: cfg,
	}, nil
}

// UploadTrack analyzes an upload, matches it against the owner's existing
// tracks and stores it. Analysis failures are absorbed: the track is stored
// as analysis_failed with no matches. Storage failures are returned.
func (s *soundService) UploadTrack(ctx context.Context, req UploadRequest) (*UploadResult, error) {
	if strings.TrimSpace(req.OwnerID) == "" {
		return nil, ErrMissingOwner
	}
	if len(req.Data) == 0 {
		return nil, ErrEmptyUpload
	}

	// 1. Reject content that is positively something other than audio
	kind, err := audio.Sniff(req.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedMedia, err)
	}
	s.log.Infof("Processing upload %q (%d bytes, sniffed=%q) for owner %s", req.Filename, len(req.Data), kind, req.OwnerID)

	// 2. Fill in title and artist
	title, artist := s.resolveLabels(req)

	track := &models.Track{
		ID:       utils.GenerateUUID(),
		OwnerID:  req.OwnerID,
		Title:    title,
		Artist:   artist,
		Filename: utils.SanitizeFilename(req.Filename),
	}

	// 3. Extract features
	features, err := s.extractor.Analyze(ctx, req.Data, req.Filename)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		s.log.Warnf("Analysis failed for %q, storing without features: %v", req.Filename, err)
		track.Status = models.StatusAnalysisFailed
		if err := s.store.SaveTrack(ctx, track); err != nil {
			return nil, fmt.Errorf("failed to store track: %w", err)
		}
		return &UploadResult{Track: track, Matches: []models.SimilarityMatch{}}, nil
	}
	track.Features = features
	track.Status = models.StatusAnalyzed

	// 4. Match against the owner's corpus before the new track joins it
	corpus, err := s.store.ListTracks(ctx, req.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load corpus: %w", err)
	}
	matches := s.matcher.FindSimilar(*features, corpus)
	s.log.Infof("Upload %q matched %d of %d stored tracks", req.Filename, len(matches), len(corpus))

	// 5. Persist
	if err := s.store.SaveTrack(ctx, track); err != nil {
		return nil, fmt.Errorf("failed to store track: %w", err)
	}

	return &UploadResult{
		Track:                   track,
		Matches:                 matches,
		EligibleForRegistration: !similarity.HasExact(matches),
	}, nil
}

func (s *soundService) resolveLabels(req UploadRequest) (string, string) {
	title := strings.TrimSpace(req.Title)
	artist := strings.TrimSpace(req.Artist)
	if title != "" && artist != "" {
		return title, artist
	}

	if tags, err := audio.ReadTags(req.Data); err == nil {
		if title == "" {
			title = strings.TrimSpace(tags.Title)
		}
		if artist == "" {
			artist = strings.TrimSpace(tags.Artist)
		}
	} else {
		s.log.Debugf("No embedded tags in %q: %v", req.Filename, err)
	}

	if title == "" {
		title = utils.FileStem(req.Filename)
	}
	if artist == "" {
		artist = UnknownArtist
	}
	return title, artist
}

func (s *soundService) AnalyzeAudio(ctx context.Context, data []byte, filename string) (*models.AudioFeatures, error) {
	if len(data) == 0 {
		return nil, ErrEmptyUpload
	}
	return s.extractor.Analyze(ctx, data, filename)
}

func (s *soundService) FindSimilar(ctx context.Context, ownerID string, features models.AudioFeatures) ([]models.SimilarityMatch, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, ErrMissingOwner
	}
	corpus, err := s.store.ListTracks(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load corpus: %w", err)
	}
	return s.matcher.FindSimilar(features, corpus), nil
}

func (s *soundService) CompareTracks(ctx context.Context, idA, idB string) (*Comparison, error) {
	a, err := s.store.GetTrack(ctx, idA)
	if err != nil {
		return nil, err
	}
	b, err := s.store.GetTrack(ctx, idB)
	if err != nil {
		return nil, err
	}
	if a.Features == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotAnalyzed, idA)
	}
	if b.Features == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotAnalyzed, idB)
	}

	sim := s.matcher.Scorer.Score(*a.Features, *b.Features)
	cmp := &Comparison{TrackA: a.ID, TrackB: b.ID, Similarity: sim}
	if matchType, ok := similarity.Classify(sim); ok {
		cmp.MatchType = matchType
	}
	return cmp, nil
}

func (s *soundService) GetTrack(ctx context.Context, id string) (*models.Track, error) {
	return s.store.GetTrack(ctx, id)
}

func (s *soundService) ListTracks(ctx context.Context, ownerID string) ([]models.Track, error) {
	return s.store.ListTracks(ctx, ownerID)
}

func (s *soundService) DeleteTrack(ctx context.Context, id string) error {
	if err := s.store.DeleteTrack(ctx, id); err != nil {
		return err
	}
	s.log.Infof("Deleted track %s", id)
	return nil
}

func (s *soundService) Stats(ctx context.Context) (*Stats, error) {
	n, err := s.store.CountTracks(ctx)
	if err != nil {
		return nil, err
	}
	return &Stats{TrackCount: n, Driver: s.store.Driver()}, nil
}

func (s *soundService) Close() error {
	if s.store == nil {
		return nil
	}
	return s.store.Close()
}

// IsNotFound reports whether err means the requested track does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, storage.ErrTrackNotFound)
}
