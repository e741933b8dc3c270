// Package service assembles a soundrights.Service from loaded configuration.
package service

import (
	"context"
	"fmt"

	"github.com/soundrights/soundrights/internal/config"
	"github.com/soundrights/soundrights/pkg/logger"
	"github.com/soundrights/soundrights/pkg/soundrights"
	"github.com/soundrights/soundrights/pkg/soundrights/analysis"
	"github.com/soundrights/soundrights/pkg/soundrights/audio"
	"github.com/soundrights/soundrights/pkg/soundrights/storage"
)

// OpenStore connects the backend named by cfg.Storage.Driver.
func OpenStore(ctx context.Context, cfg *config.Config) (soundrights.Store, error) {
	switch cfg.Storage.Driver {
	case storage.DriverMongo:
		return storage.NewMongoStore(ctx, cfg.Storage.MongoURI, cfg.Storage.MongoDatabase)
	case storage.DriverSQLite, "":
		return storage.NewSQLiteStore(cfg.Storage.SQLitePath)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

// Options translates cfg into service options. store may be nil when the
// caller wants the default SQLite store at cfg.Storage.SQLitePath.
func Options(cfg *config.Config, store soundrights.Store, log *logger.Logger) ([]soundrights.Option, error) {
	estimator, err := analysis.NewEstimator(cfg.Analysis.Estimator)
	if err != nil {
		return nil, err
	}

	opts := []soundrights.Option{
		soundrights.WithTempDir(cfg.TempDir),
		soundrights.WithSQLitePath(cfg.Storage.SQLitePath),
		soundrights.WithProber(audio.NewFFProbe(cfg.Analysis.FFProbePath, cfg.Analysis.ProbeTimeout)),
		soundrights.WithEstimator(estimator),
		soundrights.WithStrictFingerprint(cfg.Analysis.StrictFingerprint),
		soundrights.WithMinSimilarity(cfg.Matching.MinSimilarity),
		soundrights.WithMatchLimit(cfg.Matching.Limit),
		soundrights.WithWeights(cfg.Matching.Weights),
	}
	if store != nil {
		opts = append(opts, soundrights.WithStorage(store))
	}
	if log != nil {
		opts = append(opts, soundrights.WithLogger(log))
	}
	return opts, nil
}

// New opens storage and builds the service. The returned service owns the store.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (soundrights.Service, error) {
	if log == nil {
		log = logger.GetLogger()
	}
	log.SetLevel(cfg.Level())

	store, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s storage: %w", cfg.Storage.Driver, err)
	}

	opts, err := Options(cfg, store, log.WithPrefix("soundrights"))
	if err != nil {
		store.Close()
		return nil, err
	}

	svc, err := soundrights.NewService(opts...)
	if err != nil {
		store.Close()
		return nil, err
	}
	log.Infof("Service ready (storage=%s, estimator=%s, min_similarity=%.2f)",
		store.Driver(), cfg.Analysis.Estimator, cfg.Matching.MinSimilarity)
	return svc, nil
}
