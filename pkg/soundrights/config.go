package soundrights

import (
	"os"

	"github.com/soundrights/soundrights/pkg/soundrights/analysis"
	"github.com/soundrights/soundrights/pkg/soundrights/audio"
	"github.com/soundrights/soundrights/pkg/soundrights/similarity"
	"github.com/soundrights/soundrights/pkg/soundrights/storage"
)

type Config struct {
	SQLitePath        string
	TempDir           string
	Logger            Logger
	Storage           Store
	Prober            audio.Prober
	Estimator         analysis.Estimator
	Weights           similarity.Weights
	MatchLimit        int
	MinSimilarity     float64
	StrictFingerprint bool
}

type Option func(*Config)

func WithSQLitePath(path string) Option {
	return func(c *Config) {
		c.SQLitePath = path
	}
}

func WithTempDir(dir string) Option {
	return func(c *Config) {
		c.TempDir = dir
	}
}

func WithLogger(log Logger) Option {
	return func(c *Config) {
		c.Logger = log
	}
}

// WithStorage replaces the default SQLite store. The service closes it on Close.
func WithStorage(store Store) Option {
	return func(c *Config) {
		c.Storage = store
	}
}

func WithProber(p audio.Prober) Option {
	return func(c *Config) {
		c.Prober = p
	}
}

func WithEstimator(e analysis.Estimator) Option {
	return func(c *Config) {
		c.Estimator = e
	}
}

func WithWeights(w similarity.Weights) Option {
	return func(c *Config) {
		c.Weights = w
	}
}

func WithMatchLimit(limit int) Option {
	return func(c *Config) {
		c.MatchLimit = limit
	}
}

func WithMinSimilarity(min float64) Option {
	return func(c *Config) {
		c.MinSimilarity = min
	}
}

func WithStrictFingerprint(strict bool) Option {
	return func(c *Config) {
		c.StrictFingerprint = strict
	}
}

func defaultConfig() *Config {
	return &Config{
		SQLitePath:    storage.DefaultDBFile,
		TempDir:       os.TempDir(),
		Weights:       similarity.DefaultWeights(),
		MatchLimit:    similarity.DefaultLimit,
		MinSimilarity: similarity.DefaultMinSimilarity,
	}
}
