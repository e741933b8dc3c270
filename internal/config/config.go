// Package config loads SoundRights settings from defaults, an optional YAML
// file, SOUNDRIGHTS_* environment variables and bound command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/soundrights/soundrights/pkg/logger"
	"github.com/soundrights/soundrights/pkg/soundrights/similarity"
	"github.com/spf13/viper"
)

const (
	EnvPrefix  = "SOUNDRIGHTS"
	ConfigName = "soundrights"
)

// Config represents the application configuration
type Config struct {
	LogLevel string `mapstructure:"log_level"`
	TempDir  string `mapstructure:"temp_dir"`

	Server   ServerConfig   `mapstructure:"server"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Analysis AnalysisConfig `mapstructure:"analysis"`
	Matching MatchingConfig `mapstructure:"matching"`
}

type ServerConfig struct {
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	MaxUploadMB    int64    `mapstructure:"max_upload_mb"`
}

type StorageConfig struct {
	Driver        string `mapstructure:"driver"`
	SQLitePath    string `mapstructure:"sqlite_path"`
	MongoURI      string `mapstructure:"mongo_uri"`
	MongoDatabase string `mapstructure:"mongo_database"`
}

type AnalysisConfig struct {
	FFProbePath       string        `mapstructure:"ffprobe_path"`
	ProbeTimeout      time.Duration `mapstructure:"probe_timeout"`
	Estimator         string        `mapstructure:"estimator"`
	StrictFingerprint bool          `mapstructure:"strict_fingerprint"`
}

type MatchingConfig struct {
	MinSimilarity float64            `mapstructure:"min_similarity"`
	Limit         int                `mapstructure:"limit"`
	Weights       similarity.Weights `mapstructure:"weights"`
}

// New returns a viper instance with defaults, env binding and the config file
// search path set up. configFile, when non-empty, replaces the search.
func New(configFile string) *viper.Viper {
	v := viper.New()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", ConfigName))
		}
		v.SetConfigName(ConfigName)
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	SetDefaults(v)
	return v
}

// SetDefaults sets default configuration values
func SetDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("temp_dir", os.TempDir())

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.max_upload_mb", 50)

	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("storage.sqlite_path", "soundrights.sqlite3")
	v.SetDefault("storage.mongo_uri", "")
	v.SetDefault("storage.mongo_database", "soundrights")

	v.SetDefault("analysis.ffprobe_path", "ffprobe")
	v.SetDefault("analysis.probe_timeout", "10s")
	v.SetDefault("analysis.estimator", "heuristic")
	v.SetDefault("analysis.strict_fingerprint", false)

	v.SetDefault("matching.min_similarity", 0.70)
	v.SetDefault("matching.limit", 10)
	w := similarity.DefaultWeights()
	v.SetDefault("matching.weights.bpm", w.BPM)
	v.SetDefault("matching.weights.energy", w.Energy)
	v.SetDefault("matching.weights.danceability", w.Danceability)
	v.SetDefault("matching.weights.valence", w.Valence)
	v.SetDefault("matching.weights.duration", w.Duration)
}

// Load reads the config file if one is found, then unmarshals and validates.
// A missing file is not an error; a malformed one is.
func Load(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config %s: %w", v.ConfigFileUsed(), err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be within 1-65535, got %d", c.Server.Port)
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("server.max_upload_mb must be positive")
	}

	switch c.Storage.Driver {
	case "sqlite":
		if c.Storage.SQLitePath == "" {
			return fmt.Errorf("storage.sqlite_path is required for the sqlite driver")
		}
	case "mongo":
		if c.Storage.MongoURI == "" {
			return fmt.Errorf("storage.mongo_uri is required for the mongo driver")
		}
	default:
		return fmt.Errorf("unknown storage.driver %q (want sqlite or mongo)", c.Storage.Driver)
	}

	if c.Analysis.ProbeTimeout <= 0 {
		return fmt.Errorf("analysis.probe_timeout must be positive")
	}
	switch c.Analysis.Estimator {
	case "heuristic", "spectral":
	default:
		return fmt.Errorf("unknown analysis.estimator %q", c.Analysis.Estimator)
	}

	if c.Matching.MinSimilarity < 0.70 || c.Matching.MinSimilarity >= 1 {
		return fmt.Errorf("matching.min_similarity must be within [0.70, 1), got %v", c.Matching.MinSimilarity)
	}
	if c.Matching.Limit <= 0 {
		return fmt.Errorf("matching.limit must be positive")
	}
	w := c.Matching.Weights
	for name, v := range map[string]float64{
		"bpm": w.BPM, "energy": w.Energy, "danceability": w.Danceability, "valence": w.Valence, "duration": w.Duration,
	} {
		if !(v >= 0) {
			return fmt.Errorf("matching.weights.%s must not be negative, got %v", name, v)
		}
	}
	if w.BPM+w.Energy+w.Danceability+w.Valence+w.Duration <= 0 {
		return fmt.Errorf("matching.weights must not all be zero")
	}
	return nil
}

func (c *Config) Level() logger.LogLevel {
	lvl, _ := logger.ParseLevel(c.LogLevel)
	return lvl
}

// MaxUploadBytes is the multipart file size limit in bytes.
func (c ServerConfig) MaxUploadBytes() int64 {
	return c.MaxUploadMB << 20
}
