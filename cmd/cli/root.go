package main

import (
	"context"
	"fmt"
	"os"

	"github.com/soundrights/soundrights/internal/config"
	"github.com/soundrights/soundrights/internal/service"
	"github.com/soundrights/soundrights/pkg/logger"
	"github.com/soundrights/soundrights/pkg/soundrights"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var (
	configFile   string
	logLevel     string
	outputFormat string
	dbPath       string
	tempDir      string

	cfg *config.Config
)

// flagKeys maps persistent flags onto config keys.
var flagKeys = map[string]string{
	"log-level": "log_level",
	"db":        "storage.sqlite_path",
	"temp":      "temp_dir",
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "soundrights",
	Short: "Audio similarity and duplicate detection for rights registration",
	Long: `SoundRights analyzes audio uploads, fingerprints them and compares them
against an owner's existing catalogue to flag exact duplicates and close
variants before a track is registered.

Configuration is read from soundrights.yaml (., ./configs or
$HOME/.config/soundrights), SOUNDRIGHTS_* environment variables and flags.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initializeConfig(cmd)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "",
		"config file (default is ./soundrights.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn",
		"log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table",
		"output format (table, json, yaml)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "",
		"path to the SQLite database file")
	rootCmd.PersistentFlags().StringVar(&tempDir, "temp", "",
		"directory for temporary analysis files")

	rootCmd.AddCommand(analyzeCmd, matchCmd, ingestCmd, listCmd, deleteCmd, compareCmd)
}

// initializeConfig loads configuration after flags are parsed
func initializeConfig(cmd *cobra.Command) error {
	if _, err := newPrinter(outputFormat); err != nil {
		return err
	}

	v := config.New(configFile)
	if err := bindFlags(cmd, v); err != nil {
		return err
	}
	// The CLI is quieter than the server unless asked otherwise.
	v.SetDefault("log_level", "warn")

	loaded, err := config.Load(v)
	if err != nil {
		return err
	}
	cfg = loaded
	logger.SetOutput(os.Stderr)
	logger.SetLevel(cfg.Level())
	return nil
}

// bindFlags binds each explicitly set flag to its config key
func bindFlags(cmd *cobra.Command, v *viper.Viper) error {
	var lastErr error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		key, ok := flagKeys[f.Name]
		if !ok || !f.Changed {
			return
		}
		if err := v.BindPFlag(key, f); err != nil {
			lastErr = err
		}
	})
	return lastErr
}

// openService builds the service from the loaded configuration
func openService(ctx context.Context) (soundrights.Service, error) {
	return service.New(ctx, cfg, logger.GetLogger())
}
