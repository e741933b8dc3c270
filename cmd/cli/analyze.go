package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <audio_file>",
	Short: "Extract audio features without storing the track",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnalyze,
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	path := args[0]
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
	defer cancel()

	svc, err := openService(ctx)
	if err != nil {
		return err
	}
	defer svc.Close()

	features, err := svc.AnalyzeAudio(ctx, data, filepath.Base(path))
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	p, _ := newPrinter(outputFormat)
	out := cmd.OutOrStdout()
	if ok, err := p.structured(out, features); ok {
		return err
	}

	fmt.Fprintf(out, "🎵 %s\n", filepath.Base(path))
	printFeatures(out, features)
	return nil
}
