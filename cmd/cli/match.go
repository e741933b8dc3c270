package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
)

var matchOwner string

var matchCmd = &cobra.Command{
	Use:   "match <audio_file>",
	Short: "Compare an audio file against an owner's stored tracks",
	Long: `Analyzes the file and reports stored tracks of the owner scoring above the
similarity threshold. Nothing is written to the database.`,
	Args: cobra.ExactArgs(1),
	RunE: runMatch,
}

func init() {
	matchCmd.Flags().StringVar(&matchOwner, "owner", "local", "owner whose catalogue is searched")
}

func runMatch(cmd *cobra.Command, args []string) error {
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
	matches, err := svc.FindSimilar(ctx, matchOwner, *features)
	if err != nil {
		return err
	}

	p, _ := newPrinter(outputFormat)
	out := cmd.OutOrStdout()
	if ok, err := p.structured(out, matches); ok {
		return err
	}

	fmt.Fprintf(out, "🔍 Matching %s against catalogue of %q\n\n", filepath.Base(path), matchOwner)
	printMatches(out, matches)
	return nil
}
