package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var listOwner string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored tracks",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := openService(cmd.Context())
		if err != nil {
			return err
		}
		defer svc.Close()

		tracks, err := svc.ListTracks(cmd.Context(), listOwner)
		if err != nil {
			return fmt.Errorf("failed to list tracks: %w", err)
		}

		p, _ := newPrinter(outputFormat)
		out := cmd.OutOrStdout()
		if ok, err := p.structured(out, tracks); ok {
			return err
		}
		printTracks(out, tracks)
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <track_id>",
	Short: "Delete a track and its features",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := openService(cmd.Context())
		if err != nil {
			return err
		}
		defer svc.Close()

		if err := svc.DeleteTrack(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("failed to delete track: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "🗑️  Deleted track %s\n", args[0])
		return nil
	},
}

var compareCmd = &cobra.Command{
	Use:   "compare <track_id> <track_id>",
	Short: "Score two stored tracks against each other",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := openService(cmd.Context())
		if err != nil {
			return err
		}
		defer svc.Close()

		cmp, err := svc.CompareTracks(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}

		p, _ := newPrinter(outputFormat)
		out := cmd.OutOrStdout()
		if ok, err := p.structured(out, cmp); ok {
			return err
		}

		fmt.Fprintf(out, "⚖️  %s vs %s\n", cmp.TrackA, cmp.TrackB)
		fmt.Fprintf(out, "   Similarity: %.1f%%\n", cmp.Similarity*100)
		if cmp.MatchType == "" {
			fmt.Fprintln(out, "   Below the similar threshold")
		} else {
			fmt.Fprintf(out, "   Match type: %s\n", cmp.MatchType)
		}
		return nil
	},
}

func init() {
	listCmd.Flags().StringVar(&listOwner, "owner", "", "only list tracks of this owner (default all)")
}
