package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/soundrights/soundrights/pkg/models"
	"gopkg.in/yaml.v3"
)

type printer struct {
	format string
}

func newPrinter(format string) (*printer, error) {
	switch strings.ToLower(format) {
	case "table", "json", "yaml":
		return &printer{format: strings.ToLower(format)}, nil
	default:
		return nil, fmt.Errorf("unknown output format %q (want table, json or yaml)", format)
	}
}

// structured writes v as JSON or YAML and reports whether it did.
func (p *printer) structured(w io.Writer, v any) (bool, error) {
	switch p.format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return true, enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return true, enc.Encode(v)
	}
	return false, nil
}

func printFeatures(w io.Writer, f *models.AudioFeatures) {
	fmt.Fprintf(w, "   Duration:         %.2fs\n", f.Duration)
	fmt.Fprintf(w, "   BPM:              %.1f\n", f.BPM)
	fmt.Fprintf(w, "   Key:              %s\n", f.Key)
	fmt.Fprintf(w, "   Energy:           %.3f\n", f.Energy)
	fmt.Fprintf(w, "   Danceability:     %.3f\n", f.Danceability)
	fmt.Fprintf(w, "   Valence:          %.3f\n", f.Valence)
	fmt.Fprintf(w, "   Acousticness:     %.3f\n", f.Acousticness)
	fmt.Fprintf(w, "   Instrumentalness: %.3f\n", f.Instrumentalness)
	fmt.Fprintf(w, "   Fingerprint:      %s\n", f.Fingerprint)
}

func printMatches(w io.Writer, matches []models.SimilarityMatch) {
	if len(matches) == 0 {
		fmt.Fprintln(w, "✅ No similar tracks found")
		return
	}

	fmt.Fprintf(w, "🎯 Found %d similar track(s):\n\n", len(matches))
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tTYPE\tSIMILARITY\tTITLE\tARTIST\tTRACK ID")
	for i, m := range matches {
		fmt.Fprintf(tw, "%d\t%s\t%.1f%%\t%s\t%s\t%s\n", i+1, m.MatchType, m.Similarity*100, m.Title, m.Artist, m.TrackID)
	}
	tw.Flush()
}

func printTracks(w io.Writer, tracks []models.Track) {
	if len(tracks) == 0 {
		fmt.Fprintln(w, "📭 No tracks in the database")
		return
	}

	fmt.Fprintf(w, "📚 %d track(s):\n\n", len(tracks))
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tOWNER\tTITLE\tARTIST\tSTATUS\tDURATION\tBPM\tKEY")
	for _, t := range tracks {
		duration, bpm, key := "-", "-", "-"
		if t.Features != nil {
			duration = fmt.Sprintf("%.1fs", t.Features.Duration)
			bpm = fmt.Sprintf("%.1f", t.Features.BPM)
			key = t.Features.Key
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n", t.ID, t.OwnerID, t.Title, t.Artist, t.Status, duration, bpm, key)
	}
	tw.Flush()
}
