package main

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/soundrights/soundrights/pkg/logger"
	"github.com/soundrights/soundrights/pkg/soundrights"
	"github.com/spf13/cobra"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
	"golang.org/x/sync/errgroup"
)

var (
	ingestOwner   string
	ingestWorkers int
)

var audioExtensions = map[string]bool{
	".wav": true, ".mp3": true, ".flac": true, ".ogg": true,
	".m4a": true, ".aac": true, ".aiff": true, ".aif": true, ".opus": true,
}

var ingestCmd = &cobra.Command{
	Use:   "ingest <directory>",
	Short: "Upload every audio file under a directory",
	Long: `Walks the directory, uploads each audio file for the owner and reports
which files duplicate a track already in the catalogue.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestOwner, "owner", "local", "owner the tracks are registered to")
	ingestCmd.Flags().IntVarP(&ingestWorkers, "workers", "w", 0, "parallel uploads (default NumCPU-1)")
}

type ingestEntry struct {
	File     string `json:"file" yaml:"file"`
	TrackID  string `json:"track_id,omitempty" yaml:"track_id,omitempty"`
	Status   string `json:"status" yaml:"status"`
	Eligible bool   `json:"eligible_for_registration" yaml:"eligible_for_registration"`
	Matches  int    `json:"matches" yaml:"matches"`
	Error    string `json:"error,omitempty" yaml:"error,omitempty"`

	result *soundrights.UploadResult
}

type ingestSummary struct {
	Owner      string        `json:"owner" yaml:"owner"`
	Total      int           `json:"total" yaml:"total"`
	Duplicates int           `json:"duplicates" yaml:"duplicates"`
	Failed     int           `json:"failed" yaml:"failed"`
	Files      []ingestEntry `json:"files" yaml:"files"`
}

func collectAudioFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if audioExtensions[strings.ToLower(filepath.Ext(path))] {
			files = append(files, path)
		}
		return nil
	})
	sort.Strings(files)
	return files, err
}

func runIngest(cmd *cobra.Command, args []string) error {
	files, err := collectAudioFiles(args[0])
	if err != nil {
		return fmt.Errorf("scanning %s: %w", args[0], err)
	}
	if len(files) == 0 {
		return fmt.Errorf("no audio files under %s", args[0])
	}

	svc, err := openService(cmd.Context())
	if err != nil {
		return err
	}
	defer svc.Close()

	log := logger.GetLogger().WithPrefix("ingest")

	workers := ingestWorkers
	if workers <= 0 {
		workers = runtime.NumCPU() - 1
		if workers < 1 {
			workers = 1
		}
	}

	p := mpb.NewWithContext(cmd.Context(), mpb.WithWidth(64), mpb.WithOutput(cmd.ErrOrStderr()))
	bar := p.AddBar(int64(len(files)),
		mpb.PrependDecorators(
			decor.Name("Ingesting: "),
			decor.CountersNoUnit("%d / %d"),
		),
		mpb.AppendDecorators(
			decor.Percentage(),
			decor.EwmaETA(decor.ET_STYLE_GO, 60),
		),
	)

	entries := make([]ingestEntry, len(files))

	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(workers)
	for i, path := range files {
		g.Go(func() error {
			defer bar.Increment()
			entry := ingestEntry{File: path}

			data, err := os.ReadFile(path)
			if err == nil {
				entry.result, err = svc.UploadTrack(ctx, soundrights.UploadRequest{
					OwnerID:  ingestOwner,
					Filename: filepath.Base(path),
					Data:     data,
				})
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if err != nil {
				log.Warnf("skipping %s: %v", path, err)
				entry.Status = "error"
				entry.Error = err.Error()
			} else {
				entry.TrackID = entry.result.Track.ID
				entry.Status = string(entry.result.Track.Status)
				entry.Eligible = entry.result.EligibleForRegistration
				entry.Matches = len(entry.result.Matches)
			}

			entries[i] = entry
			return nil
		})
	}
	err = g.Wait()
	if err != nil {
		bar.Abort(false)
	}
	p.Wait()
	if err != nil {
		return err
	}

	summary := ingestSummary{Owner: ingestOwner, Total: len(files), Files: entries}
	for _, e := range entries {
		switch {
		case e.Error != "":
			summary.Failed++
		case !e.Eligible && e.Status == "analyzed":
			summary.Duplicates++
		}
	}

	pr, _ := newPrinter(outputFormat)
	out := cmd.OutOrStdout()
	if ok, err := pr.structured(out, summary); ok {
		return err
	}

	fmt.Fprintf(out, "\n📥 Ingested %d file(s) for %q\n", summary.Total, summary.Owner)
	for _, e := range entries {
		switch {
		case e.Error != "":
			fmt.Fprintf(out, "   ❌ %s: %s\n", e.File, e.Error)
		case e.Status != "analyzed":
			fmt.Fprintf(out, "   ⚠️  %s: stored without features (%s)\n", e.File, e.Status)
		case !e.Eligible:
			top := e.result.Matches[0]
			fmt.Fprintf(out, "   🔁 %s duplicates %q by %s (%.1f%%)\n", e.File, top.Title, top.Artist, top.Similarity*100)
		}
	}
	fmt.Fprintf(out, "\n✅ %d stored, %d duplicate(s), %d failed\n",
		summary.Total-summary.Failed, summary.Duplicates, summary.Failed)
	return nil
}
