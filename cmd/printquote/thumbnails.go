package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/philipparndt/printquote/pkg/thumbnail"
)

var thumbsOutDir string

var thumbnailsCmd = &cobra.Command{
	Use:   "thumbnails [files|urls...]",
	Short: "Render PNG previews for many models",
	Long:  "Render thumbnails one after another. Models that fail are reported and skipped.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runThumbnails,
}

func init() {
	rootCmd.AddCommand(thumbnailsCmd)
	addThumbnailFlags(thumbnailsCmd)
	thumbnailsCmd.Flags().StringVarP(&thumbsOutDir, "out-dir", "d", "", "Directory for the PNG files (default: next to each model)")
}

func runThumbnails(cmd *cobra.Command, args []string) error {
	q, err := newQuoter(false, nil)
	if err != nil {
		return err
	}
	if thumbsOutDir != "" {
		if err := os.MkdirAll(thumbsOutDir, 0o755); err != nil {
			return err
		}
	}

	items := make([]thumbnail.Item, len(args))
	for i, source := range args {
		items[i] = thumbnail.Item{URL: source, ID: source}
	}

	out := cmd.OutOrStdout()
	results := newThumbnailer(q).GenerateBatch(cmd.Context(), items, thumbnailOptions(cmd), func(done, total int) {
		fmt.Fprintf(cmd.ErrOrStderr(), "\rRendering %d/%d", done, total)
	})
	fmt.Fprintln(cmd.ErrOrStderr())

	failed := 0
	for _, item := range items {
		dataURL := results[item.ID]
		if dataURL == nil {
			failed++
			fmt.Fprintf(out, "FAILED %s\n", item.URL)
			continue
		}
		png, err := thumbnail.DecodeDataURLBytes(*dataURL)
		if err != nil {
			return err
		}
		target := replaceExt(item.URL, ".png")
		if thumbsOutDir != "" {
			target = filepath.Join(thumbsOutDir, filepath.Base(target))
		}
		if err := os.WriteFile(target, png, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", target, err)
		}
		fmt.Fprintf(out, "OK     %s -> %s\n", item.URL, target)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d thumbnails failed", failed, len(items))
	}
	return nil
}
