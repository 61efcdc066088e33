package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/philipparndt/printquote/pkg/thumbnail"
)

var (
	thumbOutput     string
	thumbWidth      int
	thumbHeight     int
	thumbLabel      string
	thumbBackground string
	thumbColor      string
)

var thumbnailCmd = &cobra.Command{
	Use:   "thumbnail [file|url]",
	Short: "Render a PNG preview of a model",
	Long:  "Render an STL or OpenSCAD model, local or http(s), into a shaded PNG thumbnail.",
	Args:  cobra.ExactArgs(1),
	RunE:  runThumbnail,
}

func init() {
	rootCmd.AddCommand(thumbnailCmd)
	addThumbnailFlags(thumbnailCmd)
	thumbnailCmd.Flags().StringVarP(&thumbOutput, "output", "o", "", "Output PNG path (default: <file>.png)")
	thumbnailCmd.Flags().StringVar(&thumbLabel, "label", "", "Caption drawn on the image")
}

func addThumbnailFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&thumbWidth, "width", 0, "Image width in pixels")
	cmd.Flags().IntVar(&thumbHeight, "height", 0, "Image height in pixels")
	cmd.Flags().StringVar(&thumbBackground, "background", "", "Background color (#rrggbb)")
	cmd.Flags().StringVar(&thumbColor, "color", "", "Model color (#rrggbb)")
}

// thumbnailOptions layers flags over the configured render options
func thumbnailOptions(cmd *cobra.Command) thumbnail.Options {
	opts := cfg.Thumbnail.Options
	f := cmd.Flags()
	if f.Changed("width") {
		opts.Width = thumbWidth
	}
	if f.Changed("height") {
		opts.Height = thumbHeight
	}
	if f.Changed("background") {
		opts.BackgroundColor = thumbBackground
	}
	if f.Changed("color") {
		opts.ModelColor = thumbColor
	}
	if f.Changed("label") {
		opts.Label = thumbLabel
	}
	return opts
}

// replaceExt swaps the extension of a path or URL
func replaceExt(source, ext string) string {
	if i := strings.LastIndex(source, "."); i > strings.LastIndexAny(source, `/\`) {
		source = source[:i]
	}
	return source + ext
}

func runThumbnail(cmd *cobra.Command, args []string) error {
	source := args[0]
	q, err := newQuoter(false, nil)
	if err != nil {
		return err
	}

	png, err := newThumbnailer(q).GeneratePNG(cmd.Context(), source, thumbnailOptions(cmd))
	if err != nil {
		return err
	}

	out := thumbOutput
	if out == "" {
		out = replaceExt(source, ".png")
	}
	if err := os.WriteFile(out, png, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", out, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", out)
	return nil
}
