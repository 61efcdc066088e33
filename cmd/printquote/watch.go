package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/philipparndt/printquote/internal/quote"
	"github.com/philipparndt/printquote/pkg/pricing"
	"github.com/philipparndt/printquote/pkg/thumbnail"
	"github.com/philipparndt/printquote/pkg/watcher"
)

var (
	watchThumbnails bool
	watchExisting   bool
	watchSlicer     bool
)

var watchCmd = &cobra.Command{
	Use:   "watch [dirs...]",
	Short: "Quote models as they land in an inbox directory",
	Long: `Watch directories for new or changed STL and OpenSCAD files. Every
settled file is quoted with the configured defaults, logged and stored in the
pricing cache. Optionally a PNG thumbnail is written next to it.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
	addSettingsFlags(watchCmd)
	watchCmd.Flags().BoolVar(&watchThumbnails, "thumbnails", false, "Write a PNG thumbnail next to every quoted model")
	watchCmd.Flags().BoolVar(&watchExisting, "existing", false, "Quote files already in the directories on start")
	watchCmd.Flags().BoolVar(&watchSlicer, "slicer", false, "Ask the backend slicer for weight and print time")
}

// inbox quotes files reported by the watcher
type inbox struct {
	quoter     *quote.Quoter
	thumbnails *thumbnail.Generator
	settings   pricing.Settings
	logger     *zap.Logger
}

func (in *inbox) handle(ctx context.Context, path string) {
	fq, err := in.quoter.QuoteFile(ctx, path, in.settings)
	if err != nil {
		in.logger.Error("failed to quote", zap.String("path", path), zap.Error(err))
		return
	}
	d := fq.Result.Display()
	in.logger.Info("quoted",
		zap.String("path", path),
		zap.String("geometry", fq.Geometry.String()),
		zap.String("weight_g", d.WeightG),
		zap.String("print_time", d.PrintTime),
		zap.String("grand_total", d.GrandTotal),
		zap.String("source", string(d.Source)))

	if in.thumbnails == nil {
		return
	}
	png, err := in.thumbnails.GeneratePNG(ctx, path, cfg.Thumbnail.Options)
	if err != nil {
		in.logger.Warn("failed to render thumbnail", zap.String("path", path), zap.Error(err))
		return
	}
	target := replaceExt(path, ".png")
	if err := os.WriteFile(target, png, 0o644); err != nil {
		in.logger.Warn("failed to write thumbnail", zap.String("path", target), zap.Error(err))
	}
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cache, err := openCache(ctx)
	if err != nil {
		return err
	}
	defer cache.Close()

	q, err := newQuoter(watchSlicer, cache)
	if err != nil {
		return err
	}
	in := &inbox{quoter: q, settings: settingsFromFlags(cmd), logger: logger.Named("watch")}
	if watchThumbnails || cfg.Watch.Thumbnails {
		in.thumbnails = newThumbnailer(q)
	}

	fw, err := watcher.NewFileWatcher(cfg.Watch.Debounce, in.logger)
	if err != nil {
		return err
	}
	defer fw.Close()
	if err := fw.Watch(args...); err != nil {
		return err
	}

	if watchExisting {
		for _, dir := range args {
			entries, err := os.ReadDir(dir)
			if err != nil {
				return fmt.Errorf("failed to list %s: %w", dir, err)
			}
			for _, e := range entries {
				if path := filepath.Join(dir, e.Name()); !e.IsDir() && fw.Matches(path) {
					in.handle(ctx, path)
				}
			}
		}
	}

	in.logger.Info("watching for models", zap.Strings("dirs", args))
	err = fw.Run(ctx, func(path string) { in.handle(ctx, path) })
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
