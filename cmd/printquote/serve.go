package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/philipparndt/printquote/internal/server"
	"github.com/philipparndt/printquote/pkg/thumbnail"
)

var (
	serveAddr   string
	serveSlicer bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve quotes and thumbnails over HTTP",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides config)")
	serveCmd.Flags().BoolVar(&serveSlicer, "slicer", false, "Ask the backend slicer for weight and print time")
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cache, err := openCache(ctx)
	if err != nil {
		return err
	}
	defer cache.Close()

	q, err := newQuoter(serveSlicer, cache)
	if err != nil {
		return err
	}
	addr := cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	srv := server.New(server.Config{
		Address:          addr,
		ReadTimeout:      cfg.Server.ReadTimeout,
		WriteTimeout:     cfg.Server.WriteTimeout,
		Defaults:         cfg.Defaults,
		Quoter:           q,
		Thumbnails:       thumbnail.NewGenerator(thumbnail.NewDefaultLoader(cfg.API.Timeout), thumbnail.NewMemoryCache(cfg.Thumbnail.CacheSize), logger.Named("thumbnail")),
		ThumbnailOptions: cfg.Thumbnail.Options,
		AllowLocalFiles:  cfg.Server.AllowLocalFiles,
		Logger:           logger.Named("http"),
	})

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	logger.Info("shutting down")
	return srv.Shutdown(shutdownCtx)
}
