// Package server exposes quoting and thumbnails over HTTP.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/philipparndt/printquote/internal/quote"
	"github.com/philipparndt/printquote/pkg/pricing"
	"github.com/philipparndt/printquote/pkg/thumbnail"
	"github.com/philipparndt/printquote/version"
)

const maxUploadBytes = 256 << 20

// Config holds runtime options for the HTTP server
type Config struct {
	Address      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Defaults     pricing.Settings
	Quoter       *quote.Quoter
	Thumbnails   *thumbnail.Generator
	// ThumbnailOptions are applied before the query parameters
	ThumbnailOptions thumbnail.Options
	// AllowLocalFiles permits thumbnail sources that are not http(s) URLs
	AllowLocalFiles bool
	Logger          *zap.Logger
}

type handler struct {
	cfg    Config
	logger *zap.Logger
}

// New constructs the HTTP server with its middleware stack
func New(cfg Config) *http.Server {
	readTimeout, writeTimeout := cfg.ReadTimeout, cfg.WriteTimeout
	if readTimeout <= 0 {
		readTimeout = 30 * time.Second
	}
	if writeTimeout <= 0 {
		writeTimeout = 2 * time.Minute
	}
	return &http.Server{
		Addr:         cfg.Address,
		Handler:      Router(cfg),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  60 * time.Second,
	}
}

// Router builds the chi router serving every endpoint
func Router(cfg Config) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &handler{cfg: cfg, logger: logger}

	router := chi.NewRouter()
	router.Use(chimw.RequestID)
	router.Use(chimw.RealIP)
	router.Use(RequestLogger(logger))
	router.Use(chimw.Recoverer)

	router.Get("/health", h.health)
	router.Route("/api", func(r chi.Router) {
		r.Post("/quote", h.quote)
		r.Get("/thumbnail", h.thumbnail)
	})
	return router
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": version.GetVersion()})
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
