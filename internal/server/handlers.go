package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/philipparndt/printquote/pkg/analysis"
	"github.com/philipparndt/printquote/pkg/openscad"
	"github.com/philipparndt/printquote/pkg/pricing"
	"github.com/philipparndt/printquote/pkg/thumbnail"
)

type quoteResponse struct {
	FileName string           `json:"file_name"`
	Geometry analysis.Summary `json:"geometry"`
	Settings pricing.Settings `json:"settings"`
	Display  pricing.Display  `json:"display"`
	Result   pricing.Result   `json:"result"`
}

func (h *handler) quote(w http.ResponseWriter, r *http.Request) {
	if h.cfg.Quoter == nil {
		writeError(w, http.StatusServiceUnavailable, "quoting is not configured")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read upload")
		return
	}
	settings, err := settingsFromForm(h.cfg.Defaults, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	name := filepath.Base(header.Filename)
	if openscad.IsSource(name) {
		writeError(w, http.StatusUnsupportedMediaType, "upload STL files; render OpenSCAD sources first")
		return
	}

	fq, err := h.cfg.Quoter.Quote(r.Context(), name, data, settings)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, pricing.ErrUnknownOption) || errors.Is(err, pricing.ErrInvalidQuantity) || errors.Is(err, pricing.ErrInvalidSettings) {
			status = http.StatusUnprocessableEntity
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, quoteResponse{
		FileName: name,
		Geometry: fq.Geometry.Summary(),
		Settings: fq.Settings,
		Display:  fq.Result.Display(),
		Result:   fq.Result,
	})
}

// settingsFromForm overrides defaults with any settings present in the form
func settingsFromForm(defaults pricing.Settings, r *http.Request) (pricing.Settings, error) {
	s := defaults
	strFields := map[string]*string{
		"material": &s.Material,
		"quality":  &s.Quality,
		"pattern":  &s.Pattern,
		"rush":     &s.Rush,
		"delivery": &s.Delivery,
	}
	for name, dst := range strFields {
		if v := strings.TrimSpace(r.FormValue(name)); v != "" {
			*dst = v
		}
	}
	intFields := map[string]*int{
		"infill":   &s.InfillPercent,
		"walls":    &s.Walls,
		"quantity": &s.Quantity,
	}
	for name, dst := range intFields {
		if v := strings.TrimSpace(r.FormValue(name)); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return s, fmt.Errorf("invalid %s: %q", name, v)
			}
			*dst = n
		}
	}
	boolFields := map[string]*bool{
		"supports": &s.Supports,
		"brim":     &s.Brim,
	}
	for name, dst := range boolFields {
		if v := strings.TrimSpace(r.FormValue(name)); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return s, fmt.Errorf("invalid %s: %q", name, v)
			}
			*dst = b
		}
	}
	return s, nil
}

func (h *handler) thumbnail(w http.ResponseWriter, r *http.Request) {
	if h.cfg.Thumbnails == nil {
		writeError(w, http.StatusServiceUnavailable, "thumbnails are not configured")
		return
	}
	query := r.URL.Query()
	url := query.Get("url")
	if url == "" {
		writeError(w, http.StatusBadRequest, "missing url")
		return
	}
	if !h.cfg.AllowLocalFiles && !isRemote(url) {
		writeError(w, http.StatusBadRequest, "url must be http or https")
		return
	}

	opts := h.cfg.ThumbnailOptions
	for name, dst := range map[string]*int{"w": &opts.Width, "h": &opts.Height} {
		if v := query.Get(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid %s: %q", name, v))
				return
			}
			*dst = n
		}
	}

	dataURL, err := h.cfg.Thumbnails.Generate(r.Context(), url, opts)
	if err != nil {
		var loadErr *thumbnail.GeometryLoadError
		switch {
		case errors.Is(err, thumbnail.ErrInvalidOptions):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.As(err, &loadErr):
			h.logger.Warn("thumbnail failed", zap.String("url", url), zap.Error(err))
			writeError(w, http.StatusUnprocessableEntity, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	png, err := thumbnail.DecodeDataURLBytes(dataURL)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write(png)
}

func isRemote(url string) bool {
	lower := strings.ToLower(url)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
