package quote

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/philipparndt/printquote/internal/store"
	"github.com/philipparndt/printquote/pkg/analysis"
	"github.com/philipparndt/printquote/pkg/openscad"
	"github.com/philipparndt/printquote/pkg/pricing"
)

// FileQuote is the one-shot quote of a model file
type FileQuote struct {
	Path     string            `json:"path"`
	Geometry analysis.Geometry `json:"geometry"`
	Settings pricing.Settings  `json:"settings"`
	Result   pricing.Result    `json:"result"`
}

// Quoter prices files without session state. The CLI, the inbox watcher
// and the HTTP server share it. Nil fields disable the matching feature.
type Quoter struct {
	Memo          *pricing.Memo
	OpenSCAD      *openscad.Renderer
	Slicer        Slicer
	Cache         store.PricingCache
	Logger        *zap.Logger
	Now           func() time.Time
	SlicerTimeout time.Duration
}

// NewQuoter creates a Quoter for catalog
func NewQuoter(catalog pricing.Catalog, logger *zap.Logger) *Quoter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Quoter{Memo: pricing.NewMemo(catalog), Logger: logger, Now: time.Now, SlicerTimeout: defaultSlicerTimeout}
}

// ReadModel returns STL bytes for path, rendering OpenSCAD sources first
func (q *Quoter) ReadModel(ctx context.Context, path string) ([]byte, error) {
	if openscad.IsSource(path) {
		if q.OpenSCAD == nil {
			return nil, fmt.Errorf("cannot quote %s: openscad support is disabled", path)
		}
		q.Logger.Debug("rendering openscad source", zap.String("path", path))
		return q.OpenSCAD.Render(ctx, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

// QuoteFile reads path and prices it
func (q *Quoter) QuoteFile(ctx context.Context, path string, settings pricing.Settings) (FileQuote, error) {
	data, err := q.ReadModel(ctx, path)
	if err != nil {
		return FileQuote{}, err
	}
	return q.Quote(ctx, path, data, settings)
}

// Quote prices data. A configured slicer is asked synchronously; its failure
// falls back to the calculated estimate. Results are written to the cache
// when one is set.
func (q *Quoter) Quote(ctx context.Context, path string, data []byte, settings pricing.Settings) (FileQuote, error) {
	geometry := analysis.ParseGeometry(data)
	if geometry.Format == analysis.FormatPlaceholder {
		q.Logger.Warn("unparseable model, using placeholder geometry", zap.String("path", path))
	}

	in := pricing.Input{Geometry: geometry, Settings: settings, Slicer: q.slice(ctx, path, data, settings)}
	if q.Now != nil {
		in.Today = q.Now()
	}
	result, err := q.Memo.Estimate(in)
	if err != nil {
		return FileQuote{}, fmt.Errorf("failed to price %s: %w", path, err)
	}

	fq := FileQuote{Path: path, Geometry: geometry, Settings: settings, Result: result}
	if q.Cache != nil {
		entry := store.Entry{Path: path, Geometry: geometry, Settings: settings, Result: result}
		if err := q.Cache.Put(ctx, entry); err != nil {
			q.Logger.Warn("failed to cache pricing", zap.String("path", path), zap.Error(err))
		}
	}
	return fq, nil
}

func (q *Quoter) slice(ctx context.Context, path string, data []byte, settings pricing.Settings) *pricing.SlicerEstimate {
	if q.Slicer == nil {
		return nil
	}
	slicerSettings, err := SlicerSettingsFor(q.Memo.Catalog(), settings)
	if err != nil {
		return nil
	}
	timeout := q.SlicerTimeout
	if timeout <= 0 {
		timeout = defaultSlicerTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	est, err := q.Slicer.GetSlicerEstimate(ctx, data, filepath.Base(path), slicerSettings)
	if err != nil {
		q.Logger.Warn("slicer estimate failed, using calculated estimate", zap.String("path", path), zap.Error(err))
		return nil
	}
	if !est.Usable() {
		return nil
	}
	return est
}
