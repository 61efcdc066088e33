// Package thumbnail renders STL models into small PNG previews.
package thumbnail

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"strings"
	"time"

	"github.com/philipparndt/printquote/pkg/stl"
	"go.uber.org/zap"
)

const dataURLPrefix = "data:image/png;base64,"

// GeometryLoadError reports that the model behind URL could not be fetched
// or parsed
type GeometryLoadError struct {
	URL string
	Err error
}

func (e *GeometryLoadError) Error() string {
	return fmt.Sprintf("thumbnail: failed to load geometry from %s: %v", e.URL, e.Err)
}

func (e *GeometryLoadError) Unwrap() error {
	return e.Err
}

// Item is one entry of a batch
type Item struct {
	URL string `json:"url"`
	ID  string `json:"id"`
}

// Generator renders thumbnails through a loader and a cache
type Generator struct {
	loader Loader
	cache  Cache
	logger *zap.Logger
}

// NewGenerator creates a generator. A nil loader falls back to
// DefaultLoader, a nil cache to a 100-entry MemoryCache and a nil logger to
// a no-op logger.
func NewGenerator(loader Loader, cache Cache, logger *zap.Logger) *Generator {
	if loader == nil {
		loader = NewDefaultLoader(30 * time.Second)
	}
	if cache == nil {
		cache = NewMemoryCache(100)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{loader: loader, cache: cache, logger: logger}
}

// Generate returns a PNG data URL of the model at url. Results are cached by
// url and output size; a cache hit does not touch the loader.
func (g *Generator) Generate(ctx context.Context, url string, opts Options) (string, error) {
	opts, err := opts.withDefaults()
	if err != nil {
		return "", err
	}

	key := CacheKey(url, opts.Width, opts.Height)
	if cached, ok := g.cache.Get(key); ok {
		return cached, nil
	}

	img, err := g.render(ctx, url, opts)
	if err != nil {
		return "", err
	}
	dataURL, err := EncodeDataURL(img)
	if err != nil {
		return "", err
	}

	g.cache.Set(key, dataURL)
	return dataURL, nil
}

// GeneratePNG renders the model at url into PNG bytes, bypassing the cache
func (g *Generator) GeneratePNG(ctx context.Context, url string, opts Options) ([]byte, error) {
	opts, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}
	img, err := g.render(ctx, url, opts)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func (g *Generator) render(ctx context.Context, url string, opts Options) (image.Image, error) {
	start := time.Now()
	data, err := g.loader.Load(ctx, url)
	if err != nil {
		return nil, &GeometryLoadError{URL: url, Err: err}
	}
	model, err := stl.ParseBytes(data)
	if err != nil {
		return nil, &GeometryLoadError{URL: url, Err: err}
	}

	img, err := Render(model, opts)
	if err != nil {
		return nil, &GeometryLoadError{URL: url, Err: err}
	}

	g.logger.Debug("rendered thumbnail",
		zap.String("url", url),
		zap.Int("triangles", model.TriangleCount()),
		zap.Int("width", opts.Width),
		zap.Int("height", opts.Height),
		zap.Duration("took", time.Since(start)))
	return img, nil
}

// GenerateBatch renders items one after another. A failed item maps to a nil
// entry and does not stop the batch. progress, when set, is called after
// every item. Cancelling ctx stops the batch and returns what is done.
func (g *Generator) GenerateBatch(ctx context.Context, items []Item, opts Options, progress func(done, total int)) map[string]*string {
	results := make(map[string]*string, len(items))
	for i, item := range items {
		if ctx.Err() != nil {
			g.logger.Info("thumbnail batch cancelled", zap.Int("done", i), zap.Int("total", len(items)))
			break
		}

		dataURL, err := g.Generate(ctx, item.URL, opts)
		if err != nil {
			g.logger.Warn("thumbnail failed", zap.String("id", item.ID), zap.String("url", item.URL), zap.Error(err))
			results[item.ID] = nil
		} else {
			results[item.ID] = &dataURL
		}

		if progress != nil {
			progress(i+1, len(items))
		}
	}
	return results
}

// EncodeDataURL encodes an image as a base64 PNG data URL
func EncodeDataURL(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("failed to encode png: %w", err)
	}
	return dataURLPrefix + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// DecodeDataURLBytes returns the PNG bytes carried by a data URL
func DecodeDataURLBytes(dataURL string) ([]byte, error) {
	if !strings.HasPrefix(dataURL, dataURLPrefix) {
		return nil, fmt.Errorf("not a png data url")
	}
	return base64.StdEncoding.DecodeString(dataURL[len(dataURLPrefix):])
}

// DecodeDataURL reverses EncodeDataURL
func DecodeDataURL(dataURL string) (image.Image, error) {
	raw, err := DecodeDataURLBytes(dataURL)
	if err != nil {
		return nil, err
	}
	return png.Decode(bytes.NewReader(raw))
}
