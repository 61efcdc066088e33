package quote

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/philipparndt/printquote/internal/api"
	"github.com/philipparndt/printquote/internal/store"
	"github.com/philipparndt/printquote/pkg/analysis"
	"github.com/philipparndt/printquote/pkg/pricing"
)

type staticSlicer struct {
	est *pricing.SlicerEstimate
	err error
}

func (s staticSlicer) GetSlicerEstimate(context.Context, []byte, string, api.SlicerSettings) (*pricing.SlicerEstimate, error) {
	return s.est, s.err
}

func newQuoter() *Quoter {
	q := NewQuoter(pricing.DefaultCatalog(), nil)
	q.Now = func() time.Time { return today }
	return q
}

func TestQuoteFileCalculated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cube.stl")
	require.NoError(t, os.WriteFile(path, cube(), 0o644))

	cache := store.NewMemoryStore()
	q := newQuoter()
	q.Cache = cache

	fq, err := q.QuoteFile(context.Background(), path, pricing.DefaultSettings())
	require.NoError(t, err)
	assert.Equal(t, analysis.FormatBinary, fq.Geometry.Format)
	assert.Equal(t, pricing.SourceCalculated, fq.Result.Source)
	assert.InDelta(t, 3.2*1.24, fq.Result.WeightG, 1e-6)
	assert.InDelta(t, fq.Result.Subtotal*1.24, fq.Result.GrandTotal, 1e-9)

	entry, err := cache.Get(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, fq.Result, entry.Result)
}

func TestQuoteUsesSlicer(t *testing.T) {
	q := newQuoter()
	q.Slicer = staticSlicer{est: &pricing.SlicerEstimate{Success: true, FilamentUsedG: 100, PrintTimeSeconds: 7200, Source: pricing.SourceBambuStudio}}

	fq, err := q.Quote(context.Background(), "cube.stl", cube(), pricing.DefaultSettings())
	require.NoError(t, err)
	assert.Equal(t, pricing.SourceBambuStudio, fq.Result.Source)
	assert.InDelta(t, 100, fq.Result.WeightG, 1e-9)
	assert.Equal(t, "9.92", pricing.Money(fq.Result.GrandTotal))
}

func TestQuoteSlicerFailureFallsBack(t *testing.T) {
	q := newQuoter()
	q.Slicer = staticSlicer{err: errors.New("slicer down")}

	fq, err := q.Quote(context.Background(), "cube.stl", cube(), pricing.DefaultSettings())
	require.NoError(t, err)
	assert.Equal(t, pricing.SourceCalculated, fq.Result.Source)
}

func TestQuotePlaceholderGeometry(t *testing.T) {
	fq, err := newQuoter().Quote(context.Background(), "junk.stl", []byte("not a model"), pricing.DefaultSettings())
	require.NoError(t, err)
	assert.Equal(t, analysis.FormatPlaceholder, fq.Geometry.Format)
	assert.Greater(t, fq.Result.GrandTotal, 0.0)
}

func TestQuoteInvalidSettings(t *testing.T) {
	settings := pricing.DefaultSettings()
	settings.Material = "unobtainium"
	_, err := newQuoter().Quote(context.Background(), "cube.stl", cube(), settings)
	assert.ErrorIs(t, err, pricing.ErrUnknownOption)
}

func TestReadModelErrors(t *testing.T) {
	q := newQuoter()
	_, err := q.ReadModel(context.Background(), filepath.Join(t.TempDir(), "missing.stl"))
	assert.Error(t, err)

	_, err = q.ReadModel(context.Background(), "part.scad")
	assert.ErrorContains(t, err, "openscad support is disabled")
}
