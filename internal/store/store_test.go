package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/philipparndt/printquote/pkg/analysis"
	"github.com/philipparndt/printquote/pkg/pricing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleEntry(path string, grand float64) Entry {
	return Entry{
		Path: path,
		Geometry: analysis.Geometry{
			Dimensions: analysis.Dimensions{Width: 10, Depth: 20, Height: 30},
			VolumeCM3:  4.5,
			Triangles:  120,
			Format:     analysis.FormatBinary,
		},
		Settings: pricing.DefaultSettings(),
		Result: pricing.Result{
			WeightG:       12.5,
			UnitPrice:     8,
			Quantity:      1,
			Subtotal:      grand / 1.24,
			GrandTotal:    grand,
			Source:        pricing.SourceCalculated,
			EstimatedDate: time.Date(2026, 10, 22, 0, 0, 0, 0, time.UTC),
		},
		UpdatedAt: time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC),
	}
}

func stores(t *testing.T) map[string]PricingCache {
	sqlite, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sqlite.Close() })
	return map[string]PricingCache{
		"memory": NewMemoryStore(),
		"sqlite": sqlite,
	}
}

func TestPricingCache(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.Get(ctx, "/models/a.stl")
			assert.ErrorIs(t, err, ErrNotFound)

			want := sampleEntry("/models/a.stl", 9.92)
			require.NoError(t, s.Put(ctx, want))

			got, err := s.Get(ctx, "/models/a.stl")
			require.NoError(t, err)
			assert.Equal(t, want.Geometry, got.Geometry)
			assert.Equal(t, want.Settings, got.Settings)
			assert.Equal(t, want.Result.GrandTotal, got.Result.GrandTotal)
			assert.True(t, want.Result.EstimatedDate.Equal(got.Result.EstimatedDate))
			assert.True(t, want.UpdatedAt.Equal(got.UpdatedAt))

			// last writer wins
			require.NoError(t, s.Put(ctx, sampleEntry("/models/a.stl", 24.8)))
			got, err = s.Get(ctx, "/models/a.stl")
			require.NoError(t, err)
			assert.Equal(t, 24.8, got.Result.GrandTotal)

			require.NoError(t, s.Put(ctx, sampleEntry("/models/0.stl", 1)))
			list, err := s.List(ctx)
			require.NoError(t, err)
			require.Len(t, list, 2)
			assert.Equal(t, "/models/0.stl", list[0].Path)

			require.NoError(t, s.Delete(ctx, "/models/a.stl"))
			_, err = s.Get(ctx, "/models/a.stl")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestPutStampsUpdatedAt(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			e := sampleEntry("/x.stl", 10)
			e.UpdatedAt = time.Time{}
			require.NoError(t, s.Put(ctx, e))

			got, err := s.Get(ctx, "/x.stl")
			require.NoError(t, err)
			assert.False(t, got.UpdatedAt.IsZero())
		})
	}
}

func TestSQLitePersistsAcrossOpen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "cache.db")

	s, err := Open(ctx, "sqlite", path)
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, sampleEntry("/a.stl", 9.92)))
	require.NoError(t, s.Close())

	s, err = Open(ctx, "sqlite", path)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.Get(ctx, "/a.stl")
	require.NoError(t, err)
	assert.Equal(t, 9.92, got.Result.GrandTotal)
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), "redis", "")
	assert.Error(t, err)
}
