package thumbnail

import (
	"context"
	"errors"
	"image/color"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/philipparndt/printquote/pkg/stl"
	"github.com/philipparndt/printquote/pkg/stl/stltest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// spyLoader serves fixed files and counts calls
type spyLoader struct {
	files map[string][]byte
	calls atomic.Int32
}

func (s *spyLoader) Load(_ context.Context, url string) ([]byte, error) {
	s.calls.Add(1)
	data, ok := s.files[url]
	if !ok {
		return nil, os.ErrNotExist
	}
	return data, nil
}

func newSpy() *spyLoader {
	return &spyLoader{files: map[string][]byte{
		"https://files.example/cube.stl":   stltest.Binary(stltest.Cube(20, 1)),
		"https://files.example/ascii.stl":  stltest.ASCII(stltest.Cube(5, 2)),
		"https://files.example/broken.stl": []byte("hello"),
	}}
}

func TestGenerateCachesByURLAndSize(t *testing.T) {
	spy := newSpy()
	gen := NewGenerator(spy, NewMemoryCache(10), nil)
	ctx := context.Background()

	first, err := gen.Generate(ctx, "https://files.example/cube.stl", Options{Width: 64, Height: 48})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(first, "data:image/png;base64,"))

	second, err := gen.Generate(ctx, "https://files.example/cube.stl", Options{Width: 64, Height: 48, ModelColor: "#ff0000"})
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.EqualValues(t, 1, spy.calls.Load())

	_, err = gen.Generate(ctx, "https://files.example/cube.stl", Options{Width: 32, Height: 32})
	require.NoError(t, err)
	assert.EqualValues(t, 2, spy.calls.Load())

	img, err := DecodeDataURL(first)
	require.NoError(t, err)
	assert.Equal(t, 64, img.Bounds().Dx())
	assert.Equal(t, 48, img.Bounds().Dy())
}

func TestGenerateDrawsModelOnBackground(t *testing.T) {
	gen := NewGenerator(newSpy(), nil, nil)

	dataURL, err := gen.Generate(context.Background(), "https://files.example/cube.stl", Options{Width: 80, Height: 80, Supersample: 1})
	require.NoError(t, err)
	img, err := DecodeDataURL(dataURL)
	require.NoError(t, err)

	background := color.NRGBAModel.Convert(img.At(0, 0)).(color.NRGBA)
	assert.Equal(t, background, color.NRGBAModel.Convert(img.At(79, 0)))
	assert.InDelta(t, 0xf5, int(background.R), 1)
	assert.InDelta(t, 0xf5, int(background.B), 1)
	assert.NotEqual(t, background, color.NRGBAModel.Convert(img.At(40, 40)))
}

func TestGenerateASCIIModel(t *testing.T) {
	gen := NewGenerator(newSpy(), nil, nil)
	_, err := gen.Generate(context.Background(), "https://files.example/ascii.stl", Options{Width: 32, Height: 32})
	assert.NoError(t, err)
}

func TestGenerateLoadFailure(t *testing.T) {
	spy := newSpy()
	gen := NewGenerator(spy, nil, nil)

	_, err := gen.Generate(context.Background(), "https://files.example/missing.stl", Options{})
	var loadErr *GeometryLoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, "https://files.example/missing.stl", loadErr.URL)
	assert.ErrorIs(t, err, os.ErrNotExist)

	// failures are not cached
	_, err = gen.Generate(context.Background(), "https://files.example/missing.stl", Options{})
	require.Error(t, err)
	assert.EqualValues(t, 2, spy.calls.Load())
}

func TestGenerateParseFailure(t *testing.T) {
	gen := NewGenerator(newSpy(), nil, nil)

	_, err := gen.Generate(context.Background(), "https://files.example/broken.stl", Options{})
	var loadErr *GeometryLoadError
	assert.ErrorAs(t, err, &loadErr)
}

func TestGenerateDegenerateModel(t *testing.T) {
	flat := stltest.PadTo(stl.NewModel("flat"), 4)
	gen := NewGenerator(LoaderFunc(func(context.Context, string) ([]byte, error) {
		return stltest.Binary(flat), nil
	}), nil, nil)

	_, err := gen.Generate(context.Background(), "flat.stl", Options{})
	assert.ErrorIs(t, err, ErrNothingToRender)
}

func TestGenerateRejectsInvalidOptions(t *testing.T) {
	spy := newSpy()
	gen := NewGenerator(spy, nil, nil)
	ctx := context.Background()

	for _, opts := range []Options{
		{Width: -1},
		{Height: maxDimension + 1},
		{ModelColor: "blue"},
		{BackgroundColor: "#12345"},
		{Supersample: 9},
	} {
		_, err := gen.Generate(ctx, "https://files.example/cube.stl", opts)
		assert.ErrorIs(t, err, ErrInvalidOptions, "%+v", opts)
	}
	assert.Zero(t, spy.calls.Load())
}

func TestGenerateBatchToleratesFailures(t *testing.T) {
	gen := NewGenerator(newSpy(), nil, nil)
	items := []Item{
		{URL: "https://files.example/cube.stl", ID: "a"},
		{URL: "https://files.example/missing.stl", ID: "b"},
		{URL: "https://files.example/ascii.stl", ID: "c"},
	}

	var calls [][2]int
	results := gen.GenerateBatch(context.Background(), items, Options{Width: 32, Height: 32}, func(done, total int) {
		calls = append(calls, [2]int{done, total})
	})

	require.Len(t, results, 3)
	assert.NotNil(t, results["a"])
	assert.Nil(t, results["b"])
	assert.Contains(t, results, "b")
	assert.NotNil(t, results["c"])
	assert.Equal(t, [][2]int{{1, 3}, {2, 3}, {3, 3}}, calls)
}

func TestGenerateBatchStopsOnCancel(t *testing.T) {
	gen := NewGenerator(newSpy(), nil, nil)
	items := []Item{
		{URL: "https://files.example/cube.stl", ID: "a"},
		{URL: "https://files.example/ascii.stl", ID: "b"},
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	results := gen.GenerateBatch(ctx, items, Options{Width: 32, Height: 32}, func(done, total int) {
		cancel()
	})

	assert.Len(t, results, 1)
	assert.NotNil(t, results["a"])
}

func TestDefaultLoader(t *testing.T) {
	cube := stltest.Binary(stltest.Cube(10, 1))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/cube.stl" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(cube)
	}))
	defer srv.Close()

	loader := NewDefaultLoader(0)
	ctx := context.Background()

	data, err := loader.Load(ctx, srv.URL+"/cube.stl")
	require.NoError(t, err)
	assert.Equal(t, cube, data)

	_, err = loader.Load(ctx, srv.URL+"/missing.stl")
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "cube.stl")
	require.NoError(t, os.WriteFile(path, cube, 0o644))
	data, err = loader.Load(ctx, "file://"+path)
	require.NoError(t, err)
	assert.Equal(t, cube, data)

	_, err = loader.Load(ctx, filepath.Join(t.TempDir(), "nope.stl"))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}
