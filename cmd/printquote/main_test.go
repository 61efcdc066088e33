package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/philipparndt/printquote/internal/quote"
	"github.com/philipparndt/printquote/pkg/pricing"
	"github.com/philipparndt/printquote/pkg/stl/stltest"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("PRINTQUOTE_CACHE_PATH", "")
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--config", filepath.Join(t.TempDir(), "missing.yaml")}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

func writeCube(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cube.stl")
	require.NoError(t, os.WriteFile(path, stltest.Binary(stltest.Cube(20, 1)), 0o644))
	return path
}

func TestQuoteCommandJSON(t *testing.T) {
	path := writeCube(t)
	out, err := execute(t, "quote", path, "--json", "--quantity", "3", "--material", "petg")
	require.NoError(t, err)

	var quotes []quote.FileQuote
	require.NoError(t, json.Unmarshal([]byte(out), &quotes))
	require.Len(t, quotes, 1)
	assert.Equal(t, path, quotes[0].Path)
	assert.Equal(t, 3, quotes[0].Settings.Quantity)
	assert.Equal(t, "petg", quotes[0].Settings.Material)
	assert.Equal(t, pricing.SourceCalculated, quotes[0].Result.Source)
}

func TestInfoCommand(t *testing.T) {
	out, err := execute(t, "info", writeCube(t))
	require.NoError(t, err)
	assert.Contains(t, out, "Width (X): 20.00 mm")
	assert.Contains(t, out, "Volume: 8.0 cm³")
	assert.Contains(t, out, "Triangles: 12")
}

func TestEntitiesRequiresBackend(t *testing.T) {
	t.Setenv("PRINTQUOTE_API_URL", "")
	_, err := execute(t, "entities", "orders")
	assert.ErrorContains(t, err, "base url not configured")
}

func TestReplaceExt(t *testing.T) {
	assert.Equal(t, "a/b.png", replaceExt("a/b.stl", ".png"))
	assert.Equal(t, "a.b/c.pdf", replaceExt("a.b/c", ".pdf"))
	assert.Equal(t, "https://x.io/m.png", replaceExt("https://x.io/m.STL", ".png"))
}

func TestParseParams(t *testing.T) {
	params, err := parseParams([]string{"temp=210", "bed=true", "profile=pla"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"temp": 210.0, "bed": true, "profile": "pla"}, params)

	_, err = parseParams([]string{"novalue"})
	assert.Error(t, err)

	params, err = parseParams(nil)
	require.NoError(t, err)
	assert.Nil(t, params)
}
