package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), WithEnv(nil))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFileMergesCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
api:
  base_url: https://backend.example/api
  timeout: 5s
defaults:
  material: PETG
  infill_percent: 35
catalog:
  materials:
    PLA:
      name: PLA
      density: 1.24
      price_per_gram: 0.04
      min_price: 6
    CF-PLA:
      name: Carbon PLA
      density: 1.3
      price_per_gram: 0.15
      min_price: 15
server:
  allow_local_files: true
thumbnail:
  cache_size: 10
  options:
    width: 128
    model_color: "#ff8800"
`), 0o644))

	cfg, err := Load(path, WithEnv(nil))
	require.NoError(t, err)

	assert.Equal(t, "https://backend.example/api", cfg.API.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.API.Timeout)
	assert.Equal(t, "PETG", cfg.Defaults.Material)
	assert.Equal(t, 35, cfg.Defaults.InfillPercent)
	// unset fields keep their defaults
	assert.Equal(t, 3, cfg.Defaults.Walls)
	assert.Equal(t, 0.04, cfg.Catalog.Materials["PLA"].PricePerGram)
	assert.Contains(t, cfg.Catalog.Materials, "CF-PLA")
	assert.Contains(t, cfg.Catalog.Materials, "PETG")
	assert.True(t, cfg.Server.AllowLocalFiles)
	assert.False(t, Default().Server.AllowLocalFiles)
	assert.Equal(t, 10, cfg.Thumbnail.CacheSize)
	assert.Equal(t, 128, cfg.Thumbnail.Options.Width)
	assert.Equal(t, "#ff8800", cfg.Thumbnail.Options.ModelColor)
}

func TestLoadCatalogKeysMergeIgnoringCase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
catalog:
  materials:
    pla:
      name: PLA
      density: 1.24
      price_per_gram: 0.5
      min_price: 8
`), 0o644))

	cfg, err := Load(path, WithEnv(nil))
	require.NoError(t, err)
	assert.NotContains(t, cfg.Catalog.Materials, "PLA")
	assert.Equal(t, 0.5, cfg.Catalog.Materials["pla"].PricePerGram)
	assert.Equal(t, Default().Catalog.VATRate, cfg.Catalog.VATRate)

	m, err := cfg.Catalog.Material("PLA")
	require.NoError(t, err)
	assert.Equal(t, 0.5, m.PricePerGram)
}

func TestLoadEnvOverrides(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), WithEnv(map[string]string{
		EnvAPIURL:    "https://env.example",
		EnvAPIToken:  "secret",
		EnvCachePath: "/tmp/pricing.db",
		EnvListen:    "127.0.0.1:9000",
	}))
	require.NoError(t, err)

	assert.Equal(t, "https://env.example", cfg.API.BaseURL)
	assert.Equal(t, "secret", cfg.API.Token)
	assert.Equal(t, DriverSQLite, cfg.Cache.Driver)
	assert.Equal(t, "/tmp/pricing.db", cfg.Cache.Path)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("cache:\n  driver: redis\ndefaults:\n  quantity: 0\n"), 0o644))

	_, err := Load(path, WithEnv(nil))
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.ElementsMatch(t, []string{"cache.driver", "defaults.quantity"}, vErr.Fields)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api: [unclosed"), 0o644))

	_, err := Load(path, WithEnv(nil))
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Default()
	cfg.API.BaseURL = "https://saved.example"

	require.NoError(t, Save(path, cfg))
	loaded, err := Load(path, WithEnv(nil))
	require.NoError(t, err)
	assert.Equal(t, "https://saved.example", loaded.API.BaseURL)
	assert.Equal(t, cfg.Catalog, loaded.Catalog)
}
