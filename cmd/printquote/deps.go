package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/philipparndt/printquote/internal/api"
	"github.com/philipparndt/printquote/internal/quote"
	"github.com/philipparndt/printquote/internal/store"
	"github.com/philipparndt/printquote/pkg/openscad"
	"github.com/philipparndt/printquote/pkg/pricing"
	"github.com/philipparndt/printquote/pkg/thumbnail"
)

func newAPIClient() (*api.Client, error) {
	if cfg.API.BaseURL == "" {
		return nil, fmt.Errorf("%w: set api.base_url, PRINTQUOTE_API_URL or --api-url", api.ErrNotConfigured)
	}
	return api.NewClient(api.Config{
		BaseURL: cfg.API.BaseURL,
		Token:   cfg.API.Token,
		Timeout: cfg.API.Timeout,
	}, logger.Named("api")), nil
}

func openCache(ctx context.Context) (store.PricingCache, error) {
	return store.Open(ctx, cfg.Cache.Driver, cfg.Cache.Path)
}

// newQuoter wires the quoter; the slicer is used only when asked for and the
// backend is configured
func newQuoter(withSlicer bool, cache store.PricingCache) (*quote.Quoter, error) {
	q := quote.NewQuoter(cfg.Catalog, logger.Named("quote"))
	q.OpenSCAD = openscad.NewRenderer(".", cfg.OpenSCAD.Binary)
	q.Cache = cache
	if withSlicer {
		client, err := newAPIClient()
		if err != nil {
			return nil, err
		}
		q.Slicer = client
	}
	return q, nil
}

// newThumbnailer renders local paths through the quoter so OpenSCAD sources
// work, and everything else through the default loader
func newThumbnailer(q *quote.Quoter) *thumbnail.Generator {
	remote := thumbnail.NewDefaultLoader(cfg.API.Timeout)
	loader := thumbnail.LoaderFunc(func(ctx context.Context, url string) ([]byte, error) {
		if openscad.IsSource(url) {
			return q.ReadModel(ctx, url)
		}
		return remote.Load(ctx, url)
	})
	return thumbnail.NewGenerator(loader, thumbnail.NewMemoryCache(cfg.Thumbnail.CacheSize), logger.Named("thumbnail"))
}

var (
	settingsMaterial string
	settingsQuality  string
	settingsInfill   int
	settingsWalls    int
	settingsPattern  string
	settingsQuantity int
	settingsRush     string
	settingsDelivery string
	settingsSupports bool
	settingsBrim     bool
)

// addSettingsFlags registers the print settings flags on cmd
func addSettingsFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVarP(&settingsMaterial, "material", "m", "", "Material key, e.g. PLA, PETG")
	f.StringVarP(&settingsQuality, "quality", "q", "", "Quality preset, e.g. draft, standard, fine")
	f.IntVar(&settingsInfill, "infill", 0, "Infill percent (0-100)")
	f.IntVar(&settingsWalls, "walls", 0, "Wall count")
	f.StringVar(&settingsPattern, "pattern", "", "Infill pattern")
	f.IntVarP(&settingsQuantity, "quantity", "n", 0, "Number of copies")
	f.StringVar(&settingsRush, "rush", "", "Rush tier")
	f.StringVar(&settingsDelivery, "delivery", "", "Delivery method")
	f.BoolVar(&settingsSupports, "supports", false, "Print with supports")
	f.BoolVar(&settingsBrim, "brim", false, "Print with a brim")
}

// settingsFromFlags starts from the configured defaults and applies every
// flag the user set
func settingsFromFlags(cmd *cobra.Command) pricing.Settings {
	s := cfg.Defaults
	f := cmd.Flags()
	if f.Changed("material") {
		s.Material = settingsMaterial
	}
	if f.Changed("quality") {
		s.Quality = settingsQuality
	}
	if f.Changed("infill") {
		s.InfillPercent = settingsInfill
	}
	if f.Changed("walls") {
		s.Walls = settingsWalls
	}
	if f.Changed("pattern") {
		s.Pattern = settingsPattern
	}
	if f.Changed("quantity") {
		s.Quantity = settingsQuantity
	}
	if f.Changed("rush") {
		s.Rush = settingsRush
	}
	if f.Changed("delivery") {
		s.Delivery = settingsDelivery
	}
	if f.Changed("supports") {
		s.Supports = settingsSupports
	}
	if f.Changed("brim") {
		s.Brim = settingsBrim
	}
	return s
}
