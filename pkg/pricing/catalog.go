// Package pricing turns model geometry and print settings into a priced quote.
package pricing

import (
	"fmt"
	"sort"
	"strings"
)

// Material is a filament that can be quoted
type Material struct {
	Name         string  `json:"name" yaml:"name"`
	Density      float64 `json:"density" yaml:"density"`               // g/cm³
	PricePerGram float64 `json:"price_per_gram" yaml:"price_per_gram"` // currency per gram
	MinPrice     float64 `json:"min_price" yaml:"min_price"`           // floor for one unit
}

// QualityPreset couples a layer height with a speed and price tier
type QualityPreset struct {
	Name            string  `json:"name" yaml:"name"`
	LayerHeight     float64 `json:"layer_height" yaml:"layer_height"` // mm
	SpeedFactor     float64 `json:"speed_factor" yaml:"speed_factor"` // 1.0 = fastest
	PriceMultiplier float64 `json:"price_multiplier" yaml:"price_multiplier"`
}

// InfillPattern is an infill shape with its price impact
type InfillPattern struct {
	Name            string  `json:"name" yaml:"name"`
	PriceMultiplier float64 `json:"price_multiplier" yaml:"price_multiplier"`
}

// RushTier is a turnaround option
type RushTier struct {
	Name       string  `json:"name" yaml:"name"`
	Multiplier float64 `json:"multiplier" yaml:"multiplier"`
	Days       int     `json:"days" yaml:"days"`
}

// DeliveryMethod is a way of getting the parts to the client
type DeliveryMethod struct {
	Name string  `json:"name" yaml:"name"`
	Fee  float64 `json:"fee" yaml:"fee"`
	Days int     `json:"days" yaml:"days"`
}

// DiscountTier grants Percent off once the quantity reaches MinQuantity
type DiscountTier struct {
	MinQuantity int     `json:"min_quantity" yaml:"min_quantity"`
	Percent     float64 `json:"percent" yaml:"percent"`
}

// Catalog holds every table the estimator reads
type Catalog struct {
	Materials  map[string]Material       `json:"materials" yaml:"materials"`
	Qualities  map[string]QualityPreset  `json:"qualities" yaml:"qualities"`
	Patterns   map[string]InfillPattern  `json:"patterns" yaml:"patterns"`
	RushTiers  map[string]RushTier       `json:"rush_tiers" yaml:"rush_tiers"`
	Deliveries map[string]DeliveryMethod `json:"deliveries" yaml:"deliveries"`
	Discounts  []DiscountTier            `json:"discounts" yaml:"discounts"`
	SetupFee   float64                   `json:"setup_fee" yaml:"setup_fee"`
	VATRate    float64                   `json:"vat_rate" yaml:"vat_rate"`
}

// DefaultCatalog returns the shop's standard price list
func DefaultCatalog() Catalog {
	return Catalog{
		Materials: map[string]Material{
			"PLA":   {Name: "PLA", Density: 1.24, PricePerGram: 0.05, MinPrice: 8},
			"PETG":  {Name: "PETG", Density: 1.27, PricePerGram: 0.06, MinPrice: 10},
			"ABS":   {Name: "ABS", Density: 1.04, PricePerGram: 0.06, MinPrice: 10},
			"TPU":   {Name: "TPU", Density: 1.21, PricePerGram: 0.09, MinPrice: 12},
			"ASA":   {Name: "ASA", Density: 1.07, PricePerGram: 0.07, MinPrice: 12},
			"NYLON": {Name: "Nylon", Density: 1.14, PricePerGram: 0.12, MinPrice: 15},
		},
		Qualities: map[string]QualityPreset{
			"draft":       {Name: "Draft", LayerHeight: 0.28, SpeedFactor: 1.0, PriceMultiplier: 0.85},
			"standard":    {Name: "Standard", LayerHeight: 0.20, SpeedFactor: 0.8, PriceMultiplier: 1.0},
			"fine":        {Name: "Fine", LayerHeight: 0.12, SpeedFactor: 0.65, PriceMultiplier: 1.25},
			"high_detail": {Name: "High detail", LayerHeight: 0.08, SpeedFactor: 0.5, PriceMultiplier: 1.5},
		},
		Patterns: map[string]InfillPattern{
			"grid":      {Name: "Grid", PriceMultiplier: 1.0},
			"gyroid":    {Name: "Gyroid", PriceMultiplier: 1.05},
			"honeycomb": {Name: "Honeycomb", PriceMultiplier: 1.1},
			"cubic":     {Name: "Cubic", PriceMultiplier: 1.0},
			"lightning": {Name: "Lightning", PriceMultiplier: 0.95},
		},
		RushTiers: map[string]RushTier{
			"standard": {Name: "Standard", Multiplier: 1.0, Days: 5},
			"priority": {Name: "Priority", Multiplier: 1.25, Days: 3},
			"express":  {Name: "Express", Multiplier: 1.5, Days: 2},
			"rush":     {Name: "Rush", Multiplier: 2.0, Days: 1},
		},
		Deliveries: map[string]DeliveryMethod{
			"pickup":        {Name: "Pickup", Fee: 0, Days: 0},
			"courier":       {Name: "Courier", Fee: 5.90, Days: 1},
			"parcel_locker": {Name: "Parcel locker", Fee: 3.90, Days: 2},
			"post":          {Name: "Post", Fee: 6.90, Days: 3},
		},
		Discounts: []DiscountTier{
			{MinQuantity: 5, Percent: 5},
			{MinQuantity: 10, Percent: 10},
			{MinQuantity: 25, Percent: 15},
			{MinQuantity: 50, Percent: 20},
			{MinQuantity: 100, Percent: 25},
		},
		SetupFee: 3.00,
		VATRate:  0.24,
	}
}

// Validate checks that every table is populated with usable values
func (c Catalog) Validate() error {
	if len(c.Materials) == 0 || len(c.Qualities) == 0 || len(c.Patterns) == 0 ||
		len(c.RushTiers) == 0 || len(c.Deliveries) == 0 {
		return fmt.Errorf("%w: catalog tables must not be empty", ErrInvalidCatalog)
	}
	for kind, keys := range map[string][]string{
		"material":        sortedKeys(c.Materials),
		"quality":         sortedKeys(c.Qualities),
		"infill pattern":  sortedKeys(c.Patterns),
		"rush tier":       sortedKeys(c.RushTiers),
		"delivery method": sortedKeys(c.Deliveries),
	} {
		if a, b, ok := caseCollision(keys); ok {
			return fmt.Errorf("%w: %s keys %q and %q differ only by case", ErrInvalidCatalog, kind, a, b)
		}
	}
	for key, m := range c.Materials {
		if m.Density <= 0 || m.PricePerGram < 0 || m.MinPrice < 0 {
			return fmt.Errorf("%w: material %q", ErrInvalidCatalog, key)
		}
	}
	for key, q := range c.Qualities {
		if q.LayerHeight <= 0 || q.SpeedFactor <= 0 || q.PriceMultiplier <= 0 {
			return fmt.Errorf("%w: quality %q", ErrInvalidCatalog, key)
		}
	}
	for key, r := range c.RushTiers {
		if r.Multiplier <= 0 || r.Days < 0 {
			return fmt.Errorf("%w: rush tier %q", ErrInvalidCatalog, key)
		}
	}
	for _, d := range c.Discounts {
		if d.MinQuantity < 1 || d.Percent < 0 || d.Percent >= 100 {
			return fmt.Errorf("%w: discount tier %d", ErrInvalidCatalog, d.MinQuantity)
		}
	}
	if c.VATRate < 0 || c.SetupFee < 0 {
		return fmt.Errorf("%w: negative VAT rate or setup fee", ErrInvalidCatalog)
	}
	return nil
}

// Merge returns c with the entries of override added. An override key
// replaces any entry whose key matches it ignoring case. Discount tiers are
// replaced when override has any; scalars when they are non-zero.
func (c Catalog) Merge(override Catalog) Catalog {
	out := c
	out.Materials = mergeTable(c.Materials, override.Materials)
	out.Qualities = mergeTable(c.Qualities, override.Qualities)
	out.Patterns = mergeTable(c.Patterns, override.Patterns)
	out.RushTiers = mergeTable(c.RushTiers, override.RushTiers)
	out.Deliveries = mergeTable(c.Deliveries, override.Deliveries)
	if len(override.Discounts) > 0 {
		out.Discounts = append([]DiscountTier(nil), override.Discounts...)
	}
	if override.SetupFee != 0 {
		out.SetupFee = override.SetupFee
	}
	if override.VATRate != 0 {
		out.VATRate = override.VATRate
	}
	return out
}

func mergeTable[V any](base, override map[string]V) map[string]V {
	out := make(map[string]V, len(base)+len(override))
	for k, v := range base {
		out[k] = v
	}
	for _, k := range sortedKeys(override) {
		for existing := range out {
			if strings.EqualFold(existing, k) {
				delete(out, existing)
			}
		}
		out[k] = override[k]
	}
	return out
}

// caseCollision reports the first pair of sorted keys equal ignoring case
func caseCollision(keys []string) (string, string, bool) {
	seen := make(map[string]string, len(keys))
	for _, k := range keys {
		folded := strings.ToLower(k)
		if prev, ok := seen[folded]; ok {
			return prev, k, true
		}
		seen[folded] = k
	}
	return "", "", false
}

// DiscountFor returns the highest tier whose threshold the quantity reaches
func (c Catalog) DiscountFor(quantity int) DiscountTier {
	var best DiscountTier
	for _, tier := range c.Discounts {
		if quantity >= tier.MinQuantity && tier.MinQuantity >= best.MinQuantity {
			best = tier
		}
	}
	return best
}

// Material looks up a material by key, ignoring case
func (c Catalog) Material(key string) (Material, error) {
	return lookup(c.Materials, "material", key)
}

// Quality looks up a quality preset by key, ignoring case
func (c Catalog) Quality(key string) (QualityPreset, error) {
	return lookup(c.Qualities, "quality", key)
}

// MaterialKeys lists material keys in a stable order
func (c Catalog) MaterialKeys() []string {
	return sortedKeys(c.Materials)
}

// QualityKeys lists quality preset keys in a stable order
func (c Catalog) QualityKeys() []string {
	return sortedKeys(c.Qualities)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
