package pricing

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/philipparndt/printquote/pkg/analysis"
)

var (
	// ErrUnknownOption is returned when a setting names an entry missing from the catalog
	ErrUnknownOption = errors.New("pricing: unknown option")
	// ErrInvalidQuantity is returned for quantities below one
	ErrInvalidQuantity = errors.New("pricing: quantity must be at least 1")
	// ErrInvalidSettings is returned for out-of-range infill or wall counts
	ErrInvalidSettings = errors.New("pricing: invalid print settings")
	// ErrInvalidCatalog is returned by Catalog.Validate
	ErrInvalidCatalog = errors.New("pricing: invalid catalog")
)

// Source identifies where weight and print time came from
type Source string

const (
	SourceCalculated  Source = "calculated"
	SourceOrcaSlicer  Source = "orcaslicer"
	SourceBambuStudio Source = "bambu_studio"
)

// Settings are the user-selected print parameters
type Settings struct {
	Material      string `json:"material" yaml:"material"`
	Quality       string `json:"quality" yaml:"quality"`
	InfillPercent int    `json:"infill_percent" yaml:"infill_percent"`
	Walls         int    `json:"walls" yaml:"walls"`
	Pattern       string `json:"pattern" yaml:"pattern"`
	Quantity      int    `json:"quantity" yaml:"quantity"`
	Rush          string `json:"rush" yaml:"rush"`
	Delivery      string `json:"delivery" yaml:"delivery"`
	Supports      bool   `json:"supports,omitempty" yaml:"supports,omitempty"`
	Brim          bool   `json:"brim,omitempty" yaml:"brim,omitempty"`
}

// DefaultSettings returns the settings a new quote starts with
func DefaultSettings() Settings {
	return Settings{
		Material:      "PLA",
		Quality:       "standard",
		InfillPercent: 20,
		Walls:         3,
		Pattern:       "grid",
		Quantity:      1,
		Rush:          "standard",
		Delivery:      "pickup",
	}
}

// SlicingKey fingerprints the settings that change the sliced toolpath.
// A slicer estimate is only valid for the key it was computed with.
func (s Settings) SlicingKey() string {
	return fmt.Sprintf("%s|%s|%d|%d|%t|%t", strings.ToUpper(s.Material), strings.ToLower(s.Quality),
		s.InfillPercent, s.Walls, s.Supports, s.Brim)
}

// SlicerEstimate is filament usage and duration reported by a slicer
type SlicerEstimate struct {
	Success          bool    `json:"success"`
	FilamentUsedG    float64 `json:"filament_used_g"`
	PrintTimeSeconds float64 `json:"print_time_seconds"`
	LayerCount       int     `json:"layer_count"`
	Source           Source  `json:"source"`
}

// Usable reports whether the estimate may replace the calculated values
func (e *SlicerEstimate) Usable() bool {
	return e != nil && e.Success && e.FilamentUsedG > 0 && e.PrintTimeSeconds > 0
}

// Input is everything Estimate depends on
type Input struct {
	Geometry analysis.Geometry
	Settings Settings
	Slicer   *SlicerEstimate
	// Today anchors the delivery date; zero means time.Now()
	Today time.Time
}

// Result is the priced breakdown of one quote line
type Result struct {
	WeightG         float64   `json:"weight_g"`
	PrintTimeHours  float64   `json:"print_time_hours"`
	UnitPrice       float64   `json:"unit_price"`
	Quantity        int       `json:"quantity"`
	LineTotal       float64   `json:"line_total"`
	DiscountPercent float64   `json:"discount_percent"`
	DiscountAmount  float64   `json:"discount_amount"`
	RushMultiplier  float64   `json:"rush_multiplier"`
	AfterRush       float64   `json:"after_rush"`
	DeliveryFee     float64   `json:"delivery_fee"`
	Subtotal        float64   `json:"subtotal"`
	VAT             float64   `json:"vat"`
	GrandTotal      float64   `json:"grand_total"`
	Source          Source    `json:"estimate_source"`
	EstimatedDate   time.Time `json:"estimated_date"`
}

// Estimate prices a quote line. It is a pure function of the catalog and input.
func Estimate(catalog Catalog, in Input) (Result, error) {
	s := in.Settings
	if s.Quantity < 1 {
		return Result{}, ErrInvalidQuantity
	}
	if s.InfillPercent < 0 || s.InfillPercent > 100 || s.Walls < 1 {
		return Result{}, fmt.Errorf("%w: infill %d%%, %d walls", ErrInvalidSettings, s.InfillPercent, s.Walls)
	}

	material, err := lookup(catalog.Materials, "material", s.Material)
	if err != nil {
		return Result{}, err
	}
	quality, err := lookup(catalog.Qualities, "quality", s.Quality)
	if err != nil {
		return Result{}, err
	}
	pattern, err := lookup(catalog.Patterns, "infill pattern", s.Pattern)
	if err != nil {
		return Result{}, err
	}
	rush, err := lookup(catalog.RushTiers, "rush tier", s.Rush)
	if err != nil {
		return Result{}, err
	}
	delivery, err := lookup(catalog.Deliveries, "delivery method", s.Delivery)
	if err != nil {
		return Result{}, err
	}

	var (
		weight float64
		hours  float64
		source Source
	)
	if in.Slicer.Usable() {
		weight = in.Slicer.FilamentUsedG
		hours = in.Slicer.PrintTimeSeconds / 3600
		source = slicerSource(in.Slicer.Source)
	} else {
		weight = CalculateWeight(in.Geometry, material, s)
		hours = EstimatePrintSeconds(in.Geometry, quality, s) / 3600
		source = SourceCalculated
	}

	basePrice := weight*material.PricePerGram + catalog.SetupFee
	basePrice *= quality.PriceMultiplier * pattern.PriceMultiplier
	unitPrice := math.Max(basePrice, material.MinPrice)

	qty := float64(s.Quantity)
	lineTotal := unitPrice * qty
	discount := catalog.DiscountFor(s.Quantity)
	discountAmount := lineTotal * discount.Percent / 100

	afterRush := (lineTotal - discountAmount) * rush.Multiplier
	subtotal := afterRush + delivery.Fee
	vat := subtotal * catalog.VATRate

	today := in.Today
	if today.IsZero() {
		today = time.Now()
	}
	y, m, d := today.Date()
	estimated := time.Date(y, m, d+rush.Days+delivery.Days, 0, 0, 0, 0, today.Location())

	return Result{
		WeightG:         weight,
		PrintTimeHours:  hours,
		UnitPrice:       unitPrice,
		Quantity:        s.Quantity,
		LineTotal:       lineTotal,
		DiscountPercent: discount.Percent,
		DiscountAmount:  discountAmount,
		RushMultiplier:  rush.Multiplier,
		AfterRush:       afterRush,
		DeliveryFee:     delivery.Fee,
		Subtotal:        subtotal,
		VAT:             vat,
		GrandTotal:      subtotal + vat,
		Source:          source,
		EstimatedDate:   estimated,
	}, nil
}

// CalculateWeight estimates filament grams from the model volume. A quarter
// of the volume is treated as shell (scaled by walls relative to three), the
// rest as infill.
func CalculateWeight(g analysis.Geometry, material Material, s Settings) float64 {
	shell := g.VolumeCM3 * 0.25 * (float64(s.Walls) / 3)
	infill := g.VolumeCM3 * 0.75 * (float64(s.InfillPercent) / 100)
	return (shell + infill) * material.Density
}

func slicerSource(s Source) Source {
	if s == SourceBambuStudio {
		return SourceBambuStudio
	}
	return SourceOrcaSlicer
}

// lookup finds a catalog entry by exact key, then case-insensitively
func lookup[V any](table map[string]V, kind, key string) (V, error) {
	if v, ok := table[key]; ok {
		return v, nil
	}
	for _, k := range sortedKeys(table) {
		if strings.EqualFold(k, key) {
			return table[k], nil
		}
	}
	var zero V
	return zero, fmt.Errorf("%w: %s %q", ErrUnknownOption, kind, key)
}
