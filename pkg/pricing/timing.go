package pricing

import (
	"math"

	"github.com/philipparndt/printquote/pkg/analysis"
)

const (
	perimeterSpeed   = 175.0 // mm/s
	infillSpeed      = 250.0 // mm/s
	lineWidth        = 0.4   // mm
	layerOverheadSec = 1.5
)

// EstimatePrintSeconds runs the layer-based time model: every layer pays for
// its perimeters, its infill lines and a fixed travel/retract overhead. The
// sum is stretched by the quality preset's speed factor.
func EstimatePrintSeconds(g analysis.Geometry, quality QualityPreset, s Settings) float64 {
	d := g.Dimensions
	if d.Height <= 0 || quality.LayerHeight <= 0 || quality.SpeedFactor <= 0 {
		return 0
	}
	layers := math.Ceil(d.Height / quality.LayerHeight)

	perimeter := 2 * (d.Width + d.Depth) * float64(s.Walls) / perimeterSpeed
	infillArea := d.Width * d.Depth * float64(s.InfillPercent) / 100
	infill := infillArea / lineWidth / infillSpeed

	return layers * (perimeter + infill + layerOverheadSec) / quality.SpeedFactor
}
