package thumbnail

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/fogleman/fauxgl"
)

const (
	DefaultWidth       = 256
	DefaultHeight      = 256
	DefaultBackground  = "#f5f5f5"
	DefaultModelColor  = "#4a90d9"
	DefaultSupersample = 2

	maxDimension = 4096
)

// ErrInvalidOptions is returned for out-of-range sizes or malformed colors
var ErrInvalidOptions = errors.New("thumbnail: invalid options")

// Angle is the camera direction relative to the model, scaled by the
// framing distance. It does not need to be normalized.
type Angle struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	Z float64 `json:"z" yaml:"z"`
}

// DefaultAngle looks at the model from the front right, slightly above
var DefaultAngle = Angle{X: 1, Y: 0.8, Z: 1}

// Options control a single render. Zero fields take their defaults.
type Options struct {
	Width           int    `json:"width" yaml:"width"`
	Height          int    `json:"height" yaml:"height"`
	BackgroundColor string `json:"background_color" yaml:"background_color"`
	ModelColor      string `json:"model_color" yaml:"model_color"`
	CameraAngle     Angle  `json:"camera_angle" yaml:"camera_angle"`
	// Supersample renders at N times the size and scales down; 1 disables it
	Supersample int `json:"supersample" yaml:"supersample"`
	// Label is drawn in the lower left corner when set
	Label string `json:"label,omitempty" yaml:"label,omitempty"`
}

var hexColor = regexp.MustCompile(`^#?([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// withDefaults fills zero fields and validates the result
func (o Options) withDefaults() (Options, error) {
	if o.Width == 0 {
		o.Width = DefaultWidth
	}
	if o.Height == 0 {
		o.Height = DefaultHeight
	}
	if o.BackgroundColor == "" {
		o.BackgroundColor = DefaultBackground
	}
	if o.ModelColor == "" {
		o.ModelColor = DefaultModelColor
	}
	if o.CameraAngle == (Angle{}) {
		o.CameraAngle = DefaultAngle
	}
	if o.Supersample == 0 {
		o.Supersample = DefaultSupersample
	}

	if o.Width < 1 || o.Height < 1 || o.Width > maxDimension || o.Height > maxDimension {
		return o, fmt.Errorf("%w: size %dx%d", ErrInvalidOptions, o.Width, o.Height)
	}
	if o.Supersample < 1 || o.Supersample > 4 {
		return o, fmt.Errorf("%w: supersample %d", ErrInvalidOptions, o.Supersample)
	}
	for _, c := range []string{o.BackgroundColor, o.ModelColor} {
		if !hexColor.MatchString(c) {
			return o, fmt.Errorf("%w: color %q", ErrInvalidOptions, c)
		}
	}
	return o, nil
}

func (o Options) background() fauxgl.Color {
	return fauxgl.HexColor(o.BackgroundColor)
}

func (o Options) model() fauxgl.Color {
	return fauxgl.HexColor(o.ModelColor)
}
