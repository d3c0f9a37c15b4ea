package scale

import (
	"fmt"
	"math"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// Default domain and gradient stops
var (
	DefaultMin = -1.0
	DefaultMax = 1.0

	Orange = colorful.Color{R: 1, G: 128.0 / 255, B: 51.0 / 255}
	White  = colorful.Color{R: 1, G: 1, B: 1}
	Blue   = colorful.Color{R: 51.0 / 255, G: 128.0 / 255, B: 1}
)

// Scale linearly maps a numeric domain onto a three-stop gradient: Low at Min,
// Mid at the midpoint and High at Max. Values outside the domain are clamped.
// A Scale is a plain value; create it once per response and pass it to every render.
type Scale struct {
	Min  float64
	Max  float64
	Low  colorful.Color
	Mid  colorful.Color
	High colorful.Color
}

// Default returns the [-1, 1] orange-white-blue scale
func Default() Scale {
	return Scale{Min: DefaultMin, Max: DefaultMax, Low: Orange, Mid: White, High: Blue}
}

// New returns the default gradient over a custom domain
func New(min, max float64) (Scale, error) {
	if math.IsNaN(min) || math.IsNaN(max) || math.IsInf(min, 0) || math.IsInf(max, 0) {
		return Scale{}, fmt.Errorf("scale bounds must be finite, got [%v, %v]", min, max)
	}
	if min >= max {
		return Scale{}, fmt.Errorf("scale min (%v) must be less than max (%v)", min, max)
	}

	s := Default()
	s.Min, s.Max = min, max
	return s, nil
}

// Param returns the clamped interpolation parameter for v in [0, 1].
// NaN maps to the midpoint.
func (s Scale) Param(v float64) float64 {
	if math.IsNaN(v) {
		return 0.5
	}

	t := (v - s.Min) / (s.Max - s.Min)
	switch {
	case t < 0:
		return 0
	case t > 1:
		return 1
	}
	return t
}

// Colour maps v through the two-segment gradient
func (s Scale) Colour(v float64) colorful.Color {
	t := s.Param(v)
	if t <= 0.5 {
		return s.Low.BlendRgb(s.Mid, t/0.5)
	}
	return s.Mid.BlendRgb(s.High, (t-0.5)/0.5)
}

// Hex returns Colour(v) as "#rrggbb"
func (s Scale) Hex(v float64) string {
	return s.Colour(v).Hex()
}
