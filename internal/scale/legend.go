package scale

import (
	"fmt"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// Stop is one gradient stop of the legend
type Stop struct {
	Value float64 `json:"value"`
	Hex   string  `json:"hex"`
}

// Legend describes the scale for display next to the grids
type Legend struct {
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Stops    []Stop  `json:"stops"`
	Gradient string  `json:"gradient"`
}

// Legend returns the display description of the scale
func (s Scale) Legend() Legend {
	mid := s.Min + (s.Max-s.Min)/2
	return Legend{
		Min: s.Min,
		Max: s.Max,
		Stops: []Stop{
			{Value: s.Min, Hex: s.Low.Hex()},
			{Value: mid, Hex: s.Mid.Hex()},
			{Value: s.Max, Hex: s.High.Hex()},
		},
		Gradient: fmt.Sprintf("linear-gradient(to right, %s)",
			strings.Join([]string{cssRGB(s.Low), cssRGB(s.Mid), cssRGB(s.High)}, ", ")),
	}
}

func cssRGB(c colorful.Color) string {
	r, g, b := c.RGB255()
	return fmt.Sprintf("rgb(%d, %d, %d)", r, g, b)
}
