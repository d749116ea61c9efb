package palette

import (
	"fmt"
	"math"
)

// Color is an 8-bit RGB display color.
type Color struct {
	R, G, B uint8
}

// String renders the color as a CSS rgb() value.
func (c Color) String() string {
	return fmt.Sprintf("rgb(%d,%d,%d)", c.R, c.G, c.B)
}

// Hex renders the color as #rrggbb.
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// HSV converts hue, saturation and value in [0,1] to a display color.
// Hue wraps around; saturation and value are clamped.
func HSV(h, s, v float64) Color {
	h = wrapUnit(h)
	s = clampUnit(s)
	v = clampUnit(v)

	sector := int(h * 6)
	f := h*6 - float64(sector)
	a := v * (1 - s)
	b := v * (1 - f*s)
	c := v * (1 - (1-f)*s)

	var r, g, bl float64
	switch sector {
	case 0:
		r, g, bl = v, c, a
	case 1:
		r, g, bl = b, v, a
	case 2:
		r, g, bl = a, v, c
	case 3:
		r, g, bl = a, b, v
	case 4:
		r, g, bl = c, a, v
	default:
		r, g, bl = v, a, b
	}
	return Color{R: channel(r), G: channel(g), B: channel(bl)}
}

func channel(x float64) uint8 {
	n := int(x * 256)
	if n > 255 {
		n = 255
	}
	if n < 0 {
		n = 0
	}
	return uint8(n)
}

func wrapUnit(x float64) float64 {
	x = math.Mod(x, 1)
	if x < 0 {
		x++
	}
	// -tiny + 1 can round up to exactly 1.
	if x >= 1 {
		x = 0
	}
	return x
}

func clampUnit(x float64) float64 {
	return math.Max(0, math.Min(1, x))
}
