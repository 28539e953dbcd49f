package cielab

import (
	"math"

	"loomquant/pattern"
)

// LinearRGB holds linear-light sRGB channels in [0,1].
type LinearRGB struct {
	R float64
	G float64
	B float64
}

// linearTable maps every 8-bit channel value through the inverse sRGB companding.
var linearTable = func() (t [256]float64) {
	for i := range t {
		t[i] = toLinear(float64(i) / 255)
	}
	return t
}()

func Linearize(c pattern.RGB) LinearRGB {
	return LinearRGB{
		R: linearTable[c.R],
		G: linearTable[c.G],
		B: linearTable[c.B],
	}
}

// RGB compands back to 8-bit sRGB, clipping out-of-gamut channels.
func (lc LinearRGB) RGB() pattern.RGB {
	return pattern.RGB{
		R: to8(fromLinear(lc.R)),
		G: to8(fromLinear(lc.G)),
		B: to8(fromLinear(lc.B)),
	}
}

func toLinear(x float64) float64 {
	if x <= 0.04045 {
		return x / 12.92
	}
	return math.Pow((x+0.055)/1.055, 2.4)
}

const pow float64 = 1.0 / 2.4

func fromLinear(x float64) float64 {
	if x >= 0.0031308 {
		return math.Pow(x, pow)*1.055 - 0.055
	}
	return x * 12.92
}

func to8(x float64) uint8 {
	return uint8(math.Round(min(max(x, 0), 1) * 255))
}
