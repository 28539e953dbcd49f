// CIE 1976 L*a*b* under the D65 illuminant, reached through linear sRGB and CIE XYZ.

package cielab

import (
	"math"

	"loomquant/pattern"
)

// sRGB primaries to XYZ, D65.
var toXYZ = [9]float64{
	0.4124564, 0.3575761, 0.1804375,
	0.2126729, 0.7151522, 0.0721750,
	0.0193339, 0.1191920, 0.9503041,
}

var fromXYZ = [9]float64{
	3.2404542, -1.5371385, -0.4985314,
	-0.9692660, 1.8760108, 0.0415560,
	0.0556434, -0.2040259, 1.0572252,
}

// D65 reference white.
const (
	whiteX = 0.95047
	whiteY = 1.00000
	whiteZ = 1.08883
)

const (
	epsilon = 216.0 / 24389.0
	kappa   = 24389.0 / 27.0
)

type XYZ struct {
	X float64
	Y float64
	Z float64
}

type Lab struct {
	L float64 // lightness, 0 (black) to 100 (white)
	A float64 // green (-) to red (+)
	B float64 // blue (-) to yellow (+)
}

// ToLab converts one 8-bit sRGB color.
func ToLab(c pattern.RGB) Lab {
	return Linearize(c).XYZ().Lab()
}

func (lc LinearRGB) XYZ() XYZ {
	return XYZ{
		X: toXYZ[0]*lc.R + toXYZ[1]*lc.G + toXYZ[2]*lc.B,
		Y: toXYZ[3]*lc.R + toXYZ[4]*lc.G + toXYZ[5]*lc.B,
		Z: toXYZ[6]*lc.R + toXYZ[7]*lc.G + toXYZ[8]*lc.B,
	}
}

func (c XYZ) Lab() Lab {
	return labFromXYZ(c.X, c.Y, c.Z)
}

func labFromXYZ(x, y, z float64) Lab {
	fx := f(x / whiteX)
	fy := f(y / whiteY)
	fz := f(z / whiteZ)
	return Lab{
		L: 116*fy - 16,
		A: 500 * (fx - fy),
		B: 200 * (fy - fz),
	}
}

func f(t float64) float64 {
	if t > epsilon {
		return math.Cbrt(t)
	}
	return (kappa*t + 16) / 116
}

func fInv(t float64) float64 {
	if t3 := t * t * t; t3 > epsilon {
		return t3
	}
	return (116*t - 16) / kappa
}

func (lc Lab) XYZ() XYZ {
	fy := (lc.L + 16) / 116
	fx := fy + lc.A/500
	fz := fy - lc.B/200
	return XYZ{
		X: fInv(fx) * whiteX,
		Y: fInv(fy) * whiteY,
		Z: fInv(fz) * whiteZ,
	}
}

func (c XYZ) LinearRGB() LinearRGB {
	return LinearRGB{
		R: fromXYZ[0]*c.X + fromXYZ[1]*c.Y + fromXYZ[2]*c.Z,
		G: fromXYZ[3]*c.X + fromXYZ[4]*c.Y + fromXYZ[5]*c.Z,
		B: fromXYZ[6]*c.X + fromXYZ[7]*c.Y + fromXYZ[8]*c.Z,
	}
}

// RGB converts back to 8-bit sRGB, clipping colors outside the sRGB gamut.
func (lc Lab) RGB() pattern.RGB {
	return lc.XYZ().LinearRGB().RGB()
}

// DistanceSq is the squared CIE76 color difference.
func DistanceSq(p, q Lab) float64 {
	dL := p.L - q.L
	da := p.A - q.A
	db := p.B - q.B
	return dL*dL + da*da + db*db
}

// DeltaE is the CIE76 color difference.
func DeltaE(p, q Lab) float64 {
	return math.Sqrt(DistanceSq(p, q))
}
