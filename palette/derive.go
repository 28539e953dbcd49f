package palette

import (
	"fmt"
	"slices"

	"loomquant/pattern"

	"github.com/lucasb-eyer/go-colorful"
)

type Method int

const (
	// MethodMedianCut splits the color histogram into boxes. Deterministic.
	MethodMedianCut Method = iota
	// MethodKMeans clusters sampled pixels with k-means.
	MethodKMeans
	// MethodDominant uses the dominant-color extractor.
	MethodDominant
)

func (m Method) String() string {
	switch m {
	case MethodKMeans:
		return "kmeans"
	case MethodDominant:
		return "dominant"
	default:
		return "mediancut"
	}
}

func ParseMethod(s string) (Method, error) {
	switch s {
	case "", "mediancut":
		return MethodMedianCut, nil
	case "kmeans":
		return MethodKMeans, nil
	case "dominant":
		return MethodDominant, nil
	}
	return MethodMedianCut, fmt.Errorf("unknown palette method %q", s)
}

// Derive builds a palette of at most k colors (and at least one) from src,
// ordered from darkest to brightest.
func Derive(src *pattern.Raster, k int, method Method) (pattern.Palette, error) {
	if err := src.Validate(); err != nil {
		return nil, err
	}
	k = min(max(k, 1), pattern.MaxPaletteSize)

	var pal pattern.Palette
	switch method {
	case MethodKMeans:
		var err error
		if pal, err = KMeans(src, k); err != nil {
			return nil, err
		}
	case MethodDominant:
		pal = Dominant(src, k)
	default:
		pal = MedianCut(src, k)
	}
	if len(pal) == 0 {
		return nil, fmt.Errorf("%w: %s produced no colors", pattern.ErrInvalidPalette, method)
	}

	SortByLuminance(pal)
	return pal, nil
}

// SortByLuminance orders colors from darkest to brightest by the relative
// luminance of their linear RGB. Equal luminance keeps the input order.
func SortByLuminance(pal pattern.Palette) {
	lum := func(c pattern.RGB) float64 {
		r, g, b := colorful.Color{
			R: float64(c.R) / 255,
			G: float64(c.G) / 255,
			B: float64(c.B) / 255,
		}.LinearRgb()
		return 0.2126*r + 0.7152*g + 0.0722*b
	}
	slices.SortStableFunc(pal, func(a, b pattern.RGB) int {
		ya, yb := lum(a), lum(b)
		if ya < yb {
			return -1
		}
		if ya > yb {
			return 1
		}
		return 0
	})
}
