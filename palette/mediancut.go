package palette

import (
	"image/color"

	"loomquant/pattern"

	"github.com/ericpauley/go-quantize/quantize"
)

// MedianCut derives up to k colors by splitting the pixel-weighted color
// histogram at the median of its widest channel, each box averaged into one
// entry. The result depends only on the pixels, never on a random seed.
func MedianCut(r *pattern.Raster, k int) pattern.Palette {
	if k <= 0 {
		return nil
	}
	q := quantize.MedianCutQuantizer{Aggregation: quantize.Mean}
	return pattern.PaletteFrom(q.Quantize(make(color.Palette, 0, k), r.Image()))
}
