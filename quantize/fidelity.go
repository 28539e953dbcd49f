package quantize

import (
	"fmt"

	"loomquant/cielab"
	"loomquant/pattern"
)

// Fidelity summarizes how far a quantized raster strays from its source, in
// CIE76 units.
type Fidelity struct {
	Mean float64
	Max  float64
}

// Measure compares ix against the src it was quantized from. Both must have
// the same dimensions.
func Measure(src *pattern.Raster, ix *pattern.Indexed) (Fidelity, error) {
	if err := src.Validate(); err != nil {
		return Fidelity{}, err
	}
	if err := ix.Validate(); err != nil {
		return Fidelity{}, err
	}
	if src.Width != ix.Width || src.Height != ix.Height {
		return Fidelity{}, fmt.Errorf("%w: source %dx%d, quantized %dx%d",
			pattern.ErrInvalidDimensions, src.Width, src.Height, ix.Width, ix.Height)
	}

	ref := make([]cielab.Lab, len(ix.Palette))
	for i, c := range ix.Palette {
		ref[i] = cielab.ToLab(c)
	}

	var (
		f   Fidelity
		sum float64
	)
	seen := make(map[pattern.RGB]cielab.Lab)
	for i, c := range src.Pix {
		lab, ok := seen[c]
		if !ok {
			lab = cielab.ToLab(c)
			seen[c] = lab
		}
		d := cielab.DeltaE(lab, ref[ix.Pix[i]])
		sum += d
		f.Max = max(f.Max, d)
	}
	f.Mean = sum / float64(len(src.Pix))
	return f, nil
}
