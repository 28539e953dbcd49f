// Package match maps raster pixels to their nearest palette entry.
package match

import (
	"context"
	"fmt"
	"math"

	"loomquant/cielab"
	"loomquant/parallel"
	"loomquant/pattern"
)

type Metric int

const (
	// RGBEuclidean compares raw 8-bit channels.
	RGBEuclidean Metric = iota
	// LabCIE76 compares CIE Lab coordinates (squared delta E 1976).
	LabCIE76
)

func (m Metric) String() string {
	switch m {
	case LabCIE76:
		return "lab-cie76"
	default:
		return "rgb-euclidean"
	}
}

// MetricFor selects the metric implied by a perceptual tolerance. Any tolerance
// switches to LabCIE76; its value does not reject matches.
func MetricFor(tolerance *float64) Metric {
	if tolerance != nil {
		return LabCIE76
	}
	return RGBEuclidean
}

// rowsPerSpan keeps spans large enough that goroutine setup stays negligible.
const rowsPerSpan = 16

type Options struct {
	// Workers bounds the goroutines used for matching, 0 means GOMAXPROCS.
	Workers int
}

// Matcher finds nearest palette entries. The palette's Lab projection is
// computed once, when the matcher is built.
type Matcher struct {
	palette pattern.Palette
	metric  Metric
	lab     []cielab.Lab
}

func New(pal pattern.Palette, metric Metric) (*Matcher, error) {
	if err := pal.Validate(1); err != nil {
		return nil, err
	}
	m := &Matcher{
		palette: pal,
		metric:  metric,
	}
	if metric == LabCIE76 {
		m.lab = cielab.ToLabBatch(pal)
	}
	return m, nil
}

func (m *Matcher) Palette() pattern.Palette {
	return m.palette
}

// Index returns the nearest palette index for c. Exact ties go to the lowest index.
func (m *Matcher) Index(c pattern.RGB) int {
	if m.metric == LabCIE76 {
		return m.indexLab(cielab.ToLab(c))
	}
	return m.indexRGB(c)
}

func (m *Matcher) indexRGB(c pattern.RGB) int {
	ret, best := 0, math.MaxInt
	for i, v := range m.palette {
		dr := int(c.R) - int(v.R)
		dg := int(c.G) - int(v.G)
		db := int(c.B) - int(v.B)
		sum := dr*dr + dg*dg + db*db
		if sum < best {
			if sum == 0 {
				return i
			}
			ret, best = i, sum
		}
	}
	return ret
}

func (m *Matcher) indexLab(lc cielab.Lab) int {
	ret, best := 0, math.MaxFloat64
	for i, v := range m.lab {
		sum := cielab.DistanceSq(lc, v)
		if sum < best {
			if sum == 0 {
				return i
			}
			ret, best = i, sum
		}
	}
	return ret
}

// IndexRGB returns the palette entry nearest to an unrounded RGB value, as
// carried by error diffusion. The metric is always RGB euclidean.
func (m *Matcher) IndexRGB(r, g, b float64) int {
	ret, best := 0, math.MaxFloat64
	for i, v := range m.palette {
		dr := r - float64(v.R)
		dg := g - float64(v.G)
		db := b - float64(v.B)
		sum := dr*dr + dg*dg + db*db
		if sum < best {
			ret, best = i, sum
		}
	}
	return ret
}

// Match maps every pixel of src to the nearest entry of pal under metric.
// The context is checked once per row; a cancelled match returns no raster.
func Match(ctx context.Context, src *pattern.Raster, pal pattern.Palette, metric Metric, opts Options) (*pattern.Indexed, error) {
	if err := src.Validate(); err != nil {
		return nil, err
	}
	m, err := New(pal, metric)
	if err != nil {
		return nil, err
	}
	return m.Match(ctx, src, opts)
}

func (m *Matcher) Match(ctx context.Context, src *pattern.Raster, opts Options) (*pattern.Indexed, error) {
	if err := src.Validate(); err != nil {
		return nil, err
	}
	ix, err := pattern.NewIndexed(src.Width, src.Height, m.palette.Clone())
	if err != nil {
		return nil, err
	}

	switch m.metric {
	case LabCIE76:
		err = m.matchLab(ctx, src, ix.Pix, opts.Workers)
	default:
		err = m.matchRGB(ctx, src, ix.Pix, opts.Workers)
	}
	if err != nil {
		return nil, err
	}
	return ix, nil
}

func (m *Matcher) matchRGB(ctx context.Context, src *pattern.Raster, out []uint8, workers int) error {
	w := src.Width
	return parallel.Spans(ctx, workers, src.Height, rowsPerSpan, func(ctx context.Context, lo, hi int) error {
		for y := lo; y < hi; y++ {
			if ctx.Err() != nil {
				return Cancelled(ctx)
			}
			for i := y * w; i < (y+1)*w; i++ {
				out[i] = uint8(m.indexRGB(src.Pix[i]))
			}
		}
		return nil
	})
}

// matchLab converts each distinct color once, resolves the distinct colors,
// then scatters the result back over the raster.
func (m *Matcher) matchLab(ctx context.Context, src *pattern.Raster, out []uint8, workers int) error {
	seen := make(map[pattern.RGB]int32)
	var distinct []pattern.RGB
	ref := make([]int32, len(src.Pix))
	w := src.Width
	for y := range src.Height {
		if ctx.Err() != nil {
			return Cancelled(ctx)
		}
		for i := y * w; i < (y+1)*w; i++ {
			c := src.Pix[i]
			d, ok := seen[c]
			if !ok {
				d = int32(len(distinct))
				seen[c] = d
				distinct = append(distinct, c)
			}
			ref[i] = d
		}
	}

	labs := cielab.ToLabBatch(distinct)
	best := make([]uint8, len(distinct))
	err := parallel.Spans(ctx, workers, len(distinct), 1024, func(ctx context.Context, lo, hi int) error {
		if ctx.Err() != nil {
			return Cancelled(ctx)
		}
		for d := lo; d < hi; d++ {
			best[d] = uint8(m.indexLab(labs[d]))
		}
		return nil
	})
	if err != nil {
		return err
	}

	return parallel.Spans(ctx, workers, src.Height, rowsPerSpan, func(ctx context.Context, lo, hi int) error {
		for y := lo; y < hi; y++ {
			if ctx.Err() != nil {
				return Cancelled(ctx)
			}
			for i := y * w; i < (y+1)*w; i++ {
				out[i] = best[ref[i]]
			}
		}
		return nil
	})
}

// Cancelled wraps the context's cause in pattern.ErrCancelled.
func Cancelled(ctx context.Context) error {
	return fmt.Errorf("%w: %w", pattern.ErrCancelled, context.Cause(ctx))
}
