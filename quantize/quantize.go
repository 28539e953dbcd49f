// Package quantize snaps a raster to a palette, deriving the palette from the
// raster itself when the caller supplies none.
package quantize

import (
	"context"
	"fmt"

	"loomquant/match"
	"loomquant/palette"
	"loomquant/pattern"
)

const (
	MinColors     = 2
	MaxColors     = pattern.MaxPaletteSize
	DefaultColors = 16
)

// Options is the explicit configuration of one quantization call.
type Options struct {
	// MaxColors is the size of a derived palette, clamped to [MinColors, MaxColors].
	MaxColors int
	// Dither enables Floyd-Steinberg error diffusion. Ignored in perceptual mode.
	Dither bool
	// Tolerance switches matching to CIE76 when set. The value itself is
	// accepted but does not reject matches.
	Tolerance *float64
	// Method selects how a palette is derived when none is supplied.
	Method palette.Method
	// Workers bounds the goroutines used for matching, 0 means GOMAXPROCS.
	Workers int
}

func DefaultOptions() Options {
	return Options{MaxColors: DefaultColors}
}

// ClampColors coerces a requested color count into [MinColors, MaxColors].
func ClampColors(n int) int {
	return min(max(n, MinColors), MaxColors)
}

func (o Options) Perceptual() bool {
	return o.Tolerance != nil
}

func (o Options) Metric() match.Metric {
	return match.MetricFor(o.Tolerance)
}

// Quantize maps src onto pal. An empty pal derives a palette of
// ClampColors(opts.MaxColors) colors from src first. The returned raster is
// bound to the palette actually used.
func Quantize(ctx context.Context, src *pattern.Raster, pal pattern.Palette, opts Options) (*pattern.Indexed, error) {
	if err := src.Validate(); err != nil {
		return nil, fmt.Errorf("could not quantize: %w", err)
	}

	if len(pal) == 0 {
		derived, err := palette.Derive(src, ClampColors(opts.MaxColors), opts.Method)
		if err != nil {
			return nil, fmt.Errorf("could not derive palette: %w", err)
		}
		pal = derived
	} else if err := pal.Validate(MinColors); err != nil {
		return nil, fmt.Errorf("could not quantize: %w", err)
	}

	ix, err := Snap(ctx, src, pal, opts)
	if err != nil {
		return nil, fmt.Errorf("could not quantize: %w", err)
	}
	return ix, nil
}

// Snap maps src onto pal without deriving anything. Perceptual mode always
// snaps directly; otherwise Dither selects error diffusion.
func Snap(ctx context.Context, src *pattern.Raster, pal pattern.Palette, opts Options) (*pattern.Indexed, error) {
	m, err := match.New(pal.Clone(), opts.Metric())
	if err != nil {
		return nil, err
	}

	if opts.Dither && !opts.Perceptual() {
		return FloydSteinberg(ctx, src, m)
	}
	return m.Match(ctx, src, match.Options{Workers: opts.Workers})
}
