package quantize

import (
	"context"

	"loomquant/match"
	"loomquant/pattern"
)

// FloydSteinberg quantizes src in raster-scan order, diffusing each pixel's
// error to its unvisited neighbours with weights 7/16 (right), 3/16 (below
// left), 5/16 (below) and 1/16 (below right). The carried value of each
// channel is clamped to [0,255] before matching. The scan is sequential.
func FloydSteinberg(ctx context.Context, src *pattern.Raster, m *match.Matcher) (*pattern.Indexed, error) {
	if err := src.Validate(); err != nil {
		return nil, err
	}
	pal := m.Palette()
	ix, err := pattern.NewIndexed(src.Width, src.Height, pal.Clone())
	if err != nil {
		return nil, err
	}

	w := src.Width
	// error rows padded by one pixel on each side, three channels per pixel
	cur := make([]float64, (w+2)*3)
	next := make([]float64, (w+2)*3)

	for y := range src.Height {
		if ctx.Err() != nil {
			return nil, match.Cancelled(ctx)
		}

		for x := range w {
			c := src.Pix[y*w+x]
			e := cur[(x+1)*3 : (x+2)*3]
			r := clamp255(float64(c.R) + e[0])
			g := clamp255(float64(c.G) + e[1])
			b := clamp255(float64(c.B) + e[2])

			i := m.IndexRGB(r, g, b)
			ix.Pix[y*w+x] = uint8(i)

			p := pal[i]
			diffuse(cur, next, x, r-float64(p.R), 0)
			diffuse(cur, next, x, g-float64(p.G), 1)
			diffuse(cur, next, x, b-float64(p.B), 2)
		}

		cur, next = next, cur
		clear(next)
	}

	return ix, nil
}

func diffuse(cur, next []float64, x int, e float64, ch int) {
	cur[(x+2)*3+ch] += e * 7 / 16
	next[x*3+ch] += e * 3 / 16
	next[(x+1)*3+ch] += e * 5 / 16
	next[(x+2)*3+ch] += e * 1 / 16
}

func clamp255(v float64) float64 {
	return min(max(v, 0), 255)
}
