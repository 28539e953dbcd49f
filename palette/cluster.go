package palette

import (
	"fmt"
	"math"
	"slices"

	"loomquant/cielab"
	"loomquant/pattern"

	"github.com/cenkalti/dominantcolor"
	"github.com/muesli/clusters"
	"github.com/muesli/kmeans"
)

// maxSamples keeps k-means tractable on large rasters.
const maxSamples = 12000

// labSpan scales every Lab axis by the same factor so clustering stays CIE76
// while the coordinates fall inside the unit cube the seeding draws from.
const (
	labSpan   = 256
	labOffset = 128
)

// KMeans partitions a subsample of src into at most k clusters in Lab space
// and returns their centers, most populated first.
func KMeans(src *pattern.Raster, k int) (pattern.Palette, error) {
	step := 1
	if n := src.Width * src.Height; n > maxSamples {
		step = int(math.Sqrt(float64(n)/maxSamples)) + 1
	}

	dataset := make(clusters.Observations, 0, min(src.Width*src.Height, maxSamples))
	distinct := make(map[pattern.RGB]struct{})
	for y := 0; y < src.Height; y += step {
		for x := 0; x < src.Width; x += step {
			c := src.At(x, y)
			distinct[c] = struct{}{}
			lab := cielab.ToLab(c)
			dataset = append(dataset, clusters.Coordinates{
				lab.L / labSpan,
				(lab.A + labOffset) / labSpan,
				(lab.B + labOffset) / labSpan,
			})
		}
	}

	k = min(k, len(distinct))
	if k == 1 {
		for c := range distinct {
			return pattern.Palette{c}, nil
		}
	}

	km := kmeans.New()
	cc, err := km.Partition(dataset, k)
	if err != nil {
		return nil, fmt.Errorf("could not partition %d samples into %d clusters: %w", len(dataset), k, err)
	}

	slices.SortStableFunc(cc, func(a, b clusters.Cluster) int {
		return len(b.Observations) - len(a.Observations)
	})

	pal := make(pattern.Palette, 0, len(cc))
	for _, c := range cc {
		if len(c.Observations) == 0 || len(c.Center) < 3 {
			continue
		}
		pal = append(pal, cielab.Lab{
			L: c.Center[0] * labSpan,
			A: c.Center[1]*labSpan - labOffset,
			B: c.Center[2]*labSpan - labOffset,
		}.RGB())
	}
	return pal, nil
}

// Dominant returns up to k dominant colors of src, heaviest first.
func Dominant(src *pattern.Raster, k int) pattern.Palette {
	found := dominantcolor.FindWeight(src.Image(), k)
	pal := make(pattern.Palette, 0, len(found))
	for _, c := range found {
		pal = append(pal, pattern.RGB{R: c.RGBA.R, G: c.RGBA.G, B: c.RGBA.B})
	}
	return pal
}
