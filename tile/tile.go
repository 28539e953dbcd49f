// Package tile repeats a raster across a grid and crops it to an exact size.
package tile

import (
	"fmt"

	"loomquant/pattern"
)

// Size is a repeat target. The zero Size means no repeat was requested.
type Size struct {
	Width  int
	Height int
}

func (s Size) IsZero() bool {
	return s.Width == 0 && s.Height == 0
}

func (s Size) Validate() error {
	if s.Width <= 0 || s.Height <= 0 {
		return fmt.Errorf("%w: repeat target %dx%d", pattern.ErrInvalidDimensions, s.Width, s.Height)
	}
	return nil
}

// Tiles returns how many copies of a srcW x srcH raster are pasted along each
// axis to cover s, at least one each.
func (s Size) Tiles(srcW, srcH int) (int, int) {
	return max(1, (s.Width+srcW-1)/srcW), max(1, (s.Height+srcH-1)/srcH)
}

// Repeat pastes ix on a grid starting at the origin and crops the result to
// exactly size. A zero size returns an unchanged copy. The result never shares
// memory with ix.
func Repeat(ix *pattern.Indexed, size Size) (*pattern.Indexed, error) {
	if err := ix.Validate(); err != nil {
		return nil, err
	}
	if size.IsZero() {
		return ix.Clone(), nil
	}
	if err := size.Validate(); err != nil {
		return nil, err
	}

	out, err := pattern.NewIndexed(size.Width, size.Height, ix.Palette.Clone())
	if err != nil {
		return nil, err
	}
	paste(out.Pix, size, ix.Pix, ix.Width, ix.Height)
	return out, nil
}

// RepeatRaster is Repeat for RGB rasters.
func RepeatRaster(r *pattern.Raster, size Size) (*pattern.Raster, error) {
	if err := r.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", pattern.ErrUnsupportedRaster, err)
	}
	if size.IsZero() {
		return r.Clone(), nil
	}
	if err := size.Validate(); err != nil {
		return nil, err
	}

	out, err := pattern.NewRaster(size.Width, size.Height)
	if err != nil {
		return nil, err
	}
	paste(out.Pix, size, r.Pix, r.Width, r.Height)
	return out, nil
}

// paste fills dst, already cropped to size, with the tile grid of src.
func paste[T any](dst []T, size Size, src []T, srcW, srcH int) {
	tilesX, tilesY := size.Tiles(srcW, srcH)
	for ty := range tilesY {
		for sy := range srcH {
			y := ty*srcH + sy
			if y >= size.Height {
				return
			}
			row := src[sy*srcW : (sy+1)*srcW]
			for tx := range tilesX {
				x := tx * srcW
				if x >= size.Width {
					break
				}
				n := min(srcW, size.Width-x)
				copy(dst[y*size.Width+x:y*size.Width+x+n], row[:n])
			}
		}
	}
}
