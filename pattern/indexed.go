package pattern

import (
	"fmt"
	"image"
	"slices"
)

// Indexed is a row-major grid of palette indices bound to its palette.
// The index of pixel (x, y) is Pix[y*Width+x].
type Indexed struct {
	Width   int
	Height  int
	Pix     []uint8
	Palette Palette
}

func NewIndexed(width, height int, pal Palette) (*Indexed, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: indexed raster %dx%d", ErrInvalidDimensions, width, height)
	}
	if err := pal.Validate(1); err != nil {
		return nil, err
	}
	return &Indexed{
		Width:   width,
		Height:  height,
		Pix:     make([]uint8, width*height),
		Palette: pal,
	}, nil
}

// Validate checks the structural invariants: positive dimensions, a pixel
// buffer matching them, a palette of 1..256 entries and every index in range.
func (ix *Indexed) Validate() error {
	if ix == nil {
		return fmt.Errorf("%w: no indexed raster", ErrUnsupportedRaster)
	}
	if ix.Width <= 0 || ix.Height <= 0 || len(ix.Pix) != ix.Width*ix.Height {
		return fmt.Errorf("%w: %d indices for a %dx%d raster", ErrUnsupportedRaster, len(ix.Pix), ix.Width, ix.Height)
	}
	if err := ix.Palette.Validate(1); err != nil {
		return err
	}
	n := len(ix.Palette)
	for i, v := range ix.Pix {
		if int(v) >= n {
			return fmt.Errorf("%w: index %d at pixel %d exceeds palette of %d", ErrUnsupportedRaster, v, i, n)
		}
	}
	return nil
}

// Clone returns a deep copy, palette included.
func (ix *Indexed) Clone() *Indexed {
	return &Indexed{
		Width:   ix.Width,
		Height:  ix.Height,
		Pix:     slices.Clone(ix.Pix),
		Palette: ix.Palette.Clone(),
	}
}

func (ix *Indexed) At(x, y int) uint8 {
	return ix.Pix[y*ix.Width+x]
}

// Color returns the palette color of pixel (x, y).
func (ix *Indexed) Color(x, y int) RGB {
	return ix.Palette[ix.Pix[y*ix.Width+x]]
}

// Raster expands the indices back to their palette colors.
func (ix *Indexed) Raster() *Raster {
	r := &Raster{
		Width:  ix.Width,
		Height: ix.Height,
		Pix:    make([]RGB, len(ix.Pix)),
	}
	for i, v := range ix.Pix {
		r.Pix[i] = ix.Palette[v]
	}
	return r
}

// Paletted returns a copy as a standard library paletted image, for preview encoders.
func (ix *Indexed) Paletted() *image.Paletted {
	img := image.NewPaletted(image.Rect(0, 0, ix.Width, ix.Height), ix.Palette.ColorPalette())
	copy(img.Pix, ix.Pix)
	return img
}

// FromPaletted copies a paletted image into a new indexed raster.
func FromPaletted(img *image.Paletted) (*Indexed, error) {
	b := img.Bounds()
	ix, err := NewIndexed(b.Dx(), b.Dy(), PaletteFrom(img.Palette))
	if err != nil {
		return nil, err
	}
	for y := range ix.Height {
		off := img.PixOffset(b.Min.X, b.Min.Y+y)
		copy(ix.Pix[y*ix.Width:(y+1)*ix.Width], img.Pix[off:off+ix.Width])
	}
	if err := ix.Validate(); err != nil {
		return nil, err
	}
	return ix, nil
}
