package pattern

import (
	"fmt"
	"image"
	"slices"

	"golang.org/x/image/draw"
)

// Raster is a row-major grid of RGB pixels. The pixel at (x, y) is Pix[y*Width+x].
type Raster struct {
	Width  int
	Height int
	Pix    []RGB
}

func NewRaster(width, height int) (*Raster, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: raster %dx%d", ErrInvalidDimensions, width, height)
	}
	return &Raster{
		Width:  width,
		Height: height,
		Pix:    make([]RGB, width*height),
	}, nil
}

// Validate reports ErrSourceUnreadable for a raster whose buffer does not
// describe a width x height grid.
func (r *Raster) Validate() error {
	if r == nil {
		return fmt.Errorf("%w: no raster", ErrSourceUnreadable)
	}
	if r.Width <= 0 || r.Height <= 0 {
		return fmt.Errorf("%w: raster %dx%d", ErrSourceUnreadable, r.Width, r.Height)
	}
	if len(r.Pix) != r.Width*r.Height {
		return fmt.Errorf("%w: %d pixels for a %dx%d raster", ErrSourceUnreadable, len(r.Pix), r.Width, r.Height)
	}
	return nil
}

func (r *Raster) Clone() *Raster {
	return &Raster{Width: r.Width, Height: r.Height, Pix: slices.Clone(r.Pix)}
}

func (r *Raster) At(x, y int) RGB {
	return r.Pix[y*r.Width+x]
}

func (r *Raster) Set(x, y int, c RGB) {
	r.Pix[y*r.Width+x] = c
}

// FromImage copies img into a new raster, dropping alpha.
func FromImage(img image.Image) (*Raster, error) {
	b := img.Bounds()
	r, err := NewRaster(b.Dx(), b.Dy())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSourceUnreadable, err)
	}

	nrgba, ok := img.(*image.NRGBA)
	if !ok {
		nrgba = image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(nrgba, nrgba.Bounds(), img, b.Min, draw.Src)
		b = nrgba.Bounds()
	}

	for y := range r.Height {
		row := nrgba.Pix[(y+b.Min.Y-nrgba.Rect.Min.Y)*nrgba.Stride:]
		off := (b.Min.X - nrgba.Rect.Min.X) * 4
		for x := range r.Width {
			p := row[off+x*4 : off+x*4+3]
			r.Pix[y*r.Width+x] = RGB{p[0], p[1], p[2]}
		}
	}
	return r, nil
}

// Image returns an opaque copy of the raster.
func (r *Raster) Image() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, r.Width, r.Height))
	for i, c := range r.Pix {
		img.Pix[i*4] = c.R
		img.Pix[i*4+1] = c.G
		img.Pix[i*4+2] = c.B
		img.Pix[i*4+3] = 0xFF
	}
	return img
}
