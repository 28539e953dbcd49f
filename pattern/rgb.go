package pattern

import (
	"fmt"
	"image/color"
)

// MaxPaletteSize is the largest palette an indexed raster can carry, one byte per index.
const MaxPaletteSize = 256

// RGB is an opaque 8-bit sRGB triple.
type RGB struct {
	R, G, B uint8
}

// RGBOf drops the alpha channel of c without compositing it.
func RGBOf(c color.Color) RGB {
	switch v := c.(type) {
	case RGB:
		return v
	case color.NRGBA:
		return RGB{v.R, v.G, v.B}
	}
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return RGB{n.R, n.G, n.B}
}

func (c RGB) RGBA() (uint32, uint32, uint32, uint32) {
	r := uint32(c.R)
	g := uint32(c.G)
	b := uint32(c.B)
	return r | r<<8, g | g<<8, b | b<<8, 0xFFFF
}

func (c RGB) String() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// Palette is an ordered list of reference colors. Index order is significant:
// it becomes the bitmap color table and downstream label mapping.
type Palette []RGB

// Validate checks that the palette has between minSize and MaxPaletteSize entries.
func (p Palette) Validate(minSize int) error {
	switch {
	case len(p) == 0:
		return fmt.Errorf("%w: empty", ErrInvalidPalette)
	case len(p) < minSize:
		return fmt.Errorf("%w: %d colors, need at least %d", ErrInvalidPalette, len(p), minSize)
	case len(p) > MaxPaletteSize:
		return fmt.Errorf("%w: %d colors, at most %d allowed", ErrInvalidPalette, len(p), MaxPaletteSize)
	}
	return nil
}

func (p Palette) Clone() Palette {
	if p == nil {
		return nil
	}
	return append(make(Palette, 0, len(p)), p...)
}

// ColorPalette converts p to a standard library palette with opaque entries.
func (p Palette) ColorPalette() color.Palette {
	pal := make(color.Palette, len(p))
	for i, c := range p {
		pal[i] = color.RGBA{R: c.R, G: c.G, B: c.B, A: 0xFF}
	}
	return pal
}

func PaletteFrom(pal color.Palette) Palette {
	p := make(Palette, len(pal))
	for i, c := range pal {
		p[i] = RGBOf(c)
	}
	return p
}
