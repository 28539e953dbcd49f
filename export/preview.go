package export

import (
	"fmt"
	"image"

	"loomquant/pattern"

	"golang.org/x/image/draw"
)

// DefaultPreviewTarget is the longest side a preview is scaled towards.
const DefaultPreviewTarget = 1600

// PreviewScale is the integer factor that brings the longest side of a
// w x h raster closest to target without exceeding it. It is never below 1.
func PreviewScale(w, h, target int) int {
	longest := max(w, h)
	if longest <= 0 || target <= longest {
		return 1
	}
	return max(1, target/longest)
}

// Preview upscales ix by PreviewScale with nearest-neighbour sampling, so
// every pattern cell becomes a solid square.
func Preview(ix *pattern.Indexed, target int) (*image.Paletted, error) {
	if err := ix.Validate(); err != nil {
		return nil, fmt.Errorf("could not build preview: %w", err)
	}

	src := ix.Paletted()
	k := PreviewScale(ix.Width, ix.Height, target)
	if k == 1 {
		return src, nil
	}

	dst := image.NewPaletted(image.Rect(0, 0, ix.Width*k, ix.Height*k), src.Palette)
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst, nil
}

// Swatch renders one tileSize square per palette entry, left to right.
func Swatch(pal pattern.Palette, tileSize int) (*image.Paletted, error) {
	if err := pal.Validate(1); err != nil {
		return nil, fmt.Errorf("could not build swatch: %w", err)
	}
	if tileSize <= 0 {
		tileSize = 64
	}

	img := image.NewPaletted(image.Rect(0, 0, tileSize*len(pal), tileSize), pal.ColorPalette())
	for i := range pal {
		x0 := i * tileSize
		for y := range tileSize {
			row := img.Pix[y*img.Stride+x0 : y*img.Stride+x0+tileSize]
			for x := range row {
				row[x] = uint8(i)
			}
		}
	}
	return img, nil
}

// WriteSwatch renders pal with Swatch and writes it as PNG.
func WriteSwatch(path string, pal pattern.Palette, tileSize int) error {
	img, err := Swatch(pal, tileSize)
	if err != nil {
		return err
	}
	return WritePNG(path, img)
}
