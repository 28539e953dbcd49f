// Package resample scales a source picture to the thread grid of a pattern
// before it is quantized.
package resample

import (
	"fmt"
	"image"
	"math"

	"loomquant/pattern"

	"golang.org/x/image/draw"
)

// Fit scales r towards width x height with Catmull-Rom filtering. A zero
// side keeps the source size on that axis. With crop the result is exactly
// width x height and the source is trimmed around its center to keep its
// aspect ratio; otherwise the result fits inside the box and one side may
// come out shorter.
func Fit(r *pattern.Raster, width, height int, crop bool) (*pattern.Raster, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	if width < 0 || height < 0 || (width == 0 && height == 0) {
		return nil, fmt.Errorf("%w: resample target %dx%d", pattern.ErrInvalidDimensions, width, height)
	}

	srcWidth := float64(r.Width)
	srcHeight := float64(r.Height)

	destWidth := float64(width)
	if destWidth == 0 {
		destWidth = srcWidth
	}
	destHeight := float64(height)
	if destHeight == 0 {
		destHeight = srcHeight
	}

	if (srcWidth == destWidth) && (srcHeight == destHeight) {
		return r, nil
	}

	srcBounds := image.Rect(0, 0, r.Width, r.Height)
	destSize := image.Rect(0, 0, int(destWidth), int(destHeight))

	srcAR := srcWidth / srcHeight
	destAR := destWidth / destHeight
	if crop {
		if srcAR < destAR {
			dh := int(math.Round((srcHeight - srcWidth/destAR) / 2))
			srcBounds.Min.Y += dh
			srcBounds.Max.Y -= dh
		} else if srcAR > destAR {
			dw := int(math.Round((srcWidth - srcHeight*destAR) / 2))
			srcBounds.Min.X += dw
			srcBounds.Max.X -= dw
		}
	} else {
		if srcAR < destAR {
			destSize.Max.X = max(1, int(math.Round(destHeight*srcAR)))
		} else if srcAR > destAR {
			destSize.Max.Y = max(1, int(math.Round(destWidth/srcAR)))
		}
	}

	dest := image.NewNRGBA(destSize)
	draw.CatmullRom.Scale(dest, destSize, r.Image(), srcBounds, draw.Src, nil)
	return pattern.FromImage(dest)
}
