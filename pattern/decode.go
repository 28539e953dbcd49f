package pattern

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/vp8l"
	_ "golang.org/x/image/webp"
)

// Decode reads any registered image format into a raster. It returns the
// format name reported by image.Decode.
func Decode(r io.Reader) (*Raster, string, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, "", fmt.Errorf("%w: could not decode image: %w", ErrSourceUnreadable, err)
	}
	raster, err := FromImage(img)
	if err != nil {
		return nil, format, err
	}
	return raster, format, nil
}

func Load(path string) (r *Raster, format string, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("%w: could not open %q: %w", ErrSourceUnreadable, path, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("could not close %q: %w", path, closeErr)
		}
	}()

	r, format, err = Decode(f)
	if err != nil {
		return nil, "", fmt.Errorf("could not load %q: %w", path, err)
	}
	return r, format, nil
}
