// Package bmp8 writes indexed rasters as uncompressed 8-bit BMP files.
//
// The output is a BITMAPFILEHEADER, a BITMAPINFOHEADER declaring 8 bits per
// pixel, a 256 entry BGRX color table (palette padded with black) and the
// index rows stored bottom-up, each padded to a 4 byte boundary. Headers carry
// no timestamps, so equal rasters always encode to equal bytes.
package bmp8

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"image"
	"io"

	"loomquant/atomicfile"
	"loomquant/pattern"
)

const (
	fileHeaderLen = 14
	infoHeaderLen = 40
	tableEntries  = 256
	tableLen      = tableEntries * 4
	pixelOffset   = fileHeaderLen + infoHeaderLen + tableLen

	// 96 dpi expressed in pixels per meter.
	pixelsPerMeter = 3780
)

// RowStride is the padded byte length of one stored row.
func RowStride(width int) int {
	return (width + 3) &^ 3
}

// FileSize is the exact encoded size of a width x height raster.
func FileSize(width, height int) int64 {
	return int64(pixelOffset) + int64(RowStride(width))*int64(height)
}

func header(ix *pattern.Indexed) []byte {
	imageSize := uint32(RowStride(ix.Width) * ix.Height)

	b := make([]byte, 0, pixelOffset)
	b = append(b, 'B', 'M')
	b = binary.LittleEndian.AppendUint32(b, uint32(pixelOffset)+imageSize)
	b = binary.LittleEndian.AppendUint32(b, 0) // reserved
	b = binary.LittleEndian.AppendUint32(b, pixelOffset)

	b = binary.LittleEndian.AppendUint32(b, infoHeaderLen)
	b = binary.LittleEndian.AppendUint32(b, uint32(int32(ix.Width)))
	b = binary.LittleEndian.AppendUint32(b, uint32(int32(ix.Height)))
	b = binary.LittleEndian.AppendUint16(b, 1) // planes
	b = binary.LittleEndian.AppendUint16(b, 8) // bits per pixel
	b = binary.LittleEndian.AppendUint32(b, 0) // BI_RGB
	b = binary.LittleEndian.AppendUint32(b, imageSize)
	b = binary.LittleEndian.AppendUint32(b, pixelsPerMeter)
	b = binary.LittleEndian.AppendUint32(b, pixelsPerMeter)
	b = binary.LittleEndian.AppendUint32(b, tableEntries) // colors used
	b = binary.LittleEndian.AppendUint32(b, tableEntries) // important colors

	for i := range tableEntries {
		var c pattern.RGB
		if i < len(ix.Palette) {
			c = ix.Palette[i]
		}
		b = append(b, c.B, c.G, c.R, 0)
	}
	return b
}

// Encode writes ix to w and returns the number of bytes written.
func Encode(w io.Writer, ix *pattern.Indexed) (int64, error) {
	if err := ix.Validate(); err != nil {
		return 0, fmt.Errorf("could not encode bitmap: %w", err)
	}

	bw := bufio.NewWriter(w)
	n, err := bw.Write(header(ix))
	written := int64(n)
	if err != nil {
		return written, fmt.Errorf("%w: could not write bitmap header: %w", pattern.ErrWrite, err)
	}

	pad := make([]byte, RowStride(ix.Width)-ix.Width)
	for y := ix.Height - 1; y >= 0; y-- {
		n, err = bw.Write(ix.Pix[y*ix.Width : (y+1)*ix.Width])
		written += int64(n)
		if err == nil && len(pad) > 0 {
			n, err = bw.Write(pad)
			written += int64(n)
		}
		if err != nil {
			return written, fmt.Errorf("%w: could not write bitmap row %d: %w", pattern.ErrWrite, y, err)
		}
	}

	if err := bw.Flush(); err != nil {
		return written, fmt.Errorf("%w: could not flush bitmap: %w", pattern.ErrWrite, err)
	}
	return written, nil
}

// EncodeImage accepts only paletted images; anything else is ErrUnsupportedRaster.
func EncodeImage(w io.Writer, img image.Image) (int64, error) {
	p, ok := img.(*image.Paletted)
	if !ok {
		return 0, fmt.Errorf("%w: %T is not an indexed image", pattern.ErrUnsupportedRaster, img)
	}
	ix, err := pattern.FromPaletted(p)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", pattern.ErrUnsupportedRaster, err)
	}
	return Encode(w, ix)
}

// WriteFile encodes ix into a temporary file next to path and renames it into
// place once complete, so path never holds a partial bitmap.
func WriteFile(path string, ix *pattern.Indexed) (int64, error) {
	if err := ix.Validate(); err != nil {
		return 0, fmt.Errorf("could not encode bitmap: %w", err)
	}

	var written int64
	err := atomicfile.Write(path, func(w io.Writer) (err error) {
		written, err = Encode(w, ix)
		return err
	})
	if err != nil {
		return 0, err
	}
	return written, nil
}
