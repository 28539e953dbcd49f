package palette

import (
	"encoding/binary"
	"fmt"
	"io"

	"loomquant/pattern"

	"golang.org/x/image/riff"
)

/*
typedef struct tagLOGPALETTE {
  WORD         palVersion;
  WORD         palNumEntries;
  PALETTEENTRY palPalEntry[1];
} LOGPALETTE;

typedef struct tagPALETTEENTRY {
  BYTE peRed;
  BYTE peGreen;
  BYTE peBlue;
  BYTE peFlags;
} PALETTEENTRY;
*/

var (
	riffType = riff.FourCC{'R', 'I', 'F', 'F'}
	palType  = riff.FourCC{'P', 'A', 'L', ' '}
	dataType = riff.FourCC{'d', 'a', 't', 'a'}
)

// ReadRIFF reads every palette chunk of a RIFF PAL stream.
func ReadRIFF(r io.Reader) ([]pattern.Palette, error) {
	formType, rd, err := riff.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("could not open RIFF stream: %w", err)
	} else if formType != palType {
		return nil, fmt.Errorf("unsupported RIFF content type: %s", string(formType[:]))
	}

	return readPalettes(rd, string(formType[:]))
}

func readPalettes(r *riff.Reader, ident string) ([]pattern.Palette, error) {
	var res []pattern.Palette

	for {
		id, size, data, err := r.Next()
		if err != nil {
			if err == io.EOF {
				break
			}
			return res, fmt.Errorf("could not read chunk %q#%d: %w", ident, len(res), err)
		}

		if id == riff.LIST {
			listType, list, lerr := riff.NewListReader(size, data)
			if lerr != nil {
				return res, fmt.Errorf("could not read list from chunk %q#%d: %w", ident, len(res), lerr)
			} else if listType != palType {
				return res, fmt.Errorf("chunk %q#%d unsupported type: %s", ident, len(res), string(listType[:]))
			}

			listRes, lerr := readPalettes(list, fmt.Sprintf("%s%d.%s", ident, len(res), listType[:]))
			res = append(res, listRes...)
			if lerr != nil {
				return res, lerr
			}
			continue
		} else if id != dataType {
			return res, fmt.Errorf("unsupported chunk type in %q#%d: %s", ident, len(res), id)
		}

		pal, err := readPalette(data, fmt.Sprintf("%s%d", ident, len(res)))
		if err != nil {
			return res, err
		}

		res = append(res, pal)
	}

	return res, nil
}

func readPalette(r io.Reader, ident string) (pattern.Palette, error) {
	var head [4]byte
	if _, err := io.ReadFull(r, head[:]); err != nil {
		return nil, fmt.Errorf("could not read header of chunk %s: %w", ident, err)
	}

	if ver := binary.BigEndian.Uint16(head[:2]); ver != 3 {
		return nil, fmt.Errorf("unsupported palette version in chunk %s: %d", ident, ver)
	}

	count := int(binary.LittleEndian.Uint16(head[2:]))
	if count > pattern.MaxPaletteSize {
		return nil, fmt.Errorf("%w: chunk %s declares %d colors", pattern.ErrInvalidPalette, ident, count)
	}

	buf := make([]byte, count*4)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("could not read %d colors from chunk %s: %w", count, ident, err)
	}

	res := make(pattern.Palette, count)
	for i := range res {
		res[i] = pattern.RGB{R: buf[i*4], G: buf[i*4+1], B: buf[i*4+2]}
	}
	return res, nil
}

// WriteRIFF writes pals as a RIFF PAL stream with one data chunk per palette.
// It returns the number of colors written.
func WriteRIFF(w io.Writer, pals ...pattern.Palette) (int64, error) {
	n := 4
	for _, pal := range pals {
		n += 4 + 4 + 4 + len(pal)*4 // chunk id + chunk size + palVersion + palNumEntries + 4 bytes/color
	}

	head := make([]byte, 0, 12)
	head = append(head, riffType[:]...)
	head = binary.LittleEndian.AppendUint32(head, uint32(n))
	head = append(head, palType[:]...)
	if err := writeBytes(w, head); err != nil {
		return 0, fmt.Errorf("could not write RIFF header: %w", err)
	}

	var count int64
	for i, pal := range pals {
		if err := writePalette(w, pal); err != nil {
			return count, fmt.Errorf("could not write chunk %d: %w", i, err)
		}
		count += int64(len(pal))
	}

	return count, nil
}

func writePalette(w io.Writer, pal pattern.Palette) error {
	buf := make([]byte, 0, 12+len(pal)*4)
	buf = append(buf, dataType[:]...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(4+len(pal)*4))
	buf = append(buf, 0, 0x03)
	buf = binary.LittleEndian.AppendUint16(buf, uint16(len(pal)))
	for _, c := range pal {
		buf = append(buf, c.R, c.G, c.B, 0x00)
	}
	return writeBytes(w, buf)
}

func writeBytes(w io.Writer, b []byte) error {
	n, err := w.Write(b)
	if err != nil {
		return err
	} else if n != len(b) {
		return fmt.Errorf("wrote only %d/%d bytes", n, len(b))
	}

	return nil
}
