package palette

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"loomquant/atomicfile"
	"loomquant/pattern"

	"github.com/lucasb-eyer/go-colorful"
)

// Set is a palette together with the optional yarn labels of its entries.
// Codes and Names are either empty or as long as Colors.
type Set struct {
	Name   string
	Colors pattern.Palette
	Codes  []string
	Names  []string
}

// Code returns the yarn code of entry i, or "".
func (s *Set) Code(i int) string {
	if i < len(s.Codes) {
		return s.Codes[i]
	}
	return ""
}

// YarnName returns the yarn name of entry i, or "".
func (s *Set) YarnName(i int) string {
	if i < len(s.Names) {
		return s.Names[i]
	}
	return ""
}

var builtin = map[string]pattern.Palette{
	"bw": {{0, 0, 0}, {255, 255, 255}},
	"gray4": {
		{0, 0, 0}, {85, 85, 85}, {170, 170, 170}, {255, 255, 255},
	},
	"gray16": grayRamp(16),
	"spectra6": {
		{0, 0, 0}, {255, 255, 255}, {255, 0, 0}, {0, 255, 0}, {0, 0, 255}, {255, 255, 0},
	},
	"vga16": {
		{0x00, 0x00, 0x00}, {0x00, 0x00, 0xAA}, {0x00, 0xAA, 0x00}, {0x00, 0xAA, 0xAA},
		{0xAA, 0x00, 0x00}, {0xAA, 0x00, 0xAA}, {0xAA, 0x55, 0x00}, {0xAA, 0xAA, 0xAA},
		{0x55, 0x55, 0x55}, {0x55, 0x55, 0xFF}, {0x55, 0xFF, 0x55}, {0x55, 0xFF, 0xFF},
		{0xFF, 0x55, 0x55}, {0xFF, 0x55, 0xFF}, {0xFF, 0xFF, 0x55}, {0xFF, 0xFF, 0xFF},
	},
}

func grayRamp(n int) pattern.Palette {
	p := make(pattern.Palette, n)
	for i := range p {
		v := uint8(i * 255 / (n - 1))
		p[i] = pattern.RGB{R: v, G: v, B: v}
	}
	return p
}

// Builtin returns the names of the palettes available without a file.
func Builtin() []string {
	return []string{"bw", "gray4", "gray16", "spectra6", "vga16"}
}

// Load resolves a built-in palette name, a RIFF .pal file or a text palette file.
func Load(name string) (*Set, error) {
	if pal, ok := builtin[name]; ok {
		return &Set{Name: name, Colors: pal.Clone()}, nil
	}

	f, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("could not open palette %q: %w", name, err)
	}
	defer f.Close()

	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	if strings.EqualFold(filepath.Ext(name), ".pal") {
		pals, err := ReadRIFF(f)
		if err != nil {
			return nil, fmt.Errorf("could not load palette %q: %w", name, err)
		}
		var colors pattern.Palette
		for _, p := range pals {
			colors = append(colors, p...)
		}
		if err := colors.Validate(1); err != nil {
			return nil, fmt.Errorf("could not load palette %q: %w", name, err)
		}
		return &Set{Name: base, Colors: colors}, nil
	}

	set, err := ReadText(f)
	if err != nil {
		return nil, fmt.Errorf("could not load palette %q: %w", name, err)
	}
	set.Name = base
	return set, nil
}

// ReadText parses one color per line: "#RRGGBB [code [name ...]]". Blank
// lines and lines starting with "//" are skipped.
func ReadText(r io.Reader) (*Set, error) {
	set := &Set{}
	labelled := false

	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "//") {
			continue
		}

		fields := strings.Fields(text)
		hex := fields[0]
		if !strings.HasPrefix(hex, "#") {
			hex = "#" + hex
		}
		col, err := colorful.Hex(hex)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid color %q: %w", line, fields[0], err)
		}
		r, g, b := col.RGB255()
		set.Colors = append(set.Colors, pattern.RGB{R: r, G: g, B: b})

		var code, name string
		if len(fields) > 1 {
			code = fields[1]
			labelled = true
		}
		if len(fields) > 2 {
			name = strings.Join(fields[2:], " ")
		}
		set.Codes = append(set.Codes, code)
		set.Names = append(set.Names, name)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("could not read palette: %w", err)
	}

	if err := set.Colors.Validate(1); err != nil {
		return nil, err
	}
	if !labelled {
		set.Codes, set.Names = nil, nil
	}
	return set, nil
}

// WriteText writes s in the format read by ReadText.
func WriteText(w io.Writer, s *Set) error {
	bw := bufio.NewWriter(w)
	for i, c := range s.Colors {
		line := c.String()
		if code := s.Code(i); code != "" {
			line += " " + code
			if name := s.YarnName(i); name != "" {
				line += " " + name
			}
		}
		if _, err := fmt.Fprintln(bw, line); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// Save writes s to path: RIFF for ".pal" files, the text format otherwise.
// Text output keeps the yarn labels, RIFF output drops them.
func Save(path string, s *Set) error {
	if err := s.Colors.Validate(1); err != nil {
		return err
	}

	err := atomicfile.Write(path, func(w io.Writer) error {
		if strings.EqualFold(filepath.Ext(path), ".pal") {
			_, err := WriteRIFF(w, s.Colors)
			return err
		}
		return WriteText(w, s)
	})
	if err != nil {
		return fmt.Errorf("could not write palette %q: %w", path, err)
	}
	return nil
}
