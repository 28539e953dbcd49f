// Package palettecmd derives a yarn palette from a picture and saves it for
// later runs of the generate command.
package palettecmd

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"loomquant/export"
	"loomquant/palette"
	"loomquant/pattern"
	"loomquant/quantize"

	"github.com/alecthomas/kong"
)

type CLICmd struct {
	Source   string `arg:"" help:"Picture to derive the palette from" type:"existingfile"`
	Out      string `help:"Palette file to write: RIFF when ending in .pal, text otherwise. Defaults to <source>.pal" short:"o"`
	Colors   int    `help:"Number of colors, clamped to 2..256" default:"${max_colors}" env:"LOOMQUANT_MAX_COLORS"`
	Method   string `help:"Derivation method" enum:"mediancut,kmeans,dominant" default:"mediancut" env:"LOOMQUANT_METHOD"`
	Swatch   string `help:"Also write a PNG swatch strip to this path"`
	TileSize int    `help:"Swatch square size in pixels" default:"64"`

	method palette.Method `kong:"-"`
}

func (c *CLICmd) Validate(kctx *kong.Context) error {
	var err error
	if c.method, err = palette.ParseMethod(c.Method); err != nil {
		return err
	}
	if c.Out == "" {
		c.Out = strings.TrimSuffix(c.Source, filepath.Ext(c.Source)) + ".pal"
	}
	if c.TileSize <= 0 {
		return fmt.Errorf("invalid swatch tile size: %d", c.TileSize)
	}
	return nil
}

func (c *CLICmd) Run() error {
	logger := slog.Default().With("file", c.Source)

	src, _, err := pattern.Load(c.Source)
	if err != nil {
		return err
	}

	pal, err := palette.Derive(src, quantize.ClampColors(c.Colors), c.method)
	if err != nil {
		return fmt.Errorf("could not derive palette: %w", err)
	}

	set := &palette.Set{
		Name:   strings.TrimSuffix(filepath.Base(c.Out), filepath.Ext(c.Out)),
		Colors: pal,
	}
	if err := palette.Save(c.Out, set); err != nil {
		return err
	}
	logger.Info("palette saved", "path", c.Out, "colors", len(pal), "method", c.method)

	if c.Swatch != "" {
		if err := export.WriteSwatch(c.Swatch, pal, c.TileSize); err != nil {
			return fmt.Errorf("could not write swatch: %w", err)
		}
		logger.Info("swatch saved", "path", c.Swatch)
	}
	return nil
}
