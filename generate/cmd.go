// Package generate converts every picture of a folder into a loom pattern.
package generate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"loomquant/export"
	"loomquant/palette"
	"loomquant/parallel"
	"loomquant/pattern"
	"loomquant/pipeline"
	"loomquant/quantize"
	"loomquant/tile"

	"github.com/alecthomas/kong"
)

var imageExts = map[string]bool{
	".bmp": true, ".gif": true, ".jpeg": true, ".jpg": true,
	".png": true, ".tif": true, ".tiff": true, ".webp": true,
}

type CLICmd struct {
	Scan string `help:"Source folder to scan" default:"." env:"LOOMQUANT_SCAN"`
	Dest string `help:"Destination folder for patterns. Relative to scan dir if not absolute." default:"patterns" env:"LOOMQUANT_DEST"`

	Width  int  `help:"Resample pictures to this many threads before quantizing" group:"resize" env:"LOOMQUANT_WIDTH"`
	Height int  `help:"Resample pictures to this many picks before quantizing" group:"resize" env:"LOOMQUANT_HEIGHT"`
	Crop   bool `help:"Crop to keep the aspect ratio instead of fitting inside width x height" default:"false" group:"resize"`

	Palette    string  `help:"Palette name (bw, gray4, gray16, spectra6, vga16), RIFF .pal file or text palette file. Derived from each picture if empty." group:"palette" env:"LOOMQUANT_PALETTE"`
	MaxColors  int     `help:"Size of derived palettes, clamped to 2..256" default:"${max_colors}" group:"palette" env:"LOOMQUANT_MAX_COLORS"`
	Method     string  `help:"Palette derivation method" enum:"mediancut,kmeans,dominant" default:"mediancut" group:"palette" env:"LOOMQUANT_METHOD"`
	Dither     bool    `help:"Apply Floyd-Steinberg dithering (ignored with --perceptual)" default:"false" group:"palette" env:"LOOMQUANT_DITHER"`
	Perceptual bool    `help:"Match colors by CIE76 distance in Lab instead of RGB distance" default:"false" group:"palette" env:"LOOMQUANT_PERCEPTUAL"`
	DeltaE     float64 `help:"Perceptual tolerance in CIE76 units. A positive value implies --perceptual and is stored in the metadata record" default:"0" group:"palette" env:"LOOMQUANT_DELTA_E"`

	RepeatW int `help:"Repeat width in threads" group:"repeat"`
	RepeatH int `help:"Repeat height in picks" group:"repeat"`

	Loom    string  `help:"Loom name recorded in metadata" group:"loom" env:"LOOMQUANT_LOOM"`
	EPI     float64 `help:"Ends per inch" group:"loom" env:"LOOMQUANT_EPI"`
	PPI     float64 `help:"Picks per inch" group:"loom" env:"LOOMQUANT_PPI"`
	ReportW int     `help:"Loom report width, used as repeat width when none is given" group:"loom" env:"LOOMQUANT_REPORT_W"`
	ReportH int     `help:"Loom report height, used as repeat height when none is given" group:"loom" env:"LOOMQUANT_REPORT_H"`

	Metadata      bool `help:"Write a JSON metadata record next to each bitmap" default:"true" negatable:""`
	Preview       bool `help:"Write an upscaled PNG preview next to each bitmap" default:"false" group:"preview"`
	PreviewTarget int  `help:"Longest side the preview is scaled towards" default:"${preview_target}" group:"preview" env:"LOOMQUANT_PREVIEW_TARGET"`

	palette *palette.Set   `kong:"-"`
	method  palette.Method `kong:"-"`
}

func (c *CLICmd) Validate(kctx *kong.Context) error {
	scanDir, err := filepath.Abs(c.Scan)
	var info os.FileInfo
	if err == nil {
		if info, err = os.Stat(scanDir); err == nil && !info.IsDir() {
			err = fmt.Errorf("not a directory")
		}
	}
	if err != nil {
		return fmt.Errorf("invalid scan path %q: %w", c.Scan, err)
	}
	c.Scan = scanDir

	if !filepath.IsAbs(c.Dest) {
		c.Dest = filepath.Join(scanDir, c.Dest)
	}

	switch {
	case c.Width < 0 || c.Height < 0:
		return fmt.Errorf("invalid resize dimensions: %dx%d", c.Width, c.Height)
	case c.RepeatW < 0 || c.RepeatH < 0:
		return fmt.Errorf("invalid repeat size: %dx%d", c.RepeatW, c.RepeatH)
	case (c.RepeatW == 0) != (c.RepeatH == 0):
		return fmt.Errorf("repeat needs both width and height, got %dx%d", c.RepeatW, c.RepeatH)
	case c.DeltaE < 0:
		return fmt.Errorf("invalid delta E: %g", c.DeltaE)
	case c.PreviewTarget < 0:
		return fmt.Errorf("invalid preview target: %d", c.PreviewTarget)
	}

	if c.method, err = palette.ParseMethod(c.Method); err != nil {
		return err
	}

	if c.Palette != "" {
		if c.palette, err = palette.Load(c.Palette); err != nil {
			return err
		}
		if err := c.palette.Colors.Validate(quantize.MinColors); err != nil {
			return fmt.Errorf("palette %q: %w", c.Palette, err)
		}
	}

	return nil
}

func (c *CLICmd) job(fileName string) pipeline.Job {
	opts := quantize.Options{
		MaxColors: c.MaxColors,
		Dither:    c.Dither,
		Method:    c.method,
		// files already run in parallel
		Workers: 1,
	}
	if c.Perceptual || c.DeltaE > 0 {
		tolerance := c.DeltaE
		opts.Tolerance = &tolerance
	}

	var loom *export.Loom
	if c.Loom != "" || c.EPI > 0 || c.PPI > 0 || c.ReportW > 0 || c.ReportH > 0 {
		loom = &export.Loom{Name: c.Loom, EPI: c.EPI, PPI: c.PPI, ReportW: c.ReportW, ReportH: c.ReportH}
	}

	job := pipeline.Job{
		SourcePath: filepath.Join(c.Scan, fileName),
		Fit:        tile.Size{Width: c.Width, Height: c.Height},
		Crop:       c.Crop,
		Palette:    c.palette,
		Options:    opts,
		Repeat:     tile.Size{Width: c.RepeatW, Height: c.RepeatH},
		Loom:       loom,
		Bitmap:     filepath.Join(c.Dest, strings.TrimSuffix(fileName, filepath.Ext(fileName))+".bmp"),
		Metadata:   c.Metadata,
	}
	if c.Preview {
		job.PreviewTarget = c.PreviewTarget
	}
	return job
}

func (c *CLICmd) Run(ctx context.Context, worker parallel.WorkerFunc, wait parallel.WaitFunc) error {
	if err := os.MkdirAll(c.Dest, 0o755); err != nil {
		return fmt.Errorf("unable to create destination folder %q: %w", c.Dest, err)
	}

	files, err := os.ReadDir(c.Scan)
	if err != nil {
		return fmt.Errorf("unable to read folder %q: %w", c.Scan, err)
	}

	var processedCount, errCount, cancelCount atomic.Uint64
	for _, file := range files {
		if file.IsDir() || !imageExts[strings.ToLower(filepath.Ext(file.Name()))] {
			continue
		}

		worker(func(fileName string) func() {
			return func() {
				job := c.job(fileName)
				logger := slog.Default().With("file", job.SourcePath)

				if _, err := pipeline.Run(ctx, job, logger); err != nil {
					if errors.Is(err, pattern.ErrCancelled) {
						cancelCount.Add(1)
						return
					}
					errCount.Add(1)
					logger.Error("could not generate pattern", "error", err)
					return
				}
				processedCount.Add(1)
			}
		}(file.Name()))
	}

	wait(true)

	processed := processedCount.Load()
	failed := errCount.Load()
	cancelled := cancelCount.Load()
	slog.Info("stats", "processed", processed, "errors", failed, "cancelled", cancelled,
		"total", processed+failed+cancelled)

	if cancelled > 0 {
		return fmt.Errorf("%w: %d files skipped", pattern.ErrCancelled, cancelled)
	}
	if failed > 0 {
		return fmt.Errorf("error processing %d files", failed)
	}
	return nil
}
