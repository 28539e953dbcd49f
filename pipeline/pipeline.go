// Package pipeline runs one pattern job end to end: load, quantize, tile and
// export.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"loomquant/bmp8"
	"loomquant/export"
	"loomquant/palette"
	"loomquant/pattern"
	"loomquant/quantize"
	"loomquant/resample"
	"loomquant/tile"
)

// Job describes a single conversion. Exactly one of Source and SourcePath is
// used; Source wins when both are set.
type Job struct {
	Source     *pattern.Raster
	SourcePath string

	// Fit resamples the source to this thread grid before quantizing. The
	// zero size keeps the source as is.
	Fit  tile.Size
	Crop bool

	// Palette is the fixed palette to snap to. nil derives one from the source.
	Palette *palette.Set
	Options quantize.Options

	// Repeat is the exact output size. The zero size falls back to the loom
	// report, and then to the source size.
	Repeat tile.Size
	Loom   *export.Loom

	// Bitmap is the destination of the BMP file. Without it nothing is written
	// and only the in-memory result is returned.
	Bitmap            string
	Metadata          bool
	PreviewTarget     int
	SourceDescription string
}

type Result struct {
	Indexed      *pattern.Indexed
	Metadata     *export.Metadata
	BitmapPath   string
	BitmapSize   int64
	MetadataPath string
	PreviewPath  string
}

// SidePath swaps the extension of a bitmap path for suffix.
func SidePath(bitmap, suffix string) string {
	return strings.TrimSuffix(bitmap, filepath.Ext(bitmap)) + suffix
}

// Run executes job. A nil logger logs to slog.Default().
func Run(ctx context.Context, job Job, logger *slog.Logger) (*Result, error) {
	if logger == nil {
		logger = slog.Default()
	}
	start := time.Now()

	src := job.Source
	if src == nil {
		if job.SourcePath == "" {
			return nil, fmt.Errorf("%w: no source given", pattern.ErrSourceUnreadable)
		}
		var (
			format string
			err    error
		)
		if src, format, err = pattern.Load(job.SourcePath); err != nil {
			return nil, err
		}
		logger.Debug("decoded source", "format", format, "width", src.Width, "height", src.Height)
	}

	if !job.Fit.IsZero() {
		fitted, err := resample.Fit(src, job.Fit.Width, job.Fit.Height, job.Crop)
		if err != nil {
			return nil, fmt.Errorf("could not resample source: %w", err)
		}
		logger.Debug("resampled", "width", fitted.Width, "height", fitted.Height, "crop", job.Crop)
		src = fitted
	}

	repeat := job.Repeat
	if repeat.IsZero() {
		repeat = job.Loom.Report()
	}
	if !repeat.IsZero() {
		if err := repeat.Validate(); err != nil {
			return nil, fmt.Errorf("invalid repeat size: %w", err)
		}
	}

	var pal pattern.Palette
	if job.Palette != nil {
		pal = job.Palette.Colors
	}

	ix, err := quantize.Quantize(ctx, src, pal, job.Options)
	if err != nil {
		return nil, err
	}
	logger.Debug("quantized",
		"colors", len(ix.Palette), "metric", job.Options.Metric(),
		"dither", job.Options.Dither && !job.Options.Perceptual(), "derived", len(pal) == 0)

	if logger.Enabled(ctx, slog.LevelDebug) {
		if f, err := quantize.Measure(src, ix); err == nil {
			logger.Debug("fidelity", "meanDeltaE", f.Mean, "maxDeltaE", f.Max)
		}
	}

	if ix, err = tile.Repeat(ix, repeat); err != nil {
		return nil, err
	}

	res := &Result{Indexed: ix}
	if job.Metadata || job.Bitmap != "" {
		if res.Metadata, err = metadata(ix, job); err != nil {
			return nil, err
		}
	}

	if job.Bitmap != "" {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %w", pattern.ErrCancelled, context.Cause(ctx))
		}
		if err := write(res, job); err != nil {
			return nil, err
		}
	}

	logger.Info("pattern ready",
		"width", ix.Width, "height", ix.Height, "colors", len(ix.Palette),
		"bitmap", res.BitmapPath, "elapsed", time.Since(start))
	return res, nil
}

func metadata(ix *pattern.Indexed, job Job) (*export.Metadata, error) {
	var labels export.Labels
	if job.Palette != nil {
		labels = job.Palette
	}

	desc := job.SourceDescription
	if desc == "" && job.SourcePath != "" {
		desc = filepath.Base(job.SourcePath)
	}

	m, err := export.Build(ix, labels, desc)
	if err != nil {
		return nil, err
	}
	if job.Palette != nil {
		m.PaletteName = job.Palette.Name
	}
	if t := job.Options.Tolerance; t != nil {
		deltaE := *t
		m.DeltaE = &deltaE
	}
	m.Loom = job.Loom
	if job.Bitmap != "" {
		m.Bitmap = filepath.Base(job.Bitmap)
	}
	return m, nil
}

func write(res *Result, job Job) error {
	n, err := bmp8.WriteFile(job.Bitmap, res.Indexed)
	if err != nil {
		return err
	}
	res.BitmapPath = job.Bitmap
	res.BitmapSize = n

	var errs []error
	if job.Metadata {
		path := SidePath(job.Bitmap, ".json")
		if err := res.Metadata.WriteFile(path); err != nil {
			errs = append(errs, err)
		} else {
			res.MetadataPath = path
		}
	}

	if job.PreviewTarget > 0 {
		path := SidePath(job.Bitmap, ".preview.png")
		img, err := export.Preview(res.Indexed, job.PreviewTarget)
		if err == nil {
			err = export.WritePNG(path, img)
		}
		if err != nil {
			errs = append(errs, err)
		} else {
			res.PreviewPath = path
		}
	}
	return errors.Join(errs...)
}
