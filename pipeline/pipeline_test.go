package pipeline

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"loomquant/export"
	"loomquant/palette"
	"loomquant/pattern"
	"loomquant/quantize"
	"loomquant/tile"

	"golang.org/x/image/bmp"
)

var (
	black = pattern.RGB{}
	white = pattern.RGB{R: 255, G: 255, B: 255}
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func checker(t *testing.T) *pattern.Raster {
	t.Helper()
	r, err := pattern.NewRaster(2, 2)
	if err != nil {
		t.Fatal(err)
	}
	copy(r.Pix, []pattern.RGB{black, white, black, white})
	return r
}

func TestEndToEnd(t *testing.T) {
	// given
	dir := t.TempDir()
	job := Job{
		Source:            checker(t),
		Palette:           &palette.Set{Name: "bw", Colors: pattern.Palette{black, white}, Codes: []string{"K1", "W1"}},
		Options:           quantize.Options{MaxColors: quantize.DefaultColors},
		Repeat:            tile.Size{Width: 4, Height: 2},
		Bitmap:            filepath.Join(dir, "checker.bmp"),
		Metadata:          true,
		PreviewTarget:     16,
		SourceDescription: "unit test",
	}

	// when
	res, err := Run(context.Background(), job, quietLogger())
	if err != nil {
		t.Fatal(err)
	}

	// then
	if want := []uint8{0, 1, 0, 1, 0, 1, 0, 1}; !slices.Equal(res.Indexed.Pix, want) {
		t.Errorf("indices = %v, want %v", res.Indexed.Pix, want)
	}

	f, err := os.Open(res.BitmapPath)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := bmp.Decode(f)
	if err != nil {
		t.Fatal(err)
	}
	p := img.(*image.Paletted)
	if p.Palette[0] != (color.RGBA{A: 0xFF}) || p.Palette[1] != (color.RGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}) {
		t.Errorf("color table starts with %v %v", p.Palette[0], p.Palette[1])
	}
	if b := p.Bounds(); b.Dx() != 4 || b.Dy() != 2 {
		t.Errorf("bitmap is %v", b)
	}
	if !slices.Equal(p.Pix, res.Indexed.Pix) {
		t.Errorf("bitmap indices = %v", p.Pix)
	}

	mf, err := os.Open(res.MetadataPath)
	if err != nil {
		t.Fatal(err)
	}
	defer mf.Close()
	m, err := export.ReadMetadata(mf)
	if err != nil {
		t.Fatal(err)
	}
	if m.Width != 4 || m.Height != 2 || m.SourceDescription != "unit test" || m.Bitmap != "checker.bmp" || m.PaletteName != "bw" {
		t.Errorf("metadata = %+v", m)
	}
	if len(m.Palette) != 2 || m.Palette[1].Label != "W1" {
		t.Errorf("metadata palette = %+v", m.Palette)
	}

	pf, err := os.Open(res.PreviewPath)
	if err != nil {
		t.Fatal(err)
	}
	defer pf.Close()
	preview, err := png.Decode(pf)
	if err != nil {
		t.Fatal(err)
	}
	if b := preview.Bounds(); b.Dx() != 16 || b.Dy() != 8 {
		t.Errorf("preview is %v, want 16x8", b)
	}
	if res.PreviewPath != filepath.Join(dir, "checker.preview.png") {
		t.Errorf("preview path = %q", res.PreviewPath)
	}
}

func TestInMemoryOnly(t *testing.T) {
	res, err := Run(context.Background(), Job{Source: checker(t), Options: quantize.Options{MaxColors: 2}}, quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	if res.BitmapPath != "" || res.Metadata != nil {
		t.Errorf("unexpected outputs: %+v", res)
	}
	if want := (pattern.Palette{black, white}); !slices.Equal(res.Indexed.Palette, want) {
		t.Errorf("derived palette = %v, want %v", res.Indexed.Palette, want)
	}
	if want := []uint8{0, 1, 0, 1}; !slices.Equal(res.Indexed.Pix, want) {
		t.Errorf("indices = %v, want %v", res.Indexed.Pix, want)
	}
}

func TestDebugLogsFidelity(t *testing.T) {
	// given
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	// when
	if _, err := Run(context.Background(), Job{Source: checker(t), Options: quantize.Options{MaxColors: 2}}, logger); err != nil {
		t.Fatal(err)
	}

	// then
	if !strings.Contains(buf.String(), "msg=fidelity meanDeltaE=0 maxDeltaE=0") {
		t.Errorf("missing fidelity record in:\n%s", buf.String())
	}
}

func TestLoomReportFallback(t *testing.T) {
	job := Job{
		Source:  checker(t),
		Palette: &palette.Set{Colors: pattern.Palette{black, white}},
		Loom:    &export.Loom{Name: "test", ReportW: 5, ReportH: 3},
	}
	res, err := Run(context.Background(), job, quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	if res.Indexed.Width != 5 || res.Indexed.Height != 3 {
		t.Errorf("got %dx%d, want 5x3", res.Indexed.Width, res.Indexed.Height)
	}

	job.Repeat = tile.Size{Width: 2, Height: 1}
	if res, err = Run(context.Background(), job, quietLogger()); err != nil {
		t.Fatal(err)
	}
	if res.Indexed.Width != 2 || res.Indexed.Height != 1 {
		t.Errorf("explicit repeat ignored: got %dx%d", res.Indexed.Width, res.Indexed.Height)
	}
}

func TestSourcePath(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "stripes.png")

	img := image.NewNRGBA(image.Rect(0, 0, 3, 1))
	img.Set(0, 0, color.NRGBA{R: 250, G: 250, B: 250, A: 255})
	img.Set(1, 0, color.NRGBA{R: 5, A: 255})
	img.Set(2, 0, color.NRGBA{R: 250, G: 250, B: 250, A: 255})
	f, err := os.Create(src)
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	res, err := Run(context.Background(), Job{
		SourcePath: src,
		Palette:    &palette.Set{Colors: pattern.Palette{black, white}},
		Bitmap:     filepath.Join(dir, "out", "stripes.bmp"),
		Metadata:   true,
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if want := []uint8{1, 0, 1}; !slices.Equal(res.Indexed.Pix, want) {
		t.Errorf("indices = %v, want %v", res.Indexed.Pix, want)
	}
	if res.Metadata.SourceDescription != "stripes.png" {
		t.Errorf("source description = %q", res.Metadata.SourceDescription)
	}
	if res.PreviewPath != "" {
		t.Errorf("preview written without a target: %q", res.PreviewPath)
	}
	if _, err := os.Stat(filepath.Join(dir, "out", "stripes.json")); err != nil {
		t.Error(err)
	}
}

func TestErrors(t *testing.T) {
	ctx := context.Background()
	bw := &palette.Set{Colors: pattern.Palette{black, white}}

	tests := []struct {
		name string
		ctx  func() context.Context
		job  func(t *testing.T) Job
		want error
	}{
		{"no source", nil, func(*testing.T) Job { return Job{} }, pattern.ErrSourceUnreadable},
		{"missing file", nil, func(t *testing.T) Job {
			return Job{SourcePath: filepath.Join(t.TempDir(), "nope.png")}
		}, pattern.ErrSourceUnreadable},
		{"one color palette", nil, func(t *testing.T) Job {
			return Job{Source: checker(t), Palette: &palette.Set{Colors: pattern.Palette{black}}}
		}, pattern.ErrInvalidPalette},
		{"negative repeat", nil, func(t *testing.T) Job {
			return Job{Source: checker(t), Palette: bw, Repeat: tile.Size{Width: -1, Height: 4}}
		}, pattern.ErrInvalidDimensions},
		{"unwritable bitmap", nil, func(t *testing.T) Job {
			dir := t.TempDir()
			blocker := filepath.Join(dir, "file")
			if err := os.WriteFile(blocker, nil, 0o644); err != nil {
				t.Fatal(err)
			}
			return Job{Source: checker(t), Palette: bw, Bitmap: filepath.Join(blocker, "x.bmp")}
		}, pattern.ErrWrite},
		{"cancelled", func() context.Context {
			c, cancel := context.WithCancel(ctx)
			cancel()
			return c
		}, func(t *testing.T) Job {
			return Job{Source: checker(t), Palette: bw}
		}, pattern.ErrCancelled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runCtx := ctx
			if tt.ctx != nil {
				runCtx = tt.ctx()
			}
			res, err := Run(runCtx, tt.job(t), quietLogger())
			if !errors.Is(err, tt.want) {
				t.Fatalf("got %v, want %v", err, tt.want)
			}
			if res != nil {
				t.Errorf("got a result alongside error %v", err)
			}
		})
	}
}

func TestSidePath(t *testing.T) {
	if got := SidePath("/a/b/c.bmp", ".json"); got != "/a/b/c.json" {
		t.Errorf("got %q", got)
	}
	if got := SidePath("noext", ".preview.png"); got != "noext.preview.png" {
		t.Errorf("got %q", got)
	}
}

func TestFitBeforeQuantize(t *testing.T) {
	src, err := pattern.NewRaster(8, 4)
	if err != nil {
		t.Fatal(err)
	}
	for i := range src.Pix {
		src.Pix[i] = white
	}

	res, err := Run(context.Background(), Job{
		Source:  src,
		Palette: &palette.Set{Colors: pattern.Palette{black, white}},
		Fit:     tile.Size{Width: 4},
	}, quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	if res.Indexed.Width != 4 || res.Indexed.Height != 2 {
		t.Errorf("got %dx%d, want 4x2", res.Indexed.Width, res.Indexed.Height)
	}
	for i, v := range res.Indexed.Pix {
		if v != 1 {
			t.Fatalf("index %d = %d, want 1", i, v)
		}
	}

	_, err = Run(context.Background(), Job{
		Source:  src,
		Palette: &palette.Set{Colors: pattern.Palette{black, white}},
		Fit:     tile.Size{Width: -3},
	}, quietLogger())
	if !errors.Is(err, pattern.ErrInvalidDimensions) {
		t.Errorf("got %v, want ErrInvalidDimensions", err)
	}
}
