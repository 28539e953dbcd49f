package generate

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"loomquant/export"
	"loomquant/parallel"
	"loomquant/pattern"

	"golang.org/x/image/bmp"
)

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, color.NRGBA{R: uint8(x * 40), G: uint8(y * 40), B: 90, A: 255})
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func defaults(scan string) *CLICmd {
	return &CLICmd{
		Scan:          scan,
		Dest:          "patterns",
		MaxColors:     16,
		Method:        "mediancut",
		Metadata:      true,
		PreviewTarget: 1600,
	}
}

func TestGenerateFolder(t *testing.T) {
	// given
	scan := t.TempDir()
	writePNG(t, filepath.Join(scan, "a.png"), 5, 4)
	writePNG(t, filepath.Join(scan, "b.png"), 3, 3)
	if err := os.WriteFile(filepath.Join(scan, "notes.txt"), []byte("skip me"), 0o644); err != nil {
		t.Fatal(err)
	}

	cmd := defaults(scan)
	cmd.Palette = "gray4"
	cmd.RepeatW, cmd.RepeatH = 8, 6
	cmd.Loom = "Dobby"
	cmd.Preview = true
	cmd.PreviewTarget = 32
	if err := cmd.Validate(nil); err != nil {
		t.Fatal(err)
	}

	// when
	pool := parallel.Start(2)
	err := cmd.Run(context.Background(), pool.Do, pool.Wait)

	// then
	if err != nil {
		t.Fatal(err)
	}
	dest := filepath.Join(scan, "patterns")
	for _, name := range []string{"a", "b"} {
		f, err := os.Open(filepath.Join(dest, name+".bmp"))
		if err != nil {
			t.Fatal(err)
		}
		img, err := bmp.Decode(f)
		f.Close()
		if err != nil {
			t.Fatal(err)
		}
		if b := img.Bounds(); b.Dx() != 8 || b.Dy() != 6 {
			t.Errorf("%s.bmp is %v, want 8x6", name, b)
		}

		mf, err := os.Open(filepath.Join(dest, name+".json"))
		if err != nil {
			t.Fatal(err)
		}
		m, err := export.ReadMetadata(mf)
		mf.Close()
		if err != nil {
			t.Fatal(err)
		}
		if m.PaletteName != "gray4" || len(m.Palette) != 4 || m.Loom == nil || m.Loom.Name != "Dobby" {
			t.Errorf("%s.json = %+v", name, m)
		}
		if m.SourceDescription != name+".png" {
			t.Errorf("%s.json source = %q", name, m.SourceDescription)
		}

		if _, err := os.Stat(filepath.Join(dest, name+".preview.png")); err != nil {
			t.Error(err)
		}
	}
	if _, err := os.Stat(filepath.Join(dest, "notes.bmp")); !os.IsNotExist(err) {
		t.Errorf("non-image file was processed: %v", err)
	}
}

func TestGenerateDerivedPaletteNoMetadata(t *testing.T) {
	scan := t.TempDir()
	writePNG(t, filepath.Join(scan, "c.png"), 6, 6)

	cmd := defaults(scan)
	cmd.MaxColors = 3
	cmd.Metadata = false
	cmd.Perceptual = true
	cmd.Dest = filepath.Join(t.TempDir(), "out")
	if err := cmd.Validate(nil); err != nil {
		t.Fatal(err)
	}

	pool := parallel.Start(1)
	if err := cmd.Run(context.Background(), pool.Do, pool.Wait); err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(filepath.Join(cmd.Dest, "c.bmp"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := bmp.Decode(f)
	if err != nil {
		t.Fatal(err)
	}
	seen := map[uint8]bool{}
	for _, v := range img.(*image.Paletted).Pix {
		seen[v] = true
	}
	if len(seen) > 3 {
		t.Errorf("used %d palette entries, want at most 3", len(seen))
	}
	if _, err := os.Stat(filepath.Join(cmd.Dest, "c.json")); !os.IsNotExist(err) {
		t.Errorf("metadata written with --no-metadata: %v", err)
	}
}

func TestGenerateReportsFailures(t *testing.T) {
	scan := t.TempDir()
	if err := os.WriteFile(filepath.Join(scan, "broken.png"), []byte("not a png"), 0o644); err != nil {
		t.Fatal(err)
	}

	cmd := defaults(scan)
	cmd.Palette = "bw"
	if err := cmd.Validate(nil); err != nil {
		t.Fatal(err)
	}
	pool := parallel.Start(1)
	if err := cmd.Run(context.Background(), pool.Do, pool.Wait); err == nil {
		t.Error("expected an error for an undecodable picture")
	}
}

func TestGenerateCancelled(t *testing.T) {
	scan := t.TempDir()
	writePNG(t, filepath.Join(scan, "d.png"), 4, 4)

	cmd := defaults(scan)
	cmd.Palette = "bw"
	if err := cmd.Validate(nil); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	pool := parallel.Start(1)
	err := cmd.Run(ctx, pool.Do, pool.Wait)
	if !errors.Is(err, pattern.ErrCancelled) {
		t.Errorf("got %v, want ErrCancelled", err)
	}
}

func TestValidate(t *testing.T) {
	scan := t.TempDir()
	file := filepath.Join(scan, "file.png")
	writePNG(t, file, 1, 1)

	tests := []struct {
		name   string
		mutate func(c *CLICmd)
	}{
		{"scan is a file", func(c *CLICmd) { c.Scan = file }},
		{"scan missing", func(c *CLICmd) { c.Scan = filepath.Join(scan, "missing") }},
		{"negative repeat", func(c *CLICmd) { c.RepeatW, c.RepeatH = -1, 4 }},
		{"half a repeat", func(c *CLICmd) { c.RepeatW = 4 }},
		{"unknown method", func(c *CLICmd) { c.Method = "octree" }},
		{"unknown palette", func(c *CLICmd) { c.Palette = filepath.Join(scan, "none.pal") }},
		{"negative preview", func(c *CLICmd) { c.PreviewTarget = -5 }},
		{"negative delta E", func(c *CLICmd) { c.DeltaE = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := defaults(scan)
			tt.mutate(cmd)
			if err := cmd.Validate(nil); err == nil {
				t.Error("expected a validation error")
			}
		})
	}

	cmd := defaults(scan)
	if err := cmd.Validate(nil); err != nil {
		t.Fatal(err)
	}
	if cmd.Dest != filepath.Join(cmd.Scan, "patterns") {
		t.Errorf("dest = %q, want it under the scan dir", cmd.Dest)
	}
}

func TestDeltaEImpliesPerceptual(t *testing.T) {
	// given
	scan := t.TempDir()
	writePNG(t, filepath.Join(scan, "e.png"), 4, 4)
	cmd := defaults(scan)
	cmd.Palette = "gray4"
	cmd.DeltaE = 2.5
	if err := cmd.Validate(nil); err != nil {
		t.Fatal(err)
	}

	// when
	opts := cmd.job("e.png").Options
	pool := parallel.Start(1)
	err := cmd.Run(context.Background(), pool.Do, pool.Wait)

	// then
	if err != nil {
		t.Fatal(err)
	}
	if !opts.Perceptual() || *opts.Tolerance != 2.5 {
		t.Errorf("delta E alone did not select perceptual matching: %+v", opts)
	}
	f, err := os.Open(filepath.Join(cmd.Dest, "e.json"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	m, err := export.ReadMetadata(f)
	if err != nil {
		t.Fatal(err)
	}
	if m.DeltaE == nil || *m.DeltaE != 2.5 {
		t.Errorf("metadata deltaE = %v, want 2.5", m.DeltaE)
	}

	cmd.DeltaE = 0
	if cmd.job("e.png").Options.Perceptual() {
		t.Error("zero delta E without --perceptual selected perceptual matching")
	}
}
