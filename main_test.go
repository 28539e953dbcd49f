package main

import (
	"os"
	"path/filepath"
	"testing"

	"loomquant/export"
	"loomquant/quantize"

	"github.com/alecthomas/kong"
)

func parse(t *testing.T, args ...string) *CLI {
	t.Helper()
	var c CLI
	parser, err := kong.New(&c, vars(), kong.Name("loomquant"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := parser.Parse(args); err != nil {
		t.Fatal(err)
	}
	return &c
}

func TestDefaultsFollowPackages(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "in.png")
	if err := os.WriteFile(src, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	t.Run("generate", func(t *testing.T) {
		// when
		c := parse(t, "generate", "--scan", dir)

		// then
		if c.Generate.MaxColors != quantize.DefaultColors {
			t.Errorf("max colors %d, want %d", c.Generate.MaxColors, quantize.DefaultColors)
		}
		if c.Generate.PreviewTarget != export.DefaultPreviewTarget {
			t.Errorf("preview target %d, want %d", c.Generate.PreviewTarget, export.DefaultPreviewTarget)
		}
	})

	t.Run("palette", func(t *testing.T) {
		// when
		c := parse(t, "palette", src)

		// then
		if c.Palette.Colors != quantize.DefaultColors {
			t.Errorf("colors %d, want %d", c.Palette.Colors, quantize.DefaultColors)
		}
	})
}

func TestLogLevel(t *testing.T) {
	for in, want := range map[string]string{"debug": "DEBUG", "warn": "WARN", "bogus": "INFO"} {
		if got := logLevel(in).String(); got != want {
			t.Errorf("logLevel(%q) = %s, want %s", in, got, want)
		}
	}
}
