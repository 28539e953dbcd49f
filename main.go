package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"loomquant/export"
	"loomquant/generate"
	"loomquant/palettecmd"
	"loomquant/parallel"
	"loomquant/quantize"

	"github.com/alecthomas/kong"
)

type CLI struct {
	Workers  int    `help:"Number of parallel workers, 0 uses all CPUs" default:"0" env:"LOOMQUANT_WORKERS"`
	LogLevel string `help:"Log level" enum:"debug,info,warn,error" default:"info" env:"LOOMQUANT_LOG_LEVEL"`

	Generate generate.CLICmd   `cmd:"" help:"Convert every picture of a folder into an indexed loom bitmap"`
	Palette  palettecmd.CLICmd `cmd:"" help:"Derive a palette from a picture"`
}

// vars feeds the package defaults into the flag tags so help and parsing agree
// with the library.
func vars() kong.Vars {
	return kong.Vars{
		"max_colors":     strconv.Itoa(quantize.DefaultColors),
		"preview_target": strconv.Itoa(export.DefaultPreviewTarget),
	}
}

func logLevel(s string) slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var cli CLI
	kctx := kong.Parse(&cli,
		vars(),
		kong.Name("loomquant"),
		kong.Description("Quantize pictures to yarn palettes and export loom bitmaps."),
		kong.UsageOnError(),
		kong.Configuration(kong.JSON, "~/.config/loomquant/config.json", "loomquant.json"),
		kong.BindTo(ctx, (*context.Context)(nil)),
	)

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel(cli.LogLevel),
	})))

	pool := parallel.Start(cli.Workers)
	slog.Debug("running", "command", kctx.Command(), "workers", pool.Size())

	err := kctx.Run(pool.Do, pool.Wait)
	pool.Wait(true)
	kctx.FatalIfErrorf(err)
}
