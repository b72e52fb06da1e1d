package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/alejandrodnm/arrivalmarket/config"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "simulator",
		Usage: "Two-sided arrival market: Poisson arrivals cleared at a uniform price",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Value: "config/config.yaml",
				Usage: "path to config file (.yaml or .toml)",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "set log level to debug",
			},
			&cli.StringFlag{
				Name:  "format",
				Usage: "log format: text|json (overrides config)",
			},
		},
		Commands: []*cli.Command{
			runCmd,
			clearCmd,
			sweepCmd,
			historyCmd,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// loadConfig carga la config global y deja el logger configurado.
func loadConfig(ctx *cli.Context) (*config.Config, error) {
	path := ctx.String("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config %q: %w", path, err)
	}
	if ctx.Bool("verbose") {
		cfg.Log.Level = "debug"
	}
	if f := ctx.String("format"); f != "" {
		cfg.Log.Format = f
	}
	setupLogger(cfg.Log)
	return cfg, nil
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}
