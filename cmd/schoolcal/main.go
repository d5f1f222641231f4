package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	appLog "schoolcal/internal/log"
)

const version = "0.3.0"

func main() {
	// .env is optional
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app := &cli.App{
		Name:    "schoolcal",
		Usage:   "Organise school calendar exports into day and term views.",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   "./schoolcal.yaml",
				EnvVars: []string{"SCHOOLCAL_CONFIG"},
				Usage:   "path to the YAML config file (created on first run)",
			},
		},
		Commands: []*cli.Command{
			serveCommand(),
			importCommand(),
			fetchCommand(),
			exportCommand(),
			dayCommand(),
			termCommand(),
			letterCommand(),
			addCommand(),
			deleteCommand(),
			clearCommand(),
			captureCommand(),
		},
	}

	if err := app.RunContext(ctx, os.Args); err != nil {
		appLog.Error("schoolcal failed", err)
		os.Exit(1)
	}
}
