package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"fieldops-map-backend/config"
	"fieldops-map-backend/internal/commands"
	"fieldops-map-backend/internal/logging"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var logCloser func()
	flags := &commands.Flags{}
	serve := commands.NewServeCmd(flags)

	app := &cli.Command{
		Name:      "fieldmapd",
		Usage:     "Work-order and technician map backend",
		UsageText: "fieldmapd [global options] [command [command options]]",
		Description: `fieldmapd reads work orders and technician positions from Airtable, serves the
map API and tracks technician movement and new assignments.

Run 'fieldmapd' with no command to start the server.`,
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "path to config file",
				Value:       commands.DefaultConfigPath(),
				Destination: &flags.ConfigPath,
			},
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "log level (debug, info, warn, error); overrides the config file",
				Sources:     cli.EnvVars("FIELDMAP_LOG_LEVEL"),
				Destination: &flags.LogLevel,
			},
			&cli.StringFlag{
				Name:        "log-file",
				Usage:       "path to log file (defaults to stdout)",
				Sources:     cli.EnvVars("FIELDMAP_LOG_FILE"),
				Destination: &flags.LogFile,
			},
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			cfg, err := config.Load(flags.ConfigPath)
			if err != nil {
				return ctx, fmt.Errorf("load config: %w", err)
			}
			flags.Config = cfg

			level, file := cfg.Log.Level, cfg.Log.File
			if flags.LogLevel != "" {
				level = flags.LogLevel
			}
			if flags.LogFile != "" {
				file = flags.LogFile
			}
			logger, closer, err := logging.New(level, file)
			if err != nil {
				return ctx, fmt.Errorf("setup logger: %w", err)
			}
			log.Logger = logger
			logCloser = closer
			return ctx, nil
		},
		After: func(ctx context.Context, c *cli.Command) error {
			if logCloser != nil {
				logCloser()
			}
			return nil
		},
		Action: serve.Command().Action,
	}

	app = serve.Register(app)
	app = commands.NewRenderCmd(flags).Register(app)
	app = commands.NewConfigCmd(flags).Register(app)

	if err := app.Run(ctx, os.Args); err != nil {
		log.Fatal().Err(err).Msg("fieldmapd failed")
	}
}
