package main

import (
	"context"
	"fmt"
	"os"
	"runtime/debug"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/goliatone/go-formdee/internal/commands"
	"github.com/goliatone/go-formdee/internal/config"
	"github.com/goliatone/go-formdee/pkg/logutils"
)

var (
	// Build information. Populated at build-time via -ldflags flag.
	version = "dev"
	commit  = "HEAD"
)

func build() string {
	v, c := version, commit
	if v == "dev" {
		if info, ok := debug.ReadBuildInfo(); ok {
			if mv := info.Main.Version; mv != "" && mv != "(devel)" {
				v = mv
			}
			for _, s := range info.Settings {
				if s.Key == "vcs.revision" {
					c = s.Value
				}
			}
		}
	}
	if len(c) > 7 {
		c = c[:7]
	}
	return fmt.Sprintf("%s (%s)", v, c)
}

func main() {
	ctx := context.Background()

	var (
		logCloser func()
		app       = &commands.App{}
	)

	flags := &commands.Flags{}

	root := &cli.Command{
		Name:      "formdee",
		Usage:     "Build, validate and collect responses for web forms",
		UsageText: "formdee [global options] command [command options]",
		Description: `formdee manages form definitions made of typed fields with optional
validation rules. Forms live in JSON or YAML files or in a SQLite store, can be
checked, rendered to HTML, described as OpenAPI, filled in from the terminal and
served over HTTP.`,
		Version: build(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "log level (debug, info, warn, error, fatal, panic)",
				Sources:     cli.EnvVars("FORMDEE_LOG_LEVEL"),
				Destination: &flags.LogLevel,
			},
			&cli.StringFlag{
				Name:        "log-file",
				Usage:       "path to log file (defaults to stderr)",
				Sources:     cli.EnvVars("FORMDEE_LOG_FILE"),
				Destination: &flags.LogFile,
			},
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "path to config file",
				Sources:     cli.EnvVars("FORMDEE_CONFIG"),
				Value:       commands.DefaultConfigPath(),
				Destination: &flags.ConfigPath,
			},
			&cli.StringFlag{
				Name:        "db",
				Usage:       "SQLite database path (overrides database.dsn)",
				Sources:     cli.EnvVars("FORMDEE_DB"),
				Destination: &flags.DSN,
			},
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			cfg, err := config.Load(flags.ConfigPath)
			if err != nil {
				return ctx, fmt.Errorf("load config: %w", err)
			}
			if flags.LogLevel != "" {
				cfg.Log.Level = flags.LogLevel
			}
			if flags.LogFile != "" {
				cfg.Log.File = flags.LogFile
			}
			if flags.DSN != "" {
				cfg.Database.DSN = flags.DSN
			}
			flags.Config = cfg

			logger, closer, err := logutils.New(cfg.Log.Level, cfg.Log.File)
			if err != nil {
				return ctx, fmt.Errorf("setup logger: %w", err)
			}
			log.Logger = logger
			logCloser = closer

			if err := app.Init(cfg, logger); err != nil {
				return ctx, fmt.Errorf("init: %w", err)
			}
			return ctx, nil
		},
		After: func(ctx context.Context, c *cli.Command) error {
			if err := app.Close(); err != nil {
				log.Error().Err(err).Msg("failed to close database")
				return err
			}
			if logCloser != nil {
				logCloser()
			}
			return nil
		},
	}

	root = commands.NewRulesCmd(flags, app).Register(root)
	root = commands.NewPatternCmd(flags, app).Register(root)
	root = commands.NewCheckCmd(flags, app).Register(root)
	root = commands.NewSubmitCmd(flags, app).Register(root)
	root = commands.NewSchemaCmd(flags, app).Register(root)
	root = commands.NewRenderCmd(flags, app).Register(root)
	root = commands.NewFormsCmd(flags, app).Register(root)
	root = commands.NewRespondCmd(flags, app).Register(root)
	root = commands.NewBuildCmd(flags, app).Register(root)
	root = commands.NewServeCmd(flags, app).Register(root)

	exitCode := 0
	if err := root.Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		exitCode = 1
	}

	os.Exit(exitCode)
}
