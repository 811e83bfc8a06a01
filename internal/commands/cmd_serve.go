package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/goliatone/go-formdee/internal/httpapi"
)

type ServeCmd struct {
	flags *Flags
	app   *App

	// flags
	addr string
}

// NewServeCmd creates a new serve command
func NewServeCmd(flags *Flags, app *App) *ServeCmd {
	return &ServeCmd{flags: flags, app: app}
}

// Register adds the serve command to the application
func (cmd *ServeCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "serve",
		Usage:     "Serve the forms API and HTML forms",
		UsageText: "formdee serve [--addr :8080]",
		Description: `Starts the HTTP server: the JSON API under /api, rendered forms under
/forms/{id} and Prometheus metrics on /metrics. Stops on SIGINT or SIGTERM.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "addr",
				Usage:       "listen address (overrides http.addr)",
				Sources:     cli.EnvVars("FORMDEE_HTTP_ADDR"),
				Destination: &cmd.addr,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *ServeCmd) run(ctx context.Context, _ *cli.Command) error {
	forms, err := cmd.app.Forms(ctx)
	if err != nil {
		return err
	}

	srv, err := httpapi.New(forms,
		httpapi.WithChecker(cmd.app.Checker()),
		httpapi.WithMetrics(cmd.app.Metrics),
		httpapi.WithLogger(cmd.app.Logger.With().Str("component", "http").Logger()),
		httpapi.WithCORSOrigins(cmd.app.Config.HTTP.CORSOrigins...),
	)
	if err != nil {
		return err
	}

	httpCfg := cmd.app.Config.HTTP
	if cmd.addr != "" {
		httpCfg.Addr = cmd.addr
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	return srv.Run(ctx, httpCfg)
}
