package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/devicelab-dev/uidriver/pkg/accessibility"
	"github.com/devicelab-dev/uidriver/pkg/config"
	"github.com/devicelab-dev/uidriver/pkg/logger"
	"github.com/devicelab-dev/uidriver/pkg/server"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"
)

var serveCommand = &cli.Command{
	Name:  "serve",
	Usage: "Start the automation HTTP server",
	Description: `Start the HTTP server on the configured bind address
(default 127.0.0.1:3000) and serve resolve, act, and expect requests
against the local accessibility tree.

Examples:
  uidriver serve
  uidriver serve --port 3001
  uidriver --backend memtree serve`,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "host",
			Usage: "Bind host",
		},
		&cli.IntFlag{
			Name:  "port",
			Usage: "Bind port",
		},
	},
	Action: runServe,
}

func runServe(c *cli.Context) error {
	cfg, log, err := loadConfig(c)
	if err != nil {
		return err
	}
	if c.IsSet("host") {
		cfg.Host = c.String("host")
	}
	if c.IsSet("port") {
		cfg.Port = c.Int("port")
	}

	adapter, launcher, err := accessibility.New(accessibility.Config{
		Backend: cfg.Backend,
		Socket:  cfg.BridgeSocket,
		Port:    cfg.BridgePort,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(cfg, logger.Component(log, "server"), adapter, launcher)
	return srv.ListenAndServe(ctx)
}

// loadConfig builds the effective configuration: file settings overlaid
// with global flags.
func loadConfig(c *cli.Context) (*config.Config, zerolog.Logger, error) {
	var cfg *config.Config
	var err error
	if path := c.String("config"); path != "" {
		cfg, err = config.Load(path)
	} else {
		cfg, err = config.LoadFromDir(".")
	}
	if err != nil {
		return nil, zerolog.Logger{}, err
	}

	if c.IsSet("backend") {
		cfg.Backend = c.String("backend")
	}
	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}
	if c.Bool("verbose") {
		cfg.LogLevel = "debug"
	}

	log := logger.New(logger.Options{Level: cfg.LogLevel, Console: true})
	return cfg, log, nil
}
