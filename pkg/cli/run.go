package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/devicelab-dev/uidriver/pkg/accessibility"
	"github.com/devicelab-dev/uidriver/pkg/flow"
	"github.com/devicelab-dev/uidriver/pkg/logger"
	"github.com/urfave/cli/v2"
)

var runCommand = &cli.Command{
	Name:      "run",
	Usage:     "Run YAML flow files against the local desktop",
	ArgsUsage: "<flow-file>...",
	Description: `Parse and execute one or more flow files, in order. The run
stops at the first failing flow.

Examples:
  uidriver run smoke.yaml
  uidriver run flows/login.yaml flows/checkout.yaml
  uidriver run smoke.yaml -e USER=test -e PASS=secret`,
	Flags: []cli.Flag{
		&cli.StringSliceFlag{
			Name:    "env",
			Aliases: []string{"e"},
			Usage:   "Flow variables (KEY=VALUE)",
		},
	},
	Action: runFlows,
}

func runFlows(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("no flow files given")
	}

	cfg, log, err := loadConfig(c)
	if err != nil {
		return err
	}

	adapter, launcher, err := accessibility.New(accessibility.Config{
		Backend: cfg.Backend,
		Socket:  cfg.BridgeSocket,
		Port:    cfg.BridgePort,
	})
	if err != nil {
		return err
	}

	env, err := parseEnv(c.StringSlice("env"))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := flow.NewRunner(adapter, launcher, logger.Component(log, "runner"))

	for _, path := range c.Args().Slice() {
		f, err := flow.ParseFile(path)
		if err != nil {
			return err
		}
		if f.Config.Env == nil {
			f.Config.Env = make(map[string]string)
		}
		for k, v := range env {
			f.Config.Env[k] = v
		}

		log.Info().Str("flow", path).Msg("running flow")
		result, err := runner.Run(ctx, f)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		log.Info().
			Str("flow", path).
			Int("steps", len(result.Steps)).
			Dur("elapsed", result.Elapsed).
			Msg("flow passed")
	}
	return nil
}

func parseEnv(pairs []string) (map[string]string, error) {
	env := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, found := strings.Cut(pair, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("invalid env %q, expected KEY=VALUE", pair)
		}
		env[key] = value
	}
	return env, nil
}
