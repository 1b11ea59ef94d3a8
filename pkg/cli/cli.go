// Package cli provides the command-line interface for uidriver.
package cli

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

// Version is set at build time.
var Version = "dev"

// GlobalFlags are available to all commands.
var GlobalFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to uidriver.yaml",
		EnvVars: []string{"UIDRIVER_CONFIG"},
	},
	&cli.StringFlag{
		Name:    "backend",
		Aliases: []string{"b"},
		Usage:   "Accessibility backend (auto, bridge, memtree)",
		EnvVars: []string{"UIDRIVER_BACKEND"},
	},
	&cli.StringFlag{
		Name:    "log-level",
		Usage:   "Log level (trace, debug, info, warn, error)",
		EnvVars: []string{"UIDRIVER_LOG_LEVEL"},
	},
	&cli.BoolFlag{
		Name:    "verbose",
		Usage:   "Enable debug logging",
		EnvVars: []string{"UIDRIVER_VERBOSE"},
	},
}

var versionCommand = &cli.Command{
	Name:  "version",
	Usage: "Print the uidriver version",
	Action: func(c *cli.Context) error {
		fmt.Printf("uidriver %s\n", Version)
		return nil
	},
}

// Execute runs the CLI.
func Execute() {
	app := &cli.App{
		Name:    "uidriver",
		Usage:   "Desktop UI automation engine",
		Version: Version,
		Description: `uidriver resolves elements in the desktop accessibility tree,
dispatches actions against them, and serves both over a local HTTP API.

Examples:
  uidriver serve
  uidriver serve --port 3000 --backend bridge
  uidriver run flows/smoke.yaml -e USER=test`,
		Flags: GlobalFlags,
		Commands: []*cli.Command{
			serveCommand,
			runCommand,
			versionCommand,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
