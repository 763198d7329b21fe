// Command sessiond serves session token issuance and a gated demo API.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

// Build information, set via ldflags.
var (
	version = "dev"
	commit  = "unknown"
)

const envPrefix = "SESSIOND_"

func main() {
	if err := app().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func app() *cli.App {
	return &cli.App{
		Name:    "sessiond",
		Usage:   "session token gate",
		Version: fmt.Sprintf("%s (commit: %s)", version, commit),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to a YAML config file",
				EnvVars: []string{envPrefix + "CONFIG"},
			},
		},
		Commands: []*cli.Command{
			serveCommand(),
			configCommand(),
		},
	}
}
