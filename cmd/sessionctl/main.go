// Command sessionctl talks to a sessiond instance through the resilient
// client: it mints tokens, calls protected paths and runs concurrent bursts.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

const envPrefix = "SESSIONCTL_"

func main() {
	if err := app().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func app() *cli.App {
	return &cli.App{
		Name:  "sessionctl",
		Usage: "sessiond command-line client",
		Flags: globalFlags(),
		Commands: []*cli.Command{
			issueCommand(),
			callCommand(),
			burstCommand(),
		},
	}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "path to a YAML config file",
			EnvVars: []string{envPrefix + "CONFIG"},
		},
		&cli.StringFlag{
			Name:    "server",
			Aliases: []string{"s"},
			Usage:   "sessiond base URL, overrides server.url",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"V"},
			Usage:   "log token refreshes and retries",
		},
	}
}
