// Command classics runs the classic monitor problems: a bounded buffer between
// producers and consumers, a single-lane bridge, the dining philosophers and a
// ring of traffic lights.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "classics",
		Usage: "Run the classic monitor coordination problems",

		Flags: []cli.Flag{
			&cli.PathFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "TOML file overriding the built-in defaults",
				EnvVars: []string{"CLASSICS_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "log-level",
				Value: "info",
				Usage: "trace, debug, info, warn or error",
			},
			&cli.StringFlag{
				Name:  "metrics-addr",
				Usage: "serve Prometheus metrics on this address, e.g. :2112",
			},
			&cli.DurationFlag{
				Name:    "duration",
				Aliases: []string{"d"},
				Usage:   "stop after this long; 0 runs until interrupted",
			},
			&cli.DurationFlag{
				Name:  "report-every",
				Value: time.Second,
				Usage: "interval between status lines",
			},
		},

		Commands: []*cli.Command{
			BufferCommand(),
			BridgeCommand(),
			PhilosophersCommand(),
			LightsCommand(),
		},
	}
}
