package main

import (
	"context"
	"os"

	"github.com/eventhawk/eventhawk/pkg/log"
	"github.com/urfave/cli/v3"
)

func main() {
	cmd := &cli.Command{
		Name:  "eventhawk",
		Usage: "Store, query and serve operational events",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to a .toml, .yaml or .json config file",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "log level (debug, info, warn, error)",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "log SQL statements",
			},
		},
		Commands: []*cli.Command{
			serveCmd,
			initDBCmd,
			seedCmd,
			eventsCmd,
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatalf("%v", err)
	}
}
