package main

import (
	"context"

	"github.com/eventhawk/eventhawk/pkg/log"
	"github.com/urfave/cli/v3"
)

var initDBCmd = &cli.Command{
	Name:  "init-db",
	Usage: "Create missing tables and columns",
	Action: func(ctx context.Context, c *cli.Command) error {
		cfg, err := loadConfig(c)
		if err != nil {
			return err
		}

		store, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.Init(ctx); err != nil {
			return err
		}
		log.Infof("Database initialized")
		return nil
	},
}
