package main

import (
	"context"
	"fmt"

	sqlstore "github.com/eventhawk/eventhawk/adapters/sql"
	"github.com/eventhawk/eventhawk/config"
	"github.com/eventhawk/eventhawk/core"
	"github.com/eventhawk/eventhawk/events"
	"github.com/eventhawk/eventhawk/pkg/log"
	"github.com/urfave/cli/v3"
)

// loadConfig reads the configuration and applies the global flags on top
func loadConfig(c *cli.Command) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	if c.IsSet("debug") {
		cfg.DebugEnabled = c.Bool("debug")
	}
	if level := c.String("log-level"); level != "" {
		cfg.LogLevel = level
	}
	if cfg.DebugEnabled && !c.IsSet("log-level") {
		cfg.LogLevel = "debug"
	}
	if err := log.SetLevel(cfg.LogLevel); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}
	return cfg, nil
}

// openStore connects to the configured database with the events table registered
func openStore(ctx context.Context, cfg *config.Config) (*sqlstore.Store, error) {
	registry := core.NewRegistry()
	if _, err := events.Register(registry); err != nil {
		return nil, err
	}

	store, err := sqlstore.Open(ctx, cfg.DatabaseURL, registry,
		sqlstore.WithLogger(log.New("store")),
		sqlstore.WithDebug(cfg.DebugEnabled),
	)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return store, nil
}
