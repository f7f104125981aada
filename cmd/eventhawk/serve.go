package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/eventhawk/eventhawk/analytics"
	"github.com/eventhawk/eventhawk/api"
	"github.com/eventhawk/eventhawk/events"
	"github.com/eventhawk/eventhawk/pkg/log"
	"github.com/urfave/cli/v3"
)

var serveCmd = &cli.Command{
	Name:  "serve",
	Usage: "Run the HTTP API server",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "addr",
			Usage: "listen address, overrides the configured one",
		},
	},
	Action: func(ctx context.Context, c *cli.Command) error {
		cfg, err := loadConfig(c)
		if err != nil {
			return err
		}
		if addr := c.String("addr"); addr != "" {
			cfg.ListenAddr = addr
		}

		ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		store, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.Init(ctx); err != nil {
			return err
		}

		svc := events.NewService(store, log.New("events"))
		analyzer := analytics.New(svc, cfg.AnalyticsCacheTTL.Duration, log.New("analytics"))
		srv := api.New(svc, analyzer, store, api.Options{
			PageSize:    cfg.PageSize,
			MaxPageSize: cfg.MaxPageSize,
			CORSOrigins: cfg.CORSOrigins,
		}, log.New("http"))

		httpServer := &http.Server{
			Addr:              cfg.ListenAddr,
			Handler:           srv.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			log.Infof("Listening on %s", cfg.ListenAddr)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		log.Infof("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return err
		}
		log.Infof("Server stopped")
		return nil
	},
}
