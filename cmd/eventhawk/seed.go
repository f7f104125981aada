package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/eventhawk/eventhawk/core"
	"github.com/eventhawk/eventhawk/events"
	"github.com/eventhawk/eventhawk/pkg/log"
	"github.com/urfave/cli/v3"
)

var seedCmd = &cli.Command{
	Name:  "seed",
	Usage: "Insert generated sample events",
	Flags: []cli.Flag{
		&cli.IntFlag{
			Name:  "count",
			Value: 20,
			Usage: "number of events to create",
		},
		&cli.IntFlag{
			Name:  "start-id",
			Usage: "id of the first event, defaults to one past the highest existing id",
		},
	},
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
		svc := events.NewService(store, log.New("events"))

		firstID := int64(c.Int("start-id"))
		if firstID == 0 {
			firstID, err = nextID(ctx, store)
			if err != nil {
				return err
			}
		}

		rng := rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))
		created := 0
		for _, e := range events.Samples(rng, int(c.Int("count")), firstID, time.Now()) {
			if _, err := svc.Create(ctx, e); err != nil {
				if errors.Is(err, core.ErrConflict) {
					log.Warnf("Skipping event %d: %v", e.ID, err)
					continue
				}
				return err
			}
			created++
		}

		fmt.Printf("Created %d events starting at id %d\n", created, firstID)
		return nil
	},
}

// nextID returns one past the highest stored event id
func nextID(ctx context.Context, store core.Store) (int64, error) {
	query := core.NewQuery().WithSort("id", core.SortDesc).WithPagination(1, 0)
	records, err := store.Find(ctx, events.Table, query)
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 1, nil
	}
	last, err := events.FromRecord(records[0])
	if err != nil {
		return 0, err
	}
	return last.ID + 1, nil
}
