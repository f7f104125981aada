package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/eventhawk/eventhawk/core"
	"github.com/eventhawk/eventhawk/events"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/urfave/cli/v3"
)

var eventsCmd = &cli.Command{
	Name:  "events",
	Usage: "Inspect stored events",
	Commands: []*cli.Command{
		eventsListCmd,
	},
}

var eventsListCmd = &cli.Command{
	Name:  "list",
	Usage: "Print events as a table",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "status", Usage: "only events with this status"},
		&cli.StringFlag{Name: "tag", Usage: "only events with this tag"},
		&cli.StringFlag{Name: "search", Aliases: []string{"q"}, Usage: "case-insensitive text search"},
		&cli.IntFlag{Name: "limit", Value: 20, Usage: "maximum number of events, 0 for all"},
		&cli.IntFlag{Name: "offset", Usage: "number of events to skip"},
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

		query := core.NewQuery().
			WithSearch(c.String("search")).
			WithPagination(int(c.Int("limit")), int(c.Int("offset")))
		if status := c.String("status"); status != "" {
			query.WithFilter("status", status)
		}
		if tag := c.String("tag"); tag != "" {
			query.WithFilter("tag", tag)
		}

		records, err := store.Find(ctx, events.Table, query)
		if err != nil {
			return err
		}
		total, err := store.Count(ctx, events.Table, query)
		if err != nil {
			return err
		}

		list := make([]events.Event, 0, len(records))
		for _, r := range records {
			e, err := events.FromRecord(r)
			if err != nil {
				return err
			}
			list = append(list, e)
		}

		renderEvents(os.Stdout, list, total)
		return nil
	},
}

var statusColors = map[string]*color.Color{
	"active":    color.New(color.FgGreen, color.Bold),
	"pending":   color.New(color.FgYellow),
	"completed": color.New(color.FgBlue),
	"failed":    color.New(color.FgRed, color.Bold),
	"cancelled": color.New(color.FgHiBlack),
}

func colorStatus(status string) string {
	if c, ok := statusColors[status]; ok {
		return c.Sprint(status)
	}
	return status
}

func renderEvents(w io.Writer, list []events.Event, total int64) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.Style().Format.Footer = text.FormatDefault
	t.AppendHeader(table.Row{"ID", "Name", "Status", "Tag", "Time", "Start", "End"})

	for _, e := range list {
		t.AppendRow(table.Row{
			e.ID,
			text.Trim(e.Name, 40),
			colorStatus(e.Status),
			e.Tag,
			e.Time,
			deref(e.EventStart),
			deref(e.EventEnd),
		})
	}
	t.AppendFooter(table.Row{"", fmt.Sprintf("%d of %d", len(list), total)})
	t.Render()
}

func deref(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}
