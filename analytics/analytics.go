// Package analytics computes chart data from stored events.
package analytics

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/eventhawk/eventhawk/core"
	"github.com/eventhawk/eventhawk/events"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

// DefaultTTL is how long computed results are cached
const DefaultTTL = 10 * time.Minute

const cacheSize = 256

var features = map[string]func(events.Event) string{
	"status": func(e events.Event) string { return e.Status },
	"tag":    func(e events.Event) string { return e.Tag },
	"name":   func(e events.Event) string { return e.Name },
}

// Source lists the events analytics are computed over
type Source interface {
	All(ctx context.Context) ([]events.Event, error)
}

// Bar is the number of events with one feature value in one bin
type Bar struct {
	Date  string `json:"date"`
	Value string `json:"value"`
	Count int    `json:"count"`
}

// Point is the number of events in one bin
type Point struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// BarRequest selects the data of a bar chart
type BarRequest struct {
	Feature   string
	StartDate string
	EndDate   string
	Bin       Bin
}

func (r BarRequest) key() string {
	return fmt.Sprintf("bar:%s:%s:%s:%s", r.Feature, r.StartDate, r.EndDate, r.Bin)
}

// CacheStatus describes the result cache
type CacheStatus struct {
	Entries    int      `json:"entries"`
	Keys       []string `json:"keys"`
	TTLMinutes float64  `json:"cache_duration_minutes"`
}

// Analyzer computes and caches chart data
type Analyzer struct {
	source Source
	cache  *expirable.LRU[string, any]
	ttl    time.Duration
	logger zerolog.Logger
}

// New creates an Analyzer. A non-positive ttl selects DefaultTTL.
func New(source Source, ttl time.Duration, logger zerolog.Logger) *Analyzer {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Analyzer{
		source: source,
		cache:  expirable.NewLRU[string, any](cacheSize, nil, ttl),
		ttl:    ttl,
		logger: logger,
	}
}

// Features returns the categorical features BarData can group by
func (a *Analyzer) Features() []string {
	keys := lo.Keys(features)
	slices.Sort(keys)
	return keys
}

// BarData counts events per bin and feature value, sorted by bin then value
func (a *Analyzer) BarData(ctx context.Context, req BarRequest) ([]Bar, error) {
	value, ok := features[req.Feature]
	if !ok {
		return nil, core.NewError(core.KindValidation, "bar-data", events.Table, "unknown feature %q", req.Feature)
	}
	span, err := ParseDateRange(req.StartDate, req.EndDate)
	if err != nil {
		return nil, core.NewError(core.KindValidation, "bar-data", events.Table, "%v", err)
	}
	req.Bin = ParseBin(string(req.Bin))

	if cached, ok := a.cache.Get(req.key()); ok {
		a.logger.Debug().Str("key", req.key()).Msg("using cached bar data")
		return cached.([]Bar), nil
	}

	samples, err := a.samples(ctx, span)
	if err != nil {
		return nil, err
	}

	type group struct{ date, value string }
	groups := lo.GroupBy(samples, func(s sample) group {
		return group{date: req.Bin.Key(s.at), value: value(s.event)}
	})
	bars := lo.MapToSlice(groups, func(g group, members []sample) Bar {
		return Bar{Date: g.date, Value: g.value, Count: len(members)}
	})
	slices.SortFunc(bars, func(x, y Bar) int {
		return cmp.Or(cmp.Compare(x.Date, y.Date), cmp.Compare(x.Value, y.Value))
	})

	a.cache.Add(req.key(), bars)
	a.logger.Debug().Str("key", req.key()).Int("bars", len(bars)).Msg("computed bar data")
	return bars, nil
}

// TimeSeries counts events per bin, sorted by bin
func (a *Analyzer) TimeSeries(ctx context.Context, bin Bin) ([]Point, error) {
	bin = ParseBin(string(bin))
	key := "series:" + string(bin)
	if cached, ok := a.cache.Get(key); ok {
		return cached.([]Point), nil
	}

	samples, err := a.samples(ctx, nil)
	if err != nil {
		return nil, err
	}

	groups := lo.GroupBy(samples, func(s sample) string { return bin.Key(s.at) })
	points := lo.MapToSlice(groups, func(date string, members []sample) Point {
		return Point{Date: date, Count: len(members)}
	})
	slices.SortFunc(points, func(x, y Point) int { return cmp.Compare(x.Date, y.Date) })

	a.cache.Add(key, points)
	return points, nil
}

// ClearCache drops every cached result
func (a *Analyzer) ClearCache() {
	a.cache.Purge()
	a.logger.Info().Msg("analytics cache cleared")
}

// Invalidate drops cached results after the underlying events change
func (a *Analyzer) Invalidate() {
	a.cache.Purge()
	a.logger.Debug().Msg("analytics cache invalidated")
}

// CacheStatus reports the cached keys and the cache lifetime
func (a *Analyzer) CacheStatus() CacheStatus {
	keys := a.cache.Keys()
	slices.Sort(keys)
	return CacheStatus{
		Entries:    len(keys),
		Keys:       keys,
		TTLMinutes: a.ttl.Minutes(),
	}
}

type sample struct {
	event events.Event
	at    time.Time
}

func (a *Analyzer) samples(ctx context.Context, span *DateRange) ([]sample, error) {
	all, err := a.source.All(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]sample, 0, len(all))
	for _, e := range all {
		at, err := e.At()
		if err != nil {
			a.logger.Debug().Int64("id", e.ID).Err(err).Msg("skipping event")
			continue
		}
		if span.Contains(at) {
			out = append(out, sample{event: e, at: at})
		}
	}
	return out, nil
}
