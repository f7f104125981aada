package events

import (
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/eventhawk/eventhawk/core"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

// ListOptions selects a page of events
type ListOptions struct {
	Offset int
	Limit  int
	Search string
}

// pageSize bounds the rows read per query when loading every event
var pageSize = 500

// Service implements event operations on top of a record store
type Service struct {
	store    core.Store
	logger   zerolog.Logger
	onChange []func()
}

// NewService creates an event service backed by store
func NewService(store core.Store, logger zerolog.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// OnChange registers fn to run after every successful create, update or
// delete. Hooks must be registered before the service is shared.
func (s *Service) OnChange(fn func()) {
	s.onChange = append(s.onChange, fn)
}

func (s *Service) changed() {
	for _, fn := range s.onChange {
		fn()
	}
}

// Create inserts a new event. A duplicate id fails with core.ErrConflict.
func (s *Service) Create(ctx context.Context, e Event) (Event, error) {
	if err := validate(e); err != nil {
		return Event{}, err
	}
	if err := s.store.Write(ctx, Table, e.Record(), core.OpInsert); err != nil {
		if errors.Is(err, core.ErrConflict) {
			return Event{}, core.NewError(core.KindConflict, "create", Table, "event with id %d already exists", e.ID)
		}
		return Event{}, err
	}
	s.logger.Info().Int64("id", e.ID).Str("status", e.Status).Msg("event created")
	s.changed()
	return s.Get(ctx, e.ID)
}

// Get returns a single event
func (s *Service) Get(ctx context.Context, id int64) (Event, error) {
	r, err := s.store.GetByID(ctx, Table, id)
	if err != nil {
		return Event{}, notFound(err, "get", id)
	}
	return FromRecord(r)
}

// List returns a page of events ordered by id together with the number of
// events matching the search
func (s *Service) List(ctx context.Context, opts ListOptions) ([]Event, int64, error) {
	query := core.NewQuery().
		WithSearch(strings.TrimSpace(opts.Search)).
		WithSort("id", core.SortAsc).
		WithPagination(opts.Limit, opts.Offset)

	records, err := s.store.Find(ctx, Table, query)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.store.Count(ctx, Table, query)
	if err != nil {
		return nil, 0, err
	}

	events, err := fromRecords(records)
	if err != nil {
		return nil, 0, err
	}
	return events, total, nil
}

// All returns every stored event ordered by id, reading pageSize rows at a time
func (s *Service) All(ctx context.Context) ([]Event, error) {
	all := make([]Event, 0)
	query := core.NewQuery().WithSort("id", core.SortAsc).WithPagination(pageSize, 0)
	for {
		page, err := s.find(ctx, query)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < pageSize {
			return all, nil
		}
		query = query.NextPage()
	}
}

// Update applies patch to an existing event and returns the stored result
func (s *Service) Update(ctx context.Context, id int64, patch EventPatch) (Event, error) {
	if err := s.store.Write(ctx, Table, patch.Record(id), core.OpUpdate); err != nil {
		return Event{}, notFound(err, "update", id)
	}
	s.logger.Info().Int64("id", id).Msg("event updated")
	s.changed()
	return s.Get(ctx, id)
}

// Delete removes an event
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.store.Write(ctx, Table, core.Record{"id": id}, core.OpDelete); err != nil {
		return notFound(err, "delete", id)
	}
	s.logger.Info().Int64("id", id).Msg("event deleted")
	s.changed()
	return nil
}

// ByStatus returns all events with the given status
func (s *Service) ByStatus(ctx context.Context, status string) ([]Event, error) {
	return s.find(ctx, core.NewQuery().WithFilter("status", status))
}

// ByTag returns all events with the given tag
func (s *Service) ByTag(ctx context.Context, tag string) ([]Event, error) {
	return s.find(ctx, core.NewQuery().WithFilter("tag", tag))
}

// CountsByStatus counts events for each of Statuses
func (s *Service) CountsByStatus(ctx context.Context) (map[string]int64, error) {
	counts := make(map[string]int64, len(Statuses))
	for _, status := range Statuses {
		n, err := s.store.Count(ctx, Table, core.NewQuery().WithFilter("status", status))
		if err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, nil
}

func (s *Service) find(ctx context.Context, query *core.Query) ([]Event, error) {
	records, err := s.store.Find(ctx, Table, query)
	if err != nil {
		return nil, err
	}
	return fromRecords(records)
}

func fromRecords(records []core.Record) ([]Event, error) {
	events := make([]Event, 0, len(records))
	for _, r := range records {
		e, err := FromRecord(r)
		if err != nil {
			return nil, core.NewError(core.KindUnavailable, "decode", Table, "%v", err)
		}
		events = append(events, e)
	}
	return events, nil
}

func validate(e Event) error {
	required := map[string]string{
		"name":   e.Name,
		"status": e.Status,
		"tag":    e.Tag,
		"time":   e.Time,
	}
	missing := lo.Filter(lo.Keys(required), func(field string, _ int) bool {
		return strings.TrimSpace(required[field]) == ""
	})
	if len(missing) == 0 {
		return nil
	}
	slices.Sort(missing)
	return core.NewError(core.KindValidation, "create", Table, "missing required fields: %s", strings.Join(missing, ", "))
}

func notFound(err error, op string, id int64) error {
	if errors.Is(err, core.ErrNotFound) {
		return core.NewError(core.KindNotFound, op, Table, "event with id %d not found", id)
	}
	return err
}
