package sql

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/eventhawk/eventhawk/core"
	"github.com/eventhawk/eventhawk/pkg/log"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type TestEvent struct {
	ID          int64   `db:"id"`
	Name        string  `db:"name"`
	Summary     string  `db:"summary"`
	Status      string  `db:"status"`
	Tag         string  `db:"tag"`
	Time        string  `db:"time"`
	Description string  `db:"description"`
	EventStart  *string `db:"event_start"`
	EventEnd    *string `db:"event_end"`
}

const table = "test_events"

func testRegistry() *core.Registry {
	reg := core.NewRegistry()
	reg.MustRegister(&TestEvent{})
	return reg
}

func databaseURL(t *testing.T) string {
	t.Helper()
	return "sqlite:///" + filepath.Join(t.TempDir(), "events.db")
}

func setupStore(t *testing.T) *Store {
	t.Helper()

	store, err := Open(context.Background(), databaseURL(t), testRegistry(), WithLogger(log.Nop()))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	require.NoError(t, store.Init(context.Background()))
	return store
}

func event(id int64, name, status, tag string) core.Record {
	return core.Record{
		"id":          id,
		"name":        name,
		"summary":     name + " summary",
		"status":      status,
		"tag":         tag,
		"time":        fmt.Sprintf("2024-01-%02dT10:00:00", id%28+1),
		"description": "Description of " + name,
	}
}

func seed(t *testing.T, store *Store) {
	t.Helper()
	events := []core.Record{
		event(1, "Database failover", "active", "database"),
		event(2, "API latency spike", "pending", "api"),
		event(3, "Disk usage warning", "pending", "infra"),
		event(4, "Deploy v2.3", "completed", "deploy"),
		event(5, "Cache eviction storm", "failed", "infra"),
		event(6, "Certificate renewal", "completed", "security"),
		event(7, "Queue backlog", "active", "infra"),
		event(8, "100% CPU on worker", "active", "infra"),
		event(9, "Login errors", "cancelled", "api"),
		event(10, "Nightly backup", "completed", "database"),
		event(11, "DNS_resolution flaps", "pending", "network"),
		event(12, "Memory leak", "active", "api"),
	}
	for _, e := range events {
		require.NoError(t, store.Write(context.Background(), table, e, core.OpInsert))
	}
}

func ids(records []core.Record) []int64 {
	out := make([]int64, 0, len(records))
	for _, r := range records {
		out = append(out, r["id"].(int64))
	}
	return out
}

func TestInit_Idempotent(t *testing.T) {
	store := setupStore(t)

	require.NoError(t, store.Init(context.Background()))
	require.NoError(t, store.Init(context.Background()))

	count, err := store.Count(context.Background(), table, nil)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestInit_AddsMissingColumns(t *testing.T) {
	url := databaseURL(t)
	_, dsn, err := ParseDatabaseURL(url)
	require.NoError(t, err)

	db, err := sqlx.Open("sqlite3", dsn)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE test_events (
		id INTEGER PRIMARY KEY, name TEXT NOT NULL, summary TEXT NOT NULL,
		status TEXT NOT NULL, tag TEXT NOT NULL, time TEXT NOT NULL, description TEXT NOT NULL
	)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO test_events VALUES (1, 'old', 's', 'active', 't', '2024-01-01', 'd')`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	store, err := Open(context.Background(), url, testRegistry(), WithLogger(log.Nop()))
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, store.Init(context.Background()))

	record, err := store.GetByID(context.Background(), table, 1)
	require.NoError(t, err)
	assert.Equal(t, "old", record["name"])
	assert.Nil(t, record["event_start"])
	assert.Nil(t, record["event_end"])

	start := "2024-01-01 09:00"
	require.NoError(t, store.Write(context.Background(), table, core.Record{"id": 1, "event_start": start}, core.OpUpdate))
	record, err = store.GetByID(context.Background(), table, 1)
	require.NoError(t, err)
	assert.Equal(t, start, record["event_start"])
}

func TestWrite_InsertRoundTrip(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	in := event(42, "Round trip", "pending", "test")
	in["event_start"] = "2024-03-01 10:00"
	require.NoError(t, store.Write(ctx, table, in, core.OpInsert))

	out, err := store.GetByID(ctx, table, 42)
	require.NoError(t, err)
	assert.Equal(t, core.Record{
		"id":          int64(42),
		"name":        "Round trip",
		"summary":     "Round trip summary",
		"status":      "pending",
		"tag":         "test",
		"time":        in["time"],
		"description": "Description of Round trip",
		"event_start": "2024-03-01 10:00",
		"event_end":   nil,
	}, out)
}

func TestWrite_InsertDuplicateConflicts(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	require.NoError(t, store.Write(ctx, table, event(1, "First", "active", "a"), core.OpInsert))

	err := store.Write(ctx, table, event(1, "Second", "pending", "b"), core.OpInsert)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrConflict)

	count, err := store.Count(ctx, table, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	record, err := store.GetByID(ctx, table, 1)
	require.NoError(t, err)
	assert.Equal(t, "First", record["name"])
}

func TestWrite_InsertValidation(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	incomplete := core.Record{"id": 1, "name": "No status"}
	assert.ErrorIs(t, store.Write(ctx, table, incomplete, core.OpInsert), core.ErrValidation)

	unknown := event(2, "Unknown", "active", "x")
	unknown["priority"] = "high"
	assert.ErrorIs(t, store.Write(ctx, table, unknown, core.OpInsert), core.ErrValidation)

	badType := event(3, "Bad id", "active", "x")
	badType["id"] = "three"
	assert.ErrorIs(t, store.Write(ctx, table, badType, core.OpInsert), core.ErrValidation)

	assert.ErrorIs(t, store.Write(ctx, table, core.Record{}, core.OpInsert), core.ErrValidation)

	count, err := store.Count(ctx, table, nil)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestWrite_UpdateIsPartial(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	seed(t, store)

	before, err := store.GetByID(ctx, table, 2)
	require.NoError(t, err)

	require.NoError(t, store.Write(ctx, table, core.Record{"id": 2, "status": "completed", "event_end": "2024-01-03 12:00"}, core.OpUpdate))

	after, err := store.GetByID(ctx, table, 2)
	require.NoError(t, err)

	assert.Equal(t, "completed", after["status"])
	assert.Equal(t, "2024-01-03 12:00", after["event_end"])
	for _, column := range []string{"name", "summary", "tag", "time", "description", "event_start"} {
		assert.Equal(t, before[column], after[column], column)
	}

	// only the key: nothing to change, still succeeds
	require.NoError(t, store.Write(ctx, table, core.Record{"id": 2}, core.OpUpdate))
}

func TestWrite_UpdateMissingRow(t *testing.T) {
	store := setupStore(t)

	err := store.Write(context.Background(), table, core.Record{"id": 99, "status": "active"}, core.OpUpdate)
	assert.ErrorIs(t, err, core.ErrNotFound)

	err = store.Write(context.Background(), table, core.Record{"status": "active"}, core.OpUpdate)
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestWrite_DeleteIsFinal(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	seed(t, store)

	before, err := store.Count(ctx, table, nil)
	require.NoError(t, err)

	require.NoError(t, store.Write(ctx, table, core.Record{"id": 5}, core.OpDelete))

	_, err = store.GetByID(ctx, table, 5)
	assert.ErrorIs(t, err, core.ErrNotFound)

	after, err := store.Count(ctx, table, nil)
	require.NoError(t, err)
	assert.Equal(t, before-1, after)
}

func TestWrite_DeleteMissingRow(t *testing.T) {
	store := setupStore(t)

	err := store.Write(context.Background(), table, core.Record{"id": 5}, core.OpDelete)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestWrite_UnknownOperation(t *testing.T) {
	store := setupStore(t)

	err := store.Write(context.Background(), table, event(1, "x", "active", "t"), core.Operation("upsert"))
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestFind_UnknownTableAndField(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	_, err := store.Find(ctx, "incidents", nil)
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.Equal(t, core.KindNotFound, core.KindOf(err))

	_, err = store.Find(ctx, table, core.NewQuery().WithFilter("priority", "high"))
	assert.ErrorIs(t, err, core.ErrValidation)

	_, err = store.Find(ctx, table, core.NewQuery().WithSort("priority", core.SortAsc))
	assert.ErrorIs(t, err, core.ErrValidation)

	_, err = store.Find(ctx, table, core.NewQuery().WithPagination(-1, 0))
	assert.ErrorIs(t, err, core.ErrValidation)

	_, err = store.Count(ctx, "incidents", nil)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestFind_TableNameIsCaseInsensitive(t *testing.T) {
	store := setupStore(t)
	seed(t, store)

	records, err := store.Find(context.Background(), "TEST_EVENTS", nil)
	require.NoError(t, err)
	assert.Len(t, records, 12)
}

func TestFind_DefaultOrderIsPrimaryKey(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	for _, id := range []int64{7, 3, 11, 1} {
		require.NoError(t, store.Write(ctx, table, event(id, "e", "active", "t"), core.OpInsert))
	}

	records, err := store.Find(ctx, table, nil)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3, 7, 11}, ids(records))
}

func TestFind_WithSorting(t *testing.T) {
	store := setupStore(t)
	seed(t, store)

	records, err := store.Find(context.Background(), table, core.NewQuery().WithSort("name", core.SortAsc))
	require.NoError(t, err)
	require.Len(t, records, 12)
	assert.Equal(t, "100% CPU on worker", records[0]["name"])
	assert.Equal(t, "Queue backlog", records[11]["name"])

	records, err = store.Find(context.Background(), table, core.NewQuery().WithSort("id", core.SortDesc))
	require.NoError(t, err)
	assert.Equal(t, int64(12), records[0]["id"])
}

func TestFind_WithFilters(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	seed(t, store)

	active, err := store.Find(ctx, table, core.NewQuery().WithFilter("status", "active"))
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 7, 8, 12}, ids(active))

	infra, err := store.Find(ctx, table, core.NewQuery().WithFilter("tag", "infra"))
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 5, 7, 8}, ids(infra))

	both, err := store.Find(ctx, table, core.NewQuery().WithFilters(map[string]any{"status": "active", "tag": "infra"}))
	require.NoError(t, err)
	assert.Equal(t, []int64{7, 8}, ids(both))

	// conjunction equals the intersection of the individual filters
	var intersection []int64
	for _, a := range ids(active) {
		for _, b := range ids(infra) {
			if a == b {
				intersection = append(intersection, a)
			}
		}
	}
	assert.Equal(t, intersection, ids(both))

	none, err := store.Find(ctx, table, core.NewQuery().WithFilter("status", "archived"))
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)

	byID, err := store.Find(ctx, table, core.NewQuery().WithFilter("id", "4"))
	require.NoError(t, err)
	assert.Equal(t, []int64{4}, ids(byID))
}

func TestFind_WithSearch(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	seed(t, store)
	require.NoError(t, store.Write(ctx, table, event(13, "Émile outage", "active", "support"), core.OpInsert))
	require.NoError(t, store.Write(ctx, table, event(14, "Straße down", "pending", "network"), core.OpInsert))

	tests := []struct {
		name    string
		search  string
		filters map[string]any
		want    []int64
	}{
		{"case insensitive name", "DATABASE", nil, []int64{1, 10}},
		{"non-ascii exact case", "Émile", nil, []int64{13}},
		{"non-ascii with ascii case variant", "ÉMILE OUTAGE", nil, []int64{13}},
		{"non-ascii lowercase letter", "STRAßE", nil, []int64{14}},
		{"matches any text field", "infra", nil, []int64{3, 5, 7, 8}},
		{"description substring", "of login", nil, []int64{9}},
		{"percent is literal", "100%", nil, []int64{8}},
		{"underscore is literal", "dns_", nil, []int64{11}},
		{"composes with filters", "infra", map[string]any{"status": "active"}, []int64{7, 8}},
		{"no match", "zebra", nil, []int64{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query := core.NewQuery().WithSearch(tt.search).WithFilters(tt.filters)
			records, err := store.Find(ctx, table, query)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(records))

			count, err := store.Count(ctx, table, query)
			require.NoError(t, err)
			assert.Equal(t, int64(len(tt.want)), count)
		})
	}
}

func TestFind_WithPagination(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	seed(t, store)

	all, err := store.Find(ctx, table, nil)
	require.NoError(t, err)
	require.Len(t, all, 12)

	for _, limit := range []int{1, 3, 5, 12, 20} {
		for _, offset := range []int{0, 1, 4, 11, 12, 30} {
			page, err := store.Find(ctx, table, core.NewQuery().WithPagination(limit, offset))
			require.NoError(t, err)

			start := min(offset, len(all))
			end := min(offset+limit, len(all))
			assert.Equal(t, ids(all[start:end]), ids(page), "limit=%d offset=%d", limit, offset)
		}
	}

	// zero limit is unbounded, including with an offset
	rest, err := store.Find(ctx, table, core.NewQuery().WithPagination(0, 9))
	require.NoError(t, err)
	assert.Equal(t, []int64{10, 11, 12}, ids(rest))

	// filters apply before pagination
	page, err := store.Find(ctx, table, core.NewQuery().WithFilter("tag", "infra").WithPagination(2, 1))
	require.NoError(t, err)
	assert.Equal(t, []int64{5, 7}, ids(page))
}

func TestFind_Idempotent(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	seed(t, store)

	query := core.NewQuery().WithSearch("a").WithSort("name", core.SortDesc).WithPagination(5, 2)
	first, err := store.Find(ctx, table, query)
	require.NoError(t, err)
	second, err := store.Find(ctx, table, query)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Len(t, query.Sort, 1, "Find must not modify the caller's query")
}

func TestCount_MatchesFind(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	seed(t, store)

	queries := []*core.Query{
		nil,
		core.NewQuery().WithFilter("status", "pending"),
		core.NewQuery().WithFilter("tag", "api").WithFilter("status", "active"),
		core.NewQuery().WithFilter("status", "nope"),
	}
	for _, q := range queries {
		records, err := store.Find(ctx, table, q)
		require.NoError(t, err)
		count, err := store.Count(ctx, table, q)
		require.NoError(t, err)
		assert.Equal(t, int64(len(records)), count)
	}

	// pagination is ignored by Count
	count, err := store.Count(ctx, table, core.NewQuery().WithPagination(2, 0))
	require.NoError(t, err)
	assert.Equal(t, int64(12), count)
}

func TestConcreteScenario(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	require.NoError(t, store.Write(ctx, table, event(1, "A", "pending", "x"), core.OpInsert))
	require.NoError(t, store.Write(ctx, table, event(2, "B", "active", "y"), core.OpInsert))

	pending, err := store.Find(ctx, table, core.NewQuery().WithFilter("status", "pending"))
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, ids(pending))

	count, err := store.Count(ctx, table, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	require.NoError(t, store.Write(ctx, table, core.Record{"id": 1}, core.OpDelete))

	rest, err := store.Find(ctx, table, nil)
	require.NoError(t, err)
	assert.Equal(t, []int64{2}, ids(rest))
}

func TestConcurrentWrites(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 1; i <= 20; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			errs <- store.Write(ctx, table, event(id, fmt.Sprintf("e%d", id), "active", "t"), core.OpInsert)
		}(int64(i))
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}

	count, err := store.Count(ctx, table, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(20), count)
}

func TestCancelledContext(t *testing.T) {
	store := setupStore(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := store.Write(ctx, table, event(1, "x", "active", "t"), core.OpInsert)
	assert.ErrorIs(t, err, core.ErrUnavailable)
}

func TestInMemoryDatabase(t *testing.T) {
	store, err := Open(context.Background(), ":memory:", testRegistry(), WithLogger(log.Nop()))
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Init(context.Background()))
	seed(t, store)

	count, err := store.Count(context.Background(), table, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(12), count)
}
